// Package testsupport provides shared fixtures for package tests: temp
// configs, temp stores, and a fake headend client.
package testsupport

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"teamsync/internal/config"
	"teamsync/internal/headend"
	"teamsync/internal/store"
)

// NewConfig returns a config rooted in a temp directory with the scheduler
// disabled.
func NewConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load default config: %v", err)
	}
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Scheduler.Enabled = false
	return cfg
}

// NewStore opens a fresh store in a temp directory and closes it with the
// test.
func NewStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.OpenPath(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// FakeHeadend is an in-memory headend.Client. Error fields inject failures
// per operation.
type FakeHeadend struct {
	mu       sync.Mutex
	Streams  []headend.Stream
	channels map[int64]headend.Channel
	nextID   int64

	ListStreamsErr error
	CreateErr      error
	UpdateErr      error
	DeleteErr      error

	CreateCalls int
	UpdateCalls int
	DeleteCalls int
}

// NewFakeHeadend returns an empty fake client.
func NewFakeHeadend() *FakeHeadend {
	return &FakeHeadend{
		channels: make(map[int64]headend.Channel),
		nextID:   100,
	}
}

// AddChannel seeds a hosted channel and returns its id.
func (f *FakeHeadend) AddChannel(ch headend.Channel) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch.ID == 0 {
		f.nextID++
		ch.ID = f.nextID
	}
	f.channels[ch.ID] = ch
	return ch.ID
}

// Channel returns a hosted channel by id.
func (f *FakeHeadend) Channel(id int64) (headend.Channel, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[id]
	return ch, ok
}

// ChannelCount returns the number of hosted channels.
func (f *FakeHeadend) ChannelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.channels)
}

func (f *FakeHeadend) ListStreams(ctx context.Context, channelGroupID int64) ([]headend.Stream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListStreamsErr != nil {
		return nil, f.ListStreamsErr
	}
	return append([]headend.Stream(nil), f.Streams...), nil
}

func (f *FakeHeadend) ListChannels(ctx context.Context) ([]headend.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	channels := make([]headend.Channel, 0, len(f.channels))
	for _, ch := range f.channels {
		channels = append(channels, ch)
	}
	return channels, nil
}

func (f *FakeHeadend) CreateChannel(ctx context.Context, spec headend.ChannelSpec) (*headend.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateCalls++
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	f.nextID++
	ch := headend.Channel{
		ID:              f.nextID,
		Name:            spec.Name,
		ChannelNumber:   spec.ChannelNumber,
		ChannelGroupID:  spec.ChannelGroupID,
		StreamProfileID: spec.StreamProfileID,
		TVGID:           spec.TVGID,
		StreamIDs:       append([]int64(nil), spec.StreamIDs...),
	}
	f.channels[ch.ID] = ch
	return &ch, nil
}

func (f *FakeHeadend) UpdateChannel(ctx context.Context, id int64, spec headend.ChannelSpec) (*headend.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.UpdateCalls++
	if f.UpdateErr != nil {
		return nil, f.UpdateErr
	}
	ch, ok := f.channels[id]
	if !ok {
		return nil, fmt.Errorf("channel %d not found", id)
	}
	if spec.Name != "" {
		ch.Name = spec.Name
	}
	if spec.StreamIDs != nil {
		ch.StreamIDs = append([]int64(nil), spec.StreamIDs...)
	}
	if spec.ChannelGroupID != 0 {
		ch.ChannelGroupID = spec.ChannelGroupID
	}
	if spec.StreamProfileID != 0 {
		ch.StreamProfileID = spec.StreamProfileID
	}
	f.channels[id] = ch
	return &ch, nil
}

func (f *FakeHeadend) DeleteChannel(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.DeleteCalls++
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	delete(f.channels, id)
	return nil
}
