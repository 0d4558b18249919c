// Package headend talks to the channel-hosting service that owns the live
// streams and the channels built from them. Channels created here are what
// downstream players actually tune.
package headend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"teamsync/internal/services"
)

// Stream is a live stream exposed by the headend.
type Stream struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	TVGID          string `json:"tvg_id,omitempty"`
	TVGName        string `json:"tvg_name,omitempty"`
	ChannelGroup   string `json:"channel_group,omitempty"`
	ChannelGroupID int64  `json:"channel_group_id,omitempty"`
	AccountID      int64  `json:"m3u_account,omitempty"`
}

// Channel is a channel hosted on the headend.
type Channel struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	ChannelNumber   float64 `json:"channel_number,omitempty"`
	ChannelGroupID  int64   `json:"channel_group_id,omitempty"`
	StreamProfileID int64   `json:"stream_profile_id,omitempty"`
	TVGID           string  `json:"tvg_id,omitempty"`
	StreamIDs       []int64 `json:"streams,omitempty"`
}

// ChannelSpec describes a channel to create or the new shape of one to
// update.
type ChannelSpec struct {
	Name            string  `json:"name"`
	ChannelNumber   float64 `json:"channel_number,omitempty"`
	ChannelGroupID  int64   `json:"channel_group_id,omitempty"`
	StreamProfileID int64   `json:"stream_profile_id,omitempty"`
	TVGID           string  `json:"tvg_id,omitempty"`
	StreamIDs       []int64 `json:"streams"`
}

// Client is the headend surface the sync pipeline needs.
type Client interface {
	ListStreams(ctx context.Context, channelGroupID int64) ([]Stream, error)
	ListChannels(ctx context.Context) ([]Channel, error)
	CreateChannel(ctx context.Context, spec ChannelSpec) (*Channel, error)
	UpdateChannel(ctx context.Context, id int64, spec ChannelSpec) (*Channel, error)
	DeleteChannel(ctx context.Context, id int64) error
}

// HTTPClient is the JSON REST implementation of Client.
type HTTPClient struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
}

// NewHTTPClient builds a client for the headend API at baseURL. The token is
// sent on every request; timeout bounds each call end to end.
func NewHTTPClient(baseURL, apiToken string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL:    baseURL,
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ListStreams returns the streams in one channel group.
func (c *HTTPClient) ListStreams(ctx context.Context, channelGroupID int64) ([]Stream, error) {
	endpoint := "/api/channels/streams/?channel_group=" + strconv.FormatInt(channelGroupID, 10)
	var streams []Stream
	if err := c.doJSON(ctx, http.MethodGet, endpoint, nil, &streams); err != nil {
		return nil, services.Wrap(services.ErrUpstream, "headend", "list streams", "request failed", err)
	}
	return streams, nil
}

// ListChannels returns every channel hosted on the headend.
func (c *HTTPClient) ListChannels(ctx context.Context) ([]Channel, error) {
	var channels []Channel
	if err := c.doJSON(ctx, http.MethodGet, "/api/channels/channels/", nil, &channels); err != nil {
		return nil, services.Wrap(services.ErrUpstream, "headend", "list channels", "request failed", err)
	}
	return channels, nil
}

// CreateChannel creates a channel and returns the hosted record.
func (c *HTTPClient) CreateChannel(ctx context.Context, spec ChannelSpec) (*Channel, error) {
	var channel Channel
	if err := c.doJSON(ctx, http.MethodPost, "/api/channels/channels/", spec, &channel); err != nil {
		return nil, services.Wrap(services.ErrUpstream, "headend", "create channel", "request failed", err)
	}
	return &channel, nil
}

// UpdateChannel replaces the mutable fields of a hosted channel.
func (c *HTTPClient) UpdateChannel(ctx context.Context, id int64, spec ChannelSpec) (*Channel, error) {
	endpoint := fmt.Sprintf("/api/channels/channels/%d/", id)
	var channel Channel
	if err := c.doJSON(ctx, http.MethodPatch, endpoint, spec, &channel); err != nil {
		return nil, services.Wrap(services.ErrUpstream, "headend", "update channel", "request failed", err)
	}
	return &channel, nil
}

// DeleteChannel removes a hosted channel. Deleting a channel that is already
// gone is not an error.
func (c *HTTPClient) DeleteChannel(ctx context.Context, id int64) error {
	endpoint := fmt.Sprintf("/api/channels/channels/%d/", id)
	err := c.doJSON(ctx, http.MethodDelete, endpoint, nil, nil)
	if err == nil || isNotFound(err) {
		return nil
	}
	return services.Wrap(services.ErrUpstream, "headend", "delete channel", "request failed", err)
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("unexpected status %d", e.code)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.body)
}

func isNotFound(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.code == http.StatusNotFound
}

func (c *HTTPClient) doJSON(ctx context.Context, method, endpoint string, payload, out any) error {
	target := joinURL(c.baseURL, endpoint)

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Token "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &statusError{code: resp.StatusCode, body: string(bytes.TrimSpace(raw))}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func joinURL(base, endpoint string) string {
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	return base + endpoint
}
