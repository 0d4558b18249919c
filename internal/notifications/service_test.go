package notifications

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"teamsync/internal/processor"
	"teamsync/internal/reconcile"
)

type capture struct {
	mu     sync.Mutex
	titles []string
	bodies []string
}

func newCaptureServer(t *testing.T) (*httptest.Server, *capture) {
	t.Helper()
	c := &capture{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.titles = append(c.titles, r.Header.Get("Title"))
		c.bodies = append(c.bodies, string(body))
		c.mu.Unlock()
	}))
	t.Cleanup(server.Close)
	return server, c
}

func TestNewWithoutTopicIsNoop(t *testing.T) {
	t.Parallel()

	svc := New(Config{Runs: true, Errors: true})
	if _, ok := svc.(noop); !ok {
		t.Fatalf("service = %T, want noop", svc)
	}
	if err := svc.Test(context.Background()); err != nil {
		t.Fatalf("noop test: %v", err)
	}
}

func TestTopicURL(t *testing.T) {
	t.Parallel()

	if got := topicURL("sync-alerts"); got != "https://ntfy.sh/sync-alerts" {
		t.Fatalf("bare topic = %q", got)
	}
	if got := topicURL("https://ntfy.example.com/mine"); got != "https://ntfy.example.com/mine" {
		t.Fatalf("full url = %q", got)
	}
}

func TestNotifyRunCompleted(t *testing.T) {
	t.Parallel()

	server, captured := newCaptureServer(t)
	svc := New(Config{NtfyTopic: server.URL, Runs: true})

	started := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)
	batch := &processor.BatchProcessingResult{
		StartedAt:  started,
		FinishedAt: started.Add(42 * time.Second),
		Groups: []*processor.ProcessingResult{
			{Errors: []string{"boom"}},
			{},
		},
	}
	if err := svc.NotifyRunCompleted(context.Background(), batch); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(captured.titles) != 1 {
		t.Fatalf("messages = %d", len(captured.titles))
	}
	if captured.titles[0] != "Sync run completed with errors" {
		t.Fatalf("title = %q", captured.titles[0])
	}
	if !strings.Contains(captured.bodies[0], "2 groups") || !strings.Contains(captured.bodies[0], "1 errors") {
		t.Fatalf("body = %q", captured.bodies[0])
	}
}

func TestNotifyRunRespectsGate(t *testing.T) {
	t.Parallel()

	server, captured := newCaptureServer(t)
	svc := New(Config{NtfyTopic: server.URL, Runs: false})

	if err := svc.NotifyRunCompleted(context.Background(), &processor.BatchProcessingResult{}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(captured.titles) != 0 {
		t.Fatalf("gated notification was sent: %v", captured.titles)
	}
}

func TestNotifyReconciliationSkipsCleanSummary(t *testing.T) {
	t.Parallel()

	server, captured := newCaptureServer(t)
	svc := New(Config{NtfyTopic: server.URL, Reconciliation: true})

	if err := svc.NotifyReconciliation(context.Background(), &reconcile.Summary{}); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(captured.titles) != 0 {
		t.Fatal("clean reconciliation must not notify")
	}

	summary := &reconcile.Summary{
		Issues: []reconcile.Issue{{Type: reconcile.Drift, Fixed: true}},
		Fixed:  1,
	}
	if err := svc.NotifyReconciliation(context.Background(), summary); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(captured.titles) != 1 {
		t.Fatalf("messages = %d", len(captured.titles))
	}
	if !strings.Contains(captured.bodies[0], "1 fixed") {
		t.Fatalf("body = %q", captured.bodies[0])
	}
}

func TestNotifyError(t *testing.T) {
	t.Parallel()

	server, captured := newCaptureServer(t)
	svc := New(Config{NtfyTopic: server.URL, Errors: true})

	if err := svc.NotifyError(context.Background(), "process groups", errors.New("upstream down")); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(captured.titles) != 1 || captured.titles[0] != "Sync error: process groups" {
		t.Fatalf("titles = %v", captured.titles)
	}
	if captured.bodies[0] != "upstream down" {
		t.Fatalf("body = %q", captured.bodies[0])
	}
}

func TestPublishRejectedStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	t.Cleanup(server.Close)

	svc := New(Config{NtfyTopic: server.URL})
	if err := svc.Test(context.Background()); err == nil {
		t.Fatal("expected error on rejected publish")
	}
}
