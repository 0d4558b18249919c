// Package notifications pushes run summaries and failures to an ntfy topic.
package notifications

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"teamsync/internal/processor"
	"teamsync/internal/reconcile"
)

// Service is the notification boundary. Implementations must be safe for
// concurrent use.
type Service interface {
	NotifyRunCompleted(ctx context.Context, batch *processor.BatchProcessingResult) error
	NotifyReconciliation(ctx context.Context, summary *reconcile.Summary) error
	NotifyError(ctx context.Context, operation string, err error) error
	Test(ctx context.Context) error
}

// Config selects which notifications fire.
type Config struct {
	NtfyTopic      string
	RequestTimeout time.Duration
	Runs           bool
	Reconciliation bool
	Errors         bool
}

// New returns an ntfy-backed service, or a no-op one when no topic is
// configured.
func New(cfg Config) Service {
	if strings.TrimSpace(cfg.NtfyTopic) == "" {
		return noop{}
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		cfg:        cfg,
		topicURL:   topicURL(cfg.NtfyTopic),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// topicURL accepts either a bare topic name or a full URL.
func topicURL(topic string) string {
	if strings.HasPrefix(topic, "http://") || strings.HasPrefix(topic, "https://") {
		return topic
	}
	return "https://ntfy.sh/" + topic
}

type ntfyService struct {
	cfg        Config
	topicURL   string
	httpClient *http.Client
}

func (s *ntfyService) NotifyRunCompleted(ctx context.Context, batch *processor.BatchProcessingResult) error {
	if !s.cfg.Runs || batch == nil {
		return nil
	}
	title := "Sync run completed"
	if batch.TotalErrors() > 0 {
		title = "Sync run completed with errors"
	}
	body := fmt.Sprintf("%d groups, %d channels created, %d errors (%s)",
		len(batch.Groups), batch.TotalCreated(), batch.TotalErrors(),
		batch.FinishedAt.Sub(batch.StartedAt).Round(time.Second))
	return s.publish(ctx, title, body)
}

func (s *ntfyService) NotifyReconciliation(ctx context.Context, summary *reconcile.Summary) error {
	if !s.cfg.Reconciliation || summary == nil {
		return nil
	}
	if len(summary.Issues) == 0 {
		return nil
	}
	var parts []string
	for issueType, count := range summary.Counts() {
		parts = append(parts, fmt.Sprintf("%s: %d", issueType, count))
	}
	body := strings.Join(parts, ", ")
	if summary.Fixed > 0 {
		body += fmt.Sprintf(" (%d fixed)", summary.Fixed)
	}
	return s.publish(ctx, "Reconciliation found issues", body)
}

func (s *ntfyService) NotifyError(ctx context.Context, operation string, err error) error {
	if !s.cfg.Errors || err == nil {
		return nil
	}
	return s.publish(ctx, "Sync error: "+operation, err.Error())
}

func (s *ntfyService) Test(ctx context.Context) error {
	return s.publish(ctx, "Test notification", "teamsync notifications are working")
}

func (s *ntfyService) publish(ctx context.Context, title, body string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.topicURL, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Title", title)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification rejected: status %d", resp.StatusCode)
	}
	return nil
}

type noop struct{}

func (noop) NotifyRunCompleted(context.Context, *processor.BatchProcessingResult) error { return nil }
func (noop) NotifyReconciliation(context.Context, *reconcile.Summary) error            { return nil }
func (noop) NotifyError(context.Context, string, error) error                          { return nil }
func (noop) Test(context.Context) error                                                { return nil }
