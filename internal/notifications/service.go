package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"idcheck/internal/config"
	"idcheck/internal/report"
)

const userAgent = "idcheck/0.1.0"

// Service defines the notification surface used by the runner and CLI.
type Service interface {
	NotifyRunStarted(ctx context.Context, mode string, files int) error
	NotifyRunCompleted(ctx context.Context, summary report.RunSummary) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunStarted(ctx context.Context, mode string, files int) error {
	mode = strings.TrimSpace(mode)
	data := payload{
		title:   "idcheck - Run Started",
		message: fmt.Sprintf("Started %s run with %d files", mode, files),
		tags:    []string{"idcheck", mode, "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, summary report.RunSummary) error {
	duration := summary.Duration().Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	var builder strings.Builder
	fmt.Fprintf(&builder, "%d/%d uploads succeeded in %s\n", summary.Succeeded, summary.Total, duration)
	fmt.Fprintf(&builder, "Groups: %d passed, %d failed", summary.GroupsPassed, summary.GroupsFailed)
	if summary.Interrupted {
		builder.WriteString("\nRun interrupted before all files were processed")
	}

	data := payload{
		title:   fmt.Sprintf("idcheck - %s Run Passed", modeTitle(summary.Mode)),
		message: builder.String(),
		tags:    []string{"idcheck", summary.Mode, "completed"},
	}
	if summary.GroupsFailed > 0 || summary.Interrupted {
		data.title = fmt.Sprintf("idcheck - %s Run Failed", modeTitle(summary.Mode))
		data.tags = []string{"idcheck", summary.Mode, "failed"}
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "idcheck - Error",
		message:  builder.String(),
		tags:     []string{"idcheck", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "idcheck - Test",
		message:  "Notification system test",
		tags:     []string{"idcheck", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if tags := compactTags(data.tags); len(tags) > 0 {
		req.Header.Set("Tags", strings.Join(tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func compactTags(tags []string) []string {
	out := tags[:0:0]
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func modeTitle(mode string) string {
	mode = strings.TrimSpace(mode)
	if mode == "" {
		return "Run"
	}
	return strings.ToUpper(mode[:1]) + mode[1:]
}

type noopService struct{}

func (noopService) NotifyRunStarted(context.Context, string, int) error         { return nil }
func (noopService) NotifyRunCompleted(context.Context, report.RunSummary) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error            { return nil }
func (noopService) TestNotification(context.Context) error                      { return nil }
