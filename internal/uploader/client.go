package uploader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	defaultMaxAttempts  = 3
	defaultRetryBackoff = time.Second
	defaultTimeout      = 60 * time.Second
	maxResponseBytes    = 16 << 20
)

// Config captures the per-mode settings for talking to the recognition API.
type Config struct {
	Endpoint     string
	FieldName    string
	ContentType  string
	UserAgent    string
	MaxAttempts  int
	RetryBackoff time.Duration
	Timeout      time.Duration
}

// AttemptObserver is notified after every failed attempt.
type AttemptObserver func(Attempt)

// Client uploads files to the recognition API with bounded retries.
type Client struct {
	cfg        Config
	httpClient *http.Client
	sleeper    func(context.Context, time.Duration) error
	observer   AttemptObserver
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleeper != nil {
			c.sleeper = sleeper
		}
	}
}

// WithAttemptObserver registers a callback for failed attempts.
func WithAttemptObserver(observer AttemptObserver) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

// NewClient constructs an uploader using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.FieldName = strings.TrimSpace(cfg.FieldName)
	if cfg.FieldName == "" {
		cfg.FieldName = "file"
	}
	if strings.TrimSpace(cfg.ContentType) == "" {
		cfg.ContentType = "application/octet-stream"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	if cfg.RetryBackoff < 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		sleeper:    SleepWithContext,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Upload sends one file and returns its classified transport outcome. It never
// returns an error: every failure mode is folded into the Outcome so the batch
// can move on to the next file.
func (c *Client) Upload(ctx context.Context, path string) Outcome {
	var out Outcome
	maxAttempts := c.cfg.MaxAttempts

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out.Attempts = attempt
		status, body, err := c.sendOnce(ctx, path)

		kind := attemptKind(status, err)
		switch kind {
		case FailureNone:
			out.StatusCode = status
			out.LastStatus = status
			out.Body = body
			out.Succeeded = true
			return out
		case FailureTerminalClient:
			out.StatusCode = status
			out.LastStatus = status
			out.Body = body
			out.Succeeded = true
			out.Failure = FailureTerminalClient
			return out
		case FailureLocal:
			out.LastError = err
			out.Failure = FailureLocal
			c.observe(path, attempt, status, err, kind, false)
			return out
		}

		out.LastStatus = status
		out.LastError = err
		out.Body = body

		if ctx.Err() != nil {
			out.Failure = FailureCancelled
			c.observe(path, attempt, status, err, kind, false)
			return out
		}

		retry := attempt < maxAttempts
		c.observe(path, attempt, status, err, kind, retry)
		if !retry {
			break
		}
		if err := c.sleeper(ctx, c.cfg.RetryBackoff); err != nil {
			out.Failure = FailureCancelled
			return out
		}
	}

	out.Failure = FailureExhaustedRetries
	return out
}

func attemptKind(status int, err error) FailureKind {
	var localErr *localFileError
	switch {
	case errors.As(err, &localErr):
		return FailureLocal
	case err != nil:
		return FailureTransientNetwork
	case status >= http.StatusInternalServerError:
		return FailureTransientServer
	case status >= http.StatusBadRequest:
		return FailureTerminalClient
	default:
		return FailureNone
	}
}

func (c *Client) observe(path string, attempt, status int, err error, kind FailureKind, retry bool) {
	if c.observer == nil {
		return
	}
	c.observer(Attempt{
		File:       filepath.Base(path),
		Number:     attempt,
		Max:        c.cfg.MaxAttempts,
		StatusCode: status,
		Err:        err,
		Kind:       kind,
		WillRetry:  retry,
	})
}

type localFileError struct {
	err error
}

func (e *localFileError) Error() string { return e.err.Error() }

func (e *localFileError) Unwrap() error { return e.err }

// sendOnce performs a single attempt. The file handle is opened and released
// within the attempt regardless of outcome.
func (c *Client) sendOnce(ctx context.Context, path string) (int, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, "", &localFileError{fmt.Errorf("open %s: %w", path, err)}
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return 0, "", &localFileError{fmt.Errorf("stat %s: %w", path, err)}
	}

	filename := filepath.Base(path)

	var head bytes.Buffer
	mw := multipart.NewWriter(&head)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(c.cfg.FieldName), quoteEscaper.Replace(filename)))
	header.Set("Content-Type", c.cfg.ContentType)
	if _, err := mw.CreatePart(header); err != nil {
		return 0, "", &localFileError{fmt.Errorf("build multipart header: %w", err)}
	}
	tail := fmt.Sprintf("\r\n--%s--\r\n", mw.Boundary())

	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body := io.MultiReader(bytes.NewReader(head.Bytes()), file, strings.NewReader(tail))
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.cfg.Endpoint, body)
	if err != nil {
		return 0, "", &localFileError{fmt.Errorf("new request: %w", err)}
	}
	req.ContentLength = int64(head.Len()) + info.Size() + int64(len(tail))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("upload request (timeout=%s): %w", c.cfg.Timeout, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, "", fmt.Errorf("read response body (status=%d): %w", resp.StatusCode, err)
	}
	return resp.StatusCode, string(payload), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// SleepWithContext waits for d or until ctx is done, whichever comes first.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
