// Package transport performs the single synchronous HTTP exchange behind
// every gateway verb and captures wire transcripts for scrubbed logging.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Request is one provider call. Adapters build the body in their own wire
// format and hand it here unparsed.
type Request struct {
	Method      string
	URL         string
	Body        []byte
	ContentType string
	Headers     map[string]string

	// Idempotent marks the request safe to retry. Adapters set it for safe
	// verbs and for state-changing verbs covered by a caller-supplied
	// idempotency key.
	Idempotent bool
}

// Reply is the raw provider response. Non-2xx statuses are returned, not
// errors: most providers put declines in error-status bodies the adapter
// still has to parse.
type Reply struct {
	StatusCode int
	Body       []byte
	Header     http.Header
}

// Recorder receives raw request and response lines as they cross the wire.
// Transcripts contain unredacted credentials; scrub before persisting.
type Recorder interface {
	Record(line string)
}

// Client is the transport interface adapters depend on. Transport implements
// it directly; Retry decorates it.
type Client interface {
	Do(ctx context.Context, req Request) (*Reply, error)
}

type Transport struct {
	httpClient *http.Client
	logger     *slog.Logger
	recorder   Recorder
}

type Option func(*Transport)

// WithRecorder attaches a transcript recorder.
func WithRecorder(r Recorder) Option {
	return func(t *Transport) { t.recorder = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(t *Transport) { t.logger = l }
}

func New(timeout time.Duration, opts ...Option) *Transport {
	t := &Transport{
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Transport) Do(ctx context.Context, req Request) (*Reply, error) {
	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	t.record("> %s %s", req.Method, req.URL)
	if len(req.Body) > 0 {
		t.record("> %s", string(req.Body))
	}

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		t.record("! %v", err)
		return nil, &Error{Op: req.Method + " " + req.URL, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: req.Method + " " + req.URL, Err: err}
	}

	t.record("< %d", resp.StatusCode)
	if len(body) > 0 {
		t.record("< %s", string(body))
	}

	t.logger.DebugContext(ctx, "provider exchange",
		"method", req.Method,
		"url", req.URL,
		"status", resp.StatusCode,
	)

	return &Reply{
		StatusCode: resp.StatusCode,
		Body:       body,
		Header:     resp.Header,
	}, nil
}

func (t *Transport) record(format string, args ...any) {
	if t.recorder == nil {
		return
	}
	line := fmt.Sprintf(format, args...)
	t.recorder.Record(strings.TrimRight(line, "\n"))
}

// BufferRecorder accumulates transcript lines in memory.
type BufferRecorder struct {
	lines []string
}

func (b *BufferRecorder) Record(line string) {
	b.lines = append(b.lines, line)
}

// Transcript returns the captured lines joined with newlines.
func (b *BufferRecorder) Transcript() string {
	return strings.Join(b.lines, "\n")
}

// Reset discards captured lines.
func (b *BufferRecorder) Reset() {
	b.lines = b.lines[:0]
}
