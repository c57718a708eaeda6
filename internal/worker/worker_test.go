package worker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shaiso/Remedy/internal/domain"
	"github.com/shaiso/Remedy/internal/healing"
)

// --- HTTPProcessor Tests ---

func TestHTTPProcessor_GET_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.Header.Get("X-Custom") != "test-value" {
			t.Errorf("expected X-Custom header, got %q", r.Header.Get("X-Custom"))
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{"result": "ok"})
	}))
	defer server.Close()

	p := &HTTPProcessor{}
	task := &domain.Task{
		ID: "task-1",
		Payload: map[string]any{
			"method":  "GET",
			"url":     server.URL,
			"headers": map[string]any{"X-Custom": "test-value"},
		},
	}

	if err := p.Process(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHTTPProcessor_POST_WithBody(t *testing.T) {
	var receivedBody map[string]any
	var receivedContentType string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		receivedContentType = r.Header.Get("Content-Type")
		json.NewDecoder(r.Body).Decode(&receivedBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	p := &HTTPProcessor{}
	task := &domain.Task{
		ID: "task-1",
		Payload: map[string]any{
			"method": "POST",
			"url":    server.URL,
			"body":   map[string]any{"name": "test"},
		},
	}

	if err := p.Process(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receivedBody["name"] != "test" {
		t.Errorf("server should receive body, got %v", receivedBody)
	}
	if receivedContentType != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", receivedContentType)
	}
}

func TestHTTPProcessor_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("upstream unavailable"))
	}))
	defer server.Close()

	p := &HTTPProcessor{}
	task := &domain.Task{
		ID:      "task-1",
		Payload: map[string]any{"url": server.URL},
	}

	err := p.Process(context.Background(), task)
	if err == nil {
		t.Fatal("expected error for 503")
	}
	if !strings.HasPrefix(err.Error(), "HTTP 503") {
		t.Errorf("expected error text to start with HTTP 503, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "upstream unavailable") {
		t.Errorf("expected response body in error, got %q", err.Error())
	}
}

func TestHTTPProcessor_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	p := &HTTPProcessor{}
	task := &domain.Task{
		ID: "task-1",
		Payload: map[string]any{
			"url":         server.URL,
			"timeout_sec": 0.1,
		},
	}

	err := p.Process(context.Background(), task)
	if !errors.Is(err, ErrHTTPRequest) {
		t.Errorf("expected ErrHTTPRequest for timeout, got %v", err)
	}
}

func TestHTTPProcessor_MissingURL(t *testing.T) {
	p := &HTTPProcessor{}
	task := &domain.Task{ID: "task-1", Payload: map[string]any{}}

	if err := p.Process(context.Background(), task); !errors.Is(err, ErrHTTPRequest) {
		t.Errorf("expected ErrHTTPRequest for missing URL, got %v", err)
	}
}

// --- DelayProcessor Tests ---

func TestDelayProcessor_Success(t *testing.T) {
	p := &DelayProcessor{}
	task := &domain.Task{
		ID:      "task-1",
		Payload: map[string]any{"duration_sec": 0.05},
	}

	start := time.Now()
	if err := p.Process(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) < 40*time.Millisecond {
		t.Error("should have waited at least 40ms")
	}
}

func TestDelayProcessor_ContextCancel(t *testing.T) {
	p := &DelayProcessor{}
	task := &domain.Task{
		ID:      "task-1",
		Payload: map[string]any{"duration_sec": 10},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := p.Process(ctx, task); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

// --- Registry Tests ---

func TestNewRegistry_DefaultProcessors(t *testing.T) {
	r := NewRegistry()

	for _, taskType := range []string{"http", "delay", ""} {
		p, err := r.Get(taskType)
		if err != nil {
			t.Errorf("expected processor for %q, got error: %v", taskType, err)
		}
		if p == nil {
			t.Errorf("processor for %q should not be nil", taskType)
		}
	}
}

func TestRegistry_UnknownType(t *testing.T) {
	r := NewRegistry()

	_, err := r.Get("unknown")
	if !errors.Is(err, ErrUnknownTaskType) {
		t.Errorf("expected ErrUnknownTaskType, got %v", err)
	}
}

func TestRegistry_ProcessDispatchesByType(t *testing.T) {
	r := NewRegistry()

	var called string
	r.Register("custom", healing.ProcessorFunc(func(ctx context.Context, task *domain.Task) error {
		called = task.ID
		return nil
	}))

	if err := r.Process(context.Background(), &domain.Task{ID: "task-7", Type: "custom"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != "task-7" {
		t.Errorf("custom processor should be called, got %q", called)
	}
}

func TestRegistry_SetDefault(t *testing.T) {
	r := NewRegistry()

	failure := errors.New("custom failure")
	r.Register("custom", healing.ProcessorFunc(func(ctx context.Context, task *domain.Task) error {
		return failure
	}))
	r.SetDefault("custom")

	if err := r.Process(context.Background(), &domain.Task{ID: "task-1"}); !errors.Is(err, failure) {
		t.Errorf("task without type should go to default processor, got %v", err)
	}
}

// --- Backoff Tests ---

func TestCalculateBackoff_Exponential(t *testing.T) {
	policy := RetryPolicy{
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second}, // capped at max
		{6, 10 * time.Second}, // stays at max
	}

	for _, tt := range tests {
		got := calculateBackoff(tt.attempt, policy)
		if got != tt.expected {
			t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.expected, got)
		}
	}
}

func TestCalculateBackoff_ZeroValues(t *testing.T) {
	got := calculateBackoff(1, RetryPolicy{})
	if got != defaultRetryDelay {
		t.Errorf("expected %v default, got %v", defaultRetryDelay, got)
	}

	got = calculateBackoff(100, RetryPolicy{})
	if got != defaultMaxRetryDelay {
		t.Errorf("expected %v cap, got %v", defaultMaxRetryDelay, got)
	}
}

// --- Worker Tests ---

func TestNew_DefaultConfig(t *testing.T) {
	w := New(Config{})

	if w.shutdownTimeout != defaultShutdownTimeout {
		t.Errorf("expected default shutdown timeout %v, got %v", defaultShutdownTimeout, w.shutdownTimeout)
	}
	if w.retry.InitialDelay != defaultRetryDelay {
		t.Errorf("expected default retry delay %v, got %v", defaultRetryDelay, w.retry.InitialDelay)
	}
	if w.retry.MaxAttempts != 0 {
		t.Errorf("expected unbounded attempts, got %d", w.retry.MaxAttempts)
	}
	if w.processor == nil {
		t.Error("processor should be initialized")
	}
}

func TestNew_CustomConfig(t *testing.T) {
	w := New(Config{
		ShutdownTimeout: 2 * time.Second,
		Retry:           RetryPolicy{MaxAttempts: 3, InitialDelay: 500 * time.Millisecond},
	})

	if w.shutdownTimeout != 2*time.Second {
		t.Errorf("expected shutdown timeout 2s, got %v", w.shutdownTimeout)
	}
	if w.retry.MaxAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", w.retry.MaxAttempts)
	}
	if w.retry.InitialDelay != 500*time.Millisecond {
		t.Errorf("expected retry delay 500ms, got %v", w.retry.InitialDelay)
	}
}

func TestWorker_StartWithoutConnection(t *testing.T) {
	w := New(Config{})

	if err := w.Start(context.Background()); !errors.Is(err, ErrNoConnection) {
		t.Errorf("expected ErrNoConnection, got %v", err)
	}
}

func TestWorker_IsStopped(t *testing.T) {
	w := New(Config{})

	if w.IsStopped() {
		t.Error("should not be stopped initially")
	}

	w.Stop()

	if !w.IsStopped() {
		t.Error("should be stopped")
	}
}

func TestWorker_StopIdempotent(t *testing.T) {
	w := New(Config{ShutdownTimeout: time.Second})

	w.Stop()

	start := time.Now()
	w.Stop()
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("second Stop should return immediately, took %v", elapsed)
	}
}
