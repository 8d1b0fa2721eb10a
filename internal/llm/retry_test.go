package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"
)

// scriptedProvider returns errs in order, then reply.
type scriptedProvider struct {
	errs  []error
	reply string
	calls int
}

func (s *scriptedProvider) Name() string { return "scripted" }

func (s *scriptedProvider) Complete(ctx context.Context, _ *Prompt, _ *RequestOptions) (*Response, error) {
	s.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return nil, err
	}
	return &Response{Content: s.reply}, nil
}

func fastRetry(n int) *RetryConfig {
	return &RetryConfig{MaxRetries: n, RetryDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Timeout: time.Second}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	if cfg.MaxRetries != 1 || cfg.RetryDelay != 2*time.Second || cfg.MaxDelay != 30*time.Second || cfg.Timeout != time.Minute {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestDo_ProviderCalls(t *testing.T) {
	tests := []struct {
		name      string
		retries   int
		errs      []error
		wantCalls int
		wantErr   string
	}{
		{name: "first try", retries: 3, wantCalls: 1},
		{
			name:      "recovers from server errors",
			retries:   3,
			errs:      []error{errors.New("500 Internal Server Error"), errors.New("503 Service Unavailable")},
			wantCalls: 3,
		},
		{
			name:      "auth failure stops",
			retries:   3,
			errs:      []error{errors.New("401 Unauthorized")},
			wantCalls: 1,
			wantErr:   "non-retryable",
		},
		{
			name:      "budget spent",
			retries:   2,
			errs:      []error{errors.New("500"), errors.New("500"), errors.New("500"), errors.New("500")},
			wantCalls: 3,
			wantErr:   "max retries (2)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &scriptedProvider{errs: tt.errs, reply: "{}"}
			prompt := NewPrompt("", "judge")
			resp, err := Do(context.Background(), fastRetry(tt.retries), func(ctx context.Context) (*Response, error) {
				return inner.Complete(ctx, prompt, nil)
			})
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if resp.Content != "{}" {
					t.Errorf("content = %q", resp.Content)
				}
			} else if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want substring %q", err, tt.wantErr)
			}
			if inner.calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", inner.calls, tt.wantCalls)
			}
		})
	}
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inner := &scriptedProvider{errs: []error{errors.New("500")}}
	_, err := Do(ctx, fastRetry(3), func(ctx context.Context) (*Response, error) {
		return inner.Complete(ctx, NewPrompt("", "judge"), nil)
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

type classifiedError struct{ retry bool }

func (e classifiedError) Error() string   { return "invalid response: 400 fields missing" }
func (e classifiedError) Retryable() bool { return e.retry }

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"cancelled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("judge: %w", context.DeadlineExceeded), true},
		{"rate limited", errors.New("429 Too Many Requests"), true},
		{"rate limited text", errors.New("Too Many Requests"), true},
		{"daily quota", errors.New("429 tokens per day exceeded"), false},
		{"daily quota TPD", errors.New("429 TPD limit reached"), false},
		{"500", errors.New("500 Internal Server Error"), true},
		{"502", errors.New("502 Bad Gateway"), true},
		{"503", errors.New("503 Service Unavailable"), true},
		{"504", errors.New("504 Gateway Timeout"), true},
		{"400", errors.New("400 Bad Request"), false},
		{"401", errors.New("401 Unauthorized"), false},
		{"403", errors.New("403 Forbidden"), false},
		{"404", errors.New("404 Not Found"), false},
		{"malformed judgment", errors.New(`judgment missing field "reasoning"`), true},
		{"network", &net.OpError{Op: "dial", Err: errors.New("connection refused")}, true},
		{"self-classified retryable", fmt.Errorf("wrapped: %w", classifiedError{retry: true}), true},
		{"self-classified permanent", classifiedError{retry: false}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsRetryable_StatusError(t *testing.T) {
	tests := []struct {
		code int
		body string
		want bool
	}{
		{429, "slow down", true},
		{429, "Rate limit reached: tokens per day", false},
		{500, "", true},
		{503, "", true},
		{408, "", true},
		{400, "bad request", false},
		{401, "", false},
		{403, "", false},
	}
	for _, tt := range tests {
		err := fmt.Errorf("complete: %w", &StatusError{Provider: "openai", StatusCode: tt.code, Body: tt.body})
		if got := IsRetryable(err); got != tt.want {
			t.Errorf("IsRetryable(%d %q) = %v, want %v", tt.code, tt.body, got, tt.want)
		}
	}
}

func TestDo_PerAttemptTimeout(t *testing.T) {
	var deadlines []time.Duration
	cfg := &RetryConfig{MaxRetries: 1, RetryDelay: time.Millisecond, Timeout: 20 * time.Millisecond}

	_, err := Do(context.Background(), cfg, func(ctx context.Context) (string, error) {
		dl, ok := ctx.Deadline()
		if !ok {
			t.Fatal("expected attempt deadline")
		}
		deadlines = append(deadlines, time.Until(dl))
		<-ctx.Done()
		return "", ctx.Err()
	})

	var re *RetryError
	if !errors.As(err, &re) {
		t.Fatalf("expected RetryError, got %v", err)
	}
	if re.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", re.Attempts)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded cause, got %v", err)
	}
	for _, d := range deadlines {
		if d > 20*time.Millisecond {
			t.Errorf("attempt deadline %v exceeds configured timeout", d)
		}
	}
}

func TestDo_OnRetryReportsAttempts(t *testing.T) {
	var seen []int
	cfg := &RetryConfig{
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		Timeout:    time.Second,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			seen = append(seen, attempt)
		},
	}

	calls := 0
	got, err := Do(context.Background(), cfg, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("503 Service Unavailable")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Errorf("expected retries after attempts [1 2], got %v", seen)
	}
}

func TestDo_NoRetries(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), &RetryConfig{Timeout: time.Second}, func(context.Context) (int, error) {
		calls++
		return 0, errors.New("500")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}
