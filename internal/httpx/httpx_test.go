package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func getReq(u string) func(context.Context) (*http.Request, error) {
	return func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}
}

func TestDoWithRetryRecoversFromServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			http.Error(w, "try later", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	_, body, err := DoWithRetry(context.Background(), srv.Client(), getReq(srv.URL), fastRetry(5))
	if err != nil {
		t.Fatalf("DoWithRetry: %v", err)
	}
	if string(body) != `{"ok":true}` {
		t.Fatalf("unexpected body %q", body)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestDoWithRetryGivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "still broken", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, _, err := DoWithRetry(context.Background(), srv.Client(), getReq(srv.URL), fastRetry(3))
	var herr *HTTPError
	if !errors.As(err, &herr) {
		t.Fatalf("expected *HTTPError, got %v", err)
	}
	if herr.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d", herr.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
}

func TestDoWithRetryDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, _, err := DoWithRetry(context.Background(), srv.Client(), getReq(srv.URL), fastRetry(5))
	var herr *HTTPError
	if !errors.As(err, &herr) || herr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("400 must not be retried, got %d attempts", got)
	}
}

func TestDoWithRetryHonorsRetryAfter(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	start := time.Now()
	_, _, err := DoWithRetry(context.Background(), srv.Client(), getReq(srv.URL), fastRetry(3))
	if err != nil {
		t.Fatalf("DoWithRetry: %v", err)
	}
	// Retry-After: 0 falls back to the tiny configured backoff, so the
	// whole exchange stays fast.
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("retry took too long: %v", elapsed)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestDoWithRetryStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := RetryConfig{MaxAttempts: 5, BaseDelay: time.Minute, MaxDelay: time.Minute}
	_, _, err := DoWithRetry(ctx, srv.Client(), getReq(srv.URL), cfg)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDoJSONUnmarshals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"algebra"}`))
	}))
	defer srv.Close()

	var out struct {
		Name string `json:"name"`
	}
	if err := DoJSON(context.Background(), srv.Client(), getReq(srv.URL), &out, fastRetry(1)); err != nil {
		t.Fatalf("DoJSON: %v", err)
	}
	if out.Name != "algebra" {
		t.Fatalf("name = %q", out.Name)
	}
}

func TestDoJSONNilOutDiscardsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer srv.Close()

	if err := DoJSON(context.Background(), srv.Client(), getReq(srv.URL), nil, fastRetry(1)); err != nil {
		t.Fatalf("DoJSON with nil out: %v", err)
	}
}

func TestHTTPErrorTruncatesBody(t *testing.T) {
	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	herr := &HTTPError{Method: "GET", URL: "http://x", StatusCode: 500, Body: long}
	if len(herr.Error()) > 800 {
		t.Fatalf("error message not truncated: %d bytes", len(herr.Error()))
	}
}

func TestParseRetryAfterSeconds(t *testing.T) {
	resp := &http.Response{Header: http.Header{"Retry-After": []string{"7"}}}
	if d := parseRetryAfter(resp); d != 7*time.Second {
		t.Fatalf("parseRetryAfter = %v", d)
	}
}

func TestParseRetryAfterGarbage(t *testing.T) {
	resp := &http.Response{Header: http.Header{"Retry-After": []string{"soon"}}}
	if d := parseRetryAfter(resp); d != 0 {
		t.Fatalf("parseRetryAfter = %v", d)
	}
}

func TestRetryableStatus(t *testing.T) {
	for _, code := range []int{429, 408, 500, 503, 599} {
		if !retryableStatus(code) {
			t.Errorf("%d should be retryable", code)
		}
	}
	for _, code := range []int{200, 400, 401, 403, 404, 409} {
		if retryableStatus(code) {
			t.Errorf("%d should not be retryable", code)
		}
	}
}
