package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestGet(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpegdata"))
	}))
	defer srv.Close()

	c := NewClient(nil, 0, "test-agent")
	asset, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(asset.Data) != "jpegdata" {
		t.Errorf("Expected body jpegdata, got %q", asset.Data)
	}
	if asset.ContentType != "image/jpeg" {
		t.Errorf("Expected image/jpeg, got %s", asset.ContentType)
	}
	if gotUA != "test-agent" {
		t.Errorf("Expected User-Agent test-agent, got %s", gotUA)
	}
}

func TestGetNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := NewClient(nil, 0, "")
	if _, err := c.Get(context.Background(), srv.URL); err == nil {
		t.Error("Expected error for 404")
	}
}

func TestDoRetriesOnTooManyRequests(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := NewClient(nil, 0, "")
	asset, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if string(asset.Data) != "ok" {
		t.Errorf("Expected ok, got %q", asset.Data)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Errorf("Expected 2 calls, got %d", n)
	}
}

func TestDoHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	c := NewClient(nil, 0, "")
	if _, err := c.Get(ctx, srv.URL); err == nil {
		t.Error("Expected error once the context expired")
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", 0},
		{"3", 3 * time.Second},
		{"0", 0},
		{"soon", 0},
	}
	for _, tt := range tests {
		resp := &http.Response{Header: http.Header{}}
		if tt.header != "" {
			resp.Header.Set("Retry-After", tt.header)
		}
		if got := parseRetryAfter(resp); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}
