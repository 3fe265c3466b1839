// These tests exercise the HTTP client and the Remote source:
//   - default configuration and TLS settings
//   - a single attempt per fetch, whatever the status
//   - non-2xx statuses surfaced as *StatusError by Remote
//   - cancellation

package httpds

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// TestNewClient_Defaults verifies defaults and TLS behavior when no custom
// Transport is supplied.
func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()

	c := NewClient(Config{InsecureSkipVerify: true})

	if c.httpClient.Timeout != DefaultTimeout {
		t.Fatalf("timeout = %v, want %v", c.httpClient.Timeout, DefaultTimeout)
	}

	transport, ok := c.httpClient.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", c.httpClient.Transport)
	}
	if transport.TLSClientConfig == nil || !transport.TLSClientConfig.InsecureSkipVerify {
		t.Fatalf("expected InsecureSkipVerify=true when configured")
	}
}

// TestRemote_Open_Success verifies that the body is streamed back and the
// configured header is sent.
func TestRemote_Open_Success(t *testing.T) {
	t.Parallel()

	const body = "Site_Number,Voltage_Result\n1,3.3\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Token") != "abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, body)
	}))
	defer srv.Close()

	c := NewClient(Config{Header: http.Header{"X-Token": []string{"abc"}}})
	src := NewRemote(c, srv.URL+"/wafer.csv")

	if src.Name() != srv.URL+"/wafer.csv" {
		t.Fatalf("Name() = %q", src.Name())
	}
	rc, err := src.Open(context.Background())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != body {
		t.Fatalf("body = %q, want %q", got, body)
	}
}

// TestRemote_Open_StatusNotRetried verifies that 404 and 5xx become
// *StatusError after exactly one request.
func TestRemote_Open_StatusNotRetried(t *testing.T) {
	t.Parallel()

	for _, code := range []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusServiceUnavailable} {
		t.Run(http.StatusText(code), func(t *testing.T) {
			t.Parallel()

			var hits int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&hits, 1)
				w.WriteHeader(code)
			}))
			defer srv.Close()

			rc, err := NewRemote(NewClient(Config{}), srv.URL).Open(context.Background())
			if rc != nil {
				rc.Close()
				t.Fatalf("expected nil ReadCloser on error")
			}
			var se *StatusError
			if !errors.As(err, &se) || se.Code != code {
				t.Fatalf("err = %v, want *StatusError %d", err, code)
			}
			if got := atomic.LoadInt32(&hits); got != 1 {
				t.Fatalf("hits = %d, want 1", got)
			}
		})
	}
}

func TestGet_EmptyURL(t *testing.T) {
	t.Parallel()

	if _, err := NewClient(Config{}).Get(context.Background(), ""); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

// TestGet_Canceled verifies that a canceled context fails the fetch without
// reaching the server.
func TestGet_Canceled(t *testing.T) {
	t.Parallel()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(Config{Timeout: time.Second}).Get(ctx, srv.URL)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if got := atomic.LoadInt32(&hits); got != 0 {
		t.Fatalf("hits = %d, want 0", got)
	}
}
