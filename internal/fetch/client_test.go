package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientPageSendsHeaders(t *testing.T) {
	var gotUA, gotLang string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		_, _ = w.Write([]byte("<html>hello</html>"))
	}))
	defer server.Close()

	c := New(Options{UserAgent: "ABEDL/1.0.0"})
	body, err := c.Page(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "<html>hello</html>" {
		t.Fatalf("unexpected body %q", body)
	}
	if gotUA != "ABEDL/1.0.0" {
		t.Fatalf("expected User-Agent ABEDL/1.0.0, got %q", gotUA)
	}
	if gotLang != "en-US,en;q=0.9" {
		t.Fatalf("expected Accept-Language default, got %q", gotLang)
	}
}

func TestClientPageStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	c := New(Options{})
	_, err := c.Page(context.Background(), server.URL)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if se.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", se.Code)
	}
}

func TestClientStreamReportsLength(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "5")
		_, _ = w.Write([]byte("audio"))
	}))
	defer server.Close()

	c := New(Options{})
	body, size, err := c.Stream(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if size != 5 || string(data) != "audio" {
		t.Fatalf("expected 5 bytes of audio, got %d %q", size, data)
	}
}

func TestConsistentTransportDoesNotMutateOriginalRequest(t *testing.T) {
	transport := &consistentTransport{
		base: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get("User-Agent") != "TestAgent/1.0" {
				t.Errorf("expected User-Agent on outgoing request, got %q", req.Header.Get("User-Agent"))
			}
			return &http.Response{StatusCode: 200, Body: http.NoBody}, nil
		}),
		userAgent: "TestAgent/1.0",
	}

	req, _ := http.NewRequest(http.MethodGet, "https://example.com", nil)
	req.Header.Set("Accept", "text/html")
	if _, err := transport.RoundTrip(req); err != nil {
		t.Fatalf("RoundTrip: %v", err)
	}
	if got := req.Header.Get("User-Agent"); got != "" {
		t.Fatalf("RoundTrip mutated original request User-Agent to %q", got)
	}
	if got := req.Header.Get("Accept"); got != "text/html" {
		t.Fatalf("expected caller Accept header to survive, got %q", got)
	}
}
