package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/vodkit/vodkit/models"
)

func TestSession_CarriesHeaders(t *testing.T) {
	var gotUA, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte("{}"))
	}))
	defer server.Close()

	s := New(&http.Client{}, server.URL, map[string]string{"User-Agent": "test-agent"})
	if s.HasAuthToken() {
		t.Error("fresh session must carry no auth header")
	}
	s.SetAuthToken("tok123")

	if _, err := s.Get(context.Background(), "some/path", nil); err != nil {
		t.Fatalf("get: %v", err)
	}
	if gotUA != "test-agent" {
		t.Errorf("expected persistent user agent, got %q", gotUA)
	}
	if gotAuth != "Bearer tok123" {
		t.Errorf("expected bearer token header, got %q", gotAuth)
	}
}

func TestSession_AbsoluteURLPassesThrough(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte("{}"))
	}))
	defer server.Close()

	s := New(&http.Client{}, "http://unreachable.invalid", nil)
	if _, err := s.Get(context.Background(), server.URL+"/signin", url.Values{"lang": {"eng"}}); err != nil {
		t.Fatalf("get: %v", err)
	}
	if gotPath != "/signin" {
		t.Errorf("expected absolute URL to bypass the base, got path %q", gotPath)
	}
}

func TestSession_NoRedirectFollow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/final" {
			t.Error("redirect must not be followed")
		}
		http.Redirect(w, r, "/final", http.StatusFound)
	}))
	defer server.Close()

	s := New(&http.Client{}, server.URL, nil)
	resp, err := s.GetNoRedirect(context.Background(), "stream", nil)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Errorf("expected 302, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/final" {
		t.Errorf("expected location header, got %q", loc)
	}
}

func TestSession_TransportFailureIsNetworkError(t *testing.T) {
	s := New(&http.Client{}, "http://127.0.0.1:1", nil)
	_, err := s.Get(context.Background(), "path", nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	var ne *models.NetworkError
	if !errors.As(err, &ne) {
		t.Errorf("expected a NetworkError, got %T: %v", err, err)
	}
}
