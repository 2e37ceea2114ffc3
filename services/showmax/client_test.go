package showmax

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/vodkit/vodkit/models"
	"github.com/vodkit/vodkit/services/cache"
	"github.com/vodkit/vodkit/services/common"
	"github.com/vodkit/vodkit/services/userdata"
)

func newTestClient(t *testing.T, serverURL string, cacheEnabled bool) (*Client, *userdata.Store) {
	t.Helper()
	data, err := userdata.NewAt(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = data.Close() })
	ch, err := cache.NewWith(data.DB(), cacheEnabled)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	return NewWith(&http.Client{}, serverURL, serverURL+"/signin", data, ch), data
}

// catalogueBackend fakes the paginated listing endpoint over n items and
// counts requests.
func catalogueBackend(n int) (http.Handler, *int) {
	requests := 0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/catalogue/assets" {
			http.NotFound(w, r)
			return
		}
		requests++
		start, _ := strconv.Atoi(r.URL.Query().Get("start"))
		num, _ := strconv.Atoi(r.URL.Query().Get("num"))

		end := start + num
		if end > n {
			end = n
		}
		items := make([]Asset, 0, end-start)
		for i := start; i < end; i++ {
			items = append(items, Asset{
				ID:    fmt.Sprintf("show-%d", i),
				Title: fmt.Sprintf("Show %d", i),
				Type:  "tv_series",
			})
		}
		count := len(items)
		remaining := n - end

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items":     items,
			"count":     count,
			"remaining": remaining,
		})
	})
	return handler, &requests
}

func TestCatalogue_PaginationTermination(t *testing.T) {
	cases := []struct {
		n        int
		requests int
	}{
		{0, 1},
		{1, 1},
		{59, 1},
		{60, 1},
		{61, 2},
		{120, 2},
	}

	for _, tc := range cases {
		handler, requests := catalogueBackend(tc.n)
		server := httptest.NewServer(handler)

		s, _ := newTestClient(t, server.URL, false)
		items, err := s.Shows(context.Background())
		if err != nil {
			t.Fatalf("n=%d: shows: %v", tc.n, err)
		}
		if len(items) != tc.n {
			t.Errorf("n=%d: expected %d items, got %d", tc.n, tc.n, len(items))
		}
		if *requests != tc.requests {
			t.Errorf("n=%d: expected %d requests, got %d", tc.n, tc.requests, *requests)
		}
		server.Close()
	}
}

func TestCatalogue_MalformedCountersAreAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No count/remaining fields at all
		_, _ = w.Write([]byte(`{"items": []}`))
	}))
	defer server.Close()

	s, _ := newTestClient(t, server.URL, false)
	_, err := s.Shows(context.Background())
	var die *models.DataIntegrityError
	if !errors.As(err, &die) {
		t.Fatalf("expected DataIntegrityError, got %v", err)
	}
}

func TestCatalogue_CacheBypass(t *testing.T) {
	handler, requests := catalogueBackend(61)
	server := httptest.NewServer(handler)
	defer server.Close()

	s, _ := newTestClient(t, server.URL, false)
	for i := 0; i < 2; i++ {
		if _, err := s.Shows(context.Background()); err != nil {
			t.Fatalf("shows: %v", err)
		}
	}
	if *requests != 4 {
		t.Errorf("disabled cache must issue a full set of requests per call, got %d", *requests)
	}
}

func TestCatalogue_CachedFetchSkipsBackend(t *testing.T) {
	handler, requests := catalogueBackend(5)
	server := httptest.NewServer(handler)
	defer server.Close()

	s, _ := newTestClient(t, server.URL, true)
	for i := 0; i < 2; i++ {
		items, err := s.Shows(context.Background())
		if err != nil {
			t.Fatalf("shows: %v", err)
		}
		if len(items) != 5 {
			t.Errorf("expected 5 items, got %d", len(items))
		}
	}
	if *requests != 1 {
		t.Errorf("expected a single backend request with caching on, got %d", *requests)
	}
}

const signinPage = `<html><body>
<form id="new_signin" method="post">
  <input type="hidden" name="authenticity_token" value="csrf123">
  <input type="email" name="signin[email]">
  <input type="password" name="signin[password]">
</form>
</body></html>`

// authBackend fakes the sign-in page, sign-in POST and the current-user
// endpoint. When issueToken is false the POST sets no cookie.
func authBackend(t *testing.T, issueToken bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/signin" && r.Method == http.MethodGet:
			_, _ = w.Write([]byte(signinPage))
		case r.URL.Path == "/signin" && r.Method == http.MethodPost:
			if err := r.ParseForm(); err != nil {
				t.Errorf("parse form: %v", err)
			}
			if r.PostForm.Get("authenticity_token") != "csrf123" {
				t.Errorf("harvested hidden field missing, got %v", r.PostForm)
			}
			if r.PostForm.Get("signin[email]") == "" || r.PostForm.Get("signin[password]") == "" {
				t.Errorf("credentials missing from form post: %v", r.PostForm)
			}
			if issueToken {
				http.SetCookie(w, &http.Cookie{Name: "showmax_oauth", Value: "tok123"})
			}
			w.WriteHeader(http.StatusFound)
		case r.URL.Path == "/user/current":
			if r.Header.Get("Authorization") != "Bearer tok123" {
				t.Errorf("token not activated before validation, got %q", r.Header.Get("Authorization"))
			}
			_, _ = w.Write([]byte(`{"user_id": 42}`))
		default:
			http.NotFound(w, r)
		}
	})
}

func TestLogin_PersistsIdentity(t *testing.T) {
	server := httptest.NewServer(authBackend(t, true))
	defer server.Close()

	s, data := newTestClient(t, server.URL, false)
	if err := s.Login(context.Background(), "user@example.com", "hunter2"); err != nil {
		t.Fatalf("login: %v", err)
	}

	if !s.LoggedIn {
		t.Error("expected logged-in state after login")
	}
	if got := data.Get(ServiceName, userdata.KeyAccessToken, ""); got != "tok123" {
		t.Errorf("expected persisted token, got %q", got)
	}
	if got := data.Get(ServiceName, userdata.KeyUserID, ""); got != "42" {
		t.Errorf("expected persisted user id, got %q", got)
	}
	if got := data.Get(ServiceName, userdata.KeyDeviceID, ""); got != common.DeviceID("user@example.com") {
		t.Errorf("expected derived device id, got %q", got)
	}
}

func TestLogin_FailureCleansState(t *testing.T) {
	server := httptest.NewServer(authBackend(t, false))
	defer server.Close()

	s, data := newTestClient(t, server.URL, false)
	// Stale identity from an earlier login must not survive a rejection
	_ = data.Set(ServiceName, userdata.KeyAccessToken, "stale")
	_ = data.Set(ServiceName, userdata.KeyDeviceID, "stale")
	_ = data.Set(ServiceName, userdata.KeyUserID, "stale")

	err := s.Login(context.Background(), "user@example.com", "wrong")
	var ae *models.AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError, got %v", err)
	}

	if s.LoggedIn {
		t.Error("expected logged-out state after failed login")
	}
	for _, key := range []string{userdata.KeyAccessToken, userdata.KeyDeviceID, userdata.KeyUserID} {
		if got := data.Get(ServiceName, key, ""); got != "" {
			t.Errorf("expected %s cleared after failed login, got %q", key, got)
		}
	}
}

func TestLogout_ClearsEverything(t *testing.T) {
	server := httptest.NewServer(authBackend(t, true))
	defer server.Close()

	s, data := newTestClient(t, server.URL, false)
	if err := s.Login(context.Background(), "user@example.com", "hunter2"); err != nil {
		t.Fatalf("login: %v", err)
	}

	s.Logout()

	if s.LoggedIn {
		t.Error("expected logged-out state after logout")
	}
	for _, key := range []string{userdata.KeyAccessToken, userdata.KeyDeviceID, userdata.KeyUserID, userdata.KeyUsername} {
		if got := data.Get(ServiceName, key, ""); got != "" {
			t.Errorf("expected %s cleared after logout, got %q", key, got)
		}
	}
	if s.Session().HasAuthToken() {
		t.Error("fresh session after logout must carry no auth header")
	}
}

func TestPlay_RoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/playback/play/vid1":
			_, _ = w.Write([]byte(`{"url": "http://cdn/stream.mpd", "packaging_task_id": "task1", "session_id": "sess1"}`))
		case "/playback/verify":
			if err := r.ParseForm(); err != nil {
				t.Errorf("parse form: %v", err)
			}
			if r.PostForm.Get("video_id") != "vid1" ||
				r.PostForm.Get("packaging_task_id") != "task1" ||
				r.PostForm.Get("session_id") != "sess1" ||
				r.PostForm.Get("user_id") != "42" ||
				r.PostForm.Get("hw_code") != "DEV1" {
				t.Errorf("unexpected verify payload: %v", r.PostForm)
			}
			_, _ = w.Write([]byte(`{"license_request": "X"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	s, data := newTestClient(t, server.URL, false)
	_ = data.Set(ServiceName, userdata.KeyUserID, "42")
	_ = data.Set(ServiceName, userdata.KeyDeviceID, "DEV1")

	pb, err := s.Play(context.Background(), "vid1")
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if pb.StreamURL != "http://cdn/stream.mpd" {
		t.Errorf("unexpected stream url %q", pb.StreamURL)
	}
	want := server.URL + "/drm/widevine_modular?license_request=X"
	if pb.LicenseURL != want {
		t.Errorf("expected license url %q, got %q", want, pb.LicenseURL)
	}
}

func TestShow_InheritsSeriesArt(t *testing.T) {
	detail := map[string]any{
		"id":    "show1",
		"title": "A Show",
		"images": []map[string]any{
			{"type": "background", "link": "http://img/series-bg"},
		},
		"seasons": []map[string]any{
			{
				"number": 1,
				"episodes": []map[string]any{
					{
						"id":     "ep1",
						"type":   "episode",
						"number": 3,
						"videos": []map[string]any{
							{"usage": "main", "id": "vid-ep1", "duration": 1534.7},
						},
					},
				},
			},
		},
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/catalogue/tv_series/show1" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(detail)
	}))
	defer server.Close()

	s, _ := newTestClient(t, server.URL, false)
	got, err := s.Show(context.Background(), "show1")
	if err != nil {
		t.Fatalf("show: %v", err)
	}

	if len(got.Seasons) != 1 || len(got.Seasons[0].Episodes) != 1 {
		t.Fatalf("unexpected structure: %+v", got)
	}
	ep := got.Seasons[0].Episodes[0]
	if ep.Art.Fanart != "http://img/series-bg/x720" {
		t.Errorf("episode must inherit series fanart, got %q", ep.Art.Fanart)
	}
	if ep.VideoID != "vid-ep1" {
		t.Errorf("expected main video id, got %q", ep.VideoID)
	}
	if ep.Duration != 1534 {
		t.Errorf("expected truncated duration, got %d", ep.Duration)
	}
	if ep.Title != "Episode 3" {
		t.Errorf("expected numbered fallback title, got %q", ep.Title)
	}
}

func TestShow_MissingMainVideoIsAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"id": "show1",
			"seasons": [{"number": 1, "episodes": [{"id": "ep1", "type": "episode"}]}]
		}`))
	}))
	defer server.Close()

	s, _ := newTestClient(t, server.URL, false)
	_, err := s.Show(context.Background(), "show1")
	var die *models.DataIntegrityError
	if !errors.As(err, &die) {
		t.Fatalf("expected DataIntegrityError for missing main video, got %v", err)
	}
}
