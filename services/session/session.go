package session

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/vodkit/vodkit/models"
)

// Session is a configured HTTP client carrying persistent headers across
// requests. Headers are read-mostly after login; token rotation must be
// serialized relative to in-flight requests. Sessions are recreated, not
// patched, across login/logout.
type Session struct {
	baseURL    string
	headers    map[string]string
	cl         *http.Client
	noRedirect *http.Client
}

func New(cl *http.Client, baseURL string, headers map[string]string) *Session {
	h := make(map[string]string, len(headers))
	for k, v := range headers {
		h[k] = v
	}
	nr := *cl
	nr.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &Session{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		headers:    h,
		cl:         cl,
		noRedirect: &nr,
	}
}

// SetAuthToken installs a bearer token on all subsequent requests
func (s *Session) SetAuthToken(token string) {
	s.headers["Authorization"] = "Bearer " + token
}

// HasAuthToken reports whether an auth header is currently wired
func (s *Session) HasAuthToken() bool {
	_, ok := s.headers["Authorization"]
	return ok
}

// buildURL joins a path with the session base. Absolute URLs pass through,
// so endpoints living on another host (the sign-in host) still work.
func (s *Session) buildURL(path string, q url.Values) string {
	u := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		u = s.baseURL + "/" + strings.TrimPrefix(path, "/")
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (s *Session) newRequest(ctx context.Context, method, path string, q url.Values, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, s.buildURL(path, q), body)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

func (s *Session) do(cl *http.Client, req *http.Request) (*http.Response, error) {
	log.WithField("method", req.Method).WithField("url", req.URL.String()).Debug("service request")
	resp, err := cl.Do(req)
	if err != nil {
		return nil, &models.NetworkError{Op: req.Method + " " + req.URL.Path, Err: err}
	}
	return resp, nil
}

// Get performs a GET and returns the response body
func (s *Session) Get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	req, err := s.newRequest(ctx, http.MethodGet, path, q, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.do(s.cl, req)
	if err != nil {
		return nil, err
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}
	return body, nil
}

// GetJSON performs a GET and decodes the response body into v
func (s *Session) GetJSON(ctx context.Context, path string, q url.Values, v any) error {
	body, err := s.Get(ctx, path, q)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

// GetNoRedirect performs a GET without following redirects. The caller owns
// the response and must close its body.
func (s *Session) GetNoRedirect(ctx context.Context, path string, q url.Values) (*http.Response, error) {
	req, err := s.newRequest(ctx, http.MethodGet, path, q, nil)
	if err != nil {
		return nil, err
	}
	return s.do(s.noRedirect, req)
}

// PostForm performs a form POST without following redirects. The caller
// owns the response and must close its body.
func (s *Session) PostForm(ctx context.Context, path string, q, form url.Values) (*http.Response, error) {
	req, err := s.newRequest(ctx, http.MethodPost, path, q, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(s.noRedirect, req)
}

// PostFormJSON performs a form POST and decodes the response body into v
func (s *Session) PostFormJSON(ctx context.Context, path string, q, form url.Values, v any) error {
	req, err := s.newRequest(ctx, http.MethodPost, path, q, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := s.do(s.cl, req)
	if err != nil {
		return err
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

// PostJSON performs a JSON POST and decodes the response body into v
func (s *Session) PostJSON(ctx context.Context, path string, q url.Values, body, v any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "encode request body")
	}
	req, err := s.newRequest(ctx, http.MethodPost, path, q, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.do(s.cl, req)
	if err != nil {
		return err
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
