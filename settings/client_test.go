package settings

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/flow-hydraulics/settings-client/errors"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus/hooks/test"
)

type recordedRequest struct {
	method string
	header http.Header
	body   string
}

type response struct {
	status int
	body   string
	delay  time.Duration
}

// settingsServer fakes the settings collection endpoint.
type settingsServer struct {
	mu       sync.Mutex
	get      response
	post     response
	requests []recordedRequest
}

func (s *settingsServer) handle(res func(*settingsServer) response) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		s.mu.Lock()
		s.requests = append(s.requests, recordedRequest{method: r.Method, header: r.Header.Clone(), body: string(body)})
		out := res(s)
		s.mu.Unlock()

		if out.delay > 0 {
			time.Sleep(out.delay)
		}

		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(out.status)
		rw.Write([]byte(out.body)) // nolint
	}
}

func (s *settingsServer) lastRequest(t *testing.T) recordedRequest {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		t.Fatal("expected the server to have received a request")
	}
	return s.requests[len(s.requests)-1]
}

// newSettingsServer starts a fake server and returns a client pointed at it.
func newSettingsServer(t *testing.T, opts ...ClientOption) (*settingsServer, *Client, *httptest.Server) {
	t.Helper()

	s := &settingsServer{
		get:  response{status: http.StatusOK, body: `{}`},
		post: response{status: http.StatusOK, body: `{}`},
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Handle("/settings/", s.handle(func(s *settingsServer) response { return s.get })).Methods(http.MethodGet)
	api.Handle("/settings/", s.handle(func(s *settingsServer) response { return s.post })).Methods(http.MethodPost)

	svr := httptest.NewServer(r)
	t.Cleanup(svr.Close)

	logger, _ := test.NewNullLogger()
	opts = append([]ClientOption{WithHTTPClient(svr.Client()), WithClientLogger(logger)}, opts...)

	return s, NewClient(svr.URL+"/api/v1", opts...), svr
}

func decode(t *testing.T, bs []byte) interface{} {
	t.Helper()
	var v interface{}
	if err := json.Unmarshal(bs, &v); err != nil {
		t.Fatalf("error while decoding %q: %s", bs, err)
	}
	return v
}

func asRequestError(t *testing.T, err error) *errors.RequestError {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	reqErr, ok := err.(*errors.RequestError)
	if !ok {
		t.Fatalf("expected *errors.RequestError, got %T: %s", err, err)
	}
	return reqErr
}

func TestGetAllSettings(t *testing.T) {
	cases := []struct {
		name     string
		payload  string
		expected string
	}{
		{"object", `{"theme":"dark"}`, `{"theme":"dark"}`},
		{"list", `[{"name":"ui-pl","value":"LLMOS Dashboard"},{"name":"signup-enabled","value":"true"}]`, `[{"name":"ui-pl","value":"LLMOS Dashboard"},{"name":"signup-enabled","value":"true"}]`},
		{"whitespace", "{\n  \"b\": [1, 2, 3],\n  \"a\": null\n}", `{"b":[1,2,3],"a":null}`},
		{"scalar", `"just a string"`, `"just a string"`},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			s, client, _ := newSettingsServer(t)
			s.get = response{status: http.StatusOK, body: c.payload}

			res, err := client.GetAllSettings(context.Background(), "abc")
			if err != nil {
				t.Fatal(err)
			}

			if string(res) != c.expected {
				t.Fatalf("expected %s, got %s", c.expected, res)
			}

			if !cmp.Equal(decode(t, res), decode(t, []byte(c.payload))) {
				t.Fatalf("\n\n%s\n", cmp.Diff(decode(t, []byte(c.payload)), decode(t, res)))
			}
		})
	}
}

func TestRequestHeaders(t *testing.T) {
	s, client, _ := newSettingsServer(t)

	if _, err := client.GetAllSettings(context.Background(), "abc"); err != nil {
		t.Fatal(err)
	}

	req := s.lastRequest(t)

	if req.method != http.MethodGet {
		t.Errorf("expected method GET, got %s", req.method)
	}
	if got := req.header.Get("Authorization"); got != "Bearer abc" {
		t.Errorf(`expected Authorization "Bearer abc", got %q`, got)
	}
	if got := req.header.Get("Content-Type"); got != "application/json" {
		t.Errorf(`expected Content-Type "application/json", got %q`, got)
	}
	if _, err := uuid.Parse(req.header.Get(RequestIDHeader)); err != nil {
		t.Errorf("expected a uuid request id, got %q", req.header.Get(RequestIDHeader))
	}
}

func TestGetAllSettingsErrors(t *testing.T) {
	t.Run("server error body is the error detail", func(t *testing.T) {
		s, client, _ := newSettingsServer(t)
		s.get = response{status: http.StatusUnauthorized, body: `{"error":"unauthorized"}`}

		res, err := client.GetAllSettings(context.Background(), "abc")
		reqErr := asRequestError(t, err)

		if res != nil {
			t.Errorf("expected no result, got %s", res)
		}
		if reqErr.Kind != errors.ServerError || reqErr.StatusCode != http.StatusUnauthorized {
			t.Errorf("expected server error with status 401, got %s (%d)", reqErr.Kind, reqErr.StatusCode)
		}

		expected := map[string]interface{}{"error": "unauthorized"}
		if !cmp.Equal(reqErr.Detail, interface{}(expected)) {
			t.Errorf("\n\n%s\n", cmp.Diff(interface{}(expected), reqErr.Detail))
		}
	})

	t.Run("invalid success body", func(t *testing.T) {
		s, client, _ := newSettingsServer(t)
		s.get = response{status: http.StatusOK, body: `<html>`}

		_, err := client.GetAllSettings(context.Background(), "abc")
		if reqErr := asRequestError(t, err); reqErr.Kind != errors.ParseError {
			t.Errorf("expected parse error, got %s", reqErr.Kind)
		}
	})

	t.Run("invalid error body", func(t *testing.T) {
		s, client, _ := newSettingsServer(t)
		s.get = response{status: http.StatusBadGateway, body: `bad gateway`}

		_, err := client.GetAllSettings(context.Background(), "abc")
		reqErr := asRequestError(t, err)
		if reqErr.Kind != errors.ParseError || reqErr.StatusCode != http.StatusBadGateway {
			t.Errorf("expected parse error with status 502, got %s (%d)", reqErr.Kind, reqErr.StatusCode)
		}
	})

	t.Run("unreachable server", func(t *testing.T) {
		_, client, svr := newSettingsServer(t)
		svr.Close()

		_, err := client.GetAllSettings(context.Background(), "abc")
		if reqErr := asRequestError(t, err); reqErr.Kind != errors.Network {
			t.Errorf("expected network error, got %s", reqErr.Kind)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		s, client, _ := newSettingsServer(t, WithTimeout(20*time.Millisecond))
		s.get = response{status: http.StatusOK, body: `{}`, delay: 200 * time.Millisecond}

		_, err := client.GetAllSettings(context.Background(), "abc")
		if reqErr := asRequestError(t, err); reqErr.Kind != errors.Network {
			t.Errorf("expected network error, got %s", reqErr.Kind)
		}
	})

	t.Run("errors are logged", func(t *testing.T) {
		s, _, svr := newSettingsServer(t)
		s.get = response{status: http.StatusInternalServerError, body: `{}`}

		logger, hook := test.NewNullLogger()
		client := NewClient(svr.URL+"/api/v1", WithHTTPClient(svr.Client()), WithClientLogger(logger))

		if _, err := client.GetAllSettings(context.Background(), "abc"); err == nil {
			t.Fatal("expected an error")
		}

		if len(hook.Entries) != 1 {
			t.Fatalf("expected one log entry, got %d", len(hook.Entries))
		}
		if hook.LastEntry().Message != "Settings request failed" {
			t.Fatalf("unexpected log message %q", hook.LastEntry().Message)
		}
	})
}

func TestUpdateSettingValue(t *testing.T) {
	t.Run("request body", func(t *testing.T) {
		cases := []struct{ name, value, expected string }{
			{"theme", "light", `{"name":"theme","value":"light"}`},
			{"webhook-url", "", `{"name":"webhook-url","value":""}`},
			{"ui-pl", `quote " and <tag>`, `{"name":"ui-pl","value":"quote \" and <tag>"}`},
		}

		for _, c := range cases {
			s, client, _ := newSettingsServer(t)

			if _, err := client.UpdateSettingValue(context.Background(), "abc", c.name, c.value); err != nil {
				t.Fatal(err)
			}

			req := s.lastRequest(t)
			if req.method != http.MethodPost {
				t.Errorf("expected method POST, got %s", req.method)
			}
			if req.body != c.expected {
				t.Errorf("expected body %s, got %s", c.expected, req.body)
			}
			if got := req.header.Get("Authorization"); got != "Bearer abc" {
				t.Errorf(`expected Authorization "Bearer abc", got %q`, got)
			}

			sent := decode(t, []byte(req.body)).(map[string]interface{})
			if sent["name"] != c.name || sent["value"] != c.value {
				t.Errorf("expected name %q and value %q, got %v", c.name, c.value, sent)
			}
		}
	})

	t.Run("returns response", func(t *testing.T) {
		s, client, _ := newSettingsServer(t)
		s.post = response{status: http.StatusOK, body: `[{"name":"theme","value":"light"}]`}

		res, err := client.UpdateSettingValue(context.Background(), "abc", "theme", "light")
		if err != nil {
			t.Fatal(err)
		}

		if string(res) != `[{"name":"theme","value":"light"}]` {
			t.Fatalf("unexpected response %s", res)
		}
	})

	t.Run("server error is always an error", func(t *testing.T) {
		s, client, _ := newSettingsServer(t)
		s.post = response{status: http.StatusInternalServerError, body: `{"detail":"invalid"}`}

		res, err := client.UpdateSettingValue(context.Background(), "abc", "theme", "light")
		reqErr := asRequestError(t, err)

		if res != nil {
			t.Errorf("expected no result, got %s", res)
		}
		if reqErr.Kind != errors.ServerError || reqErr.StatusCode != http.StatusInternalServerError {
			t.Errorf("expected server error with status 500, got %s (%d)", reqErr.Kind, reqErr.StatusCode)
		}

		expected := map[string]interface{}{"detail": "invalid"}
		if !cmp.Equal(reqErr.Detail, interface{}(expected)) {
			t.Errorf("\n\n%s\n", cmp.Diff(interface{}(expected), reqErr.Detail))
		}
	})
}

type countingLimiter struct {
	mu    sync.Mutex
	count int
}

func (l *countingLimiter) Take() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.count++
	return time.Now()
}

func TestRateLimiter(t *testing.T) {
	limiter := &countingLimiter{}
	_, client, _ := newSettingsServer(t, WithRateLimiter(limiter))

	if _, err := client.GetAllSettings(context.Background(), "abc"); err != nil {
		t.Fatal(err)
	}
	if _, err := client.UpdateSettingValue(context.Background(), "abc", "theme", "light"); err != nil {
		t.Fatal(err)
	}

	if limiter.count != 2 {
		t.Fatalf("expected the limiter to be taken twice, got %d", limiter.count)
	}
}
