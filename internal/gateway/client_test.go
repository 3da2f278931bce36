package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"admin-console/internal/envelope"
	"admin-console/internal/event"
	"admin-console/internal/session"
	"admin-console/pkg/apierror"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

type fixture struct {
	client *Client
	store  *session.Store
	events <-chan event.Event
}

func newFixture(t *testing.T, baseURL string, mode session.Mode, opts Options) fixture {
	t.Helper()

	store, err := session.NewStore(mode)
	require.NoError(t, err)

	bus := event.NewBus(nil)
	events, unsubscribe := bus.Subscribe()
	t.Cleanup(unsubscribe)

	opts.BaseURL = baseURL
	client, err := New(opts, store, bus)
	require.NoError(t, err)

	return fixture{client: client, store: store, events: events}
}

func writeEnvelope(w http.ResponseWriter, code int, msg string, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"code": code, "msg": msg, "data": data})
}

func TestCallSuccessAttachesBearerToken(t *testing.T) {
	t.Parallel()

	type captured struct {
		header http.Header
		url    *url.URL
	}
	requests := make(chan captured, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- captured{header: r.Header.Clone(), url: r.URL}
		writeEnvelope(w, 0, "ok", map[string]any{"id": 1, "email": "admin@example.com", "role": 1})
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL+"/api", session.ModeBearer, Options{})
	require.NoError(t, f.store.Set(session.Credential{Token: "tok-123", Scheme: "Bearer"}))

	type me struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	}
	got, err := Do[me](context.Background(), f.client, http.MethodGet, "/users", nil, url.Values{"page": {"2"}, "page_size": {"10"}})
	require.NoError(t, err)

	assert.Equal(t, "admin@example.com", got.Email)

	req := <-requests
	seen, seenURL := req.header, req.url
	assert.Equal(t, "Bearer tok-123", seen.Get("Authorization"))
	assert.NotEmpty(t, seen.Get(HeaderRequestID))
	assert.Equal(t, defaultUserAgent, seen.Get("User-Agent"))
	assert.Equal(t, "/api/users", seenURL.Path)
	assert.Equal(t, "2", seenURL.Query().Get("page"))
	assert.Equal(t, "10", seenURL.Query().Get("page_size"))
	assert.Len(t, f.events, 0)
}

func TestCallWithoutTokenSendsNoAuthorization(t *testing.T) {
	t.Parallel()

	var auth atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth.Store(r.Header.Get("Authorization"))
		writeEnvelope(w, 0, "ok", nil)
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL, session.ModeBearer, Options{})
	require.NoError(t, Exec(context.Background(), f.client, http.MethodPost, "/auth/login", map[string]string{"email": "a@b.c"}))
	assert.Equal(t, "", auth.Load())
}

func TestCookieModeCarriesServerCookie(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/login":
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/", HttpOnly: true})
			writeEnvelope(w, 0, "ok", nil)
		default:
			ck, err := r.Cookie("session")
			if err != nil || ck.Value != "abc" {
				writeEnvelope(w, -2, "not logged in", nil)
				return
			}
			assert.Empty(t, r.Header.Get("Authorization"))
			writeEnvelope(w, 0, "ok", map[string]int{"id": 1})
		}
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL+"/api", session.ModeCookie, Options{})
	ctx := context.Background()

	require.NoError(t, Exec(ctx, f.client, http.MethodPost, "/auth/login", map[string]string{}))
	cookies := f.client.SessionCookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)

	_, err := f.client.Call(ctx, http.MethodGet, "/auth/me", nil, nil)
	require.NoError(t, err)
}

func TestCookieModeSeedsJarFromPersistedSession(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ck, err := r.Cookie("session"); err == nil && ck.Value == "resumed" {
			writeEnvelope(w, 0, "ok", nil)
			return
		}
		writeEnvelope(w, -2, "not logged in", nil)
	}))
	defer srv.Close()

	store, err := session.NewStore(session.ModeCookie)
	require.NoError(t, err)
	require.NoError(t, store.Set(session.Credential{Cookies: []session.Cookie{{Name: "session", Value: "resumed"}}}))

	client, err := New(Options{BaseURL: srv.URL}, store, event.NewBus(nil))
	require.NoError(t, err)

	_, err = client.Call(context.Background(), http.MethodGet, "/auth/me", nil, nil)
	require.NoError(t, err)
}

func TestUnauthorizedClearsSessionAndPublishesOnce(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"in-body sentinel", func(w http.ResponseWriter, _ *http.Request) {
			writeEnvelope(w, -2, "please log in", nil)
		}},
		{"bare 401", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}},
		{"401 with html", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("<html>login required</html>"))
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			f := newFixture(t, srv.URL, session.ModeBearer, Options{LoginView: "login"})
			require.NoError(t, f.store.Set(session.Credential{Token: "stale"}))

			expiredBefore := testutil.ToFloat64(sessionExpiredTotal)
			unauthBefore := testutil.ToFloat64(requestsTotal.WithLabelValues(http.MethodGet, outcomeUnauthorized))

			_, err := f.client.Call(context.Background(), http.MethodGet, "/users", nil, nil)
			require.ErrorIs(t, err, apierror.ErrUnauthorized)

			apiErr, ok := apierror.As(err)
			require.True(t, ok)
			assert.NotEmpty(t, apiErr.RequestID)

			assert.False(t, f.store.IsKnown())
			require.Len(t, f.events, 1)
			ev := <-f.events
			assert.Equal(t, event.TypeSessionExpired, ev.Type)
			payload, ok := ev.Payload.(event.SessionExpired)
			require.True(t, ok)
			assert.Equal(t, "login", payload.Redirect)
			assert.Equal(t, "/users", payload.Path)
			assert.Equal(t, apiErr.RequestID, payload.RequestID)

			assert.Equal(t, expiredBefore+1, testutil.ToFloat64(sessionExpiredTotal))
			assert.Equal(t, unauthBefore+1, testutil.ToFloat64(requestsTotal.WithLabelValues(http.MethodGet, outcomeUnauthorized)))
		})
	}
}

type failingBody struct{}

func (failingBody) Read([]byte) (int, error) { return 0, errors.New("connection reset mid-body") }
func (failingBody) Close() error { return nil }

func TestUnreadable401StillExpiresSession(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "http://backend.invalid", session.ModeBearer, Options{
		Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusUnauthorized,
				Header:     http.Header{},
				Body:       failingBody{},
				Request:    r,
			}, nil
		}),
	})
	require.NoError(t, f.store.Set(session.Credential{Token: "revoked"}))

	_, err := f.client.Call(context.Background(), http.MethodGet, "/users", nil, nil)
	require.ErrorIs(t, err, apierror.ErrUnauthorized)

	assert.False(t, f.store.Get().Present)
	require.Len(t, f.events, 1)
	assert.Equal(t, event.TypeSessionExpired, (<-f.events).Type)
}

func TestUnauthorizedResetsCookieJar(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/login" {
			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
			writeEnvelope(w, 0, "ok", nil)
			return
		}
		writeEnvelope(w, -2, "revoked", nil)
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL, session.ModeCookie, Options{})
	ctx := context.Background()

	require.NoError(t, Exec(ctx, f.client, http.MethodPost, "/auth/login", nil))
	require.NoError(t, f.store.Set(session.Credential{Cookies: f.client.SessionCookies()}))
	require.NotEmpty(t, f.client.SessionCookies())

	_, err := f.client.Call(ctx, http.MethodGet, "/auth/me", nil, nil)
	require.ErrorIs(t, err, apierror.ErrUnauthorized)
	assert.Empty(t, f.client.SessionCookies())
	assert.False(t, f.store.IsKnown())
}

func TestTransportFailureLeavesSessionUntouched(t *testing.T) {
	t.Parallel()

	drop := errors.New("connection reset by peer")
	f := newFixture(t, "http://backend.invalid", session.ModeBearer, Options{
		Transport: roundTripFunc(func(*http.Request) (*http.Response, error) { return nil, drop }),
	})
	require.NoError(t, f.store.Set(session.Credential{Token: "still-valid"}))

	_, err := f.client.Call(context.Background(), http.MethodGet, "/users", nil, nil)
	require.ErrorIs(t, err, apierror.ErrNetwork)
	require.ErrorIs(t, err, drop)

	assert.True(t, f.store.IsKnown())
	assert.Len(t, f.events, 0)
}

func TestTimeoutIsNetwork(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := newFixture(t, srv.URL, session.ModeBearer, Options{Timeout: 50 * time.Millisecond})
	require.NoError(t, f.store.Set(session.Credential{Token: "t"}))

	_, err := f.client.Call(context.Background(), http.MethodGet, "/slow", nil, nil)
	require.ErrorIs(t, err, apierror.ErrNetwork)
	assert.True(t, f.store.IsKnown())
}

func TestBusinessErrorIsReturnedUnchanged(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, apierror.CodeBusinessRule, "university already exists", nil)
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL, session.ModeBearer, Options{})
	require.NoError(t, f.store.Set(session.Credential{Token: "t"}))

	_, err := f.client.Call(context.Background(), http.MethodPost, "/admin/universities", map[string]string{"name": "MIT"}, nil)
	require.ErrorIs(t, err, apierror.ErrBusiness)

	apiErr, _ := apierror.As(err)
	assert.Equal(t, apierror.CodeBusinessRule, apiErr.Code)
	assert.Equal(t, "university already exists", apiErr.Message)
	assert.True(t, f.store.IsKnown())
	assert.Len(t, f.events, 0)
}

func TestIdenticalCallsAreIndependentAttempts(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		writeEnvelope(w, 0, "ok", []int{1, 2})
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL, session.ModeCookie, Options{})
	for range 2 {
		_, err := f.client.Call(context.Background(), http.MethodGet, "/universities/all", nil, nil)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), hits.Load())
}

func TestConfiguredEnvelopeCodes(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"code":200,"message":"ok","data":{"total":3}}`))
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL, session.ModeCookie, Options{Codes: envelope.Codes{Success: 200, Unauthorized: 401}})
	got, err := Do[struct {
		Total int `json:"total"`
	}](context.Background(), f.client, http.MethodGet, "/users", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Total)
}

func TestNewValidatesInput(t *testing.T) {
	t.Parallel()

	store, err := session.NewStore(session.ModeCookie)
	require.NoError(t, err)
	bus := event.NewBus(nil)

	_, err = New(Options{BaseURL: "not a url"}, store, bus)
	require.Error(t, err)

	_, err = New(Options{BaseURL: "http://localhost"}, nil, bus)
	require.Error(t, err)

	_, err = New(Options{BaseURL: "http://localhost"}, store, nil)
	require.Error(t, err)

	_, err = New(Options{BaseURL: "http://localhost", Codes: envelope.Codes{Success: 1, Unauthorized: 1}}, store, bus)
	require.Error(t, err)
}

func TestCallDoesNotLeakGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, 0, "ok", nil)
	}))
	transport := &http.Transport{}

	store, err := session.NewStore(session.ModeCookie)
	require.NoError(t, err)
	client, err := New(Options{BaseURL: srv.URL, Transport: transport}, store, event.NewBus(nil))
	require.NoError(t, err)

	_, err = client.Call(context.Background(), http.MethodGet, "/auth/me", nil, nil)
	require.NoError(t, err)

	transport.CloseIdleConnections()
	srv.Close()
}
