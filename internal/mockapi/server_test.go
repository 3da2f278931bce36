package mockapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"admin-console/internal/envelope"
	"admin-console/internal/model"
	"admin-console/pkg/apierror"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin123"
)

func newTestServer(t *testing.T, mutate func(*Options)) (*Server, *httptest.Server) {
	t.Helper()

	opts := Options{
		JWTSecret:        "test-secret",
		AdminEmail:       adminEmail,
		AdminPassword:    adminPassword,
		AuthRateLimitRPM: 1000,
		BcryptCost:       bcrypt.MinCost,
	}
	if mutate != nil {
		mutate(&opts)
	}

	srv, err := New(opts)
	require.NoError(t, err)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return srv, ts
}

type reply struct {
	status int
	header http.Header
	data   json.RawMessage
	err    error
}

func call(t *testing.T, ts *httptest.Server, method, path, token string, body any) reply {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	data, err := envelope.DefaultCodes.Decode(envelope.Transport{Status: resp.StatusCode, Body: raw})
	return reply{status: resp.StatusCode, header: resp.Header, data: data, err: err}
}

func login(t *testing.T, ts *httptest.Server, email, password string) string {
	t.Helper()

	r := call(t, ts, http.MethodPost, "/api/auth/login", "", model.LoginRequest{Email: email, Password: password})
	require.NoError(t, r.err)

	resp, err := envelope.Into[model.LoginResponse](r.data)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func requireCode(t *testing.T, err error, code int) {
	t.Helper()

	apiErr, ok := apierror.As(err)
	require.True(t, ok, "expected *apierror.Error, got %v", err)
	assert.Equal(t, code, apiErr.Code)
}

func TestLoginIssuesTokenAndCookie(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, nil)

	r := call(t, ts, http.MethodPost, "/api/auth/login", "", model.LoginRequest{Email: adminEmail, Password: adminPassword})
	require.NoError(t, r.err)

	resp, err := envelope.Into[model.LoginResponse](r.data)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int64(7200), resp.ExpiresIn)

	cookies := (&http.Response{Header: r.header}).Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SessionCookie, cookies[0].Name)
	assert.Equal(t, resp.Token, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	me := call(t, ts, http.MethodGet, "/api/auth/me", resp.Token, nil)
	require.NoError(t, me.err)
	user, err := envelope.Into[model.CurrentUser](me.data)
	require.NoError(t, err)
	assert.Equal(t, adminEmail, user.Email)
	assert.Equal(t, model.RoleAdmin, user.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, nil)

	r := call(t, ts, http.MethodPost, "/api/auth/login", "", model.LoginRequest{Email: adminEmail, Password: "wrong-password"})
	require.ErrorIs(t, r.err, apierror.ErrBusiness)
	requireCode(t, r.err, apierror.CodeParam)
	assert.Equal(t, http.StatusOK, r.status)

	r = call(t, ts, http.MethodPost, "/api/auth/login", "", model.LoginRequest{Email: adminEmail, Password: "abc"})
	requireCode(t, r.err, apierror.CodeParam)
}

func TestUnauthorizedStyles(t *testing.T) {
	t.Parallel()

	t.Run("in-body code", func(t *testing.T) {
		t.Parallel()
		_, ts := newTestServer(t, nil)

		r := call(t, ts, http.MethodGet, "/api/auth/me", "", nil)
		require.ErrorIs(t, r.err, apierror.ErrUnauthorized)
		assert.Equal(t, http.StatusOK, r.status)
	})

	t.Run("http 401", func(t *testing.T) {
		t.Parallel()
		_, ts := newTestServer(t, func(o *Options) { o.UnauthorizedAs401 = true })

		r := call(t, ts, http.MethodGet, "/api/users", "garbage", nil)
		require.ErrorIs(t, r.err, apierror.ErrUnauthorized)
		assert.Equal(t, http.StatusUnauthorized, r.status)
	})

	t.Run("custom code", func(t *testing.T) {
		t.Parallel()
		_, ts := newTestServer(t, func(o *Options) { o.UnauthorizedCode = 401 })

		r := call(t, ts, http.MethodGet, "/api/users", "", nil)
		requireCode(t, r.err, 401)
	})
}

func TestExpiredTokenIsRejected(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	var elapsed atomic.Int64
	_, ts := newTestServer(t, func(o *Options) {
		o.TokenTTL = time.Minute
		o.Now = func() time.Time { return base.Add(time.Duration(elapsed.Load())) }
	})

	token := login(t, ts, adminEmail, adminPassword)
	require.NoError(t, call(t, ts, http.MethodGet, "/api/auth/me", token, nil).err)

	elapsed.Store(int64(2 * time.Minute))
	require.ErrorIs(t, call(t, ts, http.MethodGet, "/api/auth/me", token, nil).err, apierror.ErrUnauthorized)
}

func TestLogoutRevokesToken(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, nil)

	token := login(t, ts, adminEmail, adminPassword)
	other := login(t, ts, adminEmail, adminPassword)

	r := call(t, ts, http.MethodPost, "/api/auth/logout", token, nil)
	require.NoError(t, r.err)

	require.ErrorIs(t, call(t, ts, http.MethodGet, "/api/auth/me", token, nil).err, apierror.ErrUnauthorized)
	require.NoError(t, call(t, ts, http.MethodGet, "/api/auth/me", other, nil).err)

	// Logging out without a session still succeeds.
	require.NoError(t, call(t, ts, http.MethodPost, "/api/auth/logout", "", nil).err)
}

func TestRevokeSessions(t *testing.T) {
	t.Parallel()
	srv, ts := newTestServer(t, nil)

	token := login(t, ts, adminEmail, adminPassword)
	srv.RevokeSessions()
	require.ErrorIs(t, call(t, ts, http.MethodGet, "/api/auth/me", token, nil).err, apierror.ErrUnauthorized)

	fresh := login(t, ts, adminEmail, adminPassword)
	require.NoError(t, call(t, ts, http.MethodGet, "/api/auth/me", fresh, nil).err)
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	t.Parallel()
	srv, ts := newTestServer(t, nil)

	_, err := srv.SeedUser("viewer@example.com", "viewer123", model.RoleUser)
	require.NoError(t, err)
	token := login(t, ts, "viewer@example.com", "viewer123")

	require.NoError(t, call(t, ts, http.MethodGet, "/api/universities", token, nil).err)

	r := call(t, ts, http.MethodPost, "/api/admin/universities", token, model.UniversityInput{Name: "MIT"})
	requireCode(t, r.err, apierror.CodeForbidden)
}

func TestDisabledUserCannotUseSession(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, nil)

	admin := login(t, ts, adminEmail, adminPassword)
	r := call(t, ts, http.MethodPost, "/api/admin/users", admin, model.UserCreate{
		Email: "temp@example.com", Password: "temp123", Role: model.RoleUser, Status: model.StatusActive,
	})
	require.NoError(t, r.err)
	created, err := envelope.Into[model.User](r.data)
	require.NoError(t, err)

	token := login(t, ts, "temp@example.com", "temp123")

	disabled := model.StatusDisabled
	require.NoError(t, call(t, ts, http.MethodPut, "/api/admin/users/"+itoa(created.ID), admin, model.UserUpdate{Status: &disabled}).err)

	require.ErrorIs(t, call(t, ts, http.MethodGet, "/api/auth/me", token, nil).err, apierror.ErrUnauthorized)
	r = call(t, ts, http.MethodPost, "/api/auth/login", "", model.LoginRequest{Email: "temp@example.com", Password: "temp123"})
	requireCode(t, r.err, apierror.CodeForbidden)
}

func TestUniversityLifecycle(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, nil)
	token := login(t, ts, adminEmail, adminPassword)

	r := call(t, ts, http.MethodPost, "/api/admin/universities", token, model.UniversityInput{Name: "MIT"})
	require.NoError(t, r.err)
	mit, err := envelope.Into[model.University](r.data)
	require.NoError(t, err)
	require.NotNil(t, mit.CreatedBy)

	r = call(t, ts, http.MethodPost, "/api/admin/universities", token, model.UniversityInput{Name: "mit"})
	requireCode(t, r.err, apierror.CodeBusinessRule)

	require.NoError(t, call(t, ts, http.MethodDelete, "/api/admin/universities/"+itoa(mit.ID), token, nil).err)

	// The name stays reserved while the row is soft-deleted.
	r = call(t, ts, http.MethodPost, "/api/admin/universities", token, model.UniversityInput{Name: "MIT"})
	requireCode(t, r.err, apierror.CodeBusinessRule)

	r = call(t, ts, http.MethodGet, "/api/universities", token, nil)
	require.NoError(t, r.err)
	live, err := envelope.Into[model.ListPayload[model.University]](r.data)
	require.NoError(t, err)
	assert.Zero(t, live.Total)

	r = call(t, ts, http.MethodGet, "/api/universities?show_deleted=true", token, nil)
	require.NoError(t, r.err)
	withDeleted, err := envelope.Into[model.ListPayload[model.University]](r.data)
	require.NoError(t, err)
	require.Len(t, withDeleted.Items, 1)
	assert.True(t, withDeleted.Items[0].Deleted())

	r = call(t, ts, http.MethodGet, "/api/universities/"+itoa(mit.ID), token, nil)
	requireCode(t, r.err, apierror.CodeNotFound)

	require.NoError(t, call(t, ts, http.MethodPost, "/api/admin/universities/"+itoa(mit.ID)+"/restore", token, nil).err)
	r = call(t, ts, http.MethodPost, "/api/admin/universities/"+itoa(mit.ID)+"/restore", token, nil)
	requireCode(t, r.err, apierror.CodeBusinessRule)

	r = call(t, ts, http.MethodGet, "/api/universities/all", token, nil)
	require.NoError(t, r.err)
	all, err := envelope.Into[[]model.University](r.data)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "MIT", all[0].Name)

	r = call(t, ts, http.MethodPut, "/api/admin/universities/"+itoa(mit.ID), token, model.UniversityInput{Name: "Massachusetts Institute of Technology"})
	require.NoError(t, r.err)
	renamed, err := envelope.Into[model.University](r.data)
	require.NoError(t, err)
	assert.Equal(t, "Massachusetts Institute of Technology", renamed.Name)
}

func TestListPagination(t *testing.T) {
	t.Parallel()
	srv, ts := newTestServer(t, nil)
	token := login(t, ts, adminEmail, adminPassword)

	_, err := srv.SeedUniversities("A", "B", "C", "D", "E")
	require.NoError(t, err)

	r := call(t, ts, http.MethodGet, "/api/universities?page=2&page_size=2", token, nil)
	require.NoError(t, r.err)
	assert.JSONEq(t, `["C","D"]`, names(t, r.data))

	page, err := envelope.Into[model.ListPayload[model.University]](r.data)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 2, page.PageSize)

	r = call(t, ts, http.MethodGet, "/api/universities?page=9&page_size=2", token, nil)
	require.NoError(t, r.err)
	assert.JSONEq(t, `[]`, names(t, r.data))

	r = call(t, ts, http.MethodGet, "/api/users?page=1&size=1", token, nil)
	require.NoError(t, r.err)
	users, err := envelope.Into[model.ListPayload[model.User]](r.data)
	require.NoError(t, err)
	assert.Equal(t, int64(1), users.Total)
	assert.Equal(t, 1, users.PageSize)
}

func TestUserRules(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, nil)
	token := login(t, ts, adminEmail, adminPassword)

	r := call(t, ts, http.MethodPost, "/api/admin/users", token, model.UserCreate{Email: adminEmail, Password: "another1"})
	requireCode(t, r.err, apierror.CodeBusinessRule)

	r = call(t, ts, http.MethodPost, "/api/admin/users", token, model.UserCreate{Email: "not-an-email", Password: "another1"})
	requireCode(t, r.err, apierror.CodeParam)

	r = call(t, ts, http.MethodPost, "/api/admin/users", token, model.UserCreate{Email: "x@example.com", Password: "another1", Role: 9})
	requireCode(t, r.err, apierror.CodeParam)

	r = call(t, ts, http.MethodPut, "/api/admin/users/1", token, model.UserUpdate{})
	requireCode(t, r.err, apierror.CodeParam)

	r = call(t, ts, http.MethodDelete, "/api/admin/users/1", token, nil)
	requireCode(t, r.err, apierror.CodeBusinessRule)

	r = call(t, ts, http.MethodDelete, "/api/admin/users/99", token, nil)
	requireCode(t, r.err, apierror.CodeNotFound)

	r = call(t, ts, http.MethodGet, "/api/users/abc", token, nil)
	requireCode(t, r.err, apierror.CodeParam)
}

func TestFailNextFaults(t *testing.T) {
	t.Parallel()
	srv, ts := newTestServer(t, nil)
	token := login(t, ts, adminEmail, adminPassword)

	srv.FailNext(FaultUnauthorized)
	srv.FailNext(FaultBadGateway)
	srv.FailNext(FaultInternal)

	require.ErrorIs(t, call(t, ts, http.MethodGet, "/api/users", token, nil).err, apierror.ErrUnauthorized)

	r := call(t, ts, http.MethodGet, "/api/users", token, nil)
	require.ErrorIs(t, r.err, apierror.ErrNetwork)
	assert.Equal(t, http.StatusBadGateway, r.status)

	requireCode(t, call(t, ts, http.MethodGet, "/api/users", token, nil).err, apierror.CodeInternal)
	require.NoError(t, call(t, ts, http.MethodGet, "/api/users", token, nil).err)
}

func TestHoldNextStallsMatchingRequest(t *testing.T) {
	t.Parallel()
	srv, ts := newTestServer(t, nil)
	token := login(t, ts, adminEmail, adminPassword)

	release := srv.HoldNext("/api/universities?page=2&page_size=10")

	done := make(chan reply, 1)
	go func() {
		done <- call(t, ts, http.MethodGet, "/api/universities?page=2&page_size=10", token, nil)
	}()

	// Other requests are not held.
	require.NoError(t, call(t, ts, http.MethodGet, "/api/universities?page=1&page_size=10", token, nil).err)

	select {
	case <-done:
		t.Fatal("held request completed before release")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	release()
	r := <-done
	require.NoError(t, r.err)

	assert.Contains(t, srv.Requests(), "GET /api/universities?page=2&page_size=10")
	assert.Contains(t, srv.Requests(), "POST /api/auth/login")
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()
	_, ts := newTestServer(t, nil)

	resp, err := ts.Client().Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	login(t, ts, adminEmail, adminPassword)

	resp, err = ts.Client().Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "admin_console_mockapi_responses_total")
}

func TestNewRequiresSecret(t *testing.T) {
	t.Parallel()

	_, err := New(Options{})
	require.Error(t, err)
}

func names(t *testing.T, data json.RawMessage) string {
	t.Helper()

	page, err := envelope.Into[model.ListPayload[model.University]](data)
	require.NoError(t, err)

	out := make([]string, 0, len(page.Items))
	for _, u := range page.Items {
		out = append(out, u.Name)
	}
	b, err := json.Marshal(out)
	require.NoError(t, err)
	return string(b)
}

func itoa(id int64) string {
	b, _ := json.Marshal(id)
	return string(b)
}
