package console

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"admin-console/internal/event"
	"admin-console/internal/gateway"
	"admin-console/internal/guard"
	"admin-console/internal/mockapi"
	"admin-console/internal/service"
	"admin-console/internal/session"
)

const (
	adminEmail    = "admin@example.com"
	adminPassword = "admin123"
)

type harness struct {
	backend *mockapi.Server
	shell   *Shell
	store   *session.Store
	out     *bytes.Buffer
}

func newHarness(t *testing.T, format Format) *harness {
	t.Helper()

	backend, err := mockapi.New(mockapi.Options{
		JWTSecret:        "console-test",
		AdminEmail:       adminEmail,
		AdminPassword:    adminPassword,
		AuthRateLimitRPM: 1000,
		BcryptCost:       bcrypt.MinCost,
	})
	require.NoError(t, err)
	ts := httptest.NewServer(backend)
	t.Cleanup(ts.Close)

	store, err := session.NewStore(session.ModeCookie)
	require.NoError(t, err)

	bus := event.NewBus(nil)
	events, unsubscribe := bus.Subscribe()
	t.Cleanup(unsubscribe)

	gw, err := gateway.New(gateway.Options{BaseURL: ts.URL + "/api"}, store, bus)
	require.NoError(t, err)

	auth := service.NewAuthService(gw, store, bus, "", nil)
	out := &bytes.Buffer{}

	shell := NewShell(Deps{
		Auth:         auth,
		Users:        service.NewUserService(gw),
		Universities: service.NewUniversityService(gw),
		Store:        store,
		Guard:        guard.New(store, auth),
		Events:       events,
		Format:       format,
		PageSize:     2,
		Out:          out,
	})

	return &harness{backend: backend, shell: shell, store: store, out: out}
}

// run executes one line and returns what it printed.
func (h *harness) run(t *testing.T, line string) string {
	t.Helper()

	h.out.Reset()
	quit, _ := h.shell.Handle(context.Background(), line)
	require.False(t, quit)
	return h.out.String()
}

func (h *harness) login(t *testing.T) {
	t.Helper()

	out := h.run(t, "login "+adminEmail+" "+adminPassword)
	require.Contains(t, out, "Logged in as "+adminEmail)
}

func TestProtectedViewWithoutSessionGoesToLogin(t *testing.T) {
	t.Parallel()
	h := newHarness(t, FormatTable)

	out := h.run(t, "open home")
	assert.Contains(t, out, "Please log in to open home.")
	assert.Contains(t, out, "Log in with: login <email> <password>")
	assert.Equal(t, ViewLogin, h.shell.Navigator().Current())
	assert.Empty(t, h.backend.Requests(), "no probe without a session")

	out = h.run(t, "open users")
	assert.NotContains(t, out, "Please log in", "no second notice while on login")
	assert.Contains(t, out, "Log in with")
}

func TestLoginReturnsToRequestedView(t *testing.T) {
	t.Parallel()
	h := newHarness(t, FormatTable)

	_, err := h.backend.SeedUniversities("Alpha", "Beta", "Gamma")
	require.NoError(t, err)

	h.run(t, "open universities")
	out := h.run(t, "login "+adminEmail+" "+adminPassword)

	assert.Contains(t, out, "universities: page 1 of 2, 3 total")
	assert.Equal(t, ViewUniversities, h.shell.Navigator().Current())
	require.NotNil(t, h.store.Get().User)
	assert.Equal(t, adminEmail, h.store.Get().User.Email)
}

func TestHomeShowsTotals(t *testing.T) {
	t.Parallel()
	h := newHarness(t, FormatTable)

	_, err := h.backend.SeedUniversities("Alpha", "Beta", "Gamma")
	require.NoError(t, err)

	out := h.run(t, "login "+adminEmail+" "+adminPassword)
	assert.Regexp(t, `Signed in as:\s+admin@example.com`, out)
	assert.Regexp(t, `Users:\s+1\n`, out)
	assert.Regexp(t, `Universities:\s+3\n`, out)
	assert.Equal(t, ViewHome, h.shell.Navigator().Current())
}

func TestUniversityScreenFlow(t *testing.T) {
	t.Parallel()
	h := newHarness(t, FormatTable)

	_, err := h.backend.SeedUniversities("Alpha", "Beta", "Gamma")
	require.NoError(t, err)
	h.login(t)

	out := h.run(t, "open universities")
	assert.Contains(t, out, "page 1 of 2, 3 total")

	out = h.run(t, "next")
	assert.Contains(t, out, "page 2 of 2")
	assert.Contains(t, out, "Gamma")

	assert.Contains(t, h.run(t, "next"), "There is no such page.")

	out = h.run(t, "delete 3")
	assert.Contains(t, out, "page 1 of 1, 2 total", "removing the last item of a page steps back")

	out = h.run(t, "filter alp")
	assert.Contains(t, out, `filter "alp": 1 shown on this page`)
	assert.Contains(t, out, "Alpha")
	assert.NotContains(t, out, "Beta")

	out = h.run(t, "filter")
	assert.Contains(t, out, "Beta")

	out = h.run(t, `create name="Delta State"`)
	assert.Contains(t, out, "Created Delta State (#4).")
	assert.Contains(t, out, "3 total")

	out = h.run(t, "create name=Alpha")
	assert.Contains(t, out, "university name already exists")

	out = h.run(t, "create name=Gamma")
	assert.Contains(t, out, "university name already exists", "soft-deleted names stay reserved")

	out = h.run(t, "show-deleted on")
	assert.Contains(t, out, "page 1 of 2, 4 total")

	out = h.run(t, "list 2")
	assert.Regexp(t, `3\s+Gamma\s+deleted`, out)

	h.run(t, "restore 3")
	out = h.run(t, "show-deleted off")
	assert.Contains(t, out, "4 total")

	out = h.run(t, `update 4 name="Delta"`)
	assert.Contains(t, out, "Updated Delta (#4).")

	assert.Contains(t, h.run(t, "list 0"), "Page and page size must be at least 1.")
	assert.Contains(t, h.run(t, "update 4 colour=red"), `unknown field "colour"`)
}

func TestUserScreenFlow(t *testing.T) {
	t.Parallel()
	h := newHarness(t, FormatTable)
	h.login(t)

	h.run(t, "open users")
	out := h.run(t, "create email=ops@example.com password=ops12345")
	assert.Contains(t, out, "Created ops@example.com (#2).")
	assert.Regexp(t, `2\s+ops@example.com\s+user\s+active\s+never`, out)

	out = h.run(t, "update 2 role=admin status=disabled")
	assert.Regexp(t, `2\s+ops@example.com\s+admin\s+disabled`, out)

	out = h.run(t, "delete 1")
	assert.Contains(t, out, "you cannot delete your own account")

	out = h.run(t, "restore 2")
	assert.Contains(t, out, "this screen does not support that command")
}

func TestSessionExpiryShowsSingleNotice(t *testing.T) {
	t.Parallel()
	h := newHarness(t, FormatTable)

	_, err := h.backend.SeedUniversities("Alpha", "Beta", "Gamma")
	require.NoError(t, err)
	h.login(t)
	h.run(t, "open universities")

	h.backend.FailNext(mockapi.FaultUnauthorized)
	out := h.run(t, "next")

	assert.Equal(t, 1, strings.Count(out, sessionExpiredNotice))
	assert.Equal(t, ViewLogin, h.shell.Navigator().Current())
	assert.False(t, h.store.Get().Present)

	// Commands after expiry do not repeat the notice.
	out = h.run(t, "open universities")
	assert.NotContains(t, out, sessionExpiredNotice)

	out = h.run(t, "login "+adminEmail+" "+adminPassword)
	assert.Contains(t, out, "universities: page 1 of 2")
}

func TestNetworkFailureKeepsScreen(t *testing.T) {
	t.Parallel()
	h := newHarness(t, FormatTable)

	_, err := h.backend.SeedUniversities("Alpha", "Beta", "Gamma")
	require.NoError(t, err)
	h.login(t)
	h.run(t, "open universities")

	h.backend.FailNext(mockapi.FaultBadGateway)
	out := h.run(t, "next")
	assert.Contains(t, out, "Network error.")
	assert.Equal(t, ViewUniversities, h.shell.Navigator().Current())
	assert.True(t, h.store.Get().Present)

	assert.Contains(t, h.run(t, "next"), "page 2 of 2")
}

func TestLogoutAndWhoami(t *testing.T) {
	t.Parallel()
	h := newHarness(t, FormatTable)
	h.login(t)

	out := h.run(t, "whoami")
	assert.Regexp(t, `Email:\s+admin@example.com`, out)
	assert.Regexp(t, `Role:\s+admin`, out)

	out = h.run(t, "logout")
	assert.Contains(t, out, "Logged out.")
	assert.Equal(t, ViewLogin, h.shell.Navigator().Current())
	assert.False(t, h.store.Get().Present)

	assert.Contains(t, h.run(t, "next"), errNoScreen.Error())
}

func TestJSONOutput(t *testing.T) {
	t.Parallel()
	h := newHarness(t, FormatJSON)

	_, err := h.backend.SeedUniversities("Alpha", "Beta", "Gamma")
	require.NoError(t, err)
	h.login(t)
	h.run(t, "open universities")

	out := h.run(t, "list 2 2")
	var decoded struct {
		Resource string          `json:"resource"`
		Page     int             `json:"page"`
		Total    int64           `json:"total"`
		Items    []universityRow `json:"items"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, ViewUniversities, decoded.Resource)
	assert.Equal(t, 2, decoded.Page)
	assert.Equal(t, int64(3), decoded.Total)
	require.Len(t, decoded.Items, 1)
	assert.Equal(t, "Gamma", decoded.Items[0].Name)
}

func TestRunReadsUntilQuit(t *testing.T) {
	t.Parallel()
	h := newHarness(t, FormatTable)

	in := strings.NewReader("help\nbogus\nquit\nopen home\n")
	require.NoError(t, h.shell.Run(context.Background(), in, false))

	out := h.out.String()
	assert.Contains(t, out, "Commands:")
	assert.Contains(t, out, `unknown command "bogus"`)
	assert.NotContains(t, out, "Please log in", "input after quit is not read")
}
