package tui

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fivetwenty-io/cfsync/internal/constants"
	"github.com/fivetwenty-io/cfsync/internal/explorer"
	"github.com/fivetwenty-io/cfsync/internal/logging"
	"github.com/fivetwenty-io/cfsync/pkg/capi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRefreshTokenExpired = errors.New("refresh token expired")

// fakeClient serves a fixed inventory. Unused operations panic through the
// nil embedded interface.
type fakeClient struct {
	capi.ResourceClient

	mu       sync.Mutex
	orgs     []*capi.Organization
	spaces   []*capi.Space
	apps     []*capi.App
	orgsFail capi.FailureKind
}

func (f *fakeClient) ListOrganizations(_ context.Context, platform *capi.PlatformInstance) capi.Result[[]*capi.Organization] {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.orgsFail != capi.FailureNone {
		return capi.Failure[[]*capi.Organization](f.orgsFail, errRefreshTokenExpired)
	}

	out := make([]*capi.Organization, 0, len(f.orgs))

	for _, org := range f.orgs {
		snapshot := *org
		snapshot.Platform = platform
		out = append(out, &snapshot)
	}

	return capi.Success(out)
}

func (f *fakeClient) ListSpaces(_ context.Context, org *capi.Organization) capi.Result[[]*capi.Space] {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*capi.Space, 0, len(f.spaces))

	for _, space := range f.spaces {
		snapshot := *space
		snapshot.Organization = org
		out = append(out, &snapshot)
	}

	return capi.Success(out)
}

func (f *fakeClient) ListApplications(_ context.Context, space *capi.Space) capi.Result[[]*capi.App] {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]*capi.App, 0, len(f.apps))

	for _, app := range f.apps {
		snapshot := *app
		snapshot.Space = space
		out = append(out, &snapshot)
	}

	return capi.Success(out)
}

func (f *fakeClient) StartApp(_ context.Context, app *capi.App) capi.Result[*capi.App] {
	app.State = capi.AppStateStarted

	return capi.Success(app)
}

func (f *fakeClient) StopApp(_ context.Context, app *capi.App) capi.Result[*capi.App] {
	app.State = capi.AppStateStopped

	return capi.Success(app)
}

func (f *fakeClient) RestartApp(_ context.Context, app *capi.App) capi.Result[*capi.App] {
	app.State = capi.AppStateStarted

	return capi.Success(app)
}

func (f *fakeClient) setApps(apps ...*capi.App) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.apps = apps
}

func newFakeClient() *fakeClient {
	org := &capi.Organization{Name: "acme"}
	org.GUID = "org-1"

	space := &capi.Space{Name: "dev"}
	space.GUID = "space-1"

	web := &capi.App{Name: "web", State: capi.AppStateStarted}
	web.GUID = "app-1"

	return &fakeClient{
		orgs:   []*capi.Organization{org},
		spaces: []*capi.Space{space},
		apps:   []*capi.App{web},
	}
}

func newModel(t *testing.T, client capi.ResourceClient) Model {
	t.Helper()

	workspace := &explorer.Workspace{
		Name:      "workspace",
		Platforms: []*capi.PlatformInstance{{Name: "dev", APIAddress: "https://api.dev.example.com"}},
	}

	m := New(context.Background(), explorer.New(client, workspace, logging.Discard()))

	return drain(t, m, m.Init())
}

// drain runs cmd synchronously and feeds its messages back into the model.
func drain(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()

	if cmd == nil {
		return m
	}

	switch msg := cmd().(type) {
	case tea.BatchMsg:
		for _, c := range msg {
			m = drain(t, m, c)
		}

		return m
	case spinner.TickMsg, tea.QuitMsg:
		return m
	default:
		next, follow := m.Update(msg)

		return drain(t, next.(Model), follow)
	}
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()

	for _, k := range keys {
		var msg tea.KeyMsg

		switch k {
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}

		next, cmd := m.Update(msg)
		m = drain(t, next.(Model), cmd)
	}

	return m
}

func labels(m Model) []string {
	out := make([]string, 0, len(m.rows))
	for _, row := range m.rows {
		out = append(out, row.Node.Label())
	}

	return out
}

func TestModel_InitExpandsWorkspace(t *testing.T) {
	t.Parallel()

	m := newModel(t, newFakeClient())

	assert.Equal(t, []string{"dev"}, labels(m))
	assert.Equal(t, 0, m.pending)
	assert.Contains(t, m.View(), "cfsync · workspace")
	assert.Contains(t, m.View(), "▸ dev")
}

func TestModel_ExpandToApplications(t *testing.T) {
	t.Parallel()

	m := newModel(t, newFakeClient())
	m = press(t, m, "right", "down", "enter", "down", "right")

	assert.Equal(t, []string{"dev", "acme", "dev", "web (Started)"}, labels(m))
	assert.Equal(t, 2, m.cursor)
	assert.Equal(t, 2, m.rows[2].Level)
	assert.Equal(t, "expanded dev", m.status)
	assert.NoError(t, m.err)
}

func TestModel_CursorFollowsNode(t *testing.T) {
	t.Parallel()

	m := newModel(t, newFakeClient())
	m = press(t, m, "right")

	assert.Equal(t, 0, m.cursor)
	assert.Len(t, m.rows, 2)

	m = press(t, m, "down", "down", "down")
	assert.Equal(t, 1, m.cursor)

	m = press(t, m, "up", "up")
	assert.Equal(t, 0, m.cursor)
}

func TestModel_Collapse(t *testing.T) {
	t.Parallel()

	m := newModel(t, newFakeClient())
	m = press(t, m, "right", "down", "right")
	require.Len(t, m.rows, 3)

	m = press(t, m, "left")
	assert.Equal(t, []string{"dev", "acme"}, labels(m))
	assert.Equal(t, 1, m.cursor)

	m = press(t, m, "left")
	assert.Equal(t, 0, m.cursor)

	m = press(t, m, "left")
	assert.Equal(t, []string{"dev"}, labels(m))
}

func TestModel_AppMutations(t *testing.T) {
	t.Parallel()

	m := newModel(t, newFakeClient())
	m = press(t, m, "right", "down", "right", "down", "right", "down")
	require.Equal(t, "web (Started)", m.selected().Label())

	m = press(t, m, "S")
	assert.Equal(t, "web (Stopped)", m.selected().Label())
	assert.Equal(t, "stopped web (Started)", m.status)

	m = press(t, m, "s")
	assert.Equal(t, "web (Started)", m.selected().Label())

	m = press(t, m, "x")
	assert.Equal(t, "web (Started)", m.selected().Label())
	assert.Equal(t, 0, m.pending)
}

func TestModel_MutationOnNonApplication(t *testing.T) {
	t.Parallel()

	m := newModel(t, newFakeClient())
	m = press(t, m, "s")

	require.ErrorIs(t, m.err, constants.ErrNotAnApplication)
	assert.Contains(t, m.View(), "Error:")
}

func TestModel_RefreshKeepsExpansion(t *testing.T) {
	t.Parallel()

	client := newFakeClient()

	m := newModel(t, client)
	m = press(t, m, "right", "down", "right", "down", "right")

	api := &capi.App{Name: "api", State: capi.AppStateStopped}
	api.GUID = "app-2"

	web := &capi.App{Name: "web", State: capi.AppStateStarted}
	web.GUID = "app-1"

	client.setApps(web, api)

	m = press(t, m, "r")
	assert.Equal(t, []string{"dev", "acme", "dev", "web (Started)", "api (Stopped)"}, labels(m))

	client.setApps()

	m = press(t, m, "R")
	assert.Equal(t, []string{"dev", "acme", "dev", "[No applications]"}, labels(m))
	assert.Equal(t, "refreshed workspace", m.status)
}

func TestModel_InvalidRefreshTokenLocksPlatform(t *testing.T) {
	t.Parallel()

	client := newFakeClient()
	client.orgsFail = capi.FailureInvalidRefreshToken

	m := newModel(t, client)
	m = press(t, m, "right")

	require.ErrorIs(t, m.err, explorer.ErrReauthenticationRequired)
	assert.Equal(t, []string{"dev [login required]"}, labels(m))
	assert.False(t, m.rows[0].Node.Expanded())
	assert.Contains(t, m.View(), "login required")
}

func TestModel_HelpAndQuit(t *testing.T) {
	t.Parallel()

	m := newModel(t, newFakeClient())
	assert.False(t, m.help.ShowAll)

	m = press(t, m, "?")
	assert.True(t, m.help.ShowAll)
	assert.Contains(t, m.View(), "refresh all")

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModel_WindowScrolls(t *testing.T) {
	t.Parallel()

	client := newFakeClient()

	apps := make([]*capi.App, 0, 20)

	for i := range 20 {
		app := &capi.App{Name: string(rune('a' + i)), State: capi.AppStateStarted}
		app.GUID = app.Name
		apps = append(apps, app)
	}

	client.setApps(apps...)

	m := newModel(t, client)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 10})
	m = next.(Model)

	m = press(t, m, "right", "down", "right", "down", "right")
	for range 15 {
		m = press(t, m, "down")
	}

	assert.Equal(t, 17, m.cursor)
	assert.Equal(t, 17-m.page()+1, m.offset)
	assert.NotContains(t, m.View(), "acme")
}

func TestModel_RunMsg(t *testing.T) {
	t.Parallel()

	m := newModel(t, newFakeClient())

	ran := false
	msg := runMsg{fn: func() { ran = true }, done: make(chan struct{})}

	_, cmd := m.Update(msg)
	assert.Nil(t, cmd)
	assert.True(t, ran)

	select {
	case <-msg.done:
	default:
		t.Fatal("done was not closed")
	}
}

func TestExecutor(t *testing.T) {
	t.Parallel()

	t.Run("delivers to the loop", func(t *testing.T) {
		t.Parallel()

		exec := NewExecutor(context.Background())
		exec.send = func(msg tea.Msg) {
			run := msg.(runMsg)

			go func() {
				run.fn()
				close(run.done)
			}()
		}

		ran := false
		exec.Do(func() { ran = true })
		assert.True(t, ran)
	})

	t.Run("gives up after cancel", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		exec := NewExecutor(ctx)
		exec.send = func(tea.Msg) { cancel() }

		ran := false
		exec.Do(func() { ran = true })
		assert.False(t, ran)

		exec.Do(func() { ran = true })
		assert.False(t, ran)
	})

	t.Run("unbound", func(t *testing.T) {
		t.Parallel()

		ran := false
		NewExecutor(context.Background()).Do(func() { ran = true })
		assert.False(t, ran)
	})
}
