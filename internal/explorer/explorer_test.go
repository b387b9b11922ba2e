package explorer_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fivetwenty-io/cfsync/internal/constants"
	"github.com/fivetwenty-io/cfsync/internal/explorer"
	"github.com/fivetwenty-io/cfsync/internal/logging"
	"github.com/fivetwenty-io/cfsync/internal/tree"
	"github.com/fivetwenty-io/cfsync/pkg/capi"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

var errGateway = errors.New("bad gateway")

// MockResourceClient is a testify mock of capi.ResourceClient.
type MockResourceClient struct {
	mock.Mock
}

func (m *MockResourceClient) ListOrganizations(ctx context.Context, platform *capi.PlatformInstance) capi.Result[[]*capi.Organization] {
	return m.Called(ctx, platform).Get(0).(capi.Result[[]*capi.Organization])
}

func (m *MockResourceClient) ListSpaces(ctx context.Context, org *capi.Organization) capi.Result[[]*capi.Space] {
	return m.Called(ctx, org).Get(0).(capi.Result[[]*capi.Space])
}

func (m *MockResourceClient) ListApplications(ctx context.Context, space *capi.Space) capi.Result[[]*capi.App] {
	return m.Called(ctx, space).Get(0).(capi.Result[[]*capi.App])
}

func (m *MockResourceClient) GetApp(ctx context.Context, platform *capi.PlatformInstance, guid string) capi.Result[*capi.App] {
	return m.Called(ctx, platform, guid).Get(0).(capi.Result[*capi.App])
}

func (m *MockResourceClient) StartApp(ctx context.Context, app *capi.App) capi.Result[*capi.App] {
	return m.mutation(ctx, "StartApp", app, capi.AppStateStarted)
}

func (m *MockResourceClient) StopApp(ctx context.Context, app *capi.App) capi.Result[*capi.App] {
	return m.mutation(ctx, "StopApp", app, capi.AppStateStopped)
}

func (m *MockResourceClient) RestartApp(ctx context.Context, app *capi.App) capi.Result[*capi.App] {
	return m.mutation(ctx, "RestartApp", app, capi.AppStateStarted)
}

func (m *MockResourceClient) DeleteApp(ctx context.Context, app *capi.App) capi.Result[*capi.App] {
	return m.mutation(ctx, "DeleteApp", app, capi.AppStateDeleted)
}

// mutation applies state to app on success like the resilient client does.
func (m *MockResourceClient) mutation(ctx context.Context, name string, app *capi.App, state capi.AppState) capi.Result[*capi.App] {
	res := m.MethodCalled(name, ctx, app).Get(0).(capi.Result[*capi.App])
	if res.Succeeded {
		app.State = state
		res.Content = app
	}

	return res
}

func (m *MockResourceClient) ListBuildpacks(ctx context.Context, platform *capi.PlatformInstance) capi.Result[[]*capi.Buildpack] {
	return m.Called(ctx, platform).Get(0).(capi.Result[[]*capi.Buildpack])
}

func (m *MockResourceClient) ListStacks(ctx context.Context, platform *capi.PlatformInstance) capi.Result[[]*capi.Stack] {
	return m.Called(ctx, platform).Get(0).(capi.Result[[]*capi.Stack])
}

func (m *MockResourceClient) ListServiceOfferings(ctx context.Context, platform *capi.PlatformInstance) capi.Result[[]*capi.ServiceOffering] {
	return m.Called(ctx, platform).Get(0).(capi.Result[[]*capi.ServiceOffering])
}

type ExplorerSuite struct {
	suite.Suite

	client   *MockResourceClient
	explorer *explorer.Explorer
	changes  map[string]int
	dev      *capi.PlatformInstance
	prod     *capi.PlatformInstance
	org      *capi.Organization
	space    *capi.Space
	api      *capi.App
	worker   *capi.App
}

func TestExplorerSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(ExplorerSuite))
}

func (s *ExplorerSuite) SetupTest() {
	s.client = &MockResourceClient{}
	s.changes = map[string]int{}

	s.dev = &capi.PlatformInstance{Name: "dev", APIAddress: "https://api.dev.example.com"}
	s.prod = &capi.PlatformInstance{Name: "prod", APIAddress: "https://api.prod.example.com"}
	s.org = &capi.Organization{Resource: capi.Resource{GUID: "org-1"}, Name: "platform-team", Platform: s.dev}
	s.space = &capi.Space{Resource: capi.Resource{GUID: "space-1"}, Name: "staging", Organization: s.org}
	s.api = &capi.App{Resource: capi.Resource{GUID: "app-1"}, Name: "api", State: capi.AppStateStarted, Space: s.space}
	s.worker = &capi.App{Resource: capi.Resource{GUID: "app-2"}, Name: "worker", State: capi.AppStateStopped, Space: s.space}

	workspace := &explorer.Workspace{Name: "workspace", Platforms: []*capi.PlatformInstance{s.dev, s.prod}}

	s.explorer = explorer.New(s.client, workspace, logging.Discard(),
		tree.WithNotifier(tree.NotifierFunc(func(n *tree.Node) { s.changes[n.Key()]++ })))
}

func (s *ExplorerSuite) stubHierarchy() {
	s.client.On("ListOrganizations", mock.Anything, s.dev).
		Return(capi.Success([]*capi.Organization{s.org}))
	s.client.On("ListOrganizations", mock.Anything, s.prod).
		Return(capi.Success([]*capi.Organization{}))
	s.client.On("ListSpaces", mock.Anything, s.org).
		Return(capi.Success([]*capi.Space{s.space}))
	s.client.On("ListApplications", mock.Anything, s.space).
		Return(capi.Success([]*capi.App{s.api, s.worker}))
}

func (s *ExplorerSuite) labels() []string {
	var out []string
	for _, row := range s.explorer.Tree().Visible() {
		out = append(out, row.Node.Label())
	}

	return out
}

func (s *ExplorerSuite) TestExpandToApplications() {
	s.stubHierarchy()

	s.Require().NoError(s.explorer.ExpandTo(context.Background(), constants.DefaultTreeDepth))

	s.Equal([]string{
		"dev",
		"platform-team",
		"staging",
		"api (Started)",
		"worker (Stopped)",
		"prod",
		"[No organizations]",
	}, s.labels())
}

func (s *ExplorerSuite) TestExpandToStopsAtDepth() {
	s.client.On("ListOrganizations", mock.Anything, s.dev).
		Return(capi.Success([]*capi.Organization{s.org}))
	s.client.On("ListOrganizations", mock.Anything, s.prod).
		Return(capi.Success([]*capi.Organization{}))

	s.Require().NoError(s.explorer.ExpandTo(context.Background(), 2))

	s.Equal([]string{"dev", "platform-team", "prod", "[No organizations]"}, s.labels())
	s.client.AssertNotCalled(s.T(), "ListSpaces", mock.Anything, mock.Anything)
}

func (s *ExplorerSuite) TestInvalidRefreshTokenLocksPlatform() {
	s.client.On("ListOrganizations", mock.Anything, s.dev).
		Return(capi.Failure[[]*capi.Organization](capi.FailureInvalidRefreshToken, constants.ErrInvalidRefreshToken)).Once()
	s.client.On("ListOrganizations", mock.Anything, s.prod).
		Return(capi.Success([]*capi.Organization{}))

	err := s.explorer.ExpandTo(context.Background(), 2)
	s.Require().ErrorIs(err, explorer.ErrReauthenticationRequired)
	s.True(capi.IsInvalidRefreshToken(err))

	s.True(s.explorer.Locked("dev"))
	s.False(s.explorer.Locked("prod"))

	dev := s.explorer.Tree().Find("dev")
	s.Require().NotNil(dev)
	s.False(dev.Expanded())
	s.Equal("dev [login required]", dev.Label())

	err = s.explorer.Tree().Expand(context.Background(), dev)
	s.Require().ErrorIs(err, explorer.ErrReauthenticationRequired)
	s.client.AssertNumberOfCalls(s.T(), "ListOrganizations", 2)

	s.client.On("ListOrganizations", mock.Anything, s.dev).
		Return(capi.Success([]*capi.Organization{s.org}))

	s.explorer.Unlock("dev")
	s.Equal("dev", dev.Label())

	s.Require().NoError(s.explorer.Tree().Expand(context.Background(), dev))
	s.True(dev.Expanded())
}

func (s *ExplorerSuite) TestOtherFailuresKeepPlatformUnlocked() {
	s.stubHierarchy()

	s.Require().NoError(s.explorer.ExpandTo(context.Background(), 3))

	org := s.explorer.Tree().Find("dev", "org-1")
	s.Require().NotNil(org)

	s.client.ExpectedCalls = nil
	s.client.On("ListSpaces", mock.Anything, s.org).
		Return(capi.Failure[[]*capi.Space](capi.FailureOther, errGateway))

	err := s.explorer.Tree().Refresh(context.Background(), org)
	s.Require().Error(err)

	var failure *capi.FailureError
	s.Require().ErrorAs(err, &failure)
	s.Equal(capi.FailureOther, failure.Kind)
	s.Equal("bad gateway", failure.Explanation)

	s.False(s.explorer.Locked("dev"))
	s.True(org.Expanded())
	s.Equal("staging", org.Children()[0].Label())
}

func (s *ExplorerSuite) TestLocateAndStopApp() {
	s.stubHierarchy()
	s.client.On("StopApp", mock.Anything, mock.AnythingOfType("*capi.App")).
		Return(capi.Success[*capi.App](nil))

	node, err := s.explorer.Locate(context.Background(), "dev", "platform-team", "staging", "api")
	s.Require().NoError(err)

	before := s.changes["app-1"]

	s.Require().NoError(s.explorer.StopApp(context.Background(), node))

	app, err := s.explorer.App(node)
	s.Require().NoError(err)
	s.Equal(capi.AppStateStopped, app.State)
	s.Equal("api (Stopped)", node.Label())
	s.Equal(1, s.changes["app-1"]-before)
	s.Equal(capi.AppStateStarted, s.api.State)
}

func (s *ExplorerSuite) TestStartAndRestartApp() {
	s.stubHierarchy()
	s.client.On("StartApp", mock.Anything, mock.Anything).Return(capi.Success[*capi.App](nil))
	s.client.On("RestartApp", mock.Anything, mock.Anything).Return(capi.Success[*capi.App](nil))

	node, err := s.explorer.Locate(context.Background(), "dev", "platform-team", "staging", "worker")
	s.Require().NoError(err)

	s.Require().NoError(s.explorer.StartApp(context.Background(), node))
	s.Equal("worker (Started)", node.Label())

	s.Require().NoError(s.explorer.RestartApp(context.Background(), node))
	s.Equal("worker (Started)", node.Label())
}

func (s *ExplorerSuite) TestFailedMutationKeepsSnapshot() {
	s.stubHierarchy()
	s.client.On("StartApp", mock.Anything, mock.Anything).
		Return(capi.Failure[*capi.App](capi.FailureOther, errGateway))

	node, err := s.explorer.Locate(context.Background(), "dev", "platform-team", "staging", "worker")
	s.Require().NoError(err)

	err = s.explorer.StartApp(context.Background(), node)
	s.Require().ErrorIs(err, errGateway)
	s.Equal("worker (Stopped)", node.Label())
}

func (s *ExplorerSuite) TestDeleteAppRefreshesSpace() {
	s.stubHierarchy()
	s.client.On("DeleteApp", mock.Anything, mock.Anything).Return(capi.Success[*capi.App](nil))

	node, err := s.explorer.Locate(context.Background(), "dev", "platform-team", "staging", "api")
	s.Require().NoError(err)

	s.client.ExpectedCalls = nil
	s.client.On("DeleteApp", mock.Anything, mock.Anything).Return(capi.Success[*capi.App](nil))
	s.client.On("ListApplications", mock.Anything, s.space).
		Return(capi.Success([]*capi.App{s.worker}))

	s.Require().NoError(s.explorer.DeleteApp(context.Background(), node))

	space := node.Parent()
	s.False(node.Attached())
	s.Len(space.Children(), 1)
	s.Equal("worker (Stopped)", space.Children()[0].Label())
}

func (s *ExplorerSuite) TestMutationOnNonApplication() {
	s.stubHierarchy()

	s.Require().NoError(s.explorer.ExpandTo(context.Background(), 2))

	err := s.explorer.StartApp(context.Background(), s.explorer.Tree().Find("dev", "org-1"))
	s.Require().ErrorIs(err, constants.ErrNotAnApplication)
}

func (s *ExplorerSuite) TestLocateNotFound() {
	s.stubHierarchy()

	_, err := s.explorer.Locate(context.Background(), "qa", "platform-team", "staging", "api")
	s.Require().ErrorIs(err, constants.ErrPlatformNotFound)

	_, err = s.explorer.Locate(context.Background(), "dev", "platform-team", "prod", "api")
	s.Require().ErrorIs(err, constants.ErrSpaceNotFound)

	_, err = s.explorer.Locate(context.Background(), "dev", "platform-team", "staging", "web")
	s.Require().ErrorIs(err, constants.ErrApplicationNotFound)
}

func (s *ExplorerSuite) TestStateLabel() {
	s.Equal("Started", explorer.StateLabel(capi.AppStateStarted))
	s.Equal("Deleted", explorer.StateLabel(capi.AppStateDeleted))
}
