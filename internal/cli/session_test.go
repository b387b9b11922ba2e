package cli_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/fivetwenty-io/cfsync/internal/cli"
	"github.com/fivetwenty-io/cfsync/internal/constants"
	"github.com/fivetwenty-io/cfsync/internal/logging"
	"github.com/fivetwenty-io/cfsync/pkg/capi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRunner records cf invocations.
type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Run(ctx context.Context, env []string, args ...string) (*cli.Output, error) {
	called := m.Called(env, args)

	out, _ := called.Get(0).(*cli.Output)

	return out, called.Error(1)
}

func stdout(text string) *cli.Output {
	return &cli.Output{Stdout: []byte(text)}
}

func failed(text string) *cli.Output {
	return &cli.Output{Stdout: []byte(text), ExitCode: 1}
}

func newSession(runner cli.Runner) *cli.Session {
	return cli.NewSession(runner, logging.Discard())
}

func TestSession_OAuthToken(t *testing.T) {
	t.Parallel()

	t.Run("strips bearer prefix", func(t *testing.T) {
		t.Parallel()

		runner := &MockRunner{}
		runner.On("Run", []string(nil), []string{"oauth-token"}).Return(stdout("bearer aaa.bbb.ccc\n"), nil)

		raw, err := newSession(runner).OAuthToken(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "aaa.bbb.ccc", raw)
		runner.AssertExpectations(t)
	})

	t.Run("not logged in", func(t *testing.T) {
		t.Parallel()

		runner := &MockRunner{}
		runner.On("Run", mock.Anything, mock.Anything).Return(
			failed("FAILED\nNot logged in. Use 'cf login' or 'cf login --sso' to log in.\n"), constants.ErrCLICommandFailed)

		_, err := newSession(runner).OAuthToken(context.Background())
		require.ErrorIs(t, err, constants.ErrNotLoggedIn)
		assert.NotErrorIs(t, err, constants.ErrInvalidRefreshToken)
	})

	t.Run("expired refresh token", func(t *testing.T) {
		t.Parallel()

		runner := &MockRunner{}
		runner.On("Run", mock.Anything, mock.Anything).Return(
			failed("The token expired, was revoked, or the token ID is incorrect. Please log back in to re-authenticate.\nFAILED\n"),
			constants.ErrCLICommandFailed)

		_, err := newSession(runner).OAuthToken(context.Background())
		require.ErrorIs(t, err, constants.ErrInvalidRefreshToken)
		assert.Contains(t, err.Error(), "log back in")
	})

	t.Run("empty output", func(t *testing.T) {
		t.Parallel()

		runner := &MockRunner{}
		runner.On("Run", mock.Anything, mock.Anything).Return(stdout("  \n"), nil)

		_, err := newSession(runner).OAuthToken(context.Background())
		require.ErrorIs(t, err, constants.ErrCLIResponseParse)
	})

	t.Run("missing binary", func(t *testing.T) {
		t.Parallel()

		runner := &MockRunner{}
		runner.On("Run", mock.Anything, mock.Anything).Return(nil, constants.ErrCLINotFound)

		_, err := newSession(runner).OAuthToken(context.Background())
		require.ErrorIs(t, err, constants.ErrCLINotFound)
	})
}

func TestSession_Authenticate(t *testing.T) {
	t.Parallel()

	platform := &capi.PlatformInstance{Name: "lab", APIAddress: "https://api.lab.example.org", SkipSSLValidation: true}

	t.Run("passes credentials through the environment", func(t *testing.T) {
		t.Parallel()

		runner := &MockRunner{}
		runner.On("Run", []string(nil), []string{"api", "https://api.lab.example.org", "--skip-ssl-validation"}).
			Return(stdout("OK"), nil).Once()
		runner.On("Run", []string{"CF_USERNAME=admin", "CF_PASSWORD=s3cret"}, []string{"auth"}).
			Return(stdout("Authenticating...\nOK"), nil).Once()

		require.NoError(t, newSession(runner).Authenticate(context.Background(), platform, "admin", "s3cret"))
		runner.AssertExpectations(t)
	})

	t.Run("rejected credentials", func(t *testing.T) {
		t.Parallel()

		runner := &MockRunner{}
		runner.On("Run", []string(nil), mock.Anything).Return(stdout("OK"), nil).Once()
		runner.On("Run", mock.Anything, []string{"auth"}).
			Return(failed("Authenticating...\nCredentials were rejected, please try again.\nFAILED\n"), constants.ErrCLICommandFailed).Once()

		err := newSession(runner).Authenticate(context.Background(), platform, "admin", "wrong")
		require.ErrorIs(t, err, constants.ErrCLICommandFailed)
		assert.Contains(t, err.Error(), "Credentials were rejected")
	})
}

func TestSession_TargetAndLogout(t *testing.T) {
	t.Parallel()

	runner := &MockRunner{}
	runner.On("Run", []string(nil), []string{"target", "-o", "acme", "-s", "dev"}).Return(stdout("OK"), nil).Once()
	runner.On("Run", []string(nil), []string{"target", "-o", "acme"}).Return(stdout("OK"), nil).Once()
	runner.On("Run", []string(nil), []string{"logout"}).Return(stdout("Logging out...\nOK"), nil).Once()

	session := newSession(runner)

	require.NoError(t, session.Target(context.Background(), "acme", "dev"))
	require.NoError(t, session.Target(context.Background(), "acme", ""))
	require.NoError(t, session.Logout(context.Background()))
	runner.AssertExpectations(t)
}

func TestSession_Traced(t *testing.T) {
	t.Parallel()

	t.Run("returns matching bodies", func(t *testing.T) {
		t.Parallel()

		runner := &MockRunner{}
		runner.On("Run", []string(nil), []string{"marketplace", "-v"}).Return(stdout(marketplaceTrace), nil)

		bodies, err := newSession(runner).Traced(context.Background(), "/v3/service_offerings", "marketplace")
		require.NoError(t, err)
		require.Len(t, bodies, 1)

		var page capi.ListResponse[capi.ServiceOffering]

		require.NoError(t, json.Unmarshal(bodies[0], &page))
		assert.Equal(t, "postgres", page.Resources[0].Name)
	})

	t.Run("unauthorized trace", func(t *testing.T) {
		t.Parallel()

		runner := &MockRunner{}
		runner.On("Run", mock.Anything, mock.Anything).Return(
			failed(unauthorizedTrace), constants.ErrCLICommandFailed)

		_, err := newSession(runner).Traced(context.Background(), "/v3/service_offerings", "marketplace")
		require.ErrorIs(t, err, constants.ErrCLIAuthorizationFailed)
		assert.NotErrorIs(t, err, constants.ErrCLIResponseParse)
	})

	t.Run("unparseable trace", func(t *testing.T) {
		t.Parallel()

		runner := &MockRunner{}
		runner.On("Run", mock.Anything, mock.Anything).Return(stdout("Getting service offerings...\nOK\n"), nil)

		_, err := newSession(runner).Traced(context.Background(), "/v3/service_offerings", "marketplace")
		require.ErrorIs(t, err, constants.ErrCLIResponseParse)
		assert.NotErrorIs(t, err, constants.ErrCLIAuthorizationFailed)
	})
}
