package auth_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fivetwenty-io/cfsync/internal/auth"
	"github.com/fivetwenty-io/cfsync/internal/constants"
	"github.com/fivetwenty-io/cfsync/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTokenSource stands in for the cf session.
type MockTokenSource struct {
	mock.Mock
}

func (m *MockTokenSource) OAuthToken(ctx context.Context) (string, error) {
	args := m.Called(ctx)

	return args.String(0), args.Error(1)
}

func (m *MockTokenSource) Logout(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestSession_GetTokenIsIdempotent(t *testing.T) {
	t.Parallel()

	raw := makeJWT(t, map[string]interface{}{"exp": time.Now().Add(time.Hour).Unix()})

	source := &MockTokenSource{}
	source.On("OAuthToken", mock.Anything).Return(raw, nil).Once()

	session := auth.NewSession(source, logging.Discard())

	first, err := session.GetToken(context.Background())
	require.NoError(t, err)

	second, err := session.GetToken(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Same(t, first, session.Token())
	source.AssertNumberOfCalls(t, "OAuthToken", 1)
}

func TestSession_InvalidateForcesFetch(t *testing.T) {
	t.Parallel()

	source := &MockTokenSource{}
	source.On("OAuthToken", mock.Anything).Return(makeJWT(t, map[string]interface{}{"user_name": "a"}), nil).Once()
	source.On("OAuthToken", mock.Anything).Return(makeJWT(t, map[string]interface{}{"user_name": "b"}), nil).Once()

	session := auth.NewSession(source, logging.Discard())

	first, err := session.GetToken(context.Background())
	require.NoError(t, err)

	session.InvalidateToken()
	assert.Nil(t, session.Token())

	second, err := session.GetToken(context.Background())
	require.NoError(t, err)

	assert.NotSame(t, first, second)
	assert.Equal(t, "b", second.Claims().UserName)
	source.AssertExpectations(t)
}

func TestSession_ConcurrentColdCallersShareFetch(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	release := make(chan struct{})
	raw := makeJWT(t, map[string]interface{}{"user_name": "shared"})

	source := &MockTokenSource{}
	source.On("OAuthToken", mock.Anything).Run(func(mock.Arguments) {
		calls.Add(1)
		<-release
	}).Return(raw, nil)

	session := auth.NewSession(source, logging.Discard())

	const callers = 8

	var wg sync.WaitGroup

	tokens := make([]*auth.AccessToken, callers)

	for i := range callers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			token, err := session.GetToken(context.Background())
			assert.NoError(t, err)

			tokens[i] = token
		}()
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())

	for _, token := range tokens {
		assert.Same(t, tokens[0], token)
	}
}

func TestSession_NotLoggedIn(t *testing.T) {
	t.Parallel()

	source := &MockTokenSource{}
	source.On("OAuthToken", mock.Anything).Return("", constants.ErrNotLoggedIn)

	_, err := auth.NewSession(source, logging.Discard()).GetToken(context.Background())
	require.ErrorIs(t, err, constants.ErrTokenUnavailable)
	require.ErrorIs(t, err, constants.ErrNotLoggedIn)
	assert.NotErrorIs(t, err, constants.ErrInvalidRefreshToken)
}

func TestSession_InvalidRefreshTokenIsFatal(t *testing.T) {
	t.Parallel()

	source := &MockTokenSource{}
	source.On("OAuthToken", mock.Anything).
		Return("", fmt.Errorf("%w: token expired", constants.ErrInvalidRefreshToken))

	_, err := auth.NewSession(source, logging.Discard()).GetToken(context.Background())
	require.ErrorIs(t, err, constants.ErrInvalidRefreshToken)
	assert.NotErrorIs(t, err, constants.ErrTokenUnavailable)
}

func TestSession_MalformedTokenIsNotCached(t *testing.T) {
	t.Parallel()

	source := &MockTokenSource{}
	source.On("OAuthToken", mock.Anything).Return("not-a-jwt", nil).Twice()

	session := auth.NewSession(source, logging.Discard())

	for range 2 {
		_, err := session.GetToken(context.Background())
		require.ErrorIs(t, err, constants.ErrTokenUnavailable)

		var decodeErr *auth.TokenDecodeError
		require.ErrorAs(t, err, &decodeErr)
		assert.Nil(t, session.Token())
	}

	source.AssertExpectations(t)
}

func TestSession_Logout(t *testing.T) {
	t.Parallel()

	source := &MockTokenSource{}
	source.On("OAuthToken", mock.Anything).Return(makeJWT(t, map[string]interface{}{}), nil).Once()
	source.On("Logout", mock.Anything).Return(nil).Once()

	session := auth.NewSession(source, logging.Discard())

	_, err := session.GetToken(context.Background())
	require.NoError(t, err)

	require.NoError(t, session.Logout(context.Background()))
	assert.Nil(t, session.Token())
	source.AssertExpectations(t)
}
