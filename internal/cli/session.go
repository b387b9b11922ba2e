package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fivetwenty-io/cfsync/internal/constants"
	"github.com/fivetwenty-io/cfsync/pkg/capi"
)

// Markers in cf output that identify session problems.
var (
	notLoggedInMarkers = []string{
		"not logged in",
	}
	invalidRefreshMarkers = []string{
		"invalid refresh token",
		"refresh token expired",
		"token expired, was revoked",
		"log back in to re-authenticate",
		"invalid_token",
	}
	unauthorizedMarkers = []string{
		"not authorized",
		"unauthorized",
		"authentication has expired",
		"invalid auth token",
		"cf-invalidauthtoken",
	}
)

// Session is the cf command-line session shared by every platform operation
// that cannot go through the HTTP API.
type Session struct {
	runner  Runner
	logger  capi.Logger
	timeout time.Duration
}

// NewSession creates a session over runner.
func NewSession(runner Runner, logger capi.Logger) *Session {
	return &Session{
		runner:  runner,
		logger:  logger,
		timeout: constants.DefaultCLITimeout,
	}
}

// SetTimeout bounds each cf invocation. Non-positive values are ignored.
func (s *Session) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		s.timeout = timeout
	}
}

func (s *Session) run(ctx context.Context, env []string, args ...string) (*Output, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.logger.Debug("running cf command", map[string]interface{}{
		"command": args[0],
	})

	return s.runner.Run(ctx, env, args...)
}

// OAuthToken mints a bearer token through "cf oauth-token" and returns the raw
// JWT without its "bearer" prefix. An expired refresh credential yields an
// error wrapping ErrInvalidRefreshToken, a missing login ErrNotLoggedIn.
func (s *Session) OAuthToken(ctx context.Context) (string, error) {
	out, err := s.run(ctx, nil, "oauth-token")
	if err != nil {
		return "", classify(out, err)
	}

	raw := strings.TrimSpace(string(out.Stdout))
	if fields := strings.Fields(raw); len(fields) == 2 && strings.EqualFold(fields[0], "bearer") {
		raw = fields[1]
	}

	if raw == "" {
		return "", fmt.Errorf("%w: empty oauth-token output", constants.ErrCLIResponseParse)
	}

	return raw, nil
}

// Authenticate targets the platform API and logs in with the password grant.
// Credentials travel through the environment so they never show up in the
// process list.
func (s *Session) Authenticate(ctx context.Context, platform *capi.PlatformInstance, username, password string) error {
	args := []string{"api", platform.APIAddress}
	if platform.SkipSSLValidation {
		args = append(args, "--skip-ssl-validation")
	}

	out, err := s.run(ctx, nil, args...)
	if err != nil {
		return fmt.Errorf("failed to set API endpoint %s: %w", platform.APIAddress, describe(out, err))
	}

	out, err = s.run(ctx, []string{"CF_USERNAME=" + username, "CF_PASSWORD=" + password}, "auth")
	if err != nil {
		return fmt.Errorf("failed to authenticate against %s: %w", platform.Name, classify(out, err))
	}

	s.logger.Info("authenticated", map[string]interface{}{
		"platform": platform.Name,
		"user":     username,
	})

	return nil
}

// Target selects an organization and optionally a space.
func (s *Session) Target(ctx context.Context, org, space string) error {
	args := []string{"target", "-o", org}
	if space != "" {
		args = append(args, "-s", space)
	}

	out, err := s.run(ctx, nil, args...)
	if err != nil {
		return fmt.Errorf("failed to target %s: %w", org, classify(out, err))
	}

	return nil
}

// Logout ends the cf session.
func (s *Session) Logout(ctx context.Context) error {
	out, err := s.run(ctx, nil, "logout")
	if err != nil {
		return fmt.Errorf("failed to log out: %w", describe(out, err))
	}

	return nil
}

// Traced runs a cf command with -v and returns the JSON bodies of every
// response whose request path starts with requestPath. Authorization failures
// wrap ErrCLIAuthorizationFailed; unreadable output wraps ErrCLIResponseParse.
func (s *Session) Traced(ctx context.Context, requestPath string, args ...string) ([][]byte, error) {
	out, err := s.run(ctx, nil, append(args, "-v")...)
	if err != nil {
		return nil, fmt.Errorf("cf %s: %w", args[0], classify(out, err))
	}

	bodies, err := FindResponses(string(out.Stdout), requestPath)
	if err != nil {
		if unauthorized(out.Combined()) {
			return nil, fmt.Errorf("cf %s: %w", args[0], constants.ErrCLIAuthorizationFailed)
		}

		return nil, fmt.Errorf("cf %s: %w", args[0], err)
	}

	return bodies, nil
}

// classify maps a failed invocation onto the session error taxonomy.
func classify(out *Output, err error) error {
	if out == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	text := strings.ToLower(out.Combined())

	switch {
	case containsAny(text, invalidRefreshMarkers):
		return fmt.Errorf("%w: %s", constants.ErrInvalidRefreshToken, failureLine(out))
	case containsAny(text, notLoggedInMarkers):
		return constants.ErrNotLoggedIn
	case containsAny(text, unauthorizedMarkers):
		return fmt.Errorf("%w: %s", constants.ErrCLIAuthorizationFailed, failureLine(out))
	default:
		return describe(out, err)
	}
}

func describe(out *Output, err error) error {
	if out == nil {
		return err
	}

	if line := failureLine(out); line != "" {
		return fmt.Errorf("%w: %s", err, line)
	}

	return err
}

func unauthorized(text string) bool {
	return containsAny(strings.ToLower(text), unauthorizedMarkers)
}

func containsAny(text string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(text, marker) {
			return true
		}
	}

	return false
}

// failureLine returns the last meaningful line, where cf prints its failure.
func failureLine(out *Output) string {
	lines := strings.Split(strings.TrimSpace(out.Combined()), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line != "" && line != "FAILED" {
			return line
		}
	}

	return ""
}
