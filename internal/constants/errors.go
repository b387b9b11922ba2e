package constants

import "errors"

// Authentication errors.
var (
	ErrTokenUnavailable    = errors.New("no access token available, please run 'cfsync login'")
	ErrInvalidRefreshToken = errors.New("refresh token is invalid or expired, please run 'cfsync login' again")
	ErrInvalidJWTFormat    = errors.New("invalid JWT format")
	ErrNotLoggedIn         = errors.New("not logged in")
)

// CLI session errors.
var (
	ErrCLINotFound            = errors.New("cf executable not found")
	ErrCLICommandFailed       = errors.New("cf command failed")
	ErrCLIAuthorizationFailed = errors.New("cf command was not authorized")
	ErrCLIResponseParse       = errors.New("failed to parse cf command response")
	ErrCLIRequestNotFound     = errors.New("request not found in cf trace output")
)

// Configuration errors.
var (
	ErrNoPlatformsConfigured = errors.New("no platforms configured, add one under 'platforms' in the config file")
	ErrPlatformNotFound      = errors.New("platform not found in configuration")
	ErrAPIEndpointRequired   = errors.New("API endpoint is required")
	ErrInvalidOutputFormat   = errors.New("invalid output format")
	ErrInvalidWatchInterval  = errors.New("watch interval is too short")
)

// Resource lookup errors.
var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrSpaceNotFound        = errors.New("space not found")
	ErrApplicationNotFound  = errors.New("application not found")
	ErrNotAnApplication     = errors.New("node is not an application")
)

// Resilient client errors.
var (
	ErrMissingPlatform = errors.New("resource is not linked to a platform")
	ErrMissingParent   = errors.New("resource is not linked to its parent")
)
