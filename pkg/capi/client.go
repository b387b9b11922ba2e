package capi

import (
	"context"
	"time"
)

// ResourceClient is the resilient view of a Cloud Foundry inventory. Every
// operation reports its outcome as a Result instead of an error; a stale token
// is invalidated and the call retried before a failure is reported.
type ResourceClient interface {
	ListOrganizations(ctx context.Context, platform *PlatformInstance) Result[[]*Organization]
	ListSpaces(ctx context.Context, org *Organization) Result[[]*Space]
	ListApplications(ctx context.Context, space *Space) Result[[]*App]
	GetApp(ctx context.Context, platform *PlatformInstance, guid string) Result[*App]

	StartApp(ctx context.Context, app *App) Result[*App]
	StopApp(ctx context.Context, app *App) Result[*App]
	RestartApp(ctx context.Context, app *App) Result[*App]
	DeleteApp(ctx context.Context, app *App) Result[*App]

	ListBuildpacks(ctx context.Context, platform *PlatformInstance) Result[[]*Buildpack]
	ListStacks(ctx context.Context, platform *PlatformInstance) Result[[]*Stack]
	ListServiceOfferings(ctx context.Context, platform *PlatformInstance) Result[[]*ServiceOffering]
}

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Config represents the configuration used to build a resilient client.
//
// # Authentication
//
// Tokens are never configured directly. They are minted on demand by the cf
// command-line session found at CFBinary (default "cf"), which must already be
// logged in, and cached in memory until the Cloud Controller rejects them.
//
// # Retries
//
// RetryBudget bounds the number of invalidate-and-retry cycles per operation
// (default 1). Transport-level retries of the HTTP layer are separate and off
// unless HTTPRetryMax is positive.
//
// # TLS
//
// SkipTLSVerify disables certificate validation for the Cloud Controller.
// Platforms with SkipSSLValidation set override it per request.
type Config struct {
	// Required fields
	// APIEndpoint: default base URL for the CF API, used when a platform has no
	// address of its own (e.g., "https://api.example.com").
	APIEndpoint string

	// CFBinary: path or name of the cf executable used for token minting and
	// traced commands.
	CFBinary string
	// CFHome: optional CF_HOME for the cf session. Empty means the user's default.
	CFHome string

	// RetryBudget: invalidate-and-retry cycles after a failed remote call.
	// Negative values are treated as zero.
	RetryBudget int

	// HTTPTimeout: per-request timeout for the HTTP layer.
	HTTPTimeout time.Duration
	// HTTPRetryMax: transport retries for 5xx/429/connection errors. Zero disables them.
	HTTPRetryMax int
	// RetryWaitMin: minimum backoff between transport retries.
	RetryWaitMin time.Duration
	// RetryWaitMax: maximum backoff between transport retries.
	RetryWaitMax time.Duration

	// Debug: enables request/response logging when a Logger is provided.
	Debug bool
	// Logger: optional structured logger.
	Logger Logger
	// SkipTLSVerify: skip certificate validation for every platform.
	SkipTLSVerify bool
	// UserAgent: overrides the default User-Agent header sent by the client.
	UserAgent string
}
