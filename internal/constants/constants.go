package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations.
	ShortHTTPTimeout = 10 * time.Second

	// DefaultCLITimeout bounds a single invocation of the cf executable.
	DefaultCLITimeout = 60 * time.Second
)

// Retry limits.
const (
	// DefaultRetryBudget is the number of token-refresh retries granted to each remote operation.
	DefaultRetryBudget = 1

	// DefaultHTTPRetryMax is the transport-level retry count. Zero disables transport retries.
	DefaultHTTPRetryMax = 0

	// DefaultRetryWaitMin is the minimum wait time between transport retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait time between transport retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// Concurrency limits.
const (
	// DefaultRefreshConcurrency limits concurrent subtree refreshes in a full sweep.
	DefaultRefreshConcurrency = 8

	// OwnerQueueSize is the buffer size of the tree owner loop.
	OwnerQueueSize = 64
)

// Cloud Foundry specific values.
const (
	// DefaultCFBinary is the name of the cf executable looked up on PATH.
	DefaultCFBinary = "cf"
)

// Pagination.
const (
	// StandardPageSize is the page size requested from list endpoints.
	StandardPageSize = 100

	// MaxPages is used to prevent infinite loops in pagination.
	MaxPages = 50
)

// Token decoding.
const (
	// Base64PaddingLength is used for base64 padding calculations.
	Base64PaddingLength = 4

	// TokenPartsCount is the expected number of parts in a JWT token.
	TokenPartsCount = 3

	// TokenExpiryWarning is the window in which a token is reported as expiring soon.
	TokenExpiryWarning = 5 * time.Minute
)

// Watch and UI intervals.
const (
	// DefaultWatchInterval is the default period between full refresh sweeps.
	DefaultWatchInterval = 30 * time.Second

	// MinWatchInterval is the smallest accepted sweep period.
	MinWatchInterval = 2 * time.Second

	// DefaultTreeDepth is how deep the tree command expands by default, down to
	// applications.
	DefaultTreeDepth = 4
)

// NATS defaults.
const (
	// DefaultNATSSubjectPrefix prefixes subjects of published tree events.
	DefaultNATSSubjectPrefix = "cfsync.tree"

	// NATSConnectTimeout bounds the initial NATS connection.
	NATSConnectTimeout = 5 * time.Second
)

// Output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Configuration locations.
const (
	// ConfigDirName is the directory below the user's home holding the config file.
	ConfigDirName = ".cfsync"

	// ConfigFileName is the config file name without extension.
	ConfigFileName = "config"

	// EnvPrefix prefixes environment variables overriding config keys.
	EnvPrefix = "CFSYNC"
)
