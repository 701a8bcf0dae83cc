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

	// IdleConnTimeout is how long idle connections stay pooled.
	IdleConnTimeout = 90 * time.Second
)

// Retry limits. The framework core never retries; these apply only when a
// caller opts in through the transport's retry configuration.
const (
	// DefaultRetryMax disables retries unless explicitly configured.
	DefaultRetryMax = 0

	// DefaultRetryWaitMin is the minimum wait between opted-in retries.
	DefaultRetryWaitMin = 1 * time.Second

	// DefaultRetryWaitMax is the maximum wait between opted-in retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// Buffer sizes.
const (
	// SmallBufferSize is used for smaller channels such as page streams.
	SmallBufferSize = 10
)

// Token handling.
const (
	// TokenExpirationBuffer is the buffer time before token expiration.
	TokenExpirationBuffer = 30 * time.Second
)

// Circuit breaker defaults.
const (
	// CircuitBreakerThreshold is the failure count that opens the breaker.
	CircuitBreakerThreshold = 5

	// CircuitBreakerSuccessThreshold closes a half-open breaker.
	CircuitBreakerSuccessThreshold = 2

	// CircuitBreakerTimeout is how long an open breaker waits before probing.
	CircuitBreakerTimeout = 30 * time.Second
)

// Circuit breaker states.
const (
	// StatusClosed indicates a closed (healthy) breaker.
	StatusClosed = "closed"

	// StatusOpen indicates an open (failing) breaker.
	StatusOpen = "open"

	// StatusHalfOpen indicates a breaker probing for recovery.
	StatusHalfOpen = "half-open"
)

// Cache defaults.
const (
	// DefaultCacheSize is the default cache entry limit.
	DefaultCacheSize = 1000

	// DefaultCacheTTL is the default cache time-to-live.
	DefaultCacheTTL = 5 * time.Minute

	// CacheCleanupInterval is how often expired cache entries are swept.
	CacheCleanupInterval = 1 * time.Minute

	// MaxCacheValueSize is the maximum size for cached values (1MB).
	MaxCacheValueSize = 1024 * 1024
)

// Client identification.
const (
	// ClientName identifies this library in User-Agent headers.
	ClientName = "teatime-go"

	// DefaultUserAgent is sent when no User-Agent override is configured.
	DefaultUserAgent = "teatime-go/1.0"
)

// Output format constants.
const (
	// FormatJSON for JSON output format.
	FormatJSON = "json"

	// FormatYAML for YAML output format.
	FormatYAML = "yaml"

	// FormatTable for table output format.
	FormatTable = "table"
)

// Display constants.
const (
	// MaskedSecret is used to hide sensitive information.
	MaskedSecret = "***"

	// NotAvailable is used when information is not available.
	NotAvailable = "N/A"

	// JSONIndentSize is the number of spaces for JSON and YAML indentation.
	JSONIndentSize = 2
)

// Pagination limits.
const (
	// DefaultMaxPages bounds autopagination when a caller sets no explicit
	// limit. Zero means unbounded.
	DefaultMaxPages = 0

	// StreamPageBuffer is the channel depth for streamed pages.
	StreamPageBuffer = SmallBufferSize
)
