// Package constants provides shared constants for the bigmac-dashboard application.
package constants

// DateLayout is the canonical calendar-date format used in inputs and outputs.
const DateLayout = "2006-01-02"

// Analysis defaults
const (
	// DefaultCountry is the ISO 3166 alpha-3 code analysed when none is given.
	DefaultCountry = "CHN"

	// DefaultChangePointPercentile flags the largest 10% of record-over-record moves.
	DefaultChangePointPercentile = 90.0

	// AutoDetectUnitThreshold is the column mean above which rates are
	// assumed to be quoted per 100 units of foreign currency.
	AutoDetectUnitThreshold = 500.0

	// PerHundredDivisor converts a per-100 quote to a per-unit quote.
	PerHundredDivisor = 100.0

	// PolicyImpactDays is the span compared before and after a policy event.
	PolicyImpactDays = 180

	// DefaultMovingAverageWindow is the trailing window, in records, of the
	// deviation moving average.
	DefaultMovingAverageWindow = 3

	// EventProximityDays is the distance within which a reference event is
	// considered related to a change point.
	EventProximityDays = 30

	// PercentageMultiplier is used for percentage conversions
	PercentageMultiplier = 100.0
)

// Rate unit options
const (
	// RateUnitPerOne means the rate column is already local currency per 1 USD.
	RateUnitPerOne = "per-1"

	// RateUnitPerHundred means the rate column is quoted per 100 USD.
	RateUnitPerHundred = "per-100"

	// RateUnitAutoDetect applies the magnitude heuristic.
	RateUnitAutoDetect = "auto-detect"
)

// Narrative provider options
const (
	ProviderDeepSeek = "deepseek"
	ProviderMock     = "mock"
	ProviderAuto     = "auto"
)

// Remote chat-completion defaults
const (
	DefaultChatBaseURL     = "https://api.deepseek.com"
	DefaultChatModel       = "deepseek-chat"
	DefaultChatTemperature = 0.7
	DefaultChatMaxTokens   = 2000
	APIKeyEnvVar           = "DEEPSEEK_API_KEY"
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// ExampleConfigFile is the example configuration file name
	ExampleConfigFile = "config.yaml.example"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the API
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for data files (10 MB)
	DefaultMaxUploadSizeBytes int64 = 10 * 1024 * 1024

	// DefaultSessionTTLMinutes is how long an idle analysis session is kept, in minutes.
	DefaultSessionTTLMinutes = 60

	// DefaultShutdownTimeoutSeconds bounds graceful HTTP shutdown.
	DefaultShutdownTimeoutSeconds = 10
)
