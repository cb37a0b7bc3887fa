package config

const (
	LogLevelDebug   string = "debug"
	LogLevelInfo    string = "info"
	LogLevelWarning string = "warn"
	LogLevelError   string = "error"

	LogFilePath string = "raid-simulator/log/log_output.txt"

	Version string = "0.1.0"
)

// Stripe I/O engine defaults (spec §3/§5).
const (
	// DefaultMaxStripes is MAX_STRIPES, the bound on simultaneously
	// mapped stripes in the stripe cache.
	DefaultMaxStripes = 128

	// StripeRequestPoolFactor is the multiplier applied to MAX_STRIPES to
	// size the module-wide stripe request pool (spec: "pre-sized pool of
	// MAX_STRIPES * 4 objects").
	StripeRequestPoolFactor = 4

	// DefaultNumChannels is the channel count the CLI passes to
	// raid5.Start, which divides the stripe request pool and incoming I/O
	// across that many channels. Start itself falls back to 1 channel when
	// given fewer than 1.
	DefaultNumChannels = 4

	// DefaultBufAlign is the DMA alignment requested for stripe scratch
	// buffers, matching the common NVMe/SPDK minimum.
	DefaultBufAlign = 4096
)
