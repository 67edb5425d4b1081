package resilience

import "time"

// Circuit breaker configuration constants
const (
	// Default configuration
	DefaultThreshold         = 5
	DefaultResetTimeout      = 30 * time.Second
	DefaultHalfOpenSuccesses = 3

	// Capture configuration, shared by the lens loop and one-shot captures
	CaptureResetTimeout      = 2 * time.Second
	CaptureHalfOpenSuccesses = 1
)

// Config holds circuit breaker settings.
type Config struct {
	Name              string        // used in log records
	Threshold         int           // failures before opening
	ResetTimeout      time.Duration // wait before half-open attempt
	HalfOpenSuccesses int           // successes needed to close
}

// CaptureConfig returns settings for a frame-grab loop that gives up after
// threshold consecutive failures.
func CaptureConfig(threshold int) Config {
	return Config{
		Name:              "capture",
		Threshold:         threshold,
		ResetTimeout:      CaptureResetTimeout,
		HalfOpenSuccesses: CaptureHalfOpenSuccesses,
	}
}

// SnapshotConfig returns settings for one-shot captures (eyedropper, region
// filter). After threshold failures captures are refused for
// CaptureResetTimeout, then a single success closes the breaker again.
func SnapshotConfig(threshold int) Config {
	c := CaptureConfig(threshold)
	c.Name = "snapshot"
	return c
}

func (c Config) withDefaults() Config {
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = DefaultResetTimeout
	}
	if c.HalfOpenSuccesses <= 0 {
		c.HalfOpenSuccesses = DefaultHalfOpenSuccesses
	}
	return c
}
