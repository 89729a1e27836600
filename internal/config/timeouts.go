package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds the executor's timing and concurrency settings.
// These values can be customized via environment variables.
type Timeouts struct {
	Action            time.Duration // Bound on each command; zero means unbounded
	Compensation      time.Duration // Bound on the whole rollback pass after a failure or interrupt
	RetryMaxAttempts  int           // Retries of an idempotent action after its first failure
	RetryInitialDelay time.Duration // Initial delay between retries
	Workers           int           // Parallel group pool size; zero means min(NumCPU, 4)
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - ARCHER_TIMEOUT_ACTION (default: 0, unbounded)
//   - ARCHER_TIMEOUT_COMPENSATION (default: 5m)
//   - ARCHER_RETRY_MAX_ATTEMPTS (default: 1)
//   - ARCHER_RETRY_INITIAL_DELAY (default: 2s)
//   - ARCHER_WORKERS (default: 0)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		Action:            parseDuration("ARCHER_TIMEOUT_ACTION", 0),
		Compensation:      parseDuration("ARCHER_TIMEOUT_COMPENSATION", 5*time.Minute),
		RetryMaxAttempts:  parseInt("ARCHER_RETRY_MAX_ATTEMPTS", 1),
		RetryInitialDelay: parseDuration("ARCHER_RETRY_INITIAL_DELAY", 2*time.Second),
		Workers:           parseInt("ARCHER_WORKERS", 0),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set, parsing fails or the value is negative, the
// default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set, parsing fails or the value is negative, the
// default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}

	return i
}
