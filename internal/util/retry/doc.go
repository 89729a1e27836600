// Package retry re-runs failed operations with exponential backoff.
//
// The executor uses [Do] for idempotent install actions. Non-idempotent
// work must never go through this package.
package retry
