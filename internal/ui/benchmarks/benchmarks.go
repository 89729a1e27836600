// Package benchmarks provides timing estimates for install stages.
package benchmarks

import (
	"time"

	"github.com/imamik/archer/internal/provisioning/stages"
)

// DefaultTimings are typical stage durations on a wired connection with a
// nearby mirror (seconds).
var DefaultTimings = map[string]int{
	stages.Partition:  5,
	stages.Format:     10,
	stages.Mount:      2,
	stages.Base:       300,
	stages.Configure:  30,
	stages.Users:      5,
	stages.Bootloader: 20,
	stages.Services:   3,
	stages.Drivers:    90,
	stages.Desktop:    600,
}

// StageRecord is the observed duration of a finished stage.
type StageRecord struct {
	Stage    string
	Duration time.Duration
}

// EstimateRemaining calculates the time left in a run over order, given the
// current stage, its elapsed time and the stages already finished.
func EstimateRemaining(order []string, current string, elapsed time.Duration, history []StageRecord) time.Duration {
	return EstimateRemainingWithScale(order, current, elapsed, history, PerformanceScale(current, elapsed, history))
}

// EstimateRemainingWithScale calculates ETA while applying a performance scale factor.
func EstimateRemainingWithScale(order []string, current string, elapsed time.Duration, history []StageRecord, scale float64) time.Duration {
	currentIdx := -1
	for i, s := range order {
		if s == current {
			currentIdx = i
			break
		}
	}
	if currentIdx < 0 {
		return 0
	}

	var remaining time.Duration

	// For the current stage: max(0, expected - elapsed)
	if expected, ok := DefaultTimings[current]; ok {
		expectedDur := time.Duration(float64(time.Duration(expected)*time.Second) * scale)
		if expectedDur > elapsed {
			remaining += expectedDur - elapsed
		}
	}

	finished := make(map[string]bool, len(history))
	for _, rec := range history {
		finished[rec.Stage] = true
	}
	for _, s := range order[currentIdx+1:] {
		if finished[s] {
			continue
		}
		if expected, ok := DefaultTimings[s]; ok {
			remaining += time.Duration(float64(time.Duration(expected)*time.Second) * scale)
		}
	}
	return remaining
}

// PerformanceScale derives a speed multiplier from observed-vs-expected durations.
// Example: expected 3m, observed 4m30s => scale=1.5 (future ETAs are stretched by 50%).
func PerformanceScale(current string, elapsed time.Duration, history []StageRecord) float64 {
	var expectedTotal, actualTotal time.Duration

	for _, rec := range history {
		secs, ok := DefaultTimings[rec.Stage]
		if !ok {
			continue
		}
		expectedTotal += time.Duration(secs) * time.Second
		actualTotal += rec.Duration
	}

	// If the current stage is overrunning, fold it in immediately so ETA adapts quickly.
	if secs, ok := DefaultTimings[current]; ok && elapsed > 0 {
		expectedCurrent := time.Duration(secs) * time.Second
		if elapsed > expectedCurrent {
			expectedTotal += expectedCurrent
			actualTotal += elapsed
		}
	}

	if expectedTotal == 0 || actualTotal == 0 {
		return 1.0
	}

	scale := float64(actualTotal) / float64(expectedTotal)
	if scale < 0.6 {
		return 0.6
	}
	if scale > 3.0 {
		return 3.0
	}
	return scale
}

// TotalEstimate returns the expected duration of a run over order.
func TotalEstimate(order []string) time.Duration {
	var total time.Duration
	for _, s := range order {
		if secs, ok := DefaultTimings[s]; ok {
			total += time.Duration(secs) * time.Second
		}
	}
	return total
}
