// Package odds combines per-condition "1 in X" odds and formats them for display.
package odds

import (
	"fmt"
	"math"

	"improbable-love/internal/models"
)

// Incalculable is shown when a figure is NaN, infinite or not positive.
const Incalculable = "incalculable"

// Valid reports whether x is a finite, positive odds figure.
func Valid(x float64) bool {
	return x > 0 && !math.IsInf(x, 0) && !math.IsNaN(x)
}

// Combine returns the product of every condition's OneInX. An empty list is certain (1).
func Combine(conditions []models.Condition) float64 {
	product := 1.0
	for _, c := range conditions {
		product *= c.OneInX
	}
	return product
}

// CombineEvents multiplies the odds of every condition across all events.
func CombineEvents(events []models.Event) float64 {
	product := 1.0
	for _, e := range events {
		product *= Combine(e.Conditions)
	}
	return product
}

// FormatOdds renders x as "1 in N" using k/million/billion buckets.
func FormatOdds(x float64) string {
	if !Valid(x) {
		return Incalculable
	}
	switch {
	case x >= 1e9:
		return fmt.Sprintf("1 in %.1f billion", x/1e9)
	case x >= 1e6:
		return fmt.Sprintf("1 in %.1f million", x/1e6)
	case x >= 1e3:
		return fmt.Sprintf("1 in %.1fk", x/1e3)
	case x < 1:
		return "1 in 1"
	default:
		return fmt.Sprintf("1 in %d", int64(math.Round(x)))
	}
}

// ProgressFraction returns min(1, 1/oneInX), or 0 for an invalid figure.
func ProgressFraction(oneInX float64) float64 {
	if !Valid(oneInX) {
		return 0
	}
	return math.Min(1, 1/oneInX)
}
