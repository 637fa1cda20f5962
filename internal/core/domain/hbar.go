package domain

import (
	"fmt"
	"math"
)

// TinybarPerHbar is the number of subunits in one HBAR.
const TinybarPerHbar = 100_000_000

// maxHbar is the largest display amount that still fits in an int64 tinybar value.
const maxHbar = float64(math.MaxInt64) / TinybarPerHbar

// ToTinybar converts a display-denominated HBAR amount to tinybars.
// The result is rounded to the nearest tinybar.
func ToTinybar(hbar float64) (int64, error) {
	if math.IsNaN(hbar) || math.IsInf(hbar, 0) {
		return 0, fmt.Errorf("amount is not a finite number")
	}
	if hbar > maxHbar || hbar < -maxHbar {
		return 0, fmt.Errorf("amount %g overflows tinybar range", hbar)
	}
	return int64(math.Round(hbar * TinybarPerHbar)), nil
}

// FromTinybar converts tinybars back to the display denomination.
func FromTinybar(tinybar int64) float64 {
	return float64(tinybar) / TinybarPerHbar
}
