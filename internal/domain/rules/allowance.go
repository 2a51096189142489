package rules

import (
	"math"
	"time"
)

const (
	// MaxCups is the hard cap on a month's allowance. A purchase may never
	// push remaining above it.
	MaxCups = 12

	// PassPrice is the price of a full 12-cup pass in whole rubles.
	PassPrice = 2000
)

func MonthKey(now time.Time) string {
	return now.UTC().Format("2006-01")
}

// Headroom is how many cups a user may still buy this month under the cap.
func Headroom(remaining int) int {
	if remaining >= MaxCups {
		return 0
	}
	if remaining < 0 {
		return MaxCups
	}
	return MaxCups - remaining
}

// AmountForCups prices a top-up pro rata against the full pass.
func AmountForCups(passPrice, cups int) int {
	if passPrice <= 0 || cups <= 0 {
		return 0
	}
	return int(math.Round(float64(passPrice) * float64(cups) / float64(MaxCups)))
}
