package insights

import (
	"fmt"
	"math"
)

// ChangePercent is the relative change from previous to current in percent.
// A zero base yields 0 when current is also zero and 100 otherwise.
func ChangePercent(current, previous float64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return (current - previous) / math.Abs(previous) * 100
}

// FormatNumber abbreviates large values with K, M or B and two decimals.
func FormatNumber(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%.2fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.2fK", v/1e3)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

// FormatPercent renders a signed percentage with one decimal, e.g. "+12.5%".
func FormatPercent(v float64) string {
	return fmt.Sprintf("%+.1f%%", v)
}

func trendOf(v float64) string {
	switch {
	case v > 0:
		return "up"
	case v < 0:
		return "down"
	default:
		return "neutral"
	}
}
