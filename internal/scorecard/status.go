package scorecard

import "github.com/dealerscore/backend/internal/models"

type Status string

const (
	StatusGreen  Status = "green"
	StatusYellow Status = "yellow"
	StatusRed    Status = "red"
	// StatusNone is returned when no meaningful variance exists: a
	// non-percentage metric with a zero target cannot be compared
	// relatively, so the value is kept but carries no color.
	StatusNone Status = "none"
)

// Variance is the distance from target: absolute points for percentage
// metrics, relative percent otherwise.
func Variance(actual, target float64, percentage bool) float64 {
	if percentage {
		return actual - target
	}
	if target == 0 {
		return 0
	}
	return (actual - target) / target * 100
}

// Compute is the shared status primitive used by manual entry and derived
// values alike. Pure: same inputs always yield the same status.
func Compute(actual, target float64, metricType models.MetricType, direction models.TargetDirection) (float64, Status) {
	percentage := metricType == models.MetricPercentage
	if !percentage && target == 0 {
		return 0, StatusNone
	}
	v := Variance(actual, target, percentage)

	if direction == models.DirectionBelow {
		switch {
		case v <= 0:
			return v, StatusGreen
		case v <= 10:
			return v, StatusYellow
		default:
			return v, StatusRed
		}
	}
	switch {
	case v >= 0:
		return v, StatusGreen
	case v >= -10:
		return v, StatusYellow
	default:
		return v, StatusRed
	}
}
