package scorecard

import (
	"testing"

	"github.com/dealerscore/backend/internal/models"
)

func TestComputeAboveDirection(t *testing.T) {
	cases := []struct {
		actual, target float64
		want           Status
	}{
		{110, 100, StatusGreen},  // +10%
		{100, 100, StatusGreen},  // on target
		{95, 100, StatusYellow},  // -5%
		{90, 100, StatusYellow},  // exactly -10%
		{80, 100, StatusRed},     // -20%
	}
	for _, c := range cases {
		_, got := Compute(c.actual, c.target, models.MetricDollar, models.DirectionAbove)
		if got != c.want {
			t.Fatalf("Compute(%v,%v,above) = %s, want %s", c.actual, c.target, got, c.want)
		}
	}
}

func TestComputeBelowDirectionInverted(t *testing.T) {
	cases := []struct {
		actual, target float64
		want           Status
	}{
		{90, 100, StatusGreen},   // under a below-target is good
		{100, 100, StatusGreen},
		{105, 100, StatusYellow}, // +5%
		{110, 100, StatusYellow}, // exactly +10%
		{120, 100, StatusRed},
	}
	for _, c := range cases {
		_, got := Compute(c.actual, c.target, models.MetricUnit, models.DirectionBelow)
		if got != c.want {
			t.Fatalf("Compute(%v,%v,below) = %s, want %s", c.actual, c.target, got, c.want)
		}
	}
}

func TestComputePercentageMetricUsesPointDifference(t *testing.T) {
	v, got := Compute(85, 90, models.MetricPercentage, models.DirectionAbove)
	if v != -5 {
		t.Fatalf("expected -5 point variance, got %v", v)
	}
	if got != StatusYellow {
		t.Fatalf("expected yellow at -5 points, got %s", got)
	}

	// A zero percentage target stays well-defined: subtraction, no division.
	v, got = Compute(4, 0, models.MetricPercentage, models.DirectionAbove)
	if v != 4 || got != StatusGreen {
		t.Fatalf("expected green +4 points on zero target, got %v %s", v, got)
	}
}

func TestComputeZeroTargetNonPercentage(t *testing.T) {
	v, got := Compute(500, 0, models.MetricDollar, models.DirectionAbove)
	if got != StatusNone {
		t.Fatalf("expected no status on zero target, got %s", got)
	}
	if v != 0 {
		t.Fatalf("expected zero variance on zero target, got %v", v)
	}
}

func TestComputePure(t *testing.T) {
	v1, s1 := Compute(95, 100, models.MetricDollar, models.DirectionAbove)
	v2, s2 := Compute(95, 100, models.MetricDollar, models.DirectionAbove)
	if v1 != v2 || s1 != s2 {
		t.Fatalf("status must be a pure function: (%v,%s) vs (%v,%s)", v1, s1, v2, s2)
	}
}
