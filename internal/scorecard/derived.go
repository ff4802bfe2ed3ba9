package scorecard

import (
	"math"
	"strings"
)

// Rule defines one dependent KPI as a ratio of two base KPIs owned by the
// same entity. The table is static; it is not configuration.
type Rule struct {
	Result      string
	Numerator   string
	Denominator string
	// RoundTenths applies the fixed per-KPI rounding policy; everything
	// else stays at full precision.
	RoundTenths bool
}

var Rules = []Rule{
	{Result: "CP ELR", Numerator: "CP Labour Sales", Denominator: "CP Hours"},
	{Result: "CP Hours Per RO", Numerator: "CP Hours", Denominator: "CP RO Count", RoundTenths: true},
	{Result: "Parts To Labour Ratio", Numerator: "Parts Sold", Denominator: "Lab Sold"},
}

// Derive computes every rule whose result KPI the defined predicate
// accepts and whose inputs are present in values, which must hold one
// owner's (kpi name → value) pairs for one period. Callers group by owner
// before calling; passing a single owner's values is what keeps derivation
// from ever mixing owners. Results computed earlier in the pass are
// visible to later rules, but a KPI already computed in this pass is never
// re-entered, so the single pass is cycle-safe. Skipped rules (missing
// input, zero denominator) are counted, not errors.
func Derive(values map[string]float64, defined func(name string) bool) (derived map[string]float64, skipped int) {
	scope := make(map[string]float64, len(values))
	for k, v := range values {
		scope[normKey(k)] = v
	}
	derived = make(map[string]float64)

	for _, r := range Rules {
		if defined != nil && !defined(r.Result) {
			continue
		}
		rk := normKey(r.Result)
		if _, done := derived[rk]; done {
			continue
		}
		num, okN := scope[normKey(r.Numerator)]
		den, okD := scope[normKey(r.Denominator)]
		if !okN || !okD || den == 0 {
			skipped++
			continue
		}
		v := num / den
		if r.RoundTenths {
			v = math.Round(v*10) / 10
		}
		derived[rk] = v
		scope[rk] = v
	}

	out := make(map[string]float64, len(derived))
	for _, r := range Rules {
		if v, ok := derived[normKey(r.Result)]; ok {
			out[r.Result] = v
		}
	}
	return out, skipped
}

func normKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
