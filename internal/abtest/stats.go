// internal/abtest/stats.go
package abtest

import (
	"math"

	"lead-funnel/internal/analytics"
)

// VariantStats aggregates assignment and conversion counts for one variant.
type VariantStats struct {
	VariantID   string  `json:"variant_id"`
	Assignments int     `json:"assignments"`
	Conversions int     `json:"conversions"`
	Rate        float64 `json:"rate"`
	CILower     float64 `json:"ci_lower"`
	CIUpper     float64 `json:"ci_upper"`
}

// Report is the dashboard view of a running test.
type Report struct {
	TestName        string         `json:"test_name"`
	Variants        []VariantStats `json:"variants"`
	LeadingVariant  string         `json:"leading_variant"`
	ConfidenceLevel float64        `json:"confidence_level"`
	Confident       bool           `json:"confident"` // >= 95%
}

// BuildReport aggregates the analytics queue into per-variant stats. Views
// are assignment events, conversions are conversion events for this test.
func (s *Service) BuildReport(events []analytics.Event) Report {
	assignments := map[string]int{}
	conversions := map[string]int{}

	for _, e := range events {
		name, _ := e.Fields["test_name"].(string)
		if name != s.cfg.TestName {
			continue
		}
		id, _ := e.Fields["variant_id"].(string)
		switch e.Event {
		case analytics.EventABAssignment:
			assignments[id]++
		case analytics.EventABConversion:
			conversions[id]++
		}
	}

	report := Report{TestName: s.cfg.TestName}
	var leading, runnerUp *VariantStats

	for _, v := range s.catalog {
		stat := VariantStats{
			VariantID:   v.ID,
			Assignments: assignments[v.ID],
			Conversions: conversions[v.ID],
		}
		if stat.Assignments > 0 {
			stat.Rate = float64(stat.Conversions) / float64(stat.Assignments)
		}
		stat.CILower, stat.CIUpper = WilsonInterval(stat.Conversions, stat.Assignments, 0.95)
		report.Variants = append(report.Variants, stat)
	}

	for i := range report.Variants {
		stat := &report.Variants[i]
		if leading == nil || stat.Rate > leading.Rate {
			runnerUp = leading
			leading = stat
		} else if runnerUp == nil || stat.Rate > runnerUp.Rate {
			runnerUp = stat
		}
	}

	if leading != nil {
		report.LeadingVariant = leading.VariantID
		if runnerUp != nil {
			report.ConfidenceLevel = SignificanceTest(
				leading.Conversions, leading.Assignments,
				runnerUp.Conversions, runnerUp.Assignments,
			)
			report.Confident = report.ConfidenceLevel >= 0.95
		}
	}

	return report
}

// WilsonInterval calculates the Wilson score confidence interval for a
// binomial proportion. More accurate for small samples than the normal
// approximation.
func WilsonInterval(successes, trials int, confidence float64) (lower, upper float64) {
	if trials == 0 {
		return 0, 0
	}

	z := zScore(confidence)
	p := float64(successes) / float64(trials)
	n := float64(trials)

	denominator := 1 + z*z/n
	center := (p + z*z/(2*n)) / denominator
	spread := (z / denominator) * math.Sqrt(p*(1-p)/n+z*z/(4*n*n))

	lower = center - spread
	upper = center + spread

	if lower < 0 {
		lower = 0
	}
	if upper > 1 {
		upper = 1
	}

	return lower, upper
}

// SignificanceTest performs a two-proportion z-test and returns the
// confidence (0-1) that variant A beats variant B.
func SignificanceTest(aConv, aViews, bConv, bViews int) float64 {
	if aViews == 0 || bViews == 0 {
		return 0.5 // need data from both variants
	}

	pA := float64(aConv) / float64(aViews)
	pB := float64(bConv) / float64(bViews)

	pooledP := float64(aConv+bConv) / float64(aViews+bViews)
	se := math.Sqrt(pooledP * (1 - pooledP) * (1/float64(aViews) + 1/float64(bViews)))

	if se == 0 {
		switch {
		case pA > pB:
			return 1.0
		case pA < pB:
			return 0.0
		default:
			return 0.5
		}
	}

	z := (pA - pB) / se
	return normalCDF(z)
}

func zScore(confidence float64) float64 {
	switch {
	case confidence >= 0.99:
		return 2.576
	case confidence >= 0.95:
		return 1.96
	case confidence >= 0.90:
		return 1.645
	default:
		return 1.28
	}
}

// normalCDF approximates the standard normal CDF using Abramowitz and
// Stegun formula 7.1.26.
func normalCDF(x float64) float64 {
	a1 := 0.254829592
	a2 := -0.284496736
	a3 := 1.421413741
	a4 := -1.453152027
	a5 := 1.061405429
	p := 0.3275911

	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	x = math.Abs(x) / math.Sqrt(2)

	t := 1.0 / (1.0 + p*x)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-x*x)

	return 0.5 * (1.0 + sign*y)
}
