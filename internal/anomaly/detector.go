// Package anomaly flags campaign metrics that moved unusually far from their
// recent history, measured in population standard deviations.
package anomaly

import (
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/adpilot/internal/domain"
)

const (
	// MinHistoryPoints is the shortest history that produces a verdict.
	MinHistoryPoints = 3

	// ZThreshold is the absolute z-score above which a metric is flagged.
	ZThreshold = 2.0
)

type Metric string

const (
	MetricCPA  Metric = "cpa"
	MetricCTR  Metric = "ctr"
	MetricROAS Metric = "roas"
)

// Baseline is the population mean and standard deviation of a metric's history.
type Baseline struct {
	Mean   float64
	StdDev float64
	N      int
}

// Finding is one metric whose current value deviates beyond ZThreshold.
type Finding struct {
	Metric   Metric
	Current  float64
	Baseline Baseline
	ZScore   float64
	Severity domain.Severity
}

// Increased reports the direction of the move.
func (f Finding) Increased() bool {
	return f.ZScore > 0
}

// NewBaseline computes mean and population standard deviation (divides by N).
// It returns false for an empty series.
func NewBaseline(values []float64) (Baseline, bool) {
	if len(values) == 0 {
		return Baseline{}, false
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	sumSquares := 0.0
	for _, v := range values {
		sumSquares += (v - mean) * (v - mean)
	}

	return Baseline{
		Mean:   mean,
		StdDev: math.Sqrt(sumSquares / float64(len(values))),
		N:      len(values),
	}, true
}

// ZScore returns (value-mean)/stddev, or 0 when the history has no spread.
func (b Baseline) ZScore(value float64) float64 {
	if b.StdDev == 0 {
		return 0
	}
	return (value - b.Mean) / b.StdDev
}

// Detect compares current metrics against history (most recent last). Each
// metric is evaluated independently; fewer than MinHistoryPoints yields nil.
func Detect(current domain.Metrics, history []domain.MetricPoint) []Finding {
	if len(history) < MinHistoryPoints {
		return nil
	}

	var findings []Finding
	checks := []struct {
		metric  Metric
		current *float64
		pick    func(domain.Metrics) *float64
	}{
		{MetricCPA, current.CPA, func(m domain.Metrics) *float64 { return m.CPA }},
		{MetricCTR, current.CTR, func(m domain.Metrics) *float64 { return m.CTR }},
		{MetricROAS, current.ROAS, func(m domain.Metrics) *float64 { return m.ROAS }},
	}

	for _, c := range checks {
		if c.current == nil {
			continue
		}

		values := make([]float64, 0, len(history))
		for _, p := range history {
			if v := c.pick(p.Metrics); v != nil {
				values = append(values, *v)
			}
		}

		baseline, ok := NewBaseline(values)
		if !ok {
			continue
		}

		z := baseline.ZScore(*c.current)
		if math.Abs(z) <= ZThreshold {
			continue
		}

		findings = append(findings, Finding{
			Metric:   c.metric,
			Current:  *c.current,
			Baseline: baseline,
			ZScore:   z,
			Severity: severityFor(c.metric, z),
		})
	}

	return findings
}

func severityFor(metric Metric, z float64) domain.Severity {
	up := z > 0
	switch metric {
	case MetricCPA:
		if up {
			return domain.SeverityCritical
		}
		return domain.SeverityOpportunity
	case MetricCTR:
		if up {
			return domain.SeverityOpportunity
		}
		return domain.SeverityInfo
	case MetricROAS:
		if up {
			return domain.SeverityOpportunity
		}
		return domain.SeverityCritical
	default:
		return domain.SeverityInfo
	}
}

// Insight wraps the finding into a performance_anomaly insight for one campaign.
func (f Finding) Insight(userID uuid.UUID, accountID, campaignID string) *domain.Insight {
	var title, message string
	var actions []string

	switch f.Metric {
	case MetricCPA:
		if f.Increased() {
			title = "CPA Spike Detected"
			message = fmt.Sprintf("CPA increased to $%.2f against a recent average of $%.2f (z-score: %.2f).",
				f.Current, f.Baseline.Mean, f.ZScore)
			actions = []string{domain.ActionInvestigate, domain.ActionReviewBudget}
		} else {
			title = "CPA Improvement"
			message = fmt.Sprintf("CPA dropped to $%.2f against a recent average of $%.2f (z-score: %.2f).",
				f.Current, f.Baseline.Mean, f.ZScore)
			actions = []string{domain.ActionIncreaseBudget}
		}
	case MetricCTR:
		if f.Increased() {
			title = "CTR Surge"
			message = fmt.Sprintf("CTR increased to %.2f%% against a recent average of %.2f%% (z-score: %.2f).",
				f.Current, f.Baseline.Mean, f.ZScore)
			actions = []string{domain.ActionIncreaseBudget}
		} else {
			title = "CTR Decline"
			message = fmt.Sprintf("CTR decreased to %.2f%% against a recent average of %.2f%% (z-score: %.2f).",
				f.Current, f.Baseline.Mean, f.ZScore)
			actions = []string{domain.ActionInvestigate}
		}
	case MetricROAS:
		if f.Increased() {
			title = "ROAS Surge"
			message = fmt.Sprintf("ROAS increased to %.2fx against a recent average of %.2fx (z-score: %.2f).",
				f.Current, f.Baseline.Mean, f.ZScore)
			actions = []string{domain.ActionIncreaseBudget}
		} else {
			title = "ROAS Drop"
			message = fmt.Sprintf("ROAS dropped to %.2fx against a recent average of %.2fx (z-score: %.2f).",
				f.Current, f.Baseline.Mean, f.ZScore)
			actions = []string{domain.ActionInvestigate, domain.ActionPauseCampaign}
		}
	}

	in := domain.NewCampaignInsight(userID, accountID, campaignID,
		domain.InsightPerformanceAnomaly, f.Severity, title, message, actions...)
	in.Metadata = map[string]interface{}{
		"metric":  string(f.Metric),
		"current": f.Current,
		"mean":    f.Baseline.Mean,
		"std_dev": f.Baseline.StdDev,
		"z_score": f.ZScore,
	}
	return in
}

// MostSevere returns the finding with the highest severity, breaking ties by |z|.
// Insights are unique per campaign and type, so one pass records at most one anomaly.
func MostSevere(findings []Finding) (Finding, bool) {
	if len(findings) == 0 {
		return Finding{}, false
	}

	best := findings[0]
	for _, f := range findings[1:] {
		if f.Severity.Rank() > best.Severity.Rank() ||
			(f.Severity.Rank() == best.Severity.Rank() && math.Abs(f.ZScore) > math.Abs(best.ZScore)) {
			best = f
		}
	}
	return best, true
}
