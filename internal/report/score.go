package report

import "math"

// RiskScore weighs exploitability and impact (each 1..3) and confidence
// (0..1) as 0.4/0.4/0.2, rounded to two decimals.
func RiskScore(exploitability, impact int, confidence float64) float64 {
	raw := 0.4*float64(exploitability) + 0.4*float64(impact) + 0.2*confidence
	return math.Round(raw*100) / 100
}

// SeverityOf buckets a risk score. The maximum score is 2.6.
func SeverityOf(score float64) Severity {
	switch {
	case score >= 2.4:
		return SeverityHigh
	case score >= 1.6:
		return SeverityMedium
	default:
		return SeverityLow
	}
}
