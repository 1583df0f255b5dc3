package domain

// RiskLevel is the operational urgency tier assigned to a prediction.
type RiskLevel string

const (
	RiskCritical RiskLevel = "critical"
	RiskHigh     RiskLevel = "high"
	RiskMedium   RiskLevel = "medium"
	RiskLow      RiskLevel = "low"
)

// Confidence grades how much weight to give a raw days-to-fire estimate.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// RiskThresholds hold the inclusive upper bound of rounded days-to-fire for
// each tier. Anything above Medium is low risk.
type RiskThresholds struct {
	Critical int
	High     int
	Medium   int
}

// DefaultRiskThresholds returns the operational defaults: a fire expected
// within 2 days is critical, within a week high, within two weeks medium.
func DefaultRiskThresholds() RiskThresholds {
	return RiskThresholds{Critical: 2, High: 7, Medium: 14}
}

// Level maps a rounded days-to-fire estimate to its risk tier.
func (t RiskThresholds) Level(daysRounded int) RiskLevel {
	switch {
	case daysRounded <= t.Critical:
		return RiskCritical
	case daysRounded <= t.High:
		return RiskHigh
	case daysRounded <= t.Medium:
		return RiskMedium
	default:
		return RiskLow
	}
}

// ConfidenceFor grades the raw (unrounded) days-to-fire estimate.
// Near-term estimates within two weeks are high confidence, up to three
// weeks medium, anything further low. The bands are one-sided: a negative
// estimate (the model placing the fire in the past) also grades low.
func ConfidenceFor(daysRaw float64) Confidence {
	switch {
	case daysRaw >= 0 && daysRaw <= 14:
		return ConfidenceHigh
	case daysRaw > 14 && daysRaw <= 21:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
