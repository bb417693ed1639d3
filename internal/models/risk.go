package models

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Level thresholds over the summed signal score.
const (
	RiskScoreMedium   = 15
	RiskScoreHigh     = 35
	RiskScoreCritical = 60
)

// RiskLevelForScore maps a summed signal score onto the ordinal level.
func RiskLevelForScore(score int) RiskLevel {
	switch {
	case score >= RiskScoreCritical:
		return RiskCritical
	case score >= RiskScoreHigh:
		return RiskHigh
	case score >= RiskScoreMedium:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Color returns the display color for the level. Presentation metadata the
// caller may ignore.
func (l RiskLevel) Color() string {
	switch l {
	case RiskCritical:
		return "#dc2626"
	case RiskHigh:
		return "#ea580c"
	case RiskMedium:
		return "#ca8a04"
	default:
		return "#16a34a"
	}
}

// Badge returns a short label for the level.
func (l RiskLevel) Badge() string {
	switch l {
	case RiskCritical:
		return "CRITICAL"
	case RiskHigh:
		return "HIGH"
	case RiskMedium:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

// RiskAssessment is the risk engine's output for one transaction.
type RiskAssessment struct {
	Score           int       `json:"score"`
	Level           RiskLevel `json:"level"`
	Reasons         []string  `json:"reasons"`
	Recommendations []string  `json:"recommendations"`
	Color           string    `json:"color"`
	Badge           string    `json:"badge"`
}
