package biz

import "math"

// QualityLevel grades a quality score.
type QualityLevel string

const (
	QualityHigh         QualityLevel = "HIGH"
	QualityMedium       QualityLevel = "MEDIUM"
	QualityLow          QualityLevel = "LOW"
	QualityInsufficient QualityLevel = "INSUFFICIENT"
)

// Minimum scores for each level. Anything below QualityLowThreshold is INSUFFICIENT.
const (
	QualityHighThreshold   = 85
	QualityMediumThreshold = 60
	QualityLowThreshold    = 30
)

// QualityThresholds holds the minimum score of each level.
type QualityThresholds struct {
	High   int
	Medium int
	Low    int
}

// DefaultQualityThresholds returns the standard cut points.
func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{
		High:   QualityHighThreshold,
		Medium: QualityMediumThreshold,
		Low:    QualityLowThreshold,
	}
}

// QualityFactor is one expected input of a response and whether it was obtained.
type QualityFactor struct {
	Name      string  `json:"name"`
	Available bool    `json:"available"`
	Weight    float64 `json:"weight"`
}

// DataQualityAssessment is a 0-100 score and its level.
type DataQualityAssessment struct {
	Score int          `json:"score"`
	Level QualityLevel `json:"level"`
}

// LevelForScore maps a score to a level using t.
func LevelForScore(score int, t QualityThresholds) QualityLevel {
	switch {
	case score >= t.High:
		return QualityHigh
	case score >= t.Medium:
		return QualityMedium
	case score >= t.Low:
		return QualityLow
	default:
		return QualityInsufficient
	}
}

// CalculateDataQuality scores factors with the default thresholds.
func CalculateDataQuality(factors []QualityFactor) DataQualityAssessment {
	return CalculateDataQualityWith(factors, DefaultQualityThresholds())
}

// CalculateDataQualityWith computes round(100 * available weight / total weight).
// Negative or non-finite weights count as zero. With no usable weight the
// score is 0 and the level INSUFFICIENT.
func CalculateDataQualityWith(factors []QualityFactor, t QualityThresholds) DataQualityAssessment {
	var total, available float64
	for _, f := range factors {
		w := f.Weight
		if !(w > 0) || math.IsInf(w, 1) {
			continue
		}
		total += w
		if f.Available {
			available += w
		}
	}

	if total <= 0 {
		return DataQualityAssessment{Score: 0, Level: QualityInsufficient}
	}

	score := int(math.Round(100 * available / total))
	if score > 100 {
		score = 100
	}

	return DataQualityAssessment{Score: score, Level: LevelForScore(score, t)}
}
