package practice

// Score thresholds for the feedback tiers. A score at or above
// ThresholdSuccess counts toward the success rate; a score below
// ThresholdClose offers a retry and makes the spoken text eligible for
// mispronunciation grouping.
const (
	ThresholdSuccess = 80.0
	ThresholdClose   = 70.0
)

// Tier is the feedback bucket derived from a score.
type Tier string

const (
	// TierSuccess means the pronunciation was accepted (score >= 80).
	TierSuccess Tier = "success"

	// TierClose means nearly there (70 <= score < 80); no retry is offered.
	TierClose Tier = "close"

	// TierRetry means more practice is needed (score < 70); the session
	// offers a retry for the same word.
	TierRetry Tier = "retry"
)

// TierFor maps a score to its feedback tier.
func TierFor(score float64) Tier {
	switch {
	case score >= ThresholdSuccess:
		return TierSuccess
	case score >= ThresholdClose:
		return TierClose
	default:
		return TierRetry
	}
}
