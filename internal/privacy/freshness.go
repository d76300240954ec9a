package privacy

import "time"

// Tier describes how recently a subject's location was updated. Hidden is a
// filter, not a display style: hidden subjects are dropped from candidate
// lists before any fuzzing happens.
type Tier string

const (
	TierSolid  Tier = "solid"
	TierFaded  Tier = "faded"
	TierHidden Tier = "hidden"
)

type FreshnessClassifier struct {
	solidMaxAge time.Duration
	fadedMaxAge time.Duration
}

func NewFreshnessClassifier(solidMaxAge, fadedMaxAge time.Duration) *FreshnessClassifier {
	return &FreshnessClassifier{
		solidMaxAge: solidMaxAge,
		fadedMaxAge: fadedMaxAge,
	}
}

// Classify maps a last-updated timestamp to a tier. A zero timestamp counts
// as updated now, so records with no history stay visible.
func (c *FreshnessClassifier) Classify(lastUpdatedAt, now time.Time) Tier {
	if lastUpdatedAt.IsZero() {
		return TierSolid
	}

	age := now.Sub(lastUpdatedAt)
	switch {
	case age <= c.solidMaxAge:
		return TierSolid
	case age <= c.fadedMaxAge:
		return TierFaded
	default:
		return TierHidden
	}
}
