package moderation

// Policy holds the process-wide decision thresholds. Read once at startup;
// changing them does not retroactively alter existing reports. These are
// policy values, not architectural constraints.
type Policy struct {
	// confidence at or above which flagged content is marked "flagged"
	FlagThreshold float64
	// confidence at or above which flagged content is marked "blocked"
	BlockThreshold float64
	// inclusive confidence band routed for human review
	ReviewBandLow  float64
	ReviewBandHigh float64
}

func DefaultPolicy() Policy {
	return Policy{
		FlagThreshold:  0.7,
		BlockThreshold: 0.9,
		ReviewBandLow:  0.4,
		ReviewBandHigh: 0.8,
	}
}

// categories always routed for human review, regardless of confidence
var highRiskCategories = []Category{CategoryThreat, CategoryHarassment}

// Decide maps an analysis to a moderation status and an advisory
// human-review flag. Pure: same analysis and policy always yield the same
// decision. The review flag is independent of the status and never changes
// it; a blocked decision can still be routed for review.
func (p Policy) Decide(a *Analysis) (ModerationStatus, bool) {
	if !a.IsHateSpeech {
		return StatusApproved, false
	}

	var status ModerationStatus
	switch {
	case a.ConfidenceScore >= p.BlockThreshold:
		status = StatusBlocked
	case a.ConfidenceScore >= p.FlagThreshold:
		status = StatusFlagged
	default:
		status = StatusPending
	}

	return status, p.needsReview(a)
}

func (p Policy) needsReview(a *Analysis) bool {
	if a.ConfidenceScore >= p.ReviewBandLow && a.ConfidenceScore <= p.ReviewBandHigh {
		return true
	}
	for _, c := range highRiskCategories {
		if a.HasCategory(c) {
			return true
		}
	}
	return false
}

// AutoAction returns the human-readable description of the automatic action
// taken for a status, or "" when no action was taken. A blocked or flagged
// decision is never silently dropped; the description accompanies the
// explanation shown to the author.
func AutoAction(status ModerationStatus) string {
	switch status {
	case StatusBlocked:
		return "Post wurde automatisch blockiert"
	case StatusFlagged:
		return "Post wurde zur Überprüfung markiert"
	default:
		return ""
	}
}
