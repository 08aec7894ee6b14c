package moderation

// ComputeUserStats derives per-user moderation statistics from a set of the
// user's reports. The running hate-speech score is the average confidence
// among reports the classifier flagged.
func ComputeUserStats(uid int64, reports []*ModerationReport) UserModerationStats {
	stats := UserModerationStats{
		UserUID:             uid,
		CategoriesTriggered: make(map[string]int),
	}

	var totalScore float64
	for _, report := range reports {
		if report == nil || report.Post.AuthorUID != uid {
			continue
		}
		stats.TotalPosts++
		result := &report.Result

		switch result.Status {
		case StatusFlagged:
			stats.FlaggedPosts++
		case StatusBlocked:
			stats.BlockedPosts++
		case StatusModified:
			stats.ModifiedPosts++
		}

		if !result.IsHateSpeech {
			continue
		}
		totalScore += result.ConfidenceScore
		for _, cat := range result.Categories {
			stats.CategoriesTriggered[string(cat)]++
		}
		if stats.LastViolation == nil || report.ProcessedAt.After(*stats.LastViolation) {
			t := report.ProcessedAt
			stats.LastViolation = &t
		}
	}

	if stats.TotalPosts > 0 {
		stats.HateSpeechScore = totalScore / float64(stats.TotalPosts)
	}
	return stats
}
