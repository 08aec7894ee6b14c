package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecideStatuses(t *testing.T) {
	assert := assert.New(t)
	policy := DefaultPolicy()

	fixtures := []struct {
		flagged    bool
		confidence float64
		categories []Category
		status     ModerationStatus
		review     bool
	}{
		{false, 0.0, nil, StatusApproved, false},
		{false, 0.95, nil, StatusApproved, false},
		{true, 0.3, []Category{CategoryGeneralHate}, StatusPending, false},
		{true, 0.5, []Category{CategoryGeneralHate}, StatusPending, true},
		{true, 0.69, []Category{CategorySexism}, StatusPending, true},
		{true, 0.7, []Category{CategoryXenophobia}, StatusFlagged, true},
		{true, 0.85, []Category{CategoryRacism}, StatusFlagged, false},
		// block threshold is inclusive
		{true, 0.9, []Category{CategoryRacism}, StatusBlocked, false},
		{true, 1.0, []Category{CategoryGeneralHate}, StatusBlocked, false},
		// high-risk category forces review even outside the band
		{true, 0.85, []Category{CategoryThreat}, StatusFlagged, true},
		{true, 0.95, []Category{CategoryHarassment}, StatusBlocked, true},
		{true, 0.75, []Category{CategoryThreat}, StatusFlagged, true},
	}

	for _, fix := range fixtures {
		a := &Analysis{
			IsHateSpeech:    fix.flagged,
			ConfidenceScore: fix.confidence,
			Categories:      fix.categories,
		}
		status, review := policy.Decide(a)
		assert.Equal(fix.status, status, "confidence=%v categories=%v", fix.confidence, fix.categories)
		assert.Equal(fix.review, review, "confidence=%v categories=%v", fix.confidence, fix.categories)
	}
}

// raising confidence (category held fixed) must never move the status to a
// less restrictive value
func TestDecideMonotonic(t *testing.T) {
	assert := assert.New(t)
	policy := DefaultPolicy()

	rank := map[ModerationStatus]int{
		StatusApproved: 0,
		StatusPending:  1,
		StatusFlagged:  2,
		StatusBlocked:  3,
	}

	prev := -1
	for i := 0; i <= 100; i++ {
		a := &Analysis{
			IsHateSpeech:    true,
			ConfidenceScore: float64(i) / 100.0,
			Categories:      []Category{CategoryGeneralHate},
		}
		status, _ := policy.Decide(a)
		assert.GreaterOrEqual(rank[status], prev, "confidence=%v", a.ConfidenceScore)
		prev = rank[status]
	}
}

func TestDecideCustomThresholds(t *testing.T) {
	assert := assert.New(t)
	policy := Policy{
		FlagThreshold:  0.5,
		BlockThreshold: 0.8,
		ReviewBandLow:  0.4,
		ReviewBandHigh: 0.8,
	}

	a := &Analysis{IsHateSpeech: true, ConfidenceScore: 0.6, Categories: []Category{CategorySexism}}
	status, review := policy.Decide(a)
	assert.Equal(StatusFlagged, status)
	assert.True(review)

	a.ConfidenceScore = 0.8
	status, _ = policy.Decide(a)
	assert.Equal(StatusBlocked, status)
}

func TestAutoAction(t *testing.T) {
	assert := assert.New(t)
	assert.NotEmpty(AutoAction(StatusBlocked))
	assert.NotEmpty(AutoAction(StatusFlagged))
	assert.Empty(AutoAction(StatusApproved))
	assert.Empty(AutoAction(StatusPending))
}

func TestParseCategory(t *testing.T) {
	assert := assert.New(t)

	c, ok := ParseCategory("xenophobia")
	assert.True(ok)
	assert.Equal(CategoryXenophobia, c)

	c, ok = ParseCategory("none")
	assert.True(ok)
	assert.Equal(CategoryNone, c)

	_, ok = ParseCategory("sarcasm")
	assert.False(ok)
}
