package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/safespace-net/safespace/moderation"
)

func TestParseStrictJSON(t *testing.T) {
	assert := assert.New(t)

	raw := `{"is_hate_speech": true, "confidence_score": 0.85, "categories": ["racism"], "explanation": "offensive slur", "suggested_revision": "neutral version", "revision_explanation": "removed the slur"}`
	a := ParseAnalysisResponse(raw, nil)
	assert.True(a.IsHateSpeech)
	assert.Equal(0.85, a.ConfidenceScore)
	assert.Equal([]moderation.Category{moderation.CategoryRacism}, a.Categories)
	assert.Equal("offensive slur", a.Explanation)
	if assert.NotNil(a.SuggestedRevision) {
		assert.Equal("neutral version", *a.SuggestedRevision)
	}
}

func TestParseFencedBlock(t *testing.T) {
	assert := assert.New(t)

	raw := "Here is my analysis:\n```json\n{\"is_hate_speech\": false, \"confidence_score\": 0.1, \"categories\": [\"none\"], \"explanation\": \"harmless\"}\n```\nLet me know if you need more."
	a := ParseAnalysisResponse(raw, nil)
	assert.False(a.IsHateSpeech)
	assert.Equal(0.1, a.ConfidenceScore)
	assert.Equal("harmless", a.Explanation)
}

func TestParseBraceScan(t *testing.T) {
	assert := assert.New(t)

	raw := `Sure! The result is {"is_hate_speech": true, "confidence_score": 0.7, "categories": ["threat"], "explanation": "violent"} as requested.`
	a := ParseAnalysisResponse(raw, nil)
	assert.True(a.IsHateSpeech)
	assert.Equal([]moderation.Category{moderation.CategoryThreat}, a.Categories)
}

func TestParseSafeDefault(t *testing.T) {
	assert := assert.New(t)

	for _, raw := range []string{
		"",
		"I cannot analyze this post.",
		"{not even close to json]",
		"``` nope ```",
	} {
		a := ParseAnalysisResponse(raw, nil)
		assert.False(a.IsHateSpeech, "input=%q", raw)
		assert.Equal(0.0, a.ConfidenceScore, "input=%q", raw)
		assert.NotEmpty(a.Explanation, "input=%q", raw)
	}
}

func TestParseUnknownCategoriesDropped(t *testing.T) {
	assert := assert.New(t)

	raw := `{"is_hate_speech": true, "confidence_score": 0.9, "categories": ["racism", "sarcasm", "none"], "explanation": "x"}`
	a := ParseAnalysisResponse(raw, nil)
	assert.Equal([]moderation.Category{moderation.CategoryRacism}, a.Categories)
}

func TestParseClampsConfidence(t *testing.T) {
	assert := assert.New(t)

	a := ParseAnalysisResponse(`{"is_hate_speech": true, "confidence_score": 1.7, "categories": ["racism"], "explanation": "x"}`, nil)
	assert.Equal(1.0, a.ConfidenceScore)

	a = ParseAnalysisResponse(`{"is_hate_speech": false, "confidence_score": -0.4, "categories": [], "explanation": "x"}`, nil)
	assert.Equal(0.0, a.ConfidenceScore)
}
