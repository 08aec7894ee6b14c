package classifier

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"github.com/safespace-net/safespace/moderation"
)

var fencedBlockRegex = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

// wire shape of the provider's analysis JSON; categories arrive as raw
// strings and are validated against the known enumeration
type rawAnalysis struct {
	IsHateSpeech           bool     `json:"is_hate_speech"`
	ConfidenceScore        float64  `json:"confidence_score"`
	Categories             []string `json:"categories"`
	Explanation            string   `json:"explanation"`
	SuggestedRevision      *string  `json:"suggested_revision"`
	AlternativeSuggestions []string `json:"alternative_suggestions"`
	RevisionExplanation    *string  `json:"revision_explanation"`
}

// ParseAnalysisResponse extracts an analysis from raw provider output. The
// parse is staged and total: strict JSON decode first, then a fenced code
// block, then a brace scan, and finally a conservative default (not
// flagged, confidence zero). Classification failure must never block a post
// from existing, so this function never returns an error.
func ParseAnalysisResponse(response string, logger *slog.Logger) *moderation.Analysis {
	if logger == nil {
		logger = slog.Default()
	}

	if a, ok := decodeAnalysis(response); ok {
		return a
	}

	if m := fencedBlockRegex.FindStringSubmatch(response); m != nil {
		if a, ok := decodeAnalysis(m[1]); ok {
			return a
		}
	}

	if frag, ok := braceScan(response); ok {
		if a, ok := decodeAnalysis(frag); ok {
			return a
		}
	}

	preview := response
	if len(preview) > 200 {
		preview = preview[:200]
	}
	logger.Warn("could not parse provider response, using safe default", "response", preview)
	return safeDefaultAnalysis()
}

func decodeAnalysis(raw string) (*moderation.Analysis, bool) {
	var parsed rawAnalysis
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); err != nil {
		return nil, false
	}

	a := &moderation.Analysis{
		IsHateSpeech:           parsed.IsHateSpeech,
		ConfidenceScore:        clampScore(parsed.ConfidenceScore),
		Explanation:            parsed.Explanation,
		SuggestedRevision:      parsed.SuggestedRevision,
		AlternativeSuggestions: parsed.AlternativeSuggestions,
		RevisionExplanation:    parsed.RevisionExplanation,
	}
	for _, raw := range parsed.Categories {
		cat, ok := moderation.ParseCategory(raw)
		if !ok || cat == moderation.CategoryNone {
			continue
		}
		a.Categories = append(a.Categories, cat)
	}
	return a, true
}

// locates the outermost JSON object embedded in looser surrounding text
func braceScan(response string) (string, bool) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return response[start : end+1], true
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func safeDefaultAnalysis() *moderation.Analysis {
	return &moderation.Analysis{
		IsHateSpeech:    false,
		ConfidenceScore: 0,
		Categories:      []moderation.Category{moderation.CategoryNone},
		Explanation:     "Analyse konnte nicht durchgeführt werden",
	}
}
