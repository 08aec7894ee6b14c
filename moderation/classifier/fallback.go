package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/safespace-net/safespace/moderation"
)

// per-category patterns, matched against normalized (lower-case, unicode
// folded) content. Order is fixed so that identical input always yields an
// identical category list.
type categoryPatterns struct {
	category moderation.Category
	patterns []*regexp.Regexp
}

func mustPatterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		out = append(out, regexp.MustCompile("(?i)"+expr))
	}
	return out
}

var hateKeywords = []categoryPatterns{
	{moderation.CategoryRacism, mustPatterns(
		`\bn[i1]gg[ae3]r`,
		`\bkanak(e|en)?\b`,
		`\bzigeuner`,
		`\bbimbos?\b`,
		`\bneger`,
	)},
	{moderation.CategoryXenophobia, mustPatterns(
		`\bausl[äa]nder\s+(raus|weg)`,
		`\bfremde\s+raus`,
		`\basyl[-\s]?(touristen?|schmarotzer)`,
		`\bfl[üu]chtlings?[-\s]?welle`,
		`\b[üu]berfremdung`,
		`\bmigranten?[-\s]?pack`,
	)},
	{moderation.CategorySexism, mustPatterns(
		`\bschlampen?\b`,
		`\bhuren?\b`,
		`\bnutten?\b`,
		`\bfotzen?\b`,
	)},
	{moderation.CategoryHomophobia, mustPatterns(
		`\bschwuchteln?\b`,
		`\btunten?\b`,
		`\bschwul(er?|es?)\s+(sau|pack)`,
	)},
	{moderation.CategoryThreat, mustPatterns(
		`\bwir\s+(werden|sollten)\s+.{0,30}(t[öo]ten|umbringen|erschie[sß]en)`,
		`\b(ab|aus)schaffen\s+wir\s+(sie|die)`,
		`\bvergasen`,
		`\baufh[äa]ngen`,
	)},
	{moderation.CategoryGeneralHate, mustPatterns(
		`\bverrecken?\b`,
		`\bkrepier`,
		`\bverdammt(e[rns]?|en?)\b`,
		`\bschei[sß](e|haufen|kerl)`,
	)},
}

// known problematic phrasings and neutral replacements, matched by
// substring against normalized content
var alternativePhrasings = []struct {
	phrase       string
	alternatives []string
}{
	{"ihr verdammten auslander", []string{
		"Ich habe Bedenken bezüglich der Migrationspolitik",
		"Die aktuelle Situation mit Migration bereitet mir Sorgen",
	}},
	{"auslander raus", []string{
		"Wir sollten die Migrationspolitik überdenken",
		"Die Einwanderungspolitik muss reformiert werden",
	}},
	{"migranten pack", []string{
		"Einige Migranten integrieren sich nicht gut",
		"Die Integration von Neuankömmlingen ist herausfordernd",
	}},
}

var genericAlternatives = []string{
	"Ich möchte meine Bedenken zu diesem Thema sachlich äußern",
	"Meine Kritik an der aktuellen Situation ist...",
}

const fallbackRevisionExplanation = "Diese Formulierung drückt die Kritik sachlich aus, ohne diskriminierende Sprache zu verwenden."

// FallbackClassifier is a deterministic, local, rule-based classifier with
// no network dependency. It is used when the remote provider is
// unavailable; identical input always yields identical output.
type FallbackClassifier struct{}

func NewFallbackClassifier() *FallbackClassifier {
	return &FallbackClassifier{}
}

// normalizes free-form text for pattern matching: lower-case, unicode
// normalization, and combining-mark folding (so "Ausländer" and
// "Auslander" match the same patterns)
func normalizeForMatch(text string) string {
	// transformers are stateful and not safe for concurrent use, so the
	// chain is built per call
	normFunc := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	lowered := strings.ToLower(text)
	folded, _, err := transform.String(normFunc, lowered)
	if err != nil {
		slog.Warn("unicode normalization error", "err", err)
		return lowered
	}
	return folded
}

func (f *FallbackClassifier) Classify(ctx context.Context, content, language string) (*Classification, error) {
	fallbackClassifications.Inc()

	normalized := normalizeForMatch(content)

	var detected []moderation.Category
	for _, entry := range hateKeywords {
		for _, pattern := range entry.patterns {
			if pattern.MatchString(normalized) {
				// one match per category is enough
				detected = append(detected, entry.category)
				break
			}
		}
	}

	analysis := moderation.Analysis{
		IsHateSpeech: len(detected) > 0,
	}

	if analysis.IsHateSpeech {
		analysis.ConfidenceScore = confidenceForMatches(len(detected))
		analysis.Categories = detected
		analysis.Explanation = explainMatches(detected)

		alternatives := generateAlternatives(normalized)
		revision := alternatives[0]
		analysis.SuggestedRevision = &revision
		if len(alternatives) > 1 {
			analysis.AlternativeSuggestions = alternatives[:2]
		}
		explanation := fallbackRevisionExplanation
		analysis.RevisionExplanation = &explanation
	} else {
		analysis.Categories = []moderation.Category{moderation.CategoryNone}
		analysis.Explanation = "Es wurden keine problematischen Inhalte erkannt."
	}

	return &Classification{
		Analysis:  analysis,
		ModelUsed: ModelFallback,
	}, nil
}

func confidenceForMatches(count int) float64 {
	confidence := 0.5 + 0.2*float64(count)
	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

func explainMatches(detected []moderation.Category) string {
	names := make([]string, 0, len(detected))
	for _, cat := range detected {
		names = append(names, string(cat))
	}
	return fmt.Sprintf(
		"Der Beitrag enthält Begriffe oder Formulierungen aus %d Kategorien von Hassrede: %s.",
		len(detected), strings.Join(names, ", "),
	)
}

// returns up to two rephrasings; specific replacements for known phrases,
// otherwise the generic templates
func generateAlternatives(normalized string) []string {
	var alternatives []string
	for _, entry := range alternativePhrasings {
		if strings.Contains(normalized, entry.phrase) {
			alternatives = append(alternatives, entry.alternatives...)
		}
	}
	if len(alternatives) == 0 {
		alternatives = append(alternatives, genericAlternatives...)
	}
	if len(alternatives) > 2 {
		alternatives = alternatives[:2]
	}
	return alternatives
}

var _ Classifier = (*FallbackClassifier)(nil)
