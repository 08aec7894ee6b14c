package moderation

import (
	"time"
)

type ModerationStatus string

const (
	StatusPending  ModerationStatus = "pending"
	StatusApproved ModerationStatus = "approved"
	StatusFlagged  ModerationStatus = "flagged"
	StatusBlocked  ModerationStatus = "blocked"
	// reserved for manual-edit outcomes; never assigned by the automated pipeline
	StatusModified ModerationStatus = "modified"
)

type Category string

const (
	CategoryNone           Category = "none"
	CategoryRacism         Category = "racism"
	CategorySexism         Category = "sexism"
	CategoryHomophobia     Category = "homophobia"
	CategoryReligiousHate  Category = "religious_hate"
	CategoryDisabilityHate Category = "disability_hate"
	CategoryXenophobia     Category = "xenophobia"
	CategoryGeneralHate    Category = "general_hate"
	CategoryThreat         Category = "threat"
	CategoryHarassment     Category = "harassment"
)

// Categories the classifier is allowed to return, excluding "none".
var AllCategories = []Category{
	CategoryRacism,
	CategorySexism,
	CategoryHomophobia,
	CategoryReligiousHate,
	CategoryDisabilityHate,
	CategoryXenophobia,
	CategoryGeneralHate,
	CategoryThreat,
	CategoryHarassment,
}

func ParseCategory(raw string) (Category, bool) {
	c := Category(raw)
	if c == CategoryNone {
		return c, true
	}
	for _, known := range AllCategories {
		if c == known {
			return c, true
		}
	}
	return CategoryNone, false
}

// PostMessage is the unit of work on the "new posts" stream. Immutable once
// enqueued; the message key is the decimal post ID, so all messages for one
// post land in the same partition.
type PostMessage struct {
	PostID         int64     `json:"post_id"`
	AuthorUID      int64     `json:"author_uid"`
	AuthorUsername string    `json:"author_username"`
	Content        string    `json:"content"`
	MediaPaths     []string  `json:"media_paths"`
	Visibility     string    `json:"visibility"`
	CreatedAt      time.Time `json:"created_at"`
}

// Analysis is the classifier's raw judgment about a piece of text. It is
// never persisted standalone; it is embedded in ModerationResult.
type Analysis struct {
	IsHateSpeech           bool       `json:"is_hate_speech"`
	ConfidenceScore        float64    `json:"confidence_score"`
	Categories             []Category `json:"categories"`
	Explanation            string     `json:"explanation"`
	SuggestedRevision      *string    `json:"suggested_revision,omitempty"`
	AlternativeSuggestions []string   `json:"alternative_suggestions,omitempty"`
	RevisionExplanation    *string    `json:"revision_explanation,omitempty"`
}

func (a *Analysis) HasCategory(c Category) bool {
	for _, cat := range a.Categories {
		if cat == c {
			return true
		}
	}
	return false
}

// ModerationResult is published on the "moderation results" stream.
// Consumers must tolerate duplicates keyed by post_id (at-least-once
// delivery).
//
// The status field is always derived from the embedded analysis plus the
// configured thresholds; it is never set independently.
type ModerationResult struct {
	PostID          int64  `json:"post_id"`
	AuthorUID       int64  `json:"author_uid"`
	OriginalContent string `json:"original_content"`

	Analysis

	Status              ModerationStatus `json:"status"`
	ModeratedAt         time.Time        `json:"moderated_at"`
	RequiresHumanReview bool             `json:"requires_human_review"`
	AutoActionTaken     *string          `json:"auto_action_taken,omitempty"`
}

// ModerationReport is the immutable audit record for one processed post.
// Stored as JSON under reports/{year}/{month}/{day}/{report_id}.json; this
// layout is the only at-rest format requiring compatibility across
// implementations. Corrections happen only by superseding with a new
// report, never by mutation.
type ModerationReport struct {
	ReportID string           `json:"report_id"`
	Post     PostMessage      `json:"post"`
	Result   ModerationResult `json:"result"`

	ModelUsed        string `json:"model_used"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`

	ReceivedAt       time.Time `json:"received_at"`
	ProcessedAt      time.Time `json:"processed_at"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
}

// UserModerationStats is derived on demand from a user's reports; it is
// never stored.
type UserModerationStats struct {
	UserUID             int64          `json:"user_uid"`
	TotalPosts          int            `json:"total_posts"`
	FlaggedPosts        int            `json:"flagged_posts"`
	BlockedPosts        int            `json:"blocked_posts"`
	ModifiedPosts       int            `json:"modified_posts"`
	HateSpeechScore     float64        `json:"hate_speech_score"`
	CategoriesTriggered map[string]int `json:"categories_triggered"`
	LastViolation       *time.Time     `json:"last_violation,omitempty"`
}
