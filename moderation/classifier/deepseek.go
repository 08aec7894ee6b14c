package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/safespace-net/safespace/util"
)

// DefaultLanguage is used when the requested language tag is not supported.
const DefaultLanguage = "de"

var supportedLanguages = map[string]string{
	"de": "German",
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"it": "Italian",
	"ar": "Arabic",
}

const moderationPromptTemplate = `You are an AI moderator for a social network called "SafeSpace".
Your task is to analyze posts for hate speech and to propose constructive improvements.

## Hate speech categories:
- racism: discrimination based on skin color or ethnicity
- sexism: discrimination based on gender
- homophobia: discrimination based on sexual orientation
- religious_hate: agitation or discrimination based on religion
- disability_hate: ableism, discrimination based on disability
- xenophobia: hostility against foreigners or migrants
- general_hate: general hate speech and insults
- threat: threats of violence
- harassment: bullying and personal attacks
- none: no hate speech detected

## Your analysis must contain:
1. Is it hate speech? (true/false)
2. A confidence score (0.0 - 1.0)
3. The detected categories
4. An explanation why it is (or is not) hate speech
5. If it is hate speech: a constructive revision that keeps the core
   statement but phrases it respectfully
6. An explanation of the revision

## Rules:
- Be fair and consider context; satire and criticism are allowed as long
  as they do not turn into hate speech
- For borderline cases (score 0.5-0.7) explain the context
- The revision must keep the original opinion, only phrased respectfully
- Write explanation and revision in %s
- Answer ONLY with the JSON object, no additional text

## Output format (JSON):
{
    "is_hate_speech": boolean,
    "confidence_score": float,
    "categories": ["category1", "category2"],
    "explanation": "string",
    "suggested_revision": "string or null",
    "revision_explanation": "string or null"
}`

const revisionPromptTemplate = `The following post was marked as potentially problematic.
Rewrite it so that it expresses the same opinion, but more respectfully and constructively.
Answer in %s, and ONLY with the rewritten text, no explanations.

Original:
%s`

// DeepSeekClassifier calls the DeepSeek chat-completions API to analyze
// post content. One outbound network call per classification, bounded by
// the client timeout; there is no unbounded retry against the provider.
type DeepSeekClassifier struct {
	Client  *http.Client
	BaseURL string
	APIKey  string
	Model   string
	Logger  *slog.Logger
}

func NewDeepSeekClassifier(baseURL, apiKey, model string, timeout time.Duration, logger *slog.Logger) *DeepSeekClassifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &DeepSeekClassifier{
		Client:  util.RobustHTTPClient(timeout),
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		APIKey:  apiKey,
		Model:   model,
		Logger:  logger.With("component", "deepseek"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func languageName(language string) string {
	if name, ok := supportedLanguages[language]; ok {
		return name
	}
	return supportedLanguages[DefaultLanguage]
}

func (c *DeepSeekClassifier) Classify(ctx context.Context, content, language string) (*Classification, error) {
	systemPrompt := fmt.Sprintf(moderationPromptTemplate, languageName(language))
	req := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "Analyze this post:\n\n" + content},
		},
		// low temperature for consistent results
		Temperature: 0.1,
		MaxTokens:   1000,
	}

	resp, err := c.complete(ctx, &req)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("deepseek response contained no choices")
	}

	// parsing is total: malformed output degrades to a safe default
	analysis := ParseAnalysisResponse(resp.Choices[0].Message.Content, c.Logger)

	return &Classification{
		Analysis:         *analysis,
		ModelUsed:        c.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// SuggestRevision produces only the rewritten text, used on demand outside
// the pipeline.
func (c *DeepSeekClassifier) SuggestRevision(ctx context.Context, content, language string) (string, error) {
	req := chatRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "user", Content: fmt.Sprintf(revisionPromptTemplate, languageName(language), content)},
		},
		Temperature: 0.7,
		MaxTokens:   500,
	}

	resp, err := c.complete(ctx, &req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("deepseek response contained no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *DeepSeekClassifier) complete(ctx context.Context, payload *chatRequest) (*chatResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	res, err := c.Client.Do(req)
	providerDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("deepseek request failed: %w", err)
	}
	defer res.Body.Close()

	providerRequests.WithLabelValues(fmt.Sprint(res.StatusCode)).Inc()
	switch {
	case res.StatusCode == http.StatusPaymentRequired || res.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("deepseek rejected request (status %d): %w", res.StatusCode, ErrProviderUnavailable)
	case res.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("deepseek request failed statusCode=%d", res.StatusCode)
	}

	respBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read deepseek resp body: %w", err)
	}

	var respObj chatResponse
	if err := json.Unmarshal(respBytes, &respObj); err != nil {
		return nil, fmt.Errorf("failed to parse deepseek resp JSON: %w", err)
	}
	return &respObj, nil
}

// compile-time interface checks
var _ Classifier = (*DeepSeekClassifier)(nil)
var _ Suggester = (*DeepSeekClassifier)(nil)
