package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safespace-net/safespace/moderation"
)

func chatCompletionFixture(content string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"role": "assistant", "content": content}},
		},
		"usage": map[string]any{"prompt_tokens": 120, "completion_tokens": 45},
	}
}

func TestDeepSeekClassify(t *testing.T) {
	assert := assert.New(t)

	var gotReq chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal("/chat/completions", r.URL.Path)
		assert.Equal("Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(chatCompletionFixture(
			`{"is_hate_speech": true, "confidence_score": 0.92, "categories": ["racism"], "explanation": "slur", "suggested_revision": "better", "revision_explanation": "removed slur"}`,
		))
	}))
	defer srv.Close()

	c := NewDeepSeekClassifier(srv.URL, "test-key", "deepseek-chat", 5*time.Second, nil)
	out, err := c.Classify(context.Background(), "some post", "en")
	require.NoError(t, err)

	assert.Equal("deepseek-chat", out.ModelUsed)
	assert.Equal(120, out.PromptTokens)
	assert.Equal(45, out.CompletionTokens)
	assert.True(out.Analysis.IsHateSpeech)
	assert.Equal(0.92, out.Analysis.ConfidenceScore)
	assert.Equal([]moderation.Category{moderation.CategoryRacism}, out.Analysis.Categories)

	require.Len(t, gotReq.Messages, 2)
	assert.Equal("system", gotReq.Messages[0].Role)
	assert.Contains(gotReq.Messages[0].Content, "English")
	assert.Contains(gotReq.Messages[1].Content, "some post")
}

func TestDeepSeekUnknownLanguageFallsBack(t *testing.T) {
	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		assert.Contains(req.Messages[0].Content, "German")
		json.NewEncoder(w).Encode(chatCompletionFixture(`{"is_hate_speech": false, "confidence_score": 0.0, "categories": ["none"], "explanation": "ok"}`))
	}))
	defer srv.Close()

	c := NewDeepSeekClassifier(srv.URL, "k", "deepseek-chat", 5*time.Second, nil)
	_, err := c.Classify(context.Background(), "hello", "tlh")
	assert.NoError(err)
}

func TestDeepSeekCapacityErrors(t *testing.T) {
	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer srv.Close()

	c := NewDeepSeekClassifier(srv.URL, "k", "deepseek-chat", 5*time.Second, nil)
	_, err := c.Classify(context.Background(), "hello", "de")
	assert.True(errors.Is(err, ErrProviderUnavailable))
}

func TestDeepSeekMalformedContentDegrades(t *testing.T) {
	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(chatCompletionFixture("I'd rather not answer in JSON today."))
	}))
	defer srv.Close()

	c := NewDeepSeekClassifier(srv.URL, "k", "deepseek-chat", 5*time.Second, nil)
	out, err := c.Classify(context.Background(), "hello", "de")
	require.NoError(t, err)
	assert.False(out.Analysis.IsHateSpeech)
	assert.Equal(0.0, out.Analysis.ConfidenceScore)
}

func TestDeepSeekSuggestRevision(t *testing.T) {
	assert := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		json.NewDecoder(r.Body).Decode(&req)
		assert.Len(req.Messages, 1)
		json.NewEncoder(w).Encode(chatCompletionFixture("  A calmer version of the post.  "))
	}))
	defer srv.Close()

	c := NewDeepSeekClassifier(srv.URL, "k", "deepseek-chat", 5*time.Second, nil)
	out, err := c.SuggestRevision(context.Background(), "angry post", "en")
	require.NoError(t, err)
	assert.Equal("A calmer version of the post.", out)
}

type scriptedClassifier struct {
	out *Classification
	err error
}

func (s *scriptedClassifier) Classify(ctx context.Context, content, language string) (*Classification, error) {
	return s.out, s.err
}

func TestWithFallbackSelection(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	primaryOut := &Classification{ModelUsed: "deepseek-chat"}

	// healthy primary wins
	c := WithFallback(&scriptedClassifier{out: primaryOut}, NewFallbackClassifier(), nil)
	out, err := c.Classify(ctx, "Ausländer raus", "de")
	require.NoError(t, err)
	assert.Equal("deepseek-chat", out.ModelUsed)

	// capacity rejection degrades to the keyword fallback
	c = WithFallback(&scriptedClassifier{err: fmt.Errorf("status 402: %w", ErrProviderUnavailable)}, NewFallbackClassifier(), nil)
	out, err = c.Classify(ctx, "Ausländer raus", "de")
	require.NoError(t, err)
	assert.Equal(ModelFallback, out.ModelUsed)
	assert.True(out.Analysis.IsHateSpeech)

	// timeouts degrade too
	c = WithFallback(&scriptedClassifier{err: context.DeadlineExceeded}, NewFallbackClassifier(), nil)
	out, err = c.Classify(ctx, "Ich liebe Pizza", "de")
	require.NoError(t, err)
	assert.Equal(ModelFallback, out.ModelUsed)
	assert.False(out.Analysis.IsHateSpeech)
}
