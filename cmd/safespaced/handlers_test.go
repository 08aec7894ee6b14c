package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safespace-net/safespace/moderation"
	"github.com/safespace-net/safespace/moderation/bus"
	"github.com/safespace-net/safespace/moderation/classifier"
	"github.com/safespace-net/safespace/moderation/disputestore"
	"github.com/safespace-net/safespace/moderation/reportstore"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	disputes, err := disputestore.NewStore("sqlite://:memory:")
	require.NoError(t, err)

	s := &Server{
		logger:     slog.Default(),
		enabled:    true,
		policy:     moderation.DefaultPolicy(),
		language:   "de",
		model:      classifier.ModelFallback,
		postsTopic: bus.TopicNewPosts,
		classifier: classifier.NewFallbackClassifier(),
		reports:    reportstore.NewMemReportStore(),
		disputes:   disputes,
	}
	s.buildAPI(":0")
	return s
}

func doJSON(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echoHeaderContentType, "application/json")
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

const echoHeaderContentType = "Content-Type"

func seedReport(t *testing.T, s *Server, uid, postID int64, content string, flagged bool) {
	t.Helper()

	now := time.Now().UTC()
	analysis := moderation.Analysis{
		IsHateSpeech:    flagged,
		ConfidenceScore: 0.0,
		Categories:      []moderation.Category{moderation.CategoryNone},
		Explanation:     "kein Problem erkannt",
	}
	status := moderation.StatusApproved
	if flagged {
		analysis.ConfidenceScore = 0.7
		analysis.Categories = []moderation.Category{moderation.CategoryXenophobia}
		analysis.Explanation = "fremdenfeindliche Sprache erkannt"
		status = moderation.StatusFlagged
	}

	report := &moderation.ModerationReport{
		ReportID: fmt.Sprintf("seed-%d-%d", uid, postID),
		Post: moderation.PostMessage{
			PostID:    postID,
			AuthorUID: uid,
			Content:   content,
			CreatedAt: now,
		},
		Result: moderation.ModerationResult{
			PostID:          postID,
			AuthorUID:       uid,
			OriginalContent: content,
			Analysis:        analysis,
			Status:          status,
			ModeratedAt:     now,
		},
		ModelUsed:   classifier.ModelFallback,
		ReceivedAt:  now,
		ProcessedAt: now,
	}
	_, err := s.reports.Put(context.Background(), report)
	require.NoError(t, err)
}

func TestStatusEndpoint(t *testing.T) {
	assert := assert.New(t)
	s := newTestServer(t)

	rec := doJSON(s, http.MethodGet, "/safespace/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(resp.Enabled)
	assert.Equal(0.7, resp.FlagThreshold)
	assert.Equal(0.9, resp.BlockThreshold)
	assert.Equal(bus.TopicNewPosts, resp.PostsTopic)
	assert.Equal(classifier.ModelFallback, resp.Model)
}

func TestCheckEndpoint(t *testing.T) {
	assert := assert.New(t)
	s := newTestServer(t)

	rec := doJSON(s, http.MethodPost, "/safespace/check", `{"content":"Ausländer raus"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		IsHateSpeech    bool     `json:"is_hate_speech"`
		ConfidenceScore float64  `json:"confidence_score"`
		Categories      []string `json:"categories"`
		WouldBeStatus   string   `json:"would_be_status"`
		ModelUsed       string   `json:"model_used"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(resp.IsHateSpeech)
	assert.GreaterOrEqual(resp.ConfidenceScore, 0.7)
	assert.Contains(resp.Categories, "xenophobia")
	assert.Equal("flagged", resp.WouldBeStatus)
	assert.Equal(classifier.ModelFallback, resp.ModelUsed)

	// a harmless post comes back approved
	rec = doJSON(s, http.MethodPost, "/safespace/check", `{"content":"Ich liebe Pizza #food"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(resp.IsHateSpeech)
	assert.Equal("approved", resp.WouldBeStatus)

	// no report was written by either check
	now := time.Now().UTC()
	paths, err := s.reports.List(context.Background(), now.Add(-time.Hour), now)
	require.NoError(t, err)
	assert.Empty(paths)
}

func TestCheckEndpointValidation(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(s, http.MethodPost, "/safespace/check", `{"content":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSuggestRevisionWithoutProvider(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(s, http.MethodPost, "/safespace/suggest-revision", `{"content":"Ausländer raus"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDisputeEndpoint(t *testing.T) {
	assert := assert.New(t)
	s := newTestServer(t)

	rec := doJSON(s, http.MethodPost, "/safespace/dispute", `{"user_uid":7,"content":"mein Post","reason":"Fehlentscheidung"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		DisputeID uint   `json:"dispute_id"`
		Status    string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal("pending_review", resp.Status)
	assert.NotZero(resp.DisputeID)

	disputes, err := s.disputes.ListByUser(context.Background(), 7, 0)
	require.NoError(t, err)
	require.Len(t, disputes, 1)
	assert.Equal("Fehlentscheidung", disputes[0].Reason)

	// reason is mandatory
	rec = doJSON(s, http.MethodPost, "/safespace/dispute", `{"user_uid":7,"content":"mein Post"}`)
	assert.Equal(http.StatusBadRequest, rec.Code)
}

func TestUserReportsEndpoint(t *testing.T) {
	assert := assert.New(t)
	s := newTestServer(t)

	seedReport(t, s, 7, 1, "Ausländer raus", true)
	seedReport(t, s, 7, 2, "Ich liebe Pizza", false)
	seedReport(t, s, 9, 3, "anderer Autor", false)

	rec := doJSON(s, http.MethodGet, "/safespace/reports/user/7", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		UserUID int64           `json:"user_uid"`
		Reports []reportSummary `json:"reports"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(int64(7), resp.UserUID)
	require.Len(t, resp.Reports, 2)
	for _, summary := range resp.Reports {
		assert.Equal(int64(7), summary.AuthorUID)
		assert.NotEmpty(summary.Path)
	}

	rec = doJSON(s, http.MethodGet, "/safespace/reports/user/7?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(resp.Reports, 1)

	rec = doJSON(s, http.MethodGet, "/safespace/reports/user/abc", "")
	assert.Equal(http.StatusBadRequest, rec.Code)
}

func TestUserStatsEndpoint(t *testing.T) {
	assert := assert.New(t)
	s := newTestServer(t)

	seedReport(t, s, 7, 1, "Ausländer raus", true)
	seedReport(t, s, 7, 2, "Ich liebe Pizza", false)

	rec := doJSON(s, http.MethodGet, "/safespace/stats/user/7", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats moderation.UserModerationStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(int64(7), stats.UserUID)
	assert.Equal(2, stats.TotalPosts)
	assert.Equal(1, stats.FlaggedPosts)
	assert.Equal(1, stats.CategoriesTriggered["xenophobia"])
	assert.NotNil(stats.LastViolation)
}

func TestRecentReportsEndpoint(t *testing.T) {
	assert := assert.New(t)
	s := newTestServer(t)

	seedReport(t, s, 7, 1, "Ausländer raus", true)
	seedReport(t, s, 7, 2, "Ich liebe Pizza", false)

	rec := doJSON(s, http.MethodGet, "/safespace/reports/recent?days=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Days    int             `json:"days"`
		Reports []reportSummary `json:"reports"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(1, resp.Days)
	// only flagged reports surface on the dashboard
	require.Len(t, resp.Reports, 1)
	assert.Equal(moderation.StatusFlagged, resp.Reports[0].Status)

	rec = doJSON(s, http.MethodGet, "/safespace/reports/recent?days=0", "")
	assert.Equal(http.StatusBadRequest, rec.Code)
}
