package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/safespace-net/safespace/moderation"
	"github.com/safespace-net/safespace/moderation/worker"
)

func (s *Server) handleHealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Enabled        bool    `json:"enabled"`
	Model          string  `json:"model"`
	PostsTopic     string  `json:"posts_topic"`
	FlagThreshold  float64 `json:"auto_flag_threshold"`
	BlockThreshold float64 `json:"auto_block_threshold"`
	Processed      int64   `json:"posts_processed"`
	Errored        int64   `json:"posts_errored"`
}

func (s *Server) handleStatus(c echo.Context) error {
	resp := statusResponse{
		Enabled:        s.enabled,
		Model:          s.model,
		PostsTopic:     s.postsTopic,
		FlagThreshold:  s.policy.FlagThreshold,
		BlockThreshold: s.policy.BlockThreshold,
	}
	if s.worker != nil {
		stats := s.worker.Stats()
		resp.Processed = stats.Processed
		resp.Errored = stats.Errored
	}
	return c.JSON(http.StatusOK, resp)
}

type checkRequest struct {
	Content  string `json:"content"`
	Language string `json:"language"`
}

type checkResponse struct {
	moderation.Analysis
	WouldBeStatus       moderation.ModerationStatus `json:"would_be_status"`
	RequiresHumanReview bool                        `json:"requires_human_review"`
	ModelUsed           string                      `json:"model_used"`
}

// handleCheck runs the same classify-and-decide path as the worker, but
// synchronously and without writing a report: pre-submission feedback, not
// moderation.
func (s *Server) handleCheck(c echo.Context) error {
	var req checkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}
	if req.Language == "" {
		req.Language = s.language
	}

	cls, err := s.classifier.Classify(c.Request().Context(), req.Content, req.Language)
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "classification unavailable")
	}

	post := &moderation.PostMessage{Content: req.Content, CreatedAt: time.Now().UTC()}
	result := worker.Evaluate(s.policy, post, cls)
	return c.JSON(http.StatusOK, checkResponse{
		Analysis:            result.Analysis,
		WouldBeStatus:       result.Status,
		RequiresHumanReview: result.RequiresHumanReview,
		ModelUsed:           cls.ModelUsed,
	})
}

type revisionRequest struct {
	Content  string `json:"content"`
	Language string `json:"language"`
}

type revisionResponse struct {
	Original   string `json:"original"`
	Suggestion string `json:"suggestion"`
}

func (s *Server) handleSuggestRevision(c echo.Context) error {
	if s.suggester == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "revision suggestions require the remote provider")
	}

	var req revisionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}
	if req.Language == "" {
		req.Language = s.language
	}

	suggestion, err := s.suggester.SuggestRevision(c.Request().Context(), req.Content, req.Language)
	if err != nil {
		s.logger.Error("revision suggestion failed", "err", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "revision suggestion unavailable")
	}
	return c.JSON(http.StatusOK, revisionResponse{Original: req.Content, Suggestion: suggestion})
}

type disputeRequest struct {
	UserUID int64  `json:"user_uid"`
	Content string `json:"content"`
	Reason  string `json:"reason"`
}

func (s *Server) handleDispute(c echo.Context) error {
	var req disputeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.UserUID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "user_uid is required")
	}
	if req.Reason == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "reason is required")
	}

	dispute, err := s.disputes.File(c.Request().Context(), req.UserUID, req.Content, req.Reason)
	if err != nil {
		s.logger.Error("failed to file dispute", "uid", req.UserUID, "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to file dispute")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"dispute_id": dispute.ID,
		"status":     "pending_review",
		"created_at": dispute.CreatedAt,
	})
}

type reportSummary struct {
	ReportID    string                      `json:"report_id"`
	PostID      int64                       `json:"post_id"`
	AuthorUID   int64                       `json:"author_uid"`
	Status      moderation.ModerationStatus `json:"status"`
	Confidence  float64                     `json:"confidence_score"`
	Categories  []moderation.Category       `json:"categories"`
	Explanation string                      `json:"explanation"`
	ModelUsed   string                      `json:"model_used"`
	ProcessedAt time.Time                   `json:"processed_at"`
	Path        string                      `json:"path"`
}

func summarize(path string, report *moderation.ModerationReport) reportSummary {
	return reportSummary{
		ReportID:    report.ReportID,
		PostID:      report.Post.PostID,
		AuthorUID:   report.Post.AuthorUID,
		Status:      report.Result.Status,
		Confidence:  report.Result.ConfidenceScore,
		Categories:  report.Result.Categories,
		Explanation: report.Result.Explanation,
		ModelUsed:   report.ModelUsed,
		ProcessedAt: report.ProcessedAt,
		Path:        path,
	}
}

func uidParam(c echo.Context) (int64, error) {
	uid, err := strconv.ParseInt(c.Param("uid"), 10, 64)
	if err != nil || uid <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid uid")
	}
	return uid, nil
}

func (s *Server) handleUserReports(c echo.Context) error {
	uid, err := uidParam(c)
	if err != nil {
		return err
	}

	limit := 20
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid limit")
		}
		if limit > 100 {
			limit = 100
		}
	}

	ctx := c.Request().Context()
	paths, err := s.reports.ListByUser(ctx, uid, limit)
	if err != nil {
		s.logger.Error("failed to list user reports", "uid", uid, "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list reports")
	}

	summaries := make([]reportSummary, 0, len(paths))
	for _, path := range paths {
		report, err := s.reports.Get(ctx, path)
		if err != nil {
			s.logger.Error("failed to load report", "path", path, "err", err)
			continue
		}
		summaries = append(summaries, summarize(path, report))
	}
	return c.JSON(http.StatusOK, map[string]any{"user_uid": uid, "reports": summaries})
}

func (s *Server) handleUserStats(c echo.Context) error {
	uid, err := uidParam(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	paths, err := s.reports.ListByUser(ctx, uid, 0)
	if err != nil {
		s.logger.Error("failed to list user reports", "uid", uid, "err", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list reports")
	}

	reports := make([]*moderation.ModerationReport, 0, len(paths))
	for _, path := range paths {
		report, err := s.reports.Get(ctx, path)
		if err != nil {
			s.logger.Error("failed to load report", "path", path, "err", err)
			continue
		}
		reports = append(reports, report)
	}
	return c.JSON(http.StatusOK, moderation.ComputeUserStats(uid, reports))
}

// caps on the recent-reports dashboard query, to bound object-store reads
const (
	recentPerDayLimit = 50
	recentTotalLimit  = 100
	recentMaxDays     = 30
)

func (s *Server) handleRecentReports(c echo.Context) error {
	days := 7
	if raw := c.QueryParam("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid days")
		}
		days = parsed
		if days > recentMaxDays {
			days = recentMaxDays
		}
	}

	ctx := c.Request().Context()
	now := time.Now().UTC()
	summaries := make([]reportSummary, 0)
	for d := 0; d < days && len(summaries) < recentTotalLimit; d++ {
		day := now.AddDate(0, 0, -d)
		paths, err := s.reports.List(ctx, day, day)
		if err != nil {
			s.logger.Error("failed to list reports", "day", day.Format("2006-01-02"), "err", err)
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to list reports")
		}

		loaded := 0
		for _, path := range paths {
			if loaded >= recentPerDayLimit || len(summaries) >= recentTotalLimit {
				break
			}
			loaded++
			report, err := s.reports.Get(ctx, path)
			if err != nil {
				s.logger.Error("failed to load report", "path", path, "err", err)
				continue
			}
			if !report.Result.IsHateSpeech {
				continue
			}
			summaries = append(summaries, summarize(path, report))
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"days": days, "reports": summaries})
}
