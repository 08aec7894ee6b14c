package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogecho "github.com/samber/slog-echo"

	"github.com/safespace-net/safespace/moderation"
	"github.com/safespace-net/safespace/moderation/bus"
	"github.com/safespace-net/safespace/moderation/classifier"
	"github.com/safespace-net/safespace/moderation/disputestore"
	"github.com/safespace-net/safespace/moderation/reportstore"
	"github.com/safespace-net/safespace/moderation/worker"
)

type Server struct {
	logger *slog.Logger
	echo   *echo.Echo
	httpd  *http.Server

	enabled    bool
	policy     moderation.Policy
	language   string
	model      string
	postsTopic string

	bus        *bus.KafkaBus
	classifier classifier.Classifier
	suggester  classifier.Suggester
	reports    reportstore.ReportStore
	disputes   *disputestore.Store
	worker     *worker.Worker
}

type Config struct {
	Logger  *slog.Logger
	Bind    string
	Enabled bool
	Policy  moderation.Policy
	Kafka   bus.KafkaConfig
	Minio   reportstore.MinioConfig

	RedisURL    string
	DatabaseURL string

	DeepSeekAPIKey  string
	DeepSeekBaseURL string
	DeepSeekModel   string
	ProviderTimeout time.Duration
	Language        string
}

func NewServer(ctx context.Context, config Config) (*Server, error) {
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
	}

	var index *reportstore.RedisUserIndex
	if config.RedisURL != "" {
		idx, err := reportstore.NewRedisUserIndex(config.RedisURL)
		if err != nil {
			return nil, err
		}
		index = idx
	} else {
		logger.Info("redis not configured, user report lookups fall back to scans")
	}

	reports, err := reportstore.NewMinioStore(ctx, config.Minio, index, logger)
	if err != nil {
		return nil, err
	}

	disputes, err := disputestore.NewStore(config.DatabaseURL)
	if err != nil {
		return nil, err
	}

	// the bus is the only dependency worth dying for: without it there is
	// no work to consume, so let the supervisor restart us
	kb, err := bus.NewKafkaBus(ctx, config.Kafka, logger)
	if err != nil {
		return nil, err
	}

	fallback := classifier.NewFallbackClassifier()
	var cls classifier.Classifier = fallback
	var suggester classifier.Suggester
	model := classifier.ModelFallback
	if config.DeepSeekAPIKey != "" {
		ds := classifier.NewDeepSeekClassifier(config.DeepSeekBaseURL, config.DeepSeekAPIKey, config.DeepSeekModel, config.ProviderTimeout, logger)
		cls = classifier.WithFallback(ds, fallback, logger)
		suggester = ds
		model = config.DeepSeekModel
	} else {
		logger.Warn("no provider API key configured, classification runs on keyword fallback only")
	}

	w := worker.New(worker.Config{
		Consumer:   kb,
		Publisher:  kb,
		Classifier: cls,
		Reports:    reports,
		Policy:     config.Policy,
		Language:   config.Language,
		Logger:     logger,
	})

	s := &Server{
		logger:     logger,
		enabled:    config.Enabled,
		policy:     config.Policy,
		language:   config.Language,
		model:      model,
		postsTopic: config.Kafka.PostsTopic,
		bus:        kb,
		classifier: cls,
		suggester:  suggester,
		reports:    reports,
		disputes:   disputes,
		worker:     w,
	}
	s.buildAPI(config.Bind)
	return s, nil
}

func (s *Server) buildAPI(bind string) {
	e := echo.New()
	e.HideBanner = true
	e.Use(slogecho.New(s.logger))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))

	e.GET("/_health", s.handleHealthCheck)
	e.GET("/safespace/status", s.handleStatus)
	e.POST("/safespace/check", s.handleCheck)
	e.POST("/safespace/suggest-revision", s.handleSuggestRevision)
	e.POST("/safespace/dispute", s.handleDispute)
	e.GET("/safespace/reports/user/:uid", s.handleUserReports)
	e.GET("/safespace/stats/user/:uid", s.handleUserStats)
	e.GET("/safespace/reports/recent", s.handleRecentReports)

	s.echo = e
	s.httpd = &http.Server{
		Handler:        e,
		Addr:           bind,
		ReadTimeout:    time.Minute,
		WriteTimeout:   time.Minute,
		MaxHeaderBytes: 1 * (1024 * 1024),
	}
}

// Run starts the consumer loop and the HTTP API, then blocks until an OS
// exit signal or a fatal consumer error.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	workerDone := make(chan error, 1)
	if s.enabled {
		go func() { workerDone <- s.worker.Run(ctx) }()
	} else {
		s.logger.Warn("moderation pipeline disabled, consumer not started")
	}

	s.logger.Info("starting server", "bind", s.httpd.Addr)
	go func() {
		if err := s.httpd.ListenAndServe(); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error("HTTP server shutting down unexpectedly", "err", err)
			}
		}
	}()

	exitSignals := make(chan os.Signal, 1)
	signal.Notify(exitSignals, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-exitSignals:
		s.logger.Info("received OS exit signal", "signal", sig.String())
	case err := <-workerDone:
		// consumer loop returned on its own: either a fatal bus error or an
		// external context cancellation
		runErr = err
	}

	cancel()
	if err := s.Shutdown(); err != nil {
		s.logger.Error("HTTP server shutdown error", "err", err)
	}
	if err := s.bus.Close(); err != nil {
		s.logger.Error("closing bus writers", "err", err)
	}
	s.logger.Info("graceful shutdown complete")
	return runErr
}

func (s *Server) RunMetrics(listen string) error {
	http.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(listen, nil)
}

func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.httpd.Shutdown(ctx)
}
