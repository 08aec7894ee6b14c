package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"

	"github.com/safespace-net/safespace/moderation"
	"github.com/safespace-net/safespace/moderation/bus"
	"github.com/safespace-net/safespace/moderation/reportstore"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "safespaced",
		Usage:   "asynchronous content moderation daemon",
		Version: versioninfo.Short(),
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "kafka-brokers",
			Usage:   "host:port of one or more Kafka brokers",
			Value:   cli.NewStringSlice("localhost:9092"),
			EnvVars: []string{"SAFESPACE_KAFKA_BROKERS"},
		},
		&cli.StringFlag{
			Name:    "kafka-posts-topic",
			Value:   bus.TopicNewPosts,
			EnvVars: []string{"SAFESPACE_KAFKA_POSTS_TOPIC"},
		},
		&cli.StringFlag{
			Name:    "kafka-results-topic",
			Value:   bus.TopicModerated,
			EnvVars: []string{"SAFESPACE_KAFKA_RESULTS_TOPIC"},
		},
		&cli.StringFlag{
			Name:    "kafka-group",
			Usage:   "consumer group; run more instances in the same group to scale out",
			Value:   bus.DefaultConsumerGroup,
			EnvVars: []string{"SAFESPACE_KAFKA_GROUP"},
		},
		&cli.StringFlag{
			Name:    "minio-endpoint",
			Value:   "localhost:9000",
			EnvVars: []string{"SAFESPACE_MINIO_ENDPOINT"},
		},
		&cli.StringFlag{
			Name:    "minio-access-key",
			EnvVars: []string{"SAFESPACE_MINIO_ACCESS_KEY", "MINIO_ACCESS_KEY"},
		},
		&cli.StringFlag{
			Name:    "minio-secret-key",
			EnvVars: []string{"SAFESPACE_MINIO_SECRET_KEY", "MINIO_SECRET_KEY"},
		},
		&cli.BoolFlag{
			Name:    "minio-ssl",
			EnvVars: []string{"SAFESPACE_MINIO_SSL"},
		},
		&cli.StringFlag{
			Name:    "report-bucket",
			Value:   "safespace-reports",
			EnvVars: []string{"SAFESPACE_REPORT_BUCKET"},
		},
		&cli.StringFlag{
			Name:    "media-bucket",
			Value:   "socialnet-media",
			EnvVars: []string{"SAFESPACE_MEDIA_BUCKET"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "optional; enables the per-user report index",
			EnvVars: []string{"SAFESPACE_REDIS_URL", "REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "database-url",
			Value:   "sqlite://data/safespaced/disputes.db",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "deepseek-api-key",
			Usage:   "when empty, classification runs on the keyword fallback only",
			EnvVars: []string{"SAFESPACE_DEEPSEEK_API_KEY", "DEEPSEEK_API_KEY"},
		},
		&cli.StringFlag{
			Name:    "deepseek-base-url",
			Value:   "https://api.deepseek.com/v1",
			EnvVars: []string{"SAFESPACE_DEEPSEEK_BASE_URL"},
		},
		&cli.StringFlag{
			Name:    "deepseek-model",
			Value:   "deepseek-chat",
			EnvVars: []string{"SAFESPACE_DEEPSEEK_MODEL"},
		},
		&cli.DurationFlag{
			Name:    "provider-timeout",
			Value:   30 * time.Second,
			EnvVars: []string{"SAFESPACE_PROVIDER_TIMEOUT"},
		},
		&cli.Float64Flag{
			Name:    "flag-threshold",
			Usage:   "confidence at or above which flagged content is marked 'flagged'",
			Value:   0.7,
			EnvVars: []string{"SAFESPACE_FLAG_THRESHOLD"},
		},
		&cli.Float64Flag{
			Name:    "block-threshold",
			Usage:   "confidence at or above which flagged content is marked 'blocked'",
			Value:   0.9,
			EnvVars: []string{"SAFESPACE_BLOCK_THRESHOLD"},
		},
		&cli.StringFlag{
			Name:    "language",
			Usage:   "language for explanations and revisions",
			Value:   "de",
			EnvVars: []string{"SAFESPACE_LANGUAGE"},
		},
		&cli.BoolFlag{
			Name:    "moderation-enabled",
			Value:   true,
			EnvVars: []string{"SAFESPACE_MODERATION_ENABLED"},
		},
		&cli.StringFlag{
			Name:    "bind",
			Usage:   "IP or address, and port, to listen on for HTTP APIs",
			Value:   ":3984",
			EnvVars: []string{"SAFESPACE_BIND"},
		},
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to listen on for metrics APIs",
			Value:   ":3985",
			EnvVars: []string{"SAFESPACE_METRICS_LISTEN"},
		},
	},
	Action: func(cctx *cli.Context) error {
		ctx := context.Background()
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))
		slog.SetDefault(logger)

		policy := moderation.DefaultPolicy()
		policy.FlagThreshold = cctx.Float64("flag-threshold")
		policy.BlockThreshold = cctx.Float64("block-threshold")

		srv, err := NewServer(ctx, Config{
			Logger:  logger,
			Bind:    cctx.String("bind"),
			Enabled: cctx.Bool("moderation-enabled"),
			Policy:  policy,
			Kafka: bus.KafkaConfig{
				Brokers:      cctx.StringSlice("kafka-brokers"),
				PostsTopic:   cctx.String("kafka-posts-topic"),
				ResultsTopic: cctx.String("kafka-results-topic"),
				Group:        cctx.String("kafka-group"),
			},
			Minio: reportstore.MinioConfig{
				Endpoint:     cctx.String("minio-endpoint"),
				AccessKey:    cctx.String("minio-access-key"),
				SecretKey:    cctx.String("minio-secret-key"),
				UseSSL:       cctx.Bool("minio-ssl"),
				ReportBucket: cctx.String("report-bucket"),
				MediaBucket:  cctx.String("media-bucket"),
			},
			RedisURL:        cctx.String("redis-url"),
			DatabaseURL:     cctx.String("database-url"),
			DeepSeekAPIKey:  cctx.String("deepseek-api-key"),
			DeepSeekBaseURL: cctx.String("deepseek-base-url"),
			DeepSeekModel:   cctx.String("deepseek-model"),
			ProviderTimeout: cctx.Duration("provider-timeout"),
			Language:        cctx.String("language"),
		})
		if err != nil {
			return err
		}

		go func() {
			if err := srv.RunMetrics(cctx.String("metrics-listen")); err != nil {
				slog.Error("failed to start metrics endpoint", "error", err)
				panic(fmt.Errorf("failed to start metrics endpoint: %w", err))
			}
		}()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("failed to run moderation service: %w", err)
		}
		return nil
	},
}
