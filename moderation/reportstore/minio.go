package reportstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/safespace-net/safespace/moderation"
)

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool

	ReportBucket string
	MediaBucket  string
}

// MinioStore stores moderation reports (and user media) in MinIO / any
// S3-compatible object store. Safe for concurrent use from multiple worker
// instances; the object store itself is the shared resource.
type MinioStore struct {
	client *minio.Client
	cfg    MinioConfig
	index  *RedisUserIndex
	logger *slog.Logger
}

// NewMinioStore connects to the object store and ensures the configured
// buckets exist. The user index is optional; without it ListByUser degrades
// to a linear scan.
func NewMinioStore(ctx context.Context, cfg MinioConfig, index *RedisUserIndex, logger *slog.Logger) (*MinioStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to object store: %w", err)
	}

	s := &MinioStore{
		client: client,
		cfg:    cfg,
		index:  index,
		logger: logger.With("component", "reportstore"),
	}
	for _, bucket := range []string{cfg.ReportBucket, cfg.MediaBucket} {
		if bucket == "" {
			continue
		}
		if err := s.ensureBucket(ctx, bucket); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *MinioStore) ensureBucket(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("checking bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("creating bucket %s: %w", bucket, err)
		}
		s.logger.Info("created bucket", "bucket", bucket)
	}
	return nil
}

func (s *MinioStore) Put(ctx context.Context, report *moderation.ModerationReport) (string, error) {
	raw, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}

	path := ReportPath(report)
	_, err = s.client.PutObject(ctx, s.cfg.ReportBucket, path, bytes.NewReader(raw), int64(len(raw)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("storing report %s: %w", report.ReportID, err)
	}

	if s.index != nil {
		// index failure is not fatal: the report itself is durable, the
		// index can be rebuilt by a scan
		if err := s.index.Add(ctx, report.Post.AuthorUID, path); err != nil {
			s.logger.Error("failed to index report for user", "uid", report.Post.AuthorUID, "path", path, "err", err)
		}
	}
	return path, nil
}

func (s *MinioStore) Get(ctx context.Context, path string) (*moderation.ModerationReport, error) {
	obj, err := s.client.GetObject(ctx, s.cfg.ReportBucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetching report %s: %w", path, err)
	}
	defer obj.Close()

	raw, err := io.ReadAll(obj)
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading report %s: %w", path, err)
	}

	var report moderation.ModerationReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("decoding report %s: %w", path, err)
	}
	return &report, nil
}

func (s *MinioStore) List(ctx context.Context, from, to time.Time) ([]string, error) {
	var paths []string
	for _, prefix := range dayPrefixes(from, to) {
		found, err := s.listPrefix(ctx, prefix)
		if err != nil {
			return nil, err
		}
		paths = append(paths, found...)
	}
	return paths, nil
}

func (s *MinioStore) listPrefix(ctx context.Context, prefix string) ([]string, error) {
	var paths []string
	for obj := range s.client.ListObjects(ctx, s.cfg.ReportBucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("listing reports under %s: %w", prefix, obj.Err)
		}
		paths = append(paths, obj.Key)
	}
	return paths, nil
}

func (s *MinioStore) ListByUser(ctx context.Context, uid int64, limit int) ([]string, error) {
	if s.index != nil {
		return s.index.List(ctx, uid, limit)
	}

	// legacy path: full scan, loading each report to check the author
	all, err := s.listPrefix(ctx, "reports/")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, path := range all {
		if limit > 0 && len(out) >= limit {
			break
		}
		report, err := s.Get(ctx, path)
		if err != nil {
			continue
		}
		if report.Post.AuthorUID == uid {
			out = append(out, path)
		}
	}
	return out, nil
}

// === media objects (shared MinIO client, used by the post-creation flow) ===

func mediaFolder(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "images"
	case strings.HasPrefix(contentType, "video/"):
		return "videos"
	case strings.HasPrefix(contentType, "audio/"):
		return "audio"
	default:
		return "other"
	}
}

// UploadMedia stores a media file under users/{uid}/{kind}/{uuid}{ext} and
// returns the object path.
func (s *MinioStore) UploadMedia(ctx context.Context, uid int64, data io.Reader, size int64, filename, contentType string) (string, error) {
	path := fmt.Sprintf("users/%d/%s/%s%s", uid, mediaFolder(contentType), uuid.NewString(), filepath.Ext(filename))
	_, err := s.client.PutObject(ctx, s.cfg.MediaBucket, path, data, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("uploading media: %w", err)
	}
	return path, nil
}

// PresignedMediaURL generates a temporary download URL for a media object.
func (s *MinioStore) PresignedMediaURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.cfg.MediaBucket, path, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presigning media url: %w", err)
	}
	return u.String(), nil
}

func (s *MinioStore) DeleteMedia(ctx context.Context, path string) error {
	return s.client.RemoveObject(ctx, s.cfg.MediaBucket, path, minio.RemoveObjectOptions{})
}

var _ ReportStore = (*MinioStore)(nil)
