package reportstore

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/safespace-net/safespace/moderation"
)

// MemReportStore is an in-memory ReportStore for tests and local
// development. Reports are stored as encoded JSON so reads return
// independent copies, like the object-store implementation.
type MemReportStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemReportStore() *MemReportStore {
	return &MemReportStore{
		data: make(map[string][]byte),
	}
}

func (s *MemReportStore) Put(ctx context.Context, report *moderation.ModerationReport) (string, error) {
	raw, err := json.Marshal(report)
	if err != nil {
		return "", err
	}
	path := ReportPath(report)
	s.mu.Lock()
	s.data[path] = raw
	s.mu.Unlock()
	return path, nil
}

func (s *MemReportStore) Get(ctx context.Context, path string) (*moderation.ModerationReport, error) {
	s.mu.RLock()
	raw, ok := s.data[path]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var report moderation.ModerationReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *MemReportStore) List(ctx context.Context, from, to time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var paths []string
	for _, prefix := range dayPrefixes(from, to) {
		for path := range s.data {
			if strings.HasPrefix(path, prefix) {
				paths = append(paths, path)
			}
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// legacy scan-and-filter; the MinIO store prefers the Redis index
func (s *MemReportStore) ListByUser(ctx context.Context, uid int64, limit int) ([]string, error) {
	s.mu.RLock()
	paths := make([]string, 0, len(s.data))
	for path := range s.data {
		paths = append(paths, path)
	}
	s.mu.RUnlock()
	sort.Strings(paths)

	var out []string
	for _, path := range paths {
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

var _ ReportStore = (*MemReportStore)(nil)
