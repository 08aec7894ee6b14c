// Package reportstore persists immutable moderation reports.
//
// Reports are stored content-complete as JSON under a time-bucketed path,
// reports/{year}/{month}/{day}/{report_id}.json, so date-range queries are
// prefix scans. Reports are write-once: corrections happen only by
// superseding with a new report, never by mutation.
package reportstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/safespace-net/safespace/moderation"
)

var ErrNotFound = errors.New("report not found")

type ReportStore interface {
	// Put stores the full report and returns its path. The report is the
	// unit of storage; there are no partial writes.
	Put(ctx context.Context, report *moderation.ModerationReport) (string, error)
	Get(ctx context.Context, path string) (*moderation.ModerationReport, error)
	// List returns report paths for the inclusive date range, via per-day
	// prefix scans.
	List(ctx context.Context, from, to time.Time) ([]string, error)
	// ListByUser returns up to limit report paths for one author. Backed by
	// a secondary index when one is configured, otherwise a legacy linear
	// scan-and-filter.
	ListByUser(ctx context.Context, uid int64, limit int) ([]string, error)
}

// ReportPath computes the storage path for a report, bucketed by its
// processing date (UTC).
func ReportPath(report *moderation.ModerationReport) string {
	t := report.ProcessedAt.UTC()
	return fmt.Sprintf("reports/%d/%02d/%02d/%s.json", t.Year(), int(t.Month()), t.Day(), report.ReportID)
}

// DayPrefix returns the scan prefix for a single day.
func DayPrefix(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("reports/%d/%02d/%02d/", t.Year(), int(t.Month()), t.Day())
}

// dayPrefixes expands an inclusive date range into per-day scan prefixes.
func dayPrefixes(from, to time.Time) []string {
	from = from.UTC().Truncate(24 * time.Hour)
	to = to.UTC().Truncate(24 * time.Hour)
	if to.Before(from) {
		return nil
	}
	var prefixes []string
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		prefixes = append(prefixes, DayPrefix(d))
	}
	return prefixes
}
