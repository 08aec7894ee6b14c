// Package disputestore records user appeals against automated moderation
// decisions. Filing a dispute is the only mutation path available to end
// users; resolution is a manual moderator action outside the automated
// pipeline.
package disputestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	slogGorm "github.com/orandin/slog-gorm"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	StatusPendingReview = "pending"
	StatusResolved      = "resolved"
)

type Dispute struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserUID   int64     `gorm:"index" json:"user_uid"`
	Content   string    `json:"content"`
	Reason    string    `json:"reason"`
	Status    string    `gorm:"default:pending" json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	db *gorm.DB
}

// NewStore opens the dispute database. Supported URL schemes: sqlite:// and
// postgresql:// (or postgres://).
func NewStore(dburl string) (*Store, error) {
	var dial gorm.Dialector
	switch {
	case strings.HasPrefix(dburl, "sqlite://"):
		path := dburl[len("sqlite://"):]
		// ensure the directory exists if the db file is being initialized
		if !strings.Contains(path, ":memory:") {
			os.MkdirAll(filepath.Dir(path), os.ModePerm)
		}
		dial = sqlite.Open(path)
	case strings.HasPrefix(dburl, "postgresql://"), strings.HasPrefix(dburl, "postgres://"):
		// can pass entire URL, with prefix, to gorm driver
		dial = postgres.Open(dburl)
	default:
		return nil, fmt.Errorf("unsupported or unrecognized database URL scheme")
	}

	db, err := gorm.Open(dial, &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 slogGorm.New(),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&Dispute{}); err != nil {
		return nil, fmt.Errorf("migrating dispute schema: %w", err)
	}
	return &Store{db: db}, nil
}

// File appends a new dispute; status is fixed at pending. Terminal states
// are set only by a human moderator.
func (s *Store) File(ctx context.Context, uid int64, content, reason string) (*Dispute, error) {
	dispute := Dispute{
		UserUID:   uid,
		Content:   content,
		Reason:    reason,
		Status:    StatusPendingReview,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&dispute).Error; err != nil {
		return nil, fmt.Errorf("filing dispute: %w", err)
	}
	return &dispute, nil
}

// ListPending returns open disputes, oldest first, for moderator tooling.
func (s *Store) ListPending(ctx context.Context, limit int) ([]Dispute, error) {
	var disputes []Dispute
	q := s.db.WithContext(ctx).Where("status = ?", StatusPendingReview).Order("created_at asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&disputes).Error; err != nil {
		return nil, err
	}
	return disputes, nil
}

func (s *Store) ListByUser(ctx context.Context, uid int64, limit int) ([]Dispute, error) {
	var disputes []Dispute
	q := s.db.WithContext(ctx).Where("user_uid = ?", uid).Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&disputes).Error; err != nil {
		return nil, err
	}
	return disputes, nil
}
