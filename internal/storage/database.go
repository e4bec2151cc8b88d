package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	// import db drivers
	_ "github.com/lib/pq"
	"github.com/revware/pr-sentinel/internal/core"
)

//go:generate mockgen -destination=../../mocks/mock_store.go -package=mocks . Store

// Store defines the interface for all review history operations.
type Store interface {
	SaveReview(ctx context.Context, record *core.ReviewRecord) error
	GetLatestReviewForPR(ctx context.Context, repoFullName string, prNumber int) (*core.ReviewRecord, error)
}

type postgresStore struct {
	db *sqlx.DB
}

// NewStore creates a new Store
func NewStore(db *sqlx.DB) Store {
	return &postgresStore{db: db}
}

// SaveReview inserts a published review record into the database.
func (s *postgresStore) SaveReview(ctx context.Context, record *core.ReviewRecord) error {
	query := `INSERT INTO reviews (repo_full_name, pr_number, head_sha, verdict, body, iteration, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.db.ExecContext(ctx, query,
		record.RepoFullName, record.PRNumber, record.HeadSHA,
		record.Verdict, record.Body, record.Iteration, time.Now())
	return err
}

// GetLatestReviewForPR retrieves the most recent review for a given
// pull request. A PR with no history returns (nil, nil).
func (s *postgresStore) GetLatestReviewForPR(ctx context.Context, repoFullName string, prNumber int) (*core.ReviewRecord, error) {
	query := `
		SELECT id, repo_full_name, pr_number, head_sha, verdict, body, iteration, created_at
		FROM reviews
		WHERE repo_full_name = $1 AND pr_number = $2
		ORDER BY created_at DESC
		LIMIT 1`

	var r core.ReviewRecord
	err := s.db.GetContext(ctx, &r, query, repoFullName, prNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}
