package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/benvon/smart-notes/internal/models"
	"github.com/google/uuid"
)

// TagStatisticsRepository persists the per-user tag rollups. Rows are
// created tainted and empty the first time a user's tags change.
type TagStatisticsRepository struct {
	db *DB
}

// NewTagStatisticsRepository returns a repository over tag_statistics.
func NewTagStatisticsRepository(db *DB) *TagStatisticsRepository {
	return &TagStatisticsRepository{db: db}
}

const (
	tagStatisticsColumns = `user_id, tag_stats, tainted, last_analyzed_at, analysis_version, created_at, updated_at`

	// seedTagStatistics inserts the empty tainted row; $1 user, $2 timestamp.
	seedTagStatistics = `INSERT INTO tag_statistics (user_id, tag_stats, tainted, analysis_version, created_at, updated_at)
		VALUES ($1, '{}', true, 0, $2, $2)`
)

func encodeTagStats(usage map[string]models.TagUsage) (string, error) {
	if usage == nil {
		usage = map[string]models.TagUsage{}
	}
	b, err := json.Marshal(usage)
	if err != nil {
		return "", fmt.Errorf("encode tag usage: %w", err)
	}
	return string(b), nil
}

func scanTagStatistics(row *sql.Row) (*models.TagStatistics, error) {
	var (
		s        models.TagStatistics
		usage    []byte
		analyzed sql.NullTime
	)
	if err := row.Scan(&s.UserID, &usage, &s.Tainted, &analyzed, &s.AnalysisVersion, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Usage = map[string]models.TagUsage{}
	if len(usage) > 0 {
		if err := json.Unmarshal(usage, &s.Usage); err != nil {
			return nil, fmt.Errorf("decode tag usage: %w", err)
		}
	}
	if analyzed.Valid {
		t := analyzed.Time
		s.LastAnalyzedAt = &t
	}
	return &s, nil
}

// GetByUserID loads userID's statistics or returns ErrNotFound.
func (r *TagStatisticsRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.TagStatistics, error) {
	stats, err := scanTagStatistics(r.db.QueryRowContext(ctx,
		`SELECT `+tagStatisticsColumns+` FROM tag_statistics WHERE user_id = $1`, userID))
	if err != nil {
		return nil, wrapErr("get tag statistics", err)
	}
	return stats, nil
}

// GetByUserIDOrCreate is GetByUserID that seeds the empty tainted row first
// when the user has none.
func (r *TagStatisticsRepository) GetByUserIDOrCreate(ctx context.Context, userID uuid.UUID) (*models.TagStatistics, error) {
	stats, err := r.GetByUserID(ctx, userID)
	if !errors.Is(err, ErrNotFound) {
		return stats, err
	}
	if _, err := r.db.ExecContext(ctx, seedTagStatistics+` ON CONFLICT (user_id) DO NOTHING`, userID, utcNow()); err != nil {
		return nil, wrapErr("seed tag statistics", err)
	}
	return r.GetByUserID(ctx, userID)
}

// UpdateStatistics stores freshly computed statistics if nobody else has since
// the caller read stats.AnalysisVersion. It reports false on a version conflict.
func (r *TagStatisticsRepository) UpdateStatistics(ctx context.Context, stats *models.TagStatistics) (bool, error) {
	encoded, err := encodeTagStats(stats.Usage)
	if err != nil {
		return false, err
	}

	now := utcNow()
	analyzedAt := now
	if stats.LastAnalyzedAt != nil {
		analyzedAt = stats.LastAnalyzedAt.UTC()
	}

	var newVersion int
	err = r.db.QueryRowContext(ctx, `
		UPDATE tag_statistics
		SET tag_stats = $1, tainted = false, last_analyzed_at = $2, analysis_version = analysis_version + 1, updated_at = $3
		WHERE user_id = $4 AND analysis_version = $5
		RETURNING analysis_version
	`, encoded, analyzedAt, now, stats.UserID, stats.AnalysisVersion).Scan(&newVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapErr("update tag statistics", err)
	}

	stats.AnalysisVersion = newVersion
	stats.Tainted = false
	stats.LastAnalyzedAt = &analyzedAt
	stats.UpdatedAt = now
	return true, nil
}

// MarkTainted flags a user's statistics as stale, creating the record if needed.
// Every call advances analysis_version so an analysis that read the records
// before this change loses its version check. It reports whether the flag
// actually flipped from false to true.
func (r *TagStatisticsRepository) MarkTainted(ctx context.Context, userID uuid.UUID) (bool, error) {
	flipped := false
	err := r.db.WithTx(ctx, func(tx *sql.Tx) error {
		now := utcNow()
		var tainted bool
		err := tx.QueryRowContext(ctx, `SELECT tainted FROM tag_statistics WHERE user_id = $1`, userID).Scan(&tainted)
		if errors.Is(err, sql.ErrNoRows) {
			_, err = tx.ExecContext(ctx, seedTagStatistics+`
				ON CONFLICT (user_id) DO UPDATE
				SET tainted = true, analysis_version = tag_statistics.analysis_version + 1, updated_at = $2`,
				userID, now)
			flipped = err == nil
			return err
		}
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE tag_statistics
			SET tainted = true, analysis_version = analysis_version + 1, updated_at = $2
			WHERE user_id = $1
		`, userID, now)
		flipped = err == nil && !tainted
		return err
	})
	if err != nil {
		return false, wrapErr("mark tag statistics tainted", err)
	}
	return flipped, nil
}
