package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// UserStatsRepository accumulates per-user streaming statistics
type UserStatsRepository struct {
	db *DB
}

// NewUserStatsRepository creates a new user stats repository
func NewUserStatsRepository(db *DB) *UserStatsRepository {
	return &UserStatsRepository{db: db}
}

// AddBytesStreamed accumulates streamed bytes for a user
func (r *UserStatsRepository) AddBytesStreamed(ctx context.Context, userID int64, bytes int64) error {
	query := `
		INSERT INTO user_stats (user_id, bytes_streamed)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET
			bytes_streamed = user_stats.bytes_streamed + EXCLUDED.bytes_streamed
	`

	_, err := r.db.Pool.Exec(ctx, query, userID, bytes)
	if err != nil {
		return fmt.Errorf("failed to add streamed bytes: %w", err)
	}

	return nil
}

// BytesStreamed returns the accumulated byte count for a user, zero when no
// row exists yet.
func (r *UserStatsRepository) BytesStreamed(ctx context.Context, userID int64) (int64, error) {
	query := `SELECT bytes_streamed FROM user_stats WHERE user_id = $1`

	var bytes int64
	err := r.db.Pool.QueryRow(ctx, query, userID).Scan(&bytes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read user stats: %w", err)
	}

	return bytes, nil
}
