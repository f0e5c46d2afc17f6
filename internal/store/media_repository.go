package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tvoe/mediaserver/internal/domain"
)

func millisToDuration(millis int64) time.Duration {
	return time.Duration(millis) * time.Millisecond
}

// MediaRepository handles media element lookups. Stream metadata is stored as
// JSONB alongside the scalar columns.
type MediaRepository struct {
	db *DB
}

// NewMediaRepository creates a new media repository
func NewMediaRepository(db *DB) *MediaRepository {
	return &MediaRepository{db: db}
}

// GetByID retrieves a media element by ID
func (r *MediaRepository) GetByID(ctx context.Context, id int64) (*domain.MediaElement, error) {
	query := `
		SELECT id, path, type, container, duration_ms, bitrate, lossless, streams
		FROM media_elements
		WHERE id = $1
	`

	return r.scanElement(r.db.Pool.QueryRow(ctx, query, id))
}

// GetByPath retrieves a media element by source path
func (r *MediaRepository) GetByPath(ctx context.Context, path string) (*domain.MediaElement, error) {
	query := `
		SELECT id, path, type, container, duration_ms, bitrate, lossless, streams
		FROM media_elements
		WHERE path = $1
	`

	return r.scanElement(r.db.Pool.QueryRow(ctx, query, path))
}

// Upsert inserts or refreshes a probed media element and returns its ID.
func (r *MediaRepository) Upsert(ctx context.Context, element *domain.MediaElement) (int64, error) {
	streamsJSON, err := json.Marshal(mediaStreams{
		Video:     element.Video,
		Audio:     element.Audio,
		Subtitles: element.Subtitles,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal streams: %w", err)
	}

	query := `
		INSERT INTO media_elements (path, type, container, duration_ms, bitrate, lossless, streams)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (path) DO UPDATE SET
			type = EXCLUDED.type,
			container = EXCLUDED.container,
			duration_ms = EXCLUDED.duration_ms,
			bitrate = EXCLUDED.bitrate,
			lossless = EXCLUDED.lossless,
			streams = EXCLUDED.streams
		RETURNING id
	`

	var id int64
	err = r.db.Pool.QueryRow(ctx, query,
		element.Path,
		element.Type,
		element.Container,
		element.Duration.Milliseconds(),
		element.Bitrate,
		element.Lossless,
		streamsJSON,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert media element: %w", err)
	}

	return id, nil
}

// mediaStreams is the JSONB shape of the streams column.
type mediaStreams struct {
	Video     *domain.VideoStream     `json:"video,omitempty"`
	Audio     []domain.AudioStream    `json:"audio,omitempty"`
	Subtitles []domain.SubtitleStream `json:"subtitles,omitempty"`
}

func (r *MediaRepository) scanElement(row pgx.Row) (*domain.MediaElement, error) {
	var element domain.MediaElement
	var durationMillis int64
	var streamsJSON []byte

	err := row.Scan(
		&element.ID,
		&element.Path,
		&element.Type,
		&element.Container,
		&durationMillis,
		&element.Bitrate,
		&element.Lossless,
		&streamsJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan media element: %w", err)
	}

	element.Duration = millisToDuration(durationMillis)

	var streams mediaStreams
	if err := json.Unmarshal(streamsJSON, &streams); err != nil {
		return nil, fmt.Errorf("failed to unmarshal streams: %w", err)
	}
	element.Video = streams.Video
	element.Audio = streams.Audio
	element.Subtitles = streams.Subtitles

	return &element, nil
}
