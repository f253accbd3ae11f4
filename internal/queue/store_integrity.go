package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chorus/internal/services"
)

// SaveCaptionIntegrity upserts the caption hashes for one job language.
func (s *Store) SaveCaptionIntegrity(ctx context.Context, record CaptionIntegrity) error {
	ctx = ensureContext(ctx)
	if record.JobID == 0 || record.Language == "" {
		return services.Wrap(services.ErrValidation, "queue", "save-integrity",
			"job id and language are required", nil)
	}

	now := time.Now().UTC()
	_, err := s.execWithRetry(ctx, `
		INSERT INTO caption_integrity (job_id, language, long_hash, short_hash, long_size, short_size, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (job_id, language) DO UPDATE SET
			long_hash = excluded.long_hash,
			short_hash = excluded.short_hash,
			long_size = excluded.long_size,
			short_size = excluded.short_size,
			created_at = excluded.created_at`,
		record.JobID, record.Language, record.LongHash, record.ShortHash,
		record.LongSize, record.ShortSize, now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return services.Wrap(services.ErrStorage, "queue", "save-integrity", "upsert caption integrity", err)
	}
	return nil
}

// GetCaptionIntegrity reads the stored hashes for one job language.
func (s *Store) GetCaptionIntegrity(ctx context.Context, jobID int64, language string) (*CaptionIntegrity, error) {
	ctx = ensureContext(ctx)

	var (
		record    CaptionIntegrity
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT job_id, language, long_hash, short_hash, long_size, short_size, created_at
		FROM caption_integrity WHERE job_id = ? AND language = ?`,
		jobID, language,
	).Scan(&record.JobID, &record.Language, &record.LongHash, &record.ShortHash,
		&record.LongSize, &record.ShortSize, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "queue", "get-integrity",
			fmt.Sprintf("no caption integrity for job %d language %s", jobID, language), nil)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "queue", "get-integrity", "read caption integrity", err)
	}
	if record.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, services.Wrap(services.ErrStorage, "queue", "get-integrity", "parse timestamp", err)
	}
	return &record, nil
}
