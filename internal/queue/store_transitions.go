package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"chorus/internal/services"
)

// BeginProcessing atomically moves a pending job to processing. It returns
// services.ErrConflict if the job is already processing and
// services.ErrValidation if the job is terminal.
func (s *Store) BeginProcessing(ctx context.Context, id int64) (*Job, error) {
	ctx = ensureContext(ctx)

	job, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status == StatusProcessing {
		return nil, services.Wrap(services.ErrConflict, "queue", "begin-processing",
			fmt.Sprintf("job %d is already processing", id), nil)
	}
	if job.Status.Terminal() && job.CurrentLanguage == "" {
		return nil, services.Wrap(services.ErrValidation, "queue", "begin-processing",
			fmt.Sprintf("job %d is %s and cannot be reprocessed", id, job.Status), nil)
	}

	now := time.Now().UTC()
	res, err := s.execWithRetry(ctx, `
		UPDATE audio_jobs
		SET status = ?, updated_at = ?, last_heartbeat = ?
		WHERE id = ? AND status = ?`,
		string(StatusProcessing), now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
		id, string(job.Status),
	)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "queue", "begin-processing", "claim job", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "queue", "begin-processing", "read affected rows", err)
	}
	if affected == 0 {
		return nil, services.Wrap(services.ErrConflict, "queue", "begin-processing",
			fmt.Sprintf("job %d was claimed concurrently", id), nil)
	}

	job.Status = StatusProcessing
	job.UpdatedAt = now
	job.LastHeartbeat = &now
	return job, nil
}

// LanguageResult is one language's outcome from a processing pass.
type LanguageResult struct {
	Language       string
	Status         LanguageStatus
	TranslatedText string
}

// MergeLanguageResults folds a processing pass back into the stored job in a
// single transaction: per-language statuses, audio URLs, translations and
// errors are merged rather than replaced so earlier completions survive. The
// job-level status is recomputed from the merged sets unless the job was
// cancelled mid-flight, in which case cancelled wins.
func (s *Store) MergeLanguageResults(ctx context.Context, id int64, results []LanguageResult) (*Job, error) {
	ctx = ensureContext(ctx)

	var merged *Job
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin merge tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		row := tx.QueryRowContext(ctx,
			"SELECT "+jobColumns+" FROM audio_jobs WHERE id = ?", id)
		job, err := scanJob(row)
		if errors.Is(err, sql.ErrNoRows) {
			return services.Wrap(services.ErrNotFound, "queue", "merge",
				fmt.Sprintf("job %d not found", id), nil)
		}
		if err != nil {
			return fmt.Errorf("read job for merge: %w", err)
		}

		if job.LanguageStatuses == nil {
			job.LanguageStatuses = make(map[string]LanguageStatus)
		}
		if job.AudioURLs == nil {
			job.AudioURLs = make(map[string]string)
		}
		if job.TranslatedTexts == nil {
			job.TranslatedTexts = make(map[string]string)
		}
		if job.Errors == nil {
			job.Errors = make(map[string]string)
		}

		for _, result := range results {
			job.LanguageStatuses[result.Language] = result.Status
			switch result.Status.State {
			case LanguageCompleted:
				if !job.HasCompleted(result.Language) {
					job.CompletedLanguages = append(job.CompletedLanguages, result.Language)
				}
				job.AudioURLs[result.Language] = result.Status.AudioURL
				delete(job.Errors, result.Language)
			case LanguageFailed:
				job.Errors[result.Language] = result.Status.Reason
			}
			if result.TranslatedText != "" {
				job.TranslatedTexts[result.Language] = result.TranslatedText
			}
		}

		now := time.Now().UTC()
		if job.Status != StatusCancelled {
			job.Status = job.OverallStatus()
		}
		job.CurrentLanguage = ""
		job.UpdatedAt = now
		if job.Status.Terminal() {
			job.CompletedAt = &now
		}

		statuses, err := encodeJSON(job.LanguageStatuses)
		if err != nil {
			return err
		}
		completed, err := encodeJSON(job.CompletedLanguages)
		if err != nil {
			return err
		}
		audioURLs, err := encodeJSON(job.AudioURLs)
		if err != nil {
			return err
		}
		translated, err := encodeJSON(job.TranslatedTexts)
		if err != nil {
			return err
		}
		jobErrors, err := encodeJSON(job.Errors)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE audio_jobs
			SET completed_languages = ?, language_statuses = ?, audio_urls = ?,
				translated_texts = ?, errors = ?, status = ?, current_language = NULL,
				updated_at = ?, completed_at = ?
			WHERE id = ?`,
			completed, statuses, audioURLs,
			translated, jobErrors, string(job.Status),
			now.Format(time.RFC3339Nano), nullableTime(job.CompletedAt),
			id,
		)
		if err != nil {
			return fmt.Errorf("write merged job: %w", err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit merge: %w", err)
		}
		merged = job
		return nil
	})
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrStorage, "queue", "merge", "merge language results", err)
	}
	return merged, nil
}

// Cancel moves a pending or processing job to cancelled. Terminal jobs
// return services.ErrConflict.
func (s *Store) Cancel(ctx context.Context, id int64) (*Job, error) {
	ctx = ensureContext(ctx)

	job, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !job.Status.Cancellable() {
		return nil, services.Wrap(services.ErrConflict, "queue", "cancel",
			fmt.Sprintf("job %d is %s and cannot be cancelled", id, job.Status), nil)
	}

	now := time.Now().UTC()
	_, err = s.execWithRetry(ctx, `
		UPDATE audio_jobs
		SET status = ?, updated_at = ?, completed_at = ?
		WHERE id = ? AND status IN (?, ?)`,
		string(StatusCancelled), now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
		id, string(StatusPending), string(StatusProcessing),
	)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "queue", "cancel", "cancel job", err)
	}

	job.Status = StatusCancelled
	job.UpdatedAt = now
	job.CompletedAt = &now
	return job, nil
}

// UpdateHeartbeat records liveness for a processing job.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	ctx = ensureContext(ctx)
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.execWithRetry(ctx, `
		UPDATE audio_jobs SET last_heartbeat = ? WHERE id = ? AND status = ?`,
		now, id, string(StatusProcessing),
	)
	if err != nil {
		return services.Wrap(services.ErrStorage, "queue", "heartbeat", "update heartbeat", err)
	}
	return nil
}

// ReclaimStaleProcessing returns processing jobs whose heartbeat is older
// than cutoff back to pending so the workflow can pick them up again.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(ctx, `
		UPDATE audio_jobs
		SET status = ?, updated_at = ?, last_heartbeat = NULL
		WHERE status = ? AND (last_heartbeat IS NULL OR last_heartbeat < ?)`,
		string(StatusPending), now,
		string(StatusProcessing), cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, services.Wrap(services.ErrStorage, "queue", "reclaim", "reclaim stale jobs", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, services.Wrap(services.ErrStorage, "queue", "reclaim", "read affected rows", err)
	}
	return affected, nil
}

// NextPending returns the oldest non-draft pending job, or nil when the
// queue is empty.
func (s *Store) NextPending(ctx context.Context) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+jobColumns+` FROM audio_jobs
		WHERE status = ? AND is_draft = 0
		ORDER BY created_at ASC, id ASC LIMIT 1`,
		string(StatusPending),
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "queue", "next-pending", "read next job", err)
	}
	return job, nil
}
