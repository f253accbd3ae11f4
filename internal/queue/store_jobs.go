package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"chorus/internal/services"
)

const jobColumns = `id, content_id, source_text, languages, completed_languages,
	language_statuses, audio_urls, translated_texts, errors, config, status,
	current_language, is_draft, created_at, updated_at, completed_at, last_heartbeat`

// Create persists a new job and returns it with identifiers and timestamps set.
func (s *Store) Create(ctx context.Context, job *Job) (*Job, error) {
	ctx = ensureContext(ctx)
	if job == nil {
		return nil, services.Wrap(services.ErrValidation, "queue", "create", "job is required", nil)
	}

	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.Status == "" {
		job.Status = StatusPending
	}

	languages, err := encodeJSON(job.Languages)
	if err != nil {
		return nil, err
	}
	completed, err := encodeJSON(job.CompletedLanguages)
	if err != nil {
		return nil, err
	}
	statuses, err := encodeJSON(job.LanguageStatuses)
	if err != nil {
		return nil, err
	}
	audioURLs, err := encodeJSON(job.AudioURLs)
	if err != nil {
		return nil, err
	}
	translated, err := encodeJSON(job.TranslatedTexts)
	if err != nil {
		return nil, err
	}
	jobErrors, err := encodeJSON(job.Errors)
	if err != nil {
		return nil, err
	}
	voiceConfig, err := encodeJSON(job.Config)
	if err != nil {
		return nil, err
	}

	res, err := s.execWithRetry(ctx, `
		INSERT INTO audio_jobs (
			content_id, source_text, languages, completed_languages,
			language_statuses, audio_urls, translated_texts, errors, config,
			status, current_language, is_draft, created_at, updated_at,
			completed_at, last_heartbeat
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableString(job.ContentID), job.SourceText, languages, completed,
		statuses, audioURLs, translated, jobErrors, voiceConfig,
		string(job.Status), nullableString(job.CurrentLanguage), boolToInt(job.IsDraft),
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
		nullableTime(job.CompletedAt), nullableTime(job.LastHeartbeat),
	)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "queue", "create", "insert job", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "queue", "create", "read job id", err)
	}
	job.ID = id
	return job, nil
}

// GetByID fetches one job. Returns services.ErrNotFound when missing.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+jobColumns+" FROM audio_jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "queue", "get",
			fmt.Sprintf("job %d not found", id), nil)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "queue", "get", "read job", err)
	}
	return job, nil
}

// ListFilter narrows List results. Zero values mean "no filter".
type ListFilter struct {
	Statuses  []Status
	ContentID string
	Limit     int
	Offset    int
}

// List returns jobs newest first, optionally filtered.
func (s *Store) List(ctx context.Context, filter ListFilter) ([]*Job, error) {
	ctx = ensureContext(ctx)

	var (
		clauses []string
		args    []any
	)
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		clauses = append(clauses, "status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.ContentID != "" {
		clauses = append(clauses, "content_id = ?")
		args = append(args, filter.ContentID)
	}

	query := "SELECT " + jobColumns + " FROM audio_jobs"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "queue", "list", "query jobs", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, services.Wrap(services.ErrStorage, "queue", "list", "scan job", scanErr)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStorage, "queue", "list", "iterate jobs", err)
	}
	return jobs, nil
}

// Update rewrites a job's mutable fields. Terminal jobs only accept changes
// that keep their status terminal (a cancelled job stays cancelled).
func (s *Store) Update(ctx context.Context, job *Job) error {
	ctx = ensureContext(ctx)
	if job == nil || job.ID == 0 {
		return services.Wrap(services.ErrValidation, "queue", "update", "job id is required", nil)
	}

	current, err := s.GetByID(ctx, job.ID)
	if err != nil {
		return err
	}
	if current.Status.Terminal() && job.Status != current.Status {
		return services.Wrap(services.ErrConflict, "queue", "update",
			fmt.Sprintf("job %d is %s and cannot change status", job.ID, current.Status), nil)
	}

	job.UpdatedAt = time.Now().UTC()

	languages, err := encodeJSON(job.Languages)
	if err != nil {
		return err
	}
	completed, err := encodeJSON(job.CompletedLanguages)
	if err != nil {
		return err
	}
	statuses, err := encodeJSON(job.LanguageStatuses)
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
	voiceConfig, err := encodeJSON(job.Config)
	if err != nil {
		return err
	}

	_, err = s.execWithRetry(ctx, `
		UPDATE audio_jobs SET
			content_id = ?, source_text = ?, languages = ?, completed_languages = ?,
			language_statuses = ?, audio_urls = ?, translated_texts = ?, errors = ?,
			config = ?, status = ?, current_language = ?, is_draft = ?,
			updated_at = ?, completed_at = ?, last_heartbeat = ?
		WHERE id = ?`,
		nullableString(job.ContentID), job.SourceText, languages, completed,
		statuses, audioURLs, translated, jobErrors,
		voiceConfig, string(job.Status), nullableString(job.CurrentLanguage), boolToInt(job.IsDraft),
		job.UpdatedAt.Format(time.RFC3339Nano), nullableTime(job.CompletedAt), nullableTime(job.LastHeartbeat),
		job.ID,
	)
	if err != nil {
		return services.Wrap(services.ErrStorage, "queue", "update", "update job", err)
	}
	return nil
}

// Delete removes a job and its caption integrity rows.
func (s *Store) Delete(ctx context.Context, id int64) error {
	ctx = ensureContext(ctx)

	res, err := s.execWithRetry(ctx, "DELETE FROM audio_jobs WHERE id = ?", id)
	if err != nil {
		return services.Wrap(services.ErrStorage, "queue", "delete", "delete job", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return services.Wrap(services.ErrStorage, "queue", "delete", "read affected rows", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "queue", "delete",
			fmt.Sprintf("job %d not found", id), nil)
	}
	if _, err := s.execWithRetry(ctx, "DELETE FROM caption_integrity WHERE job_id = ?", id); err != nil {
		return services.Wrap(services.ErrStorage, "queue", "delete", "delete caption integrity", err)
	}
	return nil
}

// Health aggregates job counts by status.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	ctx = ensureContext(ctx)

	rows, err := s.db.QueryContext(ctx,
		"SELECT status, COUNT(1) FROM audio_jobs GROUP BY status")
	if err != nil {
		return HealthSummary{}, services.Wrap(services.ErrStorage, "queue", "health", "query counts", err)
	}
	defer rows.Close()

	var summary HealthSummary
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return HealthSummary{}, services.Wrap(services.ErrStorage, "queue", "health", "scan count", err)
		}
		summary.Total += count
		switch Status(status) {
		case StatusPending:
			summary.Pending = count
		case StatusProcessing:
			summary.Processing = count
		case StatusCompleted:
			summary.Completed = count
		case StatusPartialSuccess:
			summary.Partial = count
		case StatusFailed:
			summary.Failed = count
		case StatusCancelled:
			summary.Cancelled = count
		}
	}
	if err := rows.Err(); err != nil {
		return HealthSummary{}, services.Wrap(services.ErrStorage, "queue", "health", "iterate counts", err)
	}
	return summary, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var (
		job             Job
		contentID       sql.NullString
		languages       sql.NullString
		completed       sql.NullString
		statuses        sql.NullString
		audioURLs       sql.NullString
		translated      sql.NullString
		jobErrors       sql.NullString
		voiceConfig     sql.NullString
		status          string
		currentLanguage sql.NullString
		isDraft         int
		createdAt       string
		updatedAt       string
		completedAt     sql.NullString
		lastHeartbeat   sql.NullString
	)

	err := row.Scan(
		&job.ID, &contentID, &job.SourceText, &languages, &completed,
		&statuses, &audioURLs, &translated, &jobErrors, &voiceConfig, &status,
		&currentLanguage, &isDraft, &createdAt, &updatedAt, &completedAt, &lastHeartbeat,
	)
	if err != nil {
		return nil, err
	}

	job.ContentID = contentID.String
	job.Status = Status(status)
	job.CurrentLanguage = currentLanguage.String
	job.IsDraft = isDraft != 0

	if err := decodeJSON(languages, &job.Languages); err != nil {
		return nil, err
	}
	if err := decodeJSON(completed, &job.CompletedLanguages); err != nil {
		return nil, err
	}
	if err := decodeJSON(statuses, &job.LanguageStatuses); err != nil {
		return nil, err
	}
	if err := decodeJSON(audioURLs, &job.AudioURLs); err != nil {
		return nil, err
	}
	if err := decodeJSON(translated, &job.TranslatedTexts); err != nil {
		return nil, err
	}
	if err := decodeJSON(jobErrors, &job.Errors); err != nil {
		return nil, err
	}
	if err := decodeJSON(voiceConfig, &job.Config); err != nil {
		return nil, err
	}

	if job.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if job.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		ts, parseErr := parseTimestamp(completedAt.String)
		if parseErr != nil {
			return nil, parseErr
		}
		job.CompletedAt = &ts
	}
	if lastHeartbeat.Valid {
		ts, parseErr := parseTimestamp(lastHeartbeat.String)
		if parseErr != nil {
			return nil, parseErr
		}
		job.LastHeartbeat = &ts
	}

	return &job, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
