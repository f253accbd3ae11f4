package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"chorus/internal/language"
	"chorus/internal/logging"
	"chorus/internal/queue"
	"chorus/internal/voice"
)

// Processor runs a claimed job through the pipeline. The workflow
// orchestrator satisfies this.
type Processor interface {
	Process(ctx context.Context, jobID int64) (*queue.Job, error)
}

// BlobCleaner deletes uploaded audio during job removal. The blobstore
// client satisfies this.
type BlobCleaner interface {
	KeyFromURL(fileURL string) (string, bool)
	Delete(ctx context.Context, key string) error
}

const defaultListLimit = 50

// JobService is the facade behind the REST surface: validation, error
// envelope mapping and orchestration triggers live here so transport
// handlers stay thin.
type JobService struct {
	store     *queue.Store
	processor Processor
	cleaner   BlobCleaner
	logger    *slog.Logger
}

// NewJobService wires the facade. processor and cleaner may be nil in
// read-only contexts.
func NewJobService(store *queue.Store, processor Processor, cleaner BlobCleaner, logger *slog.Logger) *JobService {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobService{
		store:     store,
		processor: processor,
		cleaner:   cleaner,
		logger:    logger.With(logging.FieldComponent, "api"),
	}
}

// Create validates and persists a new job in pending state.
func (s *JobService) Create(ctx context.Context, req CreateJobRequest) (*JobView, *APIError) {
	if strings.TrimSpace(req.SourceText) == "" {
		return nil, newAPIError(CodeValidationError, "sourceText is required", http.StatusBadRequest)
	}
	if len(req.Languages) == 0 {
		return nil, newAPIError(CodeValidationError, "at least one language is required", http.StatusBadRequest)
	}

	languages := make([]string, 0, len(req.Languages))
	seen := make(map[string]struct{}, len(req.Languages))
	for _, lang := range req.Languages {
		code := language.Normalize(lang)
		if !language.IsKnown(code) {
			return nil, newAPIError(CodeValidationError,
				fmt.Sprintf("unknown language %q", lang), http.StatusBadRequest)
		}
		if _, err := voice.Select(code, req.Config); err != nil {
			return nil, newAPIError(CodeValidationError,
				fmt.Sprintf("language %q has no synthesis route", lang), http.StatusBadRequest)
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		languages = append(languages, code)
	}

	job, err := s.store.Create(ctx, &queue.Job{
		ContentID:  strings.TrimSpace(req.ContentRecordID),
		SourceText: req.SourceText,
		Languages:  languages,
		Config:     req.Config,
		IsDraft:    req.IsDraft,
	})
	if err != nil {
		return nil, wrapError(err, CodeJobAlreadyProcessing)
	}
	s.logger.Info("job created",
		slog.Int64(logging.FieldJobID, job.ID),
		slog.Int("languages", len(languages)))
	return viewOf(job), nil
}

// Get returns one job.
func (s *JobService) Get(ctx context.Context, id int64) (*JobView, *APIError) {
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, wrapError(err, CodeJobAlreadyProcessing)
	}
	return viewOf(job), nil
}

// List returns jobs newest first with optional status/content filters.
func (s *JobService) List(ctx context.Context, req ListJobsRequest) (*JobList, *APIError) {
	filter := queue.ListFilter{
		ContentID: strings.TrimSpace(req.ContentID),
		Limit:     req.Limit,
		Offset:    req.Offset,
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if raw := strings.TrimSpace(req.Status); raw != "" {
		status, ok := queue.ParseStatus(raw)
		if !ok {
			return nil, newAPIError(CodeValidationError,
				fmt.Sprintf("unknown status %q", raw), http.StatusBadRequest)
		}
		filter.Statuses = []queue.Status{status}
	}

	jobs, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, wrapError(err, CodeJobAlreadyProcessing)
	}
	views := make([]*JobView, len(jobs))
	for i, job := range jobs {
		views[i] = viewOf(job)
	}
	return &JobList{Jobs: views, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// Update applies the mutable subset of fields to an existing job.
func (s *JobService) Update(ctx context.Context, id int64, req UpdateJobRequest) (*JobView, *APIError) {
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, wrapError(err, CodeJobAlreadyProcessing)
	}

	if req.Config != nil {
		job.Config = *req.Config
	}
	if req.Status != nil {
		status, ok := queue.ParseStatus(*req.Status)
		if !ok {
			return nil, newAPIError(CodeValidationError,
				fmt.Sprintf("unknown status %q", *req.Status), http.StatusBadRequest)
		}
		job.Status = status
	}
	if req.AudioURLs != nil {
		job.AudioURLs = req.AudioURLs
	}
	if req.Errors != nil {
		job.Errors = req.Errors
	}

	if err := s.store.Update(ctx, job); err != nil {
		return nil, wrapError(err, CodeJobAlreadyProcessing)
	}
	updated, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, wrapError(err, CodeJobAlreadyProcessing)
	}
	return viewOf(updated), nil
}

// Delete removes the job after best-effort cleanup of its uploaded audio.
// Storage cleanup failures are logged, never fatal.
func (s *JobService) Delete(ctx context.Context, id int64) *APIError {
	job, err := s.store.GetByID(ctx, id)
	if err != nil {
		return wrapError(err, CodeJobAlreadyProcessing)
	}

	if s.cleaner != nil {
		for lang, fileURL := range job.AudioURLs {
			key, ok := s.cleaner.KeyFromURL(fileURL)
			if !ok {
				continue
			}
			if err := s.cleaner.Delete(ctx, key); err != nil {
				s.logger.Warn("audio cleanup failed",
					slog.Int64(logging.FieldJobID, id),
					slog.String(logging.FieldLanguage, lang),
					logging.Error(err))
			}
		}
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return wrapError(err, CodeJobAlreadyProcessing)
	}
	s.logger.Info("job deleted", slog.Int64(logging.FieldJobID, id))
	return nil
}

// Process runs the job through the pipeline. A job already processing
// yields JOB_ALREADY_PROCESSING.
func (s *JobService) Process(ctx context.Context, id int64) (*JobView, *APIError) {
	if s.processor == nil {
		return nil, newAPIError(CodeInternalError, "processing is not available", http.StatusInternalServerError)
	}
	job, err := s.processor.Process(ctx, id)
	if err != nil {
		return nil, wrapError(err, CodeJobAlreadyProcessing)
	}
	return viewOf(job), nil
}

// Cancel stops a pending or processing job. Terminal jobs yield
// JOB_CANNOT_CANCEL.
func (s *JobService) Cancel(ctx context.Context, id int64) (*JobView, *APIError) {
	job, err := s.store.Cancel(ctx, id)
	if err != nil {
		return nil, wrapError(err, CodeJobCannotCancel)
	}
	s.logger.Info("job cancelled", slog.Int64(logging.FieldJobID, id))
	return viewOf(job), nil
}

// Health reports queue-level counts for the status surface.
func (s *JobService) Health(ctx context.Context) (queue.HealthSummary, *APIError) {
	summary, err := s.store.Health(ctx)
	if err != nil {
		return queue.HealthSummary{}, wrapError(err, CodeJobAlreadyProcessing)
	}
	return summary, nil
}
