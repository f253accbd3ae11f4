package api

import (
	"errors"
	"time"

	"chorus/internal/queue"
	"chorus/internal/services"
)

// Error codes surfaced to API callers.
const (
	CodeJobNotFound          = "JOB_NOT_FOUND"
	CodeValidationError      = "VALIDATION_ERROR"
	CodeJobAlreadyProcessing = "JOB_ALREADY_PROCESSING"
	CodeJobCannotCancel      = "JOB_CANNOT_CANCEL"
	CodeProviderError        = "PROVIDER_ERROR"
	CodeStorageError         = "STORAGE_ERROR"
	CodeInternalError        = "INTERNAL_ERROR"
)

// APIError is the structured failure envelope every operation returns.
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *APIError) Error() string { return e.Message }

func newAPIError(code, message string, status int) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Status:    status,
		Timestamp: time.Now().UTC(),
	}
}

// wrapError translates service-layer sentinel markers into API errors.
// conflictCode distinguishes the two 409 flavors the job surface exposes.
func wrapError(err error, conflictCode string) *APIError {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	status := services.HTTPStatus(err)
	code := CodeInternalError
	switch {
	case errors.Is(err, services.ErrNotFound):
		code = CodeJobNotFound
	case errors.Is(err, services.ErrValidation):
		code = CodeValidationError
	case errors.Is(err, services.ErrConflict):
		code = conflictCode
	case errors.Is(err, services.ErrProvider):
		code = CodeProviderError
	case errors.Is(err, services.ErrStorage):
		code = CodeStorageError
	}
	return newAPIError(code, err.Error(), status)
}

// JobView is the job representation returned to external callers.
type JobView struct {
	ID                 int64                           `json:"id"`
	ContentID          string                          `json:"contentRecordId,omitempty"`
	SourceText         string                          `json:"sourceText"`
	Languages          []string                        `json:"languages"`
	CompletedLanguages []string                        `json:"completedLanguages,omitempty"`
	LanguageStatuses   map[string]queue.LanguageStatus `json:"languageStatuses,omitempty"`
	AudioURLs          map[string]string               `json:"audioUrls,omitempty"`
	TranslatedTexts    map[string]string               `json:"translatedTexts,omitempty"`
	Errors             map[string]string               `json:"errors,omitempty"`
	Config             queue.VoiceConfig               `json:"config"`
	Status             string                          `json:"status"`
	CurrentLanguage    string                          `json:"currentLanguage,omitempty"`
	IsDraft            bool                            `json:"isDraft,omitempty"`
	CreatedAt          time.Time                       `json:"createdAt"`
	UpdatedAt          time.Time                       `json:"updatedAt"`
	CompletedAt        *time.Time                      `json:"completedAt,omitempty"`
}

func viewOf(job *queue.Job) *JobView {
	return &JobView{
		ID:                 job.ID,
		ContentID:          job.ContentID,
		SourceText:         job.SourceText,
		Languages:          job.Languages,
		CompletedLanguages: job.CompletedLanguages,
		LanguageStatuses:   job.LanguageStatuses,
		AudioURLs:          job.AudioURLs,
		TranslatedTexts:    job.TranslatedTexts,
		Errors:             job.Errors,
		Config:             job.Config,
		Status:             string(job.Status),
		CurrentLanguage:    job.CurrentLanguage,
		IsDraft:            job.IsDraft,
		CreatedAt:          job.CreatedAt,
		UpdatedAt:          job.UpdatedAt,
		CompletedAt:        job.CompletedAt,
	}
}

// CreateJobRequest is the POST /jobs payload.
type CreateJobRequest struct {
	SourceText      string            `json:"sourceText"`
	Languages       []string          `json:"languages"`
	Config          queue.VoiceConfig `json:"config"`
	ContentRecordID string            `json:"contentRecordId,omitempty"`
	IsDraft         bool              `json:"isDraft,omitempty"`
}

// UpdateJobRequest carries the mutable subset of a job for PUT /jobs/{id}.
// Nil fields are left untouched.
type UpdateJobRequest struct {
	Config    *queue.VoiceConfig `json:"config,omitempty"`
	Status    *string            `json:"status,omitempty"`
	AudioURLs map[string]string  `json:"audioUrls,omitempty"`
	Errors    map[string]string  `json:"errors,omitempty"`
}

// ListJobsRequest filters GET /jobs.
type ListJobsRequest struct {
	Status    string
	ContentID string
	Limit     int
	Offset    int
}

// JobList is a paginated job listing.
type JobList struct {
	Jobs   []*JobView `json:"jobs"`
	Limit  int        `json:"limit,omitempty"`
	Offset int        `json:"offset,omitempty"`
}
