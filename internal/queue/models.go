package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of an audio job.
type Status string

const (
	StatusPending        Status = "pending"
	StatusProcessing     Status = "processing"
	StatusCompleted      Status = "completed"
	StatusPartialSuccess Status = "partial_success"
	StatusFailed         Status = "failed"
	StatusCancelled      Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusPartialSuccess,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Terminal reports whether a status can never change again.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusPartialSuccess, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Cancellable reports whether a job in this status may still be cancelled.
func (s Status) Cancellable() bool {
	return s == StatusPending || s == StatusProcessing
}

// LanguageState enumerates the per-language lifecycle within a job.
type LanguageState string

const (
	LanguagePending    LanguageState = "pending"
	LanguageProcessing LanguageState = "processing"
	LanguageCompleted  LanguageState = "completed"
	LanguageFailed     LanguageState = "failed"
	LanguageSkipped    LanguageState = "skipped"
)

// LanguageStatus is the tagged per-language result. AudioURL is only set for
// completed languages and Reason only for failed ones, so illegal
// combinations cannot be constructed through the helpers below.
type LanguageStatus struct {
	State    LanguageState `json:"state"`
	AudioURL string        `json:"audioUrl,omitempty"`
	Reason   string        `json:"reason,omitempty"`
}

// PendingLanguage marks a language as queued.
func PendingLanguage() LanguageStatus { return LanguageStatus{State: LanguagePending} }

// ProcessingLanguage marks a language as in flight.
func ProcessingLanguage() LanguageStatus { return LanguageStatus{State: LanguageProcessing} }

// CompletedLanguage marks a language as done with its published audio URL.
func CompletedLanguage(audioURL string) LanguageStatus {
	return LanguageStatus{State: LanguageCompleted, AudioURL: audioURL}
}

// FailedLanguage marks a language as failed with a reason.
func FailedLanguage(reason string) LanguageStatus {
	return LanguageStatus{State: LanguageFailed, Reason: reason}
}

// SkippedLanguage marks a language that was already complete before this pass.
func SkippedLanguage() LanguageStatus { return LanguageStatus{State: LanguageSkipped} }

// VoiceConfig carries the synthesis settings attached to a job.
type VoiceConfig struct {
	VoiceID        string            `json:"voiceId,omitempty"`
	Personality    string            `json:"personality,omitempty"`
	Speed          float64           `json:"speed,omitempty"`
	VoiceOverrides map[string]string `json:"voiceOverrides,omitempty"`
}

// Job represents one narration request persisted in SQLite.
type Job struct {
	ID                 int64
	ContentID          string
	SourceText         string
	Languages          []string
	CompletedLanguages []string
	LanguageStatuses   map[string]LanguageStatus
	AudioURLs          map[string]string
	TranslatedTexts    map[string]string
	Errors             map[string]string
	Config             VoiceConfig
	Status             Status
	CurrentLanguage    string
	IsDraft            bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
	CompletedAt        *time.Time
	LastHeartbeat      *time.Time
}

// HasCompleted reports whether the given language already finished.
func (j *Job) HasCompleted(language string) bool {
	for _, lang := range j.CompletedLanguages {
		if lang == language {
			return true
		}
	}
	return false
}

// OutstandingLanguages returns the languages this processing pass should
// work on: every requested language not yet completed, or just
// CurrentLanguage when a single-language regeneration was requested.
func (j *Job) OutstandingLanguages() []string {
	if j.CurrentLanguage != "" {
		return []string{j.CurrentLanguage}
	}
	var outstanding []string
	for _, lang := range j.Languages {
		if !j.HasCompleted(lang) {
			outstanding = append(outstanding, lang)
		}
	}
	return outstanding
}

// OverallStatus derives the job-level status from the requested and
// completed language sets: completed when every requested language is done,
// failed when none are, partial success otherwise.
func (j *Job) OverallStatus() Status {
	total := len(j.Languages)
	done := 0
	for _, lang := range j.Languages {
		if j.HasCompleted(lang) {
			done++
		}
	}
	switch {
	case total > 0 && done == total:
		return StatusCompleted
	case done == 0:
		return StatusFailed
	default:
		return StatusPartialSuccess
	}
}

// CaptionIntegrity records content hashes for one language's caption files.
type CaptionIntegrity struct {
	JobID     int64
	Language  string
	LongHash  string
	ShortHash string
	LongSize  int64
	ShortSize int64
	CreatedAt time.Time
}

// HealthSummary describes aggregated job counts per key lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Completed  int
	Partial    int
	Failed     int
	Cancelled  int
}
