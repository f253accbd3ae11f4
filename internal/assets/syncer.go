package assets

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chorus/internal/language"
	"chorus/internal/queue"
	"chorus/internal/services/contentstore"
)

// ContentClient is the slice of the content store the syncer needs.
type ContentClient interface {
	FindAsset(ctx context.Context, fileURL, lang string) (*contentstore.MediaAsset, error)
	CreateAsset(ctx context.Context, asset contentstore.MediaAsset) (*contentstore.MediaAsset, error)
	UpdateContentAudio(ctx context.Context, contentID string, audioAssets map[string]string) error
}

// Syncer publishes finished audio back to the content record as media
// assets.
type Syncer struct {
	client ContentClient
	logger *slog.Logger
}

// NewSyncer builds a syncer. A nil client disables synchronization.
func NewSyncer(client ContentClient, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{client: client, logger: logger}
}

// Sync finds or creates one media asset per newly completed language and,
// when any were created, patches the content record's per-language asset
// map. Errors are logged and returned for observability but callers must
// not let them alter the job's own status: the audio already exists.
func (s *Syncer) Sync(ctx context.Context, job *queue.Job, newlyCompleted []string) error {
	if s.client == nil || job.ContentID == "" || len(newlyCompleted) == 0 {
		return nil
	}

	assetIDs := make(map[string]string)
	var firstErr error
	for _, lang := range newlyCompleted {
		fileURL := job.AudioURLs[lang]
		if fileURL == "" {
			continue
		}

		asset, err := s.findOrCreate(ctx, job, lang, fileURL)
		if err != nil {
			s.logger.Warn("media asset sync failed",
				slog.Int64("job_id", job.ID),
				slog.String("language", lang),
				slog.Any("error", err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		assetIDs[lang] = asset.ID
	}

	if len(assetIDs) > 0 {
		if err := s.client.UpdateContentAudio(ctx, job.ContentID, assetIDs); err != nil {
			s.logger.Warn("content record update failed",
				slog.Int64("job_id", job.ID),
				slog.String("content_id", job.ContentID),
				slog.Any("error", err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// findOrCreate is idempotent: reprocessing a language that already has an
// asset for the same file URL reuses it instead of duplicating.
func (s *Syncer) findOrCreate(ctx context.Context, job *queue.Job, lang, fileURL string) (*contentstore.MediaAsset, error) {
	existing, err := s.client.FindAsset(ctx, fileURL, lang)
	if err != nil {
		return nil, fmt.Errorf("find asset: %w", err)
	}
	if existing != nil {
		return existing, nil
	}

	created, err := s.client.CreateAsset(ctx, contentstore.MediaAsset{
		Title:            fmt.Sprintf("Narration (%s)", language.DisplayName(lang)),
		FileURL:          fileURL,
		FileType:         "audio",
		MimeType:         "audio/mpeg",
		RelatedContentID: job.ContentID,
		Generation: contentstore.GenerationMetadata{
			Language:    lang,
			GeneratedAt: time.Now().UTC(),
			Source:      "chorus",
		},
		Status: "ready",
	})
	if err != nil {
		return nil, fmt.Errorf("create asset: %w", err)
	}
	return created, nil
}
