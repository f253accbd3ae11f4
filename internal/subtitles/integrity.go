package subtitles

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"chorus/internal/queue"
)

// IntegrityStore persists caption hashes. The queue store satisfies this.
type IntegrityStore interface {
	SaveCaptionIntegrity(ctx context.Context, record queue.CaptionIntegrity) error
}

// HashContent returns the 64-character lowercase hex digest of the bytes.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// StoreIntegrity hashes both caption renditions and records them for the
// job language. Failures are logged and swallowed: integrity recording is
// best-effort and never blocks audio delivery.
func StoreIntegrity(ctx context.Context, store IntegrityStore, logger *slog.Logger, jobID int64, language, longForm, shortForm string) {
	if logger == nil {
		logger = slog.Default()
	}
	record := queue.CaptionIntegrity{
		JobID:     jobID,
		Language:  language,
		LongHash:  HashContent([]byte(longForm)),
		ShortHash: HashContent([]byte(shortForm)),
		LongSize:  int64(len(longForm)),
		ShortSize: int64(len(shortForm)),
	}
	if err := store.SaveCaptionIntegrity(ctx, record); err != nil {
		logger.Warn("caption integrity recording failed",
			slog.Int64("job_id", jobID),
			slog.String("language", language),
			slog.Any("error", err))
	}
}
