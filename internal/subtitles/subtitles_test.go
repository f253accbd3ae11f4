package subtitles

import (
	"context"
	"errors"
	"strings"
	"testing"

	"chorus/internal/logging"
	"chorus/internal/queue"
)

func TestGenerateCaptionsLayout(t *testing.T) {
	captions := GenerateCaptions("Hello. World.", 4)

	if !strings.HasPrefix(captions, "WEBVTT\n\n") {
		t.Fatalf("missing header: %q", captions)
	}
	if !strings.Contains(captions, "00:00:00.000 --> 00:00:04.000\nHello.") {
		t.Errorf("first cue wrong:\n%s", captions)
	}
	if !strings.Contains(captions, "00:00:04.000 --> 00:00:08.000\nWorld.") {
		t.Errorf("second cue wrong:\n%s", captions)
	}
}

func TestGenerateCaptionsEmptyText(t *testing.T) {
	if got := GenerateCaptions("   ", 4); got != "" {
		t.Errorf("GenerateCaptions(blank) = %q, want empty", got)
	}
}

func TestConvertFormatRenumbersFromOne(t *testing.T) {
	longForm := strings.Join([]string{
		"WEBVTT",
		"",
		"7",
		"00:00:00.000 --> 00:00:04.000",
		"Hello.",
		"",
		"9",
		"00:00:04.000 --> 00:00:08.000",
		"World.",
	}, "\n")

	shortForm := ConvertFormat(longForm)
	want := strings.Join([]string{
		"1",
		"00:00:00,000 --> 00:00:04,000",
		"Hello.",
		"",
		"2",
		"00:00:04,000 --> 00:00:08,000",
		"World.",
	}, "\n")
	if shortForm != want {
		t.Errorf("ConvertFormat =\n%s\nwant\n%s", shortForm, want)
	}
}

func TestConvertFormatPreservesTextAndOrder(t *testing.T) {
	longForm := strings.Join([]string{
		"WEBVTT",
		"",
		"00:00:00.500 --> 00:00:02.250",
		"First line.",
		"Second line with --> arrow text.",
		"",
		"00:00:02.250 --> 00:00:04.000",
		"Third.",
	}, "\n")

	shortForm := ConvertFormat(longForm)
	if !strings.Contains(shortForm, "00:00:00,500 --> 00:00:02,250") {
		t.Errorf("timing separators not converted:\n%s", shortForm)
	}
	if !strings.Contains(shortForm, "Second line with --> arrow text.") {
		t.Errorf("text lines not preserved verbatim:\n%s", shortForm)
	}
	first := strings.Index(shortForm, "First line.")
	third := strings.Index(shortForm, "Third.")
	if first < 0 || third < 0 || first > third {
		t.Errorf("cue order changed:\n%s", shortForm)
	}
}

func TestConvertFormatDropsEmptyCues(t *testing.T) {
	longForm := "WEBVTT\n\n00:00:00.000 --> 00:00:04.000\nHello.\n\n\n\n00:00:04.000 --> 00:00:08.000\nWorld."

	shortForm := ConvertFormat(longForm)
	if strings.Contains(shortForm, "\n\n\n") {
		t.Errorf("empty cue survived:\n%q", shortForm)
	}
	if !strings.HasPrefix(shortForm, "1\n") {
		t.Errorf("numbering does not start at 1:\n%s", shortForm)
	}
	if !strings.Contains(shortForm, "\n\n2\n") {
		t.Errorf("second cue not numbered 2:\n%s", shortForm)
	}
}

func TestConvertFormatIsIdempotent(t *testing.T) {
	longForm := GenerateCaptions("Hello. World. Again.", 3)
	once := ConvertFormat(longForm)
	twice := ConvertFormat(once)
	if once != twice {
		t.Errorf("not idempotent:\nonce:\n%s\ntwice:\n%s", once, twice)
	}
}

func TestHashContent(t *testing.T) {
	a := HashContent([]byte("captions"))
	b := HashContent([]byte("captions"))
	c := HashContent([]byte("different"))

	if a != b {
		t.Error("hash is not deterministic")
	}
	if a == c {
		t.Error("distinct inputs collided")
	}
	if len(a) != 64 {
		t.Errorf("digest length = %d, want 64", len(a))
	}
	if a != strings.ToLower(a) {
		t.Error("digest is not lowercase")
	}
}

type fakeIntegrityStore struct {
	saved []queue.CaptionIntegrity
	err   error
}

func (s *fakeIntegrityStore) SaveCaptionIntegrity(_ context.Context, record queue.CaptionIntegrity) error {
	s.saved = append(s.saved, record)
	return s.err
}

func TestStoreIntegrityRecordsHashesAndSizes(t *testing.T) {
	store := &fakeIntegrityStore{}
	longForm := GenerateCaptions("Hello. World.", 4)
	shortForm := ConvertFormat(longForm)

	StoreIntegrity(context.Background(), store, logging.NewNop(), 42, "es", longForm, shortForm)

	if len(store.saved) != 1 {
		t.Fatalf("saved = %d records", len(store.saved))
	}
	record := store.saved[0]
	if record.JobID != 42 || record.Language != "es" {
		t.Errorf("record identity = %+v", record)
	}
	if record.LongHash != HashContent([]byte(longForm)) {
		t.Error("long hash mismatch")
	}
	if record.LongSize != int64(len(longForm)) || record.ShortSize != int64(len(shortForm)) {
		t.Errorf("sizes = %d/%d", record.LongSize, record.ShortSize)
	}
}

func TestStoreIntegritySwallowsFailure(t *testing.T) {
	store := &fakeIntegrityStore{err: errors.New("disk full")}

	// Must not panic or propagate.
	StoreIntegrity(context.Background(), store, logging.NewNop(), 7, "en", "long", "short")
}
