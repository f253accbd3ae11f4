package subtitles

import (
	"fmt"
	"strings"
)

const vttHeader = "WEBVTT"

// defaultSecondsPerCue paces cues when no audio timing is available.
const defaultSecondsPerCue = 4.0

// GenerateCaptions produces long-form captions for narrated text: one cue
// per sentence group, paced at secondsPerCue, in the WEBVTT layout with a
// header line and `start --> end` timing rows.
func GenerateCaptions(text string, secondsPerCue float64) string {
	segments := splitSegments(text)
	if len(segments) == 0 {
		return ""
	}
	if secondsPerCue <= 0 {
		secondsPerCue = defaultSecondsPerCue
	}

	var b strings.Builder
	b.WriteString(vttHeader)
	b.WriteString("\n\n")

	for i, segment := range segments {
		start := float64(i) * secondsPerCue
		end := start + secondsPerCue
		fmt.Fprintf(&b, "%s --> %s\n%s\n", vttTimestamp(start), vttTimestamp(end), segment)
		if i < len(segments)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// splitSegments breaks text into sentence-sized caption segments. Sentence
// terminators stay attached to their sentence.
func splitSegments(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var (
		segments []string
		current  strings.Builder
	)
	for _, r := range text {
		current.WriteRune(r)
		switch r {
		case '.', '!', '?', '。', '！', '？':
			if segment := strings.TrimSpace(current.String()); segment != "" {
				segments = append(segments, segment)
			}
			current.Reset()
		}
	}
	if tail := strings.TrimSpace(current.String()); tail != "" {
		segments = append(segments, tail)
	}
	return segments
}

func vttTimestamp(seconds float64) string {
	millis := int64(seconds * 1000)
	h := millis / 3_600_000
	m := millis % 3_600_000 / 60_000
	s := millis % 60_000 / 1000
	ms := millis % 1000
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
