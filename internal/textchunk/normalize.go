package textchunk

import (
	"html"
	"strings"
	"unicode"
)

var escapeArtifactReplacer = strings.NewReplacer(
	"\u00a0", " ", // non-breaking space
	"\u200b", "", // zero-width space
	"\ufeff", "", // byte order mark
	"\r\n", "\n",
	"\r", "\n",
)

// NormalizeForSpeech prepares raw source text for a synthesis call: HTML
// escape sequences are decoded, control characters dropped, and runs of
// whitespace and newlines collapsed into single spaces. Languages written in
// non-Latin scripts additionally have inter-word spacing flattened, since
// their providers are sensitive to stray breaks.
func NormalizeForSpeech(text string, latinScript bool) string {
	text = html.UnescapeString(text)
	text = escapeArtifactReplacer.Replace(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	text = b.String()

	text = strings.Join(strings.Fields(text), " ")
	if !latinScript {
		// CJK and similar scripts carry no meaning in spacing that survived
		// the collapse above; strip doubled separators around punctuation.
		text = strings.ReplaceAll(text, " 。", "。")
		text = strings.ReplaceAll(text, "。 ", "。")
	}
	return strings.TrimSpace(text)
}
