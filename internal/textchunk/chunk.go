package textchunk

import "strings"

// Chunk splits text into synthesis-sized pieces of roughly maxSize bytes,
// preferring sentence boundaries. Each window ends at the sentence period
// closest to the size limit; the split never moves forward past the next
// sentence. Concatenating the returned chunks reproduces the input exactly.
func Chunk(text string, maxSize int) []string {
	if text == "" {
		return nil
	}
	if maxSize <= 0 || len(text) <= maxSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + maxSize
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}
		// Search the window (inclusive of the boundary byte) for the last
		// sentence-terminating period and cut just after it.
		window := text[start : end+1]
		if idx := strings.LastIndexByte(window, '.'); idx >= 0 {
			end = start + idx + 1
		}
		chunks = append(chunks, text[start:end])
		start = end
	}
	return chunks
}
