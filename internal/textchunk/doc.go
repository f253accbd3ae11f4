// Package textchunk splits narration text into synthesis-sized,
// sentence-aligned chunks and normalizes text for speech providers.
package textchunk
