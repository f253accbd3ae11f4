// Package tts narrates translated text: it normalizes and chunks the input,
// synthesizes speech through the language's provider and uploads the joined
// audio to object storage.
package tts
