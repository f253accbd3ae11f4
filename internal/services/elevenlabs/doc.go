// Package elevenlabs calls the ElevenLabs speech synthesis API, the primary
// provider for English narration.
package elevenlabs
