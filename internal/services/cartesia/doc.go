// Package cartesia calls the Cartesia speech synthesis API, the secondary
// provider covering all non-English narration languages.
package cartesia
