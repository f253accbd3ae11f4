// Package translate turns source text into target-language text through an
// LLM, with a content-addressed SQLite cache in front of the model and a
// degrade-to-source fallback when the provider fails.
package translate
