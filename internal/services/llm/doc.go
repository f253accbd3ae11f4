// Package llm wraps the OpenRouter-compatible chat completion endpoint used
// for translation. The client retries rate limits and transient failures
// with capped exponential backoff and honours Retry-After hints.
package llm
