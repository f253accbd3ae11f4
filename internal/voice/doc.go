// Package voice maps target languages to speech providers and voice ids
// through a data-driven route table.
package voice
