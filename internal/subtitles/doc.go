// Package subtitles builds timed caption cues for narrated text, converts
// between the long and short caption formats, and records content hashes of
// the finished files.
package subtitles
