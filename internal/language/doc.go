// Package language provides unified language code normalization and lookup.
//
// All language-related checks (known codes, display names, script detection)
// are consolidated here to avoid duplication across the translation, voice,
// and subtitle packages.
package language
