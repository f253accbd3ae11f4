// Package contentstore talks to the downstream content record service:
// finding or creating media assets for finished audio and patching the
// content record's per-language asset map.
package contentstore
