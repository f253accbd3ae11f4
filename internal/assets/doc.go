// Package assets links finished narrations back to the content record by
// creating media asset entries and updating the record's per-language map.
package assets
