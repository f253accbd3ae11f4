// Package blobstore uploads finished audio and caption files to an
// S3-compatible object store and issues public URLs for them.
package blobstore
