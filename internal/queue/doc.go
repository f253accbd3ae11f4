// Package queue persists audio narration jobs in SQLite and owns every
// status transition: claiming pending work, merging per-language results
// back into a job, cancellation, heartbeats and stale-job reclaim.
package queue
