// Package workflow drives jobs through the narration pipeline. The
// Orchestrator runs a single job end to end: per-language fan-out with a
// settle-all join, merge of partial results, asset synchronization and
// notifications. The Manager wraps it in the daemon's polling loop with
// heartbeat-based reclaim of abandoned work.
package workflow
