// Package notifications delivers job lifecycle events via ntfy, degrading
// to a no-op when no topic is configured. Workflow code depends only on the
// Service interface.
package notifications
