// Package logging centralizes slog construction and the structured field
// vocabulary shared by the daemon, workflow, and service clients.
package logging
