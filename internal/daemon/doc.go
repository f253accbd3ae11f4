// Package daemon wires the whole pipeline together: job store, translation
// cache, provider clients, workflow loop and the HTTP API, guarded by a
// single-instance lock file.
package daemon
