// Package ipc is the CLI side of the daemon's HTTP API: a thin typed client
// that surfaces the daemon's structured errors unchanged.
package ipc
