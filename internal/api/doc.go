// Package api exposes the job CRUD and control surface as a transport
// agnostic facade. Handlers convert HTTP to these calls; every failure is a
// structured APIError with a machine-readable code.
package api
