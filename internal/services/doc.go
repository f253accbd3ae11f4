// Package services defines the shared error taxonomy and context annotation
// helpers used by every external collaborator client and the workflow.
//
// Errors are tagged with sentinel markers (validation, not found, conflict,
// provider, storage, transient) so the API surface can map any failure to a
// structured response without inspecting error strings.
package services
