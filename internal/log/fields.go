// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Media / resolution fields
	FieldSource    = "source"
	FieldStem      = "stem"
	FieldSlug      = "slug"
	FieldStrategy  = "strategy"
	FieldCandidate = "candidate"
	FieldManifest  = "manifest"
	FieldOutcome   = "outcome"

	// Playback fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldReason   = "reason"

	// Network fields
	FieldStatus = "status"
	FieldPath   = "path"
)
