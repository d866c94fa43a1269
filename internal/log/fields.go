// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldRequestID = "request_id"
	FieldSource    = "source"
	FieldMount     = "mount"

	// Process / pipeline fields
	FieldEvent      = "event"
	FieldComponent  = "component"
	FieldDescriptor = "descriptor"
	FieldAttempt    = "attempt"

	// Media / stream fields
	FieldCodec   = "codec"
	FieldEncoder = "encoder"
	FieldDevice  = "device"
	FieldURL     = "url"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"

	// Path / network fields
	FieldPath   = "path"
	FieldListen = "listen"
	FieldRemote = "remote"
)
