package model

import (
	"encoding/json"
	"time"
)

// Preference is an opaque settings blob keyed by username (or, through the
// legacy routes, by a device id used as a username).
type Preference struct {
	Username    string          `json:"username"`
	Preferences json.RawMessage `json:"preferences"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
}

// PreferenceUpdate is the PUT/POST body. DeviceID is accepted for
// compatibility but the path key always wins.
type PreferenceUpdate struct {
	DeviceID    string          `json:"device_id"`
	Preferences json.RawMessage `json:"preferences" validate:"required"`
}
