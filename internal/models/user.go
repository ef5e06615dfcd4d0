package models

import "time"

// User is a caller identified by phone number. The phone is an opaque
// identifier; no format validation beyond non-empty.
type User struct {
	Phone     string    `json:"phone"`
	Name      string    `json:"name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
