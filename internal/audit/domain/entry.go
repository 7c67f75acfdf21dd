package domain

import "time"

// Entry is one audit record. ApplicationID scopes it to a tenant; unscoped
// events (failed logins, admin operations) use the sentinel application id.
type Entry struct {
	ID            string
	ApplicationID string
	UserID        string
	Action        string
	Resource      string
	IP            string
	Metadata      string
	CreatedAt     time.Time
}
