package events

import "time"

const (
	AccountCreated     = "account.created"
	AccountDeleted     = "account.deleted"
	SessionLogin       = "session.login"
	SessionLogout      = "session.logout"
	DatasetUserDeleted = "dataset.user_deleted"
	DatasetTagDeleted  = "dataset.tag_deleted"
)

// Event describes a committed change. Only the fields relevant to Type are
// set.
type Event struct {
	Type      string    `json:"type"`
	Actor     string    `json:"actor,omitempty"`    // logged-in account that caused it
	Username  string    `json:"username,omitempty"` // account affected
	UserID    int64     `json:"user_id,omitempty"`  // dataset user affected
	MovieID   int64     `json:"movie_id,omitempty"`
	Timestamp int64     `json:"timestamp,omitempty"`
	Removed   int64     `json:"removed,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher accepts events for fan-out.
type Publisher interface {
	Publish(Event)
}

// Discard drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(Event) {}
