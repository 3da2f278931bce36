package event

import "time"

type Type string

const (
	TypeSessionStarted Type = "session.started"
	TypeSessionEnded   Type = "session.ended"
	TypeSessionExpired Type = "session.expired"
)

type Event struct {
	ID        string    `json:"id"`
	Type      Type      `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionExpired is the payload of TypeSessionExpired. Redirect names the view
// the console must switch to.
type SessionExpired struct {
	Redirect  string `json:"redirect"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	RequestID string `json:"request_id"`
}

type Bus interface {
	Publish(e Event)
	Subscribe() (<-chan Event, func())
}
