package audit

import "time"

// Actor names the caller when no identity header is present.
const ActorAnonymous = "anonymous"

// Entry is one state change applied on behalf of a client.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	ActorID   string    `json:"actor_id"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
}
