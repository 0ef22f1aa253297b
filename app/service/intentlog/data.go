package intentlog

import "time"

const KindHold = "hold"

// Hold is one tentative calendar entry created on behalf of a session.
type Hold struct {
	EventID string    `json:"event_id"`
	Start   time.Time `json:"start"`
}

// Intent is recorded before calendar holds are placed and removed once the
// batch is resolved or released. Candidates are the open slots the holds
// replaced; Choice is the 1-based slot picked once resolution started.
type Intent struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Kind       string    `json:"kind"`
	Candidates []Hold    `json:"candidates,omitempty"`
	Holds      []Hold    `json:"holds,omitempty"`
	Choice     int       `json:"choice,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
