// Package web serves live table status over HTTP and websocket for
// browser overlays and scoreboards.
package web

import (
	"encoding/json"

	"github.com/linuxmatters/foosmic/internal/processor"
)

// Message types on the status websocket
const (
	TypeStatus = "status"
	TypeGoal   = "goal"
)

// Envelope is one websocket message. Frames where a goal fired are sent as
// TypeGoal so overlays can react without inspecting the flags.
type Envelope struct {
	Type    string           `json:"type"`
	Session string           `json:"session"`
	Status  processor.Status `json:"status"`
}

func newEnvelope(session string, st processor.Status) Envelope {
	typ := TypeStatus
	if st.Scored() {
		typ = TypeGoal
	}
	return Envelope{Type: typ, Session: session, Status: st}
}

func (e Envelope) encode() ([]byte, error) {
	return json.Marshal(e)
}
