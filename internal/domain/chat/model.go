package chat

import "time"

// Phase is the lifecycle of the single live-chat slot. The legal
// transitions are idle → connecting → live → ended, with ended terminal
// until a fresh connect resets the slot.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseConnecting
	PhaseLive
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseConnecting:
		return "connecting"
	case PhaseLive:
		return "live"
	case PhaseEnded:
		return "ended"
	default:
		return "idle"
	}
}

// Message is one chat transcript entry. The backend populates sessionId,
// escalationId, or both; matching against the live slot accepts either.
type Message struct {
	ID           string    `json:"_id"`
	SessionID    string    `json:"sessionId,omitempty"`
	EscalationID string    `json:"escalationId,omitempty"`
	SenderType   string    `json:"senderType,omitempty"`
	Content      string    `json:"message"`
	SentAt       time.Time `json:"createdAt,omitzero"`
}

// Window is the observable snapshot of the live-chat slot. The connected
// and disconnected flags are derived from the phase, so the impossible
// both-true state cannot occur.
type Window struct {
	Visible      bool      `json:"visible"`
	EscalationID string    `json:"escalationId,omitempty"`
	SessionID    string    `json:"sessionId,omitempty"`
	BusinessID   string    `json:"businessId,omitempty"`
	CustomerName string    `json:"customerName,omitempty"`
	Room         string    `json:"room,omitempty"`
	Connected    bool      `json:"connected"`
	Disconnected bool      `json:"disconnected"`
	Messages     []Message `json:"messages,omitempty"`
}

// PhaseFromWindow recovers the slot phase from a persisted snapshot.
func PhaseFromWindow(win Window) Phase {
	switch {
	case win.Disconnected:
		return PhaseEnded
	case win.Connected:
		return PhaseLive
	case win.Visible && win.EscalationID != "":
		return PhaseConnecting
	default:
		return PhaseIdle
	}
}
