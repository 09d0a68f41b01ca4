package realtime

import "time"

// Outbound events (agent side fires, no direct reply expected).
const (
	EventJoinStatus         = "join_status"
	EventUpdateStatus       = "update_status"
	EventJoinChatRoom       = "join_chat_room"
	EventLeaveChatRoom      = "leave_chat_room"
	EventEndChat            = "end_chat"
	EventAgentTyping        = "agent_typing"
	EventAgentStoppedTyping = "agent_stopped_typing"
)

// Inbound events (fired by the backend toward agents).
const (
	EventChatStarted       = "chat_started"
	EventAgentJoined       = "agent_joined"
	EventCustomerWaiting   = "customer_waiting"
	EventNewMessage        = "new_message"
	EventSystemMessage     = "system_message"
	EventCustomerTyping    = "customer_typing"
	EventChatEnded         = "chat_ended"
	EventAgentDisconnected = "agent_disconnected"
)

// Agent presence status values carried by update_status.
const (
	StatusAvailable = "available"
	StatusOnline    = "online"
	StatusOffline   = "offline"
)

type JoinStatusPayload struct {
	BusinessID string `json:"businessId"`
	AgentID    string `json:"agentId"`
}

type UpdateStatusPayload struct {
	BusinessID string `json:"businessId"`
	AgentID    string `json:"agentId"`
	Status     string `json:"status"`
}

type JoinChatRoomPayload struct {
	Room         string `json:"room"`
	AgentID      string `json:"agentId"`
	EscalationID string `json:"escalationId"`
}

type LeaveChatRoomPayload struct {
	Room    string `json:"room"`
	AgentID string `json:"agentId"`
}

type EndChatPayload struct {
	EscalationID string `json:"escalationId"`
	AgentID      string `json:"agentId"`
}

type TypingPayload struct {
	EscalationID string `json:"escalationId"`
	AgentID      string `json:"agentId"`
}

type ChatStartedPayload struct {
	AgentID      string `json:"agentId"`
	EscalationID string `json:"escalationId"`
	Room         string `json:"room"`
}

type AgentJoinedPayload struct {
	AgentID      string    `json:"agentId"`
	EscalationID string    `json:"escalationId"`
	Room         string    `json:"room"`
	JoinedAt     time.Time `json:"joinedAt"`
}

type CustomerTypingPayload struct {
	EscalationID string `json:"escalationId"`
	SenderType   string `json:"senderType"`
}

type ChatEndedPayload struct {
	EscalationID string `json:"escalationId"`
	AgentID      string `json:"agentId"`
}

type AgentDisconnectedPayload struct {
	EscalationID string `json:"escalationId"`
	AgentID      string `json:"agentId"`
}
