package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/katsura919/enquiro-agent-web-sub000/internal/realtime"
)

const historyFetchTimeout = 10 * time.Second

// Service owns the single live-chat slot and keeps it correct across
// reconnects, duplicate deliveries, and explicit teardown. All mutation
// happens under one lock; inbound events for a slot that has ended are
// ignored until a fresh ConnectToChat.
type Service struct {
	mu      sync.Mutex
	win     Window
	phase   Phase
	agentID string
	// epoch invalidates in-flight history fetches when the slot changes.
	epoch int

	channel realtime.Channel
	history HistoryFetcher
	store   StateStore
	logger  *slog.Logger

	subs       []realtime.Subscription
	onTyping   func(realtime.CustomerTypingPayload)
	onCustomer func()
}

// NewService creates a controller hydrated from the state store. Listeners
// are not attached until Subscribe is called.
func NewService(channel realtime.Channel, history HistoryFetcher, store StateStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		channel: channel,
		history: history,
		store:   store,
		logger:  logger,
	}
	if store != nil {
		loaded := store.LoadChatWindow()
		s.phase = PhaseFromWindow(loaded)
		loaded.Connected = false
		loaded.Disconnected = false
		s.win = loaded
	}
	return s
}

// SetTypingHandler registers an ephemeral callback for customer typing
// hints. The hint is never persisted.
func (s *Service) SetTypingHandler(fn func(realtime.CustomerTypingPayload)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTyping = fn
}

// SetCustomerWaitingHandler registers a callback for queue notifications.
func (s *Service) SetCustomerWaitingHandler(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCustomer = fn
}

// ConnectRequest identifies the chat being picked up. All identifiers are
// set together; connecting overwrites any previous slot.
type ConnectRequest struct {
	EscalationID string
	SessionID    string
	BusinessID   string
	CustomerName string
	AgentID      string
}

// ConnectToChat establishes the live slot. It does not join the event
// channel room; the join is deferred until the backend confirms with
// chat_started, so a join is never attempted speculatively.
func (s *Service) ConnectToChat(ctx context.Context, req ConnectRequest) {
	s.mu.Lock()
	s.win = Window{
		Visible:      true,
		EscalationID: req.EscalationID,
		SessionID:    req.SessionID,
		BusinessID:   req.BusinessID,
		CustomerName: req.CustomerName,
	}
	s.agentID = req.AgentID
	s.phase = PhaseConnecting
	s.epoch++
	epoch := s.epoch
	sessionID := req.SessionID
	s.persistLocked()
	subscribed := len(s.subs) > 0
	s.mu.Unlock()

	if subscribed {
		go s.hydrateHistory(epoch, sessionID)
	}
}

// DisconnectFromChat signals leave and end outward, then unconditionally
// resets the slot to a terminal disconnected state. Local state flips
// before any outward delivery is confirmed.
func (s *Service) DisconnectFromChat(ctx context.Context, agentID string) {
	s.mu.Lock()
	escalationID := s.win.EscalationID
	room := s.win.Room
	if room == "" {
		room = escalationID
	}
	s.win = Window{Visible: false}
	s.phase = PhaseEnded
	s.epoch++
	s.persistLocked()
	s.mu.Unlock()

	if escalationID == "" {
		return
	}
	s.emit(ctx, realtime.EventLeaveChatRoom, realtime.LeaveChatRoomPayload{
		Room:    room,
		AgentID: agentID,
	})
	s.emit(ctx, realtime.EventEndChat, realtime.EndChatPayload{
		EscalationID: escalationID,
		AgentID:      agentID,
	})
}

// AddChatMessage appends a message to the slot's log unless a message with
// the same id is already present. Used for local echo and as the common
// path for inbound deliveries.
func (s *Service) AddChatMessage(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendLocked(msg) {
		s.persistLocked()
	}
}

// Snapshot returns a copy of the chat window with the connection flags
// derived from the current phase.
func (s *Service) Snapshot() Window {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe attaches the controller's event-channel listeners. If a chat
// slot is active and its log is empty, a one-time history fetch hydrates
// the transcript. Subscribing twice is a no-op.
func (s *Service) Subscribe(ctx context.Context) {
	s.mu.Lock()
	if len(s.subs) > 0 || s.channel == nil {
		s.mu.Unlock()
		return
	}
	s.subs = []realtime.Subscription{
		s.channel.On(realtime.EventChatStarted, s.handleChatStarted),
		s.channel.On(realtime.EventAgentJoined, s.handleAgentJoined),
		s.channel.On(realtime.EventNewMessage, s.handleMessage),
		s.channel.On(realtime.EventSystemMessage, s.handleMessage),
		s.channel.On(realtime.EventCustomerTyping, s.handleCustomerTyping),
		s.channel.On(realtime.EventCustomerWaiting, s.handleCustomerWaiting),
		s.channel.On(realtime.EventChatEnded, s.handleChatEnded),
		s.channel.On(realtime.EventAgentDisconnected, s.handleChatEnded),
	}
	active := s.phase == PhaseConnecting || s.phase == PhaseLive
	empty := len(s.win.Messages) == 0
	epoch := s.epoch
	sessionID := s.win.SessionID
	s.mu.Unlock()

	if active && empty && sessionID != "" {
		go s.hydrateHistory(epoch, sessionID)
	}
}

// Unsubscribe detaches all listeners. It never emits leave_chat_room:
// leaving the room is only triggered by DisconnectFromChat, so transient
// teardown doesn't kick the agent out of an active chat.
func (s *Service) Unsubscribe() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()

	for _, sub := range subs {
		s.channel.Off(sub)
	}
}

// AnnouncePresence announces the agent on the business presence channel.
func (s *Service) AnnouncePresence(ctx context.Context, businessID, agentID string) {
	s.emit(ctx, realtime.EventJoinStatus, realtime.JoinStatusPayload{
		BusinessID: businessID,
		AgentID:    agentID,
	})
}

// SetStatus broadcasts the agent's availability.
func (s *Service) SetStatus(ctx context.Context, businessID, agentID, status string) error {
	switch status {
	case realtime.StatusAvailable, realtime.StatusOnline, realtime.StatusOffline:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	s.emit(ctx, realtime.EventUpdateStatus, realtime.UpdateStatusPayload{
		BusinessID: businessID,
		AgentID:    agentID,
		Status:     status,
	})
	return nil
}

// StartTyping signals the customer that the agent is composing a reply.
func (s *Service) StartTyping(ctx context.Context, agentID string) {
	s.emitTyping(ctx, realtime.EventAgentTyping, agentID)
}

// StopTyping clears the typing indicator.
func (s *Service) StopTyping(ctx context.Context, agentID string) {
	s.emitTyping(ctx, realtime.EventAgentStoppedTyping, agentID)
}

func (s *Service) emitTyping(ctx context.Context, event, agentID string) {
	s.mu.Lock()
	escalationID := s.win.EscalationID
	s.mu.Unlock()
	if escalationID == "" {
		return
	}
	s.emit(ctx, event, realtime.TypingPayload{
		EscalationID: escalationID,
		AgentID:      agentID,
	})
}

func (s *Service) handleChatStarted(ctx context.Context, payload json.RawMessage) {
	var p realtime.ChatStartedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}

	s.mu.Lock()
	if s.phase == PhaseEnded || p.EscalationID == "" || p.EscalationID != s.win.EscalationID {
		s.mu.Unlock()
		return
	}
	room := p.Room
	if room == "" {
		room = p.EscalationID
	}
	s.win.Room = room
	s.phase = PhaseLive
	agentID := s.agentID
	s.persistLocked()
	s.mu.Unlock()

	s.emit(ctx, realtime.EventJoinChatRoom, realtime.JoinChatRoomPayload{
		Room:         room,
		AgentID:      agentID,
		EscalationID: p.EscalationID,
	})
}

func (s *Service) handleAgentJoined(_ context.Context, payload json.RawMessage) {
	var p realtime.AgentJoinedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseEnded || p.EscalationID == "" || p.EscalationID != s.win.EscalationID {
		return
	}
	if p.Room != "" {
		s.win.Room = p.Room
	}
	s.phase = PhaseLive
	s.persistLocked()
}

func (s *Service) handleMessage(_ context.Context, payload json.RawMessage) {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseEnded {
		return
	}
	if !s.matchesSlotLocked(msg.SessionID, msg.EscalationID) {
		return
	}
	if s.appendLocked(msg) {
		s.persistLocked()
	}
}

func (s *Service) handleCustomerTyping(_ context.Context, payload json.RawMessage) {
	var p realtime.CustomerTypingPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}

	s.mu.Lock()
	match := s.phase != PhaseEnded && p.EscalationID != "" && p.EscalationID == s.win.EscalationID
	fn := s.onTyping
	s.mu.Unlock()

	if match && fn != nil {
		fn(p)
	}
}

func (s *Service) handleCustomerWaiting(_ context.Context, _ json.RawMessage) {
	s.mu.Lock()
	fn := s.onCustomer
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *Service) handleChatEnded(_ context.Context, payload json.RawMessage) {
	var p realtime.ChatEndedPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseEnded || p.EscalationID == "" || p.EscalationID != s.win.EscalationID {
		return
	}
	s.phase = PhaseEnded
	s.persistLocked()
	s.logger.Info("chat ended", "escalation", p.EscalationID)
}

func (s *Service) hydrateHistory(epoch int, sessionID string) {
	if s.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyFetchTimeout)
	defer cancel()

	messages, err := s.history.ChatHistory(ctx, sessionID)
	if err != nil {
		s.logger.Error("history fetch failed", "session", sessionID, "error", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// The slot may have changed or accumulated messages while the fetch
	// was in flight.
	if epoch != s.epoch || s.phase == PhaseEnded || len(s.win.Messages) > 0 {
		return
	}
	changed := false
	for _, msg := range messages {
		if s.appendLocked(msg) {
			changed = true
		}
	}
	if changed {
		s.persistLocked()
	}
}

// matchesSlotLocked accepts a message when either its session id or its
// escalation id equals the slot's. The dual match tolerates backends that
// only populate one of the two.
func (s *Service) matchesSlotLocked(sessionID, escalationID string) bool {
	if sessionID != "" && sessionID == s.win.SessionID {
		return true
	}
	if escalationID != "" && escalationID == s.win.EscalationID {
		return true
	}
	return false
}

// appendLocked appends unless the id is already present. Duplicates are
// dropped silently and never overwrite the existing record.
func (s *Service) appendLocked(msg Message) bool {
	if msg.ID != "" {
		for _, existing := range s.win.Messages {
			if existing.ID == msg.ID {
				return false
			}
		}
	}
	s.win.Messages = append(s.win.Messages, msg)
	return true
}

func (s *Service) snapshotLocked() Window {
	win := s.win
	win.Connected = s.phase == PhaseLive
	win.Disconnected = s.phase == PhaseEnded
	win.Messages = make([]Message, len(s.win.Messages))
	copy(win.Messages, s.win.Messages)
	return win
}

func (s *Service) persistLocked() {
	if s.store == nil {
		return
	}
	s.store.SaveChatWindow(s.snapshotLocked())
}

func (s *Service) emit(ctx context.Context, event string, payload any) {
	if s.channel == nil {
		return
	}
	if err := s.channel.Emit(ctx, event, payload); err != nil {
		s.logger.Warn("emit failed", "event", event, "error", err)
	}
}
