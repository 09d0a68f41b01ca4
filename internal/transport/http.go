// Package transport exposes the workspace and chat read models and their
// mutating operations to the dashboard shell over HTTP. Responses use the
// backend's {success, data} envelope so the shell consumes one shape.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/katsura919/enquiro-agent-web-sub000/internal/backend"
	"github.com/katsura919/enquiro-agent-web-sub000/internal/domain/chat"
	"github.com/katsura919/enquiro-agent-web-sub000/internal/domain/workspace"
)

// Suggester drafts a reply from the live transcript.
type Suggester interface {
	SuggestReply(ctx context.Context, customerName string, history []chat.Message) (string, error)
}

// EscalationFetcher proxies escalation detail reads to the backend.
type EscalationFetcher interface {
	Escalation(ctx context.Context, id string) (*backend.Escalation, error)
}

// Server wires HTTP handlers over the domain services.
type Server struct {
	workspace   *workspace.Service
	chat        *chat.Service
	escalations EscalationFetcher
	suggester   Suggester
	logger      *slog.Logger
}

// NewRouter creates the API router. The suggester and escalation fetcher
// are optional; their routes answer 503 when absent.
func NewRouter(ws *workspace.Service, cs *chat.Service, escalations EscalationFetcher, suggester Suggester, logger *slog.Logger) *chi.Mux {
	if logger == nil {
		logger = slog.Default()
	}
	srv := &Server{
		workspace:   ws,
		chat:        cs,
		escalations: escalations,
		suggester:   suggester,
		logger:      logger,
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/health", srv.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/workspace", srv.handleWorkspace)
		r.Post("/workspace/tabs", srv.handleOpenTab)
		r.Delete("/workspace/tabs", srv.handleCloseAllTabs)
		r.Patch("/workspace/tabs/{id}", srv.handleUpdateTab)
		r.Delete("/workspace/tabs/{id}", srv.handleCloseTab)
		r.Post("/workspace/tabs/{id}/refresh", srv.handleRefreshTab)
		r.Post("/workspace/tabs/{id}/close-others", srv.handleCloseOtherTabs)

		r.Get("/chat", srv.handleChatWindow)
		r.Post("/chat/connect", srv.handleConnect)
		r.Post("/chat/disconnect", srv.handleDisconnect)
		r.Post("/chat/messages", srv.handleAddMessage)
		r.Post("/chat/typing", srv.handleTyping)
		r.Post("/chat/status", srv.handleStatus)
		r.Post("/chat/suggest", srv.handleSuggest)

		r.Get("/escalations/{id}", srv.handleEscalation)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type workspaceResponse struct {
	Tabs        []workspace.Tab `json:"tabs"`
	ActiveTabID string          `json:"activeTabId"`
}

func (s *Server) handleWorkspace(w http.ResponseWriter, _ *http.Request) {
	tabs, activeID := s.workspace.Snapshot()
	writeData(w, http.StatusOK, workspaceResponse{Tabs: tabs, ActiveTabID: activeID})
}

type openTabPayload struct {
	ID        string            `json:"id,omitempty"`
	Title     string            `json:"title"`
	Type      workspace.TabType `json:"type"`
	Data      map[string]any    `json:"data,omitempty"`
	Closeable *bool             `json:"closeable,omitempty"`
}

func (s *Server) handleOpenTab(w http.ResponseWriter, r *http.Request) {
	var payload openTabPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	id, err := s.workspace.OpenTab(workspace.OpenTabRequest{
		ID:        payload.ID,
		Title:     payload.Title,
		Type:      payload.Type,
		Data:      payload.Data,
		Closeable: payload.Closeable,
	})
	if err != nil {
		if errors.Is(err, workspace.ErrInvalidTabType) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("open tab failed", "error", err)
		writeError(w, http.StatusInternalServerError, "open tab failed")
		return
	}
	writeData(w, http.StatusOK, map[string]string{"id": id})
}

type updateTabPayload struct {
	Title    *string        `json:"title,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	Modified *bool          `json:"modified,omitempty"`
}

func (s *Server) handleUpdateTab(w http.ResponseWriter, r *http.Request) {
	var payload updateTabPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	s.workspace.UpdateTab(chi.URLParam(r, "id"), workspace.UpdateTabRequest{
		Title:    payload.Title,
		Data:     payload.Data,
		Modified: payload.Modified,
	})
	writeData(w, http.StatusOK, nil)
}

func (s *Server) handleCloseTab(w http.ResponseWriter, r *http.Request) {
	s.workspace.CloseTab(chi.URLParam(r, "id"))
	writeData(w, http.StatusOK, nil)
}

func (s *Server) handleRefreshTab(w http.ResponseWriter, r *http.Request) {
	s.workspace.RefreshTab(chi.URLParam(r, "id"))
	writeData(w, http.StatusOK, nil)
}

func (s *Server) handleCloseAllTabs(w http.ResponseWriter, _ *http.Request) {
	s.workspace.CloseAllTabs()
	writeData(w, http.StatusOK, nil)
}

func (s *Server) handleCloseOtherTabs(w http.ResponseWriter, r *http.Request) {
	s.workspace.CloseOtherTabs(chi.URLParam(r, "id"))
	writeData(w, http.StatusOK, nil)
}

func (s *Server) handleChatWindow(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, s.chat.Snapshot())
}

type connectPayload struct {
	EscalationID string `json:"escalationId"`
	SessionID    string `json:"sessionId"`
	BusinessID   string `json:"businessId"`
	CustomerName string `json:"customerName"`
	AgentID      string `json:"agentId"`
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var payload connectPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if payload.EscalationID == "" || payload.SessionID == "" {
		writeError(w, http.StatusBadRequest, "missing escalationId or sessionId")
		return
	}
	s.chat.ConnectToChat(r.Context(), chat.ConnectRequest{
		EscalationID: payload.EscalationID,
		SessionID:    payload.SessionID,
		BusinessID:   payload.BusinessID,
		CustomerName: payload.CustomerName,
		AgentID:      payload.AgentID,
	})
	writeData(w, http.StatusOK, s.chat.Snapshot())
}

type disconnectPayload struct {
	AgentID string `json:"agentId"`
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	var payload disconnectPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	s.chat.DisconnectFromChat(r.Context(), payload.AgentID)
	writeData(w, http.StatusOK, s.chat.Snapshot())
}

func (s *Server) handleAddMessage(w http.ResponseWriter, r *http.Request) {
	var msg chat.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	s.chat.AddChatMessage(msg)
	writeData(w, http.StatusOK, nil)
}

type typingPayload struct {
	AgentID string `json:"agentId"`
	Typing  bool   `json:"typing"`
}

func (s *Server) handleTyping(w http.ResponseWriter, r *http.Request) {
	var payload typingPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if payload.Typing {
		s.chat.StartTyping(r.Context(), payload.AgentID)
	} else {
		s.chat.StopTyping(r.Context(), payload.AgentID)
	}
	writeData(w, http.StatusOK, nil)
}

type statusPayload struct {
	BusinessID string `json:"businessId"`
	AgentID    string `json:"agentId"`
	Status     string `json:"status"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	var payload statusPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := s.chat.SetStatus(r.Context(), payload.BusinessID, payload.AgentID, payload.Status); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeData(w, http.StatusOK, nil)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	if s.suggester == nil {
		writeError(w, http.StatusServiceUnavailable, "suggestions not configured")
		return
	}
	win := s.chat.Snapshot()
	reply, err := s.suggester.SuggestReply(r.Context(), win.CustomerName, win.Messages)
	if err != nil {
		s.logger.Error("suggest reply failed", "error", err)
		writeError(w, http.StatusBadGateway, "suggestion failed")
		return
	}
	writeData(w, http.StatusOK, map[string]string{"reply": reply})
}

func (s *Server) handleEscalation(w http.ResponseWriter, r *http.Request) {
	if s.escalations == nil {
		writeError(w, http.StatusServiceUnavailable, "backend not configured")
		return
	}
	esc, err := s.escalations.Escalation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.logger.Error("escalation fetch failed", "error", err)
		writeError(w, http.StatusBadGateway, "escalation fetch failed")
		return
	}
	writeData(w, http.StatusOK, esc)
}

type responseEnvelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(responseEnvelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(responseEnvelope{Success: false, Message: message})
}
