// Package backend is the request/response boundary to the escalation
// backend. Only the endpoints the workspace core consumes are modeled;
// everything else the dashboard shows goes through the backend directly.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/katsura919/enquiro-agent-web-sub000/internal/domain/chat"
)

// Client calls the escalation backend REST API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *slog.Logger
}

// New creates a backend client. The token, if set, is sent as a bearer
// credential on every request.
func New(baseURL, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

// envelope is the backend's standard response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message,omitempty"`
}

// Escalation is a customer support case, referenced by the workspace
// through its id.
type Escalation struct {
	ID            string    `json:"_id"`
	CaseNumber    string    `json:"caseNumber"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail,omitempty"`
	Concern       string    `json:"concern,omitempty"`
	Status        string    `json:"status,omitempty"`
	BusinessID    string    `json:"businessId,omitempty"`
	CreatedAt     time.Time `json:"createdAt,omitzero"`
}

// Agent is the authenticated support agent's profile.
type Agent struct {
	ID         string `json:"_id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	BusinessID string `json:"businessId,omitempty"`
}

// ChatHistory fetches the transcript of a chat session.
func (c *Client) ChatHistory(ctx context.Context, sessionID string) ([]chat.Message, error) {
	var messages []chat.Message
	path := "/chat/session/" + url.PathEscape(sessionID) + "/messages"
	if err := c.get(ctx, path, &messages); err != nil {
		return nil, fmt.Errorf("fetching chat history: %w", err)
	}
	return messages, nil
}

// Escalation fetches one escalation by id.
func (c *Client) Escalation(ctx context.Context, id string) (*Escalation, error) {
	var esc Escalation
	if err := c.get(ctx, "/escalation/"+url.PathEscape(id), &esc); err != nil {
		return nil, fmt.Errorf("fetching escalation: %w", err)
	}
	return &esc, nil
}

// AgentProfile fetches the agent's profile.
func (c *Client) AgentProfile(ctx context.Context, id string) (*Agent, error) {
	var agent Agent
	if err := c.get(ctx, "/agent/"+url.PathEscape(id), &agent); err != nil {
		return nil, fmt.Errorf("fetching agent profile: %w", err)
	}
	return &agent, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("backend returned %s: %s", resp.Status, body)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if !env.Success {
		return fmt.Errorf("backend rejected request: %s", env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decoding response data: %w", err)
		}
	}
	return nil
}
