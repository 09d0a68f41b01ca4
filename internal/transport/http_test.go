package transport_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katsura919/enquiro-agent-web-sub000/internal/domain/chat"
	"github.com/katsura919/enquiro-agent-web-sub000/internal/domain/workspace"
	"github.com/katsura919/enquiro-agent-web-sub000/internal/realtime"
	"github.com/katsura919/enquiro-agent-web-sub000/internal/statestore"
	"github.com/katsura919/enquiro-agent-web-sub000/internal/storage"
	"github.com/katsura919/enquiro-agent-web-sub000/internal/transport"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := statestore.New(storage.NewMemory(), nil)
	bus := realtime.NewBus(nil)
	workspaceSvc := workspace.NewService(store, nil)
	chatSvc := chat.NewService(bus, nil, store, nil)

	server := httptest.NewServer(transport.NewRouter(workspaceSvc, chatSvc, nil, nil, nil))
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url string, body string) (*http.Response, apiResponse) {
	t.Helper()

	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func getJSON(t *testing.T, url string) apiResponse {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decoded apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return decoded
}

func TestHealth(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWorkspaceOpenAndList(t *testing.T) {
	server := newTestServer(t)

	resp, body := postJSON(t, server.URL+"/api/workspace/tabs",
		`{"title":"Chat - Jane","type":"chat"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, body.Success)

	var opened struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &opened))
	require.NotEmpty(t, opened.ID)

	listed := getJSON(t, server.URL+"/api/workspace")
	var ws struct {
		Tabs        []workspace.Tab `json:"tabs"`
		ActiveTabID string          `json:"activeTabId"`
	}
	require.NoError(t, json.Unmarshal(listed.Data, &ws))
	require.Len(t, ws.Tabs, 2)
	require.Equal(t, opened.ID, ws.ActiveTabID)
}

func TestWorkspaceOpenRejectsBadType(t *testing.T) {
	server := newTestServer(t)

	resp, body := postJSON(t, server.URL+"/api/workspace/tabs",
		`{"title":"Nope","type":"bogus"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.False(t, body.Success)
}

func TestWorkspaceCloseFlow(t *testing.T) {
	server := newTestServer(t)

	_, body := postJSON(t, server.URL+"/api/workspace/tabs",
		`{"title":"A","type":"chat"}`)
	var opened struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &opened))

	req, err := http.NewRequest(http.MethodDelete, server.URL+"/api/workspace/tabs/"+opened.ID, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	listed := getJSON(t, server.URL+"/api/workspace")
	var ws struct {
		Tabs []workspace.Tab `json:"tabs"`
	}
	require.NoError(t, json.Unmarshal(listed.Data, &ws))
	require.Len(t, ws.Tabs, 1)
}

func TestChatConnectAndSnapshot(t *testing.T) {
	server := newTestServer(t)

	resp, body := postJSON(t, server.URL+"/api/chat/connect",
		`{"escalationId":"esc1","sessionId":"sess1","businessId":"biz1","customerName":"Jane","agentId":"agent1"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, body.Success)

	snapshot := getJSON(t, server.URL+"/api/chat")
	var win chat.Window
	require.NoError(t, json.Unmarshal(snapshot.Data, &win))
	require.True(t, win.Visible)
	require.Equal(t, "esc1", win.EscalationID)
	require.False(t, win.Connected)
}

func TestChatConnectValidation(t *testing.T) {
	server := newTestServer(t)

	resp, body := postJSON(t, server.URL+"/api/chat/connect", `{"agentId":"agent1"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.False(t, body.Success)
}

func TestChatStatusValidation(t *testing.T) {
	server := newTestServer(t)

	resp, _ := postJSON(t, server.URL+"/api/chat/status",
		`{"businessId":"biz1","agentId":"agent1","status":"available"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := postJSON(t, server.URL+"/api/chat/status",
		`{"businessId":"biz1","agentId":"agent1","status":"busy"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.False(t, body.Success)
}

func TestSuggestUnconfigured(t *testing.T) {
	server := newTestServer(t)

	resp, body := postJSON(t, server.URL+"/api/chat/suggest", `{}`)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.False(t, body.Success)
}

func TestEscalationUnconfigured(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/api/escalations/esc1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
