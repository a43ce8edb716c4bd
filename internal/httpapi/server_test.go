package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/minervabot/minerva/internal/auth"
	"github.com/minervabot/minerva/internal/config"
	"github.com/minervabot/minerva/internal/dialogue"
	"github.com/minervabot/minerva/internal/protocol"
)

type stubIdentity struct{}

func (stubIdentity) IssueLoginLink(_ context.Context, userID, nonce string) (string, error) {
	return "http://identity.test/login/" + userID + "?nonce=" + nonce, nil
}

type echoResponder struct{}

func (echoResponder) HandleMessage(_ context.Context, _ string, text string) string {
	return "echo: " + text
}

func newTestServer(t *testing.T) (*Server, *auth.Gate, *dialogue.MemoryContextStore) {
	t.Helper()
	gate := auth.NewGate(auth.NewMemoryStore(), stubIdentity{}, time.Hour)
	contexts := dialogue.NewMemoryContextStore(20)
	srv := New(config.Config{}, gate, echoResponder{}, contexts, nil)
	return srv, gate, contexts
}

func TestHealthEndpoints(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	for _, path := range []string{"/healthz", "/readyz"} {
		res, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("GET %s status = %d, want %d", path, res.StatusCode, http.StatusOK)
		}
	}
}

func TestAuthConfirmAndState(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	body, _ := json.Marshal(map[string]string{
		"user_id": "user-1",
		"token":   "tok-1",
		"email":   "student@smu.edu",
	})
	res, err := http.Post(ts.URL+"/v1/auth/confirm", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("confirm request error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("confirm status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	stateRes, err := http.Get(ts.URL + "/v1/auth/state/user-1")
	if err != nil {
		t.Fatalf("state request error = %v", err)
	}
	defer stateRes.Body.Close()

	var payload map[string]any
	if err := json.NewDecoder(stateRes.Body).Decode(&payload); err != nil {
		t.Fatalf("decode state response: %v", err)
	}
	if payload["state"] != string(auth.StateAuthenticated) {
		t.Fatalf("state = %v, want %v", payload["state"], auth.StateAuthenticated)
	}
	if payload["email"] != "student@smu.edu" {
		t.Fatalf("email = %v, want student email", payload["email"])
	}
}

func TestAuthConfirmRejectsMissingFields(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	body, _ := json.Marshal(map[string]string{"user_id": "user-1"})
	res, err := http.Post(ts.URL+"/v1/auth/confirm", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("confirm request error = %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("confirm status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestAuthRevoke(t *testing.T) {
	srv, gate, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	if _, err := gate.Confirm(context.Background(), "user-1", "tok", "student@smu.edu", time.Time{}); err != nil {
		t.Fatalf("Confirm() error: %v", err)
	}

	res, err := http.Post(ts.URL+"/v1/auth/revoke/user-1", "application/json", nil)
	if err != nil {
		t.Fatalf("revoke request error = %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("revoke status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	again, err := http.Post(ts.URL+"/v1/auth/revoke/user-1", "application/json", nil)
	if err != nil {
		t.Fatalf("second revoke request error = %v", err)
	}
	again.Body.Close()
	if again.StatusCode != http.StatusConflict {
		t.Fatalf("second revoke status = %d, want %d", again.StatusCode, http.StatusConflict)
	}
}

func TestContextWindowEndpoint(t *testing.T) {
	srv, _, contexts := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	turns := []dialogue.Turn{
		{ID: "t1", Role: dialogue.RoleUser, Text: "What is IS621 about?", Timestamp: time.Now().UTC()},
		{ID: "t2", Role: dialogue.RoleAssistant, Text: "Agile and DevSecOps.", Timestamp: time.Now().UTC()},
	}
	if err := contexts.Append(context.Background(), "user-1", turns...); err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	res, err := http.Get(ts.URL + "/v1/context/user-1")
	if err != nil {
		t.Fatalf("context request error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("context status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var payload struct {
		UserID string          `json:"user_id"`
		Turns  []dialogue.Turn `json:"turns"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode context response: %v", err)
	}
	if len(payload.Turns) != 2 {
		t.Fatalf("turns = %d, want 2", len(payload.Turns))
	}
	if payload.Turns[0].ID != "t1" || payload.Turns[1].ID != "t2" {
		t.Fatalf("unexpected turn order: %+v", payload.Turns)
	}
}

func TestContextWindowEmptyUser(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res, err := http.Get(ts.URL + "/v1/context/nobody")
	if err != nil {
		t.Fatalf("context request error = %v", err)
	}
	defer res.Body.Close()

	var payload struct {
		Turns []dialogue.Turn `json:"turns"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode context response: %v", err)
	}
	if payload.Turns == nil || len(payload.Turns) != 0 {
		t.Fatalf("turns = %v, want empty array", payload.Turns)
	}
}

func TestChatWebSocketRoundTrip(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()

	out := protocol.ChatMessage{Type: protocol.TypeChatMessage, UserID: "user-1", Text: "hello there"}
	if err := conn.WriteJSON(out); err != nil {
		t.Fatalf("WriteJSON error = %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var env map[string]any
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("ReadJSON error = %v", err)
		}
		if env["type"] != string(protocol.TypeAssistantReply) {
			continue
		}
		if env["text"] != "echo: hello there" {
			t.Fatalf("reply text = %v, want echoed message", env["text"])
		}
		if env["user_id"] != "user-1" {
			t.Fatalf("reply user_id = %v, want user-1", env["user_id"])
		}
		return
	}
}

func TestChatWebSocketRejectsMalformedFrame(t *testing.T) {
	srv, _, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/chat/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial error = %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"wat"}`)); err != nil {
		t.Fatalf("WriteMessage error = %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var env map[string]any
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("ReadJSON error = %v", err)
	}
	if env["type"] != string(protocol.TypeErrorEvent) {
		t.Fatalf("frame type = %v, want error_event", env["type"])
	}
}
