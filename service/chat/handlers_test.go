package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"CSProject/config"
	"CSProject/module/conversation/core"
	"CSProject/module/conversation/model"

	"github.com/gin-gonic/gin"
)

func newTestServer(t *testing.T) (*Server, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	cfg.Auth.JwtSecret = "test-secret"
	s := NewServer(cfg, core.NewRegister(), nil, nil)
	return s, s.Router()
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, r *gin.Engine, username string) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/login", "", gin.H{"username": username})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", username, w.Code, w.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.Token
}

func TestAuthRequired(t *testing.T) {
	_, r := newTestServer(t)

	if w := doJSON(t, r, http.MethodGet, "/api/conversations", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: status %d, want 401", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/api/conversations", "garbage", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status %d, want 401", w.Code)
	}

	token := login(t, r, "alice")
	if w := doJSON(t, r, http.MethodGet, "/api/conversations", token, nil); w.Code != http.StatusOK {
		t.Fatalf("valid token: status %d body %s", w.Code, w.Body.String())
	}
}

func TestConversationLifecycle(t *testing.T) {
	_, r := newTestServer(t)
	alice := login(t, r, "alice")
	bob := login(t, r, "bob")

	// create: alice is part of the member list even when omitted
	w := doJSON(t, r, http.MethodPost, "/api/conversations", alice,
		gin.H{"name": "standup", "usernames": []string{"bob"}})
	if w.Code != http.StatusOK {
		t.Fatalf("create: status %d body %s", w.Code, w.Body.String())
	}
	var created struct {
		ConversationNumber int64 `json:"conversation_number"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	num := created.ConversationNumber
	if num != 1 {
		t.Fatalf("conversation number = %d, want 1", num)
	}
	base := fmt.Sprintf("/api/conversations/%d", num)

	// send a message with everything defaulted
	w = doJSON(t, r, http.MethodPost, base+"/messages", alice,
		gin.H{"messages": []gin.H{{"text": "hello"}}})
	if w.Code != http.StatusOK {
		t.Fatalf("add message: status %d body %s", w.Code, w.Body.String())
	}
	var sent struct {
		Messages []model.Message `json:"messages"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &sent); err != nil {
		t.Fatalf("decode messages response: %v", err)
	}
	if len(sent.Messages) != 1 || sent.Messages[0].MessageNumber != 1 || sent.Messages[0].FromUsername != "alice" {
		t.Fatalf("sent = %+v", sent.Messages)
	}

	// bob reads the snapshot
	w = doJSON(t, r, http.MethodGet, base+"/snapshot", bob, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("snapshot: status %d body %s", w.Code, w.Body.String())
	}
	var snap model.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Members) != 2 || len(snap.MessageLogs) != 1 || snap.Name != "standup" {
		t.Fatalf("snapshot = %+v", snap)
	}

	// bob polls a delta from zero cursors for today
	w = doJSON(t, r, http.MethodPost, base+"/delta", bob, gin.H{})
	if w.Code != http.StatusOK {
		t.Fatalf("delta: status %d body %s", w.Code, w.Body.String())
	}
	var delta model.Delta
	if err := json.Unmarshal(w.Body.Bytes(), &delta); err != nil {
		t.Fatalf("decode delta: %v", err)
	}
	if len(delta.NewMessages) != 1 || len(delta.NewMembers) != 2 {
		t.Fatalf("delta = %+v", delta)
	}

	// rename, then verify through the snapshot
	w = doJSON(t, r, http.MethodPatch, base+"/name", bob, gin.H{"name": "retro"})
	if w.Code != http.StatusOK {
		t.Fatalf("rename: status %d body %s", w.Code, w.Body.String())
	}
	w = doJSON(t, r, http.MethodGet, base+"/snapshot", alice, nil)
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Name != "retro" {
		t.Fatalf("name after rename = %q", snap.Name)
	}

	// membership management
	w = doJSON(t, r, http.MethodPost, base+"/members", alice, gin.H{"usernames": []string{"carol", "dave"}})
	if w.Code != http.StatusOK {
		t.Fatalf("add members: status %d body %s", w.Code, w.Body.String())
	}
	w = doJSON(t, r, http.MethodDelete, base+"/members", alice, gin.H{"usernames": []string{"dave"}})
	if w.Code != http.StatusOK {
		t.Fatalf("remove member: status %d body %s", w.Code, w.Body.String())
	}

	// delete the conversation
	w = doJSON(t, r, http.MethodDelete, base, alice, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete: status %d body %s", w.Code, w.Body.String())
	}
	w = doJSON(t, r, http.MethodGet, base+"/snapshot", alice, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("snapshot after delete: status %d, want 404", w.Code)
	}
}

func TestErrorStatusMapping(t *testing.T) {
	_, r := newTestServer(t)
	alice := login(t, r, "alice")
	mallory := login(t, r, "mallory")

	w := doJSON(t, r, http.MethodPost, "/api/conversations", alice,
		gin.H{"name": "standup", "usernames": []string{"bob"}})
	if w.Code != http.StatusOK {
		t.Fatalf("create: status %d body %s", w.Code, w.Body.String())
	}

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{"outsider snapshot", http.MethodGet, "/api/conversations/1/snapshot", mallory, nil, http.StatusForbidden},
		{"unknown conversation", http.MethodGet, "/api/conversations/99/snapshot", alice, nil, http.StatusNotFound},
		{"bad number", http.MethodGet, "/api/conversations/zero/snapshot", alice, nil, http.StatusBadRequest},
		{"duplicate member", http.MethodPost, "/api/conversations/1/members", alice,
			gin.H{"usernames": []string{"bob"}}, http.StatusConflict},
		{"batch with duplicate", http.MethodPost, "/api/conversations/1/members", alice,
			gin.H{"usernames": []string{"carol", "bob"}}, http.StatusConflict},
		{"remove absent member", http.MethodDelete, "/api/conversations/1/members", alice,
			gin.H{"usernames": []string{"carol"}}, http.StatusNotFound},
		{"future message", http.MethodPost, "/api/conversations/1/messages", alice,
			gin.H{"messages": []gin.H{{"text": "soon", "sent_at": "2199-01-01T10:00:00Z"}}}, http.StatusBadRequest},
		{"remove absent message", http.MethodDelete, "/api/conversations/1/messages", alice,
			gin.H{"message": gin.H{"from_username": "alice", "text": "never sent", "sent_at": "2199-01-01T10:00:00Z"}}, http.StatusNotFound},
	}
	for _, c := range cases {
		w := doJSON(t, r, c.method, c.path, c.token, c.body)
		if w.Code != c.want {
			t.Errorf("%s: status %d, want %d (body %s)", c.name, w.Code, c.want, w.Body.String())
		}
	}
}

func TestDuplicateMessageConflict(t *testing.T) {
	_, r := newTestServer(t)
	alice := login(t, r, "alice")
	w := doJSON(t, r, http.MethodPost, "/api/conversations", alice,
		gin.H{"usernames": []string{"alice"}})
	if w.Code != http.StatusOK {
		t.Fatalf("create: status %d body %s", w.Code, w.Body.String())
	}

	msg := gin.H{"text": "hello", "sent_at": "2024-01-15T09:00:00Z"}
	if w := doJSON(t, r, http.MethodPost, "/api/conversations/1/messages", alice,
		gin.H{"messages": []gin.H{msg}}); w.Code != http.StatusOK {
		t.Fatalf("first send: status %d body %s", w.Code, w.Body.String())
	}
	if w := doJSON(t, r, http.MethodPost, "/api/conversations/1/messages", alice,
		gin.H{"messages": []gin.H{msg}}); w.Code != http.StatusConflict {
		t.Fatalf("duplicate send: status %d, want 409", w.Code)
	}
}
