package e2e

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"fastllamad/internal/manager"
	"fastllamad/internal/native/nativetest"
	"fastllamad/pkg/types"
)

// TestE2E_ChatSaveAndList drives a full conversation over the websocket and
// checks the HTTP views of the same state.
func TestE2E_ChatSaveAndList(t *testing.T) {
	s := newServer(t, nativetest.NewEngine())
	c := s.dial(t)

	c.send(t, `{"type":"init","version":"1.0"}`)
	ack := c.nextType(t, "init-ack")
	if models, _ := ack["models"].([]any); len(models) != 1 || models[0] != s.modelPath {
		t.Fatalf("init-ack models = %v", ack["models"])
	}

	c.send(t, `{"type":"init-model","model_path":"`+s.modelPath+`","seed":3}`)
	c.notice(t, "success", "Model loaded successfully")

	c.send(t, `{"type":"user-message","webui_id":"w1","title":"User","message":"write a haiku","status":{"kind":"loading"}}`)
	mack := c.nextType(t, "message-ack")
	if mack["webui_id"] != "w1" || mack["status"] != "success" {
		t.Fatalf("message-ack = %v", mack)
	}
	final := c.modelDone(t)
	if status(final) != "success" || final["message"] == "" || final["title"] != "LLaMa Model" {
		t.Fatalf("model message = %v", final)
	}

	c.send(t, `{"type":"session-save","title":"haiku"}`)
	c.notice(t, "success", "Session saved successfully")
	c.nextType(t, "session-list-ack")

	resp, body := s.get(t, "/sessions")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/sessions status=%d", resp.StatusCode)
	}
	var saves types.SessionsResponse
	if err := json.Unmarshal(body, &saves); err != nil {
		t.Fatalf("decode /sessions: %v", err)
	}
	if len(saves.Sessions) != 1 || saves.Sessions[0].Title != "haiku" || saves.Sessions[0].ModelPath != s.modelPath {
		t.Fatalf("/sessions = %+v", saves)
	}

	resp, body = s.get(t, "/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/status status=%d", resp.StatusCode)
	}
	var st types.StatusResponse
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatalf("decode /status: %v", err)
	}
	if len(st.Sessions) != 1 || st.Sessions[0].ModelPath != s.modelPath || st.Sessions[0].ActiveSave != saves.Sessions[0].ID {
		t.Fatalf("/status = %+v", st)
	}

	resp, body = s.get(t, "/models")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "alpha.bin") {
		t.Fatalf("/models = %d %s", resp.StatusCode, body)
	}
}

func TestE2E_UnsupportedVersionClosesConnection(t *testing.T) {
	s := newServer(t, nativetest.NewEngine())
	c := s.dial(t)
	c.send(t, `{"type":"init","version":"0.1"}`)
	c.notice(t, "error", "Unsupported version: 0.1")
	_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	_, _, err := c.conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}

func TestE2E_SessionLimitReturns429(t *testing.T) {
	s := newServer(t, nativetest.NewEngine(), func(c *manager.ManagerConfig) { c.MaxSessions = 1 })
	s.dial(t)
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil || resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got err=%v resp=%v", err, resp)
	}
}

func TestE2E_DisconnectFreesContext(t *testing.T) {
	eng := nativetest.NewEngine()
	s := newServer(t, eng)
	c := s.dial(t)
	c.send(t, `{"type":"init-model","model_path":"`+s.modelPath+`"}`)
	c.notice(t, "success", "Model loaded successfully")
	_ = c.conn.Close()

	deadline := time.Now().Add(readTimeout)
	for !eng.Last().Freed() || len(s.mgr.Sessions()) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("context not freed after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestE2E_StopDuringGeneration(t *testing.T) {
	eng := nativetest.NewEngine()
	eng.Gate = make(chan struct{})
	eng.Started = make(chan struct{}, 1)
	s := newServer(t, eng)
	c := s.dial(t)
	c.send(t, `{"type":"init-model","model_path":"`+s.modelPath+`"}`)
	c.notice(t, "success", "Model loaded successfully")

	c.send(t, `{"type":"user-message","webui_id":"w","title":"User","message":"go","status":{"kind":"loading"}}`)
	<-eng.Started
	c.send(t, `{"type":"user-message","webui_id":"w2","title":"User","message":"again","status":{"kind":"loading"}}`)
	c.notice(t, "error", "Model is busy")
	c.send(t, `{"type":"invoke-command","command":"stop"}`)
	c.notice(t, "success", "Command 'stop' executed successfully")
	close(eng.Gate)
	if final := c.modelDone(t); status(final) != "success" {
		t.Fatalf("interrupted generation = %v", final)
	}
	c.notice(t, "info", "Generation stopped")
}
