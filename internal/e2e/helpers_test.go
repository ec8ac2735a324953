package e2e

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"fastllamad/internal/httpapi"
	"fastllamad/internal/manager"
	"fastllamad/internal/native/nativetest"
	"fastllamad/internal/store"
)

const readTimeout = 3 * time.Second

type server struct {
	srv       *httptest.Server
	mgr       *manager.Manager
	eng       *nativetest.Engine
	modelPath string
}

// newServer starts the full HTTP stack over a fake engine. The models
// directory holds one empty model file.
func newServer(t *testing.T, eng *nativetest.Engine, mut ...func(*manager.ManagerConfig)) *server {
	t.Helper()
	root := t.TempDir()
	models := filepath.Join(root, "models")
	if err := os.MkdirAll(models, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	modelPath := filepath.Join(models, "alpha.bin")
	if err := os.WriteFile(modelPath, []byte(""), 0o644); err != nil {
		t.Fatalf("write temp model: %v", err)
	}
	st, err := store.Open(filepath.Join(root, "saves"), store.BackendSQLite)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	cfg := manager.ManagerConfig{
		Engine:       eng,
		Store:        st,
		ModelsDir:    models,
		WorkspaceDir: root,
		Logger:       zerolog.Nop(),
	}
	for _, f := range mut {
		f(&cfg)
	}
	mgr := manager.NewWithConfig(cfg)
	srv := httptest.NewServer(httpapi.NewMux(httpapi.FromManager(mgr)))
	t.Cleanup(func() {
		srv.Close()
		_ = mgr.Close()
		_ = st.Close()
	})
	return &server{srv: srv, mgr: mgr, eng: eng, modelPath: modelPath}
}

func (s *server) dial(t *testing.T) *client {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &client{conn: conn}
}

func (s *server) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, s.srv.URL+path, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

type client struct {
	conn *websocket.Conn
}

func (c *client) send(t *testing.T, raw string) {
	t.Helper()
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// next reads records until pred matches.
func (c *client) next(t *testing.T, what string, pred func(map[string]any) bool) map[string]any {
	t.Helper()
	deadline := time.Now().Add(readTimeout)
	for {
		_ = c.conn.SetReadDeadline(deadline)
		var m map[string]any
		if err := c.conn.ReadJSON(&m); err != nil {
			t.Fatalf("waiting for %s: %v", what, err)
		}
		if pred(m) {
			return m
		}
	}
}

func (c *client) nextType(t *testing.T, typ string) map[string]any {
	t.Helper()
	return c.next(t, typ, func(m map[string]any) bool { return m["type"] == typ })
}

func (c *client) notice(t *testing.T, kind, msg string) {
	t.Helper()
	c.next(t, kind+" "+msg, func(m map[string]any) bool {
		return m["type"] == kind+"-notification" && m["message"] == msg
	})
}

func status(m map[string]any) string {
	st, _ := m["status"].(map[string]any)
	s, _ := st["kind"].(string)
	return s
}

func (c *client) modelDone(t *testing.T) map[string]any {
	t.Helper()
	return c.next(t, "finished model message", func(m map[string]any) bool {
		k := status(m)
		return m["type"] == "model-message" && (k == "success" || k == "failure")
	})
}
