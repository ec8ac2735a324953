package manager

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"fastllamad/internal/native/nativetest"
	"fastllamad/internal/store"
)

const waitTimeout = 3 * time.Second

// fakeTransport records every delivered record as a generic JSON object.
type fakeTransport struct {
	mu   sync.Mutex
	recs []map[string]any
	ch   chan map[string]any
	fail bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{ch: make(chan map[string]any, 4096)}
}

func (f *fakeTransport) Send(v any) error {
	f.mu.Lock()
	fail := f.fail
	f.mu.Unlock()
	if fail {
		return errors.New("transport closed")
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	f.mu.Lock()
	f.recs = append(f.recs, m)
	f.mu.Unlock()
	f.ch <- m
	return nil
}

func (f *fakeTransport) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.recs)
}

// waitFor consumes records until one matches pred.
func (f *fakeTransport) waitFor(t *testing.T, what string, pred func(map[string]any) bool) map[string]any {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case m := <-f.ch:
			if pred(m) {
				return m
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
			return nil
		}
	}
}

func (f *fakeTransport) waitType(t *testing.T, typ string) map[string]any {
	t.Helper()
	return f.waitFor(t, typ, func(m map[string]any) bool { return m["type"] == typ })
}

func (f *fakeTransport) waitNotice(t *testing.T, kind, msg string) {
	t.Helper()
	f.waitFor(t, kind+" notification "+msg, func(m map[string]any) bool {
		return m["type"] == kind+"-notification" && m["message"] == msg
	})
}

// waitModelDone waits for the final model message and returns it.
func (f *fakeTransport) waitModelDone(t *testing.T) map[string]any {
	t.Helper()
	return f.waitFor(t, "finished model message", func(m map[string]any) bool {
		if m["type"] != "model-message" {
			return false
		}
		st, _ := m["status"].(map[string]any)
		return st["kind"] == "success" || st["kind"] == "failure"
	})
}

func statusKind(m map[string]any) string {
	st, _ := m["status"].(map[string]any)
	s, _ := st["kind"].(string)
	return s
}

type testEnv struct {
	m         *Manager
	eng       *nativetest.Engine
	store     *store.Store
	root      string
	modelPath string
}

func newTestEnv(t *testing.T, eng *nativetest.Engine, mut ...func(*ManagerConfig)) *testEnv {
	t.Helper()
	root := t.TempDir()
	models := filepath.Join(root, "models")
	if err := os.MkdirAll(models, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	modelPath := filepath.Join(models, "7B.bin")
	if err := os.WriteFile(modelPath, []byte("weights"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	st, err := store.Open(filepath.Join(root, "saves"), store.BackendJSON)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	cfg := ManagerConfig{
		Engine:       eng,
		Store:        st,
		ModelsDir:    models,
		WorkspaceDir: root,
		Logger:       zerolog.Nop(),
	}
	for _, f := range mut {
		f(&cfg)
	}
	m := NewWithConfig(cfg)
	t.Cleanup(func() {
		_ = m.Close()
		_ = st.Close()
	})
	return &testEnv{m: m, eng: eng, store: st, root: root, modelPath: modelPath}
}

func (e *testEnv) open(t *testing.T) (*Session, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport()
	s, err := e.m.Open(ft)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	return s, ft
}

func handle(t *testing.T, s *Session, raw string) {
	t.Helper()
	if err := s.Handle(context.Background(), []byte(raw)); err != nil {
		t.Fatalf("handle %s: %v", raw, err)
	}
}

func (e *testEnv) loadModel(t *testing.T, s *Session, ft *fakeTransport, extra string) {
	t.Helper()
	handle(t, s, `{"type":"init-model","model_path":"`+e.modelPath+`"`+extra+`}`)
	ft.waitNotice(t, "success", "Model loaded successfully")
	waitState(t, s, StateReady)
}

func waitState(t *testing.T, s *Session, want State) {
	t.Helper()
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %s, want %s", s.State(), want)
}
