package native_test

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"fastllamad/internal/native"
	"fastllamad/internal/native/nativetest"
)

func newTestContext(t *testing.T, eng *nativetest.Engine, cb native.Callbacks) *native.Context {
	t.Helper()
	c, err := native.CreateContext(eng, native.DefaultEngineConfig(), cb)
	if err != nil {
		t.Fatalf("create context: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCreateContextErrors(t *testing.T) {
	if _, err := native.CreateContext(nil, native.DefaultEngineConfig(), native.Callbacks{}); !native.IsDependencyUnavailable(err) {
		t.Fatalf("nil engine: got %v", err)
	}
	eng := nativetest.NewEngine()
	bad := native.DefaultEngineConfig()
	bad.Threads = 0
	if _, err := native.CreateContext(eng, bad, native.Callbacks{}); err == nil {
		t.Fatalf("expected config validation error")
	}
	if len(eng.Backends()) != 0 {
		t.Fatalf("invalid config must not reach the engine")
	}
	eng.OpenErr = errors.New("out of memory")
	if _, err := native.CreateContext(eng, native.DefaultEngineConfig(), native.Callbacks{}); err == nil {
		t.Fatalf("expected open error")
	}
}

func TestNoCallbackAfterClose(t *testing.T) {
	eng := nativetest.NewEngine()
	var logs, progress atomic.Int32
	c := newTestContext(t, eng, native.Callbacks{
		Log:      func(native.LogLevel, string, string) { logs.Add(1) },
		Progress: func(native.ProgressTag, int, int) { progress.Add(1) },
	})
	if err := c.LoadModel("/models/x.bin"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if logs.Load() == 0 || progress.Load() == 0 {
		t.Fatalf("expected callbacks during load: logs=%d progress=%d", logs.Load(), progress.Load())
	}
	b := eng.Last()
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	beforeLogs, beforeProgress := logs.Load(), progress.Load()
	b.EmitLog(native.LogInfo, "late", "after free")
	b.EmitProgress(native.ProgressLoad, 1, 2)
	if logs.Load() != beforeLogs || progress.Load() != beforeProgress {
		t.Fatalf("callback fired after close")
	}
	if !b.Freed() {
		t.Fatalf("backend not freed")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if n := b.Calls("free"); n != 1 {
		t.Fatalf("free called %d times, want 1", n)
	}
	if err := c.Ingest("x"); !errors.Is(err, native.ErrContextClosed) {
		t.Fatalf("ingest after close: %v", err)
	}
}

func TestIngestRejectsBadTextWithoutEngineCall(t *testing.T) {
	eng := nativetest.NewEngine()
	c := newTestContext(t, eng, native.Callbacks{})
	if err := c.Ingest("bad\x00text"); !native.IsInvalidText(err) {
		t.Fatalf("expected invalid text, got %v", err)
	}
	if n := eng.Last().Calls("ingest"); n != 0 {
		t.Fatalf("engine ingest called %d times", n)
	}
}

func TestOperationFailuresAreErrors(t *testing.T) {
	eng := nativetest.NewEngine()
	eng.FailIngest = true
	eng.Perplexity = -1
	c := newTestContext(t, eng, native.Callbacks{})
	if err := c.Ingest("hello"); !native.IsOperationFailed(err) {
		t.Fatalf("ingest: %v", err)
	}
	if _, err := c.Perplexity("hello"); !native.IsOperationFailed(err) {
		t.Fatalf("perplexity: %v", err)
	}
	if _, err := c.Embeddings(); !native.IsOperationFailed(err) {
		t.Fatalf("embeddings without embedding mode: %v", err)
	}
	if _, _, err := c.Logits(); !native.IsOperationFailed(err) {
		t.Fatalf("logits without logits_all: %v", err)
	}
}

func TestGenerateReassemblesAndInterrupts(t *testing.T) {
	eng := nativetest.NewEngine()
	eng.Chunks = []string{"h\xc3", "\xa9llo", " w", "orld"}
	c := newTestContext(t, eng, native.Callbacks{})
	var sb strings.Builder
	interrupted, err := c.Generate(native.SamplingParams{NumTokens: 10}, func(s string) { sb.WriteString(s) })
	if err != nil || interrupted {
		t.Fatalf("generate: interrupted=%v err=%v", interrupted, err)
	}
	if sb.String() != "héllo world" {
		t.Fatalf("got %q", sb.String())
	}

	eng.Gate = make(chan struct{})
	eng.Started = make(chan struct{}, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	var gotInterrupted bool
	var got strings.Builder
	go func() {
		defer wg.Done()
		gotInterrupted, err = c.Generate(native.SamplingParams{NumTokens: 10}, func(s string) { got.WriteString(s) })
	}()
	<-eng.Started
	if !c.Interrupt() {
		t.Fatalf("interrupt rejected during generation")
	}
	close(eng.Gate)
	wg.Wait()
	if err != nil || !gotInterrupted {
		t.Fatalf("interrupt: interrupted=%v err=%v", gotInterrupted, err)
	}
	if got.Len() != 0 {
		t.Fatalf("tokens delivered after interrupt: %q", got.String())
	}
	// The interrupt is one-shot.
	eng.Gate = nil
	eng.Started = nil
	interrupted, err = c.Generate(native.SamplingParams{NumTokens: 10}, func(string) {})
	if err != nil || interrupted {
		t.Fatalf("next generate: interrupted=%v err=%v", interrupted, err)
	}
}

func TestBuffersAreCopied(t *testing.T) {
	eng := nativetest.NewEngine()
	cfg := native.DefaultEngineConfig()
	cfg.Embeddings = true
	cfg.LogitsAll = true
	c, err := native.CreateContext(eng, cfg, native.Callbacks{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer c.Close()
	emb, err := c.Embeddings()
	if err != nil || len(emb) != 4 {
		t.Fatalf("embeddings: %v %v", emb, err)
	}
	emb[0] = 99
	again, _ := c.Embeddings()
	if again[0] == 99 {
		t.Fatalf("embeddings share memory with the engine")
	}
	rows, logits, err := c.Logits()
	if err != nil || rows != 1 || len(logits) != 3 {
		t.Fatalf("logits: rows=%d %v %v", rows, logits, err)
	}
}

func TestSaveLoadStateRestoresHistory(t *testing.T) {
	eng := nativetest.NewEngine()
	c := newTestContext(t, eng, native.Callbacks{})
	if err := c.LoadModel("/m.bin"); err != nil {
		t.Fatalf("load: %v", err)
	}
	_ = c.Ingest("first")
	p := filepath.Join(t.TempDir(), "s.bin")
	if err := c.SaveState(p); err != nil {
		t.Fatalf("save: %v", err)
	}
	_ = c.Ingest("second")
	if err := c.LoadState(p); err != nil {
		t.Fatalf("load state: %v", err)
	}
	if h := eng.Last().History(); len(h) != 1 || h[0] != "first" {
		t.Fatalf("history after load = %v", h)
	}
}

func TestInterruptWithoutGenerationIsIgnored(t *testing.T) {
	eng := nativetest.NewEngine()
	c := newTestContext(t, eng, native.Callbacks{})
	if c.Interrupt() {
		t.Fatalf("interrupt accepted with nothing running")
	}
	var sb strings.Builder
	interrupted, err := c.Generate(native.SamplingParams{NumTokens: 3}, func(s string) { sb.WriteString(s) })
	if err != nil || interrupted || sb.Len() == 0 {
		t.Fatalf("generate after idle interrupt: interrupted=%v err=%v out=%q", interrupted, err, sb.String())
	}
}

func TestHaltStopsLaterGenerations(t *testing.T) {
	eng := nativetest.NewEngine()
	c := newTestContext(t, eng, native.Callbacks{})
	c.Halt()
	var sb strings.Builder
	interrupted, err := c.Generate(native.SamplingParams{NumTokens: 3}, func(s string) { sb.WriteString(s) })
	if err != nil || !interrupted || sb.Len() != 0 {
		t.Fatalf("generate after halt: interrupted=%v err=%v out=%q", interrupted, err, sb.String())
	}
}
