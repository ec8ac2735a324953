// Package nativetest provides an in-memory engine for tests.
package nativetest

import (
	"fmt"
	"hash/fnv"
	"os"
	"strings"
	"sync"

	"fastllamad/internal/native"
)

// Engine is a deterministic fake. Exported fields configure failures and
// must be set before contexts are opened.
type Engine struct {
	OpenErr       error
	FailLoad      bool
	FailIngest    bool
	FailGenerate  bool
	FailSave      bool
	FailLoadState bool
	FailAttach    bool
	FailReset     bool
	// Perplexity is returned by every Perplexity call.
	Perplexity float32
	// Chunks, when set, are emitted verbatim by Generate instead of the
	// seeded pseudo tokens.
	Chunks []string
	// Gate, when non-nil, blocks Generate until it is closed or receives.
	Gate chan struct{}
	// Started receives once per Generate call before any token is emitted.
	Started chan struct{}

	mu       sync.Mutex
	backends []*Backend
}

// NewEngine returns a fake engine with a non-negative perplexity.
func NewEngine() *Engine { return &Engine{Perplexity: 4.25} }

// Open implements native.Engine.
func (e *Engine) Open(cfg native.EngineConfig, hooks native.Hooks) (native.Backend, error) {
	if e.OpenErr != nil {
		return nil, e.OpenErr
	}
	b := &Backend{e: e, cfg: cfg, hooks: hooks, calls: map[string]int{}}
	e.mu.Lock()
	e.backends = append(e.backends, b)
	e.mu.Unlock()
	return b, nil
}

// Backends returns every backend opened so far.
func (e *Engine) Backends() []*Backend {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Backend(nil), e.backends...)
}

// Last returns the most recently opened backend or nil.
func (e *Engine) Last() *Backend {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.backends) == 0 {
		return nil
	}
	return e.backends[len(e.backends)-1]
}

// Backend is the fake native context.
type Backend struct {
	e     *Engine
	cfg   native.EngineConfig
	hooks native.Hooks

	mu      sync.Mutex
	model   string
	adapter string
	history []string
	stop    []string
	freed   bool
	calls   map[string]int
}

func (b *Backend) record(op string) {
	b.mu.Lock()
	b.calls[op]++
	b.mu.Unlock()
}

// Calls returns how often op was invoked.
func (b *Backend) Calls(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

// Freed reports whether Free was called.
func (b *Backend) Freed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.freed
}

// History returns the ingested texts in order.
func (b *Backend) History() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.history...)
}

// Adapter returns the attached adapter path.
func (b *Backend) Adapter() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.adapter
}

// StopWords returns the configured stop words.
func (b *Backend) StopWords() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.stop...)
}

// Config returns the config the backend was opened with.
func (b *Backend) Config() native.EngineConfig { return b.cfg }

// EmitLog invokes the registered log hook as the engine would.
func (b *Backend) EmitLog(level native.LogLevel, fn, msg string) {
	if b.hooks.Log != nil {
		b.hooks.Log(level, fn, msg)
	}
}

// EmitProgress invokes the registered progress hook as the engine would.
func (b *Backend) EmitProgress(tag native.ProgressTag, done, total int) {
	if b.hooks.Progress != nil {
		b.hooks.Progress(tag, done, total)
	}
}

func (b *Backend) LoadModel(path string) bool {
	b.record("load_model")
	if b.e.FailLoad {
		b.EmitLog(native.LogError, "load_model", "failed to load "+path)
		return false
	}
	for i := 0; i <= 4; i++ {
		b.EmitProgress(native.ProgressLoad, i, 4)
	}
	b.mu.Lock()
	b.model = path
	b.mu.Unlock()
	b.EmitLog(native.LogInfo, "load_model", "loaded "+path)
	return true
}

func (b *Backend) Ingest(text string) bool {
	b.record("ingest")
	if b.e.FailIngest {
		return false
	}
	b.mu.Lock()
	b.history = append(b.history, text)
	b.mu.Unlock()
	return true
}

func (b *Backend) Generate(p native.SamplingParams, onToken func(string) bool) bool {
	b.record("generate")
	if b.e.Started != nil {
		b.e.Started <- struct{}{}
	}
	if b.e.Gate != nil {
		<-b.e.Gate
	}
	if b.e.FailGenerate {
		return false
	}
	for _, tok := range b.tokens(p) {
		if !onToken(tok) {
			return true
		}
	}
	return true
}

// tokens derives a deterministic sequence from the seed and the history.
func (b *Backend) tokens(p native.SamplingParams) []string {
	if len(b.e.Chunks) > 0 {
		return b.e.Chunks
	}
	b.mu.Lock()
	h := fnv.New64a()
	fmt.Fprintf(h, "%d|%d|%s", b.cfg.Seed, p.Seed, strings.Join(b.history, "\x1f"))
	b.mu.Unlock()
	sum := h.Sum64()
	n := p.NumTokens
	if n <= 0 || n > 8 {
		n = 8
	}
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("t%d ", (sum>>(uint(i)*7))%1000)
	}
	return out
}

func (b *Backend) SetStopWords(words []string) bool {
	b.record("set_stop_words")
	b.mu.Lock()
	b.stop = append([]string(nil), words...)
	b.mu.Unlock()
	return true
}

func (b *Backend) Perplexity(string) float32 {
	b.record("perplexity")
	return b.e.Perplexity
}

func (b *Backend) Embeddings() []float32 {
	b.record("embeddings")
	if !b.cfg.Embeddings {
		return nil
	}
	return []float32{0.25, 0.5, 0.75, 1}
}

func (b *Backend) Logits() (int, []float32) {
	b.record("logits")
	if !b.cfg.LogitsAll {
		return 0, nil
	}
	return 1, []float32{0.1, 0.2, 0.7}
}

func (b *Backend) AttachAdapter(path string) bool {
	b.record("attach_adapter")
	if b.e.FailAttach {
		return false
	}
	b.EmitProgress(native.ProgressAttachAdapter, 1, 1)
	b.mu.Lock()
	b.adapter = path
	b.mu.Unlock()
	return true
}

func (b *Backend) DetachAdapter() bool {
	b.record("detach_adapter")
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.adapter == "" {
		return false
	}
	b.adapter = ""
	return true
}

func (b *Backend) Reset() bool {
	b.record("reset")
	if b.e.FailReset {
		return false
	}
	b.mu.Lock()
	b.history = nil
	b.mu.Unlock()
	return true
}

func (b *Backend) SaveState(path string) bool {
	b.record("save_state")
	if b.e.FailSave {
		return false
	}
	b.mu.Lock()
	data := b.model + "\n" + strings.Join(b.history, "\x1f")
	b.mu.Unlock()
	return os.WriteFile(path, []byte(data), 0o644) == nil
}

func (b *Backend) LoadState(path string) bool {
	b.record("load_state")
	if b.e.FailLoadState {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	_, hist, _ := strings.Cut(string(data), "\n")
	b.mu.Lock()
	b.history = nil
	if hist != "" {
		b.history = strings.Split(hist, "\x1f")
	}
	b.mu.Unlock()
	return true
}

func (b *Backend) Free() {
	b.record("free")
	b.mu.Lock()
	b.freed = true
	b.mu.Unlock()
}
