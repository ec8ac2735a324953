package native

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
)

// Callbacks receive engine log and progress events for one Context.
// They run on whichever goroutine is inside the engine call and must not block.
type Callbacks struct {
	Log      func(level LogLevel, fn, msg string)
	Progress func(tag ProgressTag, done, total int)
}

// Context owns one native engine context. All calls are serialized; Close
// frees the native side exactly once and no callback fires after it returns.
type Context struct {
	cfg     EngineConfig
	backend Backend

	callMu sync.Mutex // one engine call at a time
	closed bool       // guarded by callMu

	cbMu sync.RWMutex
	cb   *Callbacks

	genMu     sync.Mutex
	running   bool // a Generate is inside the engine; guarded by genMu
	interrupt atomic.Bool
	halted    atomic.Bool
	closeOnce sync.Once
}

// CreateContext opens a native context for cfg and registers cb.
func CreateContext(eng Engine, cfg EngineConfig, cb Callbacks) (*Context, error) {
	if eng == nil {
		return nil, ErrDependencyUnavailable("no engine configured")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c := &Context{cfg: cfg, cb: &cb}
	b, err := eng.Open(cfg, Hooks{Log: c.logTrampoline, Progress: c.progressTrampoline})
	if err != nil {
		c.unregister()
		return nil, err
	}
	if b == nil {
		c.unregister()
		return nil, operationError{op: "create context"}
	}
	c.backend = b
	return c, nil
}

func (c *Context) logTrampoline(level LogLevel, fn, msg string) {
	c.cbMu.RLock()
	defer c.cbMu.RUnlock()
	if c.cb != nil && c.cb.Log != nil {
		c.cb.Log(level, fn, msg)
	}
}

func (c *Context) progressTrampoline(tag ProgressTag, done, total int) {
	c.cbMu.RLock()
	defer c.cbMu.RUnlock()
	if c.cb != nil && c.cb.Progress != nil {
		c.cb.Progress(tag, done, total)
	}
}

func (c *Context) unregister() {
	c.cbMu.Lock()
	c.cb = nil
	c.cbMu.Unlock()
}

// Config returns the configuration the context was created with.
func (c *Context) Config() EngineConfig { return c.cfg }

func (c *Context) call(op string, fn func(Backend) bool) error {
	c.callMu.Lock()
	defer c.callMu.Unlock()
	if c.closed {
		return ErrContextClosed
	}
	if !fn(c.backend) {
		return operationError{op: op}
	}
	return nil
}

// LoadModel loads the model weights at path.
func (c *Context) LoadModel(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("model path is empty")
	}
	return c.call("load model", func(b Backend) bool { return b.LoadModel(path) })
}

// Ingest feeds text into the context without sampling.
func (c *Context) Ingest(text string) error {
	if err := ValidateText(text); err != nil {
		return err
	}
	return c.call("ingest", func(b Backend) bool { return b.Ingest(text) })
}

// Generate samples tokens and hands each complete UTF-8 piece to onToken.
// interrupted is true when Interrupt stopped the run early.
func (c *Context) Generate(p SamplingParams, onToken func(string)) (interrupted bool, err error) {
	var asm utf8Assembler
	err = c.call("generate", func(b Backend) bool {
		c.setRunning(true)
		defer c.setRunning(false)
		return b.Generate(p, func(tok string) bool {
			if c.interrupt.Load() || c.halted.Load() {
				interrupted = true
				return false
			}
			if s := asm.Push(tok); s != "" {
				onToken(s)
			}
			return true
		})
	})
	if tail := asm.Flush(); tail != "" && !errors.Is(err, ErrContextClosed) {
		onToken(tail)
	}
	if interrupted && IsOperationFailed(err) {
		err = nil
	}
	return interrupted, err
}

// setRunning marks the start or end of a Generate. Either edge discards a
// pending interrupt so it can only apply to the run it was aimed at.
func (c *Context) setRunning(v bool) {
	c.genMu.Lock()
	c.running = v
	c.interrupt.Store(false)
	c.genMu.Unlock()
}

// Interrupt asks the running Generate to stop at its next token. It reports
// false and does nothing when no Generate is running.
func (c *Context) Interrupt() bool {
	c.genMu.Lock()
	defer c.genMu.Unlock()
	if !c.running {
		return false
	}
	c.interrupt.Store(true)
	return true
}

// Halt stops the running Generate and every later one before its first
// token. Used on teardown.
func (c *Context) Halt() { c.halted.Store(true) }

// SetStopWords replaces the stop sequences used by Generate.
func (c *Context) SetStopWords(words ...string) error {
	for _, w := range words {
		if err := ValidateText(w); err != nil {
			return err
		}
	}
	ws := append([]string(nil), words...)
	return c.call("set stop words", func(b Backend) bool { return b.SetStopWords(ws) })
}

// Perplexity scores text. Negative engine results are reported as errors.
func (c *Context) Perplexity(text string) (float32, error) {
	if err := ValidateText(text); err != nil {
		return 0, err
	}
	var v float32
	err := c.call("perplexity", func(b Backend) bool {
		v = b.Perplexity(text)
		return v >= 0
	})
	return v, err
}

// Embeddings returns a copy of the embedding vector of the last evaluation.
func (c *Context) Embeddings() ([]float32, error) {
	var out []float32
	err := c.call("embeddings", func(b Backend) bool {
		out = copyFloats(b.Embeddings())
		return len(out) > 0
	})
	return out, err
}

// Logits returns a copy of the logits buffer and its row count.
func (c *Context) Logits() (int, []float32, error) {
	var (
		rows int
		out  []float32
	)
	err := c.call("logits", func(b Backend) bool {
		var src []float32
		rows, src = b.Logits()
		out = copyFloats(src)
		return rows > 0 && len(out) > 0
	})
	return rows, out, err
}

// AttachAdapter applies the adapter weights at path.
func (c *Context) AttachAdapter(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("adapter path is empty")
	}
	return c.call("attach adapter", func(b Backend) bool { return b.AttachAdapter(path) })
}

// DetachAdapter removes the attached adapter.
func (c *Context) DetachAdapter() error {
	return c.call("detach adapter", func(b Backend) bool { return b.DetachAdapter() })
}

// Reset clears the evaluated history.
func (c *Context) Reset() error {
	return c.call("reset", func(b Backend) bool { return b.Reset() })
}

// SaveState writes the context state to path.
func (c *Context) SaveState(path string) error {
	return c.call("save state", func(b Backend) bool { return b.SaveState(path) })
}

// LoadState restores a state previously written by SaveState.
func (c *Context) LoadState(path string) error {
	return c.call("load state", func(b Backend) bool { return b.LoadState(path) })
}

// Close interrupts any running generation, waits for it, unregisters the
// callbacks and frees the native context. Safe to call more than once.
func (c *Context) Close() error {
	c.closeOnce.Do(func() {
		c.halted.Store(true)
		c.callMu.Lock()
		defer c.callMu.Unlock()
		c.unregister()
		c.closed = true
		c.backend.Free()
		c.backend = nil
	})
	return nil
}

func copyFloats(src []float32) []float32 {
	if len(src) == 0 {
		return nil
	}
	out := make([]float32, len(src))
	copy(out, src)
	return out
}
