package native

// LogLevel is the severity reported by the engine's logging hook.
type LogLevel int

const (
	LogInfo LogLevel = iota
	LogWarn
	LogError
	// LogReset marks the end of a logical log sequence. It carries no text.
	LogReset
)

func (l LogLevel) String() string {
	switch l {
	case LogInfo:
		return "info"
	case LogWarn:
		return "warn"
	case LogError:
		return "error"
	case LogReset:
		return "reset"
	default:
		return "unknown"
	}
}

// Hooks are the callbacks a backend may invoke while one of its calls is running.
// Either field may be nil.
type Hooks struct {
	Log      func(level LogLevel, fn, msg string)
	Progress func(tag ProgressTag, done, total int)
}

// SamplingParams controls a single Generate call.
type SamplingParams struct {
	NumTokens     int
	TopK          int
	TopP          float32
	Temperature   float32
	RepeatPenalty float32
	Seed          int
}

// Engine opens native contexts.
type Engine interface {
	// Open allocates a context for cfg. The hooks stay valid until Free returns.
	Open(cfg EngineConfig, hooks Hooks) (Backend, error)
}

// Backend is a single native context. Every method blocks and none may be
// called concurrently with another on the same Backend. Failures are reported
// the way the engine reports them: false, a negative value or an empty buffer.
type Backend interface {
	LoadModel(path string) bool
	Ingest(text string) bool
	// Generate produces up to p.NumTokens tokens, handing each to onToken.
	// Returning false from onToken stops generation; that is not a failure.
	Generate(p SamplingParams, onToken func(string) bool) bool
	SetStopWords(words []string) bool
	Perplexity(text string) float32
	// Embeddings and Logits return engine-owned memory valid until the next call.
	Embeddings() []float32
	Logits() (rows int, data []float32)
	AttachAdapter(path string) bool
	DetachAdapter() bool
	Reset() bool
	SaveState(path string) bool
	LoadState(path string) bool
	Free()
}
