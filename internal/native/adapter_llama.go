//go:build llama

package native

import (
	"strings"

	llama "github.com/go-skynet/go-llama.cpp"
)

// LlamaBuilt reports whether this binary was compiled with real llama support.
const LlamaBuilt = true

type llamaEngine struct{}

// NewLlamaEngine returns the go-llama.cpp backed engine.
func NewLlamaEngine() Engine { return llamaEngine{} }

func (llamaEngine) Open(cfg EngineConfig, hooks Hooks) (Backend, error) {
	return &llamaBackend{cfg: cfg, hooks: hooks}, nil
}

// llamaBackend maps the engine surface onto go-llama.cpp. The binding has no
// separate ingest step, so ingested text is kept and evaluated by the next
// Predict. Adapter changes reload the model.
type llamaBackend struct {
	cfg       EngineConfig
	hooks     Hooks
	model     *llama.LLama
	modelPath string
	adapter   string
	pending   strings.Builder
	lastText  string
	stopWords []string
}

func (b *llamaBackend) log(level LogLevel, fn, msg string) {
	if b.hooks.Log != nil {
		b.hooks.Log(level, fn, msg)
	}
}

func (b *llamaBackend) progress(tag ProgressTag, done, total int) {
	if b.hooks.Progress != nil {
		b.hooks.Progress(tag, done, total)
	}
}

func (b *llamaBackend) modelOptions() []llama.ModelOption {
	mo := []llama.ModelOption{
		llama.SetContext(int(b.cfg.ContextSize)),
		llama.SetNBatch(int(b.cfg.BatchSize)),
		llama.SetModelSeed(int(b.cfg.Seed)),
		llama.SetMMap(b.cfg.UseMmap),
	}
	if b.cfg.UseMlock {
		mo = append(mo, llama.EnableMLock)
	}
	if b.cfg.Embeddings {
		mo = append(mo, llama.EnableEmbeddings)
	}
	if b.adapter != "" {
		mo = append(mo, llama.SetLoraAdapter(b.adapter))
	}
	return mo
}

func (b *llamaBackend) load(tag ProgressTag) bool {
	b.progress(tag, 0, 1)
	m, err := llama.New(b.modelPath, b.modelOptions()...)
	if err != nil {
		b.log(LogError, "load_model", err.Error())
		return false
	}
	if b.model != nil {
		b.model.Free()
	}
	b.model = m
	b.progress(tag, 1, 1)
	return true
}

func (b *llamaBackend) LoadModel(path string) bool {
	b.modelPath = path
	if !b.load(ProgressLoad) {
		return false
	}
	b.log(LogInfo, "load_model", "model loaded from "+path)
	return true
}

func (b *llamaBackend) Ingest(text string) bool {
	if b.model == nil {
		return false
	}
	b.pending.WriteString(text)
	b.lastText = text
	return true
}

func (b *llamaBackend) Generate(p SamplingParams, onToken func(string) bool) bool {
	if b.model == nil {
		return false
	}
	prompt := b.pending.String()
	b.pending.Reset()
	b.model.SetTokenCallback(onToken)
	defer b.model.SetTokenCallback(nil)
	if _, err := b.model.Predict(prompt, b.predictOptions(p)...); err != nil {
		b.log(LogError, "generate", err.Error())
		return false
	}
	return true
}

func (b *llamaBackend) predictOptions(p SamplingParams) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetTokens(max(1, p.NumTokens)),
		llama.SetThreads(max(1, int(b.cfg.Threads))),
		llama.SetTopP(zf(p.TopP, llama.DefaultOptions.TopP)),
		llama.SetTopK(zn(p.TopK, llama.DefaultOptions.TopK)),
		llama.SetTemperature(zf(p.Temperature, llama.DefaultOptions.Temperature)),
		llama.SetPenalty(zf(p.RepeatPenalty, llama.DefaultOptions.Penalty)),
		llama.SetNKeep(int(b.cfg.TokensToKeep)),
	}
	if p.Seed != 0 {
		po = append(po, llama.SetSeed(p.Seed))
	}
	if len(b.stopWords) > 0 {
		po = append(po, llama.SetStopWords(b.stopWords...))
	}
	return po
}

func (b *llamaBackend) SetStopWords(words []string) bool {
	b.stopWords = words
	return true
}

func (b *llamaBackend) Perplexity(string) float32 {
	b.log(LogWarn, "perplexity", "perplexity is not supported by the llama backend")
	return -1
}

func (b *llamaBackend) Embeddings() []float32 {
	if b.model == nil || !b.cfg.Embeddings {
		return nil
	}
	emb, err := b.model.Embeddings(b.lastText, llama.SetThreads(max(1, int(b.cfg.Threads))))
	if err != nil {
		b.log(LogError, "embeddings", err.Error())
		return nil
	}
	return emb
}

func (b *llamaBackend) Logits() (int, []float32) { return 0, nil }

func (b *llamaBackend) AttachAdapter(path string) bool {
	if b.model == nil {
		return false
	}
	prev := b.adapter
	b.adapter = path
	if !b.load(ProgressAttachAdapter) {
		b.adapter = prev
		return false
	}
	return true
}

func (b *llamaBackend) DetachAdapter() bool {
	if b.model == nil || b.adapter == "" {
		return false
	}
	prev := b.adapter
	b.adapter = ""
	if !b.load(ProgressDetachAdapter) {
		b.adapter = prev
		return false
	}
	return true
}

func (b *llamaBackend) Reset() bool {
	if b.model == nil {
		return false
	}
	b.pending.Reset()
	b.lastText = ""
	return b.load(ProgressLoad)
}

func (b *llamaBackend) SaveState(path string) bool {
	if b.model == nil {
		return false
	}
	b.progress(ProgressSave, 0, 1)
	if err := b.model.SaveState(path); err != nil {
		b.log(LogError, "save_state", err.Error())
		return false
	}
	b.progress(ProgressSave, 1, 1)
	return true
}

func (b *llamaBackend) LoadState(path string) bool {
	if b.model == nil {
		return false
	}
	if err := b.model.LoadState(path); err != nil {
		b.log(LogError, "load_state", err.Error())
		return false
	}
	return true
}

func (b *llamaBackend) Free() {
	if b.model != nil {
		b.model.Free()
		b.model = nil
	}
}

func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func zf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}
