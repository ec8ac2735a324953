//go:build !llama

package native

// This file is compiled when the 'llama' build tag is NOT set, keeping
// default builds and CI CGO-free. Creating a context fails fast.

// LlamaBuilt reports whether this binary was compiled with real llama support.
const LlamaBuilt = false

type llamaEngine struct{}

// NewLlamaEngine returns an engine that refuses to open contexts.
func NewLlamaEngine() Engine { return llamaEngine{} }

func (llamaEngine) Open(EngineConfig, Hooks) (Backend, error) {
	return nil, ErrDependencyUnavailable("llama support not built (missing 'llama' build tag)")
}
