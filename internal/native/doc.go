// Package native is the typed boundary to the text-generation engine.
//
//   - engine.go: Engine/Backend interfaces, Hooks, SamplingParams, LogLevel.
//   - config.go: EngineConfig, defaults and its fixed-layout binary record.
//   - progress.go: ProgressTag enum.
//   - context.go: Context, the owned handle. Serializes calls, routes hooks
//     through trampolines, copies buffers out and frees exactly once.
//   - text.go: text validation and UTF-8 reassembly of token pieces.
//   - errors.go: error types and helpers.
//
// Build tags:
//
//   - `-tags=llama` compiles adapter_llama.go and llama_cgo.go against
//     go-llama.cpp. Without the tag adapter_llama_stub.go provides an engine
//     that returns a dependency-unavailable error.
//
// Tests use the in-memory engine in the nativetest subpackage.
package native
