package manager

import (
	"fmt"
	"time"

	"fastllamad/internal/common/fsutil"
	"fastllamad/internal/filemanager"
	"fastllamad/internal/message"
	"fastllamad/internal/native"
	"fastllamad/internal/protocol"
	"fastllamad/internal/registry"
)

func (s *Session) handleInit(in protocol.Init) error {
	if !protocol.VersionSupported(in.Version) {
		err := unsupportedVersionError{version: in.Version}
		s.log.Warn().Str("version", in.Version).Msg("unsupported protocol version")
		s.notifyError(err.Error())
		return err
	}
	listing, err := s.fileBrowser()
	if err != nil {
		s.log.Warn().Err(err).Msg("workspace unavailable")
		s.notifyWarning(err.Error())
	}
	saves, err := s.m.ListSaves()
	if err != nil {
		s.log.Error().Err(err).Msg("listing saved sessions")
	}
	s.send(protocol.NewInitAck(listing, saves, registry.Paths(s.m.modelsDir)))
	return nil
}

func (s *Session) notifyWarning(msg string) { s.send(protocol.Warning(msg)) }

// fileBrowser returns the listing of the current browser directory,
// creating the browser and its watcher on first use.
func (s *Session) fileBrowser() (filemanager.Listing, error) {
	s.mu.Lock()
	b := s.browser
	s.mu.Unlock()
	if b == nil {
		root := s.m.workspaceDir
		if root == "" {
			root = "."
		}
		nb, err := filemanager.New(root)
		if err != nil {
			return filemanager.Listing{}, err
		}
		s.mu.Lock()
		if s.browser == nil {
			s.browser = nb
		}
		b = s.browser
		s.mu.Unlock()
	}
	l, err := b.List()
	if err != nil {
		return filemanager.Listing{}, err
	}
	s.watch(l.Path)
	return l, nil
}

func (s *Session) handleInitModel(in protocol.InitModel) {
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	switch st {
	case StateClosed:
		s.notifyError(msgSessionClosed)
		return
	case StateUninitialized:
	default:
		s.notifyError(msgAlreadyLoaded)
		return
	}
	if !fsutil.IsFile(in.ModelPath) {
		s.notifyError(fmt.Sprintf("Model file '%s' does not exist", in.ModelPath))
		return
	}
	cfg := in.Config(s.m.engineDefaults)
	if err := cfg.Validate(); err != nil {
		s.notifyError(err.Error())
		return
	}
	if !s.acquire() {
		s.notifyError(msgModelBusy)
		return
	}
	path := in.ModelPath
	s.runWorker(StateModelLoading, func() { s.loadModel(path, cfg) })
}

// loadModel creates the engine context and loads the model. Any failure is
// fatal to the session.
func (s *Session) loadModel(path string, cfg native.EngineConfig) {
	start := time.Now()
	s.m.publish(Event{Name: EventModelLoadStart, SessionID: s.id, Fields: map[string]any{"model_path": path}})
	s.log.Info().Str("model_path", path).Int32("n_ctx", cfg.ContextSize).Int32("n_threads", cfg.Threads).Msg("loading model")

	ctx, err := native.CreateContext(s.m.engine, cfg, s.callbacks())
	if err != nil {
		s.failModel(path, fmt.Sprintf("Failed to create context: %v", err), err)
		return
	}
	if err := ctx.LoadModel(path); err != nil {
		_ = ctx.Close()
		s.failModel(path, "Failed to load model", err)
		return
	}
	if err := ctx.SetStopWords(s.Params().StopWords...); err != nil {
		s.log.Warn().Err(err).Msg("setting stop words")
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		_ = ctx.Close()
		return
	}
	s.ctx = ctx
	s.modelPath = path
	s.mu.Unlock()
	contextsOpen.Inc()

	modelLoads.WithLabelValues("success").Inc()
	modelLoadDuration.Observe(time.Since(start).Seconds())
	s.log.Info().Str("model_path", path).Dur("took", time.Since(start)).Msg("model ready")
	s.m.publish(Event{Name: EventModelLoadReady, SessionID: s.id, Fields: map[string]any{"model_path": path}})
	s.notifySuccess("Model loaded successfully")
}

func (s *Session) failModel(path, msg string, err error) {
	s.setState(StateClosed)
	modelLoads.WithLabelValues("failure").Inc()
	s.m.setErr(err)
	s.log.Error().Err(err).Str("model_path", path).Msg(msg)
	s.m.publish(Event{Name: EventModelLoadFailed, SessionID: s.id, Fields: map[string]any{"model_path": path, "error": err.Error()}})
	s.notifyError(msg)
}

func (s *Session) handleUserMessage(in protocol.UserMessage) {
	ctx, ok := s.admit()
	if !ok {
		return
	}
	// Text the engine cannot take is still logged, as a failed message.
	status := message.StatusLoading
	verr := native.ValidateText(in.Message)
	if verr != nil {
		status = message.StatusFailure
	}
	um := s.msgs.AddUser(in.Title, in.Message, status)
	s.send(protocol.NewMessageAck(in.WebUIID, um.ID))
	s.send(um)
	if verr != nil {
		s.release()
		s.notifyError(verr.Error())
		return
	}

	params := s.Params()
	s.runWorker(StateIngesting, func() { s.respond(ctx, um, params.Prompt(in.Message), params.Sampling()) })
}

// respond ingests prompt and streams the generated answer into a new
// model message.
func (s *Session) respond(ctx *native.Context, um message.UserMessage, prompt string, sp native.SamplingParams) {
	if err := ctx.Ingest(prompt); err != nil {
		s.log.Warn().Err(err).Msg("ingest failed")
		if m, ok := s.msgs.SetUserStatus(um.ID, message.StatusFailure); ok {
			s.send(m)
		}
		generations.WithLabelValues("ingest_failed").Inc()
		return
	}
	if m, ok := s.msgs.SetUserStatus(um.ID, message.StatusSuccess); ok {
		s.send(m)
	}

	s.setState(StateGenerating)
	mm, err := s.msgs.OpenModel(modelTitle)
	if err != nil {
		s.notifyError(err.Error())
		return
	}
	s.send(mm)

	start := time.Now()
	interrupted, err := ctx.Generate(sp, s.onToken)
	status := message.StatusSuccess
	result := "success"
	switch {
	case err != nil:
		status, result = message.StatusFailure, "failure"
		s.log.Warn().Err(err).Msg("generation failed")
	case interrupted:
		result = "interrupted"
	}
	if m, ok := s.msgs.CloseModel(status); ok {
		s.send(m)
	}
	generations.WithLabelValues(result).Inc()
	generationDuration.Observe(time.Since(start).Seconds())
	s.m.publish(Event{Name: EventGenerationDone, SessionID: s.id, Fields: map[string]any{"result": result}})
	if interrupted {
		s.notifyInfo("Generation stopped")
	}
}
