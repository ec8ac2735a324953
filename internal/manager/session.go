package manager

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"fastllamad/internal/bridge"
	"fastllamad/internal/command"
	"fastllamad/internal/filemanager"
	"fastllamad/internal/message"
	"fastllamad/internal/native"
	"fastllamad/internal/protocol"
)

// modelTitle is the title of every model message.
const modelTitle = "LLaMa Model"

// Session serves one client connection. Inbound records are handled on the
// caller's goroutine, engine calls run on worker goroutines and every
// outbound record goes through the session dispatcher.
type Session struct {
	id        string
	m         *Manager
	log       zerolog.Logger
	out       Transport
	disp      *bridge.Dispatcher
	msgs      *message.Log
	tracker   *message.Tracker
	slot      chan struct{}
	connected time.Time
	workers   sync.WaitGroup
	closeOnce sync.Once

	mu         sync.Mutex
	state      State
	ctx        *native.Context
	modelPath  string
	params     command.Params
	activeSave string
	browser    *filemanager.Browser
	watcher    *filemanager.Watcher
}

func newSession(m *Manager, t Transport) *Session {
	id := uuid.NewString()
	log := m.log.With().Str("session_id", id).Logger()
	msgs := message.NewLog()
	s := &Session{
		id:        id,
		m:         m,
		log:       log,
		out:       t,
		disp:      bridge.New(log),
		msgs:      msgs,
		tracker:   message.NewTracker(msgs),
		slot:      make(chan struct{}, 1),
		connected: now(),
		state:     StateUninitialized,
		params:    m.params,
	}
	s.params.StopWords = append([]string(nil), m.params.StopWords...)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns a copy of the conversation log.
func (s *Session) Messages() []message.Message { return s.msgs.Messages() }

// Params returns the current generation parameters.
func (s *Session) Params() command.Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.params
	p.StopWords = append([]string(nil), s.params.StopWords...)
	return p
}

// Snapshot returns a read-only view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		ID:         s.id,
		State:      s.state,
		ModelPath:  s.modelPath,
		ActiveSave: s.activeSave,
	}
	s.mu.Unlock()
	snap.Messages = s.msgs.Len()
	snap.Pending = s.disp.Pending()
	return snap
}

// Handle processes one inbound record. Failures are reported to the client
// as notifications; a non-nil error means the connection must be closed.
func (s *Session) Handle(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	in, err := protocol.Decode(data)
	if err != nil {
		inboundRejected.WithLabelValues("decode").Inc()
		s.log.Debug().Err(err).Msg("inbound rejected")
		s.notifyError(err.Error())
		return nil
	}
	inboundTotal.WithLabelValues(in.InboundType()).Inc()

	if _, isInit := in.(protocol.Init); !isInit && s.State() == StateClosed {
		s.notifyError(msgSessionClosed)
		return nil
	}

	switch v := in.(type) {
	case protocol.Init:
		return s.handleInit(v)
	case protocol.InitModel:
		s.handleInitModel(v)
	case protocol.UserMessage:
		s.handleUserMessage(v)
	case protocol.InvokeCommand:
		s.handleCommand(v)
	case protocol.SessionSave:
		s.handleSave(v)
	case protocol.SessionLoad:
		s.handleLoad(v)
	case protocol.SessionDelete:
		s.handleDelete(v)
	case protocol.SessionList:
		s.sendSessionList()
	case protocol.FileManager:
		s.handleFileManager(v)
	}
	return nil
}

// Close interrupts a running generation, waits for workers, frees the
// engine context and drains pending deliveries. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.state = StateClosed
		ctx := s.ctx
		w := s.watcher
		s.watcher = nil
		s.mu.Unlock()

		if ctx != nil {
			ctx.Halt()
		}
		s.workers.Wait()

		s.mu.Lock()
		ctx = s.ctx
		s.ctx = nil
		s.mu.Unlock()
		if ctx != nil {
			_ = ctx.Close()
			contextsOpen.Dec()
		}
		if w != nil {
			_ = w.Close()
		}
		s.disp.Close()
		s.m.remove(s)
		s.log.Info().Msg("session closed")
	})
}

// send queues v for delivery. Transport failures are logged and dropped.
func (s *Session) send(v any) {
	s.disp.Submit(func() {
		if err := s.out.Send(v); err != nil {
			transportFailures.Inc()
			s.log.Warn().Err(err).Msg("send failed; record dropped")
		}
	})
}

func (s *Session) notifyError(msg string) { s.send(protocol.Error(msg)) }

func (s *Session) notifySuccess(msg string) { s.send(protocol.Success(msg)) }

func (s *Session) notifyInfo(msg string) { s.send(protocol.Info(msg)) }

func (s *Session) setState(st State) {
	s.mu.Lock()
	if s.state != StateClosed {
		s.state = st
	}
	s.mu.Unlock()
}

// engineContext returns the loaded context, or reports why there is none.
func (s *Session) engineContext() (*native.Context, bool) {
	s.mu.Lock()
	ctx, st := s.ctx, s.state
	s.mu.Unlock()
	switch {
	case st == StateClosed:
		s.notifyError(msgSessionClosed)
		return nil, false
	case ctx == nil:
		s.notifyError(msgModelNotLoaded)
		return nil, false
	}
	return ctx, true
}

// admit checks that the model is loaded and reserves the engine slot.
func (s *Session) admit() (*native.Context, bool) {
	ctx, ok := s.engineContext()
	if !ok {
		return nil, false
	}
	if !s.acquire() {
		s.notifyError(msgModelBusy)
		return nil, false
	}
	return ctx, true
}
