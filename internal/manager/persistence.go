package manager

import (
	"strings"

	"fastllamad/internal/common/fsutil"
	"fastllamad/internal/protocol"
	"fastllamad/internal/store"
)

func (s *Session) handleSave(in protocol.SessionSave) {
	if s.m.store == nil {
		s.notifyError(msgSaveFailed)
		return
	}
	ctx, ok := s.admit()
	if !ok {
		return
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = s.msgs.SaveTitle(defaultTitleRunes)
	}
	s.mu.Lock()
	modelPath := s.modelPath
	s.mu.Unlock()

	s.runWorker(StateBusy, func() {
		d, err := store.NewDescriptor(title, modelPath, ctx.Config(), now())
		if err == nil {
			err = s.m.store.Save(d, ctx.SaveState)
		}
		if err != nil {
			persistOps.WithLabelValues("save", "failure").Inc()
			s.log.Error().Err(err).Msg("saving session")
			s.notifyError(msgSaveFailed)
			return
		}
		s.mu.Lock()
		s.activeSave = d.ID
		s.mu.Unlock()
		persistOps.WithLabelValues("save", "success").Inc()
		s.log.Info().Str("save_id", d.ID).Str("title", d.Title).Msg("session saved")
		s.m.publish(Event{Name: EventSessionSaved, SessionID: s.id, Fields: map[string]any{"save_id": d.ID}})
		s.notifySuccess("Session saved successfully")
		s.sendSessionList()
	})
}

func (s *Session) handleLoad(in protocol.SessionLoad) {
	if s.m.store == nil {
		s.notifyError(msgSessionNotFound)
		return
	}
	d, err := s.m.store.Lookup(in.ID)
	if err != nil {
		persistOps.WithLabelValues("load", "rejected").Inc()
		if store.IsNotFound(err) {
			s.notifyError(msgSessionNotFound)
			return
		}
		s.log.Error().Err(err).Msg("looking up session")
		s.notifyError(msgLoadFailed)
		return
	}
	if !s.m.store.Valid(d) {
		persistOps.WithLabelValues("load", "rejected").Inc()
		s.notifyError(msgSessionInvalid)
		return
	}
	ctx, ok := s.engineContext()
	if !ok {
		return
	}
	s.mu.Lock()
	modelPath := s.modelPath
	s.mu.Unlock()
	if !fsutil.SameRealPath(d.ModelPath, modelPath) {
		persistOps.WithLabelValues("load", "rejected").Inc()
		s.notifyError(msgSessionMismatch)
		return
	}
	if _, err := d.Config(); err != nil {
		persistOps.WithLabelValues("load", "rejected").Inc()
		s.log.Warn().Err(err).Str("save_id", d.ID).Msg("saved engine config unreadable")
		s.notifyError(msgSessionInvalid)
		return
	}
	if !s.acquire() {
		s.notifyError(msgModelBusy)
		return
	}
	path := s.m.store.SnapshotPath(d)
	s.runWorker(StateBusy, func() {
		if err := ctx.LoadState(path); err != nil {
			persistOps.WithLabelValues("load", "failure").Inc()
			s.log.Error().Err(err).Str("save_id", d.ID).Msg("loading session")
			s.notifyError(msgLoadFailed)
			return
		}
		s.msgs.Reset()
		s.tracker.Reset()
		s.mu.Lock()
		s.activeSave = d.ID
		s.mu.Unlock()
		persistOps.WithLabelValues("load", "success").Inc()
		s.log.Info().Str("save_id", d.ID).Msg("session loaded")
		s.m.publish(Event{Name: EventSessionLoaded, SessionID: s.id, Fields: map[string]any{"save_id": d.ID}})
		s.notifySuccess("Session loaded successfully")
	})
}

func (s *Session) handleDelete(in protocol.SessionDelete) {
	if s.m.store == nil {
		s.notifyError(msgSessionNotFound)
		return
	}
	if err := s.m.store.Delete(in.ID); err != nil {
		if store.IsNotFound(err) {
			persistOps.WithLabelValues("delete", "rejected").Inc()
			s.notifyError(msgSessionNotFound)
			return
		}
		persistOps.WithLabelValues("delete", "failure").Inc()
		s.log.Error().Err(err).Str("save_id", in.ID).Msg("deleting session")
		s.notifyError("Failed to delete session")
		return
	}
	s.mu.Lock()
	if s.activeSave == in.ID {
		s.activeSave = ""
	}
	s.mu.Unlock()
	persistOps.WithLabelValues("delete", "success").Inc()
	s.m.publish(Event{Name: EventSessionDeleted, SessionID: s.id, Fields: map[string]any{"save_id": in.ID}})
	s.notifySuccess("Session deleted successfully")
	s.sendSessionList()
}

func (s *Session) sendSessionList() {
	saves, err := s.m.ListSaves()
	if err != nil {
		s.log.Error().Err(err).Msg("listing saved sessions")
		s.notifyError("Failed to list sessions")
		return
	}
	s.send(protocol.NewSessionListAck(saves))
}
