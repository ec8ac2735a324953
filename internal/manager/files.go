package manager

import (
	"fastllamad/internal/filemanager"
	"fastllamad/internal/protocol"
)

func (s *Session) handleFileManager(in protocol.FileManager) {
	if _, err := s.fileBrowser(); err != nil {
		s.notifyError(err.Error())
		return
	}
	s.mu.Lock()
	b := s.browser
	s.mu.Unlock()

	var (
		l   filemanager.Listing
		err error
	)
	switch in.Kind {
	case protocol.FileOpenDir:
		l, err = b.OpenDir(in.Path)
	case protocol.FileGoBack:
		l, err = b.GoBack()
	}
	if err != nil {
		s.notifyError(err.Error())
		return
	}
	s.watch(l.Path)
	s.send(protocol.NewFileManagerAck(l))
}

// watch points the session's directory watcher at dir. Changes push a fresh
// listing to the client.
func (s *Session) watch(dir string) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	w := s.watcher
	if w == nil {
		nw, err := filemanager.NewWatcher(s.pushListing, s.log)
		if err != nil {
			s.mu.Unlock()
			s.log.Warn().Err(err).Msg("directory watcher unavailable")
			return
		}
		s.watcher, w = nw, nw
	}
	s.mu.Unlock()
	if err := w.Watch(dir); err != nil {
		s.log.Warn().Err(err).Str("dir", dir).Msg("watching directory")
	}
}

func (s *Session) pushListing() {
	s.mu.Lock()
	b := s.browser
	s.mu.Unlock()
	if b == nil {
		return
	}
	l, err := b.List()
	if err != nil {
		s.log.Debug().Err(err).Msg("refreshing listing")
		return
	}
	s.send(protocol.NewFileManagerAck(l))
}
