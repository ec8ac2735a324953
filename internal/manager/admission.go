package manager

// acquire reserves the single engine slot without waiting. Work arriving
// while the slot is held is rejected rather than queued.
func (s *Session) acquire() bool {
	select {
	case s.slot <- struct{}{}:
		return true
	default:
		busyRejections.Inc()
		return false
	}
}

func (s *Session) release() { <-s.slot }

// runWorker moves the session to state and runs fn on a worker goroutine
// holding the engine slot. The state returns to ready afterwards unless the
// session was closed. It returns false when the session is already closed.
func (s *Session) runWorker(state State, fn func()) bool {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		s.release()
		return false
	}
	s.state = state
	s.workers.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.workers.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().Interface("panic", r).Msg("session worker panicked")
				s.notifyError("Internal error")
			}
			// Ready and a free slot become visible together.
			s.mu.Lock()
			if s.state != StateClosed {
				s.state = StateReady
			}
			s.release()
			s.mu.Unlock()
		}()
		fn()
	}()
	return true
}
