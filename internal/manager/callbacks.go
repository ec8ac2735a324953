package manager

import (
	"github.com/rs/zerolog"

	"fastllamad/internal/message"
	"fastllamad/internal/native"
)

// callbacks returns the engine hooks of this session. They run on the
// worker goroutine inside an engine call; each one only records the event
// and queues its delivery.
func (s *Session) callbacks() native.Callbacks {
	return native.Callbacks{Log: s.onLog, Progress: s.onProgress}
}

func (s *Session) onLog(level native.LogLevel, fn, msg string) {
	var (
		kind message.SystemKind
		lvl  zerolog.Level
	)
	switch level {
	case native.LogReset:
		return
	case native.LogWarn:
		kind, lvl = message.SystemWarning, zerolog.WarnLevel
	case native.LogError:
		kind, lvl = message.SystemError, zerolog.ErrorLevel
	default:
		kind, lvl = message.SystemInfo, zerolog.InfoLevel
	}
	nativeLogs.WithLabelValues(level.String()).Inc()
	s.log.WithLevel(lvl).Str("func", fn).Msg(msg)
	s.send(s.msgs.AddSystem(kind, fn, msg))
}

func (s *Session) onProgress(tag native.ProgressTag, done, total int) {
	if !tag.Valid() {
		tag = native.ProgressUnknown
	}
	s.send(s.tracker.Update(tag, done, total))
}

func (s *Session) onToken(tok string) {
	m, ok := s.msgs.AppendModel(tok)
	if !ok {
		return
	}
	tokensStreamed.Inc()
	s.send(m)
}
