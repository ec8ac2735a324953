package manager

import "github.com/rs/zerolog"

// LogPublisher writes every event as one structured log line.
type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(l zerolog.Logger) *LogPublisher { return &LogPublisher{log: l} }

func (p *LogPublisher) Publish(e Event) {
	z := p.log.Info().Str("event", e.Name)
	if e.SessionID != "" {
		z = z.Str("session_id", e.SessionID)
	}
	if len(e.Fields) > 0 {
		z = z.Fields(e.Fields)
	}
	z.Msg("session event")
}
