package message

import (
	"errors"
	"sync"
)

// ErrModelMessageOpen is returned when a second model message is opened.
var ErrModelMessageOpen = errors.New("a model message is already being generated")

// Log is the append-only, ordered conversation of one session.
// At most one ModelMessage is open at a time. Readers receive copies.
type Log struct {
	mu      sync.Mutex
	entries []Message // *SystemMessage, *UserMessage or *ModelMessage
	byID    map[string]Message
	open    *ModelMessage
}

// NewLog returns an empty log.
func NewLog() *Log { return &Log{byID: map[string]Message{}} }

func (l *Log) add(m Message) {
	l.entries = append(l.entries, m)
	l.byID[m.MessageID()] = m
}

// AddSystem appends a system message.
func (l *Log) AddSystem(kind SystemKind, fn, text string) SystemMessage {
	m := &SystemMessage{ID: NewID(), Kind: kind, FunctionName: fn, Text: text}
	l.mu.Lock()
	l.add(m)
	l.mu.Unlock()
	return *m
}

// SetProgress updates a progress system message and returns its snapshot.
func (l *Log) SetProgress(id string, pct float64) (SystemMessage, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.byID[id].(*SystemMessage)
	if !ok {
		return SystemMessage{}, false
	}
	m.Progress = pct
	return *m, true
}

// AddUser appends a user message.
func (l *Log) AddUser(title, text string, status StatusKind) UserMessage {
	m := &UserMessage{Conversation{ID: NewID(), Title: title, Text: text, Status: status}}
	l.mu.Lock()
	l.add(m)
	l.mu.Unlock()
	return *m
}

// SetUserStatus moves a user message to status.
func (l *Log) SetUserStatus(id string, status StatusKind) (UserMessage, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.byID[id].(*UserMessage)
	if !ok {
		return UserMessage{}, false
	}
	m.Status = status
	return *m, true
}

// OpenModel appends a loading model message. It fails while another is open.
func (l *Log) OpenModel(title string) (ModelMessage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.open != nil {
		return ModelMessage{}, ErrModelMessageOpen
	}
	m := &ModelMessage{Conversation{ID: NewID(), Title: title, Status: StatusLoading}}
	l.add(m)
	l.open = m
	return *m, nil
}

// AppendModel appends text to the open model message.
func (l *Log) AppendModel(text string) (ModelMessage, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.open == nil {
		return ModelMessage{}, false
	}
	l.open.Text += text
	return *l.open, true
}

// CloseModel finalizes the open model message with status.
func (l *Log) CloseModel(status StatusKind) (ModelMessage, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.open == nil {
		return ModelMessage{}, false
	}
	l.open.Status = status
	m := *l.open
	l.open = nil
	return m, true
}

// HasOpenModel reports whether a model message is being generated.
func (l *Log) HasOpenModel() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open != nil
}

// Messages returns a copy of the log in insertion order.
func (l *Log) Messages() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Message, 0, len(l.entries))
	for _, e := range l.entries {
		switch m := e.(type) {
		case *SystemMessage:
			out = append(out, *m)
		case *UserMessage:
			out = append(out, *m)
		case *ModelMessage:
			out = append(out, *m)
		}
	}
	return out
}

// Len returns the number of messages.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Reset drops every message and the open model message.
func (l *Log) Reset() {
	l.mu.Lock()
	l.entries = nil
	l.byID = map[string]Message{}
	l.open = nil
	l.mu.Unlock()
}

// SaveTitle returns the first user message cut to size runes, or "".
func (l *Log) SaveTitle(size int) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if m, ok := e.(*UserMessage); ok {
			r := []rune(m.Text)
			if len(r) > size {
				r = r[:size]
			}
			return string(r)
		}
	}
	return ""
}
