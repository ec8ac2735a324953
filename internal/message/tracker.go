package message

import (
	"sync"

	"fastllamad/internal/native"
)

// Tracker keeps one progress system message per in-flight progress tag.
type Tracker struct {
	mu     sync.Mutex
	log    *Log
	active map[native.ProgressTag]string
}

// NewTracker returns a tracker whose messages are appended to log.
func NewTracker(log *Log) *Tracker {
	return &Tracker{log: log, active: map[native.ProgressTag]string{}}
}

// Update records done/total for tag and returns the message to send.
// The entry is dropped once it reaches 100%; total <= 0 counts as complete.
func (t *Tracker) Update(tag native.ProgressTag, done, total int) SystemMessage {
	pct := 100.0
	if total > 0 {
		pct = float64(done) / float64(total) * 100
		if pct > 100 {
			pct = 100
		}
		if pct < 0 {
			pct = 0
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.active[tag]
	if !ok {
		m := t.log.AddSystem(SystemProgress, tag.String(), progressText(tag))
		id = m.ID
		t.active[tag] = id
	}
	m, _ := t.log.SetProgress(id, pct)
	if pct >= 100 {
		delete(t.active, tag)
	}
	return m
}

// Active returns the number of tags with progress in flight.
func (t *Tracker) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}

// Reset forgets all in-flight progress.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.active = map[native.ProgressTag]string{}
	t.mu.Unlock()
}

func progressText(tag native.ProgressTag) string {
	switch tag {
	case native.ProgressInit:
		return "initializing"
	case native.ProgressLoad:
		return "loading model"
	case native.ProgressSave:
		return "saving session"
	case native.ProgressIngest:
		return "ingesting prompt"
	case native.ProgressAttachAdapter:
		return "attaching adapter"
	case native.ProgressDetachAdapter:
		return "detaching adapter"
	default:
		return "working"
	}
}
