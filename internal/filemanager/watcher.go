package filemanager

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const watchDebounce = 100 * time.Millisecond

// Watcher calls onChange when the watched directory changes. Bursts of
// events are coalesced into one call.
type Watcher struct {
	fs       *fsnotify.Watcher
	onChange func()
	log      zerolog.Logger

	mu    sync.Mutex
	dir   string
	timer *time.Timer
	done  chan struct{}
}

// NewWatcher starts the event loop. Close must be called to stop it.
func NewWatcher(onChange func(), log zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{fs: fw, onChange: onChange, log: log, done: make(chan struct{})}
	go w.loop()
	return w, nil
}

// Watch switches the watch to dir.
func (w *Watcher) Watch(dir string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dir == dir {
		return nil
	}
	if w.dir != "" {
		_ = w.fs.Remove(w.dir)
	}
	if err := w.fs.Add(dir); err != nil {
		w.dir = ""
		return err
	}
	w.dir = dir
	return nil
}

// Close stops the watcher. No onChange call starts after Close returns.
func (w *Watcher) Close() error {
	err := w.fs.Close()
	<-w.done
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.onChange = nil
	w.mu.Unlock()
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("file watch error")
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(watchDebounce, func() {
		w.mu.Lock()
		fn := w.onChange
		w.mu.Unlock()
		if fn != nil {
			fn()
		}
	})
}
