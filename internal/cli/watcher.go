package cli

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce is how long a file must be quiet before a change is reported.
const debounce = 100 * time.Millisecond

// watcher reports changes to a single file. It watches the file's directory
// so editors that save by rename are still seen.
type watcher struct {
	File    string
	Changes <-chan struct{}

	changes chan struct{}
	done    chan struct{}
	watcher *fsnotify.Watcher
}

func newWatcher(file string) (*watcher, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	ch := make(chan struct{}, 1)
	return &watcher{
		File:    abs,
		Changes: ch,
		changes: ch,
		done:    make(chan struct{}),
		watcher: fw,
	}, nil
}

func (w *watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.File)); err != nil {
		return err
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and waits for its loop to exit.
func (w *watcher) Stop() {
	w.watcher.Close()
	<-w.done
	close(w.changes)
}

func (w *watcher) loop() {
	defer close(w.done)

	var pending time.Time
	ticker := time.NewTicker(debounce)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.File {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				pending = time.Now()
			}

		case <-ticker.C:
			if !pending.IsZero() && time.Since(pending) >= debounce {
				pending = time.Time{}
				w.emit()
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// emit coalesces: a change already waiting to be read covers this one.
func (w *watcher) emit() {
	select {
	case w.changes <- struct{}{}:
	default:
	}
}
