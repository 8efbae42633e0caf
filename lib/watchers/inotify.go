//go:build !darwin
// +build !darwin

package watchers

import (
	"github.com/fsnotify/fsnotify"

	"git.sr.ht/~rjarry/mailthread/lib/log"
)

func init() {
	RegisterWatcherFactory(newInotifyWatcher)
}

type inotifyWatcher struct {
	w  *fsnotify.Watcher
	ch chan *FSEvent
}

func newInotifyWatcher() (FSWatcher, error) {
	watcher := &inotifyWatcher{
		ch: make(chan *FSEvent),
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	watcher.w = w

	go watcher.watch()
	return watcher, nil
}

func operation(ev fsnotify.Event) (FSOperation, bool) {
	switch {
	case ev.Has(fsnotify.Create):
		return FSCreate, true
	case ev.Has(fsnotify.Remove):
		return FSRemove, true
	case ev.Has(fsnotify.Rename):
		return FSRename, true
	}
	return 0, false
}

func (w *inotifyWatcher) watch() {
	defer log.PanicHandler()
	defer close(w.ch)
	for {
		select {
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}
			op, ok := operation(ev)
			if !ok {
				continue
			}
			w.ch <- &FSEvent{Operation: op, Path: ev.Name}
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			log.Errorf("inotify: %v", err)
		}
	}
}

func (w *inotifyWatcher) Configure(root string) error {
	return w.w.Add(root)
}

func (w *inotifyWatcher) Events() <-chan *FSEvent {
	return w.ch
}

func (w *inotifyWatcher) Add(p string) error {
	return w.w.Add(p)
}

func (w *inotifyWatcher) Remove(p string) error {
	return w.w.Remove(p)
}

func (w *inotifyWatcher) Close() error {
	return w.w.Close()
}
