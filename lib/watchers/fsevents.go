//go:build darwin

package watchers

import (
	"time"

	"github.com/fsnotify/fsevents"

	"git.sr.ht/~rjarry/mailthread/lib/log"
)

func init() {
	RegisterWatcherFactory(newDarwinWatcher)
}

type darwinWatcher struct {
	ch chan *FSEvent
	w  *fsevents.EventStream
}

func newDarwinWatcher() (FSWatcher, error) {
	watcher := &darwinWatcher{
		ch: make(chan *FSEvent),
		w: &fsevents.EventStream{
			Flags:   fsevents.FileEvents | fsevents.WatchRoot,
			Latency: 500 * time.Millisecond,
		},
	}
	return watcher, nil
}

func (w *darwinWatcher) watch() {
	defer log.PanicHandler()
	defer close(w.ch)
	for events := range w.w.Events {
		for _, ev := range events {
			switch {
			case ev.Flags&fsevents.ItemCreated > 0:
				w.ch <- &FSEvent{Operation: FSCreate, Path: ev.Path}
			case ev.Flags&fsevents.ItemRenamed > 0:
				w.ch <- &FSEvent{Operation: FSRename, Path: ev.Path}
			case ev.Flags&fsevents.ItemRemoved > 0:
				w.ch <- &FSEvent{Operation: FSRemove, Path: ev.Path}
			}
		}
	}
}

func (w *darwinWatcher) Configure(root string) error {
	dev, err := fsevents.DeviceForPath(root)
	if err != nil {
		return err
	}
	w.w.Device = dev
	w.w.Paths = []string{root}
	if err := w.w.Start(); err != nil {
		return err
	}
	go w.watch()
	return nil
}

func (w *darwinWatcher) Events() <-chan *FSEvent {
	return w.ch
}

// Add and Remove are no-ops: the stream watches the whole tree below the
// configured root.
func (w *darwinWatcher) Add(p string) error {
	return nil
}

func (w *darwinWatcher) Remove(p string) error {
	return nil
}

func (w *darwinWatcher) Close() error {
	w.w.Stop()
	return nil
}
