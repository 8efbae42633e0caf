package watchers

import (
	"fmt"
	"runtime"
)

// FSWatcher reports files being created, removed or renamed below the
// directories it watches.
type FSWatcher interface {
	// Configure starts watching root.
	Configure(root string) error
	Events() <-chan *FSEvent
	// Adds a directory or file to the watcher
	Add(string) error
	// Removes a directory or file from the watcher
	Remove(string) error
	// Close stops the watcher and closes the events channel.
	Close() error
}

type FSOperation int

const (
	FSCreate FSOperation = iota
	FSRemove
	FSRename
)

func (op FSOperation) String() string {
	switch op {
	case FSCreate:
		return "create"
	case FSRemove:
		return "remove"
	case FSRename:
		return "rename"
	}
	return fmt.Sprintf("FSOperation(%d)", int(op))
}

type FSEvent struct {
	Operation FSOperation
	Path      string
}

func (ev *FSEvent) String() string {
	return fmt.Sprintf("%s %s", ev.Operation, ev.Path)
}

type WatcherFactoryFunc func() (FSWatcher, error)

var watcherFactory WatcherFactoryFunc

func RegisterWatcherFactory(fn WatcherFactoryFunc) {
	watcherFactory = fn
}

func NewWatcher() (FSWatcher, error) {
	if watcherFactory == nil {
		return nil, fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}
	return watcherFactory()
}
