package threading

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"git.sr.ht/~rjarry/mailthread/lib/log"
	"git.sr.ht/~rjarry/mailthread/lib/parse"
)

const (
	DefaultWindow   = 10
	DefaultTimespan = 3 * 24 * time.Hour

	// allowance for wrong clocks when looking for follow-ups
	clockSkew = time.Hour
)

var ErrInvalidFolder = errors.New("invalid folder")

// Manager builds threads from the messages of any number of folders. It is
// not safe for concurrent use: every method, including the folder
// callbacks, must be called from the same goroutine.
type Manager struct {
	folders      []Folder
	folderByName map[string]Folder
	nodes        *registry
	delayed      *linkQueue

	newNode  NodeFactory
	newDummy NodeFactory
	window   int
	timespan time.Duration

	cleanupNeeded bool
}

type Option func(*Manager)

// WithWindow bounds the number of messages examined per folder when
// ThreadStart looks for a missing parent. 0 means unbounded.
func WithWindow(n int) Option {
	return func(mgr *Manager) {
		mgr.window = n
	}
}

// WithTimespan bounds how far back in time ThreadStart looks for a missing
// parent. 0 means unbounded.
func WithTimespan(d time.Duration) Option {
	return func(mgr *Manager) {
		mgr.timespan = d
	}
}

func WithNodeFactory(f NodeFactory) Option {
	return func(mgr *Manager) {
		mgr.newNode = f
	}
}

func WithDummyFactory(f NodeFactory) Option {
	return func(mgr *Manager) {
		mgr.newDummy = f
	}
}

func NewManager(opts ...Option) *Manager {
	mgr := &Manager{
		folderByName: make(map[string]Folder),
		nodes:        newRegistry(),
		delayed:      newLinkQueue(),
		newNode:      NewNode,
		newDummy:     NewNode,
		window:       DefaultWindow,
		timespan:     DefaultTimespan,
	}
	for _, opt := range opts {
		opt(mgr)
	}
	return mgr
}

func (mgr *Manager) Window() int {
	return mgr.window
}

func (mgr *Manager) Timespan() time.Duration {
	return mgr.timespan
}

// Folders returns the registered folders in registration order.
func (mgr *Manager) Folders() []Folder {
	return slices.Clone(mgr.folders)
}

// IncludeFolder registers folders and threads every message whose header
// is already loaded. Other messages are threaded when their folder reports
// them through ToBeThreaded. Registering a folder twice is a no-op.
func (mgr *Manager) IncludeFolder(folders ...Folder) error {
	var errs []error
	for i, f := range folders {
		if f == nil || f.Name() == "" {
			errs = append(errs, fmt.Errorf("argument %d: %w", i, ErrInvalidFolder))
			continue
		}
		name := f.Name()
		if _, ok := mgr.folderByName[name]; ok {
			continue
		}
		mgr.folders = append(mgr.folders, f)
		mgr.folderByName[name] = f
		f.AddThreader(mgr)

		count := 0
		for _, m := range f.Messages() {
			if f.IsLoaded(m) {
				mgr.inThread(m)
				count++
			}
		}
		log.Debugf("folder %s included, %d messages threaded", name, count)
	}
	return errors.Join(errs...)
}

// RemoveFolder unregisters folders and takes their loaded messages out of
// the threads. Threads left without any message are pruned by the next
// call to Known.
func (mgr *Manager) RemoveFolder(folders ...Folder) error {
	var errs []error
	for i, f := range folders {
		if f == nil || f.Name() == "" {
			errs = append(errs, fmt.Errorf("argument %d: %w", i, ErrInvalidFolder))
			continue
		}
		name := f.Name()
		registered, ok := mgr.folderByName[name]
		if !ok {
			continue
		}
		delete(mgr.folderByName, name)
		mgr.folders = slices.DeleteFunc(mgr.folders, func(have Folder) bool {
			return have == registered
		})
		registered.RemoveThreader(mgr)

		for _, m := range registered.Messages() {
			if registered.IsLoaded(m) {
				mgr.outThread(m)
			}
		}
		mgr.cleanupNeeded = true
		log.Debugf("folder %s removed", name)
	}
	return errors.Join(errs...)
}

func (mgr *Manager) registered(f Folder) bool {
	if f == nil {
		return false
	}
	_, ok := mgr.folderByName[f.Name()]
	return ok
}

// ToBeThreaded is called by a folder when message headers became
// available.
func (mgr *Manager) ToBeThreaded(f Folder, msgs ...Message) {
	if !mgr.registered(f) {
		return
	}
	for _, m := range msgs {
		mgr.inThread(m)
	}
}

// ToBeUnthreaded is called by a folder when messages are removed from it.
func (mgr *Manager) ToBeUnthreaded(f Folder, msgs ...Message) {
	if !mgr.registered(f) {
		return
	}
	for _, m := range msgs {
		mgr.outThread(m)
	}
	if len(msgs) > 0 {
		mgr.cleanupNeeded = true
	}
}

func (mgr *Manager) inThread(m Message) {
	id := parse.MsgID(m.MessageID())
	if id == "" {
		log.Warnf("message without message-id not threaded")
		return
	}
	node := mgr.nodes.get(id)
	if node == nil {
		node = mgr.newNode(id)
		mgr.nodes.add(node)
	}
	node.AddMessage(m)
	mgr.delayed.push(node, m)
}

func (mgr *Manager) outThread(m Message) {
	id := parse.MsgID(m.MessageID())
	node := mgr.nodes.get(id)
	if node == nil {
		return
	}
	node.RemoveMessage(m)
	mgr.delayed.drop(id, m)
}

// Node returns the node for a message-id, or nil.
func (mgr *Manager) Node(id string) *Node {
	mgr.flush()
	return mgr.nodes.get(parse.MsgID(id))
}

func missingIDs(node *Node) []string {
	var missing []string
	node.Recurse(func(n *Node) bool {
		if n.IsDummy() {
			missing = append(missing, n.id)
		}
		return true
	})
	return missing
}

// Thread returns the node of m with its follow-ups. Registered folders are
// scanned, newest messages first, for the dummies found below the node.
// Dummies that no folder could resolve remain in the returned tree. nil is
// returned when m was never threaded.
func (mgr *Manager) Thread(m Message) *Node {
	// reading the id may load the header and queue its links
	id := parse.MsgID(m.MessageID())
	mgr.flush()
	node := mgr.nodes.get(id)
	if node == nil {
		return nil
	}
	missing := missingIDs(node)
	if len(missing) == 0 {
		return node
	}

	var notBefore time.Time
	if ts := m.Timestamp(); !ts.IsZero() {
		notBefore = ts.Add(-clockSkew)
	}
	for _, f := range mgr.folders {
		res, err := f.ScanForMessages(nil, missing, notBefore, 0)
		if err != nil {
			log.Errorf("folder %s: scan failed: %v", f.Name(), err)
			continue
		}
		log.Tracef("folder %s: scan for %d ids: %s, %d left",
			f.Name(), len(missing), res.Status, len(res.Missing))
		mgr.flush()
		missing = missingIDs(node)
		if len(missing) == 0 {
			break
		}
	}
	return node
}

// ThreadStart walks up from the node of m as far as possible. Whenever
// the parent is a dummy, every folder is asked, within the configured
// window and timespan, for the parent's message. A folder that finds it
// stops the search at that level. The root of the walk is returned.
func (mgr *Manager) ThreadStart(m Message) *Node {
	node := mgr.Thread(m)
	if node == nil {
		return nil
	}
	for {
		parent, _ := node.RepliedTo()
		if parent == nil {
			return node
		}
		if !parent.IsDummy() {
			node = parent
			continue
		}

		anchor := node.Message()
		var notBefore time.Time
		if anchor != nil && mgr.timespan > 0 {
			if ts := anchor.Timestamp(); !ts.IsZero() {
				notBefore = ts.Add(-mgr.timespan)
			}
		}
		wanted := []string{parent.id}
		for _, f := range mgr.folders {
			res, err := f.ScanForMessages(anchor, wanted, notBefore, mgr.window)
			if err != nil {
				log.Errorf("folder %s: scan failed: %v", f.Name(), err)
				continue
			}
			log.Tracef("folder %s: scan for parent %s: %s",
				f.Name(), parent.id, res.Status)
			if res.Status == ScanFound {
				break
			}
		}
		mgr.flush()
		node = parent
	}
}

// Known returns every thread root, dummy roots included.
func (mgr *Manager) Known() []*Node {
	mgr.flush()
	mgr.cleanup()
	var roots []*Node
	mgr.nodes.each(func(n *Node) {
		if n.parent == nil {
			roots = append(roots, n)
		}
	})
	return roots
}

// SortedKnown returns Known sorted with cmp, by StartTimeEstimate when cmp
// is nil.
func (mgr *Manager) SortedKnown(cmp func(a, b *Node) int) []*Node {
	return sortRoots(mgr.Known(), cmp)
}

// All loads every header of every folder before returning the roots. This
// is a full scan of all folders.
func (mgr *Manager) All() []*Node {
	mgr.loadAll()
	return mgr.Known()
}

func (mgr *Manager) SortedAll(cmp func(a, b *Node) int) []*Node {
	mgr.loadAll()
	return mgr.SortedKnown(cmp)
}

func (mgr *Manager) loadAll() {
	for _, f := range mgr.folders {
		if err := f.LoadAll(); err != nil {
			log.Errorf("folder %s: cannot load all headers: %v", f.Name(), err)
		}
	}
}

// cleanup removes the threads that no longer contain any message. It only
// runs after folders or messages were removed.
func (mgr *Manager) cleanup() {
	if !mgr.cleanupNeeded {
		return
	}
	mgr.cleanupNeeded = false

	var roots []*Node
	mgr.nodes.each(func(n *Node) {
		if n.parent == nil {
			roots = append(roots, n)
		}
	})
	pruned := 0
	for _, root := range roots {
		alive := false
		root.Recurse(func(n *Node) bool {
			if !n.IsDummy() {
				alive = true
			}
			return !alive
		})
		if alive {
			continue
		}
		root.Recurse(func(n *Node) bool {
			mgr.nodes.remove(n.id)
			pruned++
			return true
		})
	}
	log.Debugf("cleanup pruned %d nodes, %d left", pruned, mgr.nodes.len())
}
