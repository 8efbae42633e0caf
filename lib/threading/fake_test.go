package threading_test

import (
	"errors"
	"fmt"
	"time"

	"git.sr.ht/~rjarry/mailthread/lib/threading"
)

var epoch = time.Date(2023, time.March, 1, 12, 0, 0, 0, time.UTC)

type fakeMessage struct {
	id    string
	date  time.Time
	irt   string
	refs  string
	reads int
	err   error
}

func (m *fakeMessage) MessageID() string    { return m.id }
func (m *fakeMessage) Timestamp() time.Time { return m.date }
func (m *fakeMessage) String() string       { return m.id }

func (m *fakeMessage) ReplyHeaders() (string, string, error) {
	m.reads++
	if m.err != nil {
		return "", "", m.err
	}
	return m.irt, m.refs, nil
}

// msg builds a message dated hours after epoch. parents are given from the
// oldest ancestor to the direct parent. The last one is also used for
// In-Reply-To.
func msg(id string, hours int, parents ...string) *fakeMessage {
	m := &fakeMessage{id: id, date: epoch.Add(time.Duration(hours) * time.Hour)}
	for _, p := range parents {
		m.refs += fmt.Sprintf("<%s> ", p)
	}
	if len(parents) > 0 {
		m.irt = "<" + parents[len(parents)-1] + ">"
	}
	return m
}

type fakeFolder struct {
	name      string
	msgs      []*fakeMessage
	loaded    map[*fakeMessage]bool
	threaders []threading.Threader
	scans     int
	examined  int
	err       error
}

// newFolder returns a folder whose messages are all delayed.
func newFolder(name string, msgs ...*fakeMessage) *fakeFolder {
	return &fakeFolder{
		name:   name,
		msgs:   msgs,
		loaded: make(map[*fakeMessage]bool),
	}
}

// newLoadedFolder returns a folder whose messages are all loaded.
func newLoadedFolder(name string, msgs ...*fakeMessage) *fakeFolder {
	f := newFolder(name, msgs...)
	for _, m := range msgs {
		f.loaded[m] = true
	}
	return f
}

func (f *fakeFolder) Name() string { return f.name }

func (f *fakeFolder) Messages() []threading.Message {
	msgs := make([]threading.Message, 0, len(f.msgs))
	for _, m := range f.msgs {
		msgs = append(msgs, m)
	}
	return msgs
}

func (f *fakeFolder) IsLoaded(m threading.Message) bool {
	fm, ok := m.(*fakeMessage)
	return ok && f.loaded[fm]
}

func (f *fakeFolder) load(m *fakeMessage) {
	if f.loaded[m] {
		return
	}
	f.loaded[m] = true
	for _, t := range f.threaders {
		t.ToBeThreaded(f, m)
	}
}

func (f *fakeFolder) append(m *fakeMessage) {
	f.msgs = append(f.msgs, m)
	f.load(m)
}

func (f *fakeFolder) remove(m *fakeMessage) {
	for i, have := range f.msgs {
		if have == m {
			f.msgs = append(f.msgs[:i], f.msgs[i+1:]...)
			break
		}
	}
	if f.loaded[m] {
		delete(f.loaded, m)
		for _, t := range f.threaders {
			t.ToBeUnthreaded(f, m)
		}
	}
}

func (f *fakeFolder) ScanForMessages(
	anchor threading.Message, ids []string, notBefore time.Time, max int,
) (threading.ScanResult, error) {
	f.scans++
	if f.err != nil {
		return threading.ScanResult{}, f.err
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	start := len(f.msgs) - 1
	if anchor != nil {
		for i, m := range f.msgs {
			if threading.Message(m) == anchor {
				start = i - 1
				break
			}
		}
	}
	status := threading.ScanExhausted
	examined := 0
	for i := start; i >= 0 && len(wanted) > 0; i-- {
		m := f.msgs[i]
		if max > 0 && examined >= max {
			status = threading.ScanBounded
			break
		}
		if !notBefore.IsZero() && m.date.Before(notBefore) {
			status = threading.ScanBounded
			break
		}
		examined++
		f.load(m)
		delete(wanted, m.id)
	}
	f.examined += examined

	var res threading.ScanResult
	for _, id := range ids {
		if wanted[id] {
			res.Missing = append(res.Missing, id)
		}
	}
	res.Status = status
	if len(res.Missing) == 0 {
		res.Status = threading.ScanFound
	}
	return res, nil
}

func (f *fakeFolder) LoadAll() error {
	if f.err != nil {
		return f.err
	}
	for _, m := range f.msgs {
		f.load(m)
	}
	return nil
}

func (f *fakeFolder) AddThreader(t threading.Threader) {
	f.threaders = append(f.threaders, t)
}

func (f *fakeFolder) RemoveThreader(t threading.Threader) {
	for i, have := range f.threaders {
		if have == t {
			f.threaders = append(f.threaders[:i], f.threaders[i+1:]...)
			return
		}
	}
}

var errBroken = errors.New("broken folder")

// parentOf returns the id of the parent of id and the link kind, "" for
// a root.
func parentOf(mgr *threading.Manager, id string) (string, threading.LinkKind) {
	n := mgr.Node(id)
	if n == nil {
		return "", threading.LinkNone
	}
	p, kind := n.RepliedTo()
	if p == nil {
		return "", kind
	}
	return p.MessageID(), kind
}

func rootIDs(roots []*threading.Node) []string {
	ids := make([]string, 0, len(roots))
	for _, r := range roots {
		ids = append(ids, r.MessageID())
	}
	return ids
}
