package lib

import (
	"fmt"
	"slices"
	"time"

	"git.sr.ht/~rjarry/mailthread/lib/log"
	"git.sr.ht/~rjarry/mailthread/lib/parse"
	"git.sr.ht/~rjarry/mailthread/lib/threading"
	"git.sr.ht/~rjarry/mailthread/models"
)

// number of delayed headers requested at once from a BatchSource while
// scanning
const scanBatch = 50

// HeaderSource reads message headers from a backing store.
type HeaderSource interface {
	ReadHeader(key string) (*models.Envelope, error)
}

// BatchSource is a HeaderSource that can read many headers in one round
// trip. Keys missing from the returned map could not be read.
type BatchSource interface {
	HeaderSource
	ReadHeaders(keys []string) (map[string]*models.Envelope, error)
}

// Message is a handle to one message of a Folder. Its header is either
// delayed (only the key and internal date are known) or loaded.
type Message struct {
	folder *Folder
	info   models.MessageInfo
	state  models.HeaderState
}

func (m *Message) Key() string {
	return m.info.Key
}

func (m *Message) State() models.HeaderState {
	return m.state
}

// Info returns what is known about the message. The envelope is nil while
// the header is delayed.
func (m *Message) Info() *models.MessageInfo {
	return &m.info
}

// EnsureLoaded reads the header if it is still delayed. Threaders of the
// folder are notified when it succeeds. A failed read is not retried.
func (m *Message) EnsureLoaded() error {
	if m.state == models.Loaded || m.info.Error != nil {
		return m.info.Error
	}
	m.folder.load([]*Message{m})
	return m.info.Error
}

func (m *Message) MessageID() string {
	if err := m.EnsureLoaded(); err != nil {
		return ""
	}
	return m.info.Envelope.MessageId
}

// Timestamp does not force a header load. The internal date is used
// until the header is known.
func (m *Message) Timestamp() time.Time {
	return m.info.Date()
}

func (m *Message) ReplyHeaders() (string, string, error) {
	if err := m.EnsureLoaded(); err != nil {
		return "", "", err
	}
	return m.info.Envelope.InReplyTo, m.info.Envelope.References, nil
}

func (m *Message) String() string {
	return fmt.Sprintf("%s/%s", m.folder.name, m.info.Key)
}

// Folder implements threading.Folder over a list of message handles kept
// oldest first, reading headers on demand from a HeaderSource.
type Folder struct {
	name      string
	source    HeaderSource
	messages  []*Message
	byKey     map[string]*Message
	threaders []threading.Threader
	loaded    int
}

func NewFolder(name string, source HeaderSource) *Folder {
	return &Folder{
		name:   name,
		source: source,
		byKey:  make(map[string]*Message),
	}
}

func (f *Folder) Name() string {
	return f.name
}

func (f *Folder) Messages() []threading.Message {
	msgs := make([]threading.Message, 0, len(f.messages))
	for _, m := range f.messages {
		msgs = append(msgs, m)
	}
	return msgs
}

// Handles returns the message handles, oldest first.
func (f *Folder) Handles() []*Message {
	return slices.Clone(f.messages)
}

// Lookup returns the handle for key, or nil.
func (f *Folder) Lookup(key string) *Message {
	return f.byKey[key]
}

func (f *Folder) Info() *models.DirectoryInfo {
	return &models.DirectoryInfo{
		Name:   f.name,
		Exists: len(f.messages),
		Loaded: f.loaded,
	}
}

func (f *Folder) own(m threading.Message) (*Message, bool) {
	msg, ok := m.(*Message)
	if !ok || msg.folder != f {
		return nil, false
	}
	return msg, true
}

func (f *Folder) IsLoaded(m threading.Message) bool {
	msg, ok := f.own(m)
	return ok && msg.state == models.Loaded
}

func (f *Folder) AddThreader(t threading.Threader) {
	if slices.Contains(f.threaders, t) {
		return
	}
	f.threaders = append(f.threaders, t)
}

func (f *Folder) RemoveThreader(t threading.Threader) {
	f.threaders = slices.DeleteFunc(f.threaders, func(have threading.Threader) bool {
		return have == t
	})
}

func (f *Folder) notify(loaded []*Message) {
	if len(loaded) == 0 || len(f.threaders) == 0 {
		return
	}
	msgs := make([]threading.Message, 0, len(loaded))
	for _, m := range loaded {
		msgs = append(msgs, m)
	}
	for _, t := range slices.Clone(f.threaders) {
		t.ToBeThreaded(f, msgs...)
	}
}

// Append adds messages to the folder. Infos carrying an envelope are
// resident right away and reported to the threaders. Keys already present
// are ignored.
func (f *Folder) Append(infos ...*models.MessageInfo) []*Message {
	var added, loaded []*Message
	for _, info := range infos {
		if _, ok := f.byKey[info.Key]; ok {
			continue
		}
		m := &Message{folder: f, info: *info, state: models.Delayed}
		if info.Envelope != nil {
			f.setEnvelope(m, info.Envelope)
			loaded = append(loaded, m)
		}
		f.insert(m)
		added = append(added, m)
	}
	f.notify(loaded)
	return added
}

// insert keeps messages ordered by date. Messages without a date and ties
// keep their arrival order.
func (f *Folder) insert(m *Message) {
	f.byKey[m.info.Key] = m
	ts := m.Timestamp()
	i := len(f.messages)
	if !ts.IsZero() {
		for i > 0 {
			prev := f.messages[i-1].Timestamp()
			if prev.IsZero() || !prev.After(ts) {
				break
			}
			i--
		}
	}
	f.messages = slices.Insert(f.messages, i, m)
}

// Remove drops messages by key. Loaded ones are reported to the threaders.
func (f *Folder) Remove(keys ...string) {
	var removed []threading.Message
	for _, key := range keys {
		m, ok := f.byKey[key]
		if !ok {
			continue
		}
		delete(f.byKey, key)
		f.messages = slices.DeleteFunc(f.messages, func(have *Message) bool {
			return have == m
		})
		if m.state == models.Loaded {
			f.loaded--
			removed = append(removed, m)
		}
	}
	if len(removed) == 0 {
		return
	}
	for _, t := range slices.Clone(f.threaders) {
		t.ToBeUnthreaded(f, removed...)
	}
}

func (f *Folder) setEnvelope(m *Message, env *models.Envelope) {
	if env.MessageId == "" {
		env.MessageId = fmt.Sprintf("%s@%s", m.info.Key, f.name)
	}
	m.info.Envelope = env
	m.info.Error = nil
	m.state = models.Loaded
	f.loaded++
}

// load reads the delayed headers of msgs and notifies the threaders.
func (f *Folder) load(msgs []*Message) {
	var delayed []*Message
	for _, m := range msgs {
		if m.state == models.Delayed && m.info.Error == nil {
			delayed = append(delayed, m)
		}
	}
	if len(delayed) == 0 {
		return
	}

	var loaded []*Message
	batch, ok := f.source.(BatchSource)
	if ok && len(delayed) > 1 {
		keys := make([]string, 0, len(delayed))
		for _, m := range delayed {
			keys = append(keys, m.info.Key)
		}
		envs, err := batch.ReadHeaders(keys)
		if err != nil {
			log.Errorf("%s: cannot read %d headers: %v", f.name, len(keys), err)
		}
		for _, m := range delayed {
			env, found := envs[m.info.Key]
			switch {
			case found && env != nil:
				f.setEnvelope(m, env)
				loaded = append(loaded, m)
			case err != nil:
				m.info.Error = err
			default:
				m.info.Error = fmt.Errorf("%s: header not returned", m.info.Key)
			}
		}
	} else {
		for _, m := range delayed {
			env, err := f.source.ReadHeader(m.info.Key)
			if err != nil {
				log.Warnf("%s: %v", m, err)
				m.info.Error = err
				continue
			}
			f.setEnvelope(m, env)
			loaded = append(loaded, m)
		}
	}
	log.Tracef("%s: loaded %d/%d headers", f.name, len(loaded), len(delayed))
	f.notify(loaded)
}

// LoadAll loads every delayed header.
func (f *Folder) LoadAll() error {
	var failed int
	f.load(f.messages)
	for _, m := range f.messages {
		if m.state == models.Delayed {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%s: %d headers could not be read", f.name, failed)
	}
	return nil
}

// start returns the index of the first message to examine when scanning
// backward from anchor.
func (f *Folder) start(anchor threading.Message) int {
	if anchor == nil {
		return len(f.messages) - 1
	}
	if m, ok := f.own(anchor); ok {
		if i := slices.Index(f.messages, m); i >= 0 {
			return i - 1
		}
	}
	// anchor from another folder, position by date
	ts := anchor.Timestamp()
	if ts.IsZero() {
		return len(f.messages) - 1
	}
	i := len(f.messages) - 1
	for i >= 0 {
		t := f.messages[i].Timestamp()
		if t.IsZero() || !t.After(ts) {
			break
		}
		i--
	}
	return i
}

func (f *Folder) ScanForMessages(
	anchor threading.Message, ids []string, notBefore time.Time, max int,
) (threading.ScanResult, error) {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[parse.MsgID(id)] = struct{}{}
	}

	status := threading.ScanExhausted
	examined := 0
	for i := f.start(anchor); i >= 0 && len(wanted) > 0; i-- {
		if max > 0 && examined >= max {
			status = threading.ScanBounded
			break
		}
		m := f.messages[i]
		if tooOld(m, notBefore) {
			status = threading.ScanBounded
			break
		}
		if m.state == models.Delayed {
			f.prefetch(i, max-examined, notBefore)
		}
		examined++
		if err := m.EnsureLoaded(); err != nil {
			continue
		}
		delete(wanted, parse.MsgID(m.info.Envelope.MessageId))
	}

	res := threading.ScanResult{Status: status}
	for _, id := range ids {
		if _, ok := wanted[parse.MsgID(id)]; ok {
			res.Missing = append(res.Missing, id)
		}
	}
	if len(res.Missing) == 0 {
		res.Status = threading.ScanFound
	}
	log.Tracef("%s: scan examined %d messages: %s", f.name, examined, res.Status)
	return res, nil
}

func tooOld(m *Message, notBefore time.Time) bool {
	if notBefore.IsZero() {
		return false
	}
	ts := m.Timestamp()
	return !ts.IsZero() && ts.Before(notBefore)
}

// prefetch loads, in one batch, the delayed headers that a scan starting
// at index i is going to examine.
func (f *Folder) prefetch(i int, budget int, notBefore time.Time) {
	if _, ok := f.source.(BatchSource); !ok {
		return
	}
	n := scanBatch
	if budget > 0 && budget < n {
		n = budget
	}
	var msgs []*Message
	for j := i; j >= 0 && len(msgs) < n; j-- {
		m := f.messages[j]
		if tooOld(m, notBefore) {
			break
		}
		msgs = append(msgs, m)
	}
	f.load(msgs)
}
