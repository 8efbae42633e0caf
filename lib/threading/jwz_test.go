package threading_test

import (
	"fmt"
	"math/rand"
	"slices"
	"testing"
	"time"

	"github.com/gatherstars-com/jwz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~rjarry/mailthread/lib/parse"
	"git.sr.ht/~rjarry/mailthread/lib/threading"
)

// jwzMessage wraps a fake message so that the reference JWZ implementation
// can thread it.
type jwzMessage struct {
	m      *fakeMessage
	dummy  string
	next   jwz.Threadable
	child  jwz.Threadable
	parent jwz.Threadable
}

func (j *jwzMessage) MessageThreadID() string {
	if j.m == nil {
		return j.dummy
	}
	return j.m.id
}

func (j *jwzMessage) MessageThreadReferences() []string {
	if j.m == nil {
		return nil
	}
	refs := parse.MsgIDList(j.m.refs)
	if irt := parse.InReplyTo(j.m.irt); irt != "" {
		if len(refs) == 0 || refs[len(refs)-1] != irt {
			refs = append(refs, irt)
		}
	}
	return refs
}

// every subject is unique so that no subject grouping happens
func (j *jwzMessage) Subject() string           { return "subject " + j.MessageThreadID() }
func (j *jwzMessage) SimplifiedSubject() string { return j.Subject() }
func (j *jwzMessage) SubjectIsReply() bool      { return false }

func (j *jwzMessage) SetNext(next jwz.Threadable)     { j.next = next }
func (j *jwzMessage) SetChild(kid jwz.Threadable)     { j.child = kid }
func (j *jwzMessage) SetParent(parent jwz.Threadable) { j.parent = parent }
func (j *jwzMessage) GetNext() jwz.Threadable         { return j.next }
func (j *jwzMessage) GetChild() jwz.Threadable        { return j.child }
func (j *jwzMessage) GetParent() jwz.Threadable       { return j.parent }

func (j *jwzMessage) GetDate() time.Time {
	if j.m == nil {
		return time.Time{}
	}
	return j.m.date
}

func (j *jwzMessage) MakeDummy(forID string) jwz.Threadable {
	return &jwzMessage{dummy: forID}
}

func (j *jwzMessage) IsDummy() bool {
	return j.m == nil
}

// jwzParents threads msgs with JWZ and returns the parent id of every
// message, "" for roots.
func jwzParents(t *testing.T, msgs []*fakeMessage) map[string]string {
	t.Helper()
	threadables := make([]jwz.Threadable, 0, len(msgs))
	for _, m := range msgs {
		threadables = append(threadables, &jwzMessage{m: m})
	}
	root, err := jwz.NewThreader().ThreadSlice(threadables)
	require.NoError(t, err)

	parents := make(map[string]string)
	var walk func(node jwz.Threadable, parent string)
	walk = func(node jwz.Threadable, parent string) {
		for ; node != nil; node = node.GetNext() {
			id := parent
			if !node.IsDummy() {
				parents[node.MessageThreadID()] = parent
				id = node.MessageThreadID()
			}
			walk(node.GetChild(), id)
		}
	}
	walk(root, "")
	return parents
}

// generateThreads builds complete threads: every referenced message exists
// and headers are consistent.
func generateThreads(rng *rand.Rand, threads, replies int) []*fakeMessage {
	var msgs []*fakeMessage
	ancestry := make(map[string][]string)
	hours := 0
	for i := 0; i < threads; i++ {
		id := fmt.Sprintf("t%d@x", i)
		msgs = append(msgs, msg(id, hours))
		ancestry[id] = nil
		hours++
		pool := []string{id}
		for j := 0; j < replies; j++ {
			parent := pool[rng.Intn(len(pool))]
			reply := fmt.Sprintf("t%d.r%d@x", i, j)
			chain := append(append([]string(nil), ancestry[parent]...), parent)
			msgs = append(msgs, msg(reply, hours, chain...))
			ancestry[reply] = chain
			pool = append(pool, reply)
			hours++
		}
	}
	rng.Shuffle(len(msgs), func(i, j int) {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	})
	return msgs
}

func TestManagerMatchesJWZ(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 5; round++ {
		msgs := generateThreads(rng, 4, 12)
		expected := jwzParents(t, msgs)

		mgr := threading.NewManager()
		require.NoError(t, mgr.IncludeFolder(newFolder("f", msgs...)))
		roots := mgr.All()

		actual := make(map[string]string)
		for _, root := range roots {
			root.Recurse(func(n *threading.Node) bool {
				p, _ := n.RepliedTo()
				if p == nil {
					actual[n.MessageID()] = ""
				} else {
					actual[n.MessageID()] = p.MessageID()
				}
				return true
			})
		}
		assert.Equal(t, expected, actual, "round %d", round)
		assert.Len(t, roots, 4)
	}
}

// Loading the same messages through lazy scans must converge on the same
// structure as a full load.
func TestManagerLazyMatchesJWZ(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	msgs := generateThreads(rng, 3, 10)
	expected := jwzParents(t, msgs)
	slices.SortFunc(msgs, func(a, b *fakeMessage) int {
		return a.date.Compare(b.date)
	})

	f := newFolder("f", msgs...)
	last := msgs[len(msgs)-1]
	f.loaded[last] = true

	mgr := threading.NewManager(threading.WithWindow(0), threading.WithTimespan(0))
	require.NoError(t, mgr.IncludeFolder(f))
	top := mgr.ThreadStart(last)
	require.NotNil(t, top)
	assert.False(t, top.IsDummy())
	assert.Equal(t, "", expected[top.MessageID()])

	full := mgr.Thread(top.Message())
	full.Recurse(func(n *threading.Node) bool {
		assert.False(t, n.IsDummy(), n.MessageID())
		p, _ := n.RepliedTo()
		if p != nil {
			assert.Equal(t, expected[n.MessageID()], p.MessageID(), n.MessageID())
		}
		return true
	})
}
