package threading

import (
	"git.sr.ht/~rjarry/mailthread/lib/log"
	"git.sr.ht/~rjarry/mailthread/lib/parse"
)

type pendingLinks struct {
	node *Node
	msgs []Message
}

// linkQueue holds nodes whose messages were ingested but whose reply
// headers were not read yet. Entries are unique per message-id.
type linkQueue struct {
	entries map[string]*pendingLinks
	order   []string
}

func newLinkQueue() *linkQueue {
	return &linkQueue{entries: make(map[string]*pendingLinks)}
}

func (q *linkQueue) push(n *Node, m Message) {
	e, ok := q.entries[n.id]
	if !ok {
		e = &pendingLinks{node: n}
		q.entries[n.id] = e
		q.order = append(q.order, n.id)
	}
	for _, have := range e.msgs {
		if have == m {
			return
		}
	}
	e.msgs = append(e.msgs, m)
}

// drop forgets m if it is still waiting to be linked.
func (q *linkQueue) drop(id string, m Message) {
	e, ok := q.entries[id]
	if !ok {
		return
	}
	for i, have := range e.msgs {
		if have == m {
			e.msgs = append(e.msgs[:i], e.msgs[i+1:]...)
			break
		}
	}
}

func (q *linkQueue) len() int {
	return len(q.order)
}

// take empties the queue and returns its entries in ingestion order.
func (q *linkQueue) take() []*pendingLinks {
	entries := make([]*pendingLinks, 0, len(q.order))
	for _, id := range q.order {
		entries = append(entries, q.entries[id])
	}
	q.entries = make(map[string]*pendingLinks)
	q.order = nil
	return entries
}

// flush derives parent links for every pending message. Reading the
// headers is deferred until here so that all messages of a batch are in
// the registry before any dummy is created.
func (mgr *Manager) flush() {
	if mgr.delayed.len() == 0 {
		return
	}
	entries := mgr.delayed.take()
	for _, e := range entries {
		for _, m := range e.msgs {
			mgr.link(e.node, m)
		}
	}
	log.Tracef("linked %d pending nodes", len(entries))
}

func (mgr *Manager) link(node *Node, m Message) {
	irt, refs, err := m.ReplyHeaders()
	if err != nil {
		log.Warnf("%s: cannot read reply headers: %v", node.id, err)
		return
	}

	if id := parse.InReplyTo(irt); id != "" && id != node.id {
		parent := mgr.lookupOrDummy(id)
		if !node.Follows(parent, LinkReply) {
			log.Debugf("%s: in-reply-to %s would close a cycle",
				node.id, id)
		}
	}

	chain := parse.MsgIDList(refs)
	if len(chain) == 0 || chain[len(chain)-1] != node.id {
		chain = append(chain, node.id)
	}
	from := mgr.lookupOrDummy(chain[0])
	for _, id := range chain[1:] {
		to := mgr.lookupOrDummy(id)
		if to == from {
			continue
		}
		if _, kind := to.RepliedTo(); kind != LinkReply {
			if !to.Follows(from, LinkReference) {
				log.Tracef("%s: reference %s would close a cycle",
					to.id, from.id)
			}
		}
		from = to
	}
}

// lookupOrDummy returns the node for id, registering a dummy when the id
// was never seen.
func (mgr *Manager) lookupOrDummy(id string) *Node {
	if n := mgr.nodes.get(id); n != nil {
		return n
	}
	n := mgr.newDummy(id)
	mgr.nodes.add(n)
	return n
}
