package threading

import (
	"fmt"
	"slices"
	"time"
)

// LinkKind qualifies how a node's parent was derived.
type LinkKind int

const (
	LinkNone LinkKind = iota
	// LinkReference comes from the position in a References chain.
	LinkReference
	// LinkReply comes from In-Reply-To and is authoritative.
	LinkReply
)

func (k LinkKind) String() string {
	switch k {
	case LinkNone:
		return "none"
	case LinkReference:
		return "reference"
	case LinkReply:
		return "reply"
	}
	return fmt.Sprintf("LinkKind(%d)", int(k))
}

// Node is one message-id in the thread graph. A node without messages is
// a dummy: the id is referenced but no message carrying it was seen.
type Node struct {
	id       string
	messages []Message
	parent   *Node
	kind     LinkKind
	children []*Node
}

// NodeFactory creates the node for an id. The manager uses one factory for
// nodes created from a message and one for dummies.
type NodeFactory func(id string) *Node

// NewNode returns an empty node for id.
func NewNode(id string) *Node {
	return &Node{id: id}
}

func (n *Node) MessageID() string {
	return n.id
}

func (n *Node) IsDummy() bool {
	return len(n.messages) == 0
}

// Messages returns the messages carrying this id, one per folder copy.
func (n *Node) Messages() []Message {
	return slices.Clone(n.messages)
}

// Message returns the first message of the node, nil for a dummy.
func (n *Node) Message() Message {
	if len(n.messages) == 0 {
		return nil
	}
	return n.messages[0]
}

// AddMessage adds m unless this very handle is already present.
func (n *Node) AddMessage(m Message) {
	for _, have := range n.messages {
		if have == m {
			return
		}
	}
	n.messages = append(n.messages, m)
}

// RemoveMessage removes m. The node may become a dummy; it stays linked.
func (n *Node) RemoveMessage(m Message) {
	for i, have := range n.messages {
		if have == m {
			// copy on removal, the old slice may be iterated
			n.messages = slices.Delete(slices.Clone(n.messages), i, i+1)
			return
		}
	}
}

// Follows makes parent the parent of n. The node is detached from its
// previous parent first. A link that would close a cycle is refused and
// false is returned. A nil parent turns n into a root.
func (n *Node) Follows(parent *Node, kind LinkKind) bool {
	if parent != nil {
		for walker := parent; walker != nil; walker = walker.parent {
			if walker == n {
				return false
			}
		}
	}
	if n.parent == parent {
		n.kind = kind
		if parent == nil {
			n.kind = LinkNone
		}
		return true
	}
	n.detach()
	if parent == nil {
		return true
	}
	n.parent = parent
	n.kind = kind
	parent.children = append(parent.children, n)
	return true
}

func (n *Node) detach() {
	if n.parent == nil {
		return
	}
	siblings := n.parent.children
	for i, c := range siblings {
		if c == n {
			n.parent.children = slices.Delete(slices.Clone(siblings), i, i+1)
			break
		}
	}
	n.parent = nil
	n.kind = LinkNone
}

// RepliedTo returns the parent and how the link was derived. The parent is
// nil for a thread root.
func (n *Node) RepliedTo() (*Node, LinkKind) {
	return n.parent, n.kind
}

// Children returns the follow-ups in the order they were linked.
func (n *Node) Children() []*Node {
	return slices.Clone(n.children)
}

// Recurse calls visit on n and its descendants, depth first. When visit
// returns false the descendants of that node are skipped.
func (n *Node) Recurse(visit func(*Node) bool) {
	if !visit(n) {
		return
	}
	for _, c := range n.children {
		c.Recurse(visit)
	}
}

// StartTimeEstimate returns the earliest known timestamp of the thread
// starting at n. For a dummy it is the earliest estimate of its children.
// The zero time is returned when nothing is known.
func (n *Node) StartTimeEstimate() time.Time {
	if !n.IsDummy() {
		return n.earliest()
	}
	var start time.Time
	for _, c := range n.children {
		t := c.StartTimeEstimate()
		if !t.IsZero() && (start.IsZero() || t.Before(start)) {
			start = t
		}
	}
	return start
}

func (n *Node) earliest() time.Time {
	var t time.Time
	for _, m := range n.messages {
		ts := m.Timestamp()
		if !ts.IsZero() && (t.IsZero() || ts.Before(t)) {
			t = ts
		}
	}
	return t
}

// EndTimeEstimate returns the latest known timestamp in the subtree.
func (n *Node) EndTimeEstimate() time.Time {
	var end time.Time
	n.Recurse(func(node *Node) bool {
		for _, m := range node.messages {
			if ts := m.Timestamp(); ts.After(end) {
				end = ts
			}
		}
		return true
	})
	return end
}

// ThreadMessages returns every message of the subtree, depth first.
func (n *Node) ThreadMessages() []Message {
	var msgs []Message
	n.Recurse(func(node *Node) bool {
		msgs = append(msgs, node.messages...)
		return true
	})
	return msgs
}

// NumberOfMessages counts the real nodes of the subtree.
func (n *Node) NumberOfMessages() int {
	count := 0
	n.Recurse(func(node *Node) bool {
		if !node.IsDummy() {
			count++
		}
		return true
	})
	return count
}

// IDs returns the ids of every node of the subtree, depth first.
func (n *Node) IDs() []string {
	var ids []string
	n.Recurse(func(node *Node) bool {
		ids = append(ids, node.id)
		return true
	})
	return ids
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	parent := "-"
	if n.parent != nil {
		parent = n.parent.id
	}
	return fmt.Sprintf("[%s] (parent:%s/%s, children:%d, messages:%d)",
		n.id, parent, n.kind, len(n.children), len(n.messages))
}
