package threading

import (
	"fmt"
	"io"
	"strings"
)

// DefaultLabel shows the message-id, between angle brackets for dummies.
func DefaultLabel(n *Node) string {
	if n.IsDummy() {
		return fmt.Sprintf("<%s>", n.id)
	}
	return n.id
}

// Render writes the tree starting at root, one node per line:
//
//	root
//	├─> reply
//	│  └─> reply to reply
//	└─> other reply
func Render(w io.Writer, root *Node, label func(*Node) string) error {
	if label == nil {
		label = DefaultLabel
	}
	if _, err := fmt.Fprintln(w, label(root)); err != nil {
		return err
	}
	return renderChildren(w, root, nil, label)
}

func renderChildren(w io.Writer, n *Node, prefix []string, label func(*Node) string) error {
	for i, c := range n.children {
		last := i == len(n.children)-1
		arrow, indent := "├─>", "│  "
		if last {
			arrow, indent = "└─>", "   "
		}
		_, err := fmt.Fprintf(w, "%s%s %s\n", strings.Join(prefix, ""), arrow, label(c))
		if err != nil {
			return err
		}
		err = renderChildren(w, c, append(prefix, indent), label)
		if err != nil {
			return err
		}
	}
	return nil
}
