package main

import (
	"fmt"
	"io"
	"time"

	sortthread "github.com/emersion/go-imap-sortthread"
	"github.com/mattn/go-runewidth"

	"git.sr.ht/~rjarry/mailthread/lib/parse"
	"git.sr.ht/~rjarry/mailthread/lib/threading"
	"git.sr.ht/~rjarry/mailthread/worker/handlers"
	"git.sr.ht/~rjarry/mailthread/worker/lib"
)

const (
	subjectWidth = 50
	dateFormat   = "2006-01-02 15:04"
)

// label shows the date, the base subject and the message-id of a node.
func label(n *threading.Node) string {
	if n.IsDummy() {
		return threading.DefaultLabel(n)
	}
	var date time.Time
	subject := ""
	switch m := n.Message().(type) {
	case *lib.Message:
		date = m.Timestamp()
		if env := m.Info().Envelope; env != nil {
			subject, _ = sortthread.GetBaseSubject(env.Subject)
		}
	default:
		date = m.Timestamp()
	}
	if subject == "" {
		subject = "(no subject)"
	}
	subject = runewidth.Truncate(subject, subjectWidth, "…")
	subject = runewidth.FillRight(subject, subjectWidth)
	ts := "????-??-?? ??:??"
	if !date.IsZero() {
		ts = date.Local().Format(dateFormat)
	}
	suffix := ""
	if len(n.Messages()) > 1 {
		suffix = fmt.Sprintf(" (x%d)", len(n.Messages()))
	}
	return fmt.Sprintf("%s  %s  %s%s", ts, subject, n.MessageID(), suffix)
}

func printThreads(w io.Writer, roots []*threading.Node) error {
	for _, root := range roots {
		if err := threading.Render(w, root, label); err != nil {
			return err
		}
	}
	return nil
}

// locate scans every folder for the message with id and returns its node.
func locate(mgr *threading.Manager, id string) *threading.Node {
	if node := mgr.Node(id); node != nil && !node.IsDummy() {
		return node
	}
	for _, f := range mgr.Folders() {
		res, err := f.ScanForMessages(nil, []string{id}, time.Time{}, 0)
		if err != nil {
			continue
		}
		if res.Status == threading.ScanFound {
			break
		}
	}
	node := mgr.Node(id)
	if node == nil || node.IsDummy() {
		return nil
	}
	return node
}

// printMessage prints the thread below a message, or the whole thread
// containing it when start is set.
func printMessage(w io.Writer, mgr *threading.Manager, id string, start bool) error {
	id = parse.MsgID(id)
	node := locate(mgr, id)
	if node == nil {
		return fmt.Errorf("message <%s> not found", id)
	}
	if start {
		node = mgr.ThreadStart(node.Message())
	}
	if !node.IsDummy() {
		node = mgr.Thread(node.Message())
	}
	return threading.Render(w, node, label)
}

// printRecent threads the newest message of every folder and prints the
// threads known afterwards.
func printRecent(w io.Writer, mgr *threading.Manager, folders []handlers.Folder) error {
	for _, f := range folders {
		msgs := f.Messages()
		if len(msgs) == 0 {
			continue
		}
		if mgr.ThreadStart(msgs[len(msgs)-1]) == nil {
			// never threaded: the header could not be read
			continue
		}
	}
	return printThreads(w, mgr.SortedKnown(threading.ByStartTime))
}
