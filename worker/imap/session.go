package imap

import (
	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/pkg/errors"

	"git.sr.ht/~rjarry/mailthread/lib/log"
)

// session is one IMAP connection shared by the folders of a source. Only
// one mailbox is selected at a time, folders select theirs before every
// command.
type session struct {
	c        *client.Client
	cfg      *imapConfig
	selected *imap.MailboxStatus
	refs     int
}

// examine selects a mailbox read-only, unless it already is.
func (s *session) examine(mailbox string) (*imap.MailboxStatus, error) {
	if s.selected != nil && s.selected.Name == mailbox {
		return s.selected, nil
	}
	status, err := s.c.Select(mailbox, true)
	if err != nil {
		s.selected = nil
		return nil, errors.Wrapf(err, "EXAMINE %s", mailbox)
	}
	s.selected = status
	log.Tracef("%s: examined %s, uidvalidity %d, %d messages",
		s.cfg.addr, mailbox, status.UidValidity, status.Messages)
	return status, nil
}

func (s *session) listMailboxes() ([]string, error) {
	ch := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		defer log.PanicHandler()
		done <- s.c.List("", "*", ch)
	}()
	var names []string
	for mbox := range ch {
		selectable := true
		for _, attr := range mbox.Attributes {
			if attr == imap.NoSelectAttr {
				selectable = false
			}
		}
		if selectable {
			names = append(names, mbox.Name)
		}
	}
	if err := <-done; err != nil {
		return nil, errors.Wrap(err, "LIST")
	}
	return names, nil
}

// fetch runs UID FETCH and calls cb for every message returned. The first
// error returned by cb is reported once the command is complete.
func (s *session) fetch(
	set *imap.SeqSet, items []imap.FetchItem, cb func(*imap.Message) error,
) error {
	ch := make(chan *imap.Message, 50)
	done := make(chan error, 1)
	go func() {
		defer log.PanicHandler()
		done <- s.c.UidFetch(set, items, ch)
	}()
	var cbErr error
	for msg := range ch {
		if cbErr == nil {
			cbErr = cb(msg)
		}
	}
	if err := <-done; err != nil {
		return errors.Wrap(err, "UID FETCH")
	}
	return cbErr
}

// release logs out once every folder of the session is closed.
func (s *session) release() error {
	s.refs--
	if s.refs > 0 {
		return nil
	}
	return errors.Wrap(s.c.Logout(), "LOGOUT")
}
