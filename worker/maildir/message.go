package maildir

import (
	"io"
	"os"

	"github.com/emersion/go-maildir"

	"git.sr.ht/~rjarry/mailthread/lib/rfc822"
	"git.sr.ht/~rjarry/mailthread/models"
)

// A Message is an individual email inside of a maildir.Dir.
type Message struct {
	dir maildir.Dir
	key string
}

// NewReader opens the message file.
func (m Message) NewReader() (io.ReadCloser, error) {
	return m.dir.Open(m.key)
}

func (m Message) Key() string {
	return m.key
}

// Stat returns a MessageInfo without envelope: the internal date is the
// modification time of the file.
func (m Message) Stat() (*models.MessageInfo, error) {
	path, err := m.dir.Filename(m.key)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &models.MessageInfo{
		Key:          m.key,
		InternalDate: st.ModTime(),
		Size:         uint32(st.Size()),
	}, nil
}

// MessageInfo populates a models.MessageInfo struct for the message.
func (m Message) MessageInfo() (*models.MessageInfo, error) {
	mi, err := rfc822.MessageInfo(m)
	if err != nil {
		return nil, err
	}
	if st, err := m.Stat(); err == nil {
		mi.InternalDate = st.InternalDate
		mi.Size = st.Size
	}
	return mi, nil
}

// Remove deletes the email immediately.
func (m Message) Remove() error {
	return m.dir.Remove(m.key)
}
