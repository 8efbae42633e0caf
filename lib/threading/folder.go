package threading

import (
	"fmt"
	"time"
)

// Message is a handle to one message stored in a Folder. Handles are
// compared by identity: the same message found in two folders is two
// handles sharing one message-id.
type Message interface {
	// MessageID returns the message-id, without angle brackets.
	MessageID() string
	// Timestamp returns the best known date of the message, or the zero
	// time when nothing is known.
	Timestamp() time.Time
	// ReplyHeaders returns the raw In-Reply-To and References values. It
	// may have to load the header from the backing store first.
	ReplyHeaders() (inReplyTo string, references string, err error)
}

// ScanStatus tells why a folder stopped scanning.
type ScanStatus int

const (
	// ScanFound means every requested id was located.
	ScanFound ScanStatus = iota
	// ScanBounded means the window or time bound was reached before the
	// oldest message of the folder.
	ScanBounded
	// ScanExhausted means every message of the folder was examined.
	ScanExhausted
)

func (s ScanStatus) String() string {
	switch s {
	case ScanFound:
		return "found"
	case ScanBounded:
		return "bounded"
	case ScanExhausted:
		return "exhausted"
	}
	return fmt.Sprintf("ScanStatus(%d)", int(s))
}

// ScanResult is returned by Folder.ScanForMessages.
type ScanResult struct {
	// Missing holds the requested ids that were not found.
	Missing []string
	Status  ScanStatus
}

// Folder is a backing store of messages. Folders report headers becoming
// available, or messages going away, to their threaders.
type Folder interface {
	// Name identifies the folder. Two folders with the same name are
	// considered the same folder.
	Name() string
	// Messages returns the current messages, oldest first.
	Messages() []Message
	// IsLoaded reports whether the header of m is resident.
	IsLoaded(m Message) bool
	// ScanForMessages searches backward from anchor (from the newest
	// message when anchor is nil) for the given ids. It stops at the
	// first message older than notBefore (zero: no time bound) or once
	// max messages have been examined (0: no bound). Every header loaded
	// on the way is reported to the threaders.
	ScanForMessages(anchor Message, ids []string, notBefore time.Time, max int) (ScanResult, error)
	// LoadAll loads every delayed header.
	LoadAll() error
	AddThreader(t Threader)
	RemoveThreader(t Threader)
}

// Threader receives header availability notifications from folders.
type Threader interface {
	ToBeThreaded(f Folder, msgs ...Message)
	ToBeUnthreaded(f Folder, msgs ...Message)
}
