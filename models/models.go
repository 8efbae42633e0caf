package models

import (
	"fmt"
	"time"
)

// HeaderState tells whether the header of a message handle is resident.
type HeaderState int

const (
	// Delayed headers have not been read from the backing store yet.
	Delayed HeaderState = iota
	// Loaded headers are in memory.
	Loaded
)

func (s HeaderState) String() string {
	switch s {
	case Delayed:
		return "delayed"
	case Loaded:
		return "loaded"
	}
	return fmt.Sprintf("HeaderState(%d)", int(s))
}

// Envelope holds the header fields used for threading and display. The
// In-Reply-To and References values are kept raw: parsing them is the
// threading engine's business.
type Envelope struct {
	Date       time.Time
	Subject    string
	MessageId  string
	InReplyTo  string
	References string
}

// A MessageInfo holds what a folder knows about one of its messages.
type MessageInfo struct {
	// Key identifies the message inside its folder (mbox index, maildir
	// key, IMAP uid).
	Key          string
	Envelope     *Envelope
	InternalDate time.Time
	Size         uint32

	// Error is set when the header could only be partially parsed.
	Error error
}

// Date returns the best known timestamp for the message.
func (mi *MessageInfo) Date() time.Time {
	if mi.Envelope != nil && !mi.Envelope.Date.IsZero() {
		return mi.Envelope.Date
	}
	return mi.InternalDate
}

// DirectoryInfo summarizes a folder.
type DirectoryInfo struct {
	Name string

	// The total number of messages in this folder.
	Exists int

	// The number of messages whose header has been loaded.
	Loaded int
}
