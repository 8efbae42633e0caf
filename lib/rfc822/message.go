package rfc822

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"git.sr.ht/~rjarry/mailthread/lib/log"
	"git.sr.ht/~rjarry/mailthread/models"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
)

// RFC 1123Z regexp
var dateRe = regexp.MustCompile(`(((Mon|Tue|Wed|Thu|Fri|Sat|Sun))[,]?\s[0-9]{1,2})\s` +
	`(Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)\s` +
	`([0-9]{4})\s([0-9]{2}):([0-9]{2})(:([0-9]{2}))?\s([\+|\-][0-9]{4})`)

// ThreadingFields are the header fields needed to build an Envelope. IMAP
// sources fetch only those.
var ThreadingFields = []string{
	"Message-Id", "In-Reply-To", "References", "Date", "Subject", "Received",
}

// RawMessage gives access to the bytes of a stored message.
type RawMessage interface {
	NewReader() (io.ReadCloser, error)
	Key() string
}

// MessageInfo reads the header of raw and returns the MessageInfo for it.
// Only the header block is consumed.
func MessageInfo(raw RawMessage) (*models.MessageInfo, error) {
	r, err := raw.NewReader()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	env, err := ReadEnvelope(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", raw.Key(), err)
	}
	return &models.MessageInfo{
		Key:          raw.Key(),
		Envelope:     env,
		InternalDate: env.Date,
	}, nil
}

// ReadEnvelope parses the header block found at the start of r.
func ReadEnvelope(r io.Reader) (*models.Envelope, error) {
	hdr, err := textproto.ReadHeader(bufio.NewReader(r))
	if err != nil {
		return nil, fmt.Errorf("could not read header: %w", err)
	}
	h := &mail.Header{Header: message.Header{Header: hdr}}
	return parseEnvelope(h), nil
}

// ReadMessage is a wrapper for the message.Read function to read a message
// from r. The message's encoding and charset are automatically decoded to
// UTF-8. If an unknown charset is encountered, the error is logged but a nil
// error is returned since the entity object can still be read.
func ReadMessage(r io.Reader) (*message.Entity, error) {
	entity, err := message.Read(r)
	if message.IsUnknownCharset(err) {
		log.Warnf("unknown charset encountered")
	} else if err != nil {
		return nil, fmt.Errorf("could not read message: %w", err)
	}
	return entity, nil
}

func parseEnvelope(h *mail.Header) *models.Envelope {
	subj, err := h.Subject()
	if err != nil {
		log.Debugf("could not decode subject: %v", err)
		subj = h.Get("Subject")
	}
	msgID, err := h.MessageID()
	if err != nil || msgID == "" {
		// proper parsing failed, so fall back to whatever is there
		msgID = strings.Trim(strings.TrimSpace(h.Get("Message-Id")), "<>")
	}
	date, err := parseDate(h)
	if err != nil {
		// Date parsing errors are fairly common and it's better to be
		// slightly off than to not be able to thread the mail at all
		log.Debugf("invalid Date header: %v", err)
	}
	return &models.Envelope{
		Date:       date,
		Subject:    subj,
		MessageId:  msgID,
		InReplyTo:  unfold(h.Get("In-Reply-To")),
		References: unfold(h.Get("References")),
	}
}

func unfold(v string) string {
	v = strings.ReplaceAll(v, "\r\n", "")
	return strings.ReplaceAll(v, "\n", "")
}

// If the date is formatted like ...... -0500 (EST), parser takes the EST part
// and ignores the numeric offset. Then it might easily fail to guess what EST
// means unless the proper locale is loaded. This function checks that, so such
// time values can be safely ignored
func isDateOK(t time.Time) bool {
	name, offset := t.Zone()

	// non-zero offsets are fine
	if offset != 0 {
		return true
	}

	// zero offset is ok if that's UTC or GMT
	if name == "UTC" || name == "GMT" || name == "" {
		return true
	}

	// otherwise this date should not be trusted
	return false
}

// parseDate tries to parse the date from the Date header with non std formats
// if this fails it tries to parse the received header as well
func parseDate(h *mail.Header) (time.Time, error) {
	// best parsed time so far, used when no "correct" time is found
	bestDate := time.Time{}

	t, err := h.Date()
	if err == nil {
		if isDateOK(t) {
			return t, nil
		}
		bestDate = t
	}
	text := h.Get("Date")

	if text == "" {
		t, err := parseReceivedHeader(h)
		if err == nil {
			return t, nil
		}
	}
	layouts := []string{
		// X-Mailer: EarthLink Zoo Mail 1.0
		"Mon, _2 Jan 2006 15:04:05 -0700 (GMT-07:00)",
		time.RFC1123Z,
		time.RFC1123,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, text); err == nil {
			if isDateOK(t) {
				return t, nil
			}
			bestDate = t
		}
	}

	t, err = parseReceivedHeader(h)
	if err == nil {
		if isDateOK(t) {
			return t, nil
		}
		bestDate = t
	}

	if !bestDate.IsZero() {
		return bestDate, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %s", text)
}

func parseReceivedHeader(h *mail.Header) (time.Time, error) {
	guess, err := h.Text("Received")
	if err != nil {
		return time.Time{}, fmt.Errorf("received header not parseable: %w",
			err)
	}
	return time.Parse(time.RFC1123Z, dateRe.FindString(guess))
}
