package rfc822_test

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"git.sr.ht/~rjarry/mailthread/lib/rfc822"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rawMessage struct {
	key  string
	data string
}

func (m *rawMessage) NewReader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader([]byte(m.data))), nil
}

func (m *rawMessage) Key() string {
	return m.key
}

func TestReadEnvelope(t *testing.T) {
	raw := "From: a@example.org\r\n" +
		"Subject: Re: threading\r\n" +
		"Date: Wed, 11 May 2016 14:31:59 +0000\r\n" +
		"Message-ID: <child@example.org>\r\n" +
		"In-Reply-To: <parent@example.org>\r\n" +
		"References: <root@example.org>\r\n" +
		" <parent@example.org>\r\n" +
		"\r\n" +
		"body is never read\r\n"
	env, err := rfc822.ReadEnvelope(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "child@example.org", env.MessageId)
	assert.Equal(t, "Re: threading", env.Subject)
	assert.Equal(t, "<parent@example.org>", env.InReplyTo)
	assert.Equal(t, "<root@example.org> <parent@example.org>", env.References)
	assert.True(t, env.Date.Equal(time.Date(2016, 5, 11, 14, 31, 59, 0, time.UTC)))
}

func TestReadEnvelopeFallbacks(t *testing.T) {
	raw := "Received: from mx by host; Thu, 12 May 2016 10:00:00 +0200\r\n" +
		"Message-ID: not-bracketed@example.org\r\n" +
		"\r\n"
	env, err := rfc822.ReadEnvelope(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "not-bracketed@example.org", env.MessageId)
	assert.Equal(t, 2016, env.Date.Year())
	assert.Equal(t, "", env.InReplyTo)
	assert.Equal(t, "", env.References)
}

func TestMessageInfo(t *testing.T) {
	m := &rawMessage{
		key:  "42",
		data: "Message-ID: <x@y>\r\nDate: Wed, 11 May 2016 14:31:59 +0000\r\n\r\n",
	}
	mi, err := rfc822.MessageInfo(m)
	require.NoError(t, err)
	assert.Equal(t, "42", mi.Key)
	assert.Equal(t, "x@y", mi.Envelope.MessageId)
	assert.Equal(t, mi.Envelope.Date, mi.Date())
}
