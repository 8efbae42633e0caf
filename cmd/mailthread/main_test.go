package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~rjarry/mailthread/lib/threading"
	"git.sr.ht/~rjarry/mailthread/models"
	"git.sr.ht/~rjarry/mailthread/worker/handlers"
	"git.sr.ht/~rjarry/mailthread/worker/lib"
)

type envelopes map[string]*models.Envelope

func (e envelopes) ReadHeader(key string) (*models.Envelope, error) {
	env, ok := e[key]
	if !ok {
		return nil, errors.New("no such message")
	}
	copied := *env
	return &copied, nil
}

type testFolder struct {
	*lib.Folder
}

func (f testFolder) Close() error { return nil }

var epoch = time.Date(2023, time.March, 1, 12, 0, 0, 0, time.UTC)

func newTestFolder() testFolder {
	envs := envelopes{
		"1": {Date: epoch, MessageId: "root@x", Subject: "Threading"},
		"2": {
			Date: epoch.Add(time.Hour), MessageId: "a@x", Subject: "Re: Threading",
			InReplyTo: "<root@x>",
		},
		"3": {
			Date: epoch.Add(2 * time.Hour), MessageId: "b@x", Subject: "Re: Re: Threading",
			InReplyTo: "<a@x>", References: "<root@x> <a@x>",
		},
		"4": {Date: epoch.Add(3 * time.Hour), MessageId: "other@x", Subject: "Other"},
	}
	f := lib.NewFolder("test", envs)
	var infos []*models.MessageInfo
	for _, key := range []string{"1", "2", "3", "4"} {
		infos = append(infos, &models.MessageInfo{Key: key, InternalDate: envs[key].Date})
	}
	f.Append(infos...)
	return testFolder{f}
}

func TestParseArgs(t *testing.T) {
	o, err := parseArgs([]string{"mailthread", "-w", "5", "-t", "2d", "-m", "<a@x>", "-s", "inbox"})
	require.NoError(t, err)
	assert.Equal(t, 5, *o.window)
	assert.Equal(t, "2d", *o.timespan)
	assert.Equal(t, "<a@x>", o.msgid)
	assert.True(t, o.start)
	assert.Equal(t, []string{"inbox"}, o.sources)

	_, err = parseArgs([]string{"mailthread", "-s"})
	assert.Error(t, err)
	_, err = parseArgs([]string{"mailthread", "-a", "-m", "a@x"})
	assert.Error(t, err)
	_, err = parseArgs([]string{"mailthread", "-w", "many"})
	assert.Error(t, err)
}

func TestLabel(t *testing.T) {
	f := newTestFolder()
	mgr := threading.NewManager()
	require.NoError(t, mgr.IncludeFolder(f))
	require.NoError(t, f.Lookup("2").EnsureLoaded())

	node := mgr.Node("a@x")
	require.NotNil(t, node)
	l := label(node)
	assert.True(t, strings.HasSuffix(l, "  a@x"), l)
	assert.Contains(t, l, "Threading ")
	assert.NotContains(t, l, "Re:")

	parent, _ := node.RepliedTo()
	require.NotNil(t, parent)
	assert.Equal(t, "<root@x>", label(parent))
}

func TestPrintMessage(t *testing.T) {
	f := newTestFolder()
	mgr := threading.NewManager()
	require.NoError(t, mgr.IncludeFolder(f))

	var buf bytes.Buffer
	require.NoError(t, printMessage(&buf, mgr, "<a@x>", true))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasSuffix(lines[0], "root@x"), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "└─> "), lines[1])
	assert.True(t, strings.HasSuffix(lines[2], "b@x"), lines[2])

	buf.Reset()
	require.NoError(t, printMessage(&buf, mgr, "b@x", false))
	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))

	assert.Error(t, printMessage(&buf, mgr, "missing@x", false))
}

func TestPrintRecent(t *testing.T) {
	f := newTestFolder()
	mgr := threading.NewManager()
	require.NoError(t, mgr.IncludeFolder(f))

	var buf bytes.Buffer
	require.NoError(t, printRecent(&buf, mgr, []handlers.Folder{f}))
	assert.Contains(t, buf.String(), "other@x")
	assert.NotContains(t, buf.String(), "root@x")
}
