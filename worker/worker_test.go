package worker

import (
	"bytes"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gomaildir "github.com/emersion/go-maildir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~rjarry/mailthread/worker/handlers"
	"git.sr.ht/~rjarry/mailthread/worker/maildir"
	mboxer "git.sr.ht/~rjarry/mailthread/worker/mbox"
)

func TestOpenLocal(t *testing.T) {
	root := t.TempDir()
	md := filepath.Join(root, "md")
	require.NoError(t, os.MkdirAll(md, 0o700))
	require.NoError(t, gomaildir.Dir(md).Init())

	var buf bytes.Buffer
	require.NoError(t, mboxer.Write(&buf,
		strings.NewReader("Message-Id: <a@x>\r\nSubject: a\r\n\r\nbody\r\n"),
		"a@x", time.Date(2023, time.May, 1, 10, 0, 0, 0, time.UTC)))
	box := filepath.Join(root, "box")
	require.NoError(t, os.WriteFile(box, buf.Bytes(), 0o600))

	tests := []struct {
		source  string
		name    string
		maildir bool
	}{
		{source: md, name: "md", maildir: true},
		{source: box, name: "box"},
		{source: "maildir://" + md, name: "md", maildir: true},
		{source: "mbox://" + box, name: "box"},
	}
	for _, test := range tests {
		t.Run(test.source, func(t *testing.T) {
			folders, err := Open(test.source, nil)
			require.NoError(t, err)
			require.Len(t, folders, 1)
			f := folders[0]
			defer f.Close()
			assert.Equal(t, test.name, f.Name())
			if test.maildir {
				assert.IsType(t, &maildir.Folder{}, f)
				assert.Equal(t, 0, f.Info().Exists)
			} else {
				assert.IsType(t, &mboxer.Folder{}, f)
				assert.Equal(t, 1, f.Info().Exists)
			}
		})
	}

	folders, err := Open(box, &handlers.Options{Name: "archive"})
	require.NoError(t, err)
	require.Len(t, folders, 1)
	assert.Equal(t, "archive", folders[0].Name())
}

func TestOpenErrors(t *testing.T) {
	_, err := Open("pop3://mail.example.org", nil)
	assert.Error(t, err)
	_, err = Open(filepath.Join(t.TempDir(), "nope"), nil)
	assert.Error(t, err)
}

func TestOpenSchemeModifier(t *testing.T) {
	orig, err := handlers.GetHandlerForScheme("imaps")
	require.NoError(t, err)
	defer handlers.RegisterWorkerFactory("imaps", orig)

	var got *url.URL
	var gotOpts *handlers.Options
	handlers.RegisterWorkerFactory("imaps",
		func(u *url.URL, opts *handlers.Options) ([]handlers.Folder, error) {
			got = u
			gotOpts = opts
			return nil, nil
		})

	folders, err := Open("imaps+insecure://bob@mail.example.org/Lists/go", nil)
	require.NoError(t, err)
	assert.Empty(t, folders)
	require.NotNil(t, got)
	assert.Equal(t, "imaps+insecure", got.Scheme)
	assert.Equal(t, "mail.example.org/Lists/go", gotOpts.Name)
}

func TestDefaultName(t *testing.T) {
	tests := []struct {
		source  string
		folders []string
		name    string
	}{
		{source: "imaps://bob@mail.example.org", name: "mail.example.org/INBOX"},
		{source: "imap+insecure://localhost:1143/Archive/", name: "localhost/Archive"},
		{source: "imaps://mail.example.org/INBOX", folders: []string{"*"}, name: "mail.example.org"},
		{source: "maildir:///home/bob/Mail/work", name: "work"},
		{source: "maildirpp://~/Mail", folders: []string{"Lists/*"}, name: "Mail"},
	}
	for _, test := range tests {
		t.Run(test.source, func(t *testing.T) {
			u, err := url.Parse(test.source)
			require.NoError(t, err)
			opts := &handlers.Options{Folders: test.folders}
			assert.Equal(t, test.name, defaultName(u, opts))
		})
	}
}
