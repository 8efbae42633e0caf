package mboxer

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"

	"github.com/miolini/datacounter"

	"git.sr.ht/~rjarry/mailthread/lib/log"
	"git.sr.ht/~rjarry/mailthread/lib/rfc822"
	"git.sr.ht/~rjarry/mailthread/models"
	"git.sr.ht/~rjarry/mailthread/worker/handlers"
	"git.sr.ht/~rjarry/mailthread/worker/lib"
)

func init() {
	handlers.RegisterWorkerFactory("mbox", openSource)
}

type message struct {
	key     string
	content []byte
}

func (m *message) NewReader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.content)), nil
}

func (m *message) Key() string {
	return m.key
}

// container keeps the raw messages of an mbox file in memory. Messages are
// keyed by their position in the file.
type container struct {
	filename string
	messages map[string]*message
}

func (c *container) ReadHeader(key string) (*models.Envelope, error) {
	m, ok := c.messages[key]
	if !ok {
		return nil, fmt.Errorf("%s: no message %s", c.filename, key)
	}
	mi, err := rfc822.MessageInfo(m)
	if err != nil {
		return nil, err
	}
	return mi.Envelope, nil
}

// Folder is an mbox file. Its headers are parsed on demand.
type Folder struct {
	*lib.Folder
	path string
}

func (f *Folder) Close() error {
	return nil
}

func openSource(u *url.URL, opts *handlers.Options) ([]handlers.Folder, error) {
	path, err := handlers.LocalPath(u)
	if err != nil {
		return nil, err
	}
	f, err := Open(opts.Name, path, opts.Eager)
	if err != nil {
		return nil, err
	}
	return []handlers.Folder{f}, nil
}

// Open reads the mbox file at path.
func Open(name, path string, eager bool) (*Folder, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	counter := datacounter.NewReaderCounter(file)
	raw, err := Read(counter)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debugf("%s: read %d messages (%d bytes)", path, len(raw), counter.Count())

	c := &container{filename: path, messages: make(map[string]*message)}
	infos := make([]*models.MessageInfo, 0, len(raw))
	for i, content := range raw {
		m := &message{key: strconv.Itoa(i), content: content}
		c.messages[m.key] = m
		info := &models.MessageInfo{Key: m.key, Size: uint32(len(content))}
		if eager {
			mi, err := rfc822.MessageInfo(m)
			if err != nil {
				log.Warnf("%s: %v", path, err)
			} else {
				mi.Size = info.Size
				info = mi
			}
		}
		infos = append(infos, info)
	}
	folder := &Folder{Folder: lib.NewFolder(name, c), path: path}
	folder.Append(infos...)
	return folder, nil
}
