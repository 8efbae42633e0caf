package worker

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~rjarry/mailthread/lib/log"
	"git.sr.ht/~rjarry/mailthread/worker/handlers"
)

// Open opens the folders of a source. The backend is chosen from the URL
// scheme. A source without scheme is a local path whose backend is
// guessed: directories are maildirs, files are mboxes.
func Open(source string, opts *handlers.Options) ([]handlers.Folder, error) {
	if opts == nil {
		opts = &handlers.Options{}
	}
	u, err := parseSource(source)
	if err != nil {
		return nil, err
	}
	scheme := u.Scheme
	if i := strings.IndexRune(scheme, '+'); i >= 0 {
		scheme = scheme[:i]
	}
	factory, err := handlers.GetHandlerForScheme(scheme)
	if err != nil {
		return nil, err
	}
	if opts.Name == "" {
		opts.Name = defaultName(u, opts)
	}
	folders, err := factory(u, opts)
	if err != nil {
		return nil, err
	}
	log.Debugf("%s: %d folders opened", opts.Name, len(folders))
	return folders, nil
}

func parseSource(source string) (*url.URL, error) {
	if strings.Contains(source, "://") {
		return url.Parse(source)
	}
	path, err := filepath.Abs(source)
	if err != nil {
		return nil, err
	}
	scheme := "mbox"
	if st, err := os.Stat(path); err == nil && st.IsDir() {
		scheme = "maildir"
	}
	return &url.URL{Scheme: scheme, Path: filepath.ToSlash(path)}, nil
}

// defaultName names the folders of a source opened without a name. It is
// a prefix when the source is expanded with folder patterns.
func defaultName(u *url.URL, opts *handlers.Options) string {
	switch {
	case strings.HasPrefix(u.Scheme, "imap"):
		if len(opts.Folders) > 0 {
			return u.Hostname()
		}
		if name := strings.Trim(u.Path, "/"); name != "" {
			return u.Hostname() + "/" + name
		}
		return u.Hostname() + "/INBOX"
	default:
		return filepath.Base(u.Path)
	}
}
