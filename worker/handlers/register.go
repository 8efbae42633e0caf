package handlers

import (
	"fmt"
	"net/url"
	"path/filepath"

	"git.sr.ht/~rjarry/mailthread/lib/hdrcache"
	"git.sr.ht/~rjarry/mailthread/lib/threading"
	"git.sr.ht/~rjarry/mailthread/lib/xdg"
	"git.sr.ht/~rjarry/mailthread/models"
)

// Folder is a folder opened by a backend.
type Folder interface {
	threading.Folder
	Info() *models.DirectoryInfo
	Close() error
}

// Options tune how a backend opens a source.
type Options struct {
	// Name of the folder, or prefix of the folder names for sources made
	// of several folders.
	Name string
	// Eager reads every header when the source is opened.
	Eager bool
	// Cache makes cached headers resident without reading the messages.
	Cache *hdrcache.Cache
	// Folders are fnmatch patterns selecting the folders of a maildir
	// root or an IMAP account.
	Folders []string
	// MaildirPP enables the Maildir++ layout.
	MaildirPP bool
}

type FactoryFunc func(u *url.URL, opts *Options) ([]Folder, error)

var workerFactories map[string]FactoryFunc = make(map[string]FactoryFunc)

func RegisterWorkerFactory(scheme string, factory FactoryFunc) {
	workerFactories[scheme] = factory
}

func GetHandlerForScheme(scheme string) (FactoryFunc, error) {
	factory, ok := workerFactories[scheme]
	if !ok {
		return nil, fmt.Errorf("unknown backend %s", scheme)
	}
	return factory, nil
}

// LocalPath returns the file system path of a local source URL. A ~ host
// refers to the home directory.
func LocalPath(u *url.URL) (string, error) {
	if u.Host == "~" {
		home := xdg.HomeDir()
		if home == "" {
			return "", fmt.Errorf("%s: cannot find home directory", u)
		}
		return filepath.Join(home, u.Path), nil
	}
	return filepath.Join(u.Host, u.Path), nil
}
