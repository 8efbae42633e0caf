package maildir

import (
	"net/url"
	"path/filepath"
	"slices"

	"github.com/emersion/go-maildir"

	"git.sr.ht/~rjarry/mailthread/lib/hdrcache"
	"git.sr.ht/~rjarry/mailthread/lib/log"
	"git.sr.ht/~rjarry/mailthread/lib/watchers"
	"git.sr.ht/~rjarry/mailthread/models"
	"git.sr.ht/~rjarry/mailthread/worker/handlers"
	"git.sr.ht/~rjarry/mailthread/worker/lib"
)

func init() {
	handlers.RegisterWorkerFactory("maildir", openSource)
	handlers.RegisterWorkerFactory("maildirpp", openSourcePP)
}

// source reads headers from the message files, through the header cache.
type source struct {
	name  string
	dir   maildir.Dir
	cache *hdrcache.Cache
}

func (s *source) cacheKey(key string) string {
	return lib.StripUIDFromMessageFilename(key)
}

func (s *source) ReadHeader(key string) (*models.Envelope, error) {
	mi, err := Message{dir: s.dir, key: key}.MessageInfo()
	if err != nil {
		return nil, err
	}
	cached := *mi
	cached.Key = s.cacheKey(key)
	if err := s.cache.Put(s.name, &cached); err != nil {
		log.Errorf("%v", err)
	}
	return mi.Envelope, nil
}

// Folder is one maildir. Headers are read from the message files when
// needed, unless the header cache has them.
type Folder struct {
	*lib.Folder
	dir maildir.Dir
	src *source
}

// OpenDir opens a maildir. New messages are moved to cur.
func OpenDir(name string, dir maildir.Dir, cache *hdrcache.Cache, eager bool) (*Folder, error) {
	f := &Folder{
		dir: dir,
		src: &source{name: name, dir: dir, cache: cache},
	}
	f.Folder = lib.NewFolder(name, f.src)
	if _, err := f.Sync(); err != nil {
		return nil, err
	}
	if eager {
		if err := f.LoadAll(); err != nil {
			log.Warnf("%v", err)
		}
	}
	info := f.Info()
	log.Debugf("%s: opened %s, %d messages, %d cached",
		name, dir, info.Exists, info.Loaded)
	return f, nil
}

func (f *Folder) Path() string {
	return string(f.dir)
}

func (f *Folder) Close() error {
	return nil
}

// Sync moves new messages to cur and updates the message list with the
// files found in cur. Threaders are told about removed messages and about
// added messages whose header is cached. The added handles are returned.
func (f *Folder) Sync() ([]*lib.Message, error) {
	if _, err := f.dir.Unseen(); err != nil {
		return nil, err
	}
	keys, err := f.dir.Keys()
	if err != nil {
		return nil, err
	}

	present := make(map[string]bool, len(keys))
	var added []*models.MessageInfo
	for _, key := range keys {
		present[key] = true
		if f.Lookup(key) != nil {
			continue
		}
		mi, err := Message{dir: f.dir, key: key}.Stat()
		if err != nil {
			log.Warnf("%s: %v", f.Name(), err)
			continue
		}
		if cached, ok := f.src.cache.Get(f.Name(), f.src.cacheKey(key)); ok {
			mi.Envelope = cached.Envelope
		}
		added = append(added, mi)
	}
	// oldest first, so that messages with equal dates keep a stable order
	slices.SortStableFunc(added, func(a, b *models.MessageInfo) int {
		return a.InternalDate.Compare(b.InternalDate)
	})

	var removed []string
	for _, m := range f.Handles() {
		if !present[m.Key()] {
			removed = append(removed, m.Key())
			if err := f.src.cache.Delete(f.Name(), f.src.cacheKey(m.Key())); err != nil {
				log.Errorf("%s: %v", f.Name(), err)
			}
		}
	}
	f.Remove(removed...)
	handles := f.Append(added...)
	if len(added) > 0 || len(removed) > 0 {
		log.Debugf("%s: %d added, %d removed", f.Name(), len(added), len(removed))
	}
	return handles, nil
}

// Watch registers the cur and new directories of the folder.
func (f *Folder) Watch(w watchers.FSWatcher) error {
	for _, sub := range []string{"cur", "new"} {
		if err := w.Add(filepath.Join(f.Path(), sub)); err != nil {
			return err
		}
	}
	return nil
}

// HandleEvent synchronizes the folder when ev concerns one of its message
// files. Headers of new deliveries are loaded right away. It returns
// whether ev was relevant.
func (f *Folder) HandleEvent(ev *watchers.FSEvent) bool {
	parent := filepath.Dir(ev.Path)
	if parent != filepath.Join(f.Path(), "cur") && parent != filepath.Join(f.Path(), "new") {
		return false
	}
	added, err := f.Sync()
	if err != nil {
		log.Errorf("%s: sync failed after %s: %v", f.Name(), ev, err)
		return true
	}
	for _, m := range added {
		if err := m.EnsureLoaded(); err != nil {
			log.Warnf("%s: %v", m, err)
		}
	}
	return true
}

func openSource(u *url.URL, opts *handlers.Options) ([]handlers.Folder, error) {
	path, err := handlers.LocalPath(u)
	if err != nil {
		return nil, err
	}
	return Open(path, opts)
}

func openSourcePP(u *url.URL, opts *handlers.Options) ([]handlers.Folder, error) {
	opts.MaildirPP = true
	return openSource(u, opts)
}

// Open opens the maildir at path. When path is not itself a maildir, or
// when folder patterns are given, it is a tree of maildirs and every
// matching one is opened.
func Open(path string, opts *handlers.Options) ([]handlers.Folder, error) {
	if !opts.MaildirPP && len(opts.Folders) == 0 && lib.IsMaildir(path) {
		f, err := OpenDir(opts.Name, maildir.Dir(path), opts.Cache, opts.Eager)
		if err != nil {
			return nil, err
		}
		return []handlers.Folder{f}, nil
	}

	store, err := lib.NewMaildirStore(path, opts.MaildirPP)
	if err != nil {
		return nil, err
	}
	names, err := store.Folders(opts.Folders)
	if err != nil {
		return nil, err
	}
	var folders []handlers.Folder
	for _, name := range names {
		f, err := OpenDir(opts.Name+"/"+name, store.Dir(name), opts.Cache, opts.Eager)
		if err != nil {
			for _, opened := range folders {
				opened.Close()
			}
			return nil, err
		}
		folders = append(folders, f)
	}
	return folders, nil
}
