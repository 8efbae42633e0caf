package imap

import (
	"net/url"
	"slices"

	"git.sr.ht/~rjarry/mailthread/lib/hdrcache"
	"git.sr.ht/~rjarry/mailthread/lib/log"
	"git.sr.ht/~rjarry/mailthread/models"
	"git.sr.ht/~rjarry/mailthread/worker/handlers"
	"git.sr.ht/~rjarry/mailthread/worker/lib"
)

func init() {
	handlers.RegisterWorkerFactory("imap", openSource)
	handlers.RegisterWorkerFactory("imaps", openSource)
}

// Folder is one IMAP mailbox, keyed by UID. Headers are fetched in batches
// when a scan reaches them.
type Folder struct {
	*lib.Folder
	src *source
}

func (f *Folder) Mailbox() string {
	return f.src.mailbox
}

func (f *Folder) Close() error {
	return f.src.s.release()
}

func openMailbox(s *session, name, mailbox string, cache *hdrcache.Cache, eager bool) (*Folder, error) {
	status, err := s.examine(mailbox)
	if err != nil {
		return nil, err
	}
	src := &source{
		s:           s,
		mailbox:     mailbox,
		uidValidity: status.UidValidity,
		cache:       cache,
		cacheName:   cacheName(name, status.UidValidity),
	}
	infos, err := src.list()
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(infos, func(a, b *models.MessageInfo) int {
		return a.InternalDate.Compare(b.InternalDate)
	})

	f := &Folder{Folder: lib.NewFolder(name, src), src: src}
	f.Append(infos...)
	s.refs++
	if eager {
		if err := f.LoadAll(); err != nil {
			log.Warnf("%v", err)
		}
	}
	info := f.Info()
	log.Debugf("%s: opened %s, %d messages, %d cached",
		name, mailbox, info.Exists, info.Loaded)
	return f, nil
}

func openSource(u *url.URL, opts *handlers.Options) ([]handlers.Folder, error) {
	cfg, err := parseURL(u)
	if err != nil {
		return nil, err
	}
	c, err := connect(cfg)
	if err != nil {
		return nil, err
	}
	s := &session{c: c, cfg: cfg}

	mailboxes := []string{cfg.mailbox}
	names := []string{opts.Name}
	if len(opts.Folders) > 0 {
		all, err := s.listMailboxes()
		if err != nil {
			_ = c.Logout()
			return nil, err
		}
		slices.Sort(all)
		mailboxes, names = nil, nil
		for _, mbox := range all {
			if lib.MatchFolder(mbox, opts.Folders) {
				mailboxes = append(mailboxes, mbox)
				names = append(names, opts.Name+"/"+mbox)
			}
		}
	}

	var folders []handlers.Folder
	for i, mbox := range mailboxes {
		f, err := openMailbox(s, names[i], mbox, opts.Cache, opts.Eager)
		if err != nil {
			for _, opened := range folders {
				opened.Close()
			}
			if len(folders) == 0 {
				_ = c.Logout()
			}
			return nil, err
		}
		folders = append(folders, f)
	}
	if len(folders) == 0 {
		log.Warnf("%s: no mailbox matches %v", cfg.addr, opts.Folders)
		_ = c.Logout()
	}
	return folders, nil
}
