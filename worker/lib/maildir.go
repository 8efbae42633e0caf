package lib

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/danwakefield/fnmatch"
	"github.com/emersion/go-maildir"
)

// MaildirStore is a directory tree of maildirs.
type MaildirStore struct {
	root      string
	maildirpp bool // whether to use Maildir++ directory layout
}

func NewMaildirStore(root string, maildirpp bool) (*MaildirStore, error) {
	f, err := os.Open(root)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !s.IsDir() {
		return nil, fmt.Errorf("given maildir '%s' not a directory", root)
	}
	return &MaildirStore{
		root: root, maildirpp: maildirpp,
	}, nil
}

func (s *MaildirStore) Root() string {
	return s.root
}

func (s *MaildirStore) FolderMap() (map[string]maildir.Dir, error) {
	folders := make(map[string]maildir.Dir)
	if s.maildirpp {
		// In Maildir++ layout, INBOX is the root folder
		folders["INBOX"] = maildir.Dir(s.root)
	}
	err := filepath.Walk(s.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("invalid path '%s': %w", path, err)
		}
		if !info.IsDir() {
			return nil
		}

		n := info.Name()
		if n == "new" || n == "tmp" || n == "cur" {
			return filepath.SkipDir
		}

		dirPath, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		if dirPath == "." {
			return nil
		}

		if !IsMaildir(path) {
			return nil
		}

		if s.maildirpp {
			// Maildir++ mailboxes are dot prefixed siblings, subfolders
			// are separated by dots
			if !strings.HasPrefix(dirPath, ".") {
				return filepath.SkipDir
			}
			dirPath = strings.TrimPrefix(dirPath, ".")
			dirPath = strings.ReplaceAll(dirPath, ".", "/")
			folders[dirPath] = maildir.Dir(path)
			return filepath.SkipDir
		}

		folders[dirPath] = maildir.Dir(path)
		return nil
	})
	return folders, err
}

// IsMaildir reports whether path has the cur, new and tmp directories.
func IsMaildir(path string) bool {
	for _, sub := range []string{"new", "tmp", "cur"} {
		if _, err := os.Stat(filepath.Join(path, sub)); err != nil {
			return false
		}
	}
	return true
}

// Folders returns the sorted names of the folders matching at least one
// of the fnmatch patterns. Every folder matches when no pattern is given.
// A pattern starting with ! excludes the folders it matches.
func (s *MaildirStore) Folders(patterns []string) ([]string, error) {
	folders, err := s.FolderMap()
	if err != nil {
		return nil, err
	}
	var names []string
	for name := range folders {
		if MatchFolder(name, patterns) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// MatchFolder applies fnmatch include and !exclude patterns to name.
func MatchFolder(name string, patterns []string) bool {
	included := true
	for _, p := range patterns {
		if !strings.HasPrefix(p, "!") {
			included = false
			break
		}
	}
	for _, p := range patterns {
		if exclude, ok := strings.CutPrefix(p, "!"); ok {
			if fnmatch.Match(exclude, name, 0) {
				return false
			}
		} else if fnmatch.Match(p, name, 0) {
			included = true
		}
	}
	return included
}

// Dir returns a maildir.Dir with the specified name inside the Store
func (s *MaildirStore) Dir(name string) maildir.Dir {
	if s.maildirpp {
		if name == "INBOX" {
			return maildir.Dir(s.root)
		}
		return maildir.Dir(filepath.Join(s.root, "."+strings.ReplaceAll(name, "/", ".")))
	}
	return maildir.Dir(filepath.Join(s.root, name))
}

// uidReg matches filename encoded UIDs in maildirs synched with mbsync or
// OfflineIMAP
var uidReg = regexp.MustCompile(`,U=\d+`)

// StripUIDFromMessageFilename returns a key that survives the renames done
// by synchronization tools.
func StripUIDFromMessageFilename(basename string) string {
	return uidReg.ReplaceAllString(basename, "")
}
