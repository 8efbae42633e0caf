package xdg

import (
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"git.sr.ht/~rjarry/mailthread/lib/log"
)

// assign to a local var to allow mocking in unit tests
var currentUser = user.Current

// Get the current user home directory (first from the $HOME env var and
// fallback on calling getpwuid_r() from libc if $HOME is unset).
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		u, e := currentUser()
		if e == nil {
			home = u.HomeDir
		} else {
			log.Errorf("HomeDir: %s (while handling %s)", e, err)
		}
	}
	return home
}

// ExpandHome joins fragments and replaces a leading ~ with the home dir.
// Other paths, URLs included, are returned as joined.
func ExpandHome(fragments ...string) string {
	res := strings.Join(fragments, "/")
	if len(fragments) > 1 {
		res = filepath.Join(fragments...)
	}
	if strings.HasPrefix(res, "~/") || res == "~" {
		res = HomeDir() + strings.TrimPrefix(res, "~")
	}
	return res
}
