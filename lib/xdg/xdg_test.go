package xdg

import (
	"errors"
	"os/user"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHomeDir(t *testing.T) {
	t.Run("from env", func(t *testing.T) {
		t.Setenv("HOME", "/home/user")
		assert.Equal(t, "/home/user", HomeDir())
	})
	t.Run("from getpwuid_r", func(t *testing.T) {
		t.Setenv("HOME", "")
		orig := currentUser
		defer func() { currentUser = orig }()
		currentUser = func() (*user.User, error) {
			return &user.User{HomeDir: "/home/user"}, nil
		}
		assert.Equal(t, "/home/user", HomeDir())
	})
	t.Run("failure", func(t *testing.T) {
		t.Setenv("HOME", "")
		orig := currentUser
		defer func() { currentUser = orig }()
		currentUser = func() (*user.User, error) {
			return nil, errors.New("no such user")
		}
		assert.Empty(t, HomeDir())
	})
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/user")
	vectors := []struct {
		args     []string
		expected string
	}{
		{args: []string{"foo"}, expected: "foo"},
		{args: []string{"foo", "bar"}, expected: "foo/bar"},
		{args: []string{"~/Mail", "INBOX"}, expected: "/home/user/Mail/INBOX"},
		{args: []string{"~"}, expected: "/home/user"},
		{args: []string{"~bob/Mail"}, expected: "~bob/Mail"},
		{args: []string{"imaps://bob@example.org"}, expected: "imaps://bob@example.org"},
		{args: []string{}, expected: ""},
	}
	for _, vec := range vectors {
		t.Run(vec.expected, func(t *testing.T) {
			assert.Equal(t, vec.expected, ExpandHome(vec.args...))
		})
	}
}

func TestConfigPath(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG layout only")
	}
	t.Setenv("HOME", "/home/user")
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("XDG_CACHE_HOME", "")
	assert.Equal(t, "/home/user/.config/mailthread/mailthread.conf",
		ConfigPath("mailthread", "mailthread.conf"))
	assert.Equal(t, "/home/user/.cache/mailthread", CachePath("mailthread"))
	assert.Equal(t, "/etc/mailthread.conf", ConfigPath("/etc/mailthread.conf"))

	t.Setenv("XDG_CACHE_HOME", "/var/cache/bob")
	assert.Equal(t, "/var/cache/bob/mailthread", CachePath("mailthread"))
}
