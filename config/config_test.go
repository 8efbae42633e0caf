package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~rjarry/mailthread/lib/log"
	"git.sr.ht/~rjarry/mailthread/lib/threading"
)

func TestMapName(t *testing.T) {
	assert.Equal(t, "cache-max-age", mapName("CacheMaxAge"))
	assert.Equal(t, "source", mapName("Source"))
}

func TestLoad(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	config, err := Load([]byte(`
[general]
log-file = ~/mailthread.log
log-level = debug
cache-max-age = 2w

[threading]
window = unbounded
timespan = 1w2d

[inbox]
source = maildir://~/Mail/INBOX
eager = true

[lists]
source = imaps://bob@mail.example.org
folders = Lists/*,!Lists/spam
`))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "mailthread.log"), config.General.LogFile)
	assert.Equal(t, log.DEBUG, config.General.LogLevel)
	assert.Equal(t, 14*24*time.Hour, config.General.CacheMaxAge)
	assert.Equal(t, 0, config.Threading.Window)
	assert.Equal(t, 9*24*time.Hour, config.Threading.Timespan)

	require.Len(t, config.Folders, 2)
	inbox := config.Folders[0]
	assert.Equal(t, "inbox", inbox.Name)
	assert.Equal(t, "maildir://~/Mail/INBOX", inbox.Source)
	assert.True(t, inbox.Eager)
	lists := config.Folders[1]
	assert.Equal(t, []string{"Lists/*", "!Lists/spam"}, lists.Folders)
	opts := lists.Options(nil)
	assert.Equal(t, "lists", opts.Name)
	assert.False(t, opts.Eager)
	assert.Equal(t, lists.Folders, opts.Folders)
}

func TestLoadDefaults(t *testing.T) {
	config, err := Load([]byte(``))
	require.NoError(t, err)
	assert.Equal(t, threading.DefaultWindow, config.Threading.Window)
	assert.Equal(t, threading.DefaultTimespan, config.Threading.Timespan)
	assert.Equal(t, log.INFO, config.General.LogLevel)
	assert.Empty(t, config.Folders)

	mgr := threading.NewManager(config.Threading.ManagerOptions()...)
	assert.Equal(t, threading.DefaultWindow, mgr.Window())

	config, err = LoadFile(filepath.Join(t.TempDir(), "missing.conf"))
	require.NoError(t, err)
	assert.Equal(t, Defaults(), config)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mailthread.conf")
	require.NoError(t, os.WriteFile(path, []byte("[mbox]\nsource = /tmp/x.mbox\n"), 0o600))
	config, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, config.Folders, 1)
	assert.Equal(t, "/tmp/x.mbox", config.Folders[0].Source)
}

func TestLoadErrors(t *testing.T) {
	tests := map[string]string{
		"log level": "[general]\nlog-level = loud\n",
		"max age":   "[general]\ncache-max-age = 3 fortnights\n",
		"window":    "[threading]\nwindow = -1\n",
		"timespan":  "[threading]\ntimespan = soon\n",
		"unknown":   "[threading]\ndepth = 3\n",
		"no source": "[inbox]\neager = true\n",
	}
	for name, conf := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load([]byte(conf))
			assert.Error(t, err)
		})
	}
}
