package config

import (
	"fmt"

	"github.com/go-ini/ini"

	"git.sr.ht/~rjarry/mailthread/lib/hdrcache"
	"git.sr.ht/~rjarry/mailthread/lib/xdg"
	"git.sr.ht/~rjarry/mailthread/worker/handlers"
)

// FolderConfig is a section naming a source of messages.
type FolderConfig struct {
	Name   string `ini:"-"`
	Source string `ini:"source"`
	// Eager reads every header when the source is opened.
	Eager bool `ini:"eager"`
	// Folders selects the folders of a maildir tree or IMAP account.
	Folders   []string `ini:"folders" delim:","`
	MaildirPP bool     `ini:"maildirpp"`
}

func (config *Config) parseFolders(file *ini.File) error {
	for _, name := range file.SectionStrings() {
		switch name {
		case ini.DefaultSection, "general", "threading":
			continue
		}
		sec := file.Section(name)
		folder := &FolderConfig{Name: name}
		if err := sec.MapTo(folder); err != nil {
			return fmt.Errorf("[%s]: %w", name, err)
		}
		if folder.Source == "" {
			return fmt.Errorf("[%s]: missing source", name)
		}
		folder.Source = xdg.ExpandHome(folder.Source)
		config.Folders = append(config.Folders, folder)
	}
	return nil
}

// Options returns the backend options of the folder.
func (f *FolderConfig) Options(cache *hdrcache.Cache) *handlers.Options {
	return &handlers.Options{
		Name:      f.Name,
		Eager:     f.Eager,
		Cache:     cache,
		Folders:   f.Folders,
		MaildirPP: f.MaildirPP,
	}
}
