package config

import (
	"errors"
	"os"
	"unicode"

	"github.com/go-ini/ini"

	"git.sr.ht/~rjarry/mailthread/lib/log"
	"git.sr.ht/~rjarry/mailthread/lib/xdg"
)

type Config struct {
	General   GeneralConfig
	Threading ThreadingConfig
	Folders   []*FolderConfig
}

// Input: CacheMaxAge
// Output: cache-max-age
func mapName(raw string) string {
	newstr := make([]rune, 0, len(raw))
	for i, chr := range raw {
		if isUpper := 'A' <= chr && chr <= 'Z'; isUpper {
			if i > 0 {
				newstr = append(newstr, '-')
			}
		}
		newstr = append(newstr, unicode.ToLower(chr))
	}
	return string(newstr)
}

// DefaultPath returns the configuration file used when none is given.
func DefaultPath() string {
	return xdg.ConfigPath("mailthread", "mailthread.conf")
}

// Defaults returns the configuration used without a configuration file.
func Defaults() *Config {
	return &Config{
		General:   defaultGeneralConfig(),
		Threading: defaultThreadingConfig(),
	}
}

// LoadFile reads the configuration from path. A missing file is not an
// error, the defaults are returned.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Debugf("%s not found, using defaults", path)
		return Defaults(), nil
	}
	return Load(path)
}

// Load parses a configuration from a file name or raw bytes.
func Load(source interface{}) (*Config, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		KeyValueDelimiters: "=",
	}, source)
	if err != nil {
		return nil, err
	}
	file.NameMapper = mapName

	config := Defaults()
	if err := config.parseGeneral(file); err != nil {
		return nil, err
	}
	if err := config.parseThreading(file); err != nil {
		return nil, err
	}
	if err := config.parseFolders(file); err != nil {
		return nil, err
	}
	return config, nil
}
