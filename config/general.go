package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-ini/ini"
	"github.com/mattn/go-isatty"

	"git.sr.ht/~rjarry/mailthread/lib/log"
	"git.sr.ht/~rjarry/mailthread/lib/parse"
	"git.sr.ht/~rjarry/mailthread/lib/xdg"
)

type GeneralConfig struct {
	LogFile     string        `ini:"log-file"`
	LogLevel    log.LogLevel  `ini:"-"`
	CacheDir    string        `ini:"cache-dir"`
	CacheMaxAge time.Duration `ini:"-"`
	// NoCache disables the header cache.
	NoCache bool `ini:"no-cache"`
}

func defaultGeneralConfig() GeneralConfig {
	return GeneralConfig{
		LogLevel:    log.INFO,
		CacheMaxAge: 30 * 24 * time.Hour,
	}
}

func (config *Config) parseGeneral(file *ini.File) error {
	gen, err := file.GetSection("general")
	if err != nil {
		return nil
	}
	if err := gen.MapTo(&config.General); err != nil {
		return err
	}
	if key, err := gen.GetKey("log-level"); err == nil {
		l, err := log.ParseLevel(key.String())
		if err != nil {
			return fmt.Errorf("[general].log-level: %w", err)
		}
		config.General.LogLevel = l
	}
	if key, err := gen.GetKey("cache-max-age"); err == nil {
		d, err := parse.Timespan(key.String())
		if err != nil {
			return fmt.Errorf("[general].cache-max-age: %w", err)
		}
		config.General.CacheMaxAge = d
	}
	config.General.LogFile = xdg.ExpandHome(config.General.LogFile)
	config.General.CacheDir = xdg.ExpandHome(config.General.CacheDir)
	return nil
}

// InitLogging sends the logs to stdout when it is not a terminal and to
// the log file otherwise. Without a log file, nothing is logged on a
// terminal.
func (gen *GeneralConfig) InitLogging() error {
	if !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return log.Init(os.Stdout, false, gen.LogLevel)
	}
	if gen.LogFile == "" {
		return log.Init(nil, false, gen.LogLevel)
	}
	file, err := os.OpenFile(gen.LogFile,
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("log-file: %w", err)
	}
	return log.Init(file, true, gen.LogLevel)
}
