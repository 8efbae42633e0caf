package config

import (
	"fmt"
	"time"

	"github.com/go-ini/ini"

	"git.sr.ht/~rjarry/mailthread/lib/parse"
	"git.sr.ht/~rjarry/mailthread/lib/threading"
)

// ThreadingConfig bounds the scans done to find missing messages. Zero
// means unbounded.
type ThreadingConfig struct {
	Window   int
	Timespan time.Duration
}

func defaultThreadingConfig() ThreadingConfig {
	return ThreadingConfig{
		Window:   threading.DefaultWindow,
		Timespan: threading.DefaultTimespan,
	}
}

func (config *Config) parseThreading(file *ini.File) error {
	sec, err := file.GetSection("threading")
	if err != nil {
		return nil
	}
	for _, key := range sec.Keys() {
		switch key.Name() {
		case "window":
			n, err := parse.Window(key.String())
			if err != nil {
				return fmt.Errorf("[threading].window: %w", err)
			}
			config.Threading.Window = n
		case "timespan":
			d, err := parse.Timespan(key.String())
			if err != nil {
				return fmt.Errorf("[threading].timespan: %w", err)
			}
			config.Threading.Timespan = d
		default:
			return fmt.Errorf("[threading]: unknown key %q", key.Name())
		}
	}
	return nil
}

// ManagerOptions returns the options of a manager using this
// configuration.
func (t *ThreadingConfig) ManagerOptions() []threading.Option {
	return []threading.Option{
		threading.WithWindow(t.Window),
		threading.WithTimespan(t.Timespan),
	}
}
