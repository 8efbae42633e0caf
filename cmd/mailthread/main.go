package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"git.sr.ht/~sircmpwn/getopt"

	"git.sr.ht/~rjarry/mailthread/config"
	"git.sr.ht/~rjarry/mailthread/lib/hdrcache"
	"git.sr.ht/~rjarry/mailthread/lib/log"
	"git.sr.ht/~rjarry/mailthread/lib/parse"
	"git.sr.ht/~rjarry/mailthread/lib/threading"
	"git.sr.ht/~rjarry/mailthread/lib/watchers"
	"git.sr.ht/~rjarry/mailthread/worker"
	"git.sr.ht/~rjarry/mailthread/worker/handlers"
	"git.sr.ht/~rjarry/mailthread/worker/maildir"
)

// set at build time
var Version string

func buildInfo() string {
	info := Version
	if info == "" {
		info = "devel"
	}
	info += fmt.Sprintf(" (%s %s %s)",
		runtime.Version(), runtime.GOARCH, runtime.GOOS)
	return info
}

func usage(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	fmt.Fprintln(os.Stderr, "usage: mailthread [-v] [-c <config>] [-w <window>] [-t <timespan>]")
	fmt.Fprintln(os.Stderr, "                  [-l <log-level>] [-a | -m <message-id> [-s]] [-f]")
	fmt.Fprintln(os.Stderr, "                  [source...]")
	os.Exit(1)
}

type options struct {
	configPath string
	window     *int
	timespan   *string
	logLevel   string
	all        bool
	msgid      string
	start      bool
	follow     bool
	sources    []string
}

func parseArgs(args []string) (*options, error) {
	opts, optind, err := getopt.Getopts(args, "c:w:t:l:am:sfv")
	if err != nil {
		return nil, err
	}
	o := &options{}
	for _, opt := range opts {
		switch opt.Option {
		case 'v':
			fmt.Println("mailthread " + buildInfo())
			os.Exit(0)
		case 'c':
			o.configPath = opt.Value
		case 'w':
			n, err := parse.Window(opt.Value)
			if err != nil {
				return nil, err
			}
			o.window = &n
		case 't':
			value := opt.Value
			if _, err := parse.Timespan(value); err != nil {
				return nil, err
			}
			o.timespan = &value
		case 'l':
			o.logLevel = opt.Value
		case 'a':
			o.all = true
		case 'm':
			o.msgid = opt.Value
		case 's':
			o.start = true
		case 'f':
			o.follow = true
		}
	}
	if o.start && o.msgid == "" {
		return nil, errors.New("-s requires -m")
	}
	if o.all && o.msgid != "" {
		return nil, errors.New("-a and -m are mutually exclusive")
	}
	o.sources = args[optind:]
	return o, nil
}

func loadConfig(o *options) (*config.Config, error) {
	path := o.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	conf, err := config.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if o.window != nil {
		conf.Threading.Window = *o.window
	}
	if o.timespan != nil {
		conf.Threading.Timespan, _ = parse.Timespan(*o.timespan)
	}
	if o.logLevel != "" {
		if conf.General.LogLevel, err = log.ParseLevel(o.logLevel); err != nil {
			return nil, err
		}
	}
	return conf, nil
}

func openCache(gen *config.GeneralConfig) (*hdrcache.Cache, error) {
	if gen.NoCache {
		return nil, nil
	}
	dir := gen.CacheDir
	if dir == "" {
		dir = hdrcache.DefaultDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, err
	}
	return hdrcache.Open(filepath.Join(dir, "headers"), gen.CacheMaxAge)
}

func openFolders(conf *config.Config, sources []string, cache *hdrcache.Cache) ([]handlers.Folder, error) {
	var folders []handlers.Folder
	for _, fc := range conf.Folders {
		opened, err := worker.Open(fc.Source, fc.Options(cache))
		if err != nil {
			return folders, fmt.Errorf("[%s]: %w", fc.Name, err)
		}
		folders = append(folders, opened...)
	}
	for _, source := range sources {
		opened, err := worker.Open(source, &handlers.Options{Cache: cache})
		if err != nil {
			return folders, fmt.Errorf("%s: %w", source, err)
		}
		folders = append(folders, opened...)
	}
	return folders, nil
}

func run(o *options) error {
	conf, err := loadConfig(o)
	if err != nil {
		return err
	}
	if err := conf.General.InitLogging(); err != nil {
		return err
	}
	log.Infof("Starting up version %s", buildInfo())

	cache, err := openCache(&conf.General)
	if err != nil {
		log.Warnf("header cache disabled: %v", err)
	}
	defer cache.Close()

	folders, err := openFolders(conf, o.sources, cache)
	defer func() {
		for _, f := range folders {
			if err := f.Close(); err != nil {
				log.Warnf("%s: %v", f.Name(), err)
			}
		}
	}()
	if err != nil {
		return err
	}
	if len(folders) == 0 {
		return errors.New("no folder configured")
	}

	mgr := threading.NewManager(conf.Threading.ManagerOptions()...)
	for _, f := range folders {
		if err := mgr.IncludeFolder(f); err != nil {
			return err
		}
	}

	switch {
	case o.msgid != "":
		err = printMessage(os.Stdout, mgr, o.msgid, o.start)
	case o.all:
		err = printThreads(os.Stdout, mgr.SortedAll(threading.ByStartTime))
	default:
		err = printRecent(os.Stdout, mgr, folders)
	}
	if err != nil || !o.follow {
		return err
	}
	return follow(mgr, folders)
}

// follow watches the maildir folders and prints the threads again after
// every change. Events are handled on this goroutine, which owns the
// manager.
func follow(mgr *threading.Manager, folders []handlers.Folder) error {
	w, err := watchers.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	var watched []*maildir.Folder
	for _, f := range folders {
		if md, ok := f.(*maildir.Folder); ok {
			if err := md.Watch(w); err != nil {
				return fmt.Errorf("%s: %w", md.Name(), err)
			}
			watched = append(watched, md)
		}
	}
	if len(watched) == 0 {
		return errors.New("no maildir to follow")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)

	for {
		select {
		case <-sig:
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			changed := false
			for _, md := range watched {
				if md.HandleEvent(ev) {
					changed = true
				}
			}
			if changed {
				fmt.Println()
				err := printThreads(os.Stdout, mgr.SortedKnown(threading.ByStartTime))
				if err != nil {
					return err
				}
			}
		}
	}
}

func main() {
	defer log.PanicHandler()
	o, err := parseArgs(os.Args)
	if err != nil {
		usage("error: " + err.Error())
		return
	}
	if err := run(o); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1) //nolint:gocritic // PanicHandler does not need to run as it's not a panic
	}
}
