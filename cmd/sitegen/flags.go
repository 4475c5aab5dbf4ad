package main

import (
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"
)

// ErrUsage marks invalid command-line arguments.
var ErrUsage = errors.New("usage")

const defaultConfigPath = "sitegen.yaml"

// cliFlags holds the flags shared by build, serve and watch.
type cliFlags struct {
	config      string
	configSet   bool
	content     string
	out         string
	db          string
	addr        string
	workers     int
	failFast    bool
	failFastSet bool
	incremental bool
	prune       bool
	verbose     bool
	quiet       bool
}

func newFlagSet(cmd string, f *cliFlags) *flag.FlagSet {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	fs.StringVarP(&f.config, "config", "c", defaultConfigPath, "config file")
	fs.StringVar(&f.content, "content", "", "content directory")
	fs.StringVarP(&f.out, "out", "o", "", "output directory")
	fs.StringVar(&f.db, "db", "", "manifest database")
	fs.StringVar(&f.addr, "addr", "", "listen address")
	fs.IntVarP(&f.workers, "workers", "w", 0, "concurrent previews")
	fs.BoolVar(&f.failFast, "fail-fast", false, "stop at the first failed preview")
	fs.BoolVarP(&f.incremental, "incremental", "i", false, "reuse unchanged previews")
	fs.BoolVar(&f.prune, "prune", true, "remove stored previews of deleted posts")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "log debug output")
	fs.BoolVarP(&f.quiet, "quiet", "q", false, "log errors only")
	return fs
}

// parseFlags parses the arguments that follow the command name.
func parseFlags(cmd string, args []string) (*cliFlags, error) {
	f := &cliFlags{}
	fs := newFlagSet(cmd, f)
	fs.Usage = func() {}
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected argument %q", ErrUsage, fs.Arg(0))
	}
	if f.workers < 0 {
		return nil, fmt.Errorf("%w: --workers must not be negative", ErrUsage)
	}
	if f.verbose && f.quiet {
		return nil, fmt.Errorf("%w: --verbose and --quiet are exclusive", ErrUsage)
	}
	f.configSet = fs.Changed("config")
	f.failFastSet = fs.Changed("fail-fast")
	return f, nil
}
