package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"go.uber.org/multierr"
	"golang.org/x/term"

	"github.com/srodi/faultstat/pkg/collector/faults"
	"github.com/srodi/faultstat/pkg/collector/memory"
	"github.com/srodi/faultstat/pkg/config"
	"github.com/srodi/faultstat/pkg/display"
	"github.com/srodi/faultstat/pkg/engine"
	"github.com/srodi/faultstat/pkg/metrics"
)

var version = "dev"

type cliFlags struct {
	set         *flag.FlagSet
	configPath  *string
	pids        *string
	sort        *string
	procRoot    *string
	metricsFile *string
	logLevel    *string
	trace       *bool
	printConfig *bool
	version     *bool
}

func newFlags(stderr io.Writer) *cliFlags {
	fs := flag.NewFlagSet("faultstat", flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := &cliFlags{set: fs}

	fs.Bool("a", false, "show change direction arrows")
	fs.Bool("c", false, "use the kernel comm name for the command")
	fs.Bool("d", false, "strip the directory from the command")
	fs.Bool("l", false, "show the full command line")
	fs.Bool("s", false, "show the command up to the first space")
	fs.Bool("t", false, "full screen view of changes")
	fs.Bool("T", false, "full screen view of totals")
	fs.Bool("j", false, "emit one JSON document per tick")
	f.pids = fs.String("p", "", "comma separated list of pids and process names to monitor")
	f.sort = fs.String("sort", "", "initial sort key (major-minor, major, minor, d-major-minor, d-major, d-minor, swap)")
	f.configPath = fs.String("config", "", "path to a YAML configuration file")
	f.procRoot = fs.String("proc-root", "", "procfs mount point")
	f.metricsFile = fs.String("metrics-file", "", "write Prometheus metrics to this textfile after every tick")
	f.logLevel = fs.String("log-level", "", "log level (debug, info, warn, error)")
	f.trace = fs.Bool("ebpf", false, "count fault events with a kernel probe (needs CAP_BPF)")
	f.printConfig = fs.Bool("print-config", false, "print the effective configuration as YAML and exit")
	f.version = fs.Bool("version", false, "print the version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: faultstat [options] [interval [count]]\n")
		fs.PrintDefaults()
	}
	return f
}

// apply copies every flag given on the command line over cfg.
func (f *cliFlags) apply(cfg *config.Config) error {
	modes := 0
	f.set.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "a":
			cfg.Arrows = true
		case "c":
			cfg.Command = "comm"
			modes++
		case "l":
			cfg.Command = "long"
			modes++
		case "s":
			cfg.Command = "short"
			modes++
		case "d":
			cfg.StripDirectory = true
		case "t":
			cfg.Top = true
		case "T":
			cfg.Top, cfg.TopTotal = true, true
		case "j":
			cfg.JSON = true
		case "p":
			cfg.PIDs = *f.pids
		case "sort":
			cfg.Sort = *f.sort
		case "proc-root":
			cfg.ProcRoot = *f.procRoot
		case "metrics-file":
			cfg.MetricsFile = *f.metricsFile
		case "log-level":
			cfg.LogLevel = *f.logLevel
		case "ebpf":
			cfg.TraceFaults = *f.trace
		}
	})
	if modes > 1 {
		return fmt.Errorf("%w: cannot have -c, -l, -s at the same time", config.ErrInvalid)
	}
	return applyPositional(cfg, f.set.Args())
}

// applyPositional handles the trailing [interval [count]] arguments.
func applyPositional(cfg *config.Config, args []string) error {
	if len(args) > 2 {
		return fmt.Errorf("%w: unexpected argument %q", config.ErrInvalid, args[2])
	}
	if len(args) > 0 {
		secs, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return fmt.Errorf("%w: invalid interval %q", config.ErrInvalid, args[0])
		}
		if secs < 1 {
			return fmt.Errorf("%w: interval must be 1.0 or more seconds", config.ErrInvalid)
		}
		cfg.Interval = time.Duration(secs * float64(time.Second))
	}
	if len(args) > 1 {
		count, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("%w: invalid count %q", config.ErrInvalid, args[1])
		}
		if count < 1 {
			return fmt.Errorf("%w: count must be > 0", config.ErrInvalid)
		}
		cfg.Count = count
	}
	return nil
}

func setupLogging(level string, out io.Writer) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetOutput(out)
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	f := newFlags(stderr)
	if err := f.set.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if *f.version {
		fmt.Fprintf(stdout, "faultstat %s\n", version)
		return 0
	}

	cfg, err := config.Load(afero.NewOsFs(), *f.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "faultstat: %v\n", err)
		return 1
	}
	if err := f.apply(&cfg); err != nil {
		fmt.Fprintf(stderr, "faultstat: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "faultstat: %v\n", err)
		return 1
	}
	if err := setupLogging(cfg.LogLevel, stderr); err != nil {
		fmt.Fprintf(stderr, "faultstat: %v\n", err)
		return 1
	}

	if *f.printConfig {
		out, err := cfg.YAML()
		if err != nil {
			fmt.Fprintf(stderr, "faultstat: %v\n", err)
			return 1
		}
		_, _ = stdout.Write(out)
		return 0
	}

	if err := monitor(cfg, stdout); err != nil {
		fmt.Fprintf(stderr, "faultstat: %v\n", err)
		return 1
	}
	return 0
}

func monitor(cfg config.Config, stdout io.Writer) (err error) {
	filter, err := faults.ParseFilter(cfg.PIDs)
	if err != nil {
		return err
	}
	policy, err := cfg.NamePolicy()
	if err != nil {
		return err
	}
	key, err := cfg.SortKey()
	if err != nil {
		return err
	}
	sampler, err := faults.New(faults.Options{Root: cfg.ProcRoot, Policy: policy, Filter: filter})
	if err != nil {
		return err
	}

	outFd := int(os.Stdout.Fd())
	opts := engine.Options{
		Interval: cfg.EffectiveInterval(),
		Ticks:    cfg.Ticks(),
		Sort:     key,
		Arrows:   cfg.Arrows,
		Totals:   cfg.TopTotal,
		JSON:     cfg.JSON,
		PIDWidth: sampler.PIDWidth(),
		Out:      stdout,
		Display:  display.NewPlain(stdout, outFd),
	}

	if cfg.OneShot() {
		return engine.New(sampler, opts).Snapshot()
	}

	if cfg.Interactive() {
		opts.Display = display.NewInteractive(stdout, outFd, int(os.Stdin.Fd()))
		opts.StatusLine = true
	}
	if inFd := int(os.Stdin.Fd()); term.IsTerminal(inFd) {
		opts.Keys = func() (byte, bool) { return engine.PollKey(inFd) }
	}
	if cfg.MetricsFile != "" {
		opts.Metrics = metrics.New(cfg.MetricsFile)
	}
	if cfg.TraceFaults {
		tracer, terr := memory.NewTracer(cfg.ProcRoot)
		if terr != nil {
			logrus.WithError(terr).Warn("fault tracer unavailable, continuing without it")
		} else {
			opts.Tracer = tracer
			defer func() { err = multierr.Append(err, tracer.Close()) }()
		}
	}

	disp := opts.Display
	defer func() {
		if r := recover(); r != nil {
			_ = disp.Teardown()
			panic(r)
		}
	}()
	return engine.New(sampler, opts).Run(context.Background())
}
