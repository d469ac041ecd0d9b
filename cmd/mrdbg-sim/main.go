// Package main is the entry point for mrdbg-sim, a harness that drives
// scripted function evaluations against a simulated debuggee.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/dshills/mrdbg/internal/config"
	"github.com/dshills/mrdbg/internal/engine"
	"github.com/dshills/mrdbg/internal/engine/sim"
	"github.com/dshills/mrdbg/internal/funceval"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(run())
}

type options struct {
	ConfigPath   string
	LaunchPath   string
	Profile      string
	ScenarioPath string
	Watch        bool
	Timeout      time.Duration
}

func run() int {
	opts := parseFlags()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load config: %v\n", err)
		return 1
	}
	if err := cfg.ApplyEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid environment override: %v\n", err)
		return 1
	}

	logger := cfg.NewLogger(os.Stderr)

	// The primary window layers: config file, then env, then the launch
	// profile, then the -timeout flag.
	primary, grace := cfg.Eval.Timeout(), cfg.Eval.AbortGrace()
	if opts.LaunchPath != "" {
		profile, err := config.LoadLaunchProfile(opts.LaunchPath, opts.Profile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to load launch profile: %v\n", err)
			return 1
		}
		logger.Info("launch profile selected",
			"name", profile.Name, "request", profile.Request, "program", profile.Program)
		if profile.EvalTimeoutMS > 0 {
			primary = time.Duration(profile.EvalTimeoutMS) * time.Millisecond
		}
	}
	if opts.Timeout > 0 {
		primary = opts.Timeout
	}

	registry := config.DefaultRuntimes()
	if cfg.Runtime.Registry != "" {
		registry, err = config.LoadRuntimes(cfg.Runtime.Registry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to load runtime registry: %v\n", err)
			return 1
		}
	}
	rt, err := registry.Lookup(cfg.Runtime.Name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v (known: %v)\n", err, registry.Names())
		return 1
	}

	w := funceval.New(
		funceval.WithLogger(logger),
		funceval.WithTimeouts(primary, grace),
		funceval.WithNotificationType(funceval.NotificationType{
			Enclosing: rt.Enclosing,
			Nested:    rt.Notification,
		}),
	)

	// The simulated core library carries whatever marker type the
	// selected runtime profile names.
	core := sim.NewModule(sim.CoreModuleName)
	enclosing := core.AddType(rt.Enclosing, engine.TypeTokenNil)
	core.AddType(rt.Notification, enclosing)
	if err := w.ResolveNotificationClass(core); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve notification class: %v\n", err)
		return 1
	}

	scenario, err := sim.LoadScenario(opts.ScenarioPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	logger.Info("scenario loaded",
		"path", opts.ScenarioPath, "threads", scenario.Threads, "functions", len(scenario.Library))

	proc := sim.FromScenario(scenario, sim.WithSink(funceval.Sink(w)), sim.WithLogger(logger))
	defer proc.Close()

	if opts.Watch {
		watcher, err := config.Watch(opts.ConfigPath, func(c config.Config) {
			w.SetTimeouts(c.Eval.Timeout(), c.Eval.AbortGrace())
		}, config.WithWatchLogger(logger))
		if err != nil {
			logger.Warn("config watch unavailable", "error", err)
		} else {
			defer watcher.Close()
		}
	}

	// SIGINT aborts the in-flight evaluation and stops the run after it
	// settles.
	var interrupted atomic.Bool
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		for range signals {
			interrupted.Store(true)
			logger.Warn("interrupt: aborting in-flight evaluation")
			w.CancelEvalRunning()
		}
	}()

	threads, err := proc.Threads()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	evalThread := threads[0]

	names := make([]string, 0, len(scenario.Library))
	for name := range scenario.Library {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if interrupted.Load() {
			logger.Info("run interrupted; remaining calls skipped")
			break
		}

		val, err := w.WaitEvalResult(context.Background(), evalThread, func(ev engine.Eval) error {
			return sim.PrepareCall(ev, name)
		})
		switch {
		case err != nil:
			fmt.Printf("%-28s error: %v\n", name, err)
		case val == nil:
			fmt.Printf("%-28s void\n", name)
		default:
			fmt.Printf("%-28s %s %s\n", name, val.Type(), val.String())
		}

		if errors.Is(err, funceval.ErrEvalUnrecoverable) || errors.Is(err, funceval.ErrWaiterUnusable) {
			fmt.Fprintf(os.Stderr, "Error: evaluation state unrecoverable; stopping\n")
			return 1
		}
	}

	return 0
}

func parseFlags() options {
	var opts options
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.ConfigPath, "config", "mrdbg.toml", "Path to TOML configuration file")
	flag.StringVar(&opts.ConfigPath, "c", "mrdbg.toml", "Path to TOML configuration file (shorthand)")
	flag.StringVar(&opts.LaunchPath, "launch", "", "Path to launch.json with debug profiles")
	flag.StringVar(&opts.Profile, "profile", "", "Launch profile name (default: first profile in the file)")
	flag.StringVar(&opts.ScenarioPath, "scenario", "", "Path to Lua debuggee scenario (required)")
	flag.StringVar(&opts.ScenarioPath, "s", "", "Path to Lua debuggee scenario (shorthand)")
	flag.BoolVar(&opts.Watch, "watch", false, "Reload evaluation windows when the config file changes")
	flag.DurationVar(&opts.Timeout, "timeout", 0, "Primary evaluation window override (for example 2s)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "mrdbg-sim - function evaluation harness for a simulated debuggee\n\n")
		fmt.Fprintf(os.Stderr, "Usage: mrdbg-sim [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  mrdbg-sim -scenario scenarios/quick.lua\n")
		fmt.Fprintf(os.Stderr, "  mrdbg-sim -c mrdbg.toml -watch -s scenarios/deadlock.lua\n")
		fmt.Fprintf(os.Stderr, "  mrdbg-sim -launch launch.json -profile \"Launch (console)\" -s scenarios/quick.lua\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("mrdbg-sim %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	if opts.ScenarioPath == "" {
		fmt.Fprintf(os.Stderr, "Error: -scenario is required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	return opts
}
