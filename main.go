// Stitch - remote-thread DLL injection tool
// WARNING: This tool is for AUTHORIZED security testing and educational purposes ONLY.
// Unauthorized use of this software is illegal and may result in criminal prosecution.
// Use only on systems you own or have explicit written permission to test.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/stitch/stitch/banner"
	"github.com/stitch/stitch/core"
	"github.com/stitch/stitch/injection"
	"github.com/stitch/stitch/internal/cliui"
	"github.com/stitch/stitch/platform"
	"github.com/stitch/stitch/processes"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	var (
		mode        = flag.String("mode", "inject", "Operation mode: inject or enum")
		configPath  = flag.String("config", "", "Configuration file path (JSON or YAML)")
		pid         = flag.Int("pid", 0, "Target process PID")
		name        = flag.String("name", "", "Target process executable name")
		dll         = flag.String("dll", "", "Path to the DLL to load")
		timeout     = flag.Duration("timeout", 0, "Bound on the remote thread wait (overrides config)")
		debug       = flag.Bool("debug", false, "Enable debug logging")
		showVersion = flag.Bool("version", false, "Show version information")
	)

	flag.Parse()

	if *showVersion {
		fmt.Printf("stitch v%s\nBuild: %s\nCommit: %s\n", version, buildTime, gitCommit)
		os.Exit(0)
	}

	logger := core.NewLogger(*debug)
	defer logger.Close()

	cfg, err := core.LoadConfig(*configPath)
	if err != nil {
		logger.Warn("Using default configuration: %v", err)
		cfg = core.DefaultConfig()
	}
	if !*debug {
		logger.SetLevel(core.ParseLevel(cfg.Logging.Level))
	}
	if cfg.Logging.File != "" {
		if err := logger.SetFile(cfg.Logging.File); err != nil {
			logger.Warn("Log file unavailable: %v", err)
		}
	}
	if *timeout > 0 {
		cfg.Injection.Timeout = *timeout
	}

	switch *mode {
	case "enum":
		runEnum(logger)
	case "inject":
		runInject(logger, cfg, *pid, *name, *dll)
	default:
		cliui.PrintError(cliui.NewUserError(
			fmt.Sprintf("unknown mode %q", *mode),
			"use -mode inject or -mode enum"))
		os.Exit(2)
	}
}

// buildSelector enforces that exactly one of -pid and -name is given,
// before the resolver ever touches the OS.
func buildSelector(pid int, name string) (processes.Selector, error) {
	switch {
	case pid != 0 && name != "":
		return processes.Selector{}, cliui.NewUserError(
			"-pid and -name are mutually exclusive",
			"pass exactly one of them")
	case pid != 0:
		return processes.ByPID(pid), nil
	case name != "":
		return processes.ByName(name), nil
	default:
		return processes.Selector{}, cliui.NewUserError(
			"a target is required",
			"pass -pid <pid> or -name <executable name>")
	}
}

func runInject(logger *core.Logger, cfg *core.Config, pid int, name, dll string) {
	banner.Print(version)

	sel, err := buildSelector(pid, name)
	if err != nil {
		cliui.PrintError(err)
		os.Exit(2)
	}
	if dll == "" {
		cliui.PrintError(cliui.NewUserError(
			"a library is required",
			"pass -dll <path to the DLL to load>"))
		os.Exit(2)
	}

	// The path crosses into the target's loader, which resolves
	// relative paths against the target, not us. Pin it down here.
	dllPath, err := filepath.Abs(dll)
	if err != nil {
		cliui.PrintError(fmt.Errorf("resolving DLL path: %w", err))
		os.Exit(2)
	}

	logger.Debug("host: %s", platform.Summary())

	resolver := processes.NewResolver(logger)
	target, err := resolver.Resolve(sel)
	if err != nil {
		reportResolutionError(err)
		os.Exit(1)
	}
	logger.Info("resolved target: %s (pid %d)", target.Name, target.PID)

	engine := injection.NewEngine(logger)
	engine.SetTimeout(cfg.Injection.Timeout)
	engine.SetPollInterval(cfg.Injection.PollInterval)

	// Ctrl-C abandons the attempt; cleanup still runs. The remote
	// thread, once started, finishes on its own inside the target.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	base, err := engine.Inject(ctx, target, dllPath)
	if err != nil {
		reportInjectionError(err)
		os.Exit(1)
	}

	cliui.Okf("loaded %s into %s (pid %d) at base %#x",
		filepath.Base(dllPath), target.Name, target.PID, base)
}

func runEnum(logger *core.Logger) {
	resolver := processes.NewResolver(logger)
	procs, err := resolver.List()
	if err != nil {
		reportResolutionError(err)
		os.Exit(1)
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"PID", "Name"})
	for _, p := range procs {
		t.AppendRow(table.Row{p.PID, p.Name})
	}
	fmt.Println(t.Render())
}

func reportResolutionError(err error) {
	var (
		ambiguous *processes.AmbiguousTargetError
		enumErr   *processes.EnumerationError
	)
	switch {
	case errors.As(err, &ambiguous):
		cliui.Failf("process name %q matches multiple processes: %v", ambiguous.Name, ambiguous.PIDs)
		cliui.Notef("disambiguate with -pid")
	case errors.Is(err, processes.ErrProcessNotFound):
		cliui.Failf("%v", err)
	case errors.As(err, &enumErr):
		cliui.Failf("could not snapshot the process list: %v", enumErr.Err)
	default:
		cliui.PrintError(err)
	}
}

func reportInjectionError(err error) {
	var injErr *injection.Error
	if !errors.As(err, &injErr) {
		cliui.PrintError(err)
		return
	}

	switch injErr.Kind {
	case injection.KindAccessDenied:
		cliui.Failf("access denied opening the target: %v", injErr.Err)
		if !platform.IsElevated() {
			cliui.Notef("you are not elevated; retry from an elevated prompt")
		} else {
			cliui.Notef("the target may run at a higher integrity or protection level")
		}
	case injection.KindProcessNotFound:
		cliui.Failf("the target exited before it could be opened")
	case injection.KindTargetLoadFailed:
		cliui.Failf("the target's loader rejected the library")
		cliui.Notef("check the DLL's architecture, dependencies, and that the path is valid for the target")
	case injection.KindInjectionTimedOut:
		cliui.Failf("%v", injErr)
		cliui.Notef("the remote thread may still finish inside the target")
	default:
		cliui.Failf("%v", injErr)
	}
}
