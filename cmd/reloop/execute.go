package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LISSConsulting/LISSTech.Reloop/internal/config"
	"github.com/LISSConsulting/LISSTech.Reloop/internal/loop"
	"github.com/LISSConsulting/LISSTech.Reloop/internal/module"
	"github.com/LISSConsulting/LISSTech.Reloop/internal/notify"
	"github.com/LISSConsulting/LISSTech.Reloop/internal/prompt"
	"github.com/LISSConsulting/LISSTech.Reloop/internal/report"
	"github.com/LISSConsulting/LISSTech.Reloop/internal/telemetry"
	"github.com/LISSConsulting/LISSTech.Reloop/internal/tui"
)

// runOptions carries the flags and stdio of `reloop run`.
type runOptions struct {
	configPath string
	call       string
	tui        bool
	modules    []string
	in         *os.File
	out        io.Writer
}

// executeRun loads config, wires the reloader, prompter and report sink, and
// runs the loop until the operator continues.
func executeRun(parent context.Context, opts runOptions) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.call != "" {
		cfg.Driver.Call = opts.call
	}
	if opts.tui {
		cfg.Prompt.Mode = config.PromptTUI
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	modules, err := resolveModules(opts.modules, cfg.Modules.Paths)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(parent)
	defer cancel()
	registerQuitHandler()

	shutdown, err := telemetry.Setup(ctx, "reloop")
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = shutdown(flushCtx)
	}()

	sink := &report.Sink{Log: opts.out}
	if cfg.Notifications.URL != "" {
		n := notify.New(cfg.Notifications.URL, cfg.Project.Name,
			cfg.Notifications.OnResult, cfg.Notifications.OnError, cfg.Notifications.OnDone)
		sink.Hook = n.Hook
		defer n.Wait()
	}

	var prompter loop.Prompter
	if cfg.Prompt.Mode == config.PromptTUI {
		p := tui.NewPrompter(opts.in, opts.out, sink, cfg.Prompt.AccentColor)
		sink.Format = p.Theme.RenderEntry
		prompter = p
	} else {
		prompter = prompt.NewLine(prompt.NewTerminal(opts.in), opts.out, sink)
	}

	reloader, err := module.New(ctx, module.Options{
		Dir:                 cfg.Modules.Dir,
		CompilationCacheDir: cfg.Modules.CompilationCacheDir,
		StartFunctions:      cfg.Modules.StartFunctions,
		Stdout:              opts.out,
	})
	if err != nil {
		return err
	}
	defer func() { _ = reloader.Close(context.WithoutCancel(ctx)) }()

	lp := &loop.Loop[callResults]{
		Reloader: reloader,
		Prompter: prompter,
		Report:   sink,
	}
	_, err = lp.Run(ctx, loop.Request[callResults]{
		Modules: modules,
		Driver:  callDriver(cfg.Driver.Call),
	})
	return err
}

// loadConfig loads reloop.toml. Without an explicit path and without a file
// in any parent directory the defaults are used.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if path != "" || !errors.Is(err, config.ErrNotFound) {
		return nil, err
	}

	dir, wdErr := os.Getwd()
	if wdErr != nil {
		return nil, fmt.Errorf("get working directory: %w", wdErr)
	}
	d := config.Defaults()
	d.Modules.Dir = dir
	d.Project.Name = config.DetectProjectName(dir)
	return &d, nil
}

// resolveModules prefers modules named on the command line over the
// configured paths.
func resolveModules(args, configured []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if len(configured) > 0 {
		return configured, nil
	}
	return nil, errors.New("no modules: pass them as arguments or set [modules] paths in reloop.toml")
}

// signalContext returns a context that is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
