// Package reloop runs an interactive reload-and-retry loop over WebAssembly
// modules. Each pass reloads every module from disk, hands the fresh
// instances to a driver function and reports the outcome. The operator then
// enters "r" to run again with edited modules or "c" to finish with the last
// result.
package reloop

import (
	"context"
	"io"
	"os"

	"github.com/LISSConsulting/LISSTech.Reloop/internal/loop"
	"github.com/LISSConsulting/LISSTech.Reloop/internal/module"
	"github.com/LISSConsulting/LISSTech.Reloop/internal/prompt"
	"github.com/LISSConsulting/LISSTech.Reloop/internal/report"
)

// Instance is a freshly loaded module handed to the driver.
type Instance = module.Instance

// Entry is a report entry delivered to hooks.
type Entry = report.Entry

// Decision is an operator's answer to a prompt.
type Decision = prompt.Decision

// Decisions.
const (
	Rerun    = prompt.Rerun
	Continue = prompt.Continue
)

// Prompter asks the operator for a decision.
type Prompter = loop.Prompter

// Errors returned by Run.
var (
	ErrConfiguration = loop.ErrConfiguration
	ErrInterrupted   = prompt.ErrInterrupted
	ErrInputClosed   = prompt.ErrInputClosed
)

// ReloadError is returned when the operator continues after a module failed
// to reload.
type ReloadError = module.ReloadError

type options struct {
	dir            string
	cacheDir       string
	startFunctions []string
	out            io.Writer
	in             *os.File
	prompter       Prompter
	hook           func(Entry)
}

// Option configures Run.
type Option func(*options)

// WithDir resolves relative module identifiers against dir instead of the
// working directory.
func WithDir(dir string) Option {
	return func(o *options) { o.dir = dir }
}

// WithCompilationCache persists compiled modules in dir across runs.
func WithCompilationCache(dir string) Option {
	return func(o *options) { o.cacheDir = dir }
}

// WithStartFunctions sets the exports run when an instance is created.
func WithStartFunctions(names ...string) Option {
	return func(o *options) { o.startFunctions = append([]string{}, names...) }
}

// WithOutput sends reports, the prompt and module output to w instead of
// os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithInput reads operator keystrokes from f instead of os.Stdin. A terminal
// is put into raw mode while a prompt is active.
func WithInput(f *os.File) Option {
	return func(o *options) { o.in = f }
}

// WithPrompter replaces the line prompter.
func WithPrompter(p Prompter) Option {
	return func(o *options) { o.prompter = p }
}

// WithHook calls fn with every report entry.
func WithHook(fn func(Entry)) Option {
	return func(o *options) { o.hook = fn }
}

// Run reloads modules, calls driver with the instances in the given order,
// reports the outcome and asks the operator whether to run again. It returns
// the value or error of the last driver call once the operator continues.
// Instances are closed when Run returns.
func Run[T any](ctx context.Context, modules []string, driver func(ctx context.Context, mods ...*Instance) (T, error), opts ...Option) (T, error) {
	o := options{out: os.Stdout, in: os.Stdin}
	for _, opt := range opts {
		opt(&o)
	}

	var zero T
	req := loop.Request[T]{Modules: modules, Driver: driver}
	if err := req.Validate(); err != nil {
		return zero, err
	}

	r, err := module.New(ctx, module.Options{
		Dir:                 o.dir,
		CompilationCacheDir: o.cacheDir,
		StartFunctions:      o.startFunctions,
		Stdout:              o.out,
	})
	if err != nil {
		return zero, err
	}
	defer func() { _ = r.Close(context.WithoutCancel(ctx)) }()

	sink := &report.Sink{Log: o.out, Hook: o.hook}
	p := o.prompter
	if p == nil {
		p = prompt.NewLine(prompt.NewTerminal(o.in), o.out, sink)
	}

	lp := &loop.Loop[T]{Reloader: r, Prompter: p, Report: sink}
	return lp.Run(ctx, req)
}
