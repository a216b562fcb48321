package module

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// DefaultStartFunctions are run on every new instance when they are exported.
// Reactor-style modules export _initialize; command-style _start is not run
// because it would execute main and exit.
var DefaultStartFunctions = []string{"_initialize"}

// Options configures a Reloader.
type Options struct {
	// Dir resolves relative module identifiers. Defaults to the working directory.
	Dir string

	// CompilationCacheDir, when set, persists compiled machine code across
	// processes. Entries are keyed by module content, so edits still recompile.
	CompilationCacheDir string

	// StartFunctions overrides DefaultStartFunctions. An empty non-nil slice
	// disables start functions.
	StartFunctions []string

	// Stdout and Stderr receive the modules' WASI output. Default to os.Stdout
	// and os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

type cached struct {
	compiled wazero.CompiledModule
	digest   uint64
	exports  []string
}

// Reloader compiles and instantiates modules with a single wazero runtime.
// Compiled modules are cached per resolved path until invalidated.
type Reloader struct {
	opts    Options
	runtime wazero.Runtime

	mu    sync.Mutex
	cache map[string]*cached
}

// New creates a Reloader with WASI preview1 available to the modules.
func New(ctx context.Context, opts Options) (*Reloader, error) {
	if opts.Dir == "" {
		dir, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("module: get working directory: %w", err)
		}
		opts.Dir = dir
	}
	if opts.StartFunctions == nil {
		opts.StartFunctions = DefaultStartFunctions
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	cfg := wazero.NewRuntimeConfig()
	if opts.CompilationCacheDir != "" {
		cache, err := wazero.NewCompilationCacheWithDir(opts.CompilationCacheDir)
		if err != nil {
			return nil, fmt.Errorf("module: compilation cache %s: %w", opts.CompilationCacheDir, err)
		}
		cfg = cfg.WithCompilationCache(cache)
	}

	r := wazero.NewRuntimeWithConfig(ctx, cfg)
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("module: instantiate wasi: %w", err)
	}

	return &Reloader{
		opts:    opts,
		runtime: r,
		cache:   make(map[string]*cached),
	}, nil
}

// Reload invalidates any cached compilation of id and loads it again. It
// never panics or returns an error directly; failures are reported as a
// Failed outcome carrying a *ReloadError.
func (r *Reloader) Reload(ctx context.Context, id string) (out Outcome) {
	defer func() {
		if p := recover(); p != nil {
			out = Failed(&ReloadError{ID: id, Err: fmt.Errorf("panic: %v", p)})
		}
	}()

	if err := r.Invalidate(ctx, id); err != nil {
		return Failed(&ReloadError{ID: id, Err: err})
	}
	inst, err := r.Load(ctx, id)
	if err != nil {
		return Failed(&ReloadError{ID: id, Err: err})
	}
	return Loaded(inst)
}

// Invalidate drops the cached compilation for id. Instances created from it
// stay usable until they are closed.
func (r *Reloader) Invalidate(ctx context.Context, id string) error {
	path, err := Resolve(r.opts.Dir, id)
	if err != nil {
		// Nothing on disk means nothing worth keeping in the cache either.
		path = id
	}

	r.mu.Lock()
	c, ok := r.cache[path]
	delete(r.cache, path)
	r.mu.Unlock()

	if !ok {
		return nil
	}
	if err := c.compiled.Close(ctx); err != nil {
		return fmt.Errorf("close compiled %s: %w", path, err)
	}
	return nil
}

// Load returns a new instance of id, compiling it if no cached compilation
// exists.
func (r *Reloader) Load(ctx context.Context, id string) (*Instance, error) {
	path, err := Resolve(r.opts.Dir, id)
	if err != nil {
		return nil, err
	}

	c, err := r.compiled(ctx, path)
	if err != nil {
		return nil, err
	}

	cfg := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions(r.opts.StartFunctions...).
		WithStdout(r.opts.Stdout).
		WithStderr(r.opts.Stderr).
		WithSysWalltime().
		WithSysNanotime()

	mod, err := r.runtime.InstantiateModule(ctx, c.compiled, cfg)
	if err != nil {
		return nil, fmt.Errorf("instantiate %s: %w", path, err)
	}

	return &Instance{
		ID:       id,
		Path:     path,
		Digest:   c.digest,
		LoadedAt: time.Now(),
		Exports:  c.exports,
		mod:      mod,
	}, nil
}

// Close releases the runtime and every module compiled or instantiated by it.
func (r *Reloader) Close(ctx context.Context) error {
	r.mu.Lock()
	r.cache = make(map[string]*cached)
	r.mu.Unlock()
	return r.runtime.Close(ctx)
}

func (r *Reloader) compiled(ctx context.Context, path string) (*cached, error) {
	r.mu.Lock()
	c, ok := r.cache[path]
	r.mu.Unlock()
	if ok {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	compiled, err := r.runtime.CompileModule(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", path, err)
	}

	exports := make([]string, 0, len(compiled.ExportedFunctions()))
	for name := range compiled.ExportedFunctions() {
		exports = append(exports, name)
	}
	sort.Strings(exports)

	c = &cached{compiled: compiled, digest: xxhash.Sum64(data), exports: exports}
	r.mu.Lock()
	r.cache[path] = c
	r.mu.Unlock()
	return c, nil
}
