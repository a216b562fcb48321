// Package module loads WebAssembly modules from disk and reloads them on
// demand. A reload always invalidates the cached compilation first, so the
// returned instance reflects the file as it is on disk right now.
package module

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tetratelabs/wazero/api"
)

// ErrNotFound is returned when a module identifier does not resolve to a file.
var ErrNotFound = errors.New("module not found")

// ErrNoExport is returned by Instance.Call for a function the module does
// not export.
var ErrNoExport = errors.New("function not exported")

// ReloadError describes a failure to locate, compile or instantiate a module.
type ReloadError struct {
	ID  string
	Err error
}

func (e *ReloadError) Error() string {
	return fmt.Sprintf("reload %s: %v", e.ID, e.Err)
}

func (e *ReloadError) Unwrap() error { return e.Err }

// Instance is a live module produced by a reload.
type Instance struct {
	ID       string    // identifier as configured
	Path     string    // resolved file path
	Digest   uint64    // xxhash64 of the bytes that were loaded
	LoadedAt time.Time // when the instance was created
	Exports  []string  // exported function names, sorted

	mod api.Module
}

// Call invokes an exported function with raw wasm parameters.
func (i *Instance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	if i.mod == nil {
		return nil, fmt.Errorf("module %s: %w: %s", i.ID, ErrNoExport, name)
	}
	fn := i.mod.ExportedFunction(name)
	if fn == nil {
		return nil, fmt.Errorf("module %s: %w: %s", i.ID, ErrNoExport, name)
	}
	return fn.Call(ctx, params...)
}

// Close releases the instance. Closing an Instance that was never
// instantiated is a no-op.
func (i *Instance) Close(ctx context.Context) error {
	if i == nil || i.mod == nil {
		return nil
	}
	return i.mod.Close(ctx)
}

// String returns the identifier and a short form of the digest.
func (i *Instance) String() string {
	return fmt.Sprintf("%s@%08x", i.ID, uint32(i.Digest))
}

// Outcome is the result of reloading one identifier: either Loaded with an
// instance, or Failed with a *ReloadError.
type Outcome struct {
	Instance *Instance
	Err      error
}

// Loaded returns an outcome carrying a fresh instance.
func Loaded(inst *Instance) Outcome {
	return Outcome{Instance: inst}
}

// Failed returns an outcome carrying a reload error.
func Failed(err error) Outcome {
	return Outcome{Err: err}
}

// Failed reports whether the reload failed.
func (o Outcome) Failed() bool {
	return o.Err != nil
}
