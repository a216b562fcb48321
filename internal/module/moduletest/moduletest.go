// Package moduletest builds tiny WebAssembly modules for tests.
package moduletest

import (
	"os"
	"path/filepath"
	"testing"
)

// Const returns a module exporting "run", a function of no arguments that
// returns the i32 constant v. v must be below 0x40 to fit a single-byte
// signed LEB128 immediate.
func Const(v byte) []byte {
	return []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, // magic, version
		0x01, 0x05, 0x01, 0x60, 0x00, 0x01, 0x7f, // type: () -> i32
		0x03, 0x02, 0x01, 0x00, // func 0 uses type 0
		0x07, 0x07, 0x01, 0x03, 'r', 'u', 'n', 0x00, 0x00, // export "run"
		0x0a, 0x06, 0x01, 0x04, 0x00, 0x41, v, 0x0b, // i32.const v; end
	}
}

// Write writes data to dir/name, failing the test on error.
func Write(t testing.TB, dir, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		t.Fatal(err)
	}
}
