package module

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Ext is appended to identifiers without an extension when the bare path
// does not exist.
const Ext = ".wasm"

// Resolve maps a module identifier to a file path. Relative identifiers are
// resolved against dir.
func Resolve(dir, id string) (string, error) {
	path := id
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}

	found, err := isFile(path)
	if err != nil {
		return "", err
	}
	if found {
		return path, nil
	}

	if filepath.Ext(path) == "" {
		alt := path + Ext
		if found, err := isFile(alt); err != nil {
			return "", err
		} else if found {
			return alt, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, path)
}

func isFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return false, nil
	}
	return true, nil
}
