// Package config parses reloop.toml project configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up by Load.
const FileName = "reloop.toml"

// DefaultAccentColor is the default TUI accent color (indigo).
const DefaultAccentColor = "#7D56F4"

// Prompt modes.
const (
	PromptLine = "line"
	PromptTUI  = "tui"
)

// ErrNotFound is returned by Load when no reloop.toml exists in the working
// directory or any of its parents.
var ErrNotFound = errors.New("config: " + FileName + " not found")

// hexColorRe matches a 6-digit hex color string like "#7D56F4".
var hexColorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Config is the top-level reloop.toml configuration.
type Config struct {
	Project       ProjectConfig       `toml:"project"`
	Modules       ModulesConfig       `toml:"modules"`
	Driver        DriverConfig        `toml:"driver"`
	Prompt        PromptConfig        `toml:"prompt"`
	Notifications NotificationsConfig `toml:"notifications"`
}

// ProjectConfig identifies the project.
type ProjectConfig struct {
	Name string `toml:"name"`
}

// ModulesConfig lists the modules reloaded on every pass.
type ModulesConfig struct {
	Dir                 string   `toml:"dir"`                   // base for relative module paths
	Paths               []string `toml:"paths"`                 // used when no modules are given on the command line
	StartFunctions      []string `toml:"start_functions"`       // unset = ["_initialize"]
	CompilationCacheDir string   `toml:"compilation_cache_dir"` // empty = no on-disk cache
}

// DriverConfig controls the driver used by `reloop run`.
type DriverConfig struct {
	Call string `toml:"call"` // export called on every module
}

// PromptConfig controls how the operator is asked for a decision.
type PromptConfig struct {
	Mode        string `toml:"mode"` // "line" or "tui"
	AccentColor string `toml:"accent_color"`
}

// NotificationsConfig controls webhook/ntfy.sh notifications.
type NotificationsConfig struct {
	URL      string `toml:"url"`
	OnResult bool   `toml:"on_result"`
	OnError  bool   `toml:"on_error"`
	OnDone   bool   `toml:"on_done"`
}

// Validate checks the configuration for issues that would cause confusing
// runtime failures. It returns all found issues joined together.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Driver.Call) == "" {
		errs = append(errs, fmt.Errorf("driver.call must not be empty"))
	}
	for i, p := range c.Modules.Paths {
		if strings.TrimSpace(p) == "" {
			errs = append(errs, fmt.Errorf("modules.paths[%d] must not be empty", i))
		}
	}
	for i, fn := range c.Modules.StartFunctions {
		if fn == "" {
			errs = append(errs, fmt.Errorf("modules.start_functions[%d] must not be empty", i))
		}
	}

	switch c.Prompt.Mode {
	case PromptLine, PromptTUI:
	default:
		errs = append(errs, fmt.Errorf("prompt.mode must be %q or %q", PromptLine, PromptTUI))
	}
	if c.Prompt.AccentColor != "" && !hexColorRe.MatchString(c.Prompt.AccentColor) {
		errs = append(errs, fmt.Errorf("prompt.accent_color must be a hex color (e.g. \"#7D56F4\")"))
	}

	if c.Notifications.URL != "" {
		u, parseErr := url.ParseRequestURI(c.Notifications.URL)
		if parseErr != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Errorf("notifications.url must be a valid http or https URL"))
		}
	}

	return errors.Join(errs...)
}

// Defaults returns a Config with sensible defaults.
func Defaults() Config {
	return Config{
		Modules: ModulesConfig{
			Dir: ".",
		},
		Driver: DriverConfig{
			Call: "run",
		},
		Prompt: PromptConfig{
			Mode:        PromptLine,
			AccentColor: DefaultAccentColor,
		},
		Notifications: NotificationsConfig{
			OnResult: false,
			OnError:  true,
			OnDone:   true,
		},
	}
}

// Load reads reloop.toml from the given path. If path is empty, it walks up
// from the current working directory looking for reloop.toml. Returns an
// error if the file contains unknown keys (likely typos). Relative module and
// cache directories are resolved against the file's directory.
func Load(path string) (*Config, error) {
	if path == "" {
		found, err := findConfig()
		if err != nil {
			return nil, err
		}
		path = found
	}

	cfg := Defaults()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("config: unknown keys in %s: %s (possible typos?)", path, joinKeys(keys))
	}

	root := filepath.Dir(path)
	cfg.Modules.Dir = resolveDir(root, cfg.Modules.Dir)
	if cfg.Modules.CompilationCacheDir != "" {
		cfg.Modules.CompilationCacheDir = resolveDir(root, cfg.Modules.CompilationCacheDir)
	}

	if cfg.Project.Name == "" {
		cfg.Project.Name = DetectProjectName(root)
	}

	return &cfg, nil
}

func resolveDir(root, dir string) string {
	if dir == "" {
		return root
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(root, dir)
}

// joinKeys formats a slice of key names for display.
func joinKeys(keys []string) string {
	return strings.Join(keys, ", ")
}

// findConfig walks up from the current directory looking for reloop.toml.
func findConfig() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("config: get working directory: %w", err)
	}

	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("%w (searched up from %s)", ErrNotFound, dir)
		}
		dir = parent
	}
}

// InitFile writes a default reloop.toml template to the given directory.
func InitFile(dir string) (string, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("config: %s already exists at %s", FileName, path)
	}

	content := `# reloop.toml: reload-and-retry loop configuration
# Place this file in the root of your project.

[project]
name = ""

[modules]
dir = "modules"                         # base for relative module paths
paths = []                              # e.g. ["greeter.wasm", "adder"]
# start_functions = ["_initialize"]
compilation_cache_dir = ".reloop/cache" # empty = compile in memory only

[driver]
call = "run"  # export called on every module, in order

[prompt]
mode = "line"              # "line" or "tui"
accent_color = "#7D56F4"   # hex color for the tui prompt

[notifications]
url = ""          # ntfy.sh topic URL or any HTTP webhook (empty = disabled)
on_result = false # notify on every driver result
on_error = true   # notify when the driver rejects
on_done = true    # notify when the loop finishes
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("config: write %s: %w", path, err)
	}
	return path, nil
}
