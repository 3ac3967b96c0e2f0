package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/tidwall/sjson"
)

const (
	appName              = "shellbox"
	defaultDataDirectory = ".shellbox"

	// MaxOutputLengthEnv overrides the tool output truncation limit.
	MaxOutputLengthEnv     = "SHELLBOX_MAX_OUTPUT_LENGTH"
	defaultMaxOutputLength = 30_000
	maxOutputLengthCeiling = 120_000
)

// ApprovalMode is the ambient policy governing whether tool calls are
// auto-approved without per-call confirmation.
type ApprovalMode string

const (
	// ApprovalDefault prompts for anything that is not read-only.
	ApprovalDefault ApprovalMode = "default"
	// ApprovalAcceptEdits auto-approves write-category tool calls.
	ApprovalAcceptEdits ApprovalMode = "accept-edits"
	// ApprovalYOLO auto-approves everything except always-interactive tools.
	ApprovalYOLO ApprovalMode = "yolo"
)

func (m ApprovalMode) Valid() bool {
	return slices.Contains([]ApprovalMode{ApprovalDefault, ApprovalAcceptEdits, ApprovalYOLO}, m)
}

type Permissions struct {
	AllowedTools []string `json:"allowed_tools,omitempty"` // Tools that don't require permission prompts
	SkipRequests bool     `json:"-"`                       // Automatically accept all permissions (YOLO mode)
}

type Options struct {
	Debug         bool   `json:"debug,omitempty"`
	DataDirectory string `json:"data_directory,omitempty"` // Relative to the cwd
}

type Config struct {
	ApprovalMode ApprovalMode `json:"approval_mode,omitempty"`
	Permissions  *Permissions `json:"permissions,omitempty"`
	Options      *Options     `json:"options,omitempty"`

	workingDir string
	path       string
}

// GlobalConfig returns the path of the global configuration file.
func GlobalConfig() string {
	if dir := os.Getenv("SHELLBOX_CONFIG_DIR"); dir != "" {
		return filepath.Join(dir, appName+".json")
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = defaultDataDirectory
	}
	return filepath.Join(dir, appName, appName+".json")
}

// Load reads the configuration for the given working directory, layering the
// local project file over the global one. A missing file is not an error.
func Load(workingDir string, debug bool) (*Config, error) {
	cfg := &Config{
		workingDir: workingDir,
		path:       GlobalConfig(),
	}
	for _, path := range []string{GlobalConfig(), filepath.Join(workingDir, defaultDataDirectory, appName+".json")} {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("could not read config %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("could not parse config %s: %w", path, err)
		}
	}
	if cfg.ApprovalMode == "" {
		cfg.ApprovalMode = ApprovalDefault
	}
	if !cfg.ApprovalMode.Valid() {
		return nil, fmt.Errorf("invalid approval mode %q", cfg.ApprovalMode)
	}
	if cfg.Permissions == nil {
		cfg.Permissions = &Permissions{}
	}
	if cfg.Options == nil {
		cfg.Options = &Options{}
	}
	if debug {
		cfg.Options.Debug = true
	}
	cfg.Permissions.SkipRequests = cfg.ApprovalMode == ApprovalYOLO
	return cfg, nil
}

// WorkingDir returns the directory the configuration was loaded for.
func (c *Config) WorkingDir() string {
	return c.workingDir
}

// DataDir returns the resolved data directory for logs and state.
func (c *Config) DataDir() string {
	dir := c.Options.DataDirectory
	if dir == "" {
		dir = defaultDataDirectory
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(c.workingDir, dir)
	}
	return dir
}

// AllowTool persists a tool into the global allowed-tools list.
func (c *Config) AllowTool(name string) error {
	if slices.Contains(c.Permissions.AllowedTools, name) {
		return nil
	}
	c.Permissions.AllowedTools = append(c.Permissions.AllowedTools, name)

	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		data = []byte("{}")
	} else if err != nil {
		return err
	}
	updated, err := sjson.Set(string(data), "permissions.allowed_tools", c.Permissions.AllowedTools)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.path, []byte(updated), 0o644)
}

// MaxOutputLength resolves the output truncation limit from the environment,
// clamped between the default and the hard ceiling.
func MaxOutputLength() int {
	raw := os.Getenv(MaxOutputLengthEnv)
	if raw == "" {
		return defaultMaxOutputLength
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return defaultMaxOutputLength
	}
	return min(n, maxOutputLengthCeiling)
}
