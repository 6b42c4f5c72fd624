package mcpreg

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigName is the file name searched when LoadConfig is called with
// an empty path.
const DefaultConfigName = "mcp_server_config.yaml"

// ServerParams declare how a single MCP server subprocess is launched.
type ServerParams struct {
	// Command is the executable to run.
	Command string `yaml:"command"`
	// Args are command-line arguments passed to the executable.
	Args []string `yaml:"args"`
	// Env are additional environment variables for the subprocess, merged
	// over the parent environment.
	Env map[string]string `yaml:"env"`
	// Cwd optionally sets the subprocess working directory.
	Cwd string `yaml:"cwd"`
}

// ServerEntry is one named server in the configuration file.
type ServerEntry struct {
	Params ServerParams `yaml:"params"`
	// CacheToolsList controls whether the tool list is cached after the
	// first fetch. Defaults to true when omitted.
	CacheToolsList *bool `yaml:"cache_tools_list"`
}

// CacheEnabled resolves the cache_tools_list flag, applying the default.
func (e ServerEntry) CacheEnabled() bool {
	if e.CacheToolsList == nil {
		return true
	}
	return *e.CacheToolsList
}

// Config is the parsed configuration document. Immutable after load.
type Config struct {
	Servers map[string]ServerEntry `yaml:"servers"`
}

// DefaultConfigPaths returns the search order used when no explicit path is
// given: the working directory first, then ~/.config/mcpreg/.
func DefaultConfigPaths() []string {
	paths := []string{DefaultConfigName}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "mcpreg", DefaultConfigName))
	}
	return paths
}

// LoadConfigFile reads and parses a configuration document. When path is
// empty, DefaultConfigPaths are searched and the first existing file wins.
// Failures are reported as *ConfigError.
func LoadConfigFile(path string) (*Config, error) {
	resolved, err := resolveConfigPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, &ConfigError{Path: resolved, Err: err}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &ConfigError{Path: resolved, Err: err}
	}
	for name, entry := range cfg.Servers {
		if entry.Params.Command == "" {
			return nil, &ConfigError{
				Path: resolved,
				Err:  fmt.Errorf("server %q: params.command is required", name),
			}
		}
	}
	return &cfg, nil
}

func resolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", &ConfigError{Path: explicit, Err: err}
		}
		return explicit, nil
	}
	paths := DefaultConfigPaths()
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", &ConfigError{
		Path: DefaultConfigName,
		Err:  fmt.Errorf("no configuration file found (searched %v)", paths),
	}
}
