// Package daemonconfig loads the ambient configuration for cmd/polkitd:
// where policy and override files live, where the authorization store
// keeps its two roots, and how the process logs and drops privileges.
// Layered the way internal/config/koanf.go in the reference cartography
// codebase does it: struct defaults, then an optional YAML file, then
// environment variables, highest priority last.
package daemonconfig

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched, in order, for a config
// file when PathEnvVar is unset. The first one found wins.
var DefaultConfigPaths = []string{
	"polkitd.yaml",
	"/etc/polkitgo/polkitd.yaml",
}

// PathEnvVar names the environment variable that overrides the config
// file search above with an explicit path.
const PathEnvVar = "POLKITD_CONFIG"

// PolicyConfig locates the .policy action description directory.
type PolicyConfig struct {
	Dir string `koanf:"dir"`
}

// OverridesConfig locates the local-rules configuration override file.
type OverridesConfig struct {
	Path string `koanf:"path"`
}

// StoreConfig locates the two authorization store roots (spec.md §4.5).
type StoreConfig struct {
	PersistentRoot string `koanf:"persistent_root"`
	TransientRoot  string `koanf:"transient_root"`
}

// PrivilegeConfig names the unprivileged user/group cmd/polkitd drops to
// before its supervisor tree starts, and so before the observability
// listener binds.
type PrivilegeConfig struct {
	User  string `koanf:"user"`
	Group string `koanf:"group"`
}

// AdminConfig names the OS group whose members hold the metaauthz
// "admin" role (spec.md §7): permission to read, revoke, and grant
// authorizations belonging to other uids, and to modify policy defaults.
type AdminConfig struct {
	Group      string `koanf:"group"`
	PolicyPath string `koanf:"policy_path"`
}

// ServerConfig holds the observability HTTP listener settings.
type ServerConfig struct {
	MetricsAddr string        `koanf:"metrics_addr"`
	Timeout     time.Duration `koanf:"timeout"`
}

// LoggingConfig mirrors internal/logging.Config's shape for koanf tags.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Config is the full daemon configuration tree.
type Config struct {
	Policy    PolicyConfig    `koanf:"policy"`
	Overrides OverridesConfig `koanf:"overrides"`
	Store     StoreConfig     `koanf:"store"`
	Privilege PrivilegeConfig `koanf:"privilege"`
	Admin     AdminConfig     `koanf:"admin"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
}

func defaultConfig() *Config {
	return &Config{
		Policy: PolicyConfig{
			Dir: "/usr/share/polkit-1/actions",
		},
		Overrides: OverridesConfig{
			Path: "/etc/polkit-1/polkitgo.conf",
		},
		Store: StoreConfig{
			PersistentRoot: "/var/lib/polkit-1",
			TransientRoot:  "/run/polkit-1",
		},
		Privilege: PrivilegeConfig{
			User:  "polkitd",
			Group: "polkitd",
		},
		Admin: AdminConfig{
			Group: "wheel",
		},
		Server: ServerConfig{
			MetricsAddr: "127.0.0.1:9090",
			Timeout:     10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the layered configuration: defaults, then an optional YAML
// file (PathEnvVar or the first DefaultConfigPaths entry that exists),
// then environment variables prefixed POLKITD_.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("daemonconfig: load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("daemonconfig: load config file %s: %w", path, err)
		}
	}

	envProvider := env.Provider("POLKITD_", ".", envTransform)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("daemonconfig: load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("daemonconfig: unmarshal: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("daemonconfig: validate: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envTransform turns POLKITD_STORE_PERSISTENT_ROOT into store.persistent_root.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, "POLKITD_"))
	return strings.Replace(s, "_", ".", 1)
}

// Validate checks the fields cmd/polkitd cannot safely proceed without.
func (c *Config) Validate() error {
	if c.Policy.Dir == "" {
		return fmt.Errorf("policy.dir must not be empty")
	}
	if c.Store.PersistentRoot == "" || c.Store.TransientRoot == "" {
		return fmt.Errorf("store.persistent_root and store.transient_root must not be empty")
	}
	if c.Store.PersistentRoot == c.Store.TransientRoot {
		return fmt.Errorf("store.persistent_root and store.transient_root must differ")
	}
	if c.Privilege.User == "" {
		return fmt.Errorf("privilege.user must not be empty")
	}
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of trace|debug|info|warn|error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format %q is not one of json|console", c.Logging.Format)
	}
	return nil
}
