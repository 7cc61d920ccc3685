package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DefaultGatewayURL = "http://localhost:8000/api"
	DefaultTimeout    = 60 * time.Second
	DefaultPlacement  = "prepend"
)

type SystemConfig struct {
	DataDirectory string `toml:"data_directory"`
}

type GatewayConfig struct {
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"`
}

type ConversationsConfig struct {
	CreatePlacement string `toml:"create_placement"`
}

type UserConfig struct {
	Gateway       GatewayConfig       `toml:"gateway"`
	Conversations ConversationsConfig `toml:"conversations"`
	RememberLogin bool                `toml:"remember_login"`
}

// EnvOverrides are read from the environment after the config files and win
// over them.
type EnvOverrides struct {
	GatewayURL    string        `env:"COMPANION_GATEWAY_URL"`
	Timeout       time.Duration `env:"COMPANION_TIMEOUT"`
	DataDirectory string        `env:"COMPANION_DATA_DIR"`
	Placement     string        `env:"COMPANION_PLACEMENT"`
}

type Config struct {
	DataDirectory   string
	GatewayURL      string
	Timeout         time.Duration
	CreatePlacement string
	RememberLogin   bool
}

var Debug = false
var DebugLog *log.Logger

func (c *Config) DataDir() string {
	return ExpandPath(c.DataDirectory)
}

// Validate checks the values that cannot be fixed up silently.
func (c *Config) Validate() error {
	u, err := url.Parse(c.GatewayURL)
	if err != nil {
		return fmt.Errorf("invalid gateway url %q: %w", c.GatewayURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid gateway url %q: scheme must be http or https", c.GatewayURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid gateway url %q: missing host", c.GatewayURL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("invalid gateway timeout %s", c.Timeout)
	}
	switch strings.ToLower(c.CreatePlacement) {
	case "prepend", "append":
	default:
		return fmt.Errorf("invalid create_placement %q: must be prepend or append", c.CreatePlacement)
	}
	return nil
}

func (c *Config) applyUserConfig(userCfg *UserConfig) error {
	if userCfg.Gateway.BaseURL != "" {
		c.GatewayURL = userCfg.Gateway.BaseURL
	}
	if userCfg.Gateway.Timeout != "" {
		timeout, err := time.ParseDuration(userCfg.Gateway.Timeout)
		if err != nil {
			return fmt.Errorf("invalid gateway timeout %q: %w", userCfg.Gateway.Timeout, err)
		}
		c.Timeout = timeout
	}
	if userCfg.Conversations.CreatePlacement != "" {
		c.CreatePlacement = userCfg.Conversations.CreatePlacement
	}
	c.RememberLogin = userCfg.RememberLogin
	return nil
}

func (c *Config) applyEnvOverrides(env EnvOverrides) {
	if env.GatewayURL != "" {
		c.GatewayURL = env.GatewayURL
	}
	if env.Timeout != 0 {
		c.Timeout = env.Timeout
	}
	if env.DataDirectory != "" {
		c.DataDirectory = env.DataDirectory
	}
	if env.Placement != "" {
		c.CreatePlacement = env.Placement
	}
}

// ReadEnvOverrides reads the COMPANION_* variables.
func ReadEnvOverrides() (EnvOverrides, error) {
	var env EnvOverrides
	if err := cleanenv.ReadEnv(&env); err != nil {
		return EnvOverrides{}, fmt.Errorf("failed to read environment: %w", err)
	}
	return env, nil
}

func CheckDebug() bool {
	debug := os.Getenv("COMPANION_DEBUG")
	return debug == "true" || debug == "1"
}

func InitDebugLog(dataDir string) {
	if !CheckDebug() {
		return
	}

	Debug = true
	logPath := filepath.Join(dataDir, "debug.log")

	// 0600: the log contains conversation ids and gateway error bodies
	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not open debug log at %s: %v\n", logPath, err)
		return
	}

	DebugLog = log.New(f, "", log.Ldate|log.Ltime|log.Lmicroseconds|log.Lshortfile)
	DebugLog.Printf("=== Debug logging started (COMPANION_DEBUG=%s) ===", os.Getenv("COMPANION_DEBUG"))
	DebugLog.Printf("Log path: %s", logPath)
}

// Load reads settings.toml and the user config.toml (creating both from
// templates on first run), then applies environment overrides.
func Load() (*Config, error) {
	env, err := ReadEnvOverrides()
	if err != nil {
		return nil, err
	}
	return load(env)
}

func load(env EnvOverrides) (*Config, error) {
	cfg := &Config{
		DataDirectory:   GetDefaultDataDir(),
		GatewayURL:      DefaultGatewayURL,
		Timeout:         DefaultTimeout,
		CreatePlacement: DefaultPlacement,
	}

	if env.DataDirectory != "" {
		cfg.DataDirectory = env.DataDirectory
	} else {
		systemCfg, err := LoadSystemConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load system config: %w", err)
		}
		if systemCfg.DataDirectory != "" {
			cfg.DataDirectory = systemCfg.DataDirectory
		}
	}

	dataDir := cfg.DataDir()
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	if err := EnsureDataDirPermissions(dataDir); err != nil {
		return nil, fmt.Errorf("failed to set data directory permissions: %w", err)
	}

	userCfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	}
	if err := cfg.applyUserConfig(userCfg); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides(env)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
