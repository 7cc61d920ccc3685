package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const userConfigFile = "config.toml"

func userConfigPath(dataDir string) string {
	return filepath.Join(dataDir, userConfigFile)
}

// decodeOrCreate decodes path into cfg, writing the commented template first
// when the file does not exist yet. cfg keeps its defaults in that case.
func decodeOrCreate(path, template string, cfg any) error {
	if !FileExists(path) {
		if err := EnsureDir(filepath.Dir(path)); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		if err := os.WriteFile(path, []byte(template), 0600); err != nil {
			return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
		}
		return nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

func LoadSystemConfig() (*SystemConfig, error) {
	cfg := DefaultSystemConfig()
	if err := decodeOrCreate(GetSettingsFilePath(), GenerateSystemConfigTemplate(), cfg); err != nil {
		return nil, fmt.Errorf("system config: %w", err)
	}
	return cfg, nil
}

// LoadUserConfig reads <dataDir>/config.toml, creating it on first run.
func LoadUserConfig(dataDir string) (*UserConfig, error) {
	cfg := DefaultUserConfig()
	if err := decodeOrCreate(userConfigPath(dataDir), GenerateUserConfigTemplate(), cfg); err != nil {
		return nil, fmt.Errorf("user config: %w", err)
	}
	return cfg, nil
}

// SaveUserConfig rewrites <dataDir>/config.toml from cfg. Template comments
// are not preserved.
func SaveUserConfig(cfg *UserConfig, dataDir string) error {
	if err := EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	f, err := os.OpenFile(userConfigPath(dataDir), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open user config: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode user config: %w", err)
	}
	return nil
}

// SaveRememberLogin persists the "remember me" choice made on the login
// screen, leaving the rest of the user config as it is on disk.
func SaveRememberLogin(dataDir string, remember bool) error {
	cfg, err := LoadUserConfig(dataDir)
	if err != nil {
		return err
	}
	if cfg.RememberLogin == remember {
		return nil
	}
	cfg.RememberLogin = remember

	if DebugLog != nil {
		DebugLog.Printf("[Config] remember_login = %v", remember)
	}
	return SaveUserConfig(cfg, dataDir)
}
