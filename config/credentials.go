package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

const credentialsFile = "credentials.toml"

type credentialsFileData struct {
	AccessToken string `toml:"access_token"`
	TokenType   string `toml:"token_type,omitempty"`
}

// TokenStore holds the bearer token of the logged in user. It satisfies the
// gateway's token source. Persistence is optional and plaintext.
type TokenStore struct {
	mu    sync.RWMutex
	token string
}

func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Token returns the current token, or "" when logged out.
func (s *TokenStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *TokenStore) Set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *TokenStore) Clear() {
	s.Set("")
}

// Load reads a previously saved token. A missing file leaves the store empty.
func (s *TokenStore) Load(dataDir string) error {
	path := filepath.Join(dataDir, credentialsFile)
	if !FileExists(path) {
		return nil
	}

	var data credentialsFileData
	if _, err := toml.DecodeFile(path, &data); err != nil {
		return fmt.Errorf("failed to parse credentials: %w", err)
	}

	s.Set(data.AccessToken)
	if DebugLog != nil {
		DebugLog.Printf("[Credentials] Loaded saved token from %s", path)
	}
	return nil
}

// Save writes the current token to <dataDir>/credentials.toml. An empty token
// removes the file.
func (s *TokenStore) Save(dataDir string) error {
	path := filepath.Join(dataDir, credentialsFile)
	token := s.Token()

	if token == "" {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove credentials: %w", err)
		}
		return nil
	}

	if err := EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	// 0600: bearer token
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create credentials file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(credentialsFileData{AccessToken: token, TokenType: "bearer"}); err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	return nil
}
