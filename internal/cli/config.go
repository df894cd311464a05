package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
)

// Config holds CLI configuration. Every field can be set from a
// SOULPIT_-prefixed environment variable and overridden by flags.
type Config struct {
	ServerURL       string `env:"SERVER" envDefault:"http://localhost:8080"`
	Token           string `env:"TOKEN"`
	Session         string `env:"SESSION"`
	CredentialsFile string `env:"CREDENTIALS_FILE"`
	Output          string `env:"OUTPUT" envDefault:"text"`
	Verbose         bool   `env:"VERBOSE"`
}

// Credentials is what the CLI remembers between invocations
type Credentials struct {
	Token        string `json:"token,omitempty"`
	SessionToken string `json:"session_token,omitempty"`
}

// LoadConfig reads the CLI configuration from the environment
func LoadConfig() (*Config, error) {
	c := &Config{}
	if err := env.ParseWithOptions(c, env.Options{Prefix: "SOULPIT_"}); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if c.CredentialsFile == "" {
		c.CredentialsFile = defaultCredentialsFile()
	}
	return c, nil
}

// LoadCredentials fills Token and Session from the credentials file
// when neither was given explicitly
func (c *Config) LoadCredentials() error {
	if c.Token != "" || c.Session != "" {
		return nil
	}

	data, err := os.ReadFile(c.CredentialsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No credentials file is fine
		}
		return err
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return fmt.Errorf("read %s: %w", c.CredentialsFile, err)
	}
	c.Token = creds.Token
	c.Session = creds.SessionToken
	return nil
}

// SaveCredentials replaces the stored credentials. A bearer token wins over
// a session token, so saving one clears the other.
func (c *Config) SaveCredentials(creds Credentials) error {
	c.Token = creds.Token
	c.Session = creds.SessionToken

	dir := filepath.Dir(c.CredentialsFile)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return os.WriteFile(c.CredentialsFile, data, 0600)
}

func defaultCredentialsFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".soulpit", "credentials.json")
	}
	return filepath.Join(home, ".soulpit", "credentials.json")
}
