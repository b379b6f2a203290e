package client

import "fmt"

// secretKeyMinLength mirrors the minimum length a session-signing key needs
// to be considered safe (matches the minimum actix-web's cookie::Key
// enforces, which this config format was modeled on).
const secretKeyMinLength = 64

// Config is the client's on-disk configuration. Nodes are per-user and
// live in Store, not here.
type Config struct {
	DarkTheme bool   `json:"dark_theme"`
	Proxy     string `json:"proxy"` // SOCKS5 address, empty means direct
	SecretKey string `json:"secret_key"`
}

// Validate checks invariants LoadJSONConfig can't express in the JSON
// schema itself.
func (c *Config) Validate() error {
	if len(c.SecretKey) < secretKeyMinLength {
		return fmt.Errorf("client: secret key must be at least %d bytes", secretKeyMinLength)
	}
	return nil
}
