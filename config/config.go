package config

// AppConfig is the main client configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config files for
// details on available environment variables:
//   - api.go: remote API configuration
//   - auth.go: auth surface configuration
//   - store.go: credential store configuration
type AppConfig struct {
	// API configuration
	API APIConfig `envPrefix:"API_"`

	// Auth surface configuration
	Auth AuthConfig `envPrefix:"AUTH_"`

	// Credential store configuration
	Store StoreConfig `envPrefix:"STORE_"`
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment
// variables.
func (c *AppConfig) Sanitize() {
	c.API.Sanitize()
	c.Store.Sanitize()
}
