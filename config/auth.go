package config

// AuthConfig groups authentication-related configuration.
type AuthConfig struct {
	// RefreshPath is the credential refresh endpoint.
	RefreshPath string `env:"REFRESH_PATH" envDefault:"/api/users/refresh-token"`

	// CoalesceRefresh shares one in-flight refresh across concurrent
	// unauthorized responses. Off by default: each call then refreshes
	// independently, which matches the baseline behavior of the original
	// clients.
	CoalesceRefresh bool `env:"COALESCE_REFRESH" envDefault:"false"`
}
