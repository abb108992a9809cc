package config

import "time"

// APIConfig contains remote API configuration.
type APIConfig struct {
	// BaseURL is the origin of the event booking API.
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:5000"`

	// Timeout bounds each HTTP attempt, including the refresh call.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`

	// ErrorMessagePath is the JMESPath expression locating the server
	// message inside an error body. The default matches the documented
	// envelope ({"message": "..."}); deployments fronted by gateways that
	// rewrap errors can point it elsewhere (e.g. "error.message").
	ErrorMessagePath string `env:"ERROR_MESSAGE_PATH" envDefault:"message"`
}

// Sanitize applies guardrails to API configuration values.
func (a *APIConfig) Sanitize() {
	if a.Timeout <= 0 {
		a.Timeout = 30 * time.Second
	}
}
