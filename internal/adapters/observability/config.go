package observability

import (
	"time"

	"github.com/eleven-am/noderun/internal/domain"
)

type Config struct {
	Enabled       bool          `json:"enabled" yaml:"enabled"`
	Port          int           `json:"port" yaml:"port"`
	ReadTimeout   time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout  time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout   time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
	EnableMetrics bool          `json:"enable_metrics" yaml:"enable_metrics"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:       false,
		Port:          9090,
		ReadTimeout:   10 * time.Second,
		WriteTimeout:  10 * time.Second,
		IdleTimeout:   60 * time.Second,
		EnableMetrics: true,
	}
}

func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Port < 0 || c.Port > 65535 {
		return domain.NewConfigError("observability", "port", "port must be between 0 and 65535")
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.IdleTimeout < 0 {
		return domain.NewConfigError("observability", "timeouts", "timeouts must be non-negative")
	}
	return nil
}
