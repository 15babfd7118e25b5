// internal/lifecycle/config.go
package lifecycle

import "time"

type Config struct {
	WarningHorizonDays int
	// Clock overrides the time source; nil means time.Now.
	Clock func() time.Time
}

func LoadConfig() *Config {
	return &Config{
		WarningHorizonDays: 3,
	}
}

func (c *Config) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

func (c *Config) horizon() time.Duration {
	return time.Duration(c.WarningHorizonDays) * 24 * time.Hour
}
