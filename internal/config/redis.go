package config

import (
	"fmt"
	"strings"
	"time"
)

// RedisConfig contains Redis connection settings and cache lifetimes.
type RedisConfig struct {
	// Addr accepts "host:port" or a redis:// URL.
	Addr     string `envconfig:"ADDR" default:"localhost:6379"`
	Password string `envconfig:"PASSWORD"`
	DB       int    `envconfig:"DB" default:"0" validate:"min=0,max=15"`

	DialTimeout  time.Duration `envconfig:"DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"3s"`

	CriteriaTTL time.Duration `envconfig:"CRITERIA_TTL" default:"10m"`
	StatsTTL    time.Duration `envconfig:"STATS_TTL" default:"720h"`
}

// Address returns the Redis address in host:port format.
func (c *RedisConfig) Address() string {
	return strings.TrimPrefix(c.Addr, "redis://")
}

// Validate checks if the Redis configuration is valid.
func (c *RedisConfig) Validate() error {
	addr := c.Address()
	host, port, ok := strings.Cut(addr, ":")
	if !ok || host == "" {
		return fmt.Errorf("redis address must be host:port, got %q", c.Addr)
	}
	return validatePort(port, "redis")
}
