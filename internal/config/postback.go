package config

import (
	"fmt"
	"time"
)

// PostbackConfig controls outbound postback delivery and the audit sink.
type PostbackConfig struct {
	// Timeout bounds each recipient's HTTP call independently.
	Timeout        time.Duration `envconfig:"TIMEOUT" default:"10s"`
	MaxConcurrency int           `envconfig:"MAX_CONCURRENCY" default:"4" validate:"min=1,max=64"`
	// SnippetSize caps how much of a partner response body is kept in the audit log.
	SnippetSize int    `envconfig:"SNIPPET_SIZE" default:"500" validate:"min=0"`
	UserAgent   string `envconfig:"USER_AGENT" default:"surveypulse-postback/1.0"`
	// AsyncDispatch detaches delivery from the submitting request.
	AsyncDispatch   bool          `envconfig:"ASYNC_DISPATCH" default:"true"`
	DispatchTimeout time.Duration `envconfig:"DISPATCH_TIMEOUT" default:"60s"`
	AuditBuffer     int           `envconfig:"AUDIT_BUFFER" default:"1024" validate:"min=1"`
}

// Validate checks the postback timing settings.
func (c *PostbackConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("postback timeout must be positive, got %s", c.Timeout)
	}
	if c.DispatchTimeout < c.Timeout {
		return fmt.Errorf("postback dispatch timeout (%s) must not be shorter than the per-call timeout (%s)", c.DispatchTimeout, c.Timeout)
	}
	return nil
}
