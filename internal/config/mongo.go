package config

import (
	"fmt"
	"time"
)

// MongoConfig holds the document store connection settings.
type MongoConfig struct {
	URI            string        `envconfig:"URI" default:"mongodb://localhost:27017"`
	Database       string        `envconfig:"DATABASE" default:"surveypulse"`
	ConnectTimeout time.Duration `envconfig:"CONNECT_TIMEOUT" default:"10s"`
}

// Validate checks if the Mongo configuration is valid.
func (c *MongoConfig) Validate() error {
	if _, err := parseAndValidateURL(c.URI, []string{"mongodb", "mongodb+srv"}); err != nil {
		return fmt.Errorf("invalid mongo URI: %w", err)
	}
	if err := validateNoWhitespace(c.Database, "mongo database"); err != nil {
		return err
	}
	return nil
}
