package catalog

import (
	"errors"
	"time"
)

// Config holds the connection settings of the catalog client. It is built
// once by the caller and passed to New.
type Config struct {
	// BaseURL is the catalog root, e.g. https://metax.fairdata.fi.
	BaseURL string

	Username string
	Password string

	// Timeout bounds every request. Zero means DefaultTimeout.
	Timeout time.Duration

	// VerifyTLS disables certificate checks when false.
	VerifyTLS bool

	// RequestsPerSecond throttles outgoing requests. Zero disables throttling.
	RequestsPerSecond float64
	Burst             int

	// Envelope fields identifying the harvester as metadata provider.
	MetadataProviderOrg  string
	MetadataProviderUser string
}

// DefaultTimeout is the request timeout used when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// DefaultConfig returns a config with the standard harvester settings.
func DefaultConfig() Config {
	return Config{
		Timeout:              DefaultTimeout,
		VerifyTLS:            true,
		MetadataProviderOrg:  "fairdata.fi",
		MetadataProviderUser: "harvest@fairdata.fi",
	}
}

// Validate checks that the config can be used to build a client.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("catalog base URL is required")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("catalog requests per second must not be negative")
	}
	return nil
}
