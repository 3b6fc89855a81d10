// Package config loads harvester settings from a YAML or TOML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/csc-fi/etsin-harvester/catalog"
	"github.com/csc-fi/etsin-harvester/coordinator"
	"github.com/csc-fi/etsin-harvester/refine"
)

// Environment variables that override file settings.
const (
	EnvCatalogURL      = "ETSIN_CATALOG_URL"
	EnvCatalogUser     = "ETSIN_CATALOG_USER"
	EnvCatalogPassword = "ETSIN_CATALOG_PASSWORD"
	EnvDBPath          = "ETSIN_DB_PATH"
)

// DefaultDBPath is the local datastore used when none is configured.
const DefaultDBPath = "etsin-harvester.db"

// Config is the harvester configuration.
type Config struct {
	Catalog CatalogConfig `yaml:"catalog" toml:"catalog"`

	// DBPath is the SQLite file of the local datastore.
	DBPath string `yaml:"db_path" toml:"db_path"`

	// HarvestUser is the caller identity synchronized with the catalog.
	HarvestUser string `yaml:"harvest_user" toml:"harvest_user"`

	// DataCatalogDir holds data catalog files overriding the bundled ones.
	DataCatalogDir string `yaml:"data_catalog_dir,omitempty" toml:"data_catalog_dir,omitempty"`

	// LegacyTables maps a harvest source to a legacy identifier CSV file.
	LegacyTables map[string]string `yaml:"legacy_tables,omitempty" toml:"legacy_tables,omitempty"`

	// HarvestUnmatchedSyke keeps SYKE records that have no legacy id.
	HarvestUnmatchedSyke bool `yaml:"harvest_unmatched_syke,omitempty" toml:"harvest_unmatched_syke,omitempty"`
}

// CatalogConfig is the catalog section of the file.
type CatalogConfig struct {
	URL                  string   `yaml:"url" toml:"url"`
	Username             string   `yaml:"username" toml:"username"`
	Password             string   `yaml:"password" toml:"password"`
	Timeout              Duration `yaml:"timeout,omitempty" toml:"timeout,omitempty"`
	VerifyTLS            *bool    `yaml:"verify_tls,omitempty" toml:"verify_tls,omitempty"`
	RequestsPerSecond    float64  `yaml:"requests_per_second,omitempty" toml:"requests_per_second,omitempty"`
	Burst                int      `yaml:"burst,omitempty" toml:"burst,omitempty"`
	MetadataProviderOrg  string   `yaml:"metadata_provider_org,omitempty" toml:"metadata_provider_org,omitempty"`
	MetadataProviderUser string   `yaml:"metadata_provider_user,omitempty" toml:"metadata_provider_user,omitempty"`
}

// Duration reads YAML values such as "30s" or a number of seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	value := string(text)
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value, err)
	}
	*d = Duration(parsed)
	return nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		DBPath:      DefaultDBPath,
		HarvestUser: coordinator.DefaultHarvestUser,
	}
}

// Load reads the file at path, if any, and applies environment overrides.
// Files ending in .toml are read as TOML, anything else as YAML.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		unmarshal := yaml.Unmarshal
		if strings.EqualFold(filepath.Ext(path), ".toml") {
			unmarshal = toml.Unmarshal
		}
		if err := unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	cfg.applyEnv(os.Getenv)
	if cfg.HarvestUser == "" {
		cfg.HarvestUser = coordinator.DefaultHarvestUser
	}
	if cfg.DBPath == "" {
		cfg.DBPath = DefaultDBPath
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv(EnvCatalogURL); v != "" {
		c.Catalog.URL = v
	}
	if v := getenv(EnvCatalogUser); v != "" {
		c.Catalog.Username = v
	}
	if v := getenv(EnvCatalogPassword); v != "" {
		c.Catalog.Password = v
	}
	if v := getenv(EnvDBPath); v != "" {
		c.DBPath = v
	}
}

// CatalogClientConfig builds the catalog client configuration.
func (c *Config) CatalogClientConfig() (catalog.Config, error) {
	cc := catalog.DefaultConfig()
	cc.BaseURL = c.Catalog.URL
	cc.Username = c.Catalog.Username
	cc.Password = c.Catalog.Password
	if c.Catalog.Timeout > 0 {
		cc.Timeout = time.Duration(c.Catalog.Timeout)
	}
	if c.Catalog.VerifyTLS != nil {
		cc.VerifyTLS = *c.Catalog.VerifyTLS
	}
	cc.RequestsPerSecond = c.Catalog.RequestsPerSecond
	cc.Burst = c.Catalog.Burst
	if c.Catalog.MetadataProviderOrg != "" {
		cc.MetadataProviderOrg = c.Catalog.MetadataProviderOrg
	}
	if c.Catalog.MetadataProviderUser != "" {
		cc.MetadataProviderUser = c.Catalog.MetadataProviderUser
	}
	if err := cc.Validate(); err != nil {
		return catalog.Config{}, fmt.Errorf("catalog config: %w", err)
	}
	return cc, nil
}

// RefineOptions returns the refiner options.
func (c *Config) RefineOptions() refine.Options {
	return refine.Options{
		LegacyTables:         c.LegacyTables,
		HarvestUnmatchedSyke: c.HarvestUnmatchedSyke,
	}
}

// Validate checks settings needed to run a harvest.
func (c *Config) Validate() error {
	var errs []error
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	for source := range c.LegacyTables {
		if _, err := refine.ParseOrganization(source); err != nil {
			errs = append(errs, fmt.Errorf("legacy_tables: %w", err))
		}
	}
	return errors.Join(errs...)
}
