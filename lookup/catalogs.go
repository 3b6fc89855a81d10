package lookup

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalogs/*.yaml
var embeddedCatalogs embed.FS

// DataCatalog is the reference description of the catalog a harvest source
// publishes into. CatalogJSON is sent to the remote catalog as is.
type DataCatalog struct {
	HarvestSource string         `yaml:"harvest_source"`
	CatalogJSON   map[string]any `yaml:"catalog_json"`
}

// Identifier returns the catalog identifier, or "" when the file lacks one.
func (c *DataCatalog) Identifier() string {
	if c == nil {
		return ""
	}
	id, _ := c.CatalogJSON["identifier"].(string)
	return id
}

// FieldOfScience returns the catalog's field of science identifiers.
func (c *DataCatalog) FieldOfScience() []string {
	if c == nil {
		return nil
	}
	list, _ := c.CatalogJSON["field_of_science"].([]any)
	var out []string
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if id, ok := m["identifier"].(string); ok && id != "" {
			out = append(out, id)
		}
	}
	return out
}

// CatalogRegistry holds data catalogs keyed by harvest source name.
type CatalogRegistry struct {
	catalogs map[string]*DataCatalog
}

// NewCatalogRegistry creates a registry with the embedded catalogs loaded.
func NewCatalogRegistry() (*CatalogRegistry, error) {
	r := &CatalogRegistry{
		catalogs: make(map[string]*DataCatalog),
	}

	entries, err := embeddedCatalogs.ReadDir("catalogs")
	if err != nil {
		return nil, fmt.Errorf("reading embedded catalogs: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		data, err := embeddedCatalogs.ReadFile("catalogs/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("reading embedded catalog %s: %w", entry.Name(), err)
		}

		catalog, err := parseCatalog(data)
		if err != nil {
			return nil, fmt.Errorf("embedded catalog %s: %w", entry.Name(), err)
		}
		r.add(catalog, entry.Name())
	}

	return r, nil
}

// LoadDataCatalog loads a data catalog from a file path.
func LoadDataCatalog(path string) (*DataCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading data catalog file: %w", err)
	}

	return parseCatalog(data)
}

func parseCatalog(data []byte) (*DataCatalog, error) {
	var catalog DataCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parsing data catalog YAML: %w", err)
	}
	if catalog.Identifier() == "" {
		return nil, fmt.Errorf("data catalog has no catalog_json.identifier")
	}
	return &catalog, nil
}

func (r *CatalogRegistry) add(catalog *DataCatalog, filename string) {
	// Use filename without extension as source name if not set
	if catalog.HarvestSource == "" {
		catalog.HarvestSource = strings.TrimSuffix(filename, filepath.Ext(filename))
	}
	r.catalogs[catalog.HarvestSource] = catalog
}

// Get retrieves the data catalog of a harvest source.
func (r *CatalogRegistry) Get(source string) (*DataCatalog, bool) {
	c, ok := r.catalogs[source]
	return c, ok
}

// Register adds or replaces a data catalog.
func (r *CatalogRegistry) Register(catalog *DataCatalog) {
	r.catalogs[catalog.HarvestSource] = catalog
}

// List returns the harvest source names with a catalog, sorted.
func (r *CatalogRegistry) List() []string {
	names := make([]string, 0, len(r.catalogs))
	for name := range r.catalogs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadFromDirectory loads all catalogs from a directory, overriding
// embedded ones for the same harvest source.
func (r *CatalogRegistry) LoadFromDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading catalog directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		catalog, err := LoadDataCatalog(filepath.Join(dir, entry.Name()))
		if err != nil {
			return fmt.Errorf("%s: %w", entry.Name(), err)
		}
		r.add(catalog, entry.Name())
	}

	return nil
}
