package lookup

import (
	"bytes"
	"embed"
	"fmt"
)

//go:embed resources/*.csv
var embeddedTables embed.FS

var legacyTableFiles = map[string]string{
	"kielipankki": "resources/kielipankki_pid_to_kata_urn.csv",
	"syke":        "resources/syke_guid_to_kata_urn.csv",
	"fsd":         "resources/fsd_pid_to_kata_urn.csv",
}

// LegacyTable returns the bundled legacy identifier table for a harvest
// source. A non-empty path overrides the bundled file.
func LegacyTable(source, path string) (*Table, error) {
	if path != "" {
		return LoadTable(path)
	}

	name, ok := legacyTableFiles[source]
	if !ok {
		return nil, fmt.Errorf("no legacy identifier table for harvest source %q", source)
	}
	data, err := embeddedTables.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("reading embedded table %s: %w", name, err)
	}
	return ParseTable(bytes.NewReader(data))
}
