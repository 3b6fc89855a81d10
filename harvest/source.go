package harvest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ReadItem reads one harvest object from a file. The GUID defaults to the
// file name without its extension.
func ReadItem(path, guid string) (Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Item{}, fmt.Errorf("reading %s: %w", path, err)
	}
	name := filepath.Base(path)
	if guid == "" {
		guid = strings.TrimSuffix(name, filepath.Ext(name))
	}
	return Item{GUID: guid, Name: name, Document: data}, nil
}

// ReadDir reads every .xml file in dir as a harvest object, sorted by name.
func ReadDir(dir string) ([]Item, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading harvest directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".xml") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	items := make([]Item, 0, len(names))
	for _, name := range names {
		item, err := ReadItem(filepath.Join(dir, name), "")
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

// ReadPath reads a single file or every .xml file of a directory.
func ReadPath(path string) ([]Item, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return ReadDir(path)
	}
	item, err := ReadItem(path, "")
	if err != nil {
		return nil, err
	}
	return []Item{item}, nil
}
