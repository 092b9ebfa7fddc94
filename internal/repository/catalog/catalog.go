// Package catalog loads the layer catalog (services file) searched by the topic providers.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/portalsearch/internal/domain/hit"
)

// PathSeparator splits folder paths in the services file.
const PathSeparator = "/"

// Layer is one map layer of the services file.
type Layer struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	Folder      string   `yaml:"folder"`
	Keywords    []string `yaml:"keywords"`
	Description string   `yaml:"description"`
}

type file struct {
	Layers []Layer `yaml:"layers"`
}

// Entry is a searchable catalog node: a layer (topic) or a folder.
type Entry struct {
	ID   string
	Name string
	Kind hit.Kind
	// Path holds the names of the enclosing folders, outermost first.
	Path     []string
	Keywords []string
	// Text is the descriptive text used for semantic matching.
	Text string
}

// Catalog is an immutable snapshot of the services file.
type Catalog struct {
	entries []Entry
	layers  int
}

// Parse decodes and validates a services file.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return build(f.Layers)
}

// LoadFile reads and parses a services file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from config
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

func build(layers []Layer) (*Catalog, error) {
	seen := make(map[string]struct{}, len(layers))
	entries := make([]Entry, 0, len(layers))
	folders := make(map[string]struct{})
	var folderEntries []Entry

	for i, l := range layers {
		if strings.TrimSpace(l.ID) == "" {
			return nil, fmt.Errorf("layer %d: %w", i, errMissingID)
		}
		if strings.TrimSpace(l.Name) == "" {
			return nil, fmt.Errorf("layer %s: %w", l.ID, errMissingName)
		}
		if _, dup := seen[l.ID]; dup {
			return nil, fmt.Errorf("layer %s: %w", l.ID, errDuplicateID)
		}
		seen[l.ID] = struct{}{}

		path := splitPath(l.Folder)
		entries = append(entries, Entry{
			ID:       l.ID,
			Name:     l.Name,
			Kind:     hit.KindTopic,
			Path:     path,
			Keywords: l.Keywords,
			Text:     layerText(l, path),
		})

		for depth := range path {
			key := strings.Join(path[:depth+1], PathSeparator)
			if _, ok := folders[key]; ok {
				continue
			}
			folders[key] = struct{}{}
			folderEntries = append(folderEntries, Entry{
				ID:   "folder:" + key,
				Name: path[depth],
				Kind: hit.KindFolder,
				Path: path[:depth:depth],
				Text: strings.Join(path[:depth+1], " "),
			})
		}
	}

	return &Catalog{entries: append(entries, folderEntries...), layers: len(layers)}, nil
}

var (
	errMissingID   = errors.New("missing id")
	errMissingName = errors.New("missing name")
	errDuplicateID = errors.New("duplicate id")
)

func splitPath(folder string) []string {
	var out []string
	for _, p := range strings.Split(folder, PathSeparator) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func layerText(l Layer, path []string) string {
	parts := []string{l.Name}
	parts = append(parts, path...)
	parts = append(parts, l.Keywords...)
	if l.Description != "" {
		parts = append(parts, l.Description)
	}
	return strings.Join(parts, " ")
}

// Entries returns layers in file order followed by folders in first-seen order.
func (c *Catalog) Entries() []Entry {
	if c == nil {
		return nil
	}
	return c.entries
}

// Layers returns the number of layers.
func (c *Catalog) Layers() int {
	if c == nil {
		return 0
	}
	return c.layers
}
