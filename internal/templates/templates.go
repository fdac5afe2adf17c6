// Package templates holds the static catalog of canned messages a scanning
// caller can send. A built-in catalog ships with the binary; deployments can
// override or extend it from a directory of JSON files.
package templates

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"cartag/backend/internal/models"
)

// Catalog manages the message templates.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]models.MessageTemplate
}

var builtin = []models.MessageTemplate{
	{ID: "blocking", Text: "Your car is blocking mine, could you please move it?"},
	{ID: "lights_on", Text: "Your car's lights are on."},
	{ID: "alarm", Text: "Your car alarm has been going off for a while."},
	{ID: "window_open", Text: "One of your car windows is open."},
	{ID: "towing", Text: "Your car is about to be towed."},
	{ID: "accident", Text: "Your parked car appears to have been hit."},
}

// NewCatalog returns a Catalog preloaded with the built-in templates.
func NewCatalog() *Catalog {
	c := &Catalog{entries: make(map[string]models.MessageTemplate, len(builtin))}
	for _, t := range builtin {
		c.entries[t.ID] = t
	}
	return c
}

// LoadDir merges template JSON files from a directory into the catalog.
// Each file holds a single template object; the file name (without .json)
// becomes the template ID.
func (c *Catalog) LoadDir(path string) error {
	files, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("failed to read template directory: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(path, file.Name()))
		if err != nil {
			return fmt.Errorf("failed to read template file %s: %w", file.Name(), err)
		}

		var t models.MessageTemplate
		if err := json.Unmarshal(data, &t); err != nil {
			return fmt.Errorf("failed to parse template file %s: %w", file.Name(), err)
		}
		t.ID = strings.TrimSuffix(file.Name(), ".json")
		c.entries[t.ID] = t
	}

	return nil
}

// Get returns the template for an ID, if it exists.
func (c *Catalog) Get(id string) (models.MessageTemplate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.entries[id]
	return t, ok
}

// List returns all templates sorted by ID.
func (c *Catalog) List() []models.MessageTemplate {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.MessageTemplate, 0, len(c.entries))
	for _, t := range c.entries {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
