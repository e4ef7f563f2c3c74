package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// LoadDefinitions reads Content definitions from YAML files. Each path may
// be a file or a directory; directories contribute their *.yaml and *.yml
// files. Definitions are returned sorted by code.
func LoadDefinitions(paths ...string) ([]Content, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("reading definition path %q: %w", p, err)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("reading definition directory %q: %w", p, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			ext := filepath.Ext(entry.Name())
			if ext != ".yaml" && ext != ".yml" {
				continue
			}
			files = append(files, filepath.Join(p, entry.Name()))
		}
	}

	defs := make([]Content, 0, len(files))
	for _, f := range files {
		c, err := loadDefinitionFile(f)
		if err != nil {
			return nil, fmt.Errorf("loading definition file %q: %w", filepath.Base(f), err)
		}
		defs = append(defs, c)
	}

	sort.Slice(defs, func(i, j int) bool {
		return defs[i].Code < defs[j].Code
	})

	return defs, nil
}

// loadDefinitionFile parses a single YAML file. Unknown keys are rejected so
// that typos such as "validation" instead of "validations" surface early.
func loadDefinitionFile(path string) (Content, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Content{}, fmt.Errorf("reading file: %w", err)
	}

	var c Content
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return Content{}, fmt.Errorf("parsing YAML: %w", err)
	}
	return c, nil
}

// Input converts a definition into the generic form accepted by
// Validator.Validate, so imported definitions go through the same checks as
// API input.
func (c Content) Input() (map[string]any, error) {
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encoding definition: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decoding definition: %w", err)
	}
	for _, k := range []string{"id", "userId", "projectId", "createdAt", "updatedAt"} {
		delete(m, k)
	}
	return m, nil
}
