// Package catalog holds the closed set of hosted models a user can pick from.
package catalog

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var modelsYAML []byte

// Model describes a hosted chat model and its input token ceiling.
type Model struct {
	ID          string `yaml:"id" json:"id"`
	Description string `yaml:"description" json:"description"`
	MaxTokens   int    `yaml:"max_tokens" json:"max_tokens"`
}

type modelsFile struct {
	Models []Model `yaml:"models"`
}

var (
	loadOnce sync.Once
	models   []Model
	byID     map[string]Model
)

// parse decodes and validates a catalog document.
func parse(data []byte) ([]Model, error) {
	var f modelsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse model catalog: %w", err)
	}
	if len(f.Models) == 0 {
		return nil, fmt.Errorf("model catalog is empty")
	}
	seen := make(map[string]bool, len(f.Models))
	for _, m := range f.Models {
		if m.ID == "" {
			return nil, fmt.Errorf("model catalog entry without id")
		}
		if seen[m.ID] {
			return nil, fmt.Errorf("duplicate model %q in catalog", m.ID)
		}
		if m.MaxTokens <= 0 {
			return nil, fmt.Errorf("model %q must have a positive max_tokens", m.ID)
		}
		seen[m.ID] = true
	}
	return f.Models, nil
}

func load() {
	loadOnce.Do(func() {
		parsed, err := parse(modelsYAML)
		if err != nil {
			// The catalog is compiled into the binary; a bad file is a build defect.
			panic(err)
		}
		models = parsed
		byID = make(map[string]Model, len(parsed))
		for _, m := range parsed {
			byID[m.ID] = m
		}
	})
}

// All returns every model in catalog order.
func All() []Model {
	load()
	out := make([]Model, len(models))
	copy(out, models)
	return out
}

// Lookup returns the model with the given ID.
func Lookup(id string) (Model, bool) {
	load()
	m, ok := byID[id]
	return m, ok
}
