// Package catalog loads, validates and serves the set of purchasable cases.
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/atinyakov/HorosCase/internal/draw"
	"github.com/atinyakov/HorosCase/internal/models"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

type file struct {
	Cases []models.Case `json:"cases" yaml:"cases"`
}

// Catalog is an immutable, validated list of cases in declared order.
type Catalog struct {
	cases []models.Case
	byID  map[string]int
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Parse("default.yaml", defaultCatalog)
}

// Load reads a catalog from a .yaml, .yml or .json file.
// An empty path yields the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(path, raw)
}

// Parse decodes raw using the format implied by the filename extension.
func Parse(filename string, raw []byte) (*Catalog, error) {
	var f file
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("decode catalog yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("decode catalog json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported catalog format: %q", filename)
	}
	return New(f.Cases)
}

// New validates cases and builds a Catalog.
func New(cases []models.Case) (*Catalog, error) {
	if len(cases) == 0 {
		return nil, fmt.Errorf("catalog has no cases")
	}

	v := validator.New()
	c := &Catalog{
		cases: make([]models.Case, 0, len(cases)),
		byID:  make(map[string]int, len(cases)),
	}
	for _, cs := range cases {
		if err := v.Struct(cs); err != nil {
			return nil, fmt.Errorf("case %q: %w", cs.ID, err)
		}
		if err := draw.Validate(cs.RewardTiers); err != nil {
			return nil, fmt.Errorf("case %q: %w", cs.ID, err)
		}
		if _, dup := c.byID[cs.ID]; dup {
			return nil, fmt.Errorf("duplicate case id %q", cs.ID)
		}
		c.byID[cs.ID] = len(c.cases)
		c.cases = append(c.cases, cs)
	}
	return c, nil
}

// List returns cases in declared order. A non-empty game filters by game name,
// case-insensitively.
func (c *Catalog) List(game string) []models.Case {
	out := make([]models.Case, 0, len(c.cases))
	for _, cs := range c.cases {
		if game != "" && !strings.EqualFold(cs.Game, game) {
			continue
		}
		out = append(out, cs)
	}
	return out
}

// Get returns the case with the given id or models.ErrCaseNotFound.
func (c *Catalog) Get(id string) (models.Case, error) {
	i, ok := c.byID[id]
	if !ok {
		return models.Case{}, models.ErrCaseNotFound
	}
	return c.cases[i], nil
}
