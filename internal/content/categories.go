package content

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed categories.toml
var categoriesTOML []byte

// CategoryDefinition describes one marketplace category.
type CategoryDefinition struct {
	Label   string   `toml:"label"`
	Aliases []string `toml:"aliases"`
}

type categoriesConfig struct {
	Categories map[string]CategoryDefinition `toml:"categories"`
}

// CategoryRegistry resolves user-facing category strings to canonical slugs
// before a request goes out, so unknown filters fail fast on the client.
type CategoryRegistry struct {
	defs    map[string]CategoryDefinition
	aliases map[string]string
}

// NewCategoryRegistry builds a registry from the embedded TOML.
func NewCategoryRegistry() (*CategoryRegistry, error) {
	var cfg categoriesConfig
	if err := toml.Unmarshal(categoriesTOML, &cfg); err != nil {
		return nil, fmt.Errorf("parsing categories.toml: %w", err)
	}

	reg := &CategoryRegistry{
		defs:    cfg.Categories,
		aliases: make(map[string]string),
	}
	for slug, def := range cfg.Categories {
		reg.aliases[slug] = slug
		for _, alias := range def.Aliases {
			reg.aliases[strings.ToLower(alias)] = slug
		}
	}
	return reg, nil
}

// Resolve maps a category string (slug or alias, any case) to its canonical
// slug. An empty input resolves to the empty slug, meaning "all categories".
func (r *CategoryRegistry) Resolve(category string) (string, error) {
	if strings.TrimSpace(category) == "" {
		return "", nil
	}
	slug, ok := r.aliases[strings.ToLower(strings.TrimSpace(category))]
	if !ok {
		return "", fmt.Errorf("unknown category %q", category)
	}
	return slug, nil
}

// Label returns the display label for a canonical slug.
func (r *CategoryRegistry) Label(slug string) string {
	if def, ok := r.defs[slug]; ok {
		return def.Label
	}
	return slug
}

// Slugs lists the canonical slugs in stable order.
func (r *CategoryRegistry) Slugs() []string {
	slugs := make([]string, 0, len(r.defs))
	for slug := range r.defs {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}
