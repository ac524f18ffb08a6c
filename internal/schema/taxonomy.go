package schema

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed taxonomy.yaml
var taxonomyYAML []byte

// Taxonomy is the garment classification vocabulary: which secondary
// categories belong to which primary, plus the known colour and material
// names. Shipped embedded so the CLI can resolve "boots" to shoes/boots
// without the user spelling out the pair.
type Taxonomy struct {
	Categories map[string][]string `yaml:"categories"`
	Colours    []string            `yaml:"colours"`
	Materials  []string            `yaml:"materials"`
}

var (
	taxonomyOnce sync.Once
	taxonomy     *Taxonomy
	taxonomyErr  error
)

// LoadTaxonomy parses the embedded taxonomy once and returns it.
func LoadTaxonomy() (*Taxonomy, error) {
	taxonomyOnce.Do(func() {
		t := &Taxonomy{}
		if err := yaml.Unmarshal(taxonomyYAML, t); err != nil {
			taxonomyErr = fmt.Errorf("failed to parse embedded taxonomy: %w", err)
			return
		}
		taxonomy = t
	})
	return taxonomy, taxonomyErr
}

// Primaries returns the primary category names in sorted order.
func (t *Taxonomy) Primaries() []string {
	out := make([]string, 0, len(t.Categories))
	for p := range t.Categories {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// PrimaryFor returns the primary category a secondary belongs to:
// "boots" -> "shoes". The second return is false for unknown secondaries.
func (t *Taxonomy) PrimaryFor(secondary string) (string, bool) {
	for _, p := range t.Primaries() {
		for _, s := range t.Categories[p] {
			if s == secondary {
				return p, true
			}
		}
	}
	return "", false
}

// ValidPair reports whether secondary is listed under primary. A pair with
// an empty secondary is valid as long as the primary exists.
func (t *Taxonomy) ValidPair(pair Pair) bool {
	secondaries, ok := t.Categories[pair.Primary]
	if !ok {
		return false
	}
	if pair.Secondary == "" {
		return true
	}
	for _, s := range secondaries {
		if s == pair.Secondary {
			return true
		}
	}
	return false
}

// ResolveCategory fills in a category pair from whatever the user supplied:
// a known secondary gains its primary, a known primary stands alone, and
// anything else is an error listing the valid primaries.
func (t *Taxonomy) ResolveCategory(value string) (Pair, error) {
	if primary, ok := t.PrimaryFor(value); ok {
		return Pair{Primary: primary, Secondary: value}, nil
	}
	if _, ok := t.Categories[value]; ok {
		return Pair{Primary: value}, nil
	}
	return Pair{}, fmt.Errorf("unknown category %q (primaries: %v)", value, t.Primaries())
}
