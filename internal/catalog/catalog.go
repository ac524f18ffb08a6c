// Package catalog ships the reference store catalog: common thrift chains
// and sourcing venues a resale operator draws from, embedded as TOML and
// unioned with the user's own store records at read time.
package catalog

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/vanastassiou/scrounger-sub002/internal/schema"
)

//go:embed catalog.toml
var catalogTOML []byte

// ReferencePrefix marks catalog entry IDs. User-created stores never carry
// it, so the two namespaces cannot collide by accident.
const ReferencePrefix = "ref-"

type document struct {
	Stores []entry `toml:"store"`
}

type entry struct {
	ID      string `toml:"id"`
	Name    string `toml:"name"`
	Tier    string `toml:"tier"`
	Address string `toml:"address"`
}

var (
	refOnce   sync.Once
	refStores []*schema.Store
	refErr    error
)

// Reference returns the embedded catalog entries. Parsed once per process;
// the returned records are shared, callers must not mutate them.
func Reference() ([]*schema.Store, error) {
	refOnce.Do(func() {
		var doc document
		if err := toml.Unmarshal(catalogTOML, &doc); err != nil {
			refErr = fmt.Errorf("failed to parse embedded store catalog: %w", err)
			return
		}
		for _, e := range doc.Stores {
			refStores = append(refStores, &schema.Store{
				ID:      e.ID,
				Name:    e.Name,
				Tier:    e.Tier,
				Address: e.Address,
			})
		}
	})
	return refStores, refErr
}

// IsReference reports whether id names a catalog entry rather than a user
// record.
func IsReference(id string) bool {
	return strings.HasPrefix(id, ReferencePrefix)
}

// Union merges the user's stores over the reference catalog, sorted by
// name. A user record sharing a catalog id shadows the catalog entry, which
// is how an operator annotates a chain store with their local branch.
func Union(user []*schema.Store) ([]*schema.Store, error) {
	ref, err := Reference()
	if err != nil {
		return nil, err
	}

	merged := make(map[string]*schema.Store, len(ref)+len(user))
	for _, s := range ref {
		merged[s.ID] = s
	}
	for _, s := range user {
		merged[s.ID] = s
	}

	out := make([]*schema.Store, 0, len(merged))
	for _, s := range merged {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
