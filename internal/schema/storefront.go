package schema

import (
	"fmt"
	"time"
)

// Store is a sourcing location: a thrift store, bins outlet, estate sale
// circuit, or similar. Items reference stores through
// metadata.acquisition.store_id.
type Store struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Tier    string `json:"tier,omitempty"` // bins, thrift, consignment, estate
	Address string `json:"address,omitempty"`
	Notes   string `json:"notes,omitempty"`

	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
	Sync    SyncFlags `json:"sync"`
}

// Validate checks the store record before it is persisted.
func (s *Store) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("id is required")
	}
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

// SetDefaults fills timestamps and the dirty flag on a new store record.
func (s *Store) SetDefaults(now time.Time) {
	if s.Created.IsZero() {
		s.Created = now.UTC()
	}
	if s.Updated.IsZero() {
		s.Updated = s.Created
	}
	s.Sync.Unsynced = true
}

// Touch records a local mutation on the store record.
func (s *Store) Touch(now time.Time) {
	s.Updated = now.UTC()
	s.Sync.Unsynced = true
	s.Sync.SyncedAt = nil
}

// MarkSynced clears the dirty flag after a successful push.
func (s *Store) MarkSynced(at time.Time) {
	t := at.UTC()
	s.Sync.Unsynced = false
	s.Sync.SyncedAt = &t
}
