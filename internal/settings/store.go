package settings

import (
	"bytes"
	"context"
	"fmt"

	"github.com/cockroachdb/pebble"

	pebblestore "github.com/rzbill/surgecast/internal/storage/pebble"
)

// Selection maps a tracker category ("market", "highlow", "trend", "surge")
// to its ordered interest-group names. Validation and defaulting happen in
// the interest cache, not here: the store round-trips what it is given.
type Selection map[string][]string

// Clone returns a deep copy.
func (s Selection) Clone() Selection {
	out := make(Selection, len(s))
	for k, v := range s {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Criteria is the optional per-subscriber secondary filter.
type Criteria struct {
	Enabled bool `json:"enabled"`
	// MinCount drops low events whose carried count is below the threshold.
	// Zero means "use the configured default".
	MinCount int `json:"min_count"`
	// Expression is an optional CEL predicate evaluated per event.
	Expression string `json:"expression,omitempty"`
}

// Store persists subscriber settings and group memberships in pebble.
type Store struct {
	db *pebblestore.DB
}

// NewStore returns a store over db.
func NewStore(db *pebblestore.DB) *Store { return &Store{db: db} }

// LoadInterestSelection returns the stored selection for the subscriber.
// The bool reports presence; absence is not an error.
func (s *Store) LoadInterestSelection(ctx context.Context, subscriberID string) (Selection, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var sel Selection
	ok, err := s.db.GetJSON(interestKey(subscriberID), &sel)
	if err != nil {
		return nil, false, fmt.Errorf("settings: load interests %s: %w", subscriberID, err)
	}
	return sel, ok, nil
}

// SaveInterestSelection replaces one category's groups for the subscriber,
// preserving the other categories on file.
func (s *Store) SaveInterestSelection(ctx context.Context, subscriberID, category string, groups []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	sel, ok, err := s.LoadInterestSelection(ctx, subscriberID)
	if err != nil {
		return err
	}
	if !ok {
		sel = Selection{}
	}
	sel[category] = append([]string(nil), groups...)
	if err := s.db.SetJSON(interestKey(subscriberID), sel); err != nil {
		return fmt.Errorf("settings: save interests %s: %w", subscriberID, err)
	}
	return nil
}

// LoadFilterCriteria returns the stored criteria for the subscriber.
// The bool reports presence; absence is not an error.
func (s *Store) LoadFilterCriteria(ctx context.Context, subscriberID string) (Criteria, bool, error) {
	if err := ctx.Err(); err != nil {
		return Criteria{}, false, err
	}
	var c Criteria
	ok, err := s.db.GetJSON(criteriaKey(subscriberID), &c)
	if err != nil {
		return Criteria{}, false, fmt.Errorf("settings: load criteria %s: %w", subscriberID, err)
	}
	return c, ok, nil
}

// SaveFilterCriteria replaces the subscriber's criteria.
func (s *Store) SaveFilterCriteria(ctx context.Context, subscriberID string, c Criteria) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.SetJSON(criteriaKey(subscriberID), c); err != nil {
		return fmt.Errorf("settings: save criteria %s: %w", subscriberID, err)
	}
	return nil
}

// SetGroupSymbols replaces the membership list of an interest group.
func (s *Store) SetGroupSymbols(name string, symbols []string) error {
	if err := s.db.SetJSON(groupKey(name), symbols); err != nil {
		return fmt.Errorf("settings: set group %s: %w", name, err)
	}
	return nil
}

// GroupSymbols returns the membership list of an interest group.
// The bool reports presence.
func (s *Store) GroupSymbols(name string) ([]string, bool, error) {
	var symbols []string
	ok, err := s.db.GetJSON(groupKey(name), &symbols)
	if err != nil {
		return nil, false, fmt.Errorf("settings: group %s: %w", name, err)
	}
	return symbols, ok, nil
}

// ListGroups returns every known interest-group name.
func (s *Store) ListGroups() ([]string, error) {
	lo := append([]byte(nil), groupPrefix...)
	hi := append(append([]byte(nil), groupPrefix...), 0xFF)
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lo, UpperBound: hi})
	if err != nil {
		return nil, err
	}
	defer func() { _ = it.Close() }()
	var out []string
	for ok := it.First(); ok; ok = it.Next() {
		k := it.Key()
		if len(k) > len(groupPrefix) && bytes.HasPrefix(k, groupPrefix) {
			out = append(out, string(k[len(groupPrefix):]))
		}
	}
	return out, nil
}
