// Package projects keeps the coarse project list shown on the home page.
package projects

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ashureev/midori/internal/apperr"
	"github.com/ashureev/midori/internal/domain"
	"github.com/ashureev/midori/internal/store"
	"github.com/google/uuid"
)

// StorageKey is the local-storage key holding the project list.
const StorageKey = "midori_projects"

// Store is one owner's project list.
type Store struct {
	items   store.Items
	ownerID string
	now     func() time.Time
}

// NewStore binds a project store to ownerID.
func NewStore(items store.Items, ownerID string) *Store {
	return &Store{items: items, ownerID: ownerID, now: time.Now}
}

// Demo returns the sample projects shown to someone with nothing stored.
// They are built fresh on every call and never written.
func Demo(now time.Time) []domain.Project {
	return []domain.Project{
		{
			ID:        "1",
			Name:      "Portfolio Website",
			CreatedAt: now.Add(-24 * time.Hour).UTC(),
			Preview:   "Personal portfolio with React components",
			Demo:      true,
		},
		{
			ID:        "2",
			Name:      "Landing Page",
			CreatedAt: now.Add(-48 * time.Hour).UTC(),
			Preview:   "Modern landing page for SaaS product",
			Demo:      true,
		},
	}
}

// List returns the stored projects, or the demo set with demo=true when none are stored.
func (s *Store) List(ctx context.Context) ([]domain.Project, bool, error) {
	list, stored, err := s.load(ctx)
	if err != nil {
		return nil, false, err
	}
	if !stored {
		return Demo(s.now()), true, nil
	}
	return list, false, nil
}

// Create appends a project. The first real project replaces the demo view.
func (s *Store) Create(ctx context.Context, name, preview string) (domain.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Project{}, apperr.Validation("Name is required")
	}

	unlock := store.LockItem(s.ownerID, StorageKey)
	defer unlock()

	list, _, err := s.load(ctx)
	if err != nil {
		return domain.Project{}, err
	}

	p := domain.Project{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: s.now().UTC(),
		Preview:   strings.TrimSpace(preview),
	}
	list = append(list, p)

	raw, err := json.Marshal(list)
	if err != nil {
		return domain.Project{}, apperr.Storage(fmt.Errorf("encode projects: %w", err))
	}
	if err := s.items.SetItem(ctx, s.ownerID, StorageKey, raw); err != nil {
		return domain.Project{}, apperr.Storage(fmt.Errorf("save projects: %w", err))
	}
	return p, nil
}

// load reports stored=false when the key has never been written.
func (s *Store) load(ctx context.Context) ([]domain.Project, bool, error) {
	raw, err := s.items.GetItem(ctx, s.ownerID, StorageKey)
	if err != nil {
		return nil, false, apperr.Storage(fmt.Errorf("load projects: %w", err))
	}
	list := []domain.Project{}
	if raw == nil {
		return list, false, nil
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, false, apperr.Storage(fmt.Errorf("decode projects: %w", err))
	}
	// Older stores may hold seeded demo rows; they are never user data.
	kept := list[:0]
	for _, p := range list {
		if !p.Demo {
			kept = append(kept, p)
		}
	}
	return kept, true, nil
}
