// Package drafts persists generated website drafts in an owner's local storage.
package drafts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/midori/internal/apperr"
	"github.com/ashureev/midori/internal/domain"
	"github.com/ashureev/midori/internal/store"
)

// StorageKey is the local-storage key holding the draft list.
const StorageKey = "midori_drafts"

// Store is one owner's draft list.
type Store struct {
	items   store.Items
	ownerID string
	now     func() time.Time
}

// NewStore binds a draft store to ownerID.
func NewStore(items store.Items, ownerID string) *Store {
	return &Store{items: items, ownerID: ownerID, now: time.Now}
}

// Create appends a new unsaved draft.
func (s *Store) Create(ctx context.Context, code, prompt string) (domain.Draft, error) {
	unlock := store.LockItem(s.ownerID, StorageKey)
	defer unlock()

	list, err := s.load(ctx)
	if err != nil {
		return domain.Draft{}, err
	}

	now := s.now()
	id, err := newID(now)
	if err != nil {
		return domain.Draft{}, apperr.Internal(fmt.Errorf("generate draft id: %w", err))
	}
	draft := domain.Draft{
		ID:        id,
		Code:      code,
		Prompt:    prompt,
		CreatedAt: now.UTC(),
		IsSaved:   false,
	}
	list = append(list, draft)

	if err := s.save(ctx, list); err != nil {
		return domain.Draft{}, err
	}
	slog.Info("Draft created", "user_id", s.ownerID, "draft_id", id, "code_length", len(code))
	return draft, nil
}

// Update replaces a draft's code. An unknown id is a no-op.
func (s *Store) Update(ctx context.Context, id, code string) error {
	return s.mutate(ctx, id, func(d *domain.Draft) { d.Code = code })
}

// MarkSaved flags a draft as saved. An unknown id is a no-op.
func (s *Store) MarkSaved(ctx context.Context, id string) error {
	return s.mutate(ctx, id, func(d *domain.Draft) { d.IsSaved = true })
}

// LoadAll returns every draft in stored order. No data yields an empty slice.
func (s *Store) LoadAll(ctx context.Context) ([]domain.Draft, error) {
	return s.load(ctx)
}

// Get returns one draft.
func (s *Store) Get(ctx context.Context, id string) (domain.Draft, error) {
	list, err := s.load(ctx)
	if err != nil {
		return domain.Draft{}, err
	}
	for _, d := range list {
		if d.ID == id {
			return d, nil
		}
	}
	return domain.Draft{}, apperr.NotFound("draft")
}

func (s *Store) mutate(ctx context.Context, id string, apply func(*domain.Draft)) error {
	unlock := store.LockItem(s.ownerID, StorageKey)
	defer unlock()

	list, err := s.load(ctx)
	if err != nil {
		return err
	}
	for i := range list {
		if list[i].ID == id {
			apply(&list[i])
			return s.save(ctx, list)
		}
	}
	slog.Debug("Draft not found, nothing to update", "user_id", s.ownerID, "draft_id", id)
	return nil
}

func (s *Store) load(ctx context.Context) ([]domain.Draft, error) {
	raw, err := s.items.GetItem(ctx, s.ownerID, StorageKey)
	if err != nil {
		return nil, apperr.Storage(fmt.Errorf("load drafts: %w", err))
	}
	list := []domain.Draft{}
	if len(raw) == 0 {
		return list, nil
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, apperr.Storage(fmt.Errorf("decode drafts: %w", err))
	}
	return list, nil
}

func (s *Store) save(ctx context.Context, list []domain.Draft) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return apperr.Storage(fmt.Errorf("encode drafts: %w", err))
	}
	if err := s.items.SetItem(ctx, s.ownerID, StorageKey, raw); err != nil {
		return apperr.Storage(fmt.Errorf("save drafts: %w", err))
	}
	return nil
}
