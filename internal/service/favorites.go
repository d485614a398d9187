package service

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"

	"coinboard/internal/domain"
)

// WatchlistKey is the storage key of the favorites list (JSON array of asset ids).
const WatchlistKey = "watchlist"

// FavoriteSet is an immutable copy of the favorites membership.
type FavoriteSet map[string]struct{}

// IsFavorite reports membership.
func (s FavoriteSet) IsFavorite(id string) bool {
	_, ok := s[id]
	return ok
}

// FavoritesStore is the durable favorites set.
// It is loaded once on creation and written through on every toggle.
type FavoritesStore struct {
	mu       sync.RWMutex
	kv       domain.KeyValueStore
	ids      []string // persisted order, toggle order
	members  map[string]struct{}
	onToggle []func(id string, favorite bool)
	logger   *slog.Logger
}

// NewFavoritesStore loads the watchlist from kv.
// An unreadable or corrupted entry yields an empty set.
func NewFavoritesStore(kv domain.KeyValueStore) *FavoritesStore {
	s := &FavoritesStore{
		kv:      kv,
		members: make(map[string]struct{}),
		logger:  slog.Default().With("module", "favorites"),
	}
	s.load()
	return s
}

func (s *FavoritesStore) load() {
	raw, ok, err := s.kv.GetValue(WatchlistKey)
	if err != nil {
		s.logger.Warn("Favorites unreadable, starting empty", slog.Any("error", err))
		return
	}
	if !ok || raw == "" {
		return
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		s.logger.Warn("Favorites corrupted, starting empty", slog.Any("error", err))
		return
	}

	for _, id := range ids {
		if _, dup := s.members[id]; dup || id == "" {
			continue
		}
		s.members[id] = struct{}{}
		s.ids = append(s.ids, id)
	}
	s.logger.Info("Favorites loaded", slog.Int("count", len(s.ids)))
}

// OnToggle registers a hook called after every toggle, outside the lock.
func (s *FavoritesStore) OnToggle(fn func(id string, favorite bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onToggle = append(s.onToggle, fn)
}

// IsFavorite reports whether id is currently a favorite.
func (s *FavoritesStore) IsFavorite(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[id]
	return ok
}

// Toggle flips membership of id, persists the whole list and returns the new membership.
// A failed write is logged; the in-memory set still reflects the toggle.
func (s *FavoritesStore) Toggle(id string) bool {
	s.mu.Lock()
	_, was := s.members[id]
	if was {
		delete(s.members, id)
		for i, v := range s.ids {
			if v == id {
				s.ids = append(s.ids[:i], s.ids[i+1:]...)
				break
			}
		}
	} else {
		s.members[id] = struct{}{}
		s.ids = append(s.ids, id)
	}
	s.persistLocked()
	hooks := s.onToggle
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(id, !was)
	}
	return !was
}

func (s *FavoritesStore) persistLocked() {
	ids := s.ids
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	if err != nil {
		s.logger.Error("Failed to encode favorites", slog.Any("error", err))
		return
	}
	if err := s.kv.SetValue(WatchlistKey, string(b)); err != nil {
		s.logger.Error("Failed to persist favorites", slog.Any("error", err))
	}
}

// List returns a copy of the current membership.
func (s *FavoritesStore) List() FavoriteSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(FavoriteSet, len(s.members))
	for id := range s.members {
		out[id] = struct{}{}
	}
	return out
}

// IDs returns the favorite ids sorted alphabetically.
func (s *FavoritesStore) IDs() []string {
	s.mu.RLock()
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}
