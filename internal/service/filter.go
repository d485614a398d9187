package service

import (
	"strings"

	"coinboard/internal/domain"
)

// Membership answers favorite lookups for the filter.
type Membership interface {
	IsFavorite(id string) bool
}

// ComputeVisible derives the visible rows from a snapshot.
// An asset is kept when the trimmed, case-insensitive query is a substring of its
// name or symbol, and, with favoritesOnly, when it is a favorite.
// The result is a subsequence of snapshot.Assets in the same order.
func ComputeVisible(snapshot domain.Snapshot, query string, favoritesOnly bool, favorites Membership) []domain.Asset {
	q := strings.ToLower(strings.TrimSpace(query))

	out := make([]domain.Asset, 0, len(snapshot.Assets))
	for _, a := range snapshot.Assets {
		if q != "" &&
			!strings.Contains(strings.ToLower(a.Name), q) &&
			!strings.Contains(strings.ToLower(a.Symbol), q) {
			continue
		}
		if favoritesOnly && (favorites == nil || !favorites.IsFavorite(a.ID)) {
			continue
		}
		out = append(out, a)
	}
	return out
}
