package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset is one row of the ranked market list.
// Nullable market fields are pointers; an Asset is never mutated after decoding.
type Asset struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Symbol    string           `json:"symbol"`
	Image     string           `json:"image"`
	Rank      *int             `json:"rank,omitempty"`
	Price     *decimal.Decimal `json:"price,omitempty"`
	Change24h *decimal.Decimal `json:"change_24h,omitempty"`
	MarketCap *decimal.Decimal `json:"market_cap,omitempty"`
}

// Snapshot is the ranked list fetched for one currency at one point in time.
// Assets keep the server-provided rank order.
type Snapshot struct {
	Currency  Currency  `json:"currency"`
	Assets    []Asset   `json:"assets"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Find returns the asset with the given id.
func (s Snapshot) Find(id string) (Asset, bool) {
	for _, a := range s.Assets {
		if a.ID == id {
			return a, true
		}
	}
	return Asset{}, false
}

// IsEmpty reports whether no snapshot has been committed yet.
func (s Snapshot) IsEmpty() bool {
	return s.FetchedAt.IsZero()
}

// PricePoint is a single (timestamp, price) sample of a series.
type PricePoint struct {
	Time  time.Time       `json:"time"`
	Price decimal.Decimal `json:"price"`
}

// Series is a historical price series in ascending time order.
type Series struct {
	AssetID  string       `json:"asset_id"`
	Currency Currency     `json:"currency"`
	Points   []PricePoint `json:"points"`
}

// Values returns the prices as float64 for renderers.
func (s Series) Values() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Price.InexactFloat64()
	}
	return out
}

// ViewState holds the user-controlled table settings.
type ViewState struct {
	Query         string   `json:"query"`
	FavoritesOnly bool     `json:"favorites_only"`
	Currency      Currency `json:"currency"`
}
