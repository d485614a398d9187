package present

import (
	"coinboard/internal/domain"
	"coinboard/internal/service"
)

// Row is one formatted table row.
type Row struct {
	ID        string    `json:"id"`
	Rank      string    `json:"rank"`
	Name      string    `json:"name"`
	Symbol    string    `json:"symbol"`
	Image     string    `json:"image,omitempty"`
	Price     string    `json:"price"`
	Change    string    `json:"change"`
	Direction Direction `json:"direction"`
	MarketCap string    `json:"market_cap"`
	Favorite  bool      `json:"favorite"`
}

// Table is the full rendered dashboard.
type Table struct {
	Seq           uint64            `json:"seq"`
	Currency      domain.Currency   `json:"currency"`
	Query         string            `json:"query"`
	FavoritesOnly bool              `json:"favorites_only"`
	Rows          []Row             `json:"rows"`
	Shown         int               `json:"shown"`
	Total         int               `json:"total"`
	Status        service.Status    `json:"status"`
	Chart         service.ChartView `json:"chart"`
}

// FormatRow formats one asset priced in cur.
func FormatRow(a domain.Asset, cur domain.Currency, favorite bool) Row {
	change, dir := FormatChange(a.Change24h)
	return Row{
		ID:        a.ID,
		Rank:      FormatRank(a.Rank),
		Name:      a.Name,
		Symbol:    FormatSymbol(a.Symbol),
		Image:     a.Image,
		Price:     FormatPrice(cur, a.Price),
		Change:    change,
		Direction: dir,
		MarketCap: FormatMarketCap(cur, a.MarketCap),
		Favorite:  favorite,
	}
}

// BuildTable formats every visible row of v. Prices use the snapshot's
// currency so a table never mixes currencies.
func BuildTable(v service.View) Table {
	cur := v.Currency
	if cur == "" {
		cur = v.State.Currency
	}

	rows := make([]Row, 0, len(v.Rows))
	for _, a := range v.Rows {
		rows = append(rows, FormatRow(a, cur, v.Favorites.IsFavorite(a.ID)))
	}

	return Table{
		Seq:           v.Seq,
		Currency:      v.State.Currency,
		Query:         v.State.Query,
		FavoritesOnly: v.State.FavoritesOnly,
		Rows:          rows,
		Shown:         len(rows),
		Total:         v.Total,
		Status:        v.Status,
		Chart:         v.Chart,
	}
}

// FeedMessage is one frame of the websocket feed.
type FeedMessage struct {
	Type string `json:"type"`
	View Table  `json:"view"`
}

// FeedTypeView marks a full dashboard frame.
const FeedTypeView = "view"
