package domain

import (
	"context"
	"time"
)

// MarketQuery selects one page of the ranked market list.
type MarketQuery struct {
	Currency Currency
	PerPage  int
	Page     int
}

// ChartQuery selects a historical price series.
type ChartQuery struct {
	AssetID  string
	Currency Currency
	Days     int
	Interval string // e.g. "minute"; empty lets the API choose
}

// MarketDataProvider is the read-only market API consumed by the dashboard.
type MarketDataProvider interface {
	FetchMarkets(ctx context.Context, q MarketQuery) ([]Asset, error)
	FetchMarketChart(ctx context.Context, q ChartQuery) (Series, error)
}

// KeyValueStore is a durable string-keyed store (favorites persistence).
// GetValue returns ("", false, nil) for a missing key.
type KeyValueStore interface {
	GetValue(key string) (string, bool, error)
	SetValue(key, value string) error
}

// Clock abstracts time.Now for status lines and subtitles.
type Clock func() time.Time
