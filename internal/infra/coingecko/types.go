package coingecko

import "github.com/shopspring/decimal"

// marketResponse is one element of GET /coins/markets.
// Reference: https://docs.coingecko.com/reference/coins-markets
type marketResponse struct {
	ID                       string           `json:"id"`
	Symbol                   string           `json:"symbol"`
	Name                     string           `json:"name"`
	Image                    string           `json:"image"`
	CurrentPrice             *decimal.Decimal `json:"current_price"`
	MarketCap                *decimal.Decimal `json:"market_cap"`
	MarketCapRank            *int             `json:"market_cap_rank"`
	PriceChangePercentage24h *decimal.Decimal `json:"price_change_percentage_24h"`
	TotalVolume              *decimal.Decimal `json:"total_volume"`
	LastUpdated              string           `json:"last_updated"`
}

// marketChartResponse is GET /coins/{id}/market_chart.
// Each entry is [unix_ms, value].
type marketChartResponse struct {
	Prices       [][2]decimal.Decimal `json:"prices"`
	MarketCaps   [][2]decimal.Decimal `json:"market_caps"`
	TotalVolumes [][2]decimal.Decimal `json:"total_volumes"`
}
