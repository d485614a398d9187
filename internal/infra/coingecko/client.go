package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"coinboard/internal/domain"
	"coinboard/internal/infra"
)

const demoKeyHeader = "x-cg-demo-api-key"

// Client is the CoinGecko REST client (Boundary Layer).
// It performs plain request/response fetches; retries are the caller's business.
type Client struct {
	baseURL    string
	apiKey     string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client against baseURL (e.g. https://api.coingecko.com/api/v3).
func NewClient(baseURL, apiKey, userAgent string, timeout time.Duration) *Client {
	if userAgent == "" {
		userAgent = infra.DefaultUserAgent
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		logger: slog.Default().With("module", "coingecko"),
	}
}

// NewClientFromConfig builds a client from the api section of the config.
func NewClientFromConfig(cfg *infra.Config) *Client {
	return NewClient(cfg.API.BaseURL, cfg.API.APIKey, cfg.API.UserAgent, cfg.APITimeout())
}

// FetchMarkets returns one page of assets ranked by market cap.
func (c *Client) FetchMarkets(ctx context.Context, q domain.MarketQuery) ([]domain.Asset, error) {
	params := url.Values{}
	params.Set("vs_currency", string(q.Currency))
	params.Set("order", "market_cap_desc")
	params.Set("per_page", strconv.Itoa(q.PerPage))
	params.Set("page", strconv.Itoa(max(q.Page, 1)))
	params.Set("sparkline", "false")
	params.Set("price_change_percentage", "24h")

	var data []marketResponse
	if err := c.getJSON(ctx, "markets", "/coins/markets", params, &data); err != nil {
		return nil, err
	}

	assets := make([]domain.Asset, 0, len(data))
	for _, m := range data {
		assets = append(assets, domain.Asset{
			ID:        m.ID,
			Name:      m.Name,
			Symbol:    m.Symbol,
			Image:     m.Image,
			Rank:      m.MarketCapRank,
			Price:     m.CurrentPrice,
			Change24h: m.PriceChangePercentage24h,
			MarketCap: m.MarketCap,
		})
	}

	c.logger.Debug("Markets fetched", slog.String("currency", string(q.Currency)), slog.Int("count", len(assets)))
	return assets, nil
}

// FetchMarketChart returns the price series of one asset, in the order the API provides.
func (c *Client) FetchMarketChart(ctx context.Context, q domain.ChartQuery) (domain.Series, error) {
	if q.AssetID == "" {
		return domain.Series{}, fmt.Errorf("market_chart: %w", domain.ErrUnknownAsset)
	}

	params := url.Values{}
	params.Set("vs_currency", string(q.Currency))
	params.Set("days", strconv.Itoa(max(q.Days, 1)))
	if q.Interval != "" {
		params.Set("interval", q.Interval)
	}

	var data marketChartResponse
	path := "/coins/" + url.PathEscape(q.AssetID) + "/market_chart"
	if err := c.getJSON(ctx, "market_chart", path, params, &data); err != nil {
		return domain.Series{}, err
	}

	series := domain.Series{
		AssetID:  q.AssetID,
		Currency: q.Currency,
		Points:   make([]domain.PricePoint, 0, len(data.Prices)),
	}
	for _, p := range data.Prices {
		series.Points = append(series.Points, domain.PricePoint{
			Time:  time.UnixMilli(p[0].IntPart()),
			Price: p[1],
		})
	}
	return series, nil
}

// getJSON performs a GET and decodes the body; any non-200 status is a failure.
func (c *Client) getJSON(ctx context.Context, op, path string, params url.Values, out any) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return domain.NewFatalNetworkError(op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.apiKey != "" {
		req.Header.Set(demoKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.NewNetworkError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		io.Copy(io.Discard, resp.Body)
		return &domain.StatusError{Op: op, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.NewNetworkError(op, err)
	}
	if len(body) == 0 {
		return domain.NewNetworkError(op, domain.ErrEmptyResponse)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return domain.NewFatalNetworkError(op, fmt.Errorf("decode: %w", err))
	}
	return nil
}
