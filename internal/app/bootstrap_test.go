package app

import (
	"context"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"coinboard/internal/domain"
	"coinboard/internal/infra"
	"coinboard/internal/infra/storage"
)

type staticProvider struct {
	assets []domain.Asset
}

func (p staticProvider) FetchMarkets(ctx context.Context, q domain.MarketQuery) ([]domain.Asset, error) {
	return p.assets, nil
}

func (p staticProvider) FetchMarketChart(ctx context.Context, q domain.ChartQuery) (domain.Series, error) {
	return domain.Series{AssetID: q.AssetID, Currency: q.Currency}, nil
}

func newTestBootstrap(t *testing.T, provider domain.MarketDataProvider) *Bootstrap {
	t.Helper()
	dir := t.TempDir()

	store, err := storage.NewStorage(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	downloader, err := infra.NewIconDownloader(filepath.Join(dir, "icons"), 24)
	if err != nil {
		t.Fatalf("NewIconDownloader: %v", err)
	}

	b := NewBootstrap()
	b.Config = infra.DefaultConfig()
	b.Metrics = &infra.Metrics{}
	b.Storage = store
	b.Downloader = downloader
	b.Dashboard = b.newDashboard(provider)
	t.Cleanup(b.Close)
	return b
}

func iconServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		png.Encode(w, image.NewRGBA(image.Rect(0, 0, 48, 48)))
	}))
}

func TestBootstrap_SyncIcons(t *testing.T) {
	srv := iconServer()
	defer srv.Close()

	snap := domain.Snapshot{
		Currency: domain.USD,
		Assets: []domain.Asset{
			{ID: "bitcoin", Name: "Bitcoin", Symbol: "btc", Image: srv.URL + "/btc.png"},
			{ID: "ethereum", Name: "Ethereum", Symbol: "eth", Image: srv.URL + "/eth.png"},
			{ID: "noimage", Name: "No Image", Symbol: "nil"},
		},
		FetchedAt: time.Now(),
	}
	b := newTestBootstrap(t, staticProvider{assets: snap.Assets})
	b.Dashboard.ToggleFavorite("ethereum")

	b.SyncIcons(context.Background(), snap)

	coins, err := b.Storage.GetAllCoins()
	if err != nil {
		t.Fatal(err)
	}
	if len(coins) != 3 {
		t.Fatalf("coins = %d, want 3", len(coins))
	}

	btc, _ := b.Storage.GetCoin("bitcoin")
	if btc == nil || btc.IconPath == "" || btc.LastSyncedAt.IsZero() {
		t.Errorf("bitcoin = %+v", btc)
	}
	if btc.IsFavorite {
		t.Error("bitcoin is not a favorite")
	}

	eth, _ := b.Storage.GetCoin("ethereum")
	if eth == nil || !eth.IsFavorite {
		t.Errorf("ethereum favorite not mirrored: %+v", eth)
	}

	none, _ := b.Storage.GetCoin("noimage")
	if none == nil || none.IconPath != "" {
		t.Errorf("noimage = %+v", none)
	}
}

func TestBootstrap_MirrorFavorite(t *testing.T) {
	b := newTestBootstrap(t, staticProvider{})

	b.Dashboard.ToggleFavorite("solana")
	coin, err := b.Storage.GetCoin("solana")
	if err != nil || coin == nil || !coin.IsFavorite {
		t.Fatalf("coin = %+v, err = %v", coin, err)
	}

	b.Dashboard.ToggleFavorite("solana")
	coin, _ = b.Storage.GetCoin("solana")
	if coin.IsFavorite {
		t.Error("favorite should be cleared")
	}

	// watchlist persisted through the same storage
	raw, ok, err := b.Storage.GetValue("watchlist")
	if err != nil || !ok || raw != "[]" {
		t.Errorf("watchlist = %q %v %v", raw, ok, err)
	}
}

func TestBootstrap_StartLoadsSnapshot(t *testing.T) {
	b := newTestBootstrap(t, staticProvider{assets: []domain.Asset{{ID: "bitcoin", Name: "Bitcoin", Symbol: "btc"}}})
	b.Downloader = nil

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := b.Start(ctx); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for b.Dashboard.View().Total == 0 {
		if time.Now().After(deadline) {
			t.Fatal("initial load did not commit")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
