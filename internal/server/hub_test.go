package server

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"coinboard/internal/domain"
	"coinboard/internal/infra"
	"coinboard/internal/present"
	"coinboard/internal/service"
)

func latestTable(t *testing.T, h *Hub) present.Table {
	t.Helper()
	_, data := h.Latest()
	if data == nil {
		t.Fatal("hub has no frame")
	}
	var msg present.FeedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return msg.View
}

func TestHub_IgnoresOlderFrame(t *testing.T) {
	h := NewHub(&infra.Metrics{})
	h.Broadcast(present.Table{Seq: 2, Query: "eth"})
	h.Broadcast(present.Table{Seq: 1, Query: "bit"})

	seq, _ := h.Latest()
	if seq != 2 {
		t.Errorf("latest seq = %d, want 2", seq)
	}
	if got := latestTable(t, h).Query; got != "eth" {
		t.Errorf("latest query = %q, want eth", got)
	}
}

func TestHub_InterleavedNotifiesKeepNewestView(t *testing.T) {
	p := &stubProvider{}
	m := &infra.Metrics{}
	refresh := service.NewRefreshController(p, 50, m)
	chart := service.NewChartSession(p, textRenderer{}, 1, "minute", m)
	d := service.NewDashboard(service.NewFavoritesStore(mapKV{}), refresh, chart, domain.USD)
	if err := d.ManualRefresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	// holds the "bit" view back so it reaches the hub after the "eth" view
	d.Subscribe(func(v service.View) {
		if v.State.Query == "bit" {
			time.Sleep(100 * time.Millisecond)
		}
	})
	s := New(d, m, Options{Listen: "127.0.0.1:0"})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		d.SetQuery("bit")
	}()
	time.Sleep(20 * time.Millisecond)
	d.SetQuery("eth")
	wg.Wait()

	if got := latestTable(t, s.Hub()).Query; got != d.State().Query {
		t.Errorf("hub latest query = %q, dashboard query = %q", got, d.State().Query)
	}
}

func TestHub_BurstCoalescesToFinalFrame(t *testing.T) {
	h := NewHub(&infra.Metrics{})

	const last = 200
	for i := uint64(1); i <= last; i++ {
		h.Broadcast(present.Table{Seq: i})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	client := &Client{id: "test", hub: h, send: make(chan []byte, sendBuffer)}
	h.register <- client

	select {
	case data := <-client.send:
		var msg present.FeedMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatal(err)
		}
		if msg.View.Seq != last {
			t.Errorf("first frame seq = %d, want %d", msg.View.Seq, last)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no frame delivered")
	}

	// the single pending wake-up delivers the same final frame at most once more
	time.Sleep(20 * time.Millisecond)
	if n := len(client.send); n > 1 {
		t.Errorf("%d extra frames queued, want at most 1", n)
	}
}
