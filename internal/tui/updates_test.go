package tui

import (
	"bytes"
	"context"
	"testing"
	"time"

	"coinboard/internal/present"

	tea "github.com/charmbracelet/bubbletea"
)

func TestViewUpdates_KeepsNewest(t *testing.T) {
	u := newViewUpdates()
	u.push(present.Table{Seq: 5, Query: "eth"})
	u.push(present.Table{Seq: 3, Query: "bit"})

	msg, ok := u.wait(context.Background())().(viewMsg)
	if !ok {
		t.Fatal("expected a viewMsg")
	}
	if msg.table.Query != "eth" {
		t.Errorf("delivered query %q, want newest %q", msg.table.Query, "eth")
	}
}

func TestViewUpdates_PushNeverBlocks(t *testing.T) {
	u := newViewUpdates()
	done := make(chan struct{})
	go func() {
		for i := 1; i <= 100; i++ {
			u.push(present.Table{Seq: uint64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("push blocked without a reader")
	}
}

func TestViewUpdates_WaitStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if msg := newViewUpdates().wait(ctx)(); msg != nil {
		t.Errorf("expected nil message after cancel, got %T", msg)
	}
}

func TestModel_ViewMsgIgnoresOlderTable(t *testing.T) {
	m, _ := newTestModel(t, &stubProvider{})
	m.sync()
	current := m.table.Seq

	next, _ := m.Update(viewMsg{table: present.Table{Seq: current - 1}})
	m = next.(Model)
	if m.table.Seq != current || len(m.table.Rows) == 0 {
		t.Errorf("older table replaced the current one (seq %d)", m.table.Seq)
	}
}

func TestProgram_StateChangingKeysDoNotBlock(t *testing.T) {
	_, d := newTestModel(t, &stubProvider{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var out bytes.Buffer
	p := newProgram(ctx, d,
		tea.WithInput(nil),
		tea.WithOutput(&out),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	)

	type result struct {
		model tea.Model
		err   error
	}
	done := make(chan result, 1)
	go func() {
		m, err := p.Run()
		done <- result{m, err}
	}()

	go func() {
		p.Send(runes("f")) // favorite the first row
		p.Send(runes("w")) // favorites only
		p.Send(tea.KeyMsg{Type: tea.KeyEsc})
		p.Send(runes("q"))
	}()

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("program failed: %v", r.err)
		}
		final := r.model.(Model)
		if !final.table.FavoritesOnly || final.table.Shown != 1 {
			t.Errorf("final table favorites_only=%v shown=%d, want true/1",
				final.table.FavoritesOnly, final.table.Shown)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("program stopped responding after a state-changing key")
	}

	if !d.Favorites().IsFavorite("bitcoin") || !d.State().FavoritesOnly {
		t.Error("dashboard did not receive the commands")
	}
}

func TestProgram_ReceivesBackgroundRefresh(t *testing.T) {
	_, d := newTestModel(t, &stubProvider{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := newProgram(ctx, d,
		tea.WithInput(nil),
		tea.WithOutput(&bytes.Buffer{}),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	)
	done := make(chan tea.Model, 1)
	go func() {
		m, _ := p.Run()
		done <- m
	}()

	if err := d.ManualRefresh(ctx); err != nil {
		t.Fatal(err)
	}
	want := d.View().Seq - 1 // the view built by the refresh commit
	time.Sleep(50 * time.Millisecond)
	p.Quit()

	select {
	case m := <-done:
		if got := m.(Model).table.Seq; got < want {
			t.Errorf("program table seq = %d, want >= %d", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("program did not quit")
	}
}
