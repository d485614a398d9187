package tui

import (
	"context"
	"sync"

	"coinboard/internal/present"

	tea "github.com/charmbracelet/bubbletea"
)

// viewUpdates hands dashboard tables to the program without blocking the
// notifier. Dashboard commands run inside Update, so a blocking p.Send from
// the subscriber would wait on the event loop it is running in.
// Only the newest table is kept.
type viewUpdates struct {
	mu     sync.Mutex
	latest present.Table
	ready  chan struct{}
}

func newViewUpdates() *viewUpdates {
	return &viewUpdates{ready: make(chan struct{}, 1)}
}

// push records t unless a newer table is already pending.
func (u *viewUpdates) push(t present.Table) {
	u.mu.Lock()
	if t.Seq != 0 && t.Seq < u.latest.Seq {
		u.mu.Unlock()
		return
	}
	u.latest = t
	u.mu.Unlock()

	select {
	case u.ready <- struct{}{}:
	default:
	}
}

// wait returns a command that delivers the next pending table as a viewMsg.
func (u *viewUpdates) wait(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case <-u.ready:
			u.mu.Lock()
			t := u.latest
			u.mu.Unlock()
			return viewMsg{table: t}
		}
	}
}
