// Package asciichart draws price series as terminal line charts.
package asciichart

import (
	"fmt"
	"strings"
	"sync"

	"coinboard/internal/domain"
	"coinboard/internal/present"
	"coinboard/internal/service"

	"github.com/guptarohit/asciigraph"
	"github.com/shopspring/decimal"
)

// Renderer builds text charts of a fixed size.
type Renderer struct {
	width  int
	height int
}

// NewRenderer returns a renderer plotting width columns by height rows.
func NewRenderer(width, height int) *Renderer {
	if width <= 0 {
		width = 60
	}
	if height <= 0 {
		height = 12
	}
	return &Renderer{width: width, height: height}
}

// Render plots spec.Series. An empty series renders a placeholder.
func (r *Renderer) Render(spec service.ChartSpec) (service.ChartInstance, error) {
	values := spec.Series.Values()

	var b strings.Builder
	b.WriteString(spec.Label)
	b.WriteByte('\n')

	if len(values) == 0 {
		b.WriteString("No price data")
		return &Chart{text: b.String()}, nil
	}

	last := spec.Series.Points[len(spec.Series.Points)-1]
	lo, hi := bounds(spec.Series.Points)
	fmt.Fprintf(&b, "Last %s  High %s  Low %s\n",
		present.FormatAmount(spec.Currency, last.Price),
		present.FormatAmount(spec.Currency, hi),
		present.FormatAmount(spec.Currency, lo),
	)

	plot := asciigraph.Plot(values,
		asciigraph.Height(r.height),
		asciigraph.Width(r.width),
		asciigraph.Caption(fmt.Sprintf("%s → %s",
			spec.Series.Points[0].Time.Local().Format("15:04"),
			last.Time.Local().Format("15:04"),
		)),
	)
	b.WriteString(plot)

	return &Chart{text: b.String()}, nil
}

func bounds(points []domain.PricePoint) (lo, hi decimal.Decimal) {
	lo, hi = points[0].Price, points[0].Price
	for _, p := range points[1:] {
		lo = decimal.Min(lo, p.Price)
		hi = decimal.Max(hi, p.Price)
	}
	return lo, hi
}

// Chart is a rendered chart. After Destroy it draws nothing.
type Chart struct {
	mu        sync.Mutex
	text      string
	destroyed bool
}

// View returns the chart text.
func (c *Chart) View() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text
}

// Destroy releases the rendered text.
func (c *Chart) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.text = ""
	c.destroyed = true
}

// Destroyed reports whether Destroy was called.
func (c *Chart) Destroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}
