// Package pricing turns the agent's per-item prices into authoritative line
// totals and cross-links each line to the menu catalog when it can.
package pricing

import (
	"math"
	"strings"

	"fareast/internal/menu"
	"fareast/internal/models"
)

// Flag marks something noteworthy about a priced line. Flags never reject a line.
type Flag string

const (
	FlagUnmatched        Flag = "unmatched"
	FlagNonPositivePrice Flag = "non_positive_price"
	FlagPriceDrift       Flag = "price_drift"
)

// Matcher resolves a spoken item name to a catalog entry
type Matcher interface {
	FindBestMatch(name string) (models.MenuItem, bool)
}

// Line is one priced order line
type Line struct {
	MenuItemID   *uint
	MenuItemName string
	Size         *string
	Quantity     int
	UnitPrice    float64
	LineTotal    float64
	CatalogPrice *float64
	Flags        []Flag
}

// Has reports whether the line carries flag f
func (l Line) Has(f Flag) bool {
	for _, x := range l.Flags {
		if x == f {
			return true
		}
	}
	return false
}

// Resolver prices order lines against a catalog
type Resolver struct {
	catalog Matcher
}

// NewResolver creates a resolver over catalog
func NewResolver(catalog Matcher) *Resolver {
	return &Resolver{catalog: catalog}
}

// RoundCents rounds a dollar amount to the nearest cent
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// PriceLine resolves the catalog reference for name and computes the line
// total as quantity × unit price, ignoring any total the agent computed.
// The unit price is the agent's and is kept exactly as supplied, since
// substitutions and add-ons are priced during the conversation. The line
// total is rounded to the cent. A quantity below one is treated as one.
func (r *Resolver) PriceLine(name, size string, quantity int, agentPrice float64) Line {
	if quantity < 1 {
		quantity = 1
	}

	line := Line{
		Quantity:  quantity,
		UnitPrice: agentPrice,
	}
	line.LineTotal = RoundCents(float64(quantity) * line.UnitPrice)

	if s := strings.TrimSpace(size); s != "" {
		line.Size = &s
	}
	if line.UnitPrice <= 0 {
		line.Flags = append(line.Flags, FlagNonPositivePrice)
	}

	item, ok := r.catalog.FindBestMatch(name)
	if !ok {
		line.Flags = append(line.Flags, FlagUnmatched)
		return line
	}

	id := item.ID
	line.MenuItemID = &id
	line.MenuItemName = item.Name

	if p, ok := menu.PriceFor(item, size); ok {
		line.CatalogPrice = &p
		if RoundCents(p) != RoundCents(line.UnitPrice) {
			line.Flags = append(line.Flags, FlagPriceDrift)
		}
	}
	return line
}
