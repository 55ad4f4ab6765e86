// Package menu holds the read-only menu catalog the ordering pipeline matches
// spoken item names against.
package menu

import (
	"fmt"
	"strings"

	"fareast/internal/models"

	"github.com/jinzhu/gorm"
)

// Size keys understood by PriceFor
const (
	SizeSmall = "small"
	SizeLarge = "large"
)

// Catalog is an immutable, ordered view of the menu. Order is the insertion
// order of the menu_items table, which makes matching deterministic.
type Catalog struct {
	items []models.MenuItem
	names []string
	byID  map[uint]int
}

// New builds a catalog from items in the given order
func New(items []models.MenuItem) *Catalog {
	c := &Catalog{
		items: make([]models.MenuItem, len(items)),
		names: make([]string, len(items)),
		byID:  make(map[uint]int, len(items)),
	}
	copy(c.items, items)
	for i, item := range c.items {
		c.names[i] = strings.ToLower(strings.TrimSpace(item.Name))
		if item.ID != 0 {
			c.byID[item.ID] = i
		}
	}
	return c
}

// Load reads the whole menu once, ordered by primary key
func Load(db *gorm.DB) (*Catalog, error) {
	var items []models.MenuItem
	if err := db.Order("id ASC").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to load menu: %w", err)
	}
	return New(items), nil
}

// Len returns the number of catalog entries
func (c *Catalog) Len() int {
	return len(c.items)
}

// Items returns a copy of the catalog entries in catalog order
func (c *Catalog) Items() []models.MenuItem {
	out := make([]models.MenuItem, len(c.items))
	copy(out, c.items)
	return out
}

// Lookup returns the entry with the given id
func (c *Catalog) Lookup(id uint) (models.MenuItem, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.MenuItem{}, false
	}
	return c.items[i], true
}

// FindBestMatch resolves a spoken item name to a catalog entry.
//
// A case-insensitive exact name wins. Otherwise the first entry, in catalog
// order, whose name contains the requested name is returned. No match is a
// normal outcome for free-text items such as "extra sauce".
func (c *Catalog) FindBestMatch(name string) (models.MenuItem, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return models.MenuItem{}, false
	}

	for i, n := range c.names {
		if n == needle {
			return c.items[i], true
		}
	}
	for i, n := range c.names {
		if strings.Contains(n, needle) {
			return c.items[i], true
		}
	}
	return models.MenuItem{}, false
}

// NormalizeSize maps the size tokens the agent uses onto catalog size keys.
// Unknown tokens are lower-cased and returned for tier lookup.
func NormalizeSize(size string) string {
	s := strings.ToLower(strings.TrimSpace(size))
	switch s {
	case "":
		return ""
	case "pt", "pint", "s", "sm", "small":
		return SizeSmall
	case "qt", "quart", "l", "lg", "large":
		return SizeLarge
	}
	return strings.ReplaceAll(s, " ", "_")
}

// PriceFor returns the catalog price of item under a size label.
// An empty size falls back to the single price, then small, then large, then
// the "plain" tier or the first tier by name.
func PriceFor(item models.MenuItem, size string) (float64, bool) {
	p := item.Pricing
	switch key := NormalizeSize(size); key {
	case "":
		switch {
		case p.PriceSingle != nil:
			return *p.PriceSingle, true
		case p.PriceSmall != nil:
			return *p.PriceSmall, true
		case p.PriceLarge != nil:
			return *p.PriceLarge, true
		}
		if keys := p.PriceTiers.Keys(); len(keys) > 0 {
			if v, ok := p.PriceTiers["plain"]; ok {
				return v, true
			}
			return p.PriceTiers[keys[0]], true
		}
		return 0, false
	case SizeSmall:
		if p.PriceSmall != nil {
			return *p.PriceSmall, true
		}
	case SizeLarge:
		if p.PriceLarge != nil {
			return *p.PriceLarge, true
		}
	default:
		if v, ok := p.PriceTiers[key]; ok {
			return v, true
		}
	}
	if p.PriceSingle != nil {
		return *p.PriceSingle, true
	}
	return 0, false
}
