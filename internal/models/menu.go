package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/jinzhu/gorm"
)

// PriceTable is a size-keyed price list stored as a JSON text column
type PriceTable map[string]float64

// Value converts the table to a JSON string for storage
func (p PriceTable) Value() (driver.Value, error) {
	if len(p) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan converts the database value back to a table
func (p *PriceTable) Scan(value interface{}) error {
	if value == nil {
		*p = PriceTable{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return errors.New("unsupported type for PriceTable")
	}
}

// Keys returns the tier names in sorted order
func (p PriceTable) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Pricing holds one of the three price shapes a menu item can carry:
// a single price, a small/large pair, or a size-keyed table.
type Pricing struct {
	PriceSingle *float64   `gorm:"column:price_single" yaml:"single,omitempty" json:"priceSingle,omitempty"`
	PriceSmall  *float64   `gorm:"column:price_small" yaml:"small,omitempty" json:"priceSmall,omitempty"`
	PriceLarge  *float64   `gorm:"column:price_large" yaml:"large,omitempty" json:"priceLarge,omitempty"`
	PriceTiers  PriceTable `gorm:"column:price_tiers;type:text" yaml:"tiers,omitempty" json:"priceTiers,omitempty"`
}

// HasPrice reports whether at least one price is resolvable
func (p Pricing) HasPrice() bool {
	return p.PriceSingle != nil || p.PriceSmall != nil || p.PriceLarge != nil || len(p.PriceTiers) > 0
}

// MenuItem is a read-only catalog entry. Name is the only key callers match on.
type MenuItem struct {
	gorm.Model
	ItemNumber  string `gorm:"column:item_number" yaml:"number"`
	Name        string `gorm:"not null" yaml:"name"`
	Description string `gorm:"type:text" yaml:"description"`
	Category    string `yaml:"-"`
	Included    string `yaml:"included"`
	Spicy       bool   `gorm:"column:is_spicy" yaml:"spicy"`
	Pricing     `yaml:",inline"`
}

// TableName pins the table name shared with existing menu databases
func (MenuItem) TableName() string {
	return "menu_items"
}

// ValidateMenuItem validates a menu item
func ValidateMenuItem(item *MenuItem) error {
	if item.Name == "" {
		return fmt.Errorf("menu item name is required")
	}
	if !item.HasPrice() {
		return fmt.Errorf("menu item %q has no price", item.Name)
	}
	return nil
}
