package menu

import (
	"fmt"
	"strings"

	"fareast/internal/models"
)

// Render formats the catalog as a plain-text menu, grouped by category in
// catalog order, for the ordering agent's instructions.
func (c *Catalog) Render() string {
	var b strings.Builder
	category := ""
	for _, item := range c.items {
		if item.Category != category {
			category = item.Category
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "%s\n", strings.ToUpper(category))
		}
		b.WriteString(renderLine(item))
		b.WriteString("\n")
	}
	return b.String()
}

func renderLine(item models.MenuItem) string {
	var b strings.Builder
	if item.ItemNumber != "" {
		fmt.Fprintf(&b, "%s. ", item.ItemNumber)
	}
	b.WriteString(item.Name)
	if item.Spicy {
		b.WriteString(" (spicy)")
	}
	b.WriteString(" .... ")
	b.WriteString(renderPrices(item.Pricing))
	if item.Included != "" {
		fmt.Fprintf(&b, " [with %s]", item.Included)
	}
	return b.String()
}

func renderPrices(p models.Pricing) string {
	var parts []string
	if p.PriceSingle != nil {
		parts = append(parts, fmt.Sprintf("%.2f", *p.PriceSingle))
	}
	if p.PriceSmall != nil {
		parts = append(parts, fmt.Sprintf("Pt %.2f", *p.PriceSmall))
	}
	if p.PriceLarge != nil {
		parts = append(parts, fmt.Sprintf("Qt %.2f", *p.PriceLarge))
	}
	for _, k := range p.PriceTiers.Keys() {
		parts = append(parts, fmt.Sprintf("%s %.2f", strings.ReplaceAll(k, "_", " "), p.PriceTiers[k]))
	}
	return strings.Join(parts, " / ")
}
