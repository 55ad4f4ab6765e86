package pricing

import (
	"fareast/internal/menu"
	"fareast/internal/models"
)

// AddOn is a priced extra the customer can ask for
type AddOn string

const (
	ExtraChicken   AddOn = "extra_chicken"
	ExtraBeef      AddOn = "extra_beef"
	ExtraVegetable AddOn = "extra_vegetable"
)

var addOnDeltas = map[AddOn]float64{
	ExtraChicken:   2.00,
	ExtraBeef:      3.00,
	ExtraVegetable: 0,
}

// AddOnDelta returns the fixed surcharge for an add-on; unknown add-ons are free
func AddOnDelta(a AddOn) float64 {
	return addOnDeltas[a]
}

// Substitute prices a dish where one included component is swapped for
// another menu item: base × substitute / original.
func Substitute(base, substitute, original float64) float64 {
	if original <= 0 {
		return base
	}
	return RoundCents(base * substitute / original)
}

// Swap names a component replacement inside a dish, e.g. the pork fried rice
// of a combination plate replaced by a pint of chicken lo mein.
type Swap struct {
	Original     string
	OriginalSize string
	Replacement  string
	Size         string
}

// QuoteRequest is what the customer asked for
type QuoteRequest struct {
	Name   string
	Size   string
	Swaps  []Swap
	AddOns []AddOn
}

// Quote is the catalog-derived unit price for a request
type Quote struct {
	MenuItem  models.MenuItem
	UnitPrice float64
}

// Quote prices a request from the catalog using the substitution formula and
// add-on deltas. It reports false when the dish or a swapped component is not
// on the menu.
func (r *Resolver) Quote(req QuoteRequest) (Quote, bool) {
	item, ok := r.catalog.FindBestMatch(req.Name)
	if !ok {
		return Quote{}, false
	}
	price, ok := menu.PriceFor(item, req.Size)
	if !ok {
		return Quote{}, false
	}

	for _, s := range req.Swaps {
		orig, ok := r.componentPrice(s.Original, s.OriginalSize)
		if !ok {
			return Quote{}, false
		}
		repl, ok := r.componentPrice(s.Replacement, s.Size)
		if !ok {
			return Quote{}, false
		}
		price = Substitute(price, repl, orig)
	}
	for _, a := range req.AddOns {
		price += AddOnDelta(a)
	}

	return Quote{MenuItem: item, UnitPrice: RoundCents(price)}, true
}

func (r *Resolver) componentPrice(name, size string) (float64, bool) {
	item, ok := r.catalog.FindBestMatch(name)
	if !ok {
		return 0, false
	}
	return menu.PriceFor(item, size)
}
