package menu

import (
	"path/filepath"
	"strings"
	"testing"

	"fareast/internal/database"
	"fareast/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(v float64) *float64 { return &v }

func testCatalog() *Catalog {
	return New([]models.MenuItem{
		{Name: "General Tso's Chicken", Category: "Chef's Specialties", Spicy: true, Pricing: models.Pricing{PriceSingle: price(12.95)}},
		{Name: "Roast Pork Fried Rice", Category: "Fried Rice", Pricing: models.Pricing{PriceSmall: price(5.95), PriceLarge: price(9.95)}},
		{Name: "General Tso's Chicken Combo", Category: "Combination Plates", Pricing: models.Pricing{PriceSingle: price(11.15)}},
		{Name: "Fried Scallop (10)", Category: "Specialties", Pricing: models.Pricing{PriceTiers: models.PriceTable{"plain": 6.25, "with_fries": 10.75}}},
	})
}

func TestFindBestMatch(t *testing.T) {
	c := testCatalog()

	item, ok := c.FindBestMatch("General Tso's Chicken")
	require.True(t, ok)
	assert.Equal(t, "General Tso's Chicken", item.Name)

	item, ok = c.FindBestMatch("  general tso's chicken combo ")
	require.True(t, ok)
	assert.Equal(t, "General Tso's Chicken Combo", item.Name)

	item, ok = c.FindBestMatch("Pork Fried Rice")
	require.True(t, ok)
	assert.Equal(t, "Roast Pork Fried Rice", item.Name)

	_, ok = c.FindBestMatch("asdf-nonexistent-item")
	assert.False(t, ok)

	_, ok = c.FindBestMatch("")
	assert.False(t, ok)
}

func TestFindBestMatchTieBreakIsCatalogOrder(t *testing.T) {
	c := testCatalog()

	// both "General Tso's Chicken" entries contain "tso", the first one wins
	for i := 0; i < 20; i++ {
		item, ok := c.FindBestMatch("Tso")
		require.True(t, ok)
		assert.Equal(t, "General Tso's Chicken", item.Name)
	}
}

func TestPriceFor(t *testing.T) {
	c := testCatalog()
	items := c.Items()

	tests := []struct {
		name  string
		item  models.MenuItem
		size  string
		want  float64
		found bool
	}{
		{"single", items[0], "", 12.95, true},
		{"single ignores size", items[0], "Qt", 12.95, true},
		{"pint", items[1], "Pt", 5.95, true},
		{"quart", items[1], "Qt", 9.95, true},
		{"missing size uses small", items[1], "", 5.95, true},
		{"tier", items[3], "with fries", 10.75, true},
		{"plain default", items[3], "", 6.25, true},
		{"unknown tier", items[3], "Combination", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PriceFor(tt.item, tt.size)
			assert.Equal(t, tt.found, ok)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestNormalizeSize(t *testing.T) {
	assert.Equal(t, SizeSmall, NormalizeSize("Pt"))
	assert.Equal(t, SizeLarge, NormalizeSize(" quart "))
	assert.Equal(t, "with_fries", NormalizeSize("With Fries"))
	assert.Equal(t, "", NormalizeSize(" "))
}

func TestRender(t *testing.T) {
	out := testCatalog().Render()

	assert.Contains(t, out, "CHEF'S SPECIALTIES")
	assert.Contains(t, out, "General Tso's Chicken (spicy) .... 12.95")
	assert.Contains(t, out, "Roast Pork Fried Rice .... Pt 5.95 / Qt 9.95")
	assert.Contains(t, out, "plain 6.25 / with fries 10.75")
}

func TestSeedAndLoad(t *testing.T) {
	db, err := database.Open(database.Config{Driver: "sqlite3", DSN: filepath.Join(t.TempDir(), "menu.db")})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, database.Migrate(db))

	items, err := DefaultSeed()
	require.NoError(t, err)
	require.NotEmpty(t, items)

	n, err := Seed(db, items)
	require.NoError(t, err)
	assert.Equal(t, len(items), n)

	// second run leaves the table alone
	n, err = Seed(db, items)
	require.NoError(t, err)
	assert.Zero(t, n)

	c, err := Load(db)
	require.NoError(t, err)
	assert.Equal(t, len(items), c.Len())

	loaded := c.Items()
	assert.Equal(t, items[0].Name, loaded[0].Name)
	assert.Equal(t, items[len(items)-1].Name, loaded[len(loaded)-1].Name)

	item, ok := c.FindBestMatch("General Tso's Chicken")
	require.True(t, ok)
	assert.Equal(t, "C16", item.ItemNumber)
	assert.True(t, item.Spicy)

	byID, ok := c.Lookup(item.ID)
	require.True(t, ok)
	assert.Equal(t, item.Name, byID.Name)

	scallop, ok := c.FindBestMatch("Fried Scallop")
	require.True(t, ok)
	p, ok := PriceFor(scallop, "with_beef_fried_rice")
	require.True(t, ok)
	assert.InDelta(t, 11.75, p, 0.001)
}

func TestParseSeedRejectsItemWithoutPrice(t *testing.T) {
	doc := `
categories:
  - name: Soup
    items:
      - name: Mystery Soup
`
	_, err := ParseSeed(strings.NewReader(doc))
	assert.Error(t, err)
}
