package menu

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"fareast/internal/models"

	"github.com/jinzhu/gorm"
	"gopkg.in/yaml.v3"
)

//go:embed seed.yaml
var defaultSeed []byte

type seedFile struct {
	Categories []seedCategory `yaml:"categories"`
}

type seedCategory struct {
	Name  string            `yaml:"name"`
	Items []models.MenuItem `yaml:"items"`
}

// ParseSeed decodes a menu seed document into catalog entries, in file order
func ParseSeed(r io.Reader) ([]models.MenuItem, error) {
	var f seedFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode menu seed: %w", err)
	}

	var items []models.MenuItem
	for _, cat := range f.Categories {
		for _, item := range cat.Items {
			item.Category = cat.Name
			if err := models.ValidateMenuItem(&item); err != nil {
				return nil, fmt.Errorf("invalid menu seed: %w", err)
			}
			items = append(items, item)
		}
	}
	return items, nil
}

// DefaultSeed returns the embedded Far East Kitchen menu
func DefaultSeed() ([]models.MenuItem, error) {
	return ParseSeed(bytes.NewReader(defaultSeed))
}

// SeedFile reads a menu seed from path, or the embedded menu when path is empty
func SeedFile(path string) ([]models.MenuItem, error) {
	if path == "" {
		return DefaultSeed()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open menu seed: %w", err)
	}
	defer f.Close()
	return ParseSeed(f)
}

// Seed inserts items when the menu table is empty and reports how many were
// written. An existing menu is left untouched.
func Seed(db *gorm.DB, items []models.MenuItem) (int, error) {
	var count int64
	if err := db.Model(&models.MenuItem{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count menu items: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	tx := db.Begin()
	for i := range items {
		item := items[i]
		if err := tx.Create(&item).Error; err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("failed to insert menu item %q: %w", item.Name, err)
		}
	}
	if err := tx.Commit().Error; err != nil {
		return 0, fmt.Errorf("failed to commit menu seed: %w", err)
	}
	return len(items), nil
}
