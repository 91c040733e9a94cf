package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"daily-trivia-service/internal/domain"
)

// CatalogLoader reads content items and the category directory from
// JSON files, the format the curation pipeline exports.
type CatalogLoader struct {
	itemsPath      string
	categoriesPath string
}

func NewCatalogLoader(itemsPath, categoriesPath string) *CatalogLoader {
	return &CatalogLoader{itemsPath: itemsPath, categoriesPath: categoriesPath}
}

func (l *CatalogLoader) LoadCatalog(_ context.Context) (domain.Catalog, error) {
	var items []domain.ContentItem
	if err := readJSON(l.itemsPath, &items); err != nil {
		return domain.Catalog{}, fmt.Errorf("load content items: %w", err)
	}
	var directory []domain.CategoryEntry
	if err := readJSON(l.categoriesPath, &directory); err != nil {
		return domain.Catalog{}, fmt.Errorf("load category directory: %w", err)
	}
	return domain.NewCatalog(items, directory), nil
}

func readJSON(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
