package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/roach88/pedago/internal/model"
)

// CatalogKey is the key of the last successfully synced catalog.
const CatalogKey = "pedago_catalog"

// LoadCatalog returns the last synced catalog, or nil if there is none.
// A corrupt snapshot is treated as absent.
func (s *Store) LoadCatalog(ctx context.Context) (*model.Catalog, error) {
	raw, ok, err := s.Get(ctx, CatalogKey)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var cat model.Catalog
	if err := json.Unmarshal([]byte(raw), &cat); err != nil {
		slog.Warn("discarding corrupt catalog snapshot", "key", CatalogKey, "error", err)
		return nil, nil
	}
	if cat.Chapters == nil {
		cat.Chapters = map[string]*model.ChapterDefinition{}
	}
	return &cat, nil
}

// SaveCatalog writes the catalog snapshot. A nil catalog deletes it.
func (s *Store) SaveCatalog(ctx context.Context, cat *model.Catalog) error {
	if cat == nil {
		return s.Delete(ctx, CatalogKey)
	}
	data, err := json.Marshal(cat)
	if err != nil {
		return fmt.Errorf("save catalog: marshal: %w", err)
	}
	if err := s.Put(ctx, CatalogKey, string(data)); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}
	return nil
}
