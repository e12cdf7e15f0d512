// internal/packs/catalog.go
package packs

import (
	"context"

	"github.com/packduel/packduel/internal/models"
	"github.com/packduel/packduel/internal/store"
)

// Catalog resolves a pool id to the cards it contains. The card catalog
// itself belongs to another service; this interface is the whole dependency.
type Catalog interface {
	Pool(ctx context.Context, poolID string) ([]models.Card, error)
}

const cardsCollection = "cards"

// StoreCatalog reads pools from the shared document store, one card document
// per catalog entry keyed by setId.
type StoreCatalog struct {
	store store.Store
}

func NewStoreCatalog(s store.Store) *StoreCatalog {
	return &StoreCatalog{store: s}
}

func (c *StoreCatalog) Pool(ctx context.Context, poolID string) ([]models.Card, error) {
	var cards []models.Card
	err := c.store.Find(ctx, cardsCollection, store.Filter{store.Eq("setId", poolID)}, &cards)
	if err != nil {
		return nil, err
	}
	return cards, nil
}
