// internal/packs/resolver.go
package packs

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/packduel/packduel/internal/models"
)

// packSize is the card count of a normally-structured pack:
// 5 commons, 3 uncommons, 1 reverse holo, 1 hit.
const packSize = 10

// duplicateRetries bounds how often a fallback draw rerolls to avoid
// repeating a card id before giving up and allowing the repeat.
const duplicateRetries = 50

// Resolver rolls packs out of catalog pools. The rand source is injectable so
// tests can script every roll; access to it is serialized because rand.Rand
// is not goroutine safe.
type Resolver struct {
	catalog Catalog

	mu  sync.Mutex
	rng *rand.Rand
}

// NewResolver builds a resolver with a time-seeded random source.
func NewResolver(catalog Catalog) *Resolver {
	return NewResolverWithRand(catalog, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewResolverWithRand builds a resolver around a caller-supplied source.
func NewResolverWithRand(catalog Catalog, rng *rand.Rand) *Resolver {
	return &Resolver{catalog: catalog, rng: rng}
}

func (r *Resolver) intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

// CoinFlip returns true or false with equal probability.
func (r *Resolver) CoinFlip() bool {
	return r.intn(2) == 0
}

// GeneratePack draws one pack from the named pool. It returns an empty pack
// only when the pool has no cards at all; a pool lacking full rarity
// structure degrades to an undifferentiated draw.
func (r *Resolver) GeneratePack(ctx context.Context, poolID string) ([]models.Card, error) {
	pool, err := r.catalog.Pool(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, nil
	}

	var commons, uncommons, rares []models.Card
	for _, card := range pool {
		switch {
		case card.Rarity == models.RarityCommon:
			commons = append(commons, card)
		case card.Rarity == models.RarityUncommon:
			uncommons = append(uncommons, card)
		case card.Rarity.IsRareOrAbove():
			rares = append(rares, card)
		}
	}
	if len(commons) == 0 || len(uncommons) == 0 || len(rares) == 0 {
		return r.drawUnstructured(pool), nil
	}

	pack := make([]models.Card, 0, packSize)
	for i := 0; i < 5; i++ {
		pack = append(pack, r.draw(commons))
	}
	for i := 0; i < 3; i++ {
		pack = append(pack, r.draw(uncommons))
	}

	// Reverse-holo slot: cosmetic rarity, drawn from the two lower buckets.
	reversePool := append(append([]models.Card{}, commons...), uncommons...)
	pack = append(pack, r.draw(reversePool))

	pack = append(pack, r.drawHit(rares))
	return pack, nil
}

// drawUnstructured handles pools missing a rarity bucket: small pools are
// returned whole, larger ones get 10 uniform draws that avoid repeating a
// card id where possible.
func (r *Resolver) drawUnstructured(pool []models.Card) []models.Card {
	if len(pool) < packSize {
		pack := make([]models.Card, len(pool))
		copy(pack, pool)
		return pack
	}
	pack := make([]models.Card, 0, packSize)
	seen := make(map[string]struct{}, packSize)
	for len(pack) < packSize {
		card := r.draw(pool)
		for attempt := 0; attempt < duplicateRetries; attempt++ {
			if _, dup := seen[card.ID]; !dup {
				break
			}
			card = r.draw(pool)
		}
		seen[card.ID] = struct{}{}
		pack = append(pack, card)
	}
	return pack
}

// drawHit rolls the weighted hit slot out of the rare-or-above bucket.
func (r *Resolver) drawHit(rares []models.Card) models.Card {
	target := r.hitRarity(r.intn(100))

	hitPool := filterRarity(rares, func(rarity models.Rarity) bool { return rarity == target })
	if len(hitPool) == 0 {
		hitPool = filterRarity(rares, func(rarity models.Rarity) bool { return rarity == models.RarityRareHolo })
	}
	if len(hitPool) == 0 {
		hitPool = filterRarity(rares, func(rarity models.Rarity) bool { return rarity == models.RarityRare })
	}
	if len(hitPool) == 0 {
		hitPool = rares
	}
	return r.draw(hitPool)
}

// hitRarity maps a uniform [0,100) roll to the hit slot's target tier.
func (r *Resolver) hitRarity(roll int) models.Rarity {
	switch {
	case roll < 50:
		return models.RarityRare
	case roll < 75:
		return models.RarityRareHolo
	case roll < 90:
		return models.UltraRarities[r.intn(len(models.UltraRarities))]
	default:
		return models.SecretRarities[r.intn(len(models.SecretRarities))]
	}
}

func (r *Resolver) draw(pool []models.Card) models.Card {
	return pool[r.intn(len(pool))]
}

func filterRarity(cards []models.Card, keep func(models.Rarity) bool) []models.Card {
	var out []models.Card
	for _, card := range cards {
		if keep(card.Rarity) {
			out = append(out, card)
		}
	}
	return out
}
