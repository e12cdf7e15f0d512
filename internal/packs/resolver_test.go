// internal/packs/resolver_test.go
package packs

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packduel/packduel/internal/models"
)

// scriptSource feeds rand.Rand a fixed sequence. rand.Intn reads the top 31
// bits of Int63, so scripted values are shifted up to land there verbatim.
type scriptSource struct {
	vals []int64
	pos  int
}

func (s *scriptSource) Int63() int64 {
	v := s.vals[s.pos%len(s.vals)]
	s.pos++
	return v << 32
}

func (s *scriptSource) Seed(int64) {}

func scriptedResolver(catalog Catalog, vals ...int64) *Resolver {
	return NewResolverWithRand(catalog, rand.New(&scriptSource{vals: vals}))
}

type fakeCatalog struct {
	pools map[string][]models.Card
	err   error
}

func (c *fakeCatalog) Pool(_ context.Context, poolID string) ([]models.Card, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.pools[poolID], nil
}

func card(id string, rarity models.Rarity) models.Card {
	return models.Card{ID: id, Name: id, SetID: "test", Rarity: rarity}
}

func structuredPool() []models.Card {
	return []models.Card{
		card("c0", models.RarityCommon),
		card("c1", models.RarityCommon),
		card("c2", models.RarityCommon),
		card("c3", models.RarityCommon),
		card("c4", models.RarityCommon),
		card("u0", models.RarityUncommon),
		card("u1", models.RarityUncommon),
		card("u2", models.RarityUncommon),
		card("r0", models.RarityRare),
		card("h0", models.RarityRareHolo),
	}
}

func TestGeneratePackStructured(t *testing.T) {
	catalog := &fakeCatalog{pools: map[string][]models.Card{"test": structuredPool()}}
	// 5 common draws, 3 uncommon draws, reverse-holo index 5 (first uncommon),
	// hit roll 60 (Rare Holo), hit draw index 0.
	r := scriptedResolver(catalog, 0, 1, 2, 3, 4, 0, 1, 2, 5, 60, 0)

	pack, err := r.GeneratePack(context.Background(), "test")
	require.NoError(t, err)
	require.Len(t, pack, 10)

	ids := make([]string, len(pack))
	for i, c := range pack {
		ids[i] = c.ID
	}
	assert.Equal(t, []string{"c0", "c1", "c2", "c3", "c4", "u0", "u1", "u2", "u0", "h0"}, ids)
	assert.Equal(t, models.RarityRareHolo, pack[9].Rarity, "hit slot matches the rolled tier")
}

func TestGeneratePackHitFallback(t *testing.T) {
	// No Rare Holo in the pool: a 60 roll falls back to the plain Rare.
	pool := []models.Card{
		card("c0", models.RarityCommon),
		card("u0", models.RarityUncommon),
		card("r0", models.RarityRare),
	}
	catalog := &fakeCatalog{pools: map[string][]models.Card{"test": pool}}
	r := scriptedResolver(catalog, 0, 0, 0, 0, 0, 0, 0, 0, 0, 60, 0)

	pack, err := r.GeneratePack(context.Background(), "test")
	require.NoError(t, err)
	require.Len(t, pack, 10)
	assert.Equal(t, "r0", pack[9].ID)
}

func TestGeneratePackUnstructuredSmallPool(t *testing.T) {
	// A pool missing rarity buckets and smaller than a pack comes back whole.
	pool := []models.Card{
		card("c0", models.RarityCommon),
		card("c1", models.RarityCommon),
		card("c2", models.RarityCommon),
	}
	catalog := &fakeCatalog{pools: map[string][]models.Card{"test": pool}}
	r := scriptedResolver(catalog, 0)

	pack, err := r.GeneratePack(context.Background(), "test")
	require.NoError(t, err)
	assert.Equal(t, pool, pack)
}

func TestGeneratePackUnstructuredLargePool(t *testing.T) {
	pool := make([]models.Card, 12)
	for i := range pool {
		pool[i] = card(string(rune('a'+i)), models.RarityCommon)
	}
	catalog := &fakeCatalog{pools: map[string][]models.Card{"test": pool}}
	r := scriptedResolver(catalog, 0, 1, 2, 3, 4, 5, 6, 7, 8, 9)

	pack, err := r.GeneratePack(context.Background(), "test")
	require.NoError(t, err)
	require.Len(t, pack, 10)

	seen := make(map[string]struct{})
	for _, c := range pack {
		seen[c.ID] = struct{}{}
	}
	assert.Len(t, seen, 10, "uniform draws avoid duplicates while the pool allows")
}

func TestGeneratePackEmptyPool(t *testing.T) {
	catalog := &fakeCatalog{pools: map[string][]models.Card{}}
	r := NewResolver(catalog)

	pack, err := r.GeneratePack(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, pack)
}

func TestGeneratePackCatalogError(t *testing.T) {
	catalog := &fakeCatalog{err: errors.New("catalog offline")}
	r := NewResolver(catalog)

	_, err := r.GeneratePack(context.Background(), "test")
	assert.Error(t, err)
}

func TestHitRarityMapping(t *testing.T) {
	cases := []struct {
		roll   int
		script []int64
		want   models.Rarity
	}{
		{0, []int64{0}, models.RarityRare},
		{49, []int64{0}, models.RarityRare},
		{50, []int64{0}, models.RarityRareHolo},
		{74, []int64{0}, models.RarityRareHolo},
		{75, []int64{0}, models.RarityRareHoloEX},
		{89, []int64{2}, models.RarityRareHoloV},
		{90, []int64{1}, models.RarityRareRainbow},
		{99, []int64{2}, models.RarityRareGold},
	}
	for _, tc := range cases {
		r := scriptedResolver(nil, tc.script...)
		assert.Equal(t, tc.want, r.hitRarity(tc.roll), "roll %d", tc.roll)
	}
}

func TestCoinFlip(t *testing.T) {
	r := scriptedResolver(nil, 0, 1)
	assert.True(t, r.CoinFlip())
	assert.False(t, r.CoinFlip())
}
