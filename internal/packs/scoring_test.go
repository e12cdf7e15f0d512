// internal/packs/scoring_test.go
package packs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/packduel/packduel/internal/models"
)

func TestPointsBaseValues(t *testing.T) {
	cases := []struct {
		rarity models.Rarity
		want   int
	}{
		{models.RarityCommon, 5},
		{models.RarityUncommon, 10},
		{models.RarityRare, 20},
		{models.RarityRareHolo, 35},
		{models.RarityRareHoloEX, 60},
		{models.RarityRareHoloGX, 70},
		{models.RarityRareHoloV, 80},
		{models.RarityRareHoloVMAX, 100},
		{models.RarityRareUltra, 120},
		{models.RarityRareSecret, 150},
		{models.RarityRareRainbow, 175},
		{models.RarityRareGold, 200},
	}
	for _, tc := range cases {
		got := Points(models.Card{Rarity: tc.rarity})
		assert.Equal(t, tc.want, got, "rarity %s", tc.rarity)
	}
}

func TestPointsBattleValueTiers(t *testing.T) {
	// One bonus per threshold crossed at 50/75/100/125/150/175/200.
	assert.Equal(t, 5, Points(models.Card{Rarity: models.RarityCommon, BattleValue: 49}))
	assert.Equal(t, 10, Points(models.Card{Rarity: models.RarityCommon, BattleValue: 50}))
	assert.Equal(t, 15, Points(models.Card{Rarity: models.RarityCommon, BattleValue: 80}))
	assert.Equal(t, 5+7*5, Points(models.Card{Rarity: models.RarityCommon, BattleValue: 200}))
	assert.Equal(t, 5+7*5, Points(models.Card{Rarity: models.RarityCommon, BattleValue: 999}))
}

func TestPointsHPTiers(t *testing.T) {
	assert.Equal(t, 5, Points(models.Card{Rarity: models.RarityCommon, HP: 50}))
	assert.Equal(t, 10, Points(models.Card{Rarity: models.RarityCommon, HP: 51}))
	assert.Equal(t, 15, Points(models.Card{Rarity: models.RarityCommon, HP: 101}))
	assert.Equal(t, 5+6*5, Points(models.Card{Rarity: models.RarityCommon, HP: 301}))
}

func TestPointsSubtypes(t *testing.T) {
	assert.Equal(t, 20+10, Points(models.Card{
		Rarity:   models.RarityRare,
		Subtypes: []string{"EX"},
	}))
	assert.Equal(t, 20+10+10, Points(models.Card{
		Rarity:   models.RarityRare,
		Subtypes: []string{"V", "VMAX"},
	}))
	assert.Equal(t, 20, Points(models.Card{
		Rarity:   models.RarityRare,
		Subtypes: []string{"Basic"},
	}), "non-special subtypes score nothing")
}

func TestPointsStageBonus(t *testing.T) {
	assert.Equal(t, 5+5, Points(models.Card{
		Rarity:   models.RarityCommon,
		Subtypes: []string{"Stage 1"},
	}))
	assert.Equal(t, 5+10, Points(models.Card{
		Rarity:   models.RarityCommon,
		Subtypes: []string{"Stage 2"},
	}))
	// Stage 2 supersedes Stage 1, never stacks with it.
	assert.Equal(t, 5+10, Points(models.Card{
		Rarity:   models.RarityCommon,
		Subtypes: []string{"Stage 1", "Stage 2"},
	}))
}

func TestPointsCombined(t *testing.T) {
	card := models.Card{
		Rarity:      models.RarityRareHoloGX,
		HP:          250,
		BattleValue: 130,
		Subtypes:    []string{"GX", "Stage 2"},
	}
	// 70 base + 4 battle tiers + 3 HP tiers + GX + Stage 2.
	assert.Equal(t, 70+20+15+10+10, Points(card))
}

func TestPackPoints(t *testing.T) {
	pack := []models.Card{
		{Rarity: models.RarityCommon},
		{Rarity: models.RarityUncommon},
		{Rarity: models.RarityRareHolo},
	}
	assert.Equal(t, 50, PackPoints(pack))
	assert.Equal(t, 0, PackPoints(nil))
}
