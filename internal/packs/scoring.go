// internal/packs/scoring.go
package packs

import "github.com/packduel/packduel/internal/models"

// specialSubtypes are the tags worth a flat bonus each.
var specialSubtypes = map[string]struct{}{
	"EX":      {},
	"GX":      {},
	"V":       {},
	"VMAX":    {},
	"VSTAR":   {},
	"Radiant": {},
	"Legend":  {},
}

var battleValueThresholds = []int{50, 75, 100, 125, 150, 175, 200}

var hpThresholds = []int{51, 101, 151, 201, 251, 301}

// Points computes the deterministic score of a single card: the rarity's base
// value, plus tiered battle-value and HP bonuses, plus 10 per special
// subtype, plus an evolution-stage bonus (Stage 2 supersedes Stage 1).
func Points(card models.Card) int {
	points := card.Rarity.BasePoints()

	for _, threshold := range battleValueThresholds {
		if card.BattleValue >= threshold {
			points += 5
		}
	}
	for _, threshold := range hpThresholds {
		if card.HP >= threshold {
			points += 5
		}
	}

	stage1, stage2 := false, false
	for _, tag := range card.Subtypes {
		if _, ok := specialSubtypes[tag]; ok {
			points += 10
		}
		switch tag {
		case "Stage 1":
			stage1 = true
		case "Stage 2":
			stage2 = true
		}
	}
	if stage2 {
		points += 10
	} else if stage1 {
		points += 5
	}

	return points
}

// PackPoints is the sum of Points over every card in the pack.
func PackPoints(cards []models.Card) int {
	total := 0
	for _, card := range cards {
		total += Points(card)
	}
	return total
}
