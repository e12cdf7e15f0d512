// internal/models/card.go
package models

// Rarity is an ordered classification of cards, from common prints up to the
// secret tiers. The set of values is closed; BasePoints is kept exhaustive so
// a new tier cannot be added without a point value.
type Rarity string

const (
	RarityCommon       Rarity = "Common"
	RarityUncommon     Rarity = "Uncommon"
	RarityRare         Rarity = "Rare"
	RarityRareHolo     Rarity = "Rare Holo"
	RarityRareHoloEX   Rarity = "Rare Holo EX"
	RarityRareHoloGX   Rarity = "Rare Holo GX"
	RarityRareHoloV    Rarity = "Rare Holo V"
	RarityRareHoloVMAX Rarity = "Rare Holo VMAX"
	RarityRareUltra    Rarity = "Rare Ultra"
	RarityRareSecret   Rarity = "Rare Secret"
	RarityRareRainbow  Rarity = "Rare Rainbow"
	RarityRareGold     Rarity = "Rare Gold"
)

// UltraRarities are the tiers a 75-90 hit roll selects among.
var UltraRarities = []Rarity{
	RarityRareHoloEX,
	RarityRareHoloGX,
	RarityRareHoloV,
	RarityRareHoloVMAX,
	RarityRareUltra,
}

// SecretRarities are the tiers a 90-100 hit roll selects among.
var SecretRarities = []Rarity{
	RarityRareSecret,
	RarityRareRainbow,
	RarityRareGold,
}

// BasePoints returns the fixed point value for the rarity tier. Unknown
// rarities score zero; card data is validated upstream by the catalog.
func (r Rarity) BasePoints() int {
	switch r {
	case RarityCommon:
		return 5
	case RarityUncommon:
		return 10
	case RarityRare:
		return 20
	case RarityRareHolo:
		return 35
	case RarityRareHoloEX:
		return 60
	case RarityRareHoloGX:
		return 70
	case RarityRareHoloV:
		return 80
	case RarityRareHoloVMAX:
		return 100
	case RarityRareUltra:
		return 120
	case RarityRareSecret:
		return 150
	case RarityRareRainbow:
		return 175
	case RarityRareGold:
		return 200
	default:
		return 0
	}
}

// IsRareOrAbove reports whether the rarity belongs in the rare slot of a pack.
func (r Rarity) IsRareOrAbove() bool {
	switch r {
	case RarityCommon, RarityUncommon:
		return false
	default:
		return r.BasePoints() > 0
	}
}

// Card is an immutable catalog entry. The catalog itself is an external
// collaborator; this service only reads cards to roll packs and score them.
type Card struct {
	ID          string   `json:"cardId"`
	Name        string   `json:"name"`
	SetID       string   `json:"setId"`
	Rarity      Rarity   `json:"rarity"`
	HP          int      `json:"hp,omitempty"`
	BattleValue int      `json:"battleValue,omitempty"`
	Subtypes    []string `json:"subtypes,omitempty"`
}
