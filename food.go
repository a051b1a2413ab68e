package main

import (
	"math/rand"

	"github.com/google/uuid"
)

// FoodKind distinguishes basic from golden food.
type FoodKind string

const (
	FoodBasic  FoodKind = "basic"
	FoodGolden FoodKind = "golden"
)

// FoodScores is the score awarded per food kind.
var FoodScores = map[FoodKind]int{
	FoodBasic:  10,
	FoodGolden: 50,
}

// FoodGrowth is the pending-growth increase per food kind.
var FoodGrowth = map[FoodKind]int{
	FoodBasic:  3,
	FoodGolden: 6,
}

// PowerupScores is the score awarded on power-up pickup.
var PowerupScores = map[EffectKind]int{
	EffectSpeed:  20,
	EffectShield: 20,
	EffectShrink: 15,
}

// powerupKinds in spawn order
var powerupKinds = []EffectKind{EffectSpeed, EffectShield, EffectShrink}

// Food is a consumable item on the arena floor.
type Food struct {
	ID   string   `json:"id"`
	Type FoodKind `json:"type"`
	X    float64  `json:"x"`
	Y    float64  `json:"y"`
}

// Powerup grants a timed effect on pickup.
type Powerup struct {
	ID   string     `json:"id"`
	Type EffectKind `json:"type"`
	X    float64    `json:"x"`
	Y    float64    `json:"y"`
}

// NewFood spawns a food item at a random cell. Rarity of golden food is a
// per-mode chance.
func NewFood(goldenChance float64, rng *rand.Rand) *Food {
	kind := FoodBasic
	if rng.Float64() < goldenChance {
		kind = FoodGolden
	}
	coord := RandomCell(rng)
	return &Food{ID: uuid.NewString(), Type: kind, X: coord.X, Y: coord.Y}
}

// NewFoodAt spawns a basic food item at an exact position, used for the
// drop left behind by a dying player.
func NewFoodAt(pos Vec) *Food {
	return &Food{ID: uuid.NewString(), Type: FoodBasic, X: pos.X, Y: pos.Y}
}

// NewPowerup spawns a random power-up at a random cell.
func NewPowerup(rng *rand.Rand) *Powerup {
	kind := powerupKinds[rng.Intn(len(powerupKinds))]
	coord := RandomCell(rng)
	return &Powerup{ID: uuid.NewString(), Type: kind, X: coord.X, Y: coord.Y}
}

// Pos returns the item position as a Vec.
func (f *Food) Pos() Vec { return Vec{X: f.X, Y: f.Y} }

// Pos returns the item position as a Vec.
func (p *Powerup) Pos() Vec { return Vec{X: p.X, Y: p.Y} }
