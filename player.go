package main

import "math/rand"

// PlayerColors is the fixed palette. Each color is unique within a room.
var PlayerColors = []string{
	"#ff4d4f",
	"#40a9ff",
	"#52c41a",
	"#faad14",
	"#9254de",
	"#fa541c",
	"#eb2f96",
	"#13c2c2",
}

// EffectKind identifies a timed player modifier.
type EffectKind string

const (
	EffectSpeed  EffectKind = "speed"
	EffectShield EffectKind = "shield"
	EffectShrink EffectKind = "shrink"
)

// EffectDurationTicks maps each effect to its nominal duration.
var EffectDurationTicks = map[EffectKind]int{
	EffectSpeed:  TickRate * 6,
	EffectShield: TickRate * 5,
	EffectShrink: TickRate * 1,
}

// Effect tracks a running modifier. Total is kept so clients can derive
// a proportional time-remaining cue.
type Effect struct {
	Remaining int
	Total     int
}

// Death causes
const (
	CauseWall      = "wall"
	CauseCollision = "collision"
)

// Player is one worm in a room.
type Player struct {
	ID       string
	Name     string
	Color    string
	ClientID string // owning connection, for direct sends

	Alive         bool
	Direction     Vec
	Pending       Vec // applied at the start of the next tick
	Segments      []Vec
	Growth        int
	BaseSpeed     float64
	Speed         float64
	Effects       map[EffectKind]*Effect
	Score         int
	Kills         int
	SurvivalTicks int
	SurvivalBonus int
	LastTail      *Vec // food-drop site on death
	DeathCause    string
}

// NewPlayer creates a player and gives it a fresh body.
func NewPlayer(id, name, color, clientID string, baseSpeed float64, rng *rand.Rand) *Player {
	p := &Player{
		ID:       id,
		Name:     name,
		Color:    color,
		ClientID: clientID,
	}
	p.Reset(baseSpeed, rng)
	return p
}

// Reset returns the player to fresh-spawn state for a new round.
func (p *Player) Reset(baseSpeed float64, rng *rand.Rand) {
	if baseSpeed <= 0 {
		baseSpeed = p.BaseSpeed
		if baseSpeed <= 0 {
			baseSpeed = 4
		}
	}
	p.Alive = true
	p.Direction = Vec{X: 1, Y: 0}
	p.Pending = Vec{X: 1, Y: 0}
	p.Segments = []Vec{RandomCell(rng)}
	p.Growth = 0
	p.BaseSpeed = baseSpeed
	p.Speed = baseSpeed
	p.Effects = make(map[EffectKind]*Effect)
	p.Score = 0
	p.Kills = 0
	p.SurvivalTicks = 0
	p.SurvivalBonus = 0
	p.LastTail = nil
	p.DeathCause = ""
}

// Head returns the leading segment. Only valid while segments is non-empty.
func (p *Player) Head() Vec {
	return p.Segments[0]
}

// SetPendingDirection validates and stores a direction request. The change
// takes effect on the next tick. Diagonals and exact reversals of the
// current committed direction are rejected; invalid input is dropped
// silently since clients are untrusted.
func (p *Player) SetPendingDirection(x, y float64) bool {
	if !p.Alive {
		return false
	}
	ax, ay := x, y
	if ax < 0 {
		ax = -ax
	}
	if ay < 0 {
		ay = -ay
	}
	// Axis-aligned unit vectors only: exactly one of x/y is ±1.
	if ax == ay {
		return false
	}
	if (ax != 1 && ax != 0) || (ay != 1 && ay != 0) {
		return false
	}
	if x == -p.Direction.X && y == -p.Direction.Y {
		return false
	}
	p.Pending = Vec{X: x, Y: y}
	return true
}

// HasEffect reports whether the given effect is currently active.
func (p *Player) HasEffect(kind EffectKind) bool {
	_, ok := p.Effects[kind]
	return ok
}
