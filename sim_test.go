package main

import (
	"testing"
)

// newRunningRoom returns a room mid-round with deterministic spawns
// disabled so tests control every entity on the field.
func newRunningRoom(t *testing.T, names ...string) (*Room, []*Player) {
	t.Helper()
	room := newTestRoom(t, "classic")
	players := make([]*Player, 0, len(names))
	for _, name := range names {
		p, err := room.AddPlayer(name, "conn-"+name, "", &mockSession{})
		if err != nil {
			t.Fatalf("join %s: %v", name, err)
		}
		players = append(players, p)
	}
	room.startMatch()
	room.Mode.Settings.FoodRespawnChance = 0
	room.Mode.Settings.PowerupSpawnChance = 0
	room.food = nil
	room.powerups = nil
	return room, players
}

func TestMovementAdvancesHead(t *testing.T) {
	room, players := newRunningRoom(t, "A")
	p := players[0]
	p.Segments = []Vec{{X: 100, Y: 100}}
	p.Direction = Vec{X: 1, Y: 0}
	p.Pending = Vec{X: 1, Y: 0}

	room.handleMovement(p)

	if p.Head().X != 100+p.Speed || p.Head().Y != 100 {
		t.Errorf("expected head at (%v, 100), got (%v, %v)", 100+p.Speed, p.Head().X, p.Head().Y)
	}
	if len(p.Segments) != 1 {
		t.Errorf("length should stay 1 without growth, got %d", len(p.Segments))
	}
	if p.SurvivalTicks != 1 {
		t.Errorf("expected 1 survival tick, got %d", p.SurvivalTicks)
	}
}

func TestMovementCommitsPendingDirection(t *testing.T) {
	room, players := newRunningRoom(t, "A")
	p := players[0]
	p.Segments = []Vec{{X: 100, Y: 100}}
	p.SetPendingDirection(0, 1)

	room.handleMovement(p)

	if p.Direction.X != 0 || p.Direction.Y != 1 {
		t.Errorf("direction should be committed on tick, got (%v, %v)", p.Direction.X, p.Direction.Y)
	}
	if p.Head().Y != 100+p.Speed {
		t.Errorf("expected head Y %v, got %v", 100+p.Speed, p.Head().Y)
	}
}

func TestWallDeath(t *testing.T) {
	room, players := newRunningRoom(t, "A")
	p := players[0]
	p.Segments = []Vec{{X: WorldWidth - SegmentSize/2, Y: 300}}
	p.Direction = Vec{X: 1, Y: 0}
	p.Pending = Vec{X: 1, Y: 0}

	room.handleMovement(p)

	if p.Alive {
		t.Fatal("player should die at the wall")
	}
	if p.DeathCause != CauseWall {
		t.Errorf("expected cause %q, got %q", CauseWall, p.DeathCause)
	}
	if room.roundStats[p.ID].Deaths != 1 {
		t.Errorf("expected 1 death in round stats, got %d", room.roundStats[p.ID].Deaths)
	}
}

func TestGoldenFoodPickup(t *testing.T) {
	room, players := newRunningRoom(t, "A")
	p := players[0]
	p.Segments = []Vec{{X: 100, Y: 100}}
	p.Direction = Vec{X: 1, Y: 0}
	p.Pending = Vec{X: 1, Y: 0}
	room.food = []*Food{{ID: "g1", Type: FoodGolden, X: 100 + p.Speed + 2, Y: 100}}

	room.update()

	if p.Score != FoodScores[FoodGolden] {
		t.Errorf("expected score %d, got %d", FoodScores[FoodGolden], p.Score)
	}
	if p.Growth != FoodGrowth[FoodGolden] {
		t.Errorf("expected growth %d, got %d", FoodGrowth[FoodGolden], p.Growth)
	}
	if p.Speed != p.BaseSpeed+1 {
		t.Errorf("expected speed bump to %v, got %v", p.BaseSpeed+1, p.Speed)
	}
	if room.roundStats[p.ID].Golden != 1 {
		t.Errorf("expected 1 golden in round stats, got %d", room.roundStats[p.ID].Golden)
	}
	// Eaten food is replenished immediately
	if len(room.food) != 1 {
		t.Errorf("expected food replenished to 1, got %d", len(room.food))
	}

	var goldenEvent *HighlightEvent
	for _, ev := range room.recorder.Events() {
		if ev.Type == EventGoldenFood {
			goldenEvent = ev
		}
	}
	if goldenEvent == nil {
		t.Fatal("expected a golden-food highlight event")
	}
	if goldenEvent.PlayerID != p.ID {
		t.Errorf("event should name the collector")
	}
}

func TestBasicFoodGrowth(t *testing.T) {
	room, players := newRunningRoom(t, "A")
	p := players[0]
	p.Segments = []Vec{{X: 100, Y: 100}}
	p.Direction = Vec{X: 1, Y: 0}
	p.Pending = Vec{X: 1, Y: 0}
	room.food = []*Food{{ID: "b1", Type: FoodBasic, X: 100 + p.Speed + 2, Y: 100}}

	room.update()
	room.food = nil

	if p.Growth != FoodGrowth[FoodBasic] {
		t.Fatalf("expected growth %d, got %d", FoodGrowth[FoodBasic], p.Growth)
	}
	for i := 0; i < FoodGrowth[FoodBasic]; i++ {
		room.update()
	}
	if len(p.Segments) != 1+FoodGrowth[FoodBasic] {
		t.Errorf("expected length %d after growth, got %d", 1+FoodGrowth[FoodBasic], len(p.Segments))
	}
	if p.Growth != 0 {
		t.Errorf("growth should be exhausted, got %d", p.Growth)
	}

	// One more tick: length stays constant and the tail is remembered
	room.update()
	if len(p.Segments) != 1+FoodGrowth[FoodBasic] {
		t.Errorf("length should be stable without growth, got %d", len(p.Segments))
	}
	if p.LastTail == nil {
		t.Error("expected last tail to be recorded")
	}
}

func TestPowerupPickupAwardsScoreAndEffect(t *testing.T) {
	room, players := newRunningRoom(t, "A")
	p := players[0]
	p.Segments = []Vec{{X: 100, Y: 100}}
	room.powerups = []*Powerup{{ID: "pw1", Type: EffectShield, X: 104, Y: 100}}

	room.handleFoodAndPowerups(p)

	if p.Score != PowerupScores[EffectShield] {
		t.Errorf("expected score %d, got %d", PowerupScores[EffectShield], p.Score)
	}
	if !p.HasEffect(EffectShield) {
		t.Error("shield effect should be active")
	}
	eff := p.Effects[EffectShield]
	if eff.Remaining != EffectDurationTicks[EffectShield] || eff.Total != eff.Remaining {
		t.Errorf("effect should carry full duration, got %d/%d", eff.Remaining, eff.Total)
	}
	if len(room.powerups) != 0 {
		t.Errorf("powerup should be consumed, got %d left", len(room.powerups))
	}
	if room.roundStats[p.ID].Powerups != 1 {
		t.Errorf("expected 1 powerup in round stats, got %d", room.roundStats[p.ID].Powerups)
	}
}

func TestShrinkTrimsBody(t *testing.T) {
	room, players := newRunningRoom(t, "A")
	p := players[0]
	p.Segments = make([]Vec, 8)
	for i := range p.Segments {
		p.Segments[i] = Vec{X: float64(100 + i*12), Y: 100}
	}

	room.applyPowerup(p, EffectShrink)

	if len(p.Segments) != 6 {
		t.Errorf("expected 6 segments after 25%% trim, got %d", len(p.Segments))
	}
}

func TestShrinkNeverRemovesLastSegment(t *testing.T) {
	room, players := newRunningRoom(t, "A")
	p := players[0]
	p.Segments = []Vec{{X: 100, Y: 100}}

	room.applyPowerup(p, EffectShrink)

	if len(p.Segments) != 1 {
		t.Errorf("single-segment body must survive shrink, got %d", len(p.Segments))
	}
}

func TestSpeedEffectExpiryRestoresBase(t *testing.T) {
	room, players := newRunningRoom(t, "A")
	p := players[0]
	p.Effects[EffectSpeed] = &Effect{Remaining: 1, Total: EffectDurationTicks[EffectSpeed]}

	room.handleEffectTimers(p)

	if p.HasEffect(EffectSpeed) {
		t.Error("speed effect should have expired")
	}
	if p.Speed != p.BaseSpeed {
		t.Errorf("expected speed restored to %v, got %v", p.BaseSpeed, p.Speed)
	}
}

func TestCollisionKillCreditsKiller(t *testing.T) {
	room, players := newRunningRoom(t, "A", "B")
	p1, p2 := players[0], players[1]
	p2.Segments = []Vec{{X: 500, Y: 500}, {X: 512, Y: 500}}
	p1.Segments = []Vec{{X: 512, Y: 502}} // on top of p2's body

	room.handleCollisions()

	if p1.Alive {
		t.Fatal("p1 should die on p2's body")
	}
	if p1.DeathCause != CauseCollision {
		t.Errorf("expected cause %q, got %q", CauseCollision, p1.DeathCause)
	}
	if p2.Kills != 1 {
		t.Errorf("expected 1 kill for p2, got %d", p2.Kills)
	}
	if p2.Score != KillBonus {
		t.Errorf("expected kill bonus %d, got %d", KillBonus, p2.Score)
	}
	if room.firstKillBy != p2.ID {
		t.Errorf("first kill should be attributed to p2")
	}
}

func TestSelfCollisionGivesNoKillCredit(t *testing.T) {
	room, players := newRunningRoom(t, "A")
	p := players[0]
	// A worm doubled back onto a distant part of its own body
	p.Segments = []Vec{
		{X: 100, Y: 100},
		{X: 104, Y: 100},
		{X: 108, Y: 100},
		{X: 112, Y: 100},
		{X: 116, Y: 100},
		{X: 102, Y: 102}, // under the head
	}

	room.handleCollisions()

	if p.Alive {
		t.Fatal("player should die on own body")
	}
	if p.Kills != 0 || p.Score != 0 {
		t.Error("self collision must not award kill credit")
	}
	if room.firstKillBy != "" {
		t.Error("self collision must not count as first kill")
	}
}

func TestSelfCollisionIgnoresImmediateTrail(t *testing.T) {
	room, players := newRunningRoom(t, "A")
	p := players[0]
	// A freshly grown worm: trailing segments one step behind the head
	p.Segments = []Vec{
		{X: 100, Y: 100},
		{X: 104, Y: 100},
		{X: 108, Y: 100},
		{X: 112, Y: 100},
	}

	room.handleCollisions()

	if !p.Alive {
		t.Fatal("trailing neighbors must not kill their own head")
	}
}

func TestShieldConsumedOnCollision(t *testing.T) {
	room, players := newRunningRoom(t, "A", "B")
	p1, p2 := players[0], players[1]
	p2.Segments = []Vec{{X: 600, Y: 500}, {X: 500, Y: 500}}
	p1.Segments = []Vec{{X: 502, Y: 500}}
	p1.Effects[EffectShield] = &Effect{Remaining: 50, Total: 100}

	room.handleCollisions()

	if !p1.Alive {
		t.Fatal("shielded player should survive the first hit")
	}
	if p1.HasEffect(EffectShield) {
		t.Fatal("shield should be consumed")
	}

	room.handleCollisions()
	if p1.Alive {
		t.Error("unshielded player should die on the second hit")
	}
}

func TestDeathDropsFoodAtLastTail(t *testing.T) {
	room, players := newRunningRoom(t, "A")
	p := players[0]
	p.Segments = []Vec{{X: 100, Y: 100}, {X: 96, Y: 100}}
	p.Direction = Vec{X: 1, Y: 0}
	p.Pending = Vec{X: 1, Y: 0}

	room.handleMovement(p) // pops the tail, remembering it
	tail := *p.LastTail
	room.killPlayer(p, "", CauseCollision)

	if len(room.food) != 1 {
		t.Fatalf("expected 1 dropped food, got %d", len(room.food))
	}
	drop := room.food[0]
	if drop.Type != FoodBasic {
		t.Errorf("drop should be basic food, got %s", drop.Type)
	}
	if drop.X != tail.X || drop.Y != tail.Y {
		t.Errorf("drop should land at last tail (%v, %v), got (%v, %v)", tail.X, tail.Y, drop.X, drop.Y)
	}
}

func TestSpeedBoostMultipliesMovement(t *testing.T) {
	room, players := newRunningRoom(t, "A")
	p := players[0]
	p.Segments = []Vec{{X: 100, Y: 100}}
	p.Direction = Vec{X: 1, Y: 0}
	p.Pending = Vec{X: 1, Y: 0}
	p.Effects[EffectSpeed] = &Effect{Remaining: 100, Total: 120}

	room.handleMovement(p)

	want := 100 + p.Speed*room.Mode.Settings.SpeedBoostMultiplier
	if p.Head().X != want {
		t.Errorf("expected boosted head X %v, got %v", want, p.Head().X)
	}
}
