package main

import (
	"math/rand"
	"testing"
)

func newTestPlayer() *Player {
	rng := rand.New(rand.NewSource(7))
	return NewPlayer("p1", "Tester", PlayerColors[0], "conn1", 4, rng)
}

func TestSetPendingDirectionAcceptsTurn(t *testing.T) {
	p := newTestPlayer() // starts moving +X
	if !p.SetPendingDirection(0, 1) {
		t.Error("perpendicular turn should be accepted")
	}
	if p.Pending.X != 0 || p.Pending.Y != 1 {
		t.Errorf("pending should be (0,1), got (%v,%v)", p.Pending.X, p.Pending.Y)
	}
}

func TestSetPendingDirectionRejectsReversal(t *testing.T) {
	p := newTestPlayer() // direction (1,0)
	if p.SetPendingDirection(-1, 0) {
		t.Error("reversal should be rejected")
	}
	if p.Pending.X != 1 || p.Pending.Y != 0 {
		t.Error("pending must be unchanged after rejected input")
	}
}

func TestSetPendingDirectionRejectsDiagonal(t *testing.T) {
	p := newTestPlayer()
	if p.SetPendingDirection(1, 1) {
		t.Error("diagonal should be rejected")
	}
	if p.SetPendingDirection(-1, -1) {
		t.Error("diagonal should be rejected")
	}
}

func TestSetPendingDirectionRejectsNonUnit(t *testing.T) {
	p := newTestPlayer()
	for _, in := range [][2]float64{{2, 0}, {0, -3}, {0.5, 0}, {0, 0}} {
		if p.SetPendingDirection(in[0], in[1]) {
			t.Errorf("non-unit input (%v,%v) should be rejected", in[0], in[1])
		}
	}
}

func TestSetPendingDirectionRejectsWhenDead(t *testing.T) {
	p := newTestPlayer()
	p.Alive = false
	if p.SetPendingDirection(0, 1) {
		t.Error("dead players cannot steer")
	}
}

func TestReversalCheckedAgainstCommittedDirection(t *testing.T) {
	p := newTestPlayer() // direction (1,0)
	p.SetPendingDirection(0, 1)
	// Direction not yet committed, so (-1,0) is still a reversal
	if p.SetPendingDirection(-1, 0) {
		t.Error("reversal of committed direction should be rejected even with a pending turn")
	}
}

func TestPlayerReset(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	p := newTestPlayer()
	p.Alive = false
	p.Score = 500
	p.Kills = 3
	p.Growth = 4
	p.Effects[EffectShield] = &Effect{Remaining: 10, Total: 100}
	tail := Vec{X: 1, Y: 2}
	p.LastTail = &tail
	p.DeathCause = CauseWall

	p.Reset(5, rng)

	if !p.Alive {
		t.Error("reset should revive the player")
	}
	if p.Score != 0 || p.Kills != 0 || p.Growth != 0 {
		t.Error("reset should zero score, kills and growth")
	}
	if len(p.Segments) != 1 {
		t.Errorf("reset body should be a single segment, got %d", len(p.Segments))
	}
	if p.BaseSpeed != 5 || p.Speed != 5 {
		t.Errorf("reset should apply the new base speed, got base %v speed %v", p.BaseSpeed, p.Speed)
	}
	if len(p.Effects) != 0 {
		t.Error("reset should clear effects")
	}
	if p.LastTail != nil || p.DeathCause != "" {
		t.Error("reset should clear death state")
	}
	if p.Direction.X != 1 || p.Direction.Y != 0 {
		t.Error("reset direction should be +X")
	}
}
