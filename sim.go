package main

import "math"

// Simulation step for a running round. Every function here assumes the
// room lock is held by the tick loop.

// stepSimulation advances all players one tick: movement, pickups and
// effect timers per player in join order, then collision resolution.
func (r *Room) stepSimulation() {
	for _, id := range r.order {
		p := r.players[id]
		r.handleMovement(p)
		r.handleFoodAndPowerups(p)
		r.handleEffectTimers(p)
	}
	r.handleCollisions()
}

// handleMovement commits the pending direction and advances the head.
// Leaving the arena kills the player.
func (r *Room) handleMovement(p *Player) {
	if !p.Alive {
		return
	}
	p.Direction = p.Pending
	head := p.Head()
	boost := 1.0
	if p.HasEffect(EffectSpeed) {
		boost = r.Mode.Settings.SpeedBoostMultiplier
	}
	newHead := Vec{
		X: head.X + p.Direction.X*p.Speed*boost,
		Y: head.Y + p.Direction.Y*p.Speed*boost,
	}

	half := SegmentSize / 2
	if Clamp(newHead.X, half, WorldWidth-half) != newHead.X ||
		Clamp(newHead.Y, half, WorldHeight-half) != newHead.Y {
		r.killPlayer(p, "", CauseWall)
		return
	}

	p.Segments = append([]Vec{newHead}, p.Segments...)
	if p.Growth > 0 {
		p.Growth--
	} else {
		tail := p.Segments[len(p.Segments)-1]
		p.Segments = p.Segments[:len(p.Segments)-1]
		p.LastTail = &tail
	}
	p.SurvivalTicks++
}

// handleFoodAndPowerups resolves head-vs-item pickups and passive spawns.
func (r *Room) handleFoodAndPowerups(p *Player) {
	if !p.Alive {
		return
	}
	head := p.Head()
	stat := r.ensureStat(p)

	for i := len(r.food) - 1; i >= 0; i-- {
		meal := r.food[i]
		if Dist(head, meal.Pos()) >= SegmentSize {
			continue
		}
		p.Score += FoodScores[meal.Type]
		p.Growth += FoodGrowth[meal.Type]
		stat.Food++
		stat.Score = p.Score
		if meal.Type == FoodGolden {
			stat.Golden++
			r.addEvent(&HighlightEvent{
				Type:        EventGoldenFood,
				PlayerID:    p.ID,
				PlayerName:  p.Name,
				PlayerColor: p.Color,
				Score:       p.Score,
			})
			p.Speed = p.BaseSpeed + 1
		}
		r.food = append(r.food[:i], r.food[i+1:]...)
		r.food = append(r.food, NewFood(r.Mode.Settings.GoldenFoodChance, r.rng))
	}

	for i := len(r.powerups) - 1; i >= 0; i-- {
		power := r.powerups[i]
		if Dist(head, power.Pos()) >= SegmentSize {
			continue
		}
		p.Score += PowerupScores[power.Type]
		stat.Score = p.Score
		r.applyPowerup(p, power.Type)
		r.powerups = append(r.powerups[:i], r.powerups[i+1:]...)
	}

	if len(r.food) < r.Mode.Settings.MaxFood && r.rng.Float64() < r.Mode.Settings.FoodRespawnChance {
		r.food = append(r.food, NewFood(r.Mode.Settings.GoldenFoodChance, r.rng))
	}
	if len(r.powerups) < r.Mode.Settings.MaxPowerups && r.rng.Float64() < r.Mode.Settings.PowerupSpawnChance {
		r.powerups = append(r.powerups, NewPowerup(r.rng))
	}
}

// applyPowerup registers the effect; shrink additionally trims the body
// right away, never below a single segment.
func (r *Room) applyPowerup(p *Player, kind EffectKind) {
	stat := r.ensureStat(p)
	stat.Powerups++
	r.addEvent(&HighlightEvent{
		Type:        EventPowerup,
		Powerup:     kind,
		PlayerID:    p.ID,
		PlayerName:  p.Name,
		PlayerColor: p.Color,
		Score:       p.Score,
	})
	if kind == EffectShrink {
		removeCount := len(p.Segments) / 4
		for i := 0; i < removeCount; i++ {
			if len(p.Segments) > 1 {
				p.Segments = p.Segments[:len(p.Segments)-1]
			}
		}
	}
	total, ok := EffectDurationTicks[kind]
	if !ok {
		total = TickRate * 4
	}
	p.Effects[kind] = &Effect{Remaining: total, Total: total}
}

// handleEffectTimers counts down active effects; expiry of the speed
// effect restores base speed.
func (r *Room) handleEffectTimers(p *Player) {
	for kind, eff := range p.Effects {
		eff.Remaining--
		if eff.Remaining <= 0 {
			if kind == EffectSpeed {
				p.Speed = p.BaseSpeed
			}
			delete(p.Effects, kind)
		}
	}
}

// selfCollisionStart is the first own-body segment index tested against
// the head. Segments are one movement step apart, so the head's immediate
// trail sits inside the collision radius even on the tightest legal turn;
// testing it would make every grown worm lethal to itself.
func selfCollisionStart(baseSpeed float64) int {
	n := int(math.Ceil(SegmentSize * 0.8 * math.Sqrt2 / baseSpeed))
	if n < 1 {
		n = 1
	}
	return n
}

// handleCollisions tests every living head against every living body. A
// shield absorbs one hit and is consumed; own-body hits skip the head's
// immediate trail.
func (r *Room) handleCollisions() {
	selfStart := selfCollisionStart(r.Mode.Settings.BaseSpeed)
	for _, id := range r.order {
		p := r.players[id]
		if !p.Alive {
			continue
		}
		head := p.Head()
		for _, otherID := range r.order {
			other := r.players[otherID]
			if !other.Alive {
				continue
			}
			startIndex := 0
			if other == p {
				startIndex = selfStart
			}
			for i := startIndex; i < len(other.Segments); i++ {
				if Dist(head, other.Segments[i]) < SegmentSize*0.8 {
					if p.HasEffect(EffectShield) {
						delete(p.Effects, EffectShield)
						continue
					}
					r.killPlayer(p, other.ID, CauseCollision)
					break
				}
			}
			if !p.Alive {
				break
			}
		}
	}
}

// killPlayer marks a player dead, credits a distinct killer, and drops a
// basic food at the victim's last tail position.
func (r *Room) killPlayer(p *Player, killerID, cause string) {
	if !p.Alive {
		return
	}
	p.Alive = false
	p.DeathCause = cause
	r.ensureStat(p).Deaths++

	var killer *Player
	if killerID != "" && killerID != p.ID {
		killer = r.players[killerID]
		if killer != nil {
			killer.Score += KillBonus
			killer.Kills++
			killerStat := r.ensureStat(killer)
			killerStat.Kills++
			killerStat.Score = killer.Score
			if r.firstKillBy == "" {
				r.firstKillBy = killer.ID
			}
		}
	}

	ev := &HighlightEvent{
		Type:        EventKill,
		VictimID:    p.ID,
		VictimName:  p.Name,
		VictimColor: p.Color,
		Cause:       cause,
	}
	if killer != nil {
		ev.KillerID = killer.ID
		ev.KillerName = killer.Name
		ev.KillerColor = killer.Color
	}
	r.addEvent(ev)

	if p.LastTail != nil {
		r.food = append(r.food, NewFoodAt(*p.LastTail))
	}
}
