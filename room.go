package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const TickDuration = time.Second / TickRate

const (
	minPlayersToStart = 1
	chatMaxRunes      = 140
)

// Phase is a room's lifecycle stage.
type Phase string

const (
	PhaseWaiting      Phase = "waiting"
	PhaseCountdown    Phase = "countdown"
	PhaseRunning      Phase = "running"
	PhaseIntermission Phase = "intermission"
	PhaseEnded        Phase = "ended"
)

var (
	ErrRoomFull      = errors.New("room is full")
	ErrRoomClosed    = errors.New("room has ended")
	ErrDuplicateName = errors.New("name already taken in this room")
	ErrColorTaken    = errors.New("color already in use")
	ErrUnknownColor  = errors.New("unknown color")
	ErrColorLocked   = errors.New("color cannot change during a round")
)

// Session is the client connection surface a room talks to.
type Session interface {
	SendJSON(msg interface{})
	SendRaw(data []byte)
	SendBinary(data []byte)
}

func nowMillis() int64 { return time.Now().UnixMilli() }

// Room holds one game session: its players, spectators, entities, phase
// machine and recorder. All state is guarded by mu; the tick loop and
// every externally called method take it.
type Room struct {
	ID      string
	Name    string
	Mode    *GameMode
	Private bool

	mu         sync.Mutex
	players    map[string]*Player
	order      []string // insertion order of player ids, for stable iteration
	spectators map[string]Session
	clients    map[string]Session // playerID -> session

	food     []*Food
	powerups []*Powerup

	phase             Phase
	countdownTicks    int
	intermissionTicks int
	round             int
	endThreshold      int

	recorder    *Recorder
	eventFeed   []FeedEntry
	roundStats  map[string]*RoundStatSnapshot
	firstKillBy string
	tournament  *Tournament

	rng     *rand.Rand
	running bool
	stop    chan struct{}

	db     *DB
	events *EventLogStore

	onEmpty        func(roomID string)
	onRoomsChanged func()

	createdAt time.Time
}

// NewRoom creates a room for the given mode. db and events may be nil.
func NewRoom(id, name string, mode *GameMode, db *DB, events *EventLogStore) *Room {
	r := &Room{
		ID:         id,
		Name:       name,
		Mode:       mode,
		players:    make(map[string]*Player),
		spectators: make(map[string]Session),
		clients:    make(map[string]Session),
		phase:      PhaseWaiting,
		recorder:   NewRecorder(TickRate * frameHistorySeconds),
		roundStats: make(map[string]*RoundStatSnapshot),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		stop:       make(chan struct{}),
		db:         db,
		events:     events,
		createdAt:  time.Now(),
	}
	if mode.Tournament != nil {
		r.tournament = NewTournament(mode.Tournament)
	}
	return r
}

// Run drives the tick loop until Stop is called.
func (r *Room) Run() {
	r.mu.Lock()
	r.running = true
	r.mu.Unlock()

	ticker := time.NewTicker(TickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.update()
		case <-r.stop:
			return
		}
	}
}

// Stop terminates the tick loop. Safe to call more than once.
func (r *Room) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		r.running = false
		close(r.stop)
	}
}

// AddPlayer joins a player to the room and may start the countdown. The
// preferred color is honored when it is a free palette color.
func (r *Room) AddPlayer(name, clientID, preferredColor string, sess Session) (*Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.phase == PhaseEnded {
		return nil, ErrRoomClosed
	}
	if len(r.players) >= MaxPlayersPerRoom {
		return nil, ErrRoomFull
	}
	for _, id := range r.order {
		if strings.EqualFold(r.players[id].Name, name) {
			return nil, ErrDuplicateName
		}
	}

	color := r.pickColor(preferredColor)
	p := NewPlayer(uuid.NewString(), name, color, clientID, r.Mode.Settings.BaseSpeed, r.rng)
	if r.phase != PhaseRunning {
		p.Alive = false
	}
	r.players[p.ID] = p
	r.order = append(r.order, p.ID)
	r.clients[p.ID] = sess
	r.ensureStat(p)

	r.pushNotification("join", fmt.Sprintf("%s joined the room", p.Name))
	if r.phase == PhaseWaiting && len(r.players) >= minPlayersToStart {
		r.beginCountdown()
	}
	r.roomsChanged()
	return p, nil
}

// RemovePlayer drops a player; the room tears itself down once nobody is
// left, playing or watching.
func (r *Room) RemovePlayer(playerID string) {
	r.mu.Lock()
	p, ok := r.players[playerID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.players, playerID)
	delete(r.clients, playerID)
	delete(r.roundStats, playerID)
	for i, id := range r.order {
		if id == playerID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.tournament != nil {
		r.tournament.RemovePlayer(playerID)
	}
	r.pushNotification("leave", fmt.Sprintf("%s left the room", p.Name))

	if r.phase == PhaseRunning {
		r.checkRoundEnd()
	} else if r.phase == PhaseCountdown && len(r.players) < minPlayersToStart {
		r.phase = PhaseWaiting
		r.countdownTicks = 0
	}
	r.roomsChanged()
	empty := len(r.players) == 0 && len(r.spectators) == 0
	r.mu.Unlock()

	if empty {
		r.teardown()
	}
}

// AddSpectator registers a watching session.
func (r *Room) AddSpectator(id string, sess Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phase == PhaseEnded {
		return ErrRoomClosed
	}
	r.spectators[id] = sess
	return nil
}

// RemoveSpectator drops a watching session.
func (r *Room) RemoveSpectator(id string) {
	r.mu.Lock()
	if _, ok := r.spectators[id]; !ok {
		r.mu.Unlock()
		return
	}
	delete(r.spectators, id)
	empty := len(r.players) == 0 && len(r.spectators) == 0
	r.mu.Unlock()

	if empty {
		r.teardown()
	}
}

// teardown stops the loop and notifies the registry. Re-checks emptiness
// under the lock so a join racing the last leave wins.
func (r *Room) teardown() {
	r.mu.Lock()
	if len(r.players) > 0 || len(r.spectators) > 0 {
		r.mu.Unlock()
		return
	}
	onEmpty := r.onEmpty
	r.mu.Unlock()

	r.Stop()
	if onEmpty != nil {
		onEmpty(r.ID)
	}
}

// SetDirection records a player's pending turn for the next tick.
func (r *Room) SetDirection(playerID string, x, y float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[playerID]
	if !ok {
		return
	}
	p.SetPendingDirection(x, y)
}

// ChangeColor switches a player to a free palette color. Re-picking the
// current color is a no-op even mid-round; otherwise changes are locked
// while a round is running.
func (r *Room) ChangeColor(playerID, color string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[playerID]
	if !ok {
		return nil
	}
	if p.Color == color {
		return nil
	}
	if r.phase == PhaseRunning {
		return ErrColorLocked
	}
	valid := false
	for _, c := range PlayerColors {
		if c == color {
			valid = true
			break
		}
	}
	if !valid {
		return ErrUnknownColor
	}
	if !r.colorAvailable(color) {
		return ErrColorTaken
	}
	p.Color = color
	if stat, ok := r.roundStats[playerID]; ok {
		stat.Color = color
	}
	return nil
}

// RelayChat broadcasts a chat line from a player, truncated to the cap.
func (r *Room) RelayChat(playerID, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.players[playerID]
	if !ok {
		return
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if runes := []rune(text); len(runes) > chatMaxRunes {
		text = string(runes[:chatMaxRunes])
	}
	r.broadcast(Envelope{T: MsgChatRelay, Data: ChatRelayMsg{
		ID:        uuid.NewString(),
		RoomID:    r.ID,
		Author:    p.Name,
		Color:     p.Color,
		Message:   text,
		Timestamp: nowMillis(),
	}})
}

// BuildReplay packages the retained frame history with its markers.
func (r *Room) BuildReplay() *ReplayPayload {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &ReplayPayload{
		RoomID:  r.ID,
		Frames:  r.recorder.Frames(),
		Markers: r.recorder.Markers(),
		World:   WorldInfo{Width: WorldWidth, Height: WorldHeight, SegmentSize: SegmentSize},
	}
}

// Info returns the lobby listing entry.
func (r *Room) Info() RoomInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomInfo{
		ID:      r.ID,
		Name:    r.Name,
		Players: len(r.players),
		Phase:   r.phase,
		Mode:    r.Mode.Info(),
	}
}

// Joinable reports whether a new player can enter.
func (r *Room) Joinable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase != PhaseEnded && len(r.players) < MaxPlayersPerRoom
}

// HasPlayer reports whether the player id belongs to this room.
func (r *Room) HasPlayer(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.players[playerID]
	return ok
}

// Snapshot serializes the current state for a single client fetch.
func (r *Room) Snapshot() RoomSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.serialize()
}

// pickColor honors a free preferred palette color, else takes the first
// free slot. Lock held.
func (r *Room) pickColor(preferred string) string {
	if preferred != "" && r.colorAvailable(preferred) {
		for _, c := range PlayerColors {
			if c == preferred {
				return preferred
			}
		}
	}
	for _, c := range PlayerColors {
		if r.colorAvailable(c) {
			return c
		}
	}
	return PlayerColors[0]
}

func (r *Room) colorAvailable(color string) bool {
	for _, p := range r.players {
		if p.Color == color {
			return false
		}
	}
	return true
}

func (r *Room) ensureStat(p *Player) *RoundStatSnapshot {
	stat, ok := r.roundStats[p.ID]
	if !ok {
		stat = &RoundStatSnapshot{PlayerID: p.ID, Name: p.Name, Color: p.Color}
		r.roundStats[p.ID] = stat
	}
	return stat
}

// beginCountdown arms the pre-round countdown. Lock held.
func (r *Room) beginCountdown() {
	r.phase = PhaseCountdown
	r.countdownTicks = r.Mode.Settings.CountdownSeconds * TickRate
}

// startMatch resets every player and the arena for a fresh round. Lock held.
func (r *Room) startMatch() {
	r.round++
	r.endThreshold = 0
	if len(r.players) >= 2 {
		r.endThreshold = 1
	}
	r.firstKillBy = ""
	r.recorder.Reset()
	r.eventFeed = nil
	r.roundStats = make(map[string]*RoundStatSnapshot)
	r.powerups = nil
	r.food = nil
	for _, id := range r.order {
		p := r.players[id]
		p.Reset(r.Mode.Settings.BaseSpeed, r.rng)
		r.ensureStat(p)
	}
	for len(r.food) < r.Mode.Settings.MaxFood {
		r.food = append(r.food, NewFood(r.Mode.Settings.GoldenFoodChance, r.rng))
	}
	r.phase = PhaseRunning
	r.pushNotification("round", fmt.Sprintf("Round %d started", r.round))
	r.roomsChanged()
}

// update advances one tick of the phase machine. Called by the loop.
func (r *Room) update() {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.phase {
	case PhaseCountdown:
		r.countdownTicks--
		if r.countdownTicks <= 0 {
			r.startMatch()
		}
	case PhaseRunning:
		r.stepSimulation()
		r.recorder.PushFrame(r.captureFrame())
		r.checkRoundEnd()
	case PhaseIntermission:
		r.intermissionTicks--
		if r.intermissionTicks <= 0 {
			if len(r.players) >= minPlayersToStart {
				r.beginCountdown()
			} else {
				r.phase = PhaseWaiting
			}
		}
	}

	r.broadcastState()
}

// addEvent queues a highlight event and mirrors it into the feed. Lock held.
func (r *Room) addEvent(ev *HighlightEvent) {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp == 0 {
		ev.Timestamp = nowMillis()
	}
	ev.Round = r.round
	r.recorder.Queue(ev)
	if entry := buildFeedEntry(ev); entry != nil {
		r.eventFeed = append(r.eventFeed, *entry)
		if len(r.eventFeed) > eventFeedCap {
			r.eventFeed = r.eventFeed[len(r.eventFeed)-eventFeedCap:]
		}
	}
}

// captureFrame snapshots all entities for the replay ring. Lock held.
func (r *Room) captureFrame() Frame {
	frame := Frame{
		Timestamp: nowMillis(),
		Players:   make([]FramePlayer, 0, len(r.order)),
		Food:      make([]*Food, len(r.food)),
		Powerups:  make([]*Powerup, len(r.powerups)),
	}
	for _, id := range r.order {
		p := r.players[id]
		segments := make([]Vec, len(p.Segments))
		copy(segments, p.Segments)
		frame.Players = append(frame.Players, FramePlayer{
			ID:       p.ID,
			Name:     p.Name,
			Color:    p.Color,
			Segments: segments,
			Alive:    p.Alive,
		})
	}
	copy(frame.Food, r.food)
	copy(frame.Powerups, r.powerups)
	return frame
}

// checkRoundEnd ends the round when the living player count reaches the
// threshold captured at match start. Lock held.
func (r *Room) checkRoundEnd() {
	if r.phase != PhaseRunning {
		return
	}
	var alive []*Player
	for _, id := range r.order {
		if p := r.players[id]; p.Alive {
			alive = append(alive, p)
		}
	}
	if len(alive) > r.endThreshold {
		return
	}
	var winner *Player
	if r.endThreshold == 1 && len(alive) == 1 {
		winner = alive[0]
	}
	r.endRound(winner)
}

// endRound applies bonuses, builds the highlight package and moves the room
// into intermission or ended. Lock held.
func (r *Room) endRound(winner *Player) {
	settings := r.Mode.Settings
	for _, id := range r.order {
		p := r.players[id]
		seconds := p.SurvivalTicks / TickRate
		p.SurvivalBonus = seconds * settings.SurvivalBonusPerSecond
		p.Score += p.SurvivalBonus
		stat := r.ensureStat(p)
		stat.SurvivalSeconds = seconds
		stat.Score = p.Score
		stat.Kills = p.Kills
	}
	winnerID, winnerName, winnerColor := "", "", ""
	if winner != nil {
		winner.Score += settings.WinBonus
		r.ensureStat(winner).Score = winner.Score
		winnerID, winnerName, winnerColor = winner.ID, winner.Name, winner.Color
	}

	r.addEvent(&HighlightEvent{
		Type:        EventRoundEnd,
		WinnerID:    winnerID,
		WinnerName:  winnerName,
		WinnerColor: winnerColor,
	})
	r.recorder.PushFrame(r.captureFrame())

	stats := make([]RoundStatSnapshot, 0, len(r.order))
	for _, id := range r.order {
		if stat, ok := r.roundStats[id]; ok {
			stats = append(stats, *stat)
		}
	}
	pkg := r.recorder.BuildPackage(stats, winnerID, winnerName, r.round, r.firstKillBy)
	achievements := GatherRoundAchievements(stats, r.firstKillBy, winnerID)

	var tournamentSnap TournamentSnapshot
	championCrowned := false
	if r.tournament != nil {
		championCrowned = r.tournament.RecordRound(r.round, winnerID, winnerName, nowMillis())
		tournamentSnap = r.tournamentSnapshot()
	}

	r.persistRound(stats, achievements, winnerID, winnerName, pkg)

	// Only a still-undecided tournament with enough players plays on.
	// Everything else reaches the terminal phase: the room keeps
	// broadcasting for replays but never simulates again.
	if r.tournament != nil && !championCrowned && len(r.players) >= 2 {
		intermission := settings.IntermissionSeconds
		if r.tournament.IntermissionSeconds > 0 {
			intermission = r.tournament.IntermissionSeconds
		}
		r.phase = PhaseIntermission
		r.intermissionTicks = intermission * TickRate
	} else {
		r.phase = PhaseEnded
	}
	if championCrowned {
		r.pushNotification("champion", fmt.Sprintf("%s is the tournament champion!", winnerName))
	}

	r.broadcast(Envelope{T: MsgEnded, Data: RoundEndedMsg{
		WinnerID:     winnerID,
		Leaderboard:  r.buildLeaderboard(),
		Tournament:   tournamentSnap,
		Highlights:   pkg,
		Achievements: achievements,
	}})
	r.roomsChanged()
}

// persistRound writes profile results and the round event log without
// blocking the tick loop.
func (r *Room) persistRound(stats []RoundStatSnapshot, achievements []PlayerAchievement, winnerID, winnerName string, pkg *HighlightPackage) {
	if r.db == nil && r.events == nil {
		return
	}
	byPlayer := make(map[string][]string)
	for _, a := range achievements {
		byPlayer[a.PlayerID] = append(byPlayer[a.PlayerID], a.Key)
	}
	roomID, roomName, mode, round := r.ID, r.Name, r.Mode.Key, r.round
	feed := make([]FeedEntry, len(r.eventFeed))
	copy(feed, r.eventFeed)
	events := make([]*HighlightEvent, len(r.recorder.Events()))
	copy(events, r.recorder.Events())
	firstKillBy := r.firstKillBy
	db, store := r.db, r.events

	go func() {
		if db != nil {
			for _, stat := range stats {
				result := RoundResult{
					Name:            stat.Name,
					Score:           stat.Score,
					Kills:           stat.Kills,
					Deaths:          stat.Deaths,
					Golden:          stat.Golden,
					Powerups:        stat.Powerups,
					SurvivalSeconds: stat.SurvivalSeconds,
					Won:             stat.PlayerID == winnerID && winnerID != "",
					Mode:            mode,
					Achievements:    byPlayer[stat.PlayerID],
				}
				if err := db.RecordResult(result); err != nil {
					log.Printf("room %s: profile record for %s: %v", roomID, stat.Name, err)
				}
			}
		}
		if store != nil {
			store.RecordRound(RoundLogContext{
				RoomID:      roomID,
				RoomName:    roomName,
				Mode:        mode,
				Round:       round,
				WinnerID:    winnerID,
				WinnerName:  winnerName,
				FirstKillBy: firstKillBy,
				Stats:       stats,
				Feed:        feed,
				Summary:     pkg.Summary,
			}, events)
		}
	}()
}

func (r *Room) tournamentSnapshot() TournamentSnapshot {
	if r.tournament == nil {
		return TournamentSnapshot{}
	}
	return r.tournament.Snapshot(func(playerID string) (string, string) {
		if p, ok := r.players[playerID]; ok {
			return p.Name, p.Color
		}
		for i := len(r.tournament.History) - 1; i >= 0; i-- {
			if r.tournament.History[i].WinnerID == playerID {
				return r.tournament.History[i].WinnerName, ""
			}
		}
		return "", ""
	})
}

// buildLeaderboard sorts players by score, then kills, then name. Lock held.
func (r *Room) buildLeaderboard() []LeaderboardRow {
	rows := make([]LeaderboardRow, 0, len(r.order))
	for _, id := range r.order {
		p := r.players[id]
		rows = append(rows, LeaderboardRow{
			ID:    p.ID,
			Name:  p.Name,
			Score: p.Score,
			Kills: p.Kills,
			Alive: p.Alive,
			Color: p.Color,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		if rows[i].Kills != rows[j].Kills {
			return rows[i].Kills > rows[j].Kills
		}
		return rows[i].Name < rows[j].Name
	})
	return rows
}

// serialize builds the full state snapshot. Lock held.
func (r *Room) serialize() RoomSnapshot {
	snap := RoomSnapshot{
		ID:        r.ID,
		Name:      r.Name,
		Mode:      r.Mode.Info(),
		Phase:     r.phase,
		Round:     r.round,
		Timestamp: nowMillis(),
		Players:   make([]PlayerSnapshot, 0, len(r.order)),
		Food:      r.food,
		Powerups:  r.powerups,
	}
	if r.phase == PhaseCountdown {
		snap.Countdown = int(math.Ceil(float64(r.countdownTicks) / TickRate))
	}
	if r.phase == PhaseIntermission {
		snap.Intermission = int(math.Ceil(float64(r.intermissionTicks) / TickRate))
	}
	for _, id := range r.order {
		p := r.players[id]
		segments := make([]Vec, len(p.Segments))
		copy(segments, p.Segments)
		ps := PlayerSnapshot{
			ID:        p.ID,
			Name:      p.Name,
			Color:     p.Color,
			Alive:     p.Alive,
			Direction: p.Direction,
			Segments:  segments,
			Score:     p.Score,
			Kills:     p.Kills,
		}
		for kind, eff := range p.Effects {
			ps.Effects = append(ps.Effects, EffectSnapshot{
				Type:      kind,
				Remaining: eff.Remaining,
				Total:     eff.Total,
			})
		}
		sort.Slice(ps.Effects, func(i, j int) bool { return ps.Effects[i].Type < ps.Effects[j].Type })
		snap.Players = append(snap.Players, ps)
	}
	snap.Leaderboard = r.buildLeaderboard()
	snap.Events = append([]FeedEntry(nil), r.eventFeed...)
	if r.tournament != nil {
		snap.Tournament = r.tournamentSnapshot()
	}
	return snap
}

// broadcastState marshals the state once and fans it out. Lock held.
func (r *Room) broadcastState() {
	data, err := json.Marshal(Envelope{T: MsgState, Data: r.serialize()})
	if err != nil {
		log.Printf("room %s: marshal state: %v", r.ID, err)
		return
	}
	for _, sess := range r.clients {
		sess.SendRaw(data)
	}
	for _, sess := range r.spectators {
		sess.SendRaw(data)
	}
}

// broadcast sends an envelope to every player and spectator. Lock held.
func (r *Room) broadcast(msg Envelope) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("room %s: marshal %s: %v", r.ID, msg.T, err)
		return
	}
	for _, sess := range r.clients {
		sess.SendRaw(data)
	}
	for _, sess := range r.spectators {
		sess.SendRaw(data)
	}
}

// pushNotification broadcasts a transient room notice. Lock held.
func (r *Room) pushNotification(typ, message string) {
	r.broadcast(Envelope{T: MsgNotification, Data: NotificationMsg{
		ID:        uuid.NewString(),
		Type:      typ,
		Message:   message,
		Timestamp: nowMillis(),
	}})
}

func (r *Room) roomsChanged() {
	if r.onRoomsChanged != nil {
		go r.onRoomsChanged()
	}
}
