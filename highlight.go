package main

import (
	"fmt"
	"sort"
)

const (
	frameHistorySeconds = 120
	clipWindowSeconds   = 2
	pendingHighlightCap = 12
	roundHighlightCap   = 24
	highlightPackageMax = 5
	eventFeedCap        = 10
)

// Highlight event types
const (
	EventKill       = "kill"
	EventGoldenFood = "golden-food"
	EventPowerup    = "powerup"
	EventRoundEnd   = "round-end"
)

// FramePlayer is a player's public fields inside a recorded frame.
type FramePlayer struct {
	ID       string `msgpack:"id" json:"id"`
	Name     string `msgpack:"name" json:"name"`
	Color    string `msgpack:"color" json:"color"`
	Segments []Vec  `msgpack:"segments" json:"segments"`
	Alive    bool   `msgpack:"alive" json:"alive"`
}

// Frame is one tick's full entity snapshot.
type Frame struct {
	Timestamp int64         `msgpack:"timestamp" json:"timestamp"`
	Players   []FramePlayer `msgpack:"players" json:"players"`
	Food      []*Food       `msgpack:"food" json:"food"`
	Powerups  []*Powerup    `msgpack:"powerups" json:"powerups"`
}

// HighlightEvent is a discrete notable game event. FrameIndex is the
// absolute sequence number of the frame committed in the same tick.
type HighlightEvent struct {
	ID          string
	Type        string
	Round       int
	Timestamp   int64
	FrameIndex  int
	KillerID    string
	KillerName  string
	KillerColor string
	VictimID    string
	VictimName  string
	VictimColor string
	PlayerID    string
	PlayerName  string
	PlayerColor string
	WinnerID    string
	WinnerName  string
	WinnerColor string
	Powerup     EffectKind
	Cause       string
	Score       int
}

// FeedEntry is the human-readable projection of an event, shown in the
// in-game event feed.
type FeedEntry struct {
	ID          string     `json:"id"`
	Timestamp   int64      `json:"timestamp"`
	Type        string     `json:"type"`
	Message     string     `json:"message"`
	Detail      string     `json:"detail,omitempty"`
	Accent      string     `json:"accent,omitempty"`
	PrimaryID   string     `json:"primaryId,omitempty"`
	SecondaryID string     `json:"secondaryId,omitempty"`
	Powerup     EffectKind `json:"powerup,omitempty"`
}

// RoundStatSnapshot is one player's accumulated round stats.
type RoundStatSnapshot struct {
	PlayerID        string `json:"playerId"`
	Name            string `json:"name"`
	Color           string `json:"color"`
	Score           int    `json:"score"`
	Kills           int    `json:"kills"`
	Deaths          int    `json:"deaths"`
	Golden          int    `json:"golden"`
	Powerups        int    `json:"powerups"`
	Food            int    `json:"food"`
	SurvivalSeconds int    `json:"survivalSeconds"`
}

// RoundSummary aggregates the round's standouts.
type RoundSummary struct {
	WinnerID        string             `json:"winnerId,omitempty"`
	WinnerName      string             `json:"winnerName,omitempty"`
	Round           int                `json:"round"`
	TopKiller       *RoundStatSnapshot `json:"topKiller"`
	GoldenCollector *RoundStatSnapshot `json:"goldenCollector"`
	Survivor        *RoundStatSnapshot `json:"survivor"`
}

// ClipMeta carries the participants of a highlight clip.
type ClipMeta struct {
	KillerID   string     `json:"killerId,omitempty"`
	KillerName string     `json:"killerName,omitempty"`
	VictimID   string     `json:"victimId,omitempty"`
	VictimName string     `json:"victimName,omitempty"`
	PlayerID   string     `json:"playerId,omitempty"`
	PlayerName string     `json:"playerName,omitempty"`
	WinnerID   string     `json:"winnerId,omitempty"`
	WinnerName string     `json:"winnerName,omitempty"`
	Powerup    EffectKind `json:"powerup,omitempty"`
	Cause      string     `json:"cause,omitempty"`
}

// HighlightClip is a titled frame window around one event.
type HighlightClip struct {
	ID         string   `json:"id"`
	Type       string   `json:"type"`
	Title      string   `json:"title"`
	Subtitle   string   `json:"subtitle"`
	StartFrame int      `json:"startFrame"`
	EndFrame   int      `json:"endFrame"`
	Timestamp  int64    `json:"timestamp"`
	Round      int      `json:"round"`
	Meta       ClipMeta `json:"meta"`
	Tags       []string `json:"tags"`
	Frames     []Frame  `json:"frames"`
}

// KeyEvent is a compact highlight descriptor without frames.
type KeyEvent struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Subtitle  string `json:"subtitle"`
	Icon      string `json:"icon"`
	Accent    string `json:"accent"`
	Timestamp int64  `json:"timestamp"`
}

// HighlightPackage is the round-end bundle broadcast to the room.
type HighlightPackage struct {
	Clips     []HighlightClip     `json:"clips"`
	Stats     []RoundStatSnapshot `json:"stats"`
	Summary   RoundSummary        `json:"summary"`
	KeyEvents []KeyEvent          `json:"keyEvents"`
}

// ReplayMarker points at an event inside the replay frame history.
// FrameIndex is relative to the frame slice returned alongside it.
type ReplayMarker struct {
	ID         string     `msgpack:"id" json:"id"`
	FrameIndex int        `msgpack:"frameIndex" json:"frameIndex"`
	Type       string     `msgpack:"type" json:"type"`
	Title      string     `msgpack:"title" json:"title"`
	Subtitle   string     `msgpack:"subtitle" json:"subtitle"`
	Icon       string     `msgpack:"icon" json:"icon"`
	Accent     string     `msgpack:"accent" json:"accent"`
	Timestamp  int64      `msgpack:"timestamp" json:"timestamp"`
	Round      int        `msgpack:"round" json:"round"`
	Powerup    EffectKind `msgpack:"powerup,omitempty" json:"powerup,omitempty"`
}

// Recorder owns a room's bounded frame history and its highlight events.
// Frames carry absolute sequence numbers so event positions stay valid as
// the ring evicts old frames.
type Recorder struct {
	capacity int
	frames   []Frame
	head     int // ring write position
	count    int
	seq      int // absolute index of the next frame to be pushed
	pending  []*HighlightEvent
	events   []*HighlightEvent
}

// NewRecorder creates a recorder holding capacity frames.
func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = TickRate * frameHistorySeconds
	}
	return &Recorder{
		capacity: capacity,
		frames:   make([]Frame, capacity),
	}
}

// Reset drops all frames and events, e.g. at countdown start.
func (r *Recorder) Reset() {
	r.head = 0
	r.count = 0
	r.seq = 0
	r.pending = nil
	r.events = nil
}

// Queue registers an event raised during the current tick. It is stamped
// with a frame index once the tick's frame is committed.
func (r *Recorder) Queue(ev *HighlightEvent) {
	r.pending = append(r.pending, ev)
	if len(r.pending) > pendingHighlightCap {
		r.pending = r.pending[len(r.pending)-pendingHighlightCap:]
	}
}

// PushFrame commits the tick's snapshot, evicting the oldest frame when
// at capacity, then stamps pending events with the new frame's index.
func (r *Recorder) PushFrame(f Frame) {
	r.frames[r.head] = f
	r.head = (r.head + 1) % r.capacity
	if r.count < r.capacity {
		r.count++
	}
	r.seq++

	if len(r.pending) == 0 {
		return
	}
	frameIndex := r.seq - 1
	for _, ev := range r.pending {
		ev.FrameIndex = frameIndex
		r.events = append(r.events, ev)
	}
	r.pending = nil
	r.evictOverCap()
}

// evictOverCap trims the round event list, dropping oldest non-kill events
// first so kill retention is biased.
func (r *Recorder) evictOverCap() {
	for len(r.events) > roundHighlightCap {
		removed := false
		for i, ev := range r.events {
			if ev.Type != EventKill {
				r.events = append(r.events[:i], r.events[i+1:]...)
				removed = true
				break
			}
		}
		if !removed {
			r.events = r.events[1:]
		}
	}
}

// FrameCount returns the number of retained frames.
func (r *Recorder) FrameCount() int { return r.count }

// baseIndex is the absolute index of the oldest retained frame.
func (r *Recorder) baseIndex() int { return r.seq - r.count }

// Frames returns the retained history oldest first.
func (r *Recorder) Frames() []Frame {
	out := make([]Frame, 0, r.count)
	start := (r.head - r.count + r.capacity) % r.capacity
	for i := 0; i < r.count; i++ {
		out = append(out, r.frames[(start+i)%r.capacity])
	}
	return out
}

// frameWindow returns the frames within radius ticks of an absolute frame
// index, plus the window bounds relative to the retained history.
func (r *Recorder) frameWindow(center, radius int) (startRel, endRel int, frames []Frame) {
	if r.count == 0 {
		return 0, 0, nil
	}
	base := r.baseIndex()
	startRel = center - radius - base
	endRel = center + radius - base
	if startRel < 0 {
		startRel = 0
	}
	if endRel > r.count-1 {
		endRel = r.count - 1
	}
	if startRel > endRel {
		return 0, 0, nil
	}
	all := r.Frames()
	frames = make([]Frame, endRel-startRel+1)
	copy(frames, all[startRel:endRel+1])
	return startRel, endRel, frames
}

// Events returns the stamped round events in commit order.
func (r *Recorder) Events() []*HighlightEvent {
	return r.events
}

// selectKeyEvents trims the round events to the package limit, dropping
// non-kill events before kills.
func selectKeyEvents(events []*HighlightEvent) []*HighlightEvent {
	selected := make([]*HighlightEvent, len(events))
	copy(selected, events)
	for len(selected) > highlightPackageMax {
		removed := false
		for i, ev := range selected {
			if ev.Type != EventKill {
				selected = append(selected[:i], selected[i+1:]...)
				removed = true
				break
			}
		}
		if !removed {
			selected = selected[1:]
		}
	}
	return selected
}

// BuildPackage synthesizes the round-end highlight bundle.
func (r *Recorder) BuildPackage(stats []RoundStatSnapshot, winnerID, winnerName string, round int, firstKillBy string) *HighlightPackage {
	selected := selectKeyEvents(r.events)
	window := TickRate * clipWindowSeconds

	clips := make([]HighlightClip, 0, len(selected))
	keyEvents := make([]KeyEvent, 0, len(selected))
	for _, ev := range selected {
		title, subtitle := describeHighlight(ev)
		startRel, endRel, frames := r.frameWindow(ev.FrameIndex, window)
		clips = append(clips, HighlightClip{
			ID:         ev.ID,
			Type:       ev.Type,
			Title:      title,
			Subtitle:   subtitle,
			StartFrame: startRel,
			EndFrame:   endRel,
			Timestamp:  ev.Timestamp,
			Round:      ev.Round,
			Meta: ClipMeta{
				KillerID:   ev.KillerID,
				KillerName: ev.KillerName,
				VictimID:   ev.VictimID,
				VictimName: ev.VictimName,
				PlayerID:   ev.PlayerID,
				PlayerName: ev.PlayerName,
				WinnerID:   ev.WinnerID,
				WinnerName: ev.WinnerName,
				Powerup:    ev.Powerup,
				Cause:      ev.Cause,
			},
			Tags:   deriveHighlightTags(ev, firstKillBy),
			Frames: frames,
		})
		keyEvents = append(keyEvents, KeyEvent{
			ID:        ev.ID,
			Type:      ev.Type,
			Title:     title,
			Subtitle:  subtitle,
			Icon:      markerIcon(ev),
			Accent:    markerAccent(ev),
			Timestamp: ev.Timestamp,
		})
	}

	return &HighlightPackage{
		Clips:     clips,
		Stats:     stats,
		Summary:   buildRoundSummary(stats, winnerID, winnerName, round),
		KeyEvents: keyEvents,
	}
}

// Markers projects every stamped event onto the retained frame history for
// replay scrubbing.
func (r *Recorder) Markers() []ReplayMarker {
	if len(r.events) == 0 {
		return nil
	}
	base := r.baseIndex()
	markers := make([]ReplayMarker, 0, len(r.events))
	for _, ev := range r.events {
		rel := ev.FrameIndex - base
		if rel < 0 {
			rel = 0
		}
		if r.count > 0 && rel > r.count-1 {
			rel = r.count - 1
		}
		title, subtitle := describeHighlight(ev)
		markers = append(markers, ReplayMarker{
			ID:         ev.ID,
			FrameIndex: rel,
			Type:       ev.Type,
			Title:      title,
			Subtitle:   subtitle,
			Icon:       markerIcon(ev),
			Accent:     markerAccent(ev),
			Timestamp:  ev.Timestamp,
			Round:      ev.Round,
			Powerup:    ev.Powerup,
		})
	}
	sort.SliceStable(markers, func(i, j int) bool {
		return markers[i].FrameIndex < markers[j].FrameIndex
	})
	return markers
}

func buildRoundSummary(stats []RoundStatSnapshot, winnerID, winnerName string, round int) RoundSummary {
	summary := RoundSummary{WinnerID: winnerID, WinnerName: winnerName, Round: round}
	if len(stats) == 0 {
		return summary
	}
	byKills := make([]RoundStatSnapshot, len(stats))
	copy(byKills, stats)
	sort.SliceStable(byKills, func(i, j int) bool {
		if byKills[i].Kills != byKills[j].Kills {
			return byKills[i].Kills > byKills[j].Kills
		}
		return byKills[i].Score > byKills[j].Score
	})
	if byKills[0].Kills > 0 {
		top := byKills[0]
		summary.TopKiller = &top
	}

	byGolden := make([]RoundStatSnapshot, len(stats))
	copy(byGolden, stats)
	sort.SliceStable(byGolden, func(i, j int) bool {
		if byGolden[i].Golden != byGolden[j].Golden {
			return byGolden[i].Golden > byGolden[j].Golden
		}
		return byGolden[i].Score > byGolden[j].Score
	})
	if byGolden[0].Golden > 0 {
		top := byGolden[0]
		summary.GoldenCollector = &top
	}

	bySurvival := make([]RoundStatSnapshot, len(stats))
	copy(bySurvival, stats)
	sort.SliceStable(bySurvival, func(i, j int) bool {
		return bySurvival[i].SurvivalSeconds > bySurvival[j].SurvivalSeconds
	})
	top := bySurvival[0]
	summary.Survivor = &top
	return summary
}

// powerupLabel is the display name of a power-up kind.
func powerupLabel(kind EffectKind) string {
	switch kind {
	case EffectSpeed:
		return "Speed"
	case EffectShield:
		return "Shield"
	case EffectShrink:
		return "Shrink"
	default:
		return "Power-up"
	}
}

func describeHighlight(ev *HighlightEvent) (title, subtitle string) {
	switch ev.Type {
	case EventKill:
		if ev.KillerName != "" {
			outcome := "environment kill"
			if ev.Cause == CauseCollision {
				outcome = "collision win"
			}
			return fmt.Sprintf("%s's finishing blow", ev.KillerName),
				fmt.Sprintf("%s ▶ %s (%s)", ev.KillerName, ev.VictimName, outcome)
		}
		subtitle = "Ran into their own body"
		if ev.Cause == CauseWall {
			subtitle = "Crashed into the wall"
		}
		return fmt.Sprintf("%s eliminated", ev.VictimName), subtitle
	case EventGoldenFood:
		return fmt.Sprintf("%s grabbed golden food", ev.PlayerName),
			"Big growth and bonus points"
	case EventPowerup:
		return fmt.Sprintf("%s %s power-up", ev.PlayerName, powerupLabel(ev.Powerup)),
			"Ready to turn the tide"
	case EventRoundEnd:
		if ev.WinnerName != "" {
			return fmt.Sprintf("%s wins", ev.WinnerName), "Last worm standing"
		}
		return "Round over", "No survivors"
	default:
		return "Highlight", ""
	}
}

func markerIcon(ev *HighlightEvent) string {
	switch ev.Type {
	case EventKill:
		return "⚔️"
	case EventGoldenFood:
		return "✨"
	case EventPowerup:
		switch ev.Powerup {
		case EffectSpeed:
			return "⚡"
		case EffectShield:
			return "🛡"
		case EffectShrink:
			return "🌀"
		}
		return "🔋"
	case EventRoundEnd:
		return "🏁"
	default:
		return ""
	}
}

func markerAccent(ev *HighlightEvent) string {
	switch ev.Type {
	case EventKill:
		if ev.KillerColor != "" {
			return ev.KillerColor
		}
		if ev.VictimColor != "" {
			return ev.VictimColor
		}
		return "#ff4d4f"
	case EventGoldenFood:
		if ev.PlayerColor != "" {
			return ev.PlayerColor
		}
		return "#f5b301"
	case EventPowerup:
		if ev.PlayerColor != "" {
			return ev.PlayerColor
		}
		return "#13c2c2"
	case EventRoundEnd:
		if ev.WinnerColor != "" {
			return ev.WinnerColor
		}
		return "#9254de"
	default:
		return "#faad14"
	}
}

// deriveHighlightTags builds the tag set used for both highlight clips and
// event-log search.
func deriveHighlightTags(ev *HighlightEvent, firstKillBy string) []string {
	tags := []string{"highlight"}
	switch ev.Type {
	case EventKill:
		tags = append(tags, "kill", "combat")
		switch ev.Cause {
		case CauseCollision:
			tags = append(tags, "collision")
		case CauseWall:
			tags = append(tags, "wall")
		}
		if ev.KillerID == "" {
			tags = append(tags, "self-hit")
		}
		if ev.KillerID != "" && ev.KillerID == firstKillBy {
			tags = append(tags, "first-kill")
		}
	case EventGoldenFood:
		tags = append(tags, "golden", "food", "growth")
	case EventPowerup:
		tags = append(tags, "powerup")
		if ev.Powerup != "" {
			tags = append(tags, "powerup:"+string(ev.Powerup))
		}
	case EventRoundEnd:
		tags = append(tags, "round-end", "summary")
		if ev.WinnerID != "" {
			tags = append(tags, "victory")
		} else {
			tags = append(tags, "draw")
		}
	}
	return tags
}

// buildFeedEntry projects an event into the in-game feed. Returns nil for
// event types without a feed form.
func buildFeedEntry(ev *HighlightEvent) *FeedEntry {
	switch ev.Type {
	case EventKill:
		killerID := ev.KillerID
		if killerID == ev.VictimID {
			killerID = ""
		}
		victimName := ev.VictimName
		if victimName == "" {
			victimName = "Player"
		}
		message := fmt.Sprintf("%s eliminated", victimName)
		accent := ev.VictimColor
		var secondary string
		if killerID != "" {
			message = fmt.Sprintf("%s ▶ %s", ev.KillerName, victimName)
			accent = ev.KillerColor
			secondary = ev.VictimID
		}
		detail := "Hit own body"
		if killerID != "" {
			detail = "Collision win"
		} else if ev.Cause == CauseWall {
			detail = "Hit the wall"
		}
		if accent == "" {
			accent = "#ff4d4f"
		}
		primary := killerID
		if primary == "" {
			primary = ev.VictimID
		}
		return &FeedEntry{
			ID:          ev.ID,
			Timestamp:   ev.Timestamp,
			Type:        EventKill,
			Message:     message,
			Detail:      detail,
			Accent:      accent,
			PrimaryID:   primary,
			SecondaryID: secondary,
		}
	case EventGoldenFood:
		name := ev.PlayerName
		if name == "" {
			name = "Player"
		}
		accent := ev.PlayerColor
		if accent == "" {
			accent = "#f5b301"
		}
		return &FeedEntry{
			ID:        ev.ID,
			Timestamp: ev.Timestamp,
			Type:      EventGoldenFood,
			Message:   fmt.Sprintf("%s golden food!", name),
			Detail:    fmt.Sprintf("Total %d pts", ev.Score),
			Accent:    accent,
			PrimaryID: ev.PlayerID,
		}
	case EventPowerup:
		name := ev.PlayerName
		if name == "" {
			name = "Player"
		}
		accent := ev.PlayerColor
		if accent == "" {
			accent = "#13c2c2"
		}
		return &FeedEntry{
			ID:        ev.ID,
			Timestamp: ev.Timestamp,
			Type:      EventPowerup,
			Message:   fmt.Sprintf("%s picked up %s", name, powerupLabel(ev.Powerup)),
			Accent:    accent,
			PrimaryID: ev.PlayerID,
			Powerup:   ev.Powerup,
		}
	case EventRoundEnd:
		detail := "Draw"
		if ev.WinnerName != "" {
			detail = fmt.Sprintf("%s wins", ev.WinnerName)
		}
		accent := ev.WinnerColor
		if accent == "" {
			accent = "#faad14"
		}
		return &FeedEntry{
			ID:        ev.ID,
			Timestamp: ev.Timestamp,
			Type:      EventRoundEnd,
			Message:   fmt.Sprintf("Round %d over", ev.Round),
			Detail:    detail,
			Accent:    accent,
			PrimaryID: ev.WinnerID,
		}
	default:
		return nil
	}
}
