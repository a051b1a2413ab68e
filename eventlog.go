package main

import (
	"encoding/json"
	"log"
	"sync"
	"time"
)

const (
	eventLogTagCap       = 12
	eventLogTagRuneCap   = 32
	eventLogFilterCap    = 6
	eventLogDefaultLimit = 40
	eventLogMaxLimit     = 100
)

// EventParticipant names a player involved in a logged event.
type EventParticipant struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Color string `json:"color,omitempty"`
	Role  string `json:"role,omitempty"`
}

// EventLogEntry is one persisted game event.
type EventLogEntry struct {
	ID           int64                  `json:"id"`
	Type         string                 `json:"type"`
	RoomID       string                 `json:"roomId"`
	RoomName     string                 `json:"roomName"`
	Mode         string                 `json:"mode"`
	Round        int                    `json:"round"`
	Timestamp    int64                  `json:"timestamp"`
	Tags         []string               `json:"tags"`
	Participants []EventParticipant     `json:"participants"`
	Meta         map[string]interface{} `json:"meta,omitempty"`
	Feed         []FeedEntry            `json:"feed,omitempty"`
	Context      map[string]interface{} `json:"context,omitempty"`
}

// RoundLogContext carries everything the store needs to log a finished
// round.
type RoundLogContext struct {
	RoomID      string
	RoomName    string
	Mode        string
	Round       int
	WinnerID    string
	WinnerName  string
	FirstKillBy string
	Stats       []RoundStatSnapshot
	Feed        []FeedEntry
	Summary     RoundSummary
}

// EventLogQuery filters the event log.
type EventLogQuery struct {
	Types  []string
	Tags   []string
	RoomID string
	Mode   string
	Player string // participant id or name
	Search string
	Before int64 // exclusive id cursor, 0 for newest
	Limit  int
}

// EventLogPage is one page of query results.
type EventLogPage struct {
	Entries []EventLogEntry `json:"entries"`
	HasMore bool            `json:"hasMore"`
}

// EventLogStore persists game events with batched background writes.
type EventLogStore struct {
	db      *DB
	entries chan EventLogEntry
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewEventLogStore creates and starts the background writer.
func NewEventLogStore(db *DB) *EventLogStore {
	s := &EventLogStore{
		db:      db,
		entries: make(chan EventLogEntry, 1024),
		stop:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.writer()
	return s
}

// Record enqueues an entry for async persistence (non-blocking)
func (s *EventLogStore) Record(entry EventLogEntry) {
	entry.Tags = sanitizeTags(entry.Tags)
	if entry.Timestamp == 0 {
		entry.Timestamp = time.Now().UnixMilli()
	}
	select {
	case s.entries <- entry:
	default:
		// Channel full — drop entry rather than blocking game loop
	}
}

// RecordRound logs a round summary plus each of its highlight events.
func (s *EventLogStore) RecordRound(ctx RoundLogContext, events []*HighlightEvent) {
	leaderboard := ctx.Stats
	if len(leaderboard) > 6 {
		leaderboard = leaderboard[:6]
	}
	participants := make([]EventParticipant, 0, len(ctx.Stats))
	for _, stat := range ctx.Stats {
		role := "player"
		if stat.PlayerID == ctx.WinnerID && ctx.WinnerID != "" {
			role = "winner"
		}
		participants = append(participants, EventParticipant{
			ID:    stat.PlayerID,
			Name:  stat.Name,
			Color: stat.Color,
			Role:  role,
		})
	}
	summaryTags := []string{"round-end", "summary"}
	if ctx.WinnerID != "" {
		summaryTags = append(summaryTags, "victory")
	} else {
		summaryTags = append(summaryTags, "draw")
	}
	s.Record(EventLogEntry{
		Type:         "round-summary",
		RoomID:       ctx.RoomID,
		RoomName:     ctx.RoomName,
		Mode:         ctx.Mode,
		Round:        ctx.Round,
		Tags:         summaryTags,
		Participants: participants,
		Meta: map[string]interface{}{
			"winnerId":   ctx.WinnerID,
			"winnerName": ctx.WinnerName,
		},
		Feed: ctx.Feed,
		Context: map[string]interface{}{
			"leaderboard": leaderboard,
			"summary":     ctx.Summary,
		},
	})

	for _, ev := range events {
		if ev.Type == EventRoundEnd {
			continue
		}
		s.Record(eventEntry(ctx, ev))
	}
}

func eventEntry(ctx RoundLogContext, ev *HighlightEvent) EventLogEntry {
	var participants []EventParticipant
	meta := map[string]interface{}{}
	switch ev.Type {
	case EventKill:
		if ev.KillerID != "" {
			participants = append(participants, EventParticipant{
				ID: ev.KillerID, Name: ev.KillerName, Color: ev.KillerColor, Role: "killer",
			})
		}
		participants = append(participants, EventParticipant{
			ID: ev.VictimID, Name: ev.VictimName, Color: ev.VictimColor, Role: "victim",
		})
		meta["cause"] = ev.Cause
	case EventGoldenFood, EventPowerup:
		participants = append(participants, EventParticipant{
			ID: ev.PlayerID, Name: ev.PlayerName, Color: ev.PlayerColor, Role: "player",
		})
		meta["score"] = ev.Score
		if ev.Powerup != "" {
			meta["powerup"] = string(ev.Powerup)
		}
	}
	return EventLogEntry{
		Type:         ev.Type,
		RoomID:       ctx.RoomID,
		RoomName:     ctx.RoomName,
		Mode:         ctx.Mode,
		Round:        ev.Round,
		Timestamp:    ev.Timestamp,
		Tags:         deriveHighlightTags(ev, ctx.FirstKillBy),
		Participants: participants,
		Meta:         meta,
	}
}

func sanitizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if runes := []rune(tag); len(runes) > eventLogTagRuneCap {
			tag = string(runes[:eventLogTagRuneCap])
		}
		out = append(out, tag)
		if len(out) == eventLogTagCap {
			break
		}
	}
	return out
}

// Stop gracefully shuts down the writer
func (s *EventLogStore) Stop() {
	close(s.stop)
	s.wg.Wait()
}

// writer is the background goroutine that batches and writes entries to DB
func (s *EventLogStore) writer() {
	defer s.wg.Done()

	batch := make([]EventLogEntry, 0, 64)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case entry := <-s.entries:
			batch = append(batch, entry)
			// Flush immediately if batch is large
			if len(batch) >= 50 {
				s.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				s.flush(batch)
				batch = batch[:0]
			}
		case <-s.stop:
			// Drain remaining entries
			close(s.entries)
			for entry := range s.entries {
				batch = append(batch, entry)
			}
			if len(batch) > 0 {
				s.flush(batch)
			}
			return
		}
	}
}

// flush writes a batch of entries to the database
func (s *EventLogStore) flush(entries []EventLogEntry) {
	if s.db == nil || len(entries) == 0 {
		return
	}
	tx, err := s.db.conn.Begin()
	if err != nil {
		log.Printf("eventlog: begin tx error: %v", err)
		return
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO event_logs (type, room_id, room_name, mode, round, timestamp, tags, participants, meta, feed, context)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		log.Printf("eventlog: prepare error: %v", err)
		return
	}
	defer stmt.Close()

	for _, entry := range entries {
		_, err := stmt.Exec(
			entry.Type, entry.RoomID, entry.RoomName, entry.Mode, entry.Round,
			entry.Timestamp,
			marshalColumn(entry.Tags, "[]"),
			marshalColumn(entry.Participants, "[]"),
			marshalColumn(entry.Meta, "{}"),
			marshalColumn(entry.Feed, "[]"),
			marshalColumn(entry.Context, "{}"),
		)
		if err != nil {
			log.Printf("eventlog: insert error: %v", err)
		}
	}
	tx.Commit()
}

func marshalColumn(v interface{}, empty string) string {
	data, err := json.Marshal(v)
	if err != nil || v == nil {
		return empty
	}
	text := string(data)
	if text == "null" {
		return empty
	}
	return text
}

// Query pages through the log newest first, using an exclusive id cursor.
func (s *EventLogStore) Query(q EventLogQuery) (*EventLogPage, error) {
	if s.db == nil {
		return &EventLogPage{Entries: []EventLogEntry{}}, nil
	}
	limit := q.Limit
	if limit <= 0 {
		limit = eventLogDefaultLimit
	}
	if limit > eventLogMaxLimit {
		limit = eventLogMaxLimit
	}

	where := "1=1"
	args := []interface{}{}

	if n := len(q.Types); n > 0 {
		if n > eventLogFilterCap {
			q.Types = q.Types[:eventLogFilterCap]
		}
		where += " AND type IN (?" + repeatPlaceholder(len(q.Types)-1) + ")"
		for _, t := range q.Types {
			args = append(args, t)
		}
	}
	if q.RoomID != "" {
		where += " AND room_id = ?"
		args = append(args, q.RoomID)
	}
	if q.Mode != "" {
		where += " AND mode = ?"
		args = append(args, q.Mode)
	}
	if n := len(q.Tags); n > 0 {
		if n > eventLogFilterCap {
			q.Tags = q.Tags[:eventLogFilterCap]
		}
		for _, tag := range q.Tags {
			where += ` AND EXISTS (SELECT 1 FROM json_each(event_logs.tags) WHERE json_each.value = ?)`
			args = append(args, tag)
		}
	}
	if q.Player != "" {
		where += ` AND EXISTS (
			SELECT 1 FROM json_each(event_logs.participants)
			WHERE json_extract(json_each.value, '$.id') = ?
			   OR json_extract(json_each.value, '$.name') = ?
		)`
		args = append(args, q.Player, q.Player)
	}
	if q.Search != "" {
		pattern := "%" + q.Search + "%"
		where += " AND (room_name LIKE ? OR participants LIKE ? OR meta LIKE ?)"
		args = append(args, pattern, pattern, pattern)
	}
	if q.Before > 0 {
		where += " AND id < ?"
		args = append(args, q.Before)
	}

	// Fetch one extra row to learn whether another page exists.
	args = append(args, limit+1)
	rows, err := s.db.conn.Query(`
		SELECT id, type, room_id, room_name, mode, round, timestamp, tags, participants, meta, feed, context
		FROM event_logs WHERE `+where+`
		ORDER BY id DESC LIMIT ?`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	page := &EventLogPage{Entries: []EventLogEntry{}}
	for rows.Next() {
		var entry EventLogEntry
		var tags, participants, meta, feed, context string
		if err := rows.Scan(
			&entry.ID, &entry.Type, &entry.RoomID, &entry.RoomName, &entry.Mode,
			&entry.Round, &entry.Timestamp, &tags, &participants, &meta, &feed, &context,
		); err != nil {
			return nil, err
		}
		json.Unmarshal([]byte(tags), &entry.Tags)
		json.Unmarshal([]byte(participants), &entry.Participants)
		json.Unmarshal([]byte(meta), &entry.Meta)
		json.Unmarshal([]byte(feed), &entry.Feed)
		json.Unmarshal([]byte(context), &entry.Context)
		page.Entries = append(page.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(page.Entries) > limit {
		page.Entries = page.Entries[:limit]
		page.HasMore = true
	}
	return page, nil
}

func repeatPlaceholder(n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += ", ?"
	}
	return out
}
