package main

import "sort"

// TournamentRound records one completed round's outcome.
type TournamentRound struct {
	Round      int    `json:"round"`
	WinnerID   string `json:"winnerId,omitempty"`
	WinnerName string `json:"winnerName,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

// TournamentStanding is a player's entry in the serialized standings.
type TournamentStanding struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Wins     int    `json:"wins"`
}

// TournamentSnapshot is the wire form of the tournament state.
type TournamentSnapshot struct {
	Active       bool                 `json:"active"`
	RoundsToWin  int                  `json:"roundsToWin,omitempty"`
	Standings    []TournamentStanding `json:"standings,omitempty"`
	ChampionID   string               `json:"championId,omitempty"`
	ChampionName string               `json:"championName,omitempty"`
	LastWinnerID string               `json:"lastWinnerId,omitempty"`
	History      []TournamentRound    `json:"history,omitempty"`
}

// Tournament tracks first-to-N round wins across a room's matches.
type Tournament struct {
	RoundsToWin         int
	IntermissionSeconds int
	Wins                map[string]int
	ChampionID          string
	ChampionName        string
	LastWinnerID        string
	History             []TournamentRound
}

// NewTournament creates tournament state from the mode settings.
func NewTournament(settings *TournamentSettings) *Tournament {
	return &Tournament{
		RoundsToWin:         settings.RoundsToWin,
		IntermissionSeconds: settings.IntermissionSeconds,
		Wins:                make(map[string]int),
	}
}

// historyCap bounds the retained round history.
func (t *Tournament) historyCap() int {
	n := t.RoundsToWin * 2
	if n < 6 {
		n = 6
	}
	return n
}

// RecordRound tallies a round outcome. winnerID may be empty for a draw.
// Returns true when the winner just reached the championship threshold.
// Once a champion is set, further results do not change it.
func (t *Tournament) RecordRound(round int, winnerID, winnerName string, timestamp int64) bool {
	t.History = append(t.History, TournamentRound{
		Round:      round,
		WinnerID:   winnerID,
		WinnerName: winnerName,
		Timestamp:  timestamp,
	})
	if len(t.History) > t.historyCap() {
		t.History = t.History[len(t.History)-t.historyCap():]
	}
	t.LastWinnerID = winnerID
	if winnerID == "" {
		return false
	}
	t.Wins[winnerID]++
	if t.ChampionID == "" && t.Wins[winnerID] >= t.RoundsToWin {
		t.ChampionID = winnerID
		t.ChampionName = winnerName
		return true
	}
	return false
}

// Finished reports whether a champion has been crowned.
func (t *Tournament) Finished() bool {
	return t.ChampionID != ""
}

// RemovePlayer drops a departed player's standing. Champion status, once
// earned, is kept.
func (t *Tournament) RemovePlayer(playerID string) {
	delete(t.Wins, playerID)
}

// Snapshot serializes the standings sorted by wins descending, then by
// player id for a stable order.
func (t *Tournament) Snapshot(resolve func(playerID string) (name, color string)) TournamentSnapshot {
	standings := make([]TournamentStanding, 0, len(t.Wins))
	for id, wins := range t.Wins {
		name, color := resolve(id)
		standings = append(standings, TournamentStanding{
			PlayerID: id,
			Name:     name,
			Color:    color,
			Wins:     wins,
		})
	}
	sort.SliceStable(standings, func(i, j int) bool {
		if standings[i].Wins != standings[j].Wins {
			return standings[i].Wins > standings[j].Wins
		}
		return standings[i].PlayerID < standings[j].PlayerID
	})
	history := make([]TournamentRound, len(t.History))
	copy(history, t.History)
	return TournamentSnapshot{
		Active:       true,
		RoundsToWin:  t.RoundsToWin,
		Standings:    standings,
		ChampionID:   t.ChampionID,
		ChampionName: t.ChampionName,
		LastWinnerID: t.LastWinnerID,
		History:      history,
	}
}
