package main

import "testing"

func newTestTournament(roundsToWin int) *Tournament {
	return NewTournament(&TournamentSettings{
		RoundsToWin:         roundsToWin,
		IntermissionSeconds: 8,
	})
}

func TestTournamentChampionAtThreshold(t *testing.T) {
	tr := newTestTournament(3)
	if tr.RecordRound(1, "a", "Alice", 100) {
		t.Error("first win should not crown a champion")
	}
	tr.RecordRound(2, "b", "Bob", 200)
	tr.RecordRound(3, "a", "Alice", 300)
	if tr.Finished() {
		t.Fatal("two wins should not finish a first-to-three tournament")
	}
	if !tr.RecordRound(4, "a", "Alice", 400) {
		t.Fatal("third win should crown the champion")
	}
	if tr.ChampionID != "a" || tr.ChampionName != "Alice" {
		t.Errorf("unexpected champion %s/%s", tr.ChampionID, tr.ChampionName)
	}
}

func TestTournamentChampionIsStable(t *testing.T) {
	tr := newTestTournament(2)
	tr.RecordRound(1, "a", "Alice", 100)
	tr.RecordRound(2, "a", "Alice", 200)
	if tr.ChampionID != "a" {
		t.Fatal("Alice should be champion")
	}
	if tr.RecordRound(3, "b", "Bob", 300) {
		t.Error("later wins should not report a new championship")
	}
	tr.RecordRound(4, "b", "Bob", 400)
	tr.RecordRound(5, "b", "Bob", 500)
	if tr.ChampionID != "a" || tr.ChampionName != "Alice" {
		t.Errorf("champion must not change once set, got %s", tr.ChampionID)
	}
}

func TestTournamentDrawRoundsDoNotScore(t *testing.T) {
	tr := newTestTournament(2)
	if tr.RecordRound(1, "", "", 100) {
		t.Error("a draw should never crown a champion")
	}
	if len(tr.Wins) != 0 {
		t.Error("a draw should not create a standing")
	}
	if tr.LastWinnerID != "" {
		t.Error("draw should clear the last winner")
	}
	if len(tr.History) != 1 {
		t.Error("draws still belong in the history")
	}
}

func TestTournamentHistoryCap(t *testing.T) {
	tr := newTestTournament(10)
	for i := 1; i <= 30; i++ {
		tr.RecordRound(i, "", "", int64(i))
	}
	if len(tr.History) != 20 {
		t.Fatalf("expected history capped at 20, got %d", len(tr.History))
	}
	if tr.History[0].Round != 11 {
		t.Errorf("oldest entries should be dropped, front is round %d", tr.History[0].Round)
	}
}

func TestTournamentRemovePlayerKeepsChampion(t *testing.T) {
	tr := newTestTournament(2)
	tr.RecordRound(1, "a", "Alice", 100)
	tr.RecordRound(2, "a", "Alice", 200)
	tr.RemovePlayer("a")
	if _, ok := tr.Wins["a"]; ok {
		t.Error("standing should be removed")
	}
	if !tr.Finished() || tr.ChampionID != "a" {
		t.Error("championship survives the player leaving")
	}
}

func TestTournamentSnapshotOrdering(t *testing.T) {
	tr := newTestTournament(5)
	tr.RecordRound(1, "b", "Bob", 100)
	tr.RecordRound(2, "a", "Alice", 200)
	tr.RecordRound(3, "b", "Bob", 300)
	tr.RecordRound(4, "c", "Cara", 400)

	snap := tr.Snapshot(func(id string) (string, string) {
		switch id {
		case "a":
			return "Alice", "#ff4d4f"
		case "b":
			return "Bob", "#40a9ff"
		default:
			return "Cara", "#52c41a"
		}
	})
	if !snap.Active {
		t.Error("snapshot should mark the tournament active")
	}
	if len(snap.Standings) != 3 {
		t.Fatalf("expected 3 standings, got %d", len(snap.Standings))
	}
	if snap.Standings[0].PlayerID != "b" || snap.Standings[0].Wins != 2 {
		t.Errorf("Bob should lead, got %+v", snap.Standings[0])
	}
	// Equal wins break ties by player id
	if snap.Standings[1].PlayerID != "a" || snap.Standings[2].PlayerID != "c" {
		t.Errorf("tie should order by id, got %s then %s",
			snap.Standings[1].PlayerID, snap.Standings[2].PlayerID)
	}
	if snap.LastWinnerID != "c" {
		t.Errorf("last winner should be c, got %s", snap.LastWinnerID)
	}
	if snap.Standings[0].Color != "#40a9ff" {
		t.Error("resolver colors should flow into standings")
	}
}
