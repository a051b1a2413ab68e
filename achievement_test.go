package main

import "testing"

func keysFor(list []PlayerAchievement, playerID string) map[string]bool {
	out := map[string]bool{}
	for _, a := range list {
		if a.PlayerID == playerID {
			out[a.Key] = true
		}
	}
	return out
}

func TestGatherRoundAchievements(t *testing.T) {
	stats := []RoundStatSnapshot{
		{PlayerID: "a", Name: "Alice", Kills: 3, Golden: 2, Powerups: 1},
		{PlayerID: "b", Name: "Bob", Kills: 1, Golden: 1, Powerups: 3},
		{PlayerID: "c", Name: "Cara"},
	}
	list := GatherRoundAchievements(stats, "b", "a")

	alice := keysFor(list, "a")
	if !alice["hunter"] || !alice["golden_gourmet"] || !alice["survival_champion"] {
		t.Errorf("Alice should earn hunter, golden_gourmet and survival_champion: %v", alice)
	}
	if alice["first_blood"] {
		t.Error("first blood belongs to Bob")
	}

	bob := keysFor(list, "b")
	if !bob["first_blood"] || !bob["power_collector"] {
		t.Errorf("Bob should earn first_blood and power_collector: %v", bob)
	}
	if bob["hunter"] || bob["golden_gourmet"] {
		t.Errorf("one kill and one golden food earn nothing: %v", bob)
	}

	if len(keysFor(list, "c")) != 0 {
		t.Error("Cara earned nothing this round")
	}
}

func TestGatherRoundAchievementsDrawRound(t *testing.T) {
	stats := []RoundStatSnapshot{{PlayerID: "a", Name: "Alice"}}
	if list := GatherRoundAchievements(stats, "", ""); len(list) != 0 {
		t.Errorf("no winner and no kills should earn nothing: %v", list)
	}
}

func TestEarnedResolvesDefinition(t *testing.T) {
	got := earned(RoundStatSnapshot{PlayerID: "a", Name: "Alice", Color: "#ff4d4f"}, "hunter")
	if got.Title != "Hunter" || got.Icon == "" || got.Description == "" {
		t.Errorf("definition should be filled in: %+v", got)
	}
	if got.PlayerID != "a" || got.Color != "#ff4d4f" {
		t.Errorf("player identity should carry over: %+v", got)
	}
}
