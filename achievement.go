package main

// AchievementDef describes one earnable achievement.
type AchievementDef struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// PlayerAchievement is an achievement earned by a player this round.
type PlayerAchievement struct {
	PlayerID    string `json:"playerId"`
	Name        string `json:"name"`
	Color       string `json:"color"`
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

var achievementDefs = map[string]AchievementDef{
	"first_blood": {
		Key:         "first_blood",
		Title:       "First Blood",
		Description: "Scored the round's first kill",
		Icon:        "🩸",
	},
	"survival_champion": {
		Key:         "survival_champion",
		Title:       "Survival Champion",
		Description: "Outlasted everyone this round",
		Icon:        "🏆",
	},
	"golden_gourmet": {
		Key:         "golden_gourmet",
		Title:       "Golden Gourmet",
		Description: "Collected two or more golden foods",
		Icon:        "✨",
	},
	"power_collector": {
		Key:         "power_collector",
		Title:       "Power Collector",
		Description: "Grabbed three or more power-ups",
		Icon:        "🔋",
	},
	"hunter": {
		Key:         "hunter",
		Title:       "Hunter",
		Description: "Took down three or more players",
		Icon:        "⚔️",
	},
}

func earned(stat RoundStatSnapshot, key string) PlayerAchievement {
	def := achievementDefs[key]
	return PlayerAchievement{
		PlayerID:    stat.PlayerID,
		Name:        stat.Name,
		Color:       stat.Color,
		Key:         def.Key,
		Title:       def.Title,
		Description: def.Description,
		Icon:        def.Icon,
	}
}

// GatherRoundAchievements evaluates every achievement against the round's
// stats. firstKillBy is the id of the first killer, winnerID the round
// winner (empty on a draw).
func GatherRoundAchievements(stats []RoundStatSnapshot, firstKillBy, winnerID string) []PlayerAchievement {
	var out []PlayerAchievement
	for _, stat := range stats {
		if stat.PlayerID == firstKillBy && firstKillBy != "" {
			out = append(out, earned(stat, "first_blood"))
		}
		if stat.PlayerID == winnerID && winnerID != "" {
			out = append(out, earned(stat, "survival_champion"))
		}
		if stat.Golden >= 2 {
			out = append(out, earned(stat, "golden_gourmet"))
		}
		if stat.Powerups >= 3 {
			out = append(out, earned(stat, "power_collector"))
		}
		if stat.Kills >= 3 {
			out = append(out, earned(stat, "hunter"))
		}
	}
	return out
}
