package main

// ModeSettings is the bundle of tunables a room runs with.
type ModeSettings struct {
	BaseSpeed              float64
	SpeedBoostMultiplier   float64
	MaxFood                int
	GoldenFoodChance       float64
	FoodRespawnChance      float64
	MaxPowerups            int
	PowerupSpawnChance     float64
	CountdownSeconds       int
	IntermissionSeconds    int
	SurvivalBonusPerSecond int
	WinBonus               int
}

// TournamentSettings enables multi-round play for a mode.
type TournamentSettings struct {
	RoundsToWin         int
	IntermissionSeconds int
}

// GameMode describes a selectable rule set.
type GameMode struct {
	Key         string
	Label       string
	Description string
	Settings    ModeSettings
	Tournament  *TournamentSettings
}

const DefaultModeKey = "classic"

var GameModes = map[string]GameMode{
	"classic": {
		Key:         "classic",
		Label:       "Classic",
		Description: "Balanced standard rules",
		Settings: ModeSettings{
			BaseSpeed:              4,
			SpeedBoostMultiplier:   1.6,
			MaxFood:                30,
			GoldenFoodChance:       0.08,
			FoodRespawnChance:      0.2,
			MaxPowerups:            6,
			PowerupSpawnChance:     0.05,
			CountdownSeconds:       5,
			IntermissionSeconds:    4,
			SurvivalBonusPerSecond: 2,
			WinBonus:               200,
		},
	},
	"battle": {
		Key:         "battle",
		Label:       "Battle",
		Description: "Combat mode rich in food and power-ups",
		Settings: ModeSettings{
			BaseSpeed:              4,
			SpeedBoostMultiplier:   1.5,
			MaxFood:                48,
			GoldenFoodChance:       0.14,
			FoodRespawnChance:      0.2,
			MaxPowerups:            10,
			PowerupSpawnChance:     0.12,
			CountdownSeconds:       5,
			IntermissionSeconds:    5,
			SurvivalBonusPerSecond: 3,
			WinBonus:               220,
		},
	},
	"speed": {
		Key:         "speed",
		Label:       "Speed",
		Description: "Faster and more punishing",
		Settings: ModeSettings{
			BaseSpeed:              5,
			SpeedBoostMultiplier:   1.85,
			MaxFood:                26,
			GoldenFoodChance:       0.1,
			FoodRespawnChance:      0.2,
			MaxPowerups:            5,
			PowerupSpawnChance:     0.04,
			CountdownSeconds:       4,
			IntermissionSeconds:    3,
			SurvivalBonusPerSecond: 1,
			WinBonus:               240,
		},
	},
	"tournament": {
		Key:         "tournament",
		Label:       "Tournament",
		Description: "Multiple rounds decide a champion",
		Settings: ModeSettings{
			BaseSpeed:              4,
			SpeedBoostMultiplier:   1.6,
			MaxFood:                32,
			GoldenFoodChance:       0.1,
			FoodRespawnChance:      0.2,
			MaxPowerups:            8,
			PowerupSpawnChance:     0.08,
			CountdownSeconds:       6,
			IntermissionSeconds:    6,
			SurvivalBonusPerSecond: 3,
			WinBonus:               180,
		},
		Tournament: &TournamentSettings{
			RoundsToWin:         3,
			IntermissionSeconds: 8,
		},
	},
}

// Info returns the client-facing mode descriptor.
func (m *GameMode) Info() ModeInfo {
	return ModeInfo{Key: m.Key, Label: m.Label, Description: m.Description}
}

// ResolveMode returns the mode for key, falling back to the default mode.
func ResolveMode(key string) GameMode {
	if mode, ok := GameModes[key]; ok {
		return mode
	}
	return GameModes[DefaultModeKey]
}
