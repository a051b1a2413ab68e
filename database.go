package main

import (
	"database/sql"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// RoundResult is one player's outcome of a finished round, recorded into
// their persistent profile.
type RoundResult struct {
	Name            string
	Score           int
	Kills           int
	Deaths          int
	Golden          int
	Powerups        int
	SurvivalSeconds int
	Won             bool
	Mode            string
	Achievements    []string
}

// ProfileAchievement is an earned achievement with its earn count.
type ProfileAchievement struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Count       int    `json:"count"`
}

// Profile is a player's persistent record, keyed by display name.
type Profile struct {
	Name            string               `json:"name"`
	Games           int                  `json:"games"`
	Wins            int                  `json:"wins"`
	Kills           int                  `json:"kills"`
	Deaths          int                  `json:"deaths"`
	TotalScore      int                  `json:"totalScore"`
	BestScore       int                  `json:"bestScore"`
	BestKills       int                  `json:"bestKills"`
	GoldenFood      int                  `json:"goldenFood"`
	Powerups        int                  `json:"powerups"`
	SurvivalSeconds int                  `json:"survivalSeconds"`
	LastColor       string               `json:"lastColor,omitempty"`
	LastMode        string               `json:"lastMode,omitempty"`
	Achievements    []ProfileAchievement `json:"achievements"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

// AccountRow is a registered account record.
type AccountRow struct {
	ID        int64
	Username  string
	PassHash  string
	CreatedAt time.Time
}

// ProfileSummary is a leaderboard line for the stats endpoint.
type ProfileSummary struct {
	Name      string `json:"name"`
	Games     int    `json:"games"`
	Wins      int    `json:"wins"`
	Kills     int    `json:"kills"`
	BestScore int    `json:"bestScore"`
}

// StatsSnapshot aggregates server-wide profile stats.
type StatsSnapshot struct {
	Profiles   int              `json:"profiles"`
	Games      int              `json:"games"`
	Kills      int              `json:"kills"`
	TopPlayers []ProfileSummary `json:"topPlayers"`
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		name TEXT PRIMARY KEY,
		games INTEGER NOT NULL DEFAULT 0,
		wins INTEGER NOT NULL DEFAULT 0,
		kills INTEGER NOT NULL DEFAULT 0,
		deaths INTEGER NOT NULL DEFAULT 0,
		total_score INTEGER NOT NULL DEFAULT 0,
		best_score INTEGER NOT NULL DEFAULT 0,
		best_kills INTEGER NOT NULL DEFAULT 0,
		golden_food INTEGER NOT NULL DEFAULT 0,
		powerups INTEGER NOT NULL DEFAULT 0,
		survival_seconds INTEGER NOT NULL DEFAULT 0,
		last_color TEXT NOT NULL DEFAULT '',
		last_mode TEXT NOT NULL DEFAULT '',
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS profile_achievements (
		profile_name TEXT NOT NULL REFERENCES profiles(name),
		key TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		earned_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (profile_name, key)
	);

	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		pass_hash TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS event_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		type TEXT NOT NULL,
		room_id TEXT NOT NULL DEFAULT '',
		room_name TEXT NOT NULL DEFAULT '',
		mode TEXT NOT NULL DEFAULT '',
		round INTEGER NOT NULL DEFAULT 0,
		timestamp INTEGER NOT NULL,
		tags TEXT NOT NULL DEFAULT '[]',
		participants TEXT NOT NULL DEFAULT '[]',
		meta TEXT NOT NULL DEFAULT '{}',
		feed TEXT NOT NULL DEFAULT '[]',
		context TEXT NOT NULL DEFAULT '{}'
	);

	CREATE INDEX IF NOT EXISTS idx_event_logs_type ON event_logs(type);
	CREATE INDEX IF NOT EXISTS idx_event_logs_room ON event_logs(room_id);
	CREATE INDEX IF NOT EXISTS idx_event_logs_time ON event_logs(timestamp);
	CREATE INDEX IF NOT EXISTS idx_profile_achievements_name ON profile_achievements(profile_name);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		log.Printf("DB migration error: %v", err)
	}
	return err
}

// RecordResult folds one round outcome into a profile, creating it on
// first sight.
func (db *DB) RecordResult(res RoundResult) error {
	win := 0
	if res.Won {
		win = 1
	}
	_, err := db.conn.Exec(`
		INSERT INTO profiles (
			name, games, wins, kills, deaths, total_score, best_score,
			best_kills, golden_food, powerups, survival_seconds, last_mode, updated_at
		) VALUES (?, 1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET
			games = games + 1,
			wins = wins + excluded.wins,
			kills = kills + excluded.kills,
			deaths = deaths + excluded.deaths,
			total_score = total_score + excluded.total_score,
			best_score = MAX(best_score, excluded.best_score),
			best_kills = MAX(best_kills, excluded.best_kills),
			golden_food = golden_food + excluded.golden_food,
			powerups = powerups + excluded.powerups,
			survival_seconds = survival_seconds + excluded.survival_seconds,
			last_mode = excluded.last_mode,
			updated_at = CURRENT_TIMESTAMP`,
		res.Name, win, res.Kills, res.Deaths, res.Score, res.Score,
		res.Kills, res.Golden, res.Powerups, res.SurvivalSeconds, res.Mode,
	)
	if err != nil {
		return err
	}
	for _, key := range res.Achievements {
		_, err = db.conn.Exec(`
			INSERT INTO profile_achievements (profile_name, key, count)
			VALUES (?, ?, 1)
			ON CONFLICT(profile_name, key) DO UPDATE SET count = count + 1`,
			res.Name, key,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// RememberPreference stores the player's last picked color and mode.
func (db *DB) RememberPreference(name, color, mode string) error {
	_, err := db.conn.Exec(`
		INSERT INTO profiles (name, last_color, last_mode)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			last_color = CASE WHEN excluded.last_color != '' THEN excluded.last_color ELSE last_color END,
			last_mode = CASE WHEN excluded.last_mode != '' THEN excluded.last_mode ELSE last_mode END,
			updated_at = CURRENT_TIMESTAMP`,
		name, color, mode,
	)
	return err
}

// GetProfile loads a profile and its achievements. Returns nil when the
// name has never played.
func (db *DB) GetProfile(name string) (*Profile, error) {
	row := db.conn.QueryRow(`
		SELECT name, games, wins, kills, deaths, total_score, best_score,
			best_kills, golden_food, powerups, survival_seconds,
			last_color, last_mode, updated_at
		FROM profiles WHERE name = ?`, name)
	p := &Profile{}
	err := row.Scan(
		&p.Name, &p.Games, &p.Wins, &p.Kills, &p.Deaths, &p.TotalScore,
		&p.BestScore, &p.BestKills, &p.GoldenFood, &p.Powerups,
		&p.SurvivalSeconds, &p.LastColor, &p.LastMode, &p.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`
		SELECT key, count FROM profile_achievements
		WHERE profile_name = ? ORDER BY earned_at`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		def := achievementDefs[key]
		p.Achievements = append(p.Achievements, ProfileAchievement{
			Key:         key,
			Title:       def.Title,
			Description: def.Description,
			Icon:        def.Icon,
			Count:       count,
		})
	}
	return p, rows.Err()
}

// Snapshot aggregates server-wide stats for the HTTP stats endpoint.
func (db *DB) Snapshot() (*StatsSnapshot, error) {
	snap := &StatsSnapshot{}
	row := db.conn.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(games), 0), COALESCE(SUM(kills), 0)
		FROM profiles`)
	if err := row.Scan(&snap.Profiles, &snap.Games, &snap.Kills); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(`
		SELECT name, games, wins, kills, best_score
		FROM profiles ORDER BY best_score DESC, wins DESC LIMIT 10`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var s ProfileSummary
		if err := rows.Scan(&s.Name, &s.Games, &s.Wins, &s.Kills, &s.BestScore); err != nil {
			return nil, err
		}
		snap.TopPlayers = append(snap.TopPlayers, s)
	}
	return snap, rows.Err()
}

// CreateAccount inserts a registered account (returns account ID)
func (db *DB) CreateAccount(username, passHash string) (int64, error) {
	res, err := db.conn.Exec(
		"INSERT INTO accounts (username, pass_hash) VALUES (?, ?)",
		username, passHash,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetAccountByUsername returns an account by username
func (db *DB) GetAccountByUsername(username string) (*AccountRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, pass_hash, created_at FROM accounts WHERE username = ?",
		username,
	)
	a := &AccountRow{}
	err := row.Scan(&a.ID, &a.Username, &a.PassHash, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

// GetSetting reads a settings value, empty string when unset.
func (db *DB) GetSetting(key string) (string, error) {
	row := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key)
	var value string
	err := row.Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

// SetSetting stores a settings value.
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}
