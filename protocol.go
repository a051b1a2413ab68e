package main

import "encoding/json"

// Client -> Server message types
const (
	MsgRoomsList    = "rooms:list"
	MsgRoomCreate   = "room:create"
	MsgRoomJoin     = "room:join"
	MsgQuickJoin    = "room:quick-join"
	MsgRoomSpectate = "room:spectate"
	MsgRoomLeave    = "room:leave"
	MsgInput        = "player:input"
	MsgColorChange  = "player:color-change"
	MsgChat         = "chat:message"
	MsgReplayReq    = "room:request-replay"
	MsgRegister     = "account:register"
	MsgLogin        = "account:login"
	MsgAuth         = "account:auth"
	MsgProfileReq   = "player:profile-request"
)

// Server -> Client message types
const (
	MsgRoomsUpdate  = "rooms:updated"
	MsgAssigned     = "player:assigned"
	MsgProfile      = "player:profile"
	MsgState        = "game:state"
	MsgEnded        = "game:ended"
	MsgReplay       = "room:replay"
	MsgNotification = "room:notification"
	MsgChatRelay    = "chat:relay"
	MsgAuthOK       = "account:ok"
	MsgError        = "error"
)

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages — json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// CreateRoomMsg requests a new room plus an immediate join.
type CreateRoomMsg struct {
	Name           string `json:"name"`
	Private        bool   `json:"private"`
	PlayerName     string `json:"playerName"`
	Mode           string `json:"mode"`
	PreferredColor string `json:"preferredColor"`
}

// JoinRoomMsg requests joining an existing room by id.
type JoinRoomMsg struct {
	RoomID         string `json:"roomId"`
	PlayerName     string `json:"playerName"`
	PreferredColor string `json:"preferredColor"`
}

// QuickJoinMsg requests joining any public room, creating one if needed.
type QuickJoinMsg struct {
	PlayerName     string `json:"playerName"`
	PreferredColor string `json:"preferredColor"`
	Mode           string `json:"mode"`
}

// SpectateMsg attaches the connection to a room as a viewer.
type SpectateMsg struct {
	RoomID string `json:"roomId"`
}

// InputMsg carries a direction-change request.
type InputMsg struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ColorChangeMsg requests a palette color.
type ColorChangeMsg struct {
	Color string `json:"color"`
}

// ChatSendMsg is an inbound chat line.
type ChatSendMsg struct {
	Message string `json:"message"`
}

// RegisterMsg creates an account.
type RegisterMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginMsg authenticates with credentials.
type LoginMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthMsg authenticates with a previously issued token.
type AuthMsg struct {
	Token string `json:"token"`
}

// AuthOKMsg confirms authentication.
type AuthOKMsg struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// ModeInfo is the client-facing mode descriptor.
type ModeInfo struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// WorldInfo tells clients the arena dimensions.
type WorldInfo struct {
	Width       float64 `json:"width"`
	Height      float64 `json:"height"`
	SegmentSize float64 `json:"segmentSize"`
}

// RoomInfo is one row in the joinable-room list.
type RoomInfo struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Players int      `json:"players"`
	Phase   Phase    `json:"phase"`
	Mode    ModeInfo `json:"mode"`
}

// AssignedMsg notifies a player of their identity after a join.
type AssignedMsg struct {
	PlayerID string    `json:"playerId"`
	RoomID   string    `json:"roomId"`
	RoomName string    `json:"roomName"`
	Phase    Phase     `json:"phase"`
	Color    string    `json:"color"`
	Mode     ModeInfo  `json:"mode"`
	World    WorldInfo `json:"world"`
}

// EffectSnapshot is one active effect in a state broadcast.
type EffectSnapshot struct {
	Type      EffectKind `json:"type"`
	Remaining int        `json:"remaining"`
	Total     int        `json:"total"`
}

// PlayerSnapshot is a player's public state, broadcast per tick.
type PlayerSnapshot struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Color     string           `json:"color"`
	Alive     bool             `json:"alive"`
	Direction Vec              `json:"direction"`
	Segments  []Vec            `json:"segments"`
	Score     int              `json:"score"`
	Kills     int              `json:"kills"`
	Effects   []EffectSnapshot `json:"effects"`
}

// LeaderboardRow is one scoreboard entry, sorted by score descending.
type LeaderboardRow struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
	Kills int    `json:"kills"`
	Alive bool   `json:"alive"`
	Color string `json:"color"`
}

// RoomSnapshot is the full per-tick state broadcast.
type RoomSnapshot struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Mode         ModeInfo           `json:"mode"`
	Phase        Phase              `json:"phase"`
	Countdown    int                `json:"countdown"`
	Intermission int                `json:"intermission"`
	Players      []PlayerSnapshot   `json:"players"`
	Food         []*Food            `json:"food"`
	Powerups     []*Powerup         `json:"powerups"`
	Leaderboard  []LeaderboardRow   `json:"leaderboard"`
	Events       []FeedEntry        `json:"events"`
	Round        int                `json:"round"`
	Timestamp    int64              `json:"timestamp"`
	Tournament   TournamentSnapshot `json:"tournament"`
}

// RoundEndedMsg closes out a round.
type RoundEndedMsg struct {
	WinnerID     string              `json:"winnerId,omitempty"`
	Leaderboard  []LeaderboardRow    `json:"leaderboard"`
	Tournament   TournamentSnapshot  `json:"tournament"`
	Highlights   *HighlightPackage   `json:"highlights"`
	Achievements []PlayerAchievement `json:"achievements"`
}

// NotificationMsg is a generic per-room announcement.
type NotificationMsg struct {
	ID        string `json:"id"`
	Type      string `json:"type"` // "join", "leave", "round", "champion"
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// ChatRelayMsg is an outbound chat line.
type ChatRelayMsg struct {
	ID        string `json:"id"`
	RoomID    string `json:"roomId"`
	Author    string `json:"author"`
	Color     string `json:"color"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// ErrorMsg sends a structured error to the client.
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// ReplayPayload carries the full frame history for a room. It is large, so
// it travels as a msgpack-encoded binary message rather than JSON.
type ReplayPayload struct {
	RoomID  string         `msgpack:"roomId" json:"roomId"`
	Frames  []Frame        `msgpack:"frames" json:"frames"`
	Markers []ReplayMarker `msgpack:"markers" json:"markers"`
	World   WorldInfo      `msgpack:"world" json:"world"`
}

// ReplayMessage is the binary envelope for replay payloads.
type ReplayMessage struct {
	T    string        `msgpack:"t"`
	Data ReplayPayload `msgpack:"d"`
}
