package main

import (
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 50
	maxNameLen        = 16
	maxRoomNameLen    = 30
)

// Client represents a WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	remoteAddr string
	msgCount   int
	msgResetAt time.Time

	playerID   string
	playerName string
	room       *Room
	spectateID string
	spectating *Room

	// Auth state
	authAccountID int64  // 0 = unauthenticated/guest
	authUsername  string // "" = unauthenticated
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		remoteAddr: remoteAddr,
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws error: %v", err)
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			log.Printf("rate limit exceeded for %s, disconnecting", c.remoteAddr)
			break
		}

		// Binary input messages: 3 bytes [0x01, dx, dy] with signed axis values
		if msgType == websocket.BinaryMessage && len(message) == 3 && message[0] == 0x01 {
			c.handleBinaryInput(message)
		} else {
			c.handleMessage(message)
		}
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// Check for binary marker (0xFF prefix from SendBinary)
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal error: %v", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message
// Prefixes with 0xFF marker byte so WritePump can distinguish from text
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF // binary marker
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) sendError(msg string) {
	c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: msg}})
}

// detachFromRoom removes the client from whatever room it occupies.
func (c *Client) detachFromRoom() {
	if c.room != nil {
		c.room.RemovePlayer(c.playerID)
		c.room = nil
		c.playerID = ""
	}
	if c.spectating != nil {
		c.spectating.RemoveSpectator(c.spectateID)
		c.spectating = nil
		c.spectateID = ""
	}
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("unmarshal error: %v", err)
		return
	}

	switch env.T {
	case MsgRoomsList:
		c.handleList()
	case MsgRoomCreate:
		c.handleCreate(env.D)
	case MsgRoomJoin:
		c.handleJoin(env.D)
	case MsgQuickJoin:
		c.handleQuickJoin(env.D)
	case MsgRoomSpectate:
		c.handleSpectate(env.D)
	case MsgRoomLeave:
		c.handleLeave()
	case MsgInput:
		c.handleInput(env.D)
	case MsgColorChange:
		c.handleColorChange(env.D)
	case MsgChat:
		c.handleChat(env.D)
	case MsgReplayReq:
		c.handleReplayRequest()
	case MsgRegister:
		c.handleRegister(env.D)
	case MsgLogin:
		c.handleLogin(env.D)
	case MsgAuth:
		c.handleAuth(env.D)
	case MsgProfileReq:
		c.handleProfileRequest()
	}
}

func (c *Client) handleList() {
	c.SendJSON(Envelope{T: MsgRoomsUpdate, Data: c.hub.registry.List()})
}

func sanitizeName(name, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallback
	}
	if runes := []rune(name); len(runes) > maxNameLen {
		name = string(runes[:maxNameLen])
	}
	return name
}

func (c *Client) handleCreate(data json.RawMessage) {
	var msg CreateRoomMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	roomName := strings.TrimSpace(msg.Name)
	if runes := []rune(roomName); len(runes) > maxRoomNameLen {
		roomName = string(runes[:maxRoomNameLen])
	}
	c.detachFromRoom()
	room := c.hub.registry.CreateRoom(roomName, msg.Mode, msg.Private)
	c.joinRoom(room, msg.PlayerName, msg.PreferredColor)
}

func (c *Client) handleJoin(data json.RawMessage) {
	var msg JoinRoomMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	room, err := c.hub.registry.Get(msg.RoomID)
	if err != nil {
		c.sendError("room not found")
		return
	}
	c.detachFromRoom()
	c.joinRoom(room, msg.PlayerName, msg.PreferredColor)
}

func (c *Client) handleQuickJoin(data json.RawMessage) {
	var msg QuickJoinMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	c.detachFromRoom()
	room := c.hub.registry.QuickJoin(msg.Mode)
	c.joinRoom(room, msg.PlayerName, msg.PreferredColor)
}

// joinRoom performs the shared join path: add the player, apply the color
// preference, then push identity and profile to the client.
func (c *Client) joinRoom(room *Room, playerName, preferredColor string) {
	fallback := c.authUsername
	if fallback == "" {
		fallback = "Player"
	}
	name := sanitizeName(playerName, fallback)
	player, err := room.AddPlayer(name, c.remoteAddr, preferredColor, c)
	if err != nil {
		switch {
		case errors.Is(err, ErrRoomFull):
			c.sendError("room is full")
		case errors.Is(err, ErrDuplicateName):
			c.sendError("name already taken in this room")
		case errors.Is(err, ErrRoomClosed):
			c.sendError("room has ended")
		default:
			c.sendError("could not join room")
		}
		return
	}

	c.room = room
	c.playerID = player.ID
	c.playerName = name

	c.SendJSON(Envelope{T: MsgAssigned, Data: AssignedMsg{
		PlayerID: player.ID,
		RoomID:   room.ID,
		RoomName: room.Name,
		Phase:    room.Snapshot().Phase,
		Color:    player.Color,
		Mode:     room.Mode.Info(),
		World:    WorldInfo{Width: WorldWidth, Height: WorldHeight, SegmentSize: SegmentSize},
	}})
	c.pushProfile(name)

	if db := c.hub.db; db != nil {
		color, mode := player.Color, room.Mode.Key
		go func() {
			if err := db.RememberPreference(name, color, mode); err != nil {
				log.Printf("remember preference for %s: %v", name, err)
			}
		}()
	}
}

// pushProfile sends the stored profile for a name, if any.
func (c *Client) pushProfile(name string) {
	db := c.hub.db
	if db == nil {
		return
	}
	go func() {
		profile, err := db.GetProfile(name)
		if err != nil {
			log.Printf("load profile for %s: %v", name, err)
			return
		}
		if profile == nil {
			return
		}
		c.SendJSON(Envelope{T: MsgProfile, Data: profile})
	}()
}

func (c *Client) handleSpectate(data json.RawMessage) {
	var msg SpectateMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	room, err := c.hub.registry.Get(msg.RoomID)
	if err != nil {
		c.sendError("room not found")
		return
	}
	c.detachFromRoom()
	id := uuid.NewString()
	if err := room.AddSpectator(id, c); err != nil {
		c.sendError("room has ended")
		return
	}
	c.spectating = room
	c.spectateID = id
	c.SendJSON(Envelope{T: MsgState, Data: room.Snapshot()})
}

func (c *Client) handleLeave() {
	c.detachFromRoom()
	c.handleList()
}

func (c *Client) handleInput(data json.RawMessage) {
	if c.room == nil {
		return
	}
	var msg InputMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	c.room.SetDirection(c.playerID, msg.X, msg.Y)
}

func (c *Client) handleBinaryInput(message []byte) {
	if c.room == nil {
		return
	}
	dx := float64(int8(message[1]))
	dy := float64(int8(message[2]))
	c.room.SetDirection(c.playerID, dx, dy)
}

func (c *Client) handleColorChange(data json.RawMessage) {
	if c.room == nil {
		return
	}
	var msg ColorChangeMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if err := c.room.ChangeColor(c.playerID, msg.Color); err != nil {
		c.sendError(err.Error())
		return
	}
	if db := c.hub.db; db != nil {
		name, color := c.playerName, msg.Color
		go func() {
			if err := db.RememberPreference(name, color, ""); err != nil {
				log.Printf("remember preference for %s: %v", name, err)
			}
		}()
	}
}

func (c *Client) handleChat(data json.RawMessage) {
	if c.room == nil {
		return
	}
	var msg ChatSendMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	c.room.RelayChat(c.playerID, msg.Message)
}

// handleReplayRequest streams the room's frame history as a binary msgpack
// payload; JSON would be far too large at full history depth.
func (c *Client) handleReplayRequest() {
	room := c.room
	if room == nil {
		room = c.spectating
	}
	if room == nil {
		c.sendError("not in a room")
		return
	}
	payload := room.BuildReplay()
	data, err := msgpack.Marshal(ReplayMessage{T: MsgReplay, Data: *payload})
	if err != nil {
		log.Printf("marshal replay: %v", err)
		return
	}
	c.SendBinary(data)
}

func (c *Client) handleRegister(data json.RawMessage) {
	var msg RegisterMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if c.hub.db == nil {
		c.sendError("accounts unavailable")
		return
	}
	id, token, err := c.hub.auth.Register(msg.Username, msg.Password)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.authAccountID = id
	c.authUsername = strings.TrimSpace(msg.Username)
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{Token: token, Username: c.authUsername}})
}

func (c *Client) handleLogin(data json.RawMessage) {
	var msg LoginMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if c.hub.db == nil {
		c.sendError("accounts unavailable")
		return
	}
	id, token, err := c.hub.auth.Login(msg.Username, msg.Password, c.remoteAddr)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.authAccountID = id
	c.authUsername = strings.TrimSpace(msg.Username)
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{Token: token, Username: c.authUsername}})
}

func (c *Client) handleAuth(data json.RawMessage) {
	var msg AuthMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	id, username, err := c.hub.auth.ValidateToken(msg.Token)
	if err != nil {
		c.sendError("invalid token")
		return
	}
	c.authAccountID = id
	c.authUsername = username
	c.SendJSON(Envelope{T: MsgAuthOK, Data: AuthOKMsg{Token: msg.Token, Username: username}})
}

func (c *Client) handleProfileRequest() {
	name := c.playerName
	if name == "" {
		name = c.authUsername
	}
	if name == "" {
		c.sendError("no profile name")
		return
	}
	c.pushProfile(name)
}
