package main

import "testing"

func testClient(addr, authName string) *Client {
	return &Client{
		hub:          &Hub{},
		send:         make(chan []byte, sendBufSize),
		remoteAddr:   addr,
		authUsername: authName,
	}
}

func TestJoinRoomFallsBackToAccountName(t *testing.T) {
	room := newTestRoom(t, "classic")

	c := testClient("c1", "worm_king")
	c.joinRoom(room, "", "")
	if c.playerName != "worm_king" {
		t.Errorf("expected account name as display name, got %q", c.playerName)
	}

	// An explicit request still wins over the account name
	c2 := testClient("c2", "other_account")
	c2.joinRoom(room, "Dave", "")
	if c2.playerName != "Dave" {
		t.Errorf("expected requested name, got %q", c2.playerName)
	}

	// Guests keep the generic fallback
	c3 := testClient("c3", "")
	c3.joinRoom(room, "", "")
	if c3.playerName != "Player" {
		t.Errorf("expected guest fallback name, got %q", c3.playerName)
	}
}

func TestSanitizeName(t *testing.T) {
	if got := sanitizeName("  Alice  ", "Player"); got != "Alice" {
		t.Errorf("expected trimmed name, got %q", got)
	}
	if got := sanitizeName("", "Player"); got != "Player" {
		t.Errorf("expected fallback, got %q", got)
	}
	long := make([]rune, maxNameLen+10)
	for i := range long {
		long[i] = 'x'
	}
	if got := sanitizeName(string(long), "Player"); len([]rune(got)) != maxNameLen {
		t.Errorf("expected name capped at %d runes, got %d", maxNameLen, len([]rune(got)))
	}
}
