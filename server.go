package main

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	qrcode "github.com/skip2/go-qrcode"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true // Non-browser clients don't send Origin
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

func extractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// SetupRoutes configures HTTP routes
func SetupRoutes(hub *Hub, staticDir string) *http.ServeMux {
	mux := http.NewServeMux()

	// Serve static files with no-cache so browsers always revalidate
	fs := http.FileServer(http.Dir(staticDir))
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		fs.ServeHTTP(w, r)
	}))

	// WebSocket endpoint
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r)
		if !hub.CanAccept(ip) {
			http.Error(w, "too many connections", http.StatusServiceUnavailable)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("upgrade error: %v", err)
			return
		}

		hub.TrackConnect(ip)

		client := NewClient(hub, conn, ip)
		hub.register <- client

		go client.WritePump()
		go client.ReadPump()
	})

	// Server-wide stats: live counts plus persisted profile aggregates
	mux.HandleFunc("GET /api/stats", func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]interface{}{
			"clients": hub.ClientCount(),
			"rooms":   hub.registry.Count(),
		}
		if hub.db != nil {
			snap, err := hub.db.Snapshot()
			if err != nil {
				log.Printf("stats snapshot: %v", err)
			} else {
				payload["profiles"] = snap
			}
		}
		writeJSON(w, http.StatusOK, payload)
	})

	mux.HandleFunc("GET /api/rooms", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, hub.registry.List())
	})

	// Invite QR code: encodes the room join URL as a PNG
	mux.HandleFunc("GET /api/rooms/{id}/qr", func(w http.ResponseWriter, r *http.Request) {
		room, err := hub.registry.Get(r.PathValue("id"))
		if err != nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		joinURL := scheme + "://" + r.Host + "/?room=" + room.ID
		png, err := qrcode.Encode(joinURL, qrcode.Medium, 256)
		if err != nil {
			http.Error(w, "qr encode failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(png)
	})

	mux.HandleFunc("GET /api/profile/{name}", func(w http.ResponseWriter, r *http.Request) {
		if hub.db == nil {
			http.Error(w, "profiles unavailable", http.StatusServiceUnavailable)
			return
		}
		profile, err := hub.db.GetProfile(r.PathValue("name"))
		if err != nil {
			http.Error(w, "database error", http.StatusInternalServerError)
			return
		}
		if profile == nil {
			http.Error(w, "profile not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	})

	mux.HandleFunc("GET /api/event-logs", func(w http.ResponseWriter, r *http.Request) {
		if hub.events == nil {
			http.Error(w, "event logs unavailable", http.StatusServiceUnavailable)
			return
		}
		page, err := hub.events.Query(parseEventLogQuery(r))
		if err != nil {
			log.Printf("event log query: %v", err)
			http.Error(w, "database error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, page)
	})

	return mux
}

func parseEventLogQuery(r *http.Request) EventLogQuery {
	q := r.URL.Query()
	query := EventLogQuery{
		RoomID: q.Get("room"),
		Mode:   q.Get("mode"),
		Player: q.Get("player"),
		Search: q.Get("search"),
	}
	if types := q.Get("types"); types != "" {
		query.Types = splitCSV(types)
	}
	if tags := q.Get("tags"); tags != "" {
		query.Tags = splitCSV(tags)
	}
	if before := q.Get("before"); before != "" {
		if n, err := strconv.ParseInt(before, 10, 64); err == nil {
			query.Before = n
		}
	}
	if limit := q.Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			query.Limit = n
		}
	}
	return query
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
