package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	// .env is optional; flags and real env take precedence
	godotenv.Load()

	addr := flag.String("addr", envOr("WORM_ADDR", ":8080"), "HTTP listen address")
	dbPath := flag.String("db", envOr("WORM_DB_PATH", "worm.db"), "Path to SQLite database")
	staticDir := flag.String("static", envOr("WORM_STATIC_DIR", "./public"), "Path to static client files")
	flag.Parse()

	db, err := OpenDB(*dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	events := NewEventLogStore(db)

	hub := NewHub(db, events)
	go hub.Run()

	mux := SetupRoutes(hub, *staticDir)

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	server := &http.Server{Addr: *addr, Handler: mux}

	go func() {
		log.Printf("Server starting on %s", *addr)
		log.Printf("Serving static files from %s", *staticDir)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop
	log.Println("Shutting down...")
	server.Close()
	hub.registry.Shutdown()
	events.Stop()
}
