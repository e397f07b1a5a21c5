package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rl1809/smart-inventory/internal/adapter/handler"
	"github.com/rl1809/smart-inventory/internal/core/domain"
)

// detector-sim stands in for the vision detector: it registers as a detector,
// re-reports a handful of "visible" items every frame interval the way a
// tracker does, occasionally drops one (REMOVE), and honors resync requests
// by re-emitting everything it currently sees.
func main() {
	serverURL := flag.String("server", "ws://localhost:8080/ws", "server /ws endpoint")
	items := flag.String("items", "soda,chips,instant noodles", "comma-separated items to report")
	frameInterval := flag.Duration("interval", 800*time.Millisecond, "delay between frames")
	flag.Parse()

	visible := map[string]int{}
	for _, name := range strings.Split(*items, ",") {
		if name = strings.TrimSpace(name); name != "" {
			visible[name] = 1
		}
	}
	if len(visible) == 0 {
		log.Fatal("no items to report")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, *serverURL, nil)
	if err != nil {
		log.Fatalf("dial server: %v", err)
	}
	defer conn.Close()

	var writeMu sync.Mutex
	send := func(msg handler.Message) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(msg)
	}

	if err := send(handler.Message{Type: handler.MsgRegisterDetector}); err != nil {
		log.Fatalf("register detector: %v", err)
	}
	log.Printf("registered as detector, reporting %d item(s)", len(visible))

	var mu sync.Mutex
	emit := func(name string, qty int, action domain.EventAction) {
		ev := domain.DetectionEvent{Name: name, Quantity: qty, AutoMode: true, Action: action}
		if err := send(handler.Message{Type: handler.MsgDetectItem, Event: &ev}); err != nil {
			log.Printf("emit %s %s: %v", action, name, err)
		}
	}

	// Resync handling: forget nothing, just re-send everything in view.
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				log.Printf("read: %v", err)
				cancel()
				return
			}
			var msg handler.Message
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			if msg.Type == handler.MsgRequestResync {
				log.Println("resync requested, re-emitting visible items")
				mu.Lock()
				for name, qty := range visible {
					emit(name, qty, domain.ActionAdd)
				}
				mu.Unlock()
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(*frameInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				mu.Lock()
				for name, qty := range visible {
					emit(name, qty, domain.ActionAdd)
				}
				// Once in a while an item "leaves the frame".
				if rand.Intn(20) == 0 {
					for name, qty := range visible {
						emit(name, qty, domain.ActionRemove)
						delete(visible, name)
						log.Printf("%s left the frame", name)
						break
					}
				}
				mu.Unlock()
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}
	log.Println("detector stopped")
}
