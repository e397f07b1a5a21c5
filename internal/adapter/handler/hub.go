package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/rl1809/smart-inventory/internal/core/domain"
	"github.com/rl1809/smart-inventory/internal/core/service"
)

// Hub fans inventory, history and connection-state snapshots out to every
// connected observer and routes their commands into the inventory service.
// It implements port.Broadcaster.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	outbound   chan *Message
	quit       chan struct{}
	done       chan struct{}

	mu        sync.Mutex
	inventory *service.InventoryService
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client, 64),
		outbound:   make(chan *Message, 256),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Bind wires the inventory service after construction; the service needs the
// hub as its broadcaster, so the two are created hub-first.
func (h *Hub) Bind(inventory *service.InventoryService) {
	h.mu.Lock()
	h.inventory = inventory
	h.mu.Unlock()
}

func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			client.trySend(h.snapshotMessage())

		case client := <-h.unregister:
			h.dropClient(client)

		case msg := <-h.outbound:
			var slow []*Client
			for client := range h.clients {
				if !client.trySend(msg) {
					slow = append(slow, client)
				}
			}
			for _, client := range slow {
				h.dropClient(client)
			}

		case <-h.quit:
			for client := range h.clients {
				h.dropClient(client)
			}
			return
		}
	}
}

// Stop shuts the hub down and waits for the run loop to exit.
func (h *Hub) Stop() {
	close(h.quit)
	<-h.done
}

func (h *Hub) dropClient(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	client.conn.Close()
	if client.isDetector() {
		h.service().SetDetectorOnline(false)
	}
}

func (h *Hub) service() *service.InventoryService {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.inventory
}

func (h *Hub) snapshotMessage() *Message {
	records, history, detector := h.service().Snapshot()
	return &Message{
		Type:              MsgSnapshot,
		Records:           records,
		History:           history,
		DetectorConnected: &detector,
	}
}

// handleMessage dispatches one inbound client message. Runs on the client's
// read goroutine; the inventory service serializes internally.
func (h *Hub) handleMessage(ctx context.Context, client *Client, msg *Message) {
	inv := h.service()
	switch msg.Type {
	case MsgRegisterDetector:
		client.setDetector(true)
		inv.SetDetectorOnline(true)

	case MsgDetectItem:
		if msg.Event != nil {
			inv.HandleDetection(ctx, *msg.Event)
		}

	case MsgManualReplace:
		inv.ReplaceAll(ctx, msg.Records)

	case MsgCleanZero:
		inv.CleanZero(ctx)

	case MsgSmartReset:
		inv.SmartReset(ctx)
	}
}

func (h *Hub) publish(msg *Message) {
	select {
	case h.outbound <- msg:
	case <-h.quit:
	default:
		// Observers receive full-state snapshots, so a dropped broadcast is
		// recovered by the next one.
		log.Printf("hub: outbound channel full, dropping %s broadcast", msg.Type)
	}
}

// BroadcastRecords implements port.Broadcaster.
func (h *Hub) BroadcastRecords(records []domain.InventoryRecord) {
	h.publish(&Message{Type: MsgRecords, Records: records})
}

// BroadcastHistory implements port.Broadcaster.
func (h *Hub) BroadcastHistory(history []domain.HistoryEntry) {
	h.publish(&Message{Type: MsgHistory, History: history})
}

// BroadcastDetectorStatus implements port.Broadcaster.
func (h *Hub) BroadcastDetectorStatus(online bool) {
	h.publish(&Message{Type: MsgDetectorStatus, DetectorConnected: &online})
}

// RequestResync implements port.Broadcaster.
func (h *Hub) RequestResync() {
	h.publish(&Message{Type: MsgRequestResync})
}

// HealthCheck reports liveness.
func (h *Hub) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
