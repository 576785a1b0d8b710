package ws

import (
	"encoding/json"
	"sync"

	"chatrelay/internal/services/chat"

	"go.uber.org/zap"
)

// Hub maps connection IDs to live sockets and delivers engine output.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*clientConn
}

var _ chat.Emitter = (*Hub)(nil)

func NewHub() *Hub { return &Hub{clients: make(map[string]*clientConn)} }

func (h *Hub) Register(c *clientConn) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
}

func (h *Hub) Unregister(id string) {
	h.mu.Lock()
	delete(h.clients, id)
	h.mu.Unlock()
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Emit is called by the engine under its lock. The frame is encoded once and
// queued for every recipient; a recipient whose queue is full is closed and
// will disconnect through its reader.
func (h *Hub) Emit(out chat.Outbound) {
	frame, err := encodeFrame(out.Payload.EventName(), out.Payload)
	if err != nil {
		zap.L().Error("ws.encode", zap.String("event", out.Payload.EventName()), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, id := range out.Recipients {
		c, ok := h.clients[id]
		if !ok {
			continue
		}
		if !c.enqueue(frame) {
			zap.L().Warn("ws.slow_consumer", zap.String("conn", id))
			c.close()
		}
	}
}

// SendTo queues a frame for a single connection outside the engine.
func (h *Hub) SendTo(id, event string, body any) bool {
	frame, err := encodeFrame(event, body)
	if err != nil {
		zap.L().Error("ws.encode", zap.String("event", event), zap.Error(err))
		return false
	}
	h.mu.RLock()
	c, ok := h.clients[id]
	h.mu.RUnlock()
	return ok && c.enqueue(frame)
}

// CloseAll closes every socket; each reader then fires its Disconnect.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.close()
	}
}

func encodeFrame(event string, body any) ([]byte, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Body: raw})
}
