package ws

import (
	"context"
	"errors"
	"sync"

	"github.com/Temutjin2k/room-compass/pkg/logger"
	wrap "github.com/Temutjin2k/room-compass/pkg/logger/wrapper"
	"github.com/google/uuid"
)

var (
	ErrEmptyConn      = errors.New("connection is empty")
	ErrConnIsNotFound = errors.New("connection not found")
)

// ConnectionHub keeps the live sockets, one per user.
type ConnectionHub struct {
	clients map[uuid.UUID]*Conn
	l       logger.Logger
	mu      sync.Mutex
	wg      sync.WaitGroup
}

func NewConnHub(l logger.Logger) *ConnectionHub {
	return &ConnectionHub{
		clients: make(map[uuid.UUID]*Conn),
		l:       l,
	}
}

// Add registers a connection. An existing connection of the same user is closed.
func (h *ConnectionHub) Add(newConn *Conn) error {
	if newConn == nil {
		return ErrEmptyConn
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := wrap.WithUserID(wrap.WithAction(context.Background(), "add_ws_connection"), newConn.entityID.String())

	if existing, ok := h.clients[newConn.entityID]; ok {
		h.l.Warn(ctx, "replacing existing connection")
		if err := existing.Close(); err != nil {
			h.l.Warn(ctx, "failed to close existing conn", "err", err.Error())
		}
		h.wg.Done()
	}

	h.clients[newConn.entityID] = newConn
	h.wg.Add(1)

	return nil
}

// Remove closes conn and forgets it, unless it was already replaced by a newer one.
func (h *ConnectionHub) Remove(conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := conn.Close(); err != nil {
		h.l.Debug(context.Background(), "close ws connection", "err", err.Error())
	}
	if current, ok := h.clients[conn.entityID]; ok && current == conn {
		delete(h.clients, conn.entityID)
		h.wg.Done()
	}
}

// Delete closes and forgets the connection of entityID.
func (h *ConnectionHub) Delete(entityID uuid.UUID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := wrap.WithAction(context.Background(), "ws_connection_delete")

	conn, ok := h.clients[entityID]
	if !ok {
		h.l.Warn(ctx, "delete called for unknown entity", "entity_ID", entityID)
		return ErrConnIsNotFound
	}

	if err := conn.Close(); err != nil {
		h.l.Warn(ctx, "failed to close conn", "entity_ID", conn.entityID, "err", err.Error())
	}

	delete(h.clients, entityID)
	h.wg.Done()

	return nil
}

// SendTo sends msg to the connection of id, ErrConnIsNotFound if there is none.
func (h *ConnectionHub) SendTo(ctx context.Context, id uuid.UUID, msg any) error {
	h.mu.Lock()
	conn, ok := h.clients[id]
	h.mu.Unlock()

	if !ok {
		return ErrConnIsNotFound
	}
	return conn.Send(ctx, msg)
}

func (h *ConnectionHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close closes every connection and waits until all of them are released.
func (h *ConnectionHub) Close() {
	ctx := wrap.WithAction(context.Background(), "hub_close")

	h.mu.Lock()
	ids := make([]uuid.UUID, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	for _, id := range ids {
		_ = h.Delete(id)
	}

	h.wg.Wait()

	h.l.Info(ctx, "all websocket connections closed gracefully")
}

// GetConn returns the connection of id.
func (h *ConnectionHub) GetConn(id uuid.UUID) (*Conn, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.clients[id]
	if !ok {
		return nil, ErrConnIsNotFound
	}
	return conn, nil
}
