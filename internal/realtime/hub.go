package realtime

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrHubClosed is returned once the hub has stopped serving
var ErrHubClosed = errors.New("realtime: hub closed")

// membership is a register, unregister, join or leave request. done is
// closed by Run once the change is visible to readers.
type membership struct {
	client *Client
	roomID uint
	done   chan struct{}
}

type roomBroadcast struct {
	roomID  uint
	payload []byte
	sent    chan int
}

// Hub relays chat frames to the clients subscribed to each room.
// All membership changes and broadcasts are serialized through Run.
// Register, Unregister, Join and Leave return only after Run has applied
// the change, so Subscribers and IsMember reflect it immediately.
type Hub struct {
	rooms   map[uint]map[*Client]struct{}
	clients map[*Client]map[uint]struct{}

	register   chan membership
	unregister chan membership
	join       chan membership
	leave      chan membership
	broadcast  chan roomBroadcast

	mutex  sync.RWMutex
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		rooms:      make(map[uint]map[*Client]struct{}),
		clients:    make(map[*Client]map[uint]struct{}),
		register:   make(chan membership),
		unregister: make(chan membership),
		join:       make(chan membership),
		leave:      make(chan membership),
		broadcast:  make(chan roomBroadcast),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		logger:     logger.With("component", "realtime_hub"),
	}
}

// Run processes hub events until Shutdown is called
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return
		case m := <-h.register:
			h.handleRegister(m.client)
			close(m.done)
		case m := <-h.unregister:
			h.handleUnregister(m.client)
			close(m.done)
		case m := <-h.join:
			h.handleJoin(m)
			close(m.done)
		case m := <-h.leave:
			h.handleLeave(m)
			close(m.done)
		case b := <-h.broadcast:
			b.sent <- h.handleBroadcast(b)
		}
	}
}

// Register adds a client to the hub without any room membership
func (h *Hub) Register(c *Client) error {
	return h.apply(h.register, c, 0)
}

// Unregister removes a client from every room and closes its queue
func (h *Hub) Unregister(c *Client) error {
	return h.apply(h.unregister, c, 0)
}

// Join subscribes a registered client to a room. Joining twice is a no-op.
func (h *Hub) Join(c *Client, roomID uint) error {
	return h.apply(h.join, c, roomID)
}

func (h *Hub) Leave(c *Client, roomID uint) error {
	return h.apply(h.leave, c, roomID)
}

func (h *Hub) apply(ch chan membership, c *Client, roomID uint) error {
	m := membership{client: c, roomID: roomID, done: make(chan struct{})}
	if err := submit(h.ctx, ch, m); err != nil {
		return err
	}
	select {
	case <-m.done:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

// Broadcast queues payload once for every subscriber of roomID and
// returns how many clients received it.
func (h *Hub) Broadcast(roomID uint, payload []byte) (int, error) {
	b := roomBroadcast{roomID: roomID, payload: payload, sent: make(chan int, 1)}
	if err := submit(h.ctx, h.broadcast, b); err != nil {
		return 0, err
	}
	select {
	case n := <-b.sent:
		return n, nil
	case <-h.done:
		return 0, ErrHubClosed
	}
}

// SendTo queues payload for a single client. It reports false when the
// client is gone or its buffer is full.
func (h *Hub) SendTo(c *Client, payload []byte) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if _, ok := h.clients[c]; !ok {
		return false
	}
	return h.safeSend(c, payload)
}

// Subscribers returns the number of clients currently in a room
func (h *Hub) Subscribers(roomID uint) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms[roomID])
}

// IsMember reports whether c is subscribed to roomID
func (h *Hub) IsMember(c *Client, roomID uint) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	_, ok := h.clients[c][roomID]
	return ok
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Attach registers a connected client and starts its pumps
func (h *Hub) Attach(c *Client) error {
	if err := h.Register(c); err != nil {
		return err
	}

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump()
	}()
	return nil
}

// Context is cancelled when the hub shuts down
func (h *Hub) Context() context.Context {
	return h.ctx
}

// Shutdown stops the hub, closes every connection and waits for the pumps
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.cancel()

	finished := make(chan struct{})
	go func() {
		<-h.done
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		h.logger.Info("Realtime hub stopped")
		return nil
	case <-time.After(timeout):
		return errors.New("realtime: timed out waiting for clients to close")
	}
}

func submit[T any](ctx context.Context, ch chan T, v T) error {
	select {
	case ch <- v:
		return nil
	case <-ctx.Done():
		return ErrHubClosed
	}
}

func (h *Hub) handleRegister(c *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[c]; ok {
		return
	}
	h.clients[c] = make(map[uint]struct{})
	h.logger.Debug("Client connected", "client", c.String(), "clients", len(h.clients))
}

func (h *Hub) handleUnregister(c *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.removeLocked(c)
}

func (h *Hub) handleJoin(m membership) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	subscribed, ok := h.clients[m.client]
	if !ok {
		return
	}
	subscribed[m.roomID] = struct{}{}

	members, ok := h.rooms[m.roomID]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[m.roomID] = members
	}
	members[m.client] = struct{}{}
}

func (h *Hub) handleLeave(m membership) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if subscribed, ok := h.clients[m.client]; ok {
		delete(subscribed, m.roomID)
	}
	h.dropMemberLocked(m.client, m.roomID)
}

func (h *Hub) handleBroadcast(b roomBroadcast) int {
	h.mutex.RLock()
	members := make([]*Client, 0, len(h.rooms[b.roomID]))
	for client := range h.rooms[b.roomID] {
		members = append(members, client)
	}

	var failed []*Client
	delivered := 0
	for _, client := range members {
		if h.safeSend(client, b.payload) {
			delivered++
		} else {
			failed = append(failed, client)
		}
	}
	h.mutex.RUnlock()

	if len(failed) > 0 {
		h.mutex.Lock()
		for _, client := range failed {
			h.logger.Warn("Dropping slow client", "client", client.String(), "room_id", b.roomID)
			h.removeLocked(client)
		}
		h.mutex.Unlock()
	}

	return delivered
}

// removeLocked must be called with the write lock held
func (h *Hub) removeLocked(c *Client) {
	subscribed, ok := h.clients[c]
	if !ok {
		return
	}
	for roomID := range subscribed {
		h.dropMemberLocked(c, roomID)
	}
	delete(h.clients, c)

	c.closed = true
	close(c.send)
	h.logger.Debug("Client disconnected", "client", c.String(), "clients", len(h.clients))
}

func (h *Hub) dropMemberLocked(c *Client, roomID uint) {
	members, ok := h.rooms[roomID]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, roomID)
	}
}

// safeSend requires at least the read lock; closed is only flipped under the write lock
func (h *Hub) safeSend(c *Client, payload []byte) bool {
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (h *Hub) shutdownClients() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for client := range h.clients {
		if client.conn != nil {
			_ = client.conn.Close()
		}
		h.removeLocked(client)
	}
}
