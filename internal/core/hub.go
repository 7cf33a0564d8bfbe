package core

import (
	"context"
	"sync"

	"github.com/vovakirdan/wirechat-server/internal/store"
)

// Hub is the chat coordination surface a transport layer drives: register and
// unregister connections, and pump their Commands through to room broadcast.
// It also doubles as the routing table the call engine uses to find a user's
// live connection (see HubTransport).
type Hub interface {
	// Run processes registered clients' commands until ctx is cancelled.
	Run(ctx context.Context)
	// RegisterClient admits a newly connected client.
	RegisterClient(c *Client)
	// UnregisterClient removes a client from every room it was in.
	UnregisterClient(c *Client)
	// ClientByUserID finds the live connection for userID, if any.
	ClientByUserID(userID int64) (*Client, bool)
}

type clientCommand struct {
	client *Client
	cmd    *Command
}

// hub is the concrete, in-memory Hub implementation. Commands are processed
// one at a time on the Run goroutine. rooms, clients and room membership are
// guarded by mu, which both the Run goroutine and UnregisterClient take;
// byUser is guarded by usersMu. RegisterClient, UnregisterClient and
// ClientByUserID may be called concurrently.
type hub struct {
	store       store.Store
	callService CallService

	mu      sync.Mutex
	rooms   map[string]*Room
	clients map[*Client]struct{}

	usersMu sync.RWMutex
	byUser  map[int64]*Client

	incoming chan clientCommand
}

// NewHub constructs a Hub. st and callService may be nil for chat-only tests
// that never exercise call routing.
func NewHub(st store.Store, callService CallService) Hub {
	return &hub{
		store:       st,
		callService: callService,
		rooms:       make(map[string]*Room),
		clients:     make(map[*Client]struct{}),
		byUser:      make(map[int64]*Client),
		incoming:    make(chan clientCommand, 256),
	}
}

func (h *hub) RegisterClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	if c.UserID != 0 {
		h.usersMu.Lock()
		h.byUser[c.UserID] = c
		h.usersMu.Unlock()
	}

	go h.pump(c)
}

func (h *hub) UnregisterClient(c *Client) {
	h.mu.Lock()
	for name, room := range h.rooms {
		if room.RemoveClient(c) {
			delete(c.Rooms, name)
			if room.Empty() {
				delete(h.rooms, name)
			}
		}
	}
	delete(h.clients, c)
	h.mu.Unlock()

	if c.UserID != 0 {
		h.usersMu.Lock()
		if h.byUser[c.UserID] == c {
			delete(h.byUser, c.UserID)
		}
		h.usersMu.Unlock()
	}
}

func (h *hub) ClientByUserID(userID int64) (*Client, bool) {
	h.usersMu.RLock()
	defer h.usersMu.RUnlock()
	c, ok := h.byUser[userID]
	return c, ok
}

// pump forwards a client's commands into the hub's single processing loop.
// It exits once the client's Commands channel is closed.
func (h *hub) pump(c *Client) {
	for cmd := range c.Commands {
		h.incoming <- clientCommand{client: c, cmd: cmd}
	}
}

// Run is the hub's single-goroutine command processor: every room join,
// leave and message requested through a client's Commands is handled here,
// one at a time.
func (h *hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case cc := <-h.incoming:
			h.handle(cc.client, cc.cmd)
		}
	}
}

func (h *hub) handle(c *Client, cmd *Command) {
	if cmd == nil {
		return
	}
	switch cmd.Kind {
	case CommandJoinRoom:
		h.joinRoom(c, cmd.Room)
	case CommandLeaveRoom:
		h.leaveRoom(c, cmd.Room)
	case CommandSendRoomMessage:
		h.sendRoomMessage(c, cmd)
	}
}

func (h *hub) joinRoom(c *Client, name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, already := c.Rooms[name]; already {
		h.sendError(c, ErrCodeAlreadyJoined, "already joined room "+name)
		return
	}

	room, ok := h.rooms[name]
	if !ok {
		room = NewRoom(name)
		h.rooms[name] = room
	}
	room.AddClient(c)
	c.Rooms[name] = struct{}{}

	room.Broadcast(&Event{Kind: EventUserJoined, Room: name, User: c.Name})
}

func (h *hub) leaveRoom(c *Client, name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[name]
	if !ok || !room.RemoveClient(c) {
		h.sendError(c, ErrCodeRoomNotFound, "room not found: "+name)
		return
	}
	delete(c.Rooms, name)

	room.Broadcast(&Event{Kind: EventUserLeft, Room: name, User: c.Name})
	if room.Empty() {
		delete(h.rooms, name)
	}
}

func (h *hub) sendRoomMessage(c *Client, cmd *Command) {
	h.mu.Lock()
	room, inRoom := h.rooms[cmd.Room]
	_, joined := c.Rooms[cmd.Room]
	h.mu.Unlock()

	if !joined || !inRoom {
		h.sendError(c, ErrCodeNotInRoom, "not in room: "+cmd.Room)
		return
	}

	msg := cmd.Message
	msg.Room = cmd.Room
	msg.From = c.Name

	if h.store != nil {
		stored := &store.Message{UserID: c.UserID, Body: msg.Text, CreatedAt: msg.CreatedAt}
		if err := h.store.SaveMessage(context.Background(), stored); err == nil {
			msg.ID = stored.ID
		}
	}

	h.mu.Lock()
	room.Broadcast(&Event{Kind: EventRoomMessage, Room: cmd.Room, User: c.Name, Message: msg})
	h.mu.Unlock()
}

func (h *hub) sendError(c *Client, code, message string) {
	select {
	case c.Events <- &Event{Kind: EventError, Error: coreError(code, message)}:
	default:
	}
}
