package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alimasry/go-collab-cms/model"
	"github.com/alimasry/go-collab-cms/workspace"
)

type joinRequest struct {
	client *Client
	cmd    Command
}

// roomKey names a file by where it lives as well as by id.
type roomKey struct {
	kind       model.ProjectKind
	collection string
	fileID     string
}

func keyOf(cmd Command) roomKey {
	return roomKey{kind: cmd.kind(), collection: cmd.Collection, fileID: cmd.FileID}
}

// Hub runs commands against the workspace and routes clients to rooms.
type Hub struct {
	ws    *workspace.Workspace
	rooms map[roomKey]*Room
	mu    sync.RWMutex

	joinRoom chan joinRequest
}

func NewHub(ws *workspace.Workspace) *Hub {
	return &Hub{
		ws:       ws,
		rooms:    make(map[roomKey]*Room),
		joinRoom: make(chan joinRequest, 64),
	}
}

// Run is the hub's main loop.
func (h *Hub) Run() {
	for req := range h.joinRoom {
		h.handleJoin(req)
	}
}

func (h *Hub) handleJoin(req joinRequest) {
	cmd := req.cmd
	h.mu.Lock()
	key := keyOf(cmd)
	r, ok := h.rooms[key]
	if !ok {
		// Only open rooms for files that exist.
		if _, err := h.ws.File(context.Background(), cmd.kind(), cmd.Collection, cmd.FileID); err != nil {
			h.mu.Unlock()
			slog.Warn("hub: failed to open room", "file", cmd.FileID, "error", err)
			req.client.sendMsg(failure(cmd.ID, err))
			return
		}
		r = newRoom(cmd.FileID, cmd.kind(), cmd.Collection, h.ws)
		h.rooms[key] = r
		go r.Run()
		slog.Debug("hub: room opened", "file", cmd.FileID)
	}
	h.mu.Unlock()

	r.join <- req
}

// Room returns the room of a file, if one is open.
func (h *Hub) Room(kind model.ProjectKind, collection, fileID string) *Room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.rooms[roomKey{kind: kind, collection: collection, fileID: fileID}]
}

// Execute validates and runs cmd on behalf of from, which is nil for
// requests that did not arrive over a websocket.
func (h *Hub) Execute(ctx context.Context, from *Client, cmd Command) Response {
	if err := cmd.Validate(); err != nil {
		return failure(cmd.ID, fmt.Errorf("invalid %s command: %w", cmd.Type, err))
	}
	if cmd.Type == CmdApplySteps {
		if r := h.Room(cmd.kind(), cmd.Collection, cmd.FileID); r != nil {
			return h.applyInRoom(ctx, r, from, cmd)
		}
	}
	data, err := execute(ctx, h.ws, cmd)
	if err != nil {
		slog.Debug("hub: command failed", "id", cmd.ID, "type", cmd.Type, "error", err)
		return failure(cmd.ID, err)
	}
	return success(cmd.ID, data)
}

func (h *Hub) applyInRoom(ctx context.Context, r *Room, from *Client, cmd Command) Response {
	reply := make(chan Response, 1)
	select {
	case r.incoming <- stepsRequest{from: from, cmd: cmd, reply: reply}:
	case <-ctx.Done():
		return failure(cmd.ID, ctx.Err())
	}
	select {
	case resp := <-reply:
		return resp
	case <-ctx.Done():
		return failure(cmd.ID, ctx.Err())
	}
}

// Close stops every room.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for key, r := range h.rooms {
		close(r.stop)
		delete(h.rooms, key)
	}
}
