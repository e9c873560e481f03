package server

import (
	"context"
	"log/slog"
	"maps"

	"github.com/alimasry/go-collab-cms/model"
	"github.com/alimasry/go-collab-cms/workspace"
)

type stepsRequest struct {
	from  *Client // nil for requests that did not come over a websocket
	cmd   Command
	reply chan<- Response
}

// Room is the set of clients editing one file. Joins, leaves and step
// batches are serialized through a single goroutine, so every member sees
// batches in the order they were applied.
type Room struct {
	fileID     string
	kind       model.ProjectKind
	collection string
	ws         *workspace.Workspace
	clients    map[*Client]bool

	incoming chan stepsRequest
	join     chan joinRequest
	leave    chan *Client
	stop     chan struct{}
}

func newRoom(fileID string, kind model.ProjectKind, collection string, ws *workspace.Workspace) *Room {
	return &Room{
		fileID:     fileID,
		kind:       kind,
		collection: collection,
		ws:         ws,
		clients:    make(map[*Client]bool),
		incoming:   make(chan stepsRequest, 64),
		join:       make(chan joinRequest, 16),
		leave:      make(chan *Client, 16),
		stop:       make(chan struct{}),
	}
}

func (r *Room) key() roomKey {
	return roomKey{kind: r.kind, collection: r.collection, fileID: r.fileID}
}

// Run is the room's main loop.
func (r *Room) Run() {
	for {
		select {
		case req := <-r.join:
			r.handleJoin(req)
		case c := <-r.leave:
			r.handleLeave(c)
		case req := <-r.incoming:
			r.handleSteps(req)
		case <-r.stop:
			return
		}
	}
}

func (r *Room) handleJoin(req joinRequest) {
	c := req.client
	select {
	case <-c.done:
		return
	default:
	}

	doc, err := r.ws.Document(context.Background(), r.kind, r.collection, r.fileID)
	if err != nil {
		slog.Warn("room: failed to load document", "file", r.fileID, "error", err)
		c.sendMsg(failure(req.cmd.ID, err))
		return
	}
	r.clients[c] = true
	c.setRoom(r)

	data := maps.Clone(doc)
	data["clients"] = r.clientInfos()
	c.sendMsg(success(req.cmd.ID, data))

	for other := range r.clients {
		if other != c {
			other.sendMsg(Event{
				Type:     MsgJoin,
				FileID:   r.fileID,
				ClientID: c.ID,
				Name:     c.Name,
				Color:    c.Color,
			})
		}
	}
}

func (r *Room) handleLeave(c *Client) {
	if _, ok := r.clients[c]; !ok {
		return
	}
	delete(r.clients, c)
	c.clearRoom(r)

	for other := range r.clients {
		other.sendMsg(Event{Type: MsgLeave, FileID: r.fileID, ClientID: c.ID})
	}
}

func (r *Room) handleSteps(req stepsRequest) {
	cmd := req.cmd
	v, err := r.ws.ApplySteps(context.Background(), r.kind, r.collection, r.fileID, cmd.Steps, cmd.Version)
	if err != nil {
		slog.Warn("room: steps rejected", "file", r.fileID, "error", err)
		req.reply <- failure(cmd.ID, err)
		return
	}
	req.reply <- success(cmd.ID, map[string]any{"version": v})
	if len(cmd.Steps) == 0 {
		return
	}

	ev := Event{Type: MsgSteps, FileID: r.fileID, Steps: cmd.Steps, Version: v}
	if req.from != nil {
		ev.ClientID = req.from.ID
	}
	for c := range r.clients {
		if c != req.from {
			c.sendMsg(ev)
		}
	}
}

func (r *Room) clientInfos() []ClientInfo {
	infos := make([]ClientInfo, 0, len(r.clients))
	for c := range r.clients {
		infos = append(infos, c.Info())
	}
	return infos
}
