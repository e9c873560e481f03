package server

import (
	"encoding/json"

	"github.com/alimasry/go-collab-cms/richtext"
)

// Frame types sent by the server.
const (
	MsgResponse = "response"
	MsgJoin     = "join"
	MsgLeave    = "leave"
	MsgSteps    = "steps"
)

// Response answers one Command. Exactly one of Data and Error is set.
type Response struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

func success(id string, data any) Response {
	return Response{Type: MsgResponse, ID: id, OK: true, Data: data}
}

func failure(id string, err error) Response {
	return Response{Type: MsgResponse, ID: id, Error: err.Error()}
}

// Encode serializes a Response to JSON bytes.
func (r Response) Encode() []byte {
	b, err := json.Marshal(r)
	if err != nil {
		b, _ = json.Marshal(failure(r.ID, err))
	}
	return b
}

// Event is pushed to the members of a room.
type Event struct {
	Type     string          `json:"type"`
	FileID   string          `json:"fileId"`
	ClientID string          `json:"clientId,omitempty"`
	Name     string          `json:"name,omitempty"`
	Color    string          `json:"color,omitempty"`
	Steps    []richtext.Step `json:"steps,omitempty"`
	Version  int64           `json:"version,omitempty"`
}

// Encode serializes an Event to JSON bytes.
func (e Event) Encode() []byte {
	b, _ := json.Marshal(e)
	return b
}

// ClientInfo describes a connected user.
type ClientInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}
