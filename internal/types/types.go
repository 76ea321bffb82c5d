// Package types holds the WebSocket wire frames.
//
// Client -> Server
//
//	{"action": "ban"|"pick", "champion": string}
//	{"action": "submit_result", "result": {"winner": "team1"|"team2", "score": {"team1": n, "team2": n}}}
//	{"action": "update_team", "userId": string, "teamData": {"team": "BLUE"|"RED"|"SPECTATOR", "position": n}}
//	{"action": "update_ready", "userId": string, "isReady": bool}
//
// Server -> Client
//
//	room snapshot (bare object, pushed on every mutation)
//	{"type": "status_update", "data": LobbyStatus}
//	{"type": "error", "code": string, "detail": string}
package types

import (
	"encoding/json"
	"errors"
)

var ErrMalformedMessage = errors.New("malformed message")

const (
	ActionBan          = "ban"
	ActionPick         = "pick"
	ActionSubmitResult = "submit_result"
	ActionUpdateTeam   = "update_team"
	ActionUpdateReady  = "update_ready"
)

type ClientMessage struct {
	Action   string          `json:"action"`
	Champion *string         `json:"champion,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	UserID   *string         `json:"userId,omitempty"`
	TeamData *TeamData       `json:"teamData,omitempty"`
	IsReady  *bool           `json:"isReady,omitempty"`
}

type TeamData struct {
	Team     string `json:"team"`
	Position *int   `json:"position,omitempty"`
}

const (
	TypeStatusUpdate = "status_update"
	TypeError        = "error"
)

type ServerMessage struct {
	Type   string `json:"type"` // "status_update" | "error"
	Data   any    `json:"data,omitempty"`
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func StatusFrame(status any) ([]byte, error) {
	return json.Marshal(ServerMessage{Type: TypeStatusUpdate, Data: status})
}

func ErrorFrame(code, detail string) []byte {
	payload, err := json.Marshal(ServerMessage{Type: TypeError, Code: code, Detail: detail})
	if err != nil {
		return []byte(`{"type":"error","code":"internal","detail":"internal error"}`)
	}
	return payload
}
