package websocket

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Client to server events.
const (
	EventJoinRoom  = "onJoinRoom"
	EventSend      = "onSend"
	EventLeaveRoom = "onLeaveRoom"
)

// Server to client events.
const (
	EventReceive          = "onReceive"
	EventError            = "onError"
	EventRoomClosed       = "onRoomClosed"
	EventRoomAccepted     = "onRoomAccepted"
	EventServiceCompleted = "onServiceCompleted"
)

// Envelope is the frame shape in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RoomID accepts a room id sent either as a JSON number or a numeric string.
type RoomID uint

func (r *RoomID) UnmarshalJSON(b []byte) error {
	raw := bytes.TrimSpace(b)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		raw = []byte(strings.TrimSpace(s))
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil || id == 0 {
		return fmt.Errorf("invalid room id %q", string(b))
	}
	*r = RoomID(id)
	return nil
}

// SendPayload is the onSend body. Any userId field is ignored; the author is
// the authenticated connection owner.
type SendPayload struct {
	RoomID RoomID `json:"roomId"`
	Chat   string `json:"chat"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type RoomClosedPayload struct {
	RoomID uint `json:"roomId"`
}

type RoomAcceptedPayload struct {
	RoomID uint `json:"roomId"`
}

type ServiceCompletedPayload struct {
	ServiceID uint `json:"serviceId"`
	RoomID    uint `json:"roomId"`
}

func encodeFrame(event string, data any) ([]byte, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: body})
}
