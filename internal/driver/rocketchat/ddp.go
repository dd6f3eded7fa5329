package rocketchat

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/avitale/rocketbridge/internal/driver"
)

// frame is the superset of DDP messages the client reads and writes.
type frame struct {
	Msg        string          `json:"msg,omitempty"`
	ID         string          `json:"id,omitempty"`
	Method     string          `json:"method,omitempty"`
	Name       string          `json:"name,omitempty"`
	Params     []any           `json:"params,omitempty"`
	Version    string          `json:"version,omitempty"`
	Support    []string        `json:"support,omitempty"`
	Session    string          `json:"session,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      *ddpError       `json:"error,omitempty"`
	Collection string          `json:"collection,omitempty"`
	Fields     json.RawMessage `json:"fields,omitempty"`
	Subs       []string        `json:"subs,omitempty"`
}

// ddpError is the error shape DDP attaches to failed calls.
type ddpError struct {
	Err     any    `json:"error"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func (e *ddpError) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("ddp error: %v", e.Err)
}

// streamFields is the payload of a stream-room-messages changed frame.
type streamFields struct {
	EventName string            `json:"eventName"`
	Args      []json.RawMessage `json:"args"`
}

// wireMessage is a Rocket.Chat message document on the wire.
type wireMessage struct {
	ID     string     `json:"_id"`
	RoomID string     `json:"rid"`
	Msg    string     `json:"msg"`
	TS     *ejsonDate `json:"ts,omitempty"`
	User   wireUser   `json:"u"`
}

type wireUser struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
}

// ejsonDate is EJSON's {"$date": millis} timestamp encoding.
type ejsonDate struct {
	Date int64 `json:"$date"`
}

func (m wireMessage) toDriver() *driver.Message {
	out := &driver.Message{
		ID:      m.ID,
		RoomID:  m.RoomID,
		Content: m.Msg,
		Sender: driver.User{
			ID:       m.User.ID,
			Username: m.User.Username,
		},
	}
	if m.TS != nil {
		out.Timestamp = time.UnixMilli(m.TS.Date).UTC()
	}
	return out
}
