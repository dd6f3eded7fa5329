// Package driver defines the chat-platform client interface the
// connector drives, and the message types crossing that boundary.
package driver

import (
	"context"
	"time"
)

// User identifies a platform account.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Message is one platform message, inbound or outbound.
type Message struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"rid"`
	Content   string    `json:"msg"`
	Sender    User      `json:"u"`
	Timestamp time.Time `json:"ts"`
}

// MessageHandler is the persistent inbound reactor. A transport-level
// failure is delivered as a non-nil err with a nil message.
type MessageHandler func(err error, msg *Message)

// Driver is the chat-platform session client. Every operation may fail;
// blocking operations take a context.
type Driver interface {
	// Connect opens the transport connection to the platform host.
	Connect(ctx context.Context, host string, useSSL bool) error

	// Login authenticates and returns the platform-assigned user id.
	Login(ctx context.Context, username, password string) (string, error)

	// JoinRoom joins a single channel by name.
	JoinRoom(ctx context.Context, name string) error

	// JoinRooms joins several channels in one batched operation.
	JoinRooms(ctx context.Context, names []string) error

	// LeaveRoom leaves a channel by name.
	LeaveRoom(ctx context.Context, name string) error

	// SubscribeToMessages subscribes the session to its message stream.
	SubscribeToMessages(ctx context.Context) error

	// ReactToMessages registers the persistent inbound handler.
	ReactToMessages(handler MessageHandler) error

	// GetRoomName resolves a room id to its channel name. Returns ""
	// without error when the room is not a named channel (a direct
	// conversation).
	GetRoomName(ctx context.Context, roomID string) (string, error)

	// GetRoomID resolves a channel name to its room id.
	GetRoomID(ctx context.Context, name string) (string, error)

	// GetDirectMessageRoomID resolves a user handle to the direct
	// conversation room id, creating the conversation if needed.
	GetDirectMessageRoomID(ctx context.Context, handle string) (string, error)

	// PrepareMessage builds a platform message from content and a room id.
	PrepareMessage(content, roomID string) *Message

	// SendMessage dispatches a prepared message.
	SendMessage(ctx context.Context, msg *Message) error
}
