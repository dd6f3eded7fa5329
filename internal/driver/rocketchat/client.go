// Package rocketchat implements driver.Driver against the Rocket.Chat
// realtime (DDP) API over a websocket.
package rocketchat

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/avitale/rocketbridge/internal/driver"
)

// Config configures the client. The logger is injected here so the
// driver carries no process-global logging state.
type Config struct {
	Logger           zerolog.Logger
	HandshakeTimeout time.Duration
	CallTimeout      time.Duration
}

const (
	defaultHandshakeTimeout = 10 * time.Second
	defaultCallTimeout      = 15 * time.Second

	myMessagesStream = "__my_messages__"
)

var errClosed = errors.New("rocketchat: connection closed")

type callResult struct {
	result json.RawMessage
	err    error
}

// Client is a Rocket.Chat realtime API session. All driver methods are
// safe for concurrent use once Connect has returned.
type Client struct {
	log         zerolog.Logger
	dialer      *websocket.Dialer
	callTimeout time.Duration

	writeMu sync.Mutex // serializes websocket writes
	conn    *websocket.Conn

	mu        sync.Mutex
	pending   map[string]chan callResult
	subs      map[string]chan error
	handler   driver.MessageHandler
	connected chan struct{}
	closed    bool
}

// New creates a client. Zero timeouts fall back to defaults.
func New(cfg Config) *Client {
	handshake := cfg.HandshakeTimeout
	if handshake == 0 {
		handshake = defaultHandshakeTimeout
	}
	call := cfg.CallTimeout
	if call == 0 {
		call = defaultCallTimeout
	}
	return &Client{
		log:         cfg.Logger,
		dialer:      &websocket.Dialer{HandshakeTimeout: handshake},
		callTimeout: call,
		pending:     make(map[string]chan callResult),
		subs:        make(map[string]chan error),
		connected:   make(chan struct{}),
	}
}

// Connect dials ws(s)://host/websocket and performs the DDP handshake.
func (c *Client) Connect(ctx context.Context, host string, useSSL bool) error {
	scheme := "ws"
	if useSSL {
		scheme = "wss"
	}
	u := url.URL{Scheme: scheme, Host: host, Path: "/websocket"}

	conn, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u.String(), err)
	}

	c.mu.Lock()
	if c.conn != nil {
		c.mu.Unlock()
		conn.Close()
		return errors.New("rocketchat: already connected")
	}
	c.conn = conn
	c.mu.Unlock()

	go c.readLoop(conn)

	if err := c.writeFrame(frame{Msg: "connect", Version: "1", Support: []string{"1"}}); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.callTimeout):
		return errors.New("rocketchat: handshake timed out")
	case <-c.connected:
		c.log.Debug().Str("host", host).Msg("ddp session established")
		return nil
	}
}

// Login authenticates with a sha-256 password digest and returns the
// platform user id.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	digest := sha256.Sum256([]byte(password))

	user := map[string]any{"username": username}
	if strings.Contains(username, "@") {
		user = map[string]any{"email": username}
	}
	params := map[string]any{
		"user": user,
		"password": map[string]any{
			"digest":    hex.EncodeToString(digest[:]),
			"algorithm": "sha-256",
		},
	}

	raw, err := c.call(ctx, "login", params)
	if err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	var res struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", fmt.Errorf("login: decode result: %w", err)
	}
	return res.ID, nil
}

// JoinRoom joins one channel by name.
func (c *Client) JoinRoom(ctx context.Context, name string) error {
	rid, err := c.GetRoomID(ctx, name)
	if err != nil {
		return err
	}
	_, err = c.call(ctx, "joinRoom", rid)
	return err
}

// JoinRooms joins several channels as one batched operation: it fails
// on the first channel that cannot be joined.
func (c *Client) JoinRooms(ctx context.Context, names []string) error {
	for _, name := range names {
		if err := c.JoinRoom(ctx, name); err != nil {
			return fmt.Errorf("join %q: %w", name, err)
		}
	}
	return nil
}

// LeaveRoom leaves one channel by name.
func (c *Client) LeaveRoom(ctx context.Context, name string) error {
	rid, err := c.GetRoomID(ctx, name)
	if err != nil {
		return err
	}
	_, err = c.call(ctx, "leaveRoom", rid)
	return err
}

// SubscribeToMessages subscribes to the session's message stream.
func (c *Client) SubscribeToMessages(ctx context.Context) error {
	id := uuid.NewString()
	ch := make(chan error, 1)

	c.mu.Lock()
	c.subs[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}()

	err := c.writeFrame(frame{
		Msg:    "sub",
		ID:     id,
		Name:   "stream-room-messages",
		Params: []any{myMessagesStream, false},
	})
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.callTimeout):
		return errors.New("rocketchat: subscribe timed out")
	case err := <-ch:
		return err
	}
}

// ReactToMessages registers the persistent inbound handler.
func (c *Client) ReactToMessages(handler driver.MessageHandler) error {
	if handler == nil {
		return errors.New("rocketchat: nil message handler")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errClosed
	}
	c.handler = handler
	return nil
}

// GetRoomName resolves a room id to its channel name. Direct
// conversations have no name and resolve to "".
func (c *Client) GetRoomName(ctx context.Context, roomID string) (string, error) {
	raw, err := c.call(ctx, "getRoomNameById", roomID)
	if err != nil {
		var dErr *ddpError
		if errors.As(err, &dErr) && fmt.Sprint(dErr.Err) == "error-invalid-room" {
			return "", nil
		}
		return "", err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return "", fmt.Errorf("getRoomNameById: decode result: %w", err)
	}
	return name, nil
}

// GetRoomID resolves a channel name to its room id.
func (c *Client) GetRoomID(ctx context.Context, name string) (string, error) {
	raw, err := c.call(ctx, "getRoomIdByNameOrId", name)
	if err != nil {
		return "", err
	}
	var rid string
	if err := json.Unmarshal(raw, &rid); err != nil {
		return "", fmt.Errorf("getRoomIdByNameOrId: decode result: %w", err)
	}
	return rid, nil
}

// GetDirectMessageRoomID resolves a user handle to the direct
// conversation room id, creating the conversation if needed.
func (c *Client) GetDirectMessageRoomID(ctx context.Context, handle string) (string, error) {
	raw, err := c.call(ctx, "createDirectMessage", handle)
	if err != nil {
		return "", err
	}
	var res struct {
		RID string `json:"rid"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return "", fmt.Errorf("createDirectMessage: decode result: %w", err)
	}
	return res.RID, nil
}

// PrepareMessage builds a platform message for a room.
func (c *Client) PrepareMessage(content, roomID string) *driver.Message {
	return &driver.Message{
		ID:      uuid.NewString(),
		RoomID:  roomID,
		Content: content,
	}
}

// SendMessage dispatches a prepared message.
func (c *Client) SendMessage(ctx context.Context, msg *driver.Message) error {
	_, err := c.call(ctx, "sendMessage", map[string]any{
		"_id": msg.ID,
		"rid": msg.RoomID,
		"msg": msg.Content,
	})
	return err
}

// Close tears the session down. Pending calls fail with errClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// call performs one DDP method call and waits for its result.
func (c *Client) call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	id := uuid.NewString()
	ch := make(chan callResult, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errClosed
	}
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.writeFrame(frame{Msg: "method", Method: method, ID: id, Params: params}); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.callTimeout):
		return nil, fmt.Errorf("rocketchat: %s timed out", method)
	case res := <-ch:
		return res.result, res.err
	}
}

func (c *Client) writeFrame(f frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil {
		return errClosed
	}
	return c.conn.WriteJSON(f)
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			c.fail(err)
			return
		}

		switch f.Msg {
		case "ping":
			if err := c.writeFrame(frame{Msg: "pong", ID: f.ID}); err != nil {
				c.log.Debug().Err(err).Msg("pong write failed")
			}
		case "connected":
			c.mu.Lock()
			select {
			case <-c.connected:
			default:
				close(c.connected)
			}
			c.mu.Unlock()
		case "result":
			c.deliverResult(f)
		case "ready":
			c.deliverReady(f.Subs, nil)
		case "nosub":
			err := error(f.Error)
			if f.Error == nil {
				err = errors.New("rocketchat: subscription refused")
			}
			c.deliverReady([]string{f.ID}, err)
		case "changed":
			c.handleChanged(f)
		}
	}
}

func (c *Client) deliverResult(f frame) {
	c.mu.Lock()
	ch := c.pending[f.ID]
	c.mu.Unlock()
	if ch == nil {
		return
	}
	res := callResult{result: f.Result}
	if f.Error != nil {
		res.err = f.Error
	}
	ch <- res
}

func (c *Client) deliverReady(ids []string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		if ch := c.subs[id]; ch != nil {
			ch <- err
		}
	}
}

func (c *Client) handleChanged(f frame) {
	if f.Collection != "stream-room-messages" {
		return
	}

	var fields streamFields
	if err := json.Unmarshal(f.Fields, &fields); err != nil {
		c.log.Warn().Err(err).Msg("bad stream payload")
		return
	}
	if fields.EventName != myMessagesStream || len(fields.Args) == 0 {
		return
	}

	var msg wireMessage
	if err := json.Unmarshal(fields.Args[0], &msg); err != nil {
		c.log.Warn().Err(err).Msg("bad stream message")
		return
	}

	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()
	if handler != nil {
		handler(nil, msg.toDriver())
	}
}

// fail propagates a transport failure to the reactor and every pending
// call, then marks the client closed.
func (c *Client) fail(err error) {
	c.mu.Lock()
	wasClosed := c.closed
	c.closed = true
	handler := c.handler
	pending := c.pending
	c.pending = make(map[string]chan callResult)
	c.mu.Unlock()

	for _, ch := range pending {
		ch <- callResult{err: errClosed}
	}
	if wasClosed {
		return
	}
	if handler != nil {
		handler(err, nil)
	}
	c.log.Debug().Err(err).Msg("read loop terminated")
}
