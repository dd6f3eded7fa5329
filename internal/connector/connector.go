// Package connector owns one Rocket.Chat session: the connect sequence,
// channel membership, outbound routing, and inbound classification.
package connector

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/avitale/rocketbridge/internal/bus"
	"github.com/avitale/rocketbridge/internal/config"
	"github.com/avitale/rocketbridge/internal/driver"
)

// TopicPrefix heads every emitted and consumed topic:
// rocketchat:<sessionName>:<event>.
const TopicPrefix = "rocketchat"

// Send-time validation failures. These surface only as error events on
// the bus, never as returned errors.
var (
	ErrNotConnected  = errors.New("not connected")
	ErrMissingFields = errors.New("messages must include to and content")
)

// Connector bridges the event bus to one chat-platform session.
type Connector struct {
	bus    *bus.Bus
	driver driver.Driver
	log    zerolog.Logger

	state    *ConnectionState
	lifetime context.Context
	cancel   context.CancelFunc
}

// New creates a connector. One connector owns at most one session.
func New(b *bus.Bus, d driver.Driver, logger zerolog.Logger) *Connector {
	return &Connector{bus: b, driver: d, log: logger}
}

// Topic returns the bus topic for an event of this session.
func Topic(sessionName, event string) string {
	return TopicPrefix + ":" + sessionName + ":" + event
}

// State returns the current session state, nil before Connect.
func (c *Connector) State() *ConnectionState {
	return c.state
}

// Connect establishes the session: it emits a connecting event,
// subscribes the send topic, then drives the driver through connect,
// login, channel joins, message subscription, and reactor registration,
// in that order. It is idempotent: an existing state is returned
// untouched. A failure at any stage is emitted as an error event and
// leaves the state disconnected; there is no automatic retry.
func (c *Connector) Connect(ctx context.Context, opts config.Options) *ConnectionState {
	if c.state != nil {
		return c.state
	}

	channels := NewChannelSet(DefaultChannel)
	if len(opts.Channels) > 0 {
		channels.Replace(opts.Channels)
	}

	state := &ConnectionState{
		ID:       uuid.NewString(),
		Name:     opts.DisplayName(),
		Host:     opts.Host,
		Secure:   opts.Secure,
		Username: opts.Username,
		AutoJoin: opts.AutoJoinEnabled(),
		Filter:   opts.FilterEnabled(),
		channels: channels,
	}
	c.state = state
	c.lifetime, c.cancel = context.WithCancel(context.Background())

	c.emit(state, "connecting", state.Snapshot())

	lifetime := c.lifetime
	c.bus.On(Topic(state.Name, "send"), func(evt bus.Event) {
		c.Send(lifetime, outboundFromEvent(evt.Data))
	})

	if err := c.driver.Connect(ctx, state.Host, state.Secure); err != nil {
		c.connectFailed(state, err)
		return state
	}
	userID, err := c.driver.Login(ctx, opts.Username, opts.Password)
	if err != nil {
		c.connectFailed(state, err)
		return state
	}
	state.setUserID(userID)

	if err := c.driver.JoinRooms(ctx, state.Channels()); err != nil {
		c.connectFailed(state, err)
		return state
	}
	if err := c.driver.SubscribeToMessages(ctx); err != nil {
		c.connectFailed(state, err)
		return state
	}
	if err := c.driver.ReactToMessages(c.reactor(state)); err != nil {
		c.connectFailed(state, err)
		return state
	}

	state.setConnected(true)
	c.emit(state, "connected", state.Snapshot())
	c.log.Info().Str("session", state.Name).Str("userId", userID).Msg("connected")
	return state
}

// Join joins one or more channels. A single channel uses the per-room
// join and emits joined with {channel}; several use the batched join and
// emit one joined with {channels} once the whole batch succeeds. Join
// failures return to the caller; they are not emitted on the bus.
func (c *Connector) Join(ctx context.Context, channels ...string) error {
	state := c.state
	if state == nil {
		return ErrNotConnected
	}
	if len(channels) == 0 {
		return nil
	}

	if len(channels) == 1 {
		if err := c.driver.JoinRoom(ctx, channels[0]); err != nil {
			return err
		}
		state.channels.Add(channels[0])
		c.emit(state, "joined", Joined{Channel: channels[0]})
		return nil
	}

	if err := c.driver.JoinRooms(ctx, channels); err != nil {
		return err
	}
	for _, name := range channels {
		state.channels.Add(name)
	}
	c.emit(state, "joined", Joined{Channels: channels})
	return nil
}

// Part leaves channels strictly sequentially, emitting a parted event
// per channel as each leave completes. The first failure aborts the
// remaining sequence and returns to the caller; channels not yet
// reached stay in the set.
func (c *Connector) Part(ctx context.Context, channels ...string) error {
	state := c.state
	if state == nil {
		return ErrNotConnected
	}

	for _, name := range channels {
		if err := c.driver.LeaveRoom(ctx, name); err != nil {
			return err
		}
		state.channels.Remove(name)
		c.emit(state, "parted", Parted{Channel: name})
	}
	return nil
}

// Send resolves the destination to a room id and dispatches the message.
// "@handle" destinations use the direct-message path; anything else is a
// channel name (leading "#" optional) resolved via the driver, with an
// auto-join side effect when the session is not yet a member. Every
// failure is emitted as an error event; Send never returns one.
func (c *Connector) Send(ctx context.Context, msg OutboundMessage) {
	state := c.state
	if state == nil || !state.Connected() {
		c.emitError(state, ErrNotConnected)
		return
	}
	if msg.To == "" || msg.Content == "" {
		c.emitError(state, ErrMissingFields)
		return
	}

	var roomID string
	var err error
	if strings.HasPrefix(msg.To, "@") {
		roomID, err = c.driver.GetDirectMessageRoomID(ctx, strings.TrimPrefix(msg.To, "@"))
	} else {
		room := strings.TrimPrefix(msg.To, "#")
		roomID, err = c.driver.GetRoomID(ctx, room)
		if err == nil && state.AutoJoin && !state.channels.Has(room) {
			// The room id resolved above stays valid whether or not the
			// join lands, so a join failure does not stop the send.
			if jerr := c.Join(ctx, room); jerr != nil {
				c.log.Warn().Err(jerr).Str("channel", room).Msg("auto-join failed")
			}
		}
	}
	if err != nil {
		c.emitError(state, err)
		return
	}

	prepared := c.driver.PrepareMessage(msg.Content, roomID)
	if err := c.driver.SendMessage(ctx, prepared); err != nil {
		c.emitError(state, err)
	}
}

// Close tears the session down: the send subscription is removed and
// the inbound pipeline's lifetime context is cancelled. The state
// remains, disconnected; the connector does not support reconnecting.
func (c *Connector) Close() {
	if c.cancel != nil {
		c.cancel()
	}
	if c.state != nil {
		c.bus.Off(Topic(c.state.Name, "send"))
		c.state.setConnected(false)
	}
}

// reactor builds the lifetime-long inbound pipeline: transport failures
// become error events, self-authored messages are dropped, everything
// else is classified concurrently.
func (c *Connector) reactor(state *ConnectionState) driver.MessageHandler {
	lifetime := c.lifetime
	return func(err error, msg *driver.Message) {
		if err != nil {
			c.emitError(state, err)
			return
		}
		if msg == nil || msg.Sender.ID == state.UserID() {
			return
		}
		go c.classify(lifetime, state, *msg)
	}
}

// classify resolves the origin room and emits the message event: a
// resolved name means channel traffic, an absent one a direct message.
// A resolution failure drops the message and emits an error event.
func (c *Connector) classify(ctx context.Context, state *ConnectionState, msg driver.Message) {
	name, err := c.driver.GetRoomName(ctx, msg.RoomID)
	if err != nil {
		c.emitError(state, err)
		return
	}

	enriched := InboundMessage{Message: msg}
	if name != "" {
		roomName := "#" + name
		enriched.RoomName = &roomName
	} else {
		enriched.Direct = true
	}
	c.emit(state, "message", enriched)
}

func (c *Connector) emit(state *ConnectionState, event string, data any) {
	c.bus.Emit(bus.Event{
		Type:   Topic(state.Name, event),
		Data:   data,
		Source: state.ID,
	})
}

func (c *Connector) emitError(state *ConnectionState, err error) {
	name, source := "", ""
	if state != nil {
		name, source = state.Name, state.ID
	}
	c.bus.Emit(bus.Event{Type: Topic(name, "error"), Data: err, Source: source})
}

func (c *Connector) connectFailed(state *ConnectionState, err error) {
	c.log.Error().Err(err).Str("session", state.Name).Msg("connect sequence failed")
	c.emitError(state, err)
}
