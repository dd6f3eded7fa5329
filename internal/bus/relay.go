package bus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Relay mirrors bus traffic onto Redis pub/sub so other processes can
// observe a session and inject outbound sends. The session keeps working
// without Redis; a relay that cannot connect degrades to a no-op.
type Relay struct {
	bus     *Bus
	log     zerolog.Logger
	session string
	client  *redis.Client
}

// RelayConfig holds Redis connection settings for the relay.
type RelayConfig struct {
	URL      string // redis://host:port
	Password string
	DB       int
}

const (
	eventsChannelPrefix = "rocketbridge:events:"
	sendChannelPrefix   = "rocketbridge:send:"
)

// NewRelay connects to Redis and returns a relay for the named session.
// Returns nil (not an error) when no URL is configured.
func NewRelay(cfg RelayConfig, b *Bus, session string, logger zerolog.Logger) (*Relay, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DB = cfg.DB
	opts.DialTimeout = 5 * time.Second

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &Relay{
		bus:     b,
		log:     logger,
		session: session,
		client:  client,
	}, nil
}

// Mirror registers bus handlers that publish each event on the given
// topics to the session's Redis events channel.
func (r *Relay) Mirror(topics ...string) {
	channel := eventsChannelPrefix + r.session
	for _, topic := range topics {
		r.bus.On(topic, func(evt Event) {
			payload, err := json.Marshal(encodable(evt))
			if err != nil {
				r.log.Warn().Err(err).Str("topic", evt.Type).Msg("relay: event not serializable")
				return
			}
			if err := r.client.Publish(context.Background(), channel, payload).Err(); err != nil {
				r.log.Warn().Err(err).Str("topic", evt.Type).Msg("relay: publish failed")
			}
		})
	}
}

// Run subscribes to the session's Redis send channel and re-emits each
// payload as a local send event. Blocks until ctx is cancelled.
func (r *Relay) Run(ctx context.Context, sendTopic string) error {
	sub := r.client.Subscribe(ctx, sendChannelPrefix+r.session)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var data map[string]any
			if err := json.Unmarshal([]byte(msg.Payload), &data); err != nil {
				r.log.Warn().Err(err).Msg("relay: bad send payload")
				continue
			}
			r.bus.Emit(Event{Type: sendTopic, Data: data, Source: "relay"})
		}
	}
}

// Close releases the Redis connection.
func (r *Relay) Close() error {
	return r.client.Close()
}

// encodable rewrites event payloads that do not survive JSON encoding.
// Error values marshal to "{}", so they are replaced by their message.
func encodable(evt Event) Event {
	if err, ok := evt.Data.(error); ok {
		evt.Data = err.Error()
	}
	return evt
}
