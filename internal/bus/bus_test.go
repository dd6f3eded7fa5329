package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	b := New()
	assert.NotNil(t, b)
	assert.Equal(t, 0, b.Pending())
}

func TestBus_EmitQueues(t *testing.T) {
	b := New()
	b.Emit(Event{Type: "rocketchat:bot:connecting", Source: "s1"})
	assert.Equal(t, 1, b.Pending())
}

func TestBus_OnAndDispatch(t *testing.T) {
	b := New()

	var received []Event
	var mu sync.Mutex

	b.On("rocketchat:bot:message", func(evt Event) {
		mu.Lock()
		received = append(received, evt)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Dispatch(ctx)

	b.Emit(Event{Type: "rocketchat:bot:message", Data: "hello", Source: "s1"})
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, received, 1)
	assert.Equal(t, "hello", received[0].Data)
	assert.Equal(t, "s1", received[0].Source)
}

func TestBus_HandlerDoesNotReceiveOtherTopics(t *testing.T) {
	b := New()

	var received []Event
	var mu sync.Mutex

	b.On("rocketchat:bot:message", func(evt Event) {
		mu.Lock()
		received = append(received, evt)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Dispatch(ctx)

	b.Emit(Event{Type: "rocketchat:bot:error", Data: "boom"})
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, received, 0)
}

func TestBus_OffRemovesHandlers(t *testing.T) {
	b := New()

	var received []Event
	var mu sync.Mutex

	b.On("rocketchat:bot:send", func(evt Event) {
		mu.Lock()
		received = append(received, evt)
		mu.Unlock()
	})
	b.Off("rocketchat:bot:send")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Dispatch(ctx)

	b.Emit(Event{Type: "rocketchat:bot:send", Data: "ignored"})
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, received, 0)
}

func TestBus_ConcurrentEmit(t *testing.T) {
	b := New()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Emit(Event{Type: "rocketchat:bot:message"})
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, b.Pending())
}

func TestEncodable_ErrorPayload(t *testing.T) {
	evt := encodable(Event{Type: "rocketchat:bot:error", Data: errors.New("login failed")})
	assert.Equal(t, "login failed", evt.Data)
}

func TestEncodable_PlainPayloadUntouched(t *testing.T) {
	evt := encodable(Event{Type: "rocketchat:bot:message", Data: map[string]any{"msg": "hi"}})
	assert.Equal(t, map[string]any{"msg": "hi"}, evt.Data)
}
