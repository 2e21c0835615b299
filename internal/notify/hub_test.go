package notify

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventsphere/internal/logger"
)

func receive(t *testing.T, s *Subscription) Message {
	t.Helper()
	select {
	case msg, ok := <-s.C():
		require.True(t, ok, "subscription closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
	return Message{}
}

func assertNothing(t *testing.T, s *Subscription) {
	t.Helper()
	select {
	case msg := <-s.C():
		t.Fatalf("unexpected message %+v", msg)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestPublishReachesOnlyJoinedChannels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(logger.NewNopLogger())

	expo := hub.Subscribe(ctx, ExpoChannel("e1"))
	user := hub.Subscribe(ctx, UserChannel("u1"))
	both := hub.Subscribe(ctx, ExpoChannel("e1"), UserChannel("u1"))

	hub.Publish(ExpoChannel("e1"), "booth:update", map[string]string{"id": "b1"})

	msg := receive(t, expo)
	assert.Equal(t, "expo_e1", msg.Channel)
	assert.Equal(t, "booth:update", msg.Event)
	assert.JSONEq(t, `{"id":"b1"}`, string(msg.Payload))
	receive(t, both)
	assertNothing(t, user)

	hub.Publish(UserChannel("u1"), "registration:update", map[string]string{"action": "reviewed"})
	receive(t, user)
	receive(t, both)
	assertNothing(t, expo)
}

func TestJoinAndLeave(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(logger.NewNopLogger())

	s := hub.Subscribe(ctx)
	s.Join("expo_e1")
	s.Join("expo_e2")
	assert.ElementsMatch(t, []string{"expo_e1", "expo_e2"}, s.Channels())
	assert.Equal(t, 1, hub.ClientCount("expo_e1"))

	s.Leave("expo_e1")
	assert.Equal(t, 0, hub.ClientCount("expo_e1"))
	hub.Publish("expo_e1", "booth:update", nil)
	assertNothing(t, s)
}

func TestCancelledSubscriptionIsRemoved(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(logger.NewNopLogger())
	s := hub.Subscribe(ctx, "expo_e1")
	require.Equal(t, 1, hub.ClientCount("expo_e1"))

	cancel()
	require.Eventually(t, func() bool { return hub.ClientCount("expo_e1") == 0 }, time.Second, 5*time.Millisecond)

	_, ok := <-s.C()
	assert.False(t, ok)

	s.Join("expo_e2")
	assert.Equal(t, 0, hub.ClientCount("expo_e2"))
	hub.Publish("expo_e1", "booth:update", nil)
}

func TestSlowSubscriberDropsWithoutBlocking(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(logger.NewNopLogger())
	slow := hub.Subscribe(ctx, "expo_e1")

	done := make(chan struct{})
	go func() {
		for i := 0; i < defaultBuffer*3; i++ {
			hub.Publish("expo_e1", "booth:update", i)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	assert.Len(t, slow.C(), defaultBuffer)
	first := receive(t, slow)
	assert.Equal(t, json.RawMessage("0"), first.Payload)
}

func TestUnserialisablePayloadIsDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hub := NewHub(logger.NewNopLogger())
	s := hub.Subscribe(ctx, "expo_e1")

	hub.Publish("expo_e1", "booth:update", make(chan int))
	assertNothing(t, s)
}

func TestConcurrentPublishAndCancel(t *testing.T) {
	hub := NewHub(logger.NewNopLogger())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		hub.Subscribe(ctx, "expo_e1")
		wg.Add(2)
		go func() {
			defer wg.Done()
			hub.Publish("expo_e1", "booth:update", "x")
		}()
		go func() {
			defer wg.Done()
			cancel()
		}()
	}
	wg.Wait()
	require.Eventually(t, func() bool { return hub.ClientCount("expo_e1") == 0 }, time.Second, 5*time.Millisecond)
}
