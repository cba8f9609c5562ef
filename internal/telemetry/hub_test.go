package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishRetainsBoundedRing(t *testing.T) {
	h := NewHub(3)
	defer h.Close()

	for i := 0; i < 5; i++ {
		h.Publish("tick", map[string]any{"n": i})
	}

	recent := h.Recent()
	require.Len(t, recent, 3)
	assert.Equal(t, int64(3), recent[0].ID)
	assert.Equal(t, int64(5), recent[2].ID)
	assert.Equal(t, 2, recent[0].Data["n"])
}

func TestSubscribeReceivesEvents(t *testing.T) {
	h := NewHub(10)
	defer h.Close()

	events, cancel := h.Subscribe()
	defer cancel()

	h.Publish("connected", map[string]any{"ssid": "gridnet"})

	select {
	case ev := <-events:
		assert.Equal(t, "connected", ev.Type)
		assert.Equal(t, "gridnet", ev.Data["ssid"])
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}
}

func TestCancelIsIdempotentAndClosesChannel(t *testing.T) {
	h := NewHub(10)
	defer h.Close()

	events, cancel := h.Subscribe()
	cancel()
	cancel()

	_, open := <-events
	assert.False(t, open)

	// Publishing after cancel must not panic or deliver.
	h.Publish("tick", nil)
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	h := NewHub(5)
	defer h.Close()

	_, cancel := h.Subscribe()
	defer cancel()

	// Nobody drains the channel; publishes beyond its buffer are
	// dropped for that subscriber, never stalled.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			h.Publish("tick", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	assert.Len(t, h.Recent(), 5)
}

func TestPublishAfterCloseIsNoOp(t *testing.T) {
	h := NewHub(10)
	events, _ := h.Subscribe()

	h.Publish("before", nil)
	h.Close()
	h.Publish("after", nil)

	assert.Len(t, h.Recent(), 1)

	// The subscriber channel was closed by Close; the buffered event
	// is still readable.
	ev, open := <-events
	assert.True(t, open)
	assert.Equal(t, "before", ev.Type)
	_, open = <-events
	assert.False(t, open)
}

func TestSubscribeAfterClose(t *testing.T) {
	h := NewHub(10)
	h.Close()

	events, cancel := h.Subscribe()
	cancel()
	_, open := <-events
	assert.False(t, open)
}
