package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubSendQueuesJSON(t *testing.T) {
	h := NewHub()
	h.Send(map[string]string{"type": "stock_update", "action": "transaction_created"})

	select {
	case msg := <-h.Broadcast:
		var decoded map[string]string
		require.NoError(t, json.Unmarshal(msg, &decoded))
		assert.Equal(t, "transaction_created", decoded["action"])
	default:
		t.Fatal("expected a queued message")
	}
}

func TestHubSendDropsWhenFull(t *testing.T) {
	h := NewHub()
	for i := 0; i < cap(h.Broadcast)+5; i++ {
		h.Send(i)
	}
	assert.Len(t, h.Broadcast, cap(h.Broadcast))
}

func TestHubStop(t *testing.T) {
	h := NewHub()
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()
	h.Stop()
	<-done
	assert.Equal(t, 0, h.Count())
}

func TestHubJoinLeaveAfterStop(t *testing.T) {
	h := NewHub()
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()
	h.Stop()
	<-done

	returned := make(chan bool, 1)
	go func() {
		h.leave(nil)
		returned <- h.join(nil)
	}()

	select {
	case joined := <-returned:
		assert.False(t, joined)
	case <-time.After(time.Second):
		t.Fatal("join/leave blocked on a stopped hub")
	}
}
