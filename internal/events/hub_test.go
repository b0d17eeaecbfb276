package events

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mvaz/chathub/internal/model"
)

func TestHub_PublishReachesChannelSubscribersOnly(t *testing.T) {
	t.Parallel()
	h := NewHub(4, zap.NewNop())
	defer h.Shutdown()

	sub1 := h.Subscribe(1)
	sub2 := h.Subscribe(1)
	other := h.Subscribe(2)

	h.PublishMessage(1, model.Message{ID: 10, ChannelID: 1, Content: "hi"})

	for _, sub := range []*Subscription{sub1, sub2} {
		select {
		case sig := <-sub.C:
			if sig.Message == nil || sig.Message.ID != 10 {
				t.Fatalf("bad signal: %+v", sig)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber did not receive the message")
		}
	}

	select {
	case sig := <-other.C:
		t.Fatalf("channel 2 subscriber got channel 1 traffic: %+v", sig)
	default:
	}
}

func TestHub_CloseDetachesSubscription(t *testing.T) {
	t.Parallel()
	h := NewHub(4, zap.NewNop())
	defer h.Shutdown()

	sub := h.Subscribe(1)
	if h.SubscriberCount(1) != 1 {
		t.Fatalf("count = %d", h.SubscriberCount(1))
	}

	sub.Close()
	sub.Close() // idempotent

	if h.SubscriberCount(1) != 0 {
		t.Fatalf("count after close = %d", h.SubscriberCount(1))
	}
	if _, open := <-sub.C; open {
		t.Fatalf("channel still open after close")
	}

	// Publishing to a channel with no subscribers is a no-op.
	h.PublishMessage(1, model.Message{ID: 1})
}

func TestHub_SlowSubscriberDropped(t *testing.T) {
	t.Parallel()
	h := NewHub(1, zap.NewNop())
	defer h.Shutdown()

	slow := h.Subscribe(1)
	fast := h.Subscribe(1)

	// First publish fills slow's buffer; the second overflows it and the
	// subscription is dropped instead of blocking the hub.
	h.PublishMessage(1, model.Message{ID: 1})
	<-fast.C
	h.PublishMessage(1, model.Message{ID: 2})

	if h.SubscriberCount(1) != 1 {
		t.Fatalf("slow subscriber not dropped, count = %d", h.SubscriberCount(1))
	}

	// The slow subscriber drains its buffer and then sees the close.
	if sig := <-slow.C; sig.Message == nil || sig.Message.ID != 1 {
		t.Fatalf("buffered signal lost: %+v", sig)
	}
	if _, open := <-slow.C; open {
		t.Fatalf("dropped subscription left open")
	}
}

func TestHub_KeepAlive(t *testing.T) {
	t.Parallel()
	h := NewHub(4, zap.NewNop())
	defer h.Shutdown()

	sub := h.Subscribe(1)
	h.keepAlive(time.Now())

	select {
	case sig := <-sub.C:
		if sig.KeepAlive == nil {
			t.Fatalf("expected keep-alive, got %+v", sig)
		}
	case <-time.After(time.Second):
		t.Fatalf("no keep-alive delivered")
	}
}

func TestHub_ShutdownClosesEverything(t *testing.T) {
	t.Parallel()
	h := NewHub(4, zap.NewNop())

	sub := h.Subscribe(1)
	h.Shutdown()

	if _, open := <-sub.C; open {
		t.Fatalf("subscription open after shutdown")
	}
	// A second shutdown must not panic.
	h.Shutdown()
}
