package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribe_ReceivesPublishedMessage(t *testing.T) {
	b := New(4)
	sub := b.Subscribe()

	b.Publish(Message{Kind: KindTick, Tick: &TickPayload{VesselID: "1", PointsProcessed: 1}})

	select {
	case msg := <-sub.Messages():
		assert.Equal(t, KindTick, msg.Kind)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestPublish_FansOutToAllSubscribers(t *testing.T) {
	b := New(4)
	sub1 := b.Subscribe()
	sub2 := b.Subscribe()

	b.Publish(Message{Kind: KindTick, Tick: &TickPayload{}})

	for _, s := range []*Subscriber{sub1, sub2} {
		select {
		case <-s.Messages():
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive message")
		}
	}
}

func TestPublish_DropsOldestWhenMailboxFull(t *testing.T) {
	b := New(2)
	sub := b.Subscribe()

	b.Publish(Message{Kind: KindTick, Tick: &TickPayload{PointsProcessed: 1}})
	b.Publish(Message{Kind: KindTick, Tick: &TickPayload{PointsProcessed: 2}})
	b.Publish(Message{Kind: KindTick, Tick: &TickPayload{PointsProcessed: 3}})

	first := <-sub.Messages()
	second := <-sub.Messages()

	assert.Equal(t, int64(2), first.Tick.PointsProcessed)
	assert.Equal(t, int64(3), second.Tick.PointsProcessed)

	select {
	case <-sub.Messages():
		t.Fatal("expected only 2 buffered messages")
	default:
	}
}

func TestUnsubscribe_ClosesMailbox(t *testing.T) {
	b := New(4)
	sub := b.Subscribe()
	require.Equal(t, 1, b.SubscriberCount())

	b.Unsubscribe(sub.ID())
	require.Equal(t, 0, b.SubscriberCount())

	_, ok := <-sub.Messages()
	assert.False(t, ok)
}

func TestPublish_AfterUnsubscribeDoesNotPanic(t *testing.T) {
	b := New(4)
	sub := b.Subscribe()
	b.Unsubscribe(sub.ID())

	assert.NotPanics(t, func() {
		b.Publish(Message{Kind: KindTick, Tick: &TickPayload{}})
	})
}
