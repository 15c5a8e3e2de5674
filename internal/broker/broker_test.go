package broker

import (
	"testing"
	"time"
)

func recvOne(t *testing.T, sub *Subscription) Message {
	t.Helper()
	select {
	case msg, ok := <-sub.C():
		if !ok {
			t.Fatalf("subscription closed")
		}
		return msg
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for message")
	}
	return Message{}
}

func TestPublishRoutesByChannel(t *testing.T) {
	b := New(nil)

	sub := b.Subscribe()
	defer sub.Close()
	sub.Add("pool:0xabc:trades")

	other := b.Subscribe()
	defer other.Close()
	other.Add("pool:0xdef:trades")

	b.Publish("pool:0xabc:trades", "hello")

	msg := recvOne(t, sub)
	if msg.Channel != "pool:0xabc:trades" || msg.Data != "hello" {
		t.Fatalf("unexpected message: %+v", msg)
	}

	select {
	case msg := <-other.C():
		t.Fatalf("unexpected delivery to other subscriber: %+v", msg)
	default:
	}
}

func TestPublishToChannelWithoutSubscribers(t *testing.T) {
	b := New(nil)
	b.Publish("pool:0xabc:price", "1.0")
	if n := b.SubscriberCount("pool:0xabc:price"); n != 0 {
		t.Fatalf("expected zero subscribers, got %d", n)
	}
}

func TestDuplicateAddDeliversOnce(t *testing.T) {
	b := New(nil)
	sub := b.Subscribe()
	defer sub.Close()

	sub.Add("ch")
	sub.Add("ch")

	b.Publish("ch", 1)
	recvOne(t, sub)

	select {
	case msg := <-sub.C():
		t.Fatalf("duplicate delivery: %+v", msg)
	default:
	}
}

func TestRemoveStopsDelivery(t *testing.T) {
	b := New(nil)
	sub := b.Subscribe()
	defer sub.Close()

	sub.Add("ch")
	sub.Remove("ch")

	b.Publish("ch", 1)
	select {
	case msg := <-sub.C():
		t.Fatalf("delivery after remove: %+v", msg)
	default:
	}
	if n := b.SubscriberCount("ch"); n != 0 {
		t.Fatalf("expected detached subscriber, got %d", n)
	}
}

func TestCloseDetachesAll(t *testing.T) {
	b := New(nil)
	sub := b.Subscribe()
	sub.Add("a")
	sub.Add("b")

	sub.Close()
	sub.Close()

	if n := b.SubscriberCount("a"); n != 0 {
		t.Fatalf("channel a still attached: %d", n)
	}
	if n := b.SubscriberCount("b"); n != 0 {
		t.Fatalf("channel b still attached: %d", n)
	}
	if _, ok := <-sub.C(); ok {
		t.Fatalf("expected closed delivery channel")
	}
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	b := New(nil)
	sub := b.Subscribe()
	defer sub.Close()
	sub.Add("ch")

	for i := 0; i < subscriptionBuffer+10; i++ {
		b.Publish("ch", i)
	}
	if b.Dropped() != 10 {
		t.Fatalf("expected 10 dropped, got %d", b.Dropped())
	}
}
