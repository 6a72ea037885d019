package eventbus

import "testing"

func TestPublishSubscribe(t *testing.T) {
	b := New()
	defer b.Close()
	sub := b.Subscribe()
	b.Publish("hello")
	select {
	case got := <-sub:
		if got != "hello" {
			t.Fatalf("got %v", got)
		}
	default:
		t.Fatalf("event not delivered")
	}
}

func TestPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	b := NewBuffered(1)
	defer b.Close()
	sub := b.Subscribe()
	b.Publish(1)
	b.Publish(2) // dropped, buffer full
	if got := <-sub; got != 1 {
		t.Fatalf("got %v, want first event", got)
	}
	select {
	case got := <-sub:
		t.Fatalf("unexpected second event %v", got)
	default:
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	defer b.Close()
	sub := b.Subscribe()
	b.Unsubscribe(sub)
	if _, ok := <-sub; ok {
		t.Fatalf("channel still open after unsubscribe")
	}
	b.Publish("ignored")
}

func TestSubscribeAfterClose(t *testing.T) {
	b := New()
	b.Close()
	sub := b.Subscribe()
	if _, ok := <-sub; ok {
		t.Fatalf("subscription after close must be closed")
	}
	b.Close() // idempotent
}
