package events

import (
	"testing"
	"time"
)

func TestBroker_DeliversToUserOnly(t *testing.T) {
	b := NewBroker()
	a, cancelA := b.Subscribe("alice")
	defer cancelA()
	bob, cancelB := b.Subscribe("bob")
	defer cancelB()

	b.Publish(Change{Op: OpInsert, UserID: "alice", ItemID: "1"})

	select {
	case c := <-a:
		if c.ItemID != "1" || c.Op != OpInsert {
			t.Fatalf("unexpected change %+v", c)
		}
	case <-time.After(time.Second):
		t.Fatal("alice did not receive change")
	}
	select {
	case c := <-bob:
		t.Fatalf("bob received foreign change %+v", c)
	default:
	}
}

func TestBroker_CoalescesBursts(t *testing.T) {
	b := NewBroker()
	ch, cancel := b.Subscribe("u")
	defer cancel()

	for i := 0; i < 10; i++ {
		b.Publish(Change{Op: OpUpdate, UserID: "u"})
	}
	<-ch
	select {
	case <-ch:
		t.Fatal("burst should coalesce into one pending signal")
	default:
	}
}

func TestBroker_CancelIsIdempotent(t *testing.T) {
	b := NewBroker()
	ch, cancel := b.Subscribe("u")
	cancel()
	cancel()

	if _, ok := <-ch; ok {
		t.Fatal("channel should be closed after cancel")
	}
	if n := b.Subscribers("u"); n != 0 {
		t.Fatalf("expected no subscribers, got %d", n)
	}
	// publishing after cancel must not panic on the closed channel
	b.Publish(Change{Op: OpDelete, UserID: "u"})
}

func TestBroker_BroadcastReachesEveryone(t *testing.T) {
	b := NewBroker()
	a, cancelA := b.Subscribe("a")
	defer cancelA()
	c, cancelC := b.Subscribe("c")
	defer cancelC()

	b.Broadcast(Change{Op: OpResync})
	for _, ch := range []<-chan Change{a, c} {
		select {
		case got := <-ch:
			if got.Op != OpResync {
				t.Fatalf("unexpected op %s", got.Op)
			}
		case <-time.After(time.Second):
			t.Fatal("broadcast not delivered")
		}
	}
}
