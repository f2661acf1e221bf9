package eventbus

import (
	"testing"
	"time"
)

func TestPublishFiltersByPrefix(t *testing.T) {
	t.Parallel()
	b := New()
	tasks, unsubTasks := b.Subscribe(4, "task.")
	defer unsubTasks()
	all, unsubAll := b.Subscribe(4)
	defer unsubAll()

	b.Publish(Event{Type: TypeTaskAdded, Data: TaskEvent{Description: "Team Meeting"}})
	b.Publish(Event{Type: TypeAgendaSent})

	select {
	case e := <-tasks:
		if e.Type != TypeTaskAdded || e.Time.IsZero() {
			t.Fatalf("unexpected event %+v", e)
		}
		if te, ok := e.Data.(TaskEvent); !ok || te.Description != "Team Meeting" {
			t.Fatalf("payload = %#v", e.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("task subscriber got nothing")
	}
	select {
	case e := <-tasks:
		t.Fatalf("task subscriber received %q", e.Type)
	default:
	}
	if len(all) != 2 {
		t.Fatalf("catch-all subscriber has %d events, want 2", len(all))
	}
}

func TestPublishDropsWhenFull(t *testing.T) {
	t.Parallel()
	b := New()
	_, unsub := b.Subscribe(1)
	defer unsub()

	b.Publish(Event{Type: TypeTaskAdded})
	b.Publish(Event{Type: TypeTaskAdded})
	if got := b.Dropped(); got != 1 {
		t.Fatalf("Dropped = %d, want 1", got)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	t.Parallel()
	b := New()
	ch, unsub := b.Subscribe(1)
	unsub()
	unsub()
	if _, ok := <-ch; ok {
		t.Fatal("channel still open after unsubscribe")
	}
	b.Publish(Event{Type: TypeTaskRemoved})
}
