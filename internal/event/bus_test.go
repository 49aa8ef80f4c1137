package event

import (
	"errors"
	"sync"
	"testing"
)

func TestBus_SubscribeAndPublish(t *testing.T) {
	bus := NewBus()

	var got []Event
	id := bus.Subscribe(TypeTaskCreated, func(e Event) {
		got = append(got, e)
	})
	if id == "" {
		t.Fatal("Subscribe should return a non-empty ID")
	}
	if bus.SubscriptionCount() != 1 {
		t.Errorf("SubscriptionCount() = %d, want 1", bus.SubscriptionCount())
	}

	bus.Publish(NewTaskCreatedEvent("1.2", "1", "Write codec"))
	bus.Publish(NewTaskDeletedEvent("3", []string{"3"}))

	if len(got) != 1 {
		t.Fatalf("handler received %d events, want 1", len(got))
	}
	created, ok := got[0].(TaskCreatedEvent)
	if !ok {
		t.Fatalf("event type = %T, want TaskCreatedEvent", got[0])
	}
	if created.TaskID != "1.2" || created.ParentID != "1" {
		t.Errorf("unexpected payload: %+v", created)
	}
	if created.Timestamp().IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestBus_WildcardAfterSpecific(t *testing.T) {
	bus := NewBus()

	var order []string
	bus.SubscribeAll(func(e Event) { order = append(order, "all") })
	bus.Subscribe(TypeTaskCompleted, func(e Event) { order = append(order, "specific") })

	bus.Publish(NewTaskCompletedEvent("1", []string{"2"}, false))

	if len(order) != 2 || order[0] != "specific" || order[1] != "all" {
		t.Errorf("dispatch order = %v, want [specific all]", order)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	first := bus.Subscribe(TypeDependencyAdded, func(e Event) { calls++ })
	bus.Subscribe(TypeDependencyAdded, func(e Event) { calls += 10 })

	if !bus.Unsubscribe(first) {
		t.Fatal("Unsubscribe should find the subscription")
	}
	if bus.Unsubscribe(first) {
		t.Error("second Unsubscribe should report false")
	}
	if bus.Unsubscribe("missing") {
		t.Error("unknown id should report false")
	}

	bus.Publish(NewDependencyAddedEvent("2", "1", true))
	if calls != 10 {
		t.Errorf("calls = %d, want only the remaining handler", calls)
	}
}

func TestBus_Clear(t *testing.T) {
	bus := NewBus()
	bus.Subscribe(TypeStoreLoaded, func(e Event) {})
	bus.SubscribeAll(func(e Event) {})

	bus.Clear()
	if bus.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() after Clear = %d", bus.SubscriptionCount())
	}
}

func TestBus_HandlerPanicRecovery(t *testing.T) {
	bus := NewBus()

	reached := false
	bus.Subscribe(TypePersistFailed, func(e Event) { panic("boom") })
	bus.Subscribe(TypePersistFailed, func(e Event) { reached = true })

	bus.Publish(NewPersistFailedEvent("/tmp/all_tasks.json", errors.New("disk full")))

	if !reached {
		t.Error("a panicking handler must not stop delivery to later handlers")
	}
}

func TestBus_NilPublish(t *testing.T) {
	var bus *Bus
	bus.Publish(NewStoreClearedEvent(3))
}

func TestBus_UniqueIDs(t *testing.T) {
	bus := NewBus()
	seen := make(map[string]bool)
	for range 100 {
		id := bus.Subscribe(TypeTaskUpdated, func(e Event) {})
		if seen[id] {
			t.Fatalf("duplicate subscription id %q", id)
		}
		seen[id] = true
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus()

	var mu sync.Mutex
	count := 0
	bus.SubscribeAll(func(e Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(NewTaskUpdatedEvent("1", []string{"status"}, "todo", "in_progress", false))
		}()
	}
	wg.Wait()

	if count != 50 {
		t.Errorf("count = %d, want 50", count)
	}
}

func TestEventTypes(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{NewTaskCreatedEvent("1", "", "n"), "task.created"},
		{NewTaskUpdatedEvent("1", nil, "", "", false), "task.updated"},
		{NewTaskDeletedEvent("1", nil), "task.deleted"},
		{NewTaskCompletedEvent("1", nil, true), "task.completed"},
		{NewDependencyAddedEvent("1", "2", false), "dependency.added"},
		{NewDependencyRemovedEvent("1", "2"), "dependency.removed"},
		{NewStoreLoadedEvent("p", 3, 0), "store.loaded"},
		{NewStoreClearedEvent(1), "store.cleared"},
		{NewPersistFailedEvent("p", nil), "store.persist_failed"},
		{NewSnapshotChangedEvent("p", "WRITE"), "snapshot.changed"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.event.EventType(); got != tt.want {
				t.Errorf("EventType() = %q, want %q", got, tt.want)
			}
		})
	}
}
