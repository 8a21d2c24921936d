package events

import (
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan PTZCommandEvent, 1)

	unsub := bus.Subscribe(func(e PTZCommandEvent) {
		received <- e
	})
	defer unsub()

	bus.Publish(PTZCommandEvent{Command: "move", Direction: "up-left", Pan: -50, Tilt: 50, Success: true})

	got := <-received
	if got.Direction != "up-left" || got.Pan != -50 {
		t.Errorf("unexpected event %+v", got)
	}
}

func TestBus_MultipleSubscribers(_ *testing.T) {
	bus := New()
	received1 := make(chan SubscribersChangedEvent, 1)
	received2 := make(chan SubscribersChangedEvent, 1)

	unsub1 := bus.Subscribe(func(e SubscribersChangedEvent) { received1 <- e })
	defer unsub1()
	unsub2 := bus.Subscribe(func(e SubscribersChangedEvent) { received2 <- e })
	defer unsub2()

	bus.Publish(SubscribersChangedEvent{Action: "joined", Count: 1})

	<-received1
	<-received2
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan StreamStateChangedEvent, 1)

	unsub := bus.Subscribe(func(e StreamStateChangedEvent) { received <- e })

	bus.Publish(StreamStateChangedEvent{From: "stopped", To: "starting"})
	<-received

	unsub()

	bus.Publish(StreamStateChangedEvent{From: "starting", To: "running"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	crashReceived := make(chan bool, 1)
	stateReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ TranscoderCrashedEvent) { crashReceived <- true })
	defer unsub1()
	unsub2 := bus.Subscribe(func(_ StreamStateChangedEvent) { stateReceived <- true })
	defer unsub2()

	bus.Publish(TranscoderCrashedEvent{ExitCode: 1, Restarting: true, RestartIn: "3s"})
	<-crashReceived

	select {
	case <-stateReceived:
		t.Fatal("state subscriber should not receive TranscoderCrashedEvent")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_UnknownHandler(t *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	if unsub == nil {
		t.Fatal("expected no-op unsubscribe")
	}
	unsub()
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)
	unsub := bus.Subscribe(func(_ SubscribersChangedEvent) { receivedCh <- true })
	defer unsub()

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < eventsPerGoroutine; j++ {
				bus.Publish(SubscribersChangedEvent{Action: "joined", Timestamp: time.Now().Format(time.RFC3339)})
			}
		}()
	}
	wg.Wait()

	for i := 0; i < expected; i++ {
		<-receivedCh
	}
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 10)

	unsub := SubscribeToChannel[StreamStateChangedEvent](bus, ch)
	defer unsub()

	bus.Publish(StreamStateChangedEvent{From: "running", To: "stopping"})

	received := <-ch
	ev, ok := received.(StreamStateChangedEvent)
	if !ok {
		t.Fatalf("Expected StreamStateChangedEvent, got %T", received)
	}
	if ev.To != "stopping" {
		t.Errorf("To = %s, want stopping", ev.To)
	}
}

func TestSubscribeToChannel_NonBlocking(_ *testing.T) {
	bus := New()
	ch := make(chan any)

	unsub := SubscribeToChannel[PTZCommandEvent](bus, ch)
	defer unsub()

	done := make(chan bool, 1)
	go func() {
		bus.Publish(PTZCommandEvent{Command: "stop"})
		done <- true
	}()

	<-done
}
