package ws

import (
	"testing"
	"time"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestHub_SendToRoutesBySubscriber(t *testing.T) {
	hub := NewHub(nil)
	stop := make(chan struct{})
	defer close(stop)
	go hub.Run(stop)

	alice := NewClient(hub, nil, "alice")
	aliceTab := NewClient(hub, nil, "alice")
	bob := NewClient(hub, nil, "bob")
	hub.Register(alice)
	hub.Register(aliceTab)
	hub.Register(bob)
	waitFor(t, func() bool { return hub.ClientCount() == 3 })

	if got := hub.SubscriberConnections("alice"); got != 2 {
		t.Fatalf("expected 2 connections for alice, got %d", got)
	}

	if !hub.SendTo("alice", []byte(`{"type":"ping"}`)) {
		t.Fatalf("expected message to be queued")
	}

	for _, c := range []*Client{alice, aliceTab} {
		select {
		case msg := <-c.send:
			if string(msg) != `{"type":"ping"}` {
				t.Fatalf("unexpected message %q", msg)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("client did not receive message")
		}
	}

	select {
	case msg := <-bob.send:
		t.Fatalf("bob should not receive alice's message, got %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_UnregisterClosesSend(t *testing.T) {
	hub := NewHub(nil)
	stop := make(chan struct{})
	defer close(stop)
	go hub.Run(stop)

	c := NewClient(hub, nil, "carol")
	hub.Register(c)
	waitFor(t, func() bool { return hub.ClientCount() == 1 })

	hub.Unregister(c)
	waitFor(t, func() bool { return hub.ClientCount() == 0 })

	if _, ok := <-c.send; ok {
		t.Fatalf("expected send channel to be closed")
	}
}

func TestHub_SendToIgnoresEmptySubscriber(t *testing.T) {
	hub := NewHub(nil)
	if hub.SendTo("", []byte("x")) {
		t.Fatalf("empty subscriber must not be queued")
	}
}
