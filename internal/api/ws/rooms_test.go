package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felipe/zapgateway/internal/events"
)

func publishStatus(bus *events.Bus, sessionID string) {
	bus.Publish(events.Event{
		Topic:     events.TopicConnectionStatus,
		SessionID: sessionID,
		Payload:   "connected",
	})
}

func collect(t *testing.T, r *rooms, want int) []events.Event {
	t.Helper()

	got := make([]events.Event, 0, want)
	timeout := time.After(2 * time.Second)

	for len(got) < want {
		select {
		case event := <-r.Events():
			got = append(got, event)
		case <-timeout:
			t.Fatalf("received %d of %d events", len(got), want)
		}
	}
	return got
}

// Uma conexão acompanha várias sessões ao mesmo tempo
func TestRoomsReceiveFromMultipleSessions(t *testing.T) {
	bus := events.NewBus()
	r := newRooms(bus)
	defer r.Close()

	r.Join("loja-centro")
	r.Join("loja-norte")
	assert.Equal(t, 2, r.Count())

	publishStatus(bus, "loja-centro")
	publishStatus(bus, "loja-norte")

	got := collect(t, r, 2)

	seen := map[string]bool{}
	for _, event := range got {
		seen[event.SessionID] = true
	}
	assert.True(t, seen["loja-centro"])
	assert.True(t, seen["loja-norte"])
}

// Entrar de novo na mesma sala não derruba nem duplica a assinatura
func TestRoomsJoinIsIdempotent(t *testing.T) {
	bus := events.NewBus()
	r := newRooms(bus)
	defer r.Close()

	r.Join("loja-centro")
	r.Join("loja-centro")

	assert.Equal(t, 1, r.Count())
	assert.Equal(t, 1, bus.SubscriberCount())

	publishStatus(bus, "loja-centro")
	got := collect(t, r, 1)
	require.Len(t, got, 1)

	// nenhuma entrega duplicada pendurada
	select {
	case event := <-r.Events():
		t.Fatalf("unexpected extra event for %s", event.SessionID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRoomsLeaveStopsDelivery(t *testing.T) {
	bus := events.NewBus()
	r := newRooms(bus)
	defer r.Close()

	r.Join("loja-centro")
	r.Join("loja-norte")
	r.Leave("loja-centro")

	assert.Equal(t, 1, r.Count())
	assert.Equal(t, 1, bus.SubscriberCount())

	publishStatus(bus, "loja-centro")
	publishStatus(bus, "loja-norte")

	got := collect(t, r, 1)
	assert.Equal(t, "loja-norte", got[0].SessionID)
}

func TestRoomsCloseUnsubscribesAll(t *testing.T) {
	bus := events.NewBus()
	r := newRooms(bus)

	r.Join("loja-centro")
	r.Join("loja-norte")
	r.Close()

	assert.Equal(t, 0, r.Count())
	assert.Equal(t, 0, bus.SubscriberCount())
}
