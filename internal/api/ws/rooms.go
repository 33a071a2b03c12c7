package ws

import (
	"sync"

	"github.com/felipe/zapgateway/internal/events"
)

// rooms mantém as assinaturas de uma conexão, uma por sessão. Os
// eventos de todas as salas convergem para um único canal de saída.
// Join, Leave e Close pertencem à goroutine da conexão; só os
// encaminhadores internos rodam em paralelo.
type rooms struct {
	bus  *events.Bus
	subs map[string]*events.Subscription
	out  chan events.Event
	wg   sync.WaitGroup
}

func newRooms(bus *events.Bus) *rooms {
	return &rooms{
		bus:  bus,
		subs: make(map[string]*events.Subscription),
		out:  make(chan events.Event, 64),
	}
}

// Events é o canal de saída unificado das salas
func (r *rooms) Events() <-chan events.Event {
	return r.out
}

// Join entra na sala da sessão. Entrar de novo na mesma sala é no-op:
// as assinaturas existentes continuam valendo.
func (r *rooms) Join(sessionID string) {
	if _, ok := r.subs[sessionID]; ok {
		return
	}

	sub := r.bus.Subscribe(sessionID, 64)
	r.subs[sessionID] = sub

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for event := range sub.C {
			select {
			case r.out <- event:
			default:
				// conexão lenta descarta, igual ao barramento
			}
		}
	}()
}

// Leave sai da sala da sessão, se a conexão estiver nela
func (r *rooms) Leave(sessionID string) {
	if sub, ok := r.subs[sessionID]; ok {
		sub.Close()
		delete(r.subs, sessionID)
	}
}

// Count retorna em quantas salas a conexão está
func (r *rooms) Count() int {
	return len(r.subs)
}

// Close encerra todas as assinaturas e espera os encaminhadores
func (r *rooms) Close() {
	for sessionID, sub := range r.subs {
		sub.Close()
		delete(r.subs, sessionID)
	}
	r.wg.Wait()
}
