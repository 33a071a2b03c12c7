package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/felipe/zapgateway/internal/logger"
)

// Topic identifica a classe de evento publicada no barramento
type Topic string

const (
	TopicQR               Topic = "qr"
	TopicConnectionStatus Topic = "connectionStatus"
	TopicMessage          Topic = "message"
	TopicGroupUpdate      Topic = "groupUpdate"
)

// Event é a unidade publicada no barramento interno. Payload é o corpo
// serializável enviado aos assinantes (WebSocket, pipeline de webhook).
type Event struct {
	Topic     Topic       `json:"topic"`
	SessionID string      `json:"session_id"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// Subscription é um assinante com canal bufferizado próprio. Eventos
// são descartados quando o buffer enche; assinantes lentos nunca
// bloqueiam o publisher.
type Subscription struct {
	ID        uuid.UUID
	SessionID string
	C         chan Event

	bus  *Bus
	once sync.Once
}

// Close remove a assinatura do barramento e fecha o canal
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.remove(s.ID)
		close(s.C)
	})
}

// Bus faz fan-out de eventos das sessões para os assinantes
type Bus struct {
	mu      sync.RWMutex
	subs    map[uuid.UUID]*Subscription
	dropped atomic.Uint64
	log     logger.Logger
}

func NewBus() *Bus {
	return &Bus{
		subs: make(map[uuid.UUID]*Subscription),
		log:  logger.ForComponent("event_bus"),
	}
}

// Subscribe registra um assinante. sessionID vazio recebe eventos de
// todas as sessões.
func (b *Bus) Subscribe(sessionID string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = 64
	}

	sub := &Subscription{
		ID:        uuid.New(),
		SessionID: sessionID,
		C:         make(chan Event, buffer),
		bus:       b,
	}

	b.mu.Lock()
	b.subs[sub.ID] = sub
	b.mu.Unlock()

	return sub
}

// Publish entrega o evento a todos os assinantes interessados sem
// bloquear. Preenche o timestamp se o produtor não o fez.
func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subs {
		if sub.SessionID != "" && sub.SessionID != event.SessionID {
			continue
		}

		select {
		case sub.C <- event:
		default:
			b.dropped.Add(1)
			b.log.Warn().
				Str("topic", string(event.Topic)).
				Str("session_id", event.SessionID).
				Msg("Subscriber buffer full, event dropped")
		}
	}
}

// SubscriberCount retorna o número de assinantes ativos
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped retorna quantos eventos já foram descartados por buffer cheio
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

func (b *Bus) remove(id uuid.UUID) {
	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
}
