package outbox

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/felipe/zapgateway/internal/config"
	"github.com/felipe/zapgateway/internal/db/models"
	"github.com/felipe/zapgateway/internal/db/repositories"
	"github.com/felipe/zapgateway/internal/errs"
	"github.com/felipe/zapgateway/internal/logger"
)

const queueCapacity = 1000

// Sender entrega uma mensagem outbound já persistida. O supervisor de
// sessões implementa esta interface.
type Sender interface {
	Deliver(ctx context.Context, message *models.Message) error
}

type item struct {
	message  *models.Message
	attempts int
}

// sessionQueue é a fila FIFO de uma sessão, com um worker próprio e um
// token bucket de envio. Uma sessão lenta nunca atrasa as demais.
type sessionQueue struct {
	sessionID string
	items     chan *item
	limiter   *rate.Limiter
}

// Queue distribui mensagens outbound para os workers por sessão. O
// ritmo de envio é limitado por sessão para reduzir risco de bloqueio
// do número pelo WhatsApp.
type Queue struct {
	cfg      *config.QueueConfig
	sender   Sender
	messages repositories.MessageRepository
	log      logger.Logger

	mu     sync.Mutex
	queues map[string]*sessionQueue

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewQueue(cfg *config.QueueConfig, sender Sender, messages repositories.MessageRepository) *Queue {
	ctx, cancel := context.WithCancel(context.Background())

	return &Queue{
		cfg:      cfg,
		sender:   sender,
		messages: messages,
		log:      logger.ForComponent("outbox"),
		queues:   make(map[string]*sessionQueue),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Enqueue coloca a mensagem na fila da sessão dela. A mensagem já deve
// estar persistida com status pending. Fila cheia rejeita o envio em
// vez de bloquear o chamador.
func (q *Queue) Enqueue(message *models.Message) error {
	sq := q.queueFor(message.SessionID)

	select {
	case sq.items <- &item{message: message}:
		return nil
	default:
		return errs.LimitExceeded("queue", queueCapacity, queueCapacity)
	}
}

// EnqueueBulk enfileira várias mensagens preservando a ordem. Para no
// primeiro erro e informa quantas entraram.
func (q *Queue) EnqueueBulk(messages []*models.Message) (int, error) {
	for i, message := range messages {
		if err := q.Enqueue(message); err != nil {
			return i, err
		}
	}
	return len(messages), nil
}

// Depth retorna quantas mensagens aguardam na fila da sessão
func (q *Queue) Depth(sessionID string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	if sq, ok := q.queues[sessionID]; ok {
		return len(sq.items)
	}
	return 0
}

// Shutdown para os workers. Mensagens ainda na fila permanecem com
// status pending e não são perdidas: seguem persistidas no banco.
func (q *Queue) Shutdown() {
	q.cancel()
	q.wg.Wait()
	q.log.Info().Msg("Outbound queue stopped")
}

func (q *Queue) queueFor(sessionID string) *sessionQueue {
	q.mu.Lock()
	defer q.mu.Unlock()

	if sq, ok := q.queues[sessionID]; ok {
		return sq
	}

	perMinute := q.cfg.MessagesPerMinute
	if perMinute <= 0 {
		perMinute = 20
	}

	sq := &sessionQueue{
		sessionID: sessionID,
		items:     make(chan *item, queueCapacity),
		limiter:   rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
	}
	q.queues[sessionID] = sq

	q.wg.Add(1)
	go q.worker(sq)

	return sq
}

// worker consome a fila da sessão em ordem. Retries acontecem no lugar,
// antes da próxima mensagem, preservando o FIFO.
func (q *Queue) worker(sq *sessionQueue) {
	defer q.wg.Done()
	log := logger.GetWithSession(sq.sessionID)

	for {
		select {
		case <-q.ctx.Done():
			return
		case it := <-sq.items:
			if err := sq.limiter.Wait(q.ctx); err != nil {
				return
			}

			q.process(log, it)

			select {
			case <-q.ctx.Done():
				return
			case <-time.After(q.cfg.DelayBetweenMessages):
			}
		}
	}
}

func (q *Queue) process(log logger.Logger, it *item) {
	for {
		it.attempts++

		err := q.sender.Deliver(q.ctx, it.message)
		if err == nil {
			return
		}

		if !errs.IsTransient(err) {
			log.Warn().Err(err).
				Str("message_id", it.message.MessageID).
				Msg("Message delivery failed permanently")
			q.markFailed(it.message)
			return
		}

		if it.attempts >= q.cfg.MaxAttempts {
			log.Warn().Err(err).
				Str("message_id", it.message.MessageID).
				Int("attempts", it.attempts).
				Msg("Message delivery attempts exhausted")
			q.markFailed(it.message)
			return
		}

		log.Debug().Err(err).
			Str("message_id", it.message.MessageID).
			Int("attempt", it.attempts).
			Msg("Delivery failed, retrying")

		select {
		case <-q.ctx.Done():
			return
		case <-time.After(q.cfg.RetryDelay):
		}
	}
}

func (q *Queue) markFailed(message *models.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := q.messages.UpdateStatus(ctx, message.SessionID, message.MessageID, models.MessageStatusFailed); err != nil {
		q.log.Error().Err(err).
			Str("message_id", message.MessageID).
			Msg("Failed to mark message failed")
	}
}
