package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/felipe/zapgateway/internal/config"
	"github.com/felipe/zapgateway/internal/db/models"
	"github.com/felipe/zapgateway/internal/db/repositories"
	"github.com/felipe/zapgateway/internal/errs"
)

// fakeSender registra a ordem de entrega e permite programar falhas
// por mensagem
type fakeSender struct {
	mu        sync.Mutex
	delivered []string
	failures  map[string][]error
}

func newFakeSender() *fakeSender {
	return &fakeSender{failures: make(map[string][]error)}
}

func (f *fakeSender) failWith(messageID string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[messageID] = errs
}

func (f *fakeSender) Deliver(ctx context.Context, message *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if pending := f.failures[message.MessageID]; len(pending) > 0 {
		err := pending[0]
		f.failures[message.MessageID] = pending[1:]
		return err
	}

	f.delivered = append(f.delivered, message.MessageID)
	return nil
}

func (f *fakeSender) deliveredIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.delivered))
	copy(out, f.delivered)
	return out
}

type mockMessageRepo struct {
	mock.Mock
}

func (m *mockMessageRepo) Create(ctx context.Context, message *models.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *mockMessageRepo) GetByID(ctx context.Context, id string) (*models.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *mockMessageRepo) List(ctx context.Context, orgID string, filter repositories.MessageFilter) ([]*models.Message, error) {
	args := m.Called(ctx, orgID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Message), args.Error(1)
}

func (m *mockMessageRepo) UpdateStatus(ctx context.Context, sessionID, messageID string, status models.MessageStatus) error {
	args := m.Called(ctx, sessionID, messageID, status)
	return args.Error(0)
}

func (m *mockMessageRepo) MarkSynced(ctx context.Context, id string, crmMessageID *string) error {
	args := m.Called(ctx, id, crmMessageID)
	return args.Error(0)
}

func (m *mockMessageRepo) ListPendingCrmSync(ctx context.Context, orgID string, limit int) ([]*models.Message, error) {
	args := m.Called(ctx, orgID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Message), args.Error(1)
}

// Configuração rápida para os testes: sem espaçamento perceptível e
// com retry quase imediato
func testQueueConfig() *config.QueueConfig {
	return &config.QueueConfig{
		MessagesPerMinute:    60000,
		DelayBetweenMessages: time.Millisecond,
		RetryDelay:           5 * time.Millisecond,
		MaxAttempts:          3,
	}
}

func outboundMessage(sessionID, messageID string) *models.Message {
	return &models.Message{
		SessionID:   sessionID,
		MessageID:   messageID,
		Direction:   models.DirectionOutbound,
		ToNumber:    "+5511999999999",
		MessageType: "text",
		Status:      models.MessageStatusPending,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestQueueDeliversInOrder(t *testing.T) {
	sender := newFakeSender()
	repo := &mockMessageRepo{}

	queue := NewQueue(testQueueConfig(), sender, repo)
	defer queue.Shutdown()

	ids := []string{"m1", "m2", "m3", "m4", "m5"}
	for _, id := range ids {
		require.NoError(t, queue.Enqueue(outboundMessage("s1", id)))
	}

	waitFor(t, func() bool { return len(sender.deliveredIDs()) == len(ids) })
	assert.Equal(t, ids, sender.deliveredIDs())
}

func TestQueueRetriesTransientThenSucceeds(t *testing.T) {
	sender := newFakeSender()
	sender.failWith("m1",
		errs.Transient(errors.New("socket closed")),
		errs.Transient(errors.New("socket closed")),
	)
	repo := &mockMessageRepo{}

	queue := NewQueue(testQueueConfig(), sender, repo)
	defer queue.Shutdown()

	require.NoError(t, queue.Enqueue(outboundMessage("s1", "m1")))
	require.NoError(t, queue.Enqueue(outboundMessage("s1", "m2")))

	waitFor(t, func() bool { return len(sender.deliveredIDs()) == 2 })

	// Retry acontece no lugar: m1 sai antes de m2 mesmo após falhar
	assert.Equal(t, []string{"m1", "m2"}, sender.deliveredIDs())
	repo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestQueueMarksFailedAfterExhaustion(t *testing.T) {
	sender := newFakeSender()
	sender.failWith("m1",
		errs.Transient(errors.New("timeout")),
		errs.Transient(errors.New("timeout")),
		errs.Transient(errors.New("timeout")),
	)

	repo := &mockMessageRepo{}
	done := make(chan struct{})
	repo.On("UpdateStatus", mock.Anything, "s1", "m1", models.MessageStatusFailed).
		Run(func(args mock.Arguments) { close(done) }).
		Return(nil).Once()

	queue := NewQueue(testQueueConfig(), sender, repo)
	defer queue.Shutdown()

	require.NoError(t, queue.Enqueue(outboundMessage("s1", "m1")))

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("message was not marked failed")
	}

	assert.Empty(t, sender.deliveredIDs())
	repo.AssertExpectations(t)
}

func TestQueueFatalErrorFailsImmediately(t *testing.T) {
	sender := newFakeSender()
	sender.failWith("m1", errors.New("invalid destination"))

	repo := &mockMessageRepo{}
	done := make(chan struct{})
	repo.On("UpdateStatus", mock.Anything, "s1", "m1", models.MessageStatusFailed).
		Run(func(args mock.Arguments) { close(done) }).
		Return(nil).Once()

	queue := NewQueue(testQueueConfig(), sender, repo)
	defer queue.Shutdown()

	require.NoError(t, queue.Enqueue(outboundMessage("s1", "m1")))

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("message was not marked failed")
	}

	// Erro não transitório não gasta os outros attempts
	repo.AssertNumberOfCalls(t, "UpdateStatus", 1)
}

func TestQueueIsolatesSessions(t *testing.T) {
	sender := newFakeSender()
	// s1 fica presa em retries; s2 precisa fluir normalmente
	sender.failWith("slow",
		errs.Transient(errors.New("timeout")),
		errs.Transient(errors.New("timeout")),
	)
	repo := &mockMessageRepo{}

	cfg := testQueueConfig()
	cfg.RetryDelay = 200 * time.Millisecond

	queue := NewQueue(cfg, sender, repo)
	defer queue.Shutdown()

	require.NoError(t, queue.Enqueue(outboundMessage("s1", "slow")))
	require.NoError(t, queue.Enqueue(outboundMessage("s2", "fast")))

	waitFor(t, func() bool {
		for _, id := range sender.deliveredIDs() {
			if id == "fast" {
				return true
			}
		}
		return false
	})

	delivered := sender.deliveredIDs()
	assert.Equal(t, "fast", delivered[0])
}

func TestQueueDepth(t *testing.T) {
	repo := &mockMessageRepo{}
	queue := NewQueue(testQueueConfig(), newFakeSender(), repo)
	defer queue.Shutdown()

	assert.Equal(t, 0, queue.Depth("unknown"))
}

func TestEnqueueBulkStopsAtFirstError(t *testing.T) {
	sender := newFakeSender()
	repo := &mockMessageRepo{}

	queue := NewQueue(testQueueConfig(), sender, repo)
	defer queue.Shutdown()

	batch := []*models.Message{
		outboundMessage("s1", "b1"),
		outboundMessage("s1", "b2"),
		outboundMessage("s1", "b3"),
	}

	queued, err := queue.EnqueueBulk(batch)
	require.NoError(t, err)
	assert.Equal(t, 3, queued)

	waitFor(t, func() bool { return len(sender.deliveredIDs()) == 3 })
	assert.Equal(t, []string{"b1", "b2", "b3"}, sender.deliveredIDs())
}
