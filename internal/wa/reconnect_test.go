package wa

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/felipe/zapgateway/internal/config"
	"github.com/felipe/zapgateway/internal/db/repositories"
)

func TestBackoffDelay(t *testing.T) {
	base := 5 * time.Second
	max := 300 * time.Second

	expected := []time.Duration{
		5 * time.Second,
		10 * time.Second,
		20 * time.Second,
		40 * time.Second,
		80 * time.Second,
		160 * time.Second,
	}

	for i, want := range expected {
		attempt := i + 1
		assert.Equal(t, want, BackoffDelay(attempt, base, max), "attempt %d", attempt)
	}

	// A partir daqui o teto segura
	assert.Equal(t, max, BackoffDelay(7, base, max))
	assert.Equal(t, max, BackoffDelay(20, base, max))
}

func TestBackoffDelayEdgeCases(t *testing.T) {
	base := 5 * time.Second
	max := 300 * time.Second

	assert.Equal(t, base, BackoffDelay(0, base, max))
	assert.Equal(t, base, BackoffDelay(-3, base, max))

	// max menor que base nunca devolve acima do teto
	assert.Equal(t, 2*time.Second, BackoffDelay(1, 5*time.Second, 2*time.Second))
}

func TestClassifyClose(t *testing.T) {
	tests := []struct {
		name string
		evt  interface{}
		want CloseReason
	}{
		{"logged out", &events.LoggedOut{}, CloseLoggedOut},
		{"temporary ban", &events.TemporaryBan{}, CloseRateLimited},
		{"stream 429", &events.StreamError{Code: "429"}, CloseRateLimited},
		{"stream other", &events.StreamError{Code: "515"}, CloseTransient},
		{"plain disconnect", &events.Disconnected{}, CloseTransient},
		{"connect failure temp ban", &events.ConnectFailure{Reason: events.ConnectFailureTempBanned}, CloseRateLimited},
		{"connect failure logged out", &events.ConnectFailure{Reason: events.ConnectFailureLoggedOut}, CloseLoggedOut},
		{"unknown event", struct{}{}, CloseTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyClose(tt.evt))
		})
	}
}

type fakeReconnectSessions struct {
	repositories.SessionRepository

	mu       sync.Mutex
	attempts int
}

func (f *fakeReconnectSessions) IncrementReconnectAttempts(ctx context.Context, sessionID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	return f.attempts, nil
}

func (f *fakeReconnectSessions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func reconnectTestConfig() *config.WhatsAppConfig {
	return &config.WhatsAppConfig{
		ReconnectBaseDelay:   time.Hour,
		ReconnectMaxDelay:    2 * time.Hour,
		ReconnectMaxAttempts: 5,
		RateLimitDelay:       time.Hour,
	}
}

// Uma queda gera vários eventos de fechamento; só a primeira chamada
// pode contar como tentativa enquanto o timer está pendente
func TestScheduleDebouncesWhilePending(t *testing.T) {
	sessions := &fakeReconnectSessions{}
	gaveUp := false

	r := NewReconnector(reconnectTestConfig(), sessions,
		func(ctx context.Context, sessionID string) error { return nil },
		func(ctx context.Context, sessionID string, reason CloseReason) { gaveUp = true },
	)
	defer r.Close()

	for i := 0; i < 6; i++ {
		r.Schedule(context.Background(), "s1", CloseTransient)
	}

	assert.Equal(t, 1, sessions.count())
	assert.False(t, gaveUp)
}

func TestScheduleCountsAgainAfterCancel(t *testing.T) {
	sessions := &fakeReconnectSessions{}

	r := NewReconnector(reconnectTestConfig(), sessions,
		func(ctx context.Context, sessionID string) error { return nil },
		func(ctx context.Context, sessionID string, reason CloseReason) {},
	)
	defer r.Close()

	r.Schedule(context.Background(), "s1", CloseTransient)
	r.Cancel("s1")
	r.Schedule(context.Background(), "s1", CloseTransient)

	assert.Equal(t, 2, sessions.count())
}

func TestScheduleGivesUpAfterMaxAttempts(t *testing.T) {
	sessions := &fakeReconnectSessions{}
	gaveUp := false

	cfg := reconnectTestConfig()
	cfg.ReconnectMaxAttempts = 2

	r := NewReconnector(cfg, sessions,
		func(ctx context.Context, sessionID string) error { return nil },
		func(ctx context.Context, sessionID string, reason CloseReason) { gaveUp = true },
	)
	defer r.Close()

	for i := 0; i < 3; i++ {
		r.Schedule(context.Background(), "s1", CloseTransient)
		r.Cancel("s1")
	}

	assert.Equal(t, 3, sessions.count())
	assert.True(t, gaveUp)
}

func TestScheduleLoggedOutSkipsCounting(t *testing.T) {
	sessions := &fakeReconnectSessions{}
	var gotReason CloseReason
	gaveUp := false

	r := NewReconnector(reconnectTestConfig(), sessions,
		func(ctx context.Context, sessionID string) error { return nil },
		func(ctx context.Context, sessionID string, reason CloseReason) {
			gaveUp = true
			gotReason = reason
		},
	)
	defer r.Close()

	r.Schedule(context.Background(), "s1", CloseLoggedOut)

	assert.True(t, gaveUp)
	assert.Equal(t, CloseLoggedOut, gotReason)
	assert.Equal(t, 0, sessions.count())
}

func TestScheduleIntentionalIsNoop(t *testing.T) {
	sessions := &fakeReconnectSessions{}
	gaveUp := false

	r := NewReconnector(reconnectTestConfig(), sessions,
		func(ctx context.Context, sessionID string) error { return nil },
		func(ctx context.Context, sessionID string, reason CloseReason) { gaveUp = true },
	)
	defer r.Close()

	r.Schedule(context.Background(), "s1", CloseIntentional)

	assert.Equal(t, 0, sessions.count())
	assert.False(t, gaveUp)
}

func TestCloseReasonString(t *testing.T) {
	assert.Equal(t, "transient", CloseTransient.String())
	assert.Equal(t, "logged_out", CloseLoggedOut.String())
	assert.Equal(t, "rate_limited", CloseRateLimited.String())
	assert.Equal(t, "intentional", CloseIntentional.String())
}
