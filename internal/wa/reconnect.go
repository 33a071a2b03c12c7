package wa

import (
	"context"
	"sync"
	"time"

	"go.mau.fi/whatsmeow/types/events"

	"github.com/felipe/zapgateway/internal/config"
	"github.com/felipe/zapgateway/internal/db/repositories"
	"github.com/felipe/zapgateway/internal/logger"
)

// CloseReason classifica por que uma conexão caiu; a classe decide a
// política de reconexão.
type CloseReason int

const (
	// CloseTransient cobre quedas de rede e erros recuperáveis
	CloseTransient CloseReason = iota
	// CloseLoggedOut significa que o usuário desvinculou o device;
	// reconectar é inútil até novo pareamento por QR
	CloseLoggedOut
	// CloseRateLimited indica corte por excesso de conexões; o retry
	// usa um atraso fixo longo em vez do backoff exponencial
	CloseRateLimited
	// CloseIntentional é um desligamento pedido pela aplicação
	CloseIntentional
)

func (r CloseReason) String() string {
	switch r {
	case CloseLoggedOut:
		return "logged_out"
	case CloseRateLimited:
		return "rate_limited"
	case CloseIntentional:
		return "intentional"
	default:
		return "transient"
	}
}

// ClassifyClose mapeia eventos de desconexão do whatsmeow para uma
// CloseReason
func ClassifyClose(evt interface{}) CloseReason {
	switch e := evt.(type) {
	case *events.LoggedOut:
		return CloseLoggedOut
	case *events.TemporaryBan:
		return CloseRateLimited
	case *events.StreamError:
		if e.Code == "429" {
			return CloseRateLimited
		}
		return CloseTransient
	case *events.ConnectFailure:
		if e.Reason.IsLoggedOut() {
			return CloseLoggedOut
		}
		if e.Reason == events.ConnectFailureTempBanned {
			return CloseRateLimited
		}
		return CloseTransient
	default:
		return CloseTransient
	}
}

// BackoffDelay calcula o atraso exponencial da tentativa n (1-based):
// base, 2*base, 4*base... limitado a max.
func BackoffDelay(attempt int, base, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}

	if delay > max {
		return max
	}
	return delay
}

// AttemptFunc tenta reconectar a sessão; erro agenda nova tentativa
type AttemptFunc func(ctx context.Context, sessionID string) error

// GiveUpFunc é chamada quando a sessão esgota as tentativas ou é
// deslogada remotamente
type GiveUpFunc func(ctx context.Context, sessionID string, reason CloseReason)

// Reconnector agenda reconexões com backoff exponencial por sessão.
// Há no máximo um timer pendente por sessão: quedas repetidas durante
// a espera não acumulam tentativas extras.
type Reconnector struct {
	cfg      *config.WhatsAppConfig
	sessions repositories.SessionRepository
	attempt  AttemptFunc
	giveUp   GiveUpFunc
	log      logger.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

func NewReconnector(
	cfg *config.WhatsAppConfig,
	sessions repositories.SessionRepository,
	attempt AttemptFunc,
	giveUp GiveUpFunc,
) *Reconnector {
	return &Reconnector{
		cfg:      cfg,
		sessions: sessions,
		attempt:  attempt,
		giveUp:   giveUp,
		log:      logger.ForComponent("reconnector"),
		timers:   make(map[string]*time.Timer),
	}
}

// Schedule agenda uma tentativa de reconexão de acordo com a causa da
// queda. Chamadas repetidas enquanto um timer está pendente são
// ignoradas.
func (r *Reconnector) Schedule(ctx context.Context, sessionID string, reason CloseReason) {
	log := logger.GetWithSession(sessionID)

	switch reason {
	case CloseIntentional:
		return

	case CloseLoggedOut:
		log.Info().Msg("Session logged out remotely, not reconnecting")
		r.Cancel(sessionID)
		r.giveUp(ctx, sessionID, reason)
		return
	}

	// O whatsmeow emite mais de um evento de fechamento para a mesma
	// queda (Disconnected, StreamError, ConnectFailure). Um timer
	// pendente absorve as repetições antes de qualquer contagem.
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	if _, pending := r.timers[sessionID]; pending {
		r.mu.Unlock()
		return
	}
	r.timers[sessionID] = nil
	r.mu.Unlock()

	attempts, err := r.sessions.IncrementReconnectAttempts(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to record reconnect attempt")
		r.Cancel(sessionID)
		return
	}

	if attempts > r.cfg.ReconnectMaxAttempts {
		log.Warn().Int("attempts", attempts).Msg("Reconnect attempts exhausted, giving up")
		r.Cancel(sessionID)
		r.giveUp(ctx, sessionID, reason)
		return
	}

	delay := BackoffDelay(attempts, r.cfg.ReconnectBaseDelay, r.cfg.ReconnectMaxDelay)
	if reason == CloseRateLimited {
		delay = r.cfg.RateLimitDelay
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		delete(r.timers, sessionID)
		return
	}

	log.Info().
		Int("attempt", attempts).
		Dur("delay", delay).
		Str("reason", reason.String()).
		Msg("Scheduling reconnect")

	r.timers[sessionID] = time.AfterFunc(delay, func() {
		r.fire(sessionID)
	})
}

// Cancel descarta o timer pendente da sessão, se houver
func (r *Reconnector) Cancel(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if timer, ok := r.timers[sessionID]; ok {
		if timer != nil {
			timer.Stop()
		}
		delete(r.timers, sessionID)
	}
}

// Close cancela todos os timers pendentes
func (r *Reconnector) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed = true
	for sessionID, timer := range r.timers {
		if timer != nil {
			timer.Stop()
		}
		delete(r.timers, sessionID)
	}
}

func (r *Reconnector) fire(sessionID string) {
	r.mu.Lock()
	delete(r.timers, sessionID)
	closed := r.closed
	r.mu.Unlock()

	if closed {
		return
	}

	ctx := context.Background()
	if err := r.attempt(ctx, sessionID); err != nil {
		logger.GetWithSession(sessionID).Warn().Err(err).Msg("Reconnect attempt failed")
		r.Schedule(ctx, sessionID, CloseTransient)
	}
}
