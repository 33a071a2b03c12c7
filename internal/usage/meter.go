package usage

import (
	"context"
	"time"

	"github.com/felipe/zapgateway/internal/db/repositories"
	"github.com/felipe/zapgateway/internal/logger"
)

// Meter registra o uso mensal por organização. Falhas de medição são
// logadas e nunca propagadas: medição não derruba o caminho da mensagem.
type Meter struct {
	usage repositories.UsageRepository
	log   logger.Logger
}

func NewMeter(usage repositories.UsageRepository) *Meter {
	return &Meter{
		usage: usage,
		log:   logger.ForComponent("usage_meter"),
	}
}

func (m *Meter) MessageSent(ctx context.Context, orgID string) {
	if err := m.usage.IncrementSent(ctx, orgID, time.Now(), 1); err != nil {
		m.log.Error().Err(err).Str("organization_id", orgID).Msg("Failed to meter sent message")
	}
}

func (m *Meter) MessageReceived(ctx context.Context, orgID string) {
	if err := m.usage.IncrementReceived(ctx, orgID, time.Now(), 1); err != nil {
		m.log.Error().Err(err).Str("organization_id", orgID).Msg("Failed to meter received message")
	}
}

func (m *Meter) APICall(ctx context.Context, orgID string) {
	if err := m.usage.IncrementAPICalls(ctx, orgID, time.Now(), 1); err != nil {
		m.log.Error().Err(err).Str("organization_id", orgID).Msg("Failed to meter API call")
	}
}

// ActiveSessions registra o pico de sessões ativas do período
func (m *Meter) ActiveSessions(ctx context.Context, orgID string, count int) {
	if err := m.usage.SetActiveSessions(ctx, orgID, time.Now(), count); err != nil {
		m.log.Error().Err(err).Str("organization_id", orgID).Msg("Failed to record active sessions")
	}
}
