package webhook

import (
	"context"
	"time"

	"github.com/felipe/zapgateway/internal/config"
	"github.com/felipe/zapgateway/internal/db/repositories"
	"github.com/felipe/zapgateway/internal/logger"
)

// Backfill varre periodicamente as mensagens inbound que ainda não
// chegaram ao CRM e tenta entregá-las de novo. É a rede de segurança
// do caminho em tempo real: garante entrega eventual enquanto a
// organização tiver webhook configurado.
type Backfill struct {
	cfg        *config.WebhookConfig
	orgs       repositories.OrganizationRepository
	messages   repositories.MessageRepository
	dispatcher *Dispatcher
	log        logger.Logger
}

func NewBackfill(cfg *config.WebhookConfig, repos *repositories.Repositories, dispatcher *Dispatcher) *Backfill {
	return &Backfill{
		cfg:        cfg,
		orgs:       repos.Organizations,
		messages:   repos.Messages,
		dispatcher: dispatcher,
		log:        logger.ForComponent("webhook_backfill"),
	}
}

// Run roda o ciclo de backfill até o ctx encerrar. Deve rodar em
// goroutine própria.
func (b *Backfill) Run(ctx context.Context) {
	ticker := time.NewTicker(b.cfg.BackfillEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.RunOnce(ctx)
		}
	}
}

// RunOnce processa um ciclo de backfill para todas as organizações com
// webhook. Falha em uma organização não bloqueia as demais.
func (b *Backfill) RunOnce(ctx context.Context) {
	orgs, err := b.orgs.ListWithWebhook(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("Failed to list organizations for backfill")
		return
	}

	for _, org := range orgs {
		pending, err := b.messages.ListPendingCrmSync(ctx, org.ID.String(), b.cfg.BackfillLimit)
		if err != nil {
			b.log.Error().Err(err).
				Str("organization_id", org.ID.String()).
				Msg("Failed to list pending messages")
			continue
		}

		if len(pending) == 0 {
			continue
		}

		b.log.Info().
			Str("organization_id", org.ID.String()).
			Int("pending", len(pending)).
			Msg("Backfilling unsynced messages")

		for _, message := range pending {
			if ctx.Err() != nil {
				return
			}

			if err := b.dispatcher.Dispatch(ctx, message); err != nil {
				b.log.Warn().Err(err).
					Str("message_id", message.MessageID).
					Msg("Backfill delivery failed, will retry next cycle")
				// CRM provavelmente fora do ar; próxima organização
				break
			}
		}
	}
}
