package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/felipe/zapgateway/internal/db/models"
	"github.com/felipe/zapgateway/internal/db/repositories"
	"github.com/felipe/zapgateway/internal/errs"
)

// Guard aplica os limites do plano da organização antes de operações
// que consomem cota. As checagens são read-then-act: um excesso
// marginal sob concorrência é aceitável, o corte vale para a próxima
// operação.
type Guard struct {
	orgs     repositories.OrganizationRepository
	sessions repositories.SessionRepository
	usage    repositories.UsageRepository
}

func NewGuard(
	orgs repositories.OrganizationRepository,
	sessions repositories.SessionRepository,
	usage repositories.UsageRepository,
) *Guard {
	return &Guard{
		orgs:     orgs,
		sessions: sessions,
		usage:    usage,
	}
}

// CheckSessionQuota falha com LimitExceededError quando a organização
// já atingiu o máximo de contas WhatsApp do plano
func (g *Guard) CheckSessionQuota(ctx context.Context, org *models.Organization) error {
	count, err := g.sessions.CountByOrganization(ctx, org.ID.String())
	if err != nil {
		return fmt.Errorf("failed to check session quota: %w", err)
	}

	if count >= org.MaxAccounts {
		return errs.LimitExceeded("accounts", count, org.MaxAccounts)
	}

	return nil
}

// CheckMessageQuota falha com LimitExceededError quando a organização
// já atingiu o volume mensal de mensagens enviadas do plano
func (g *Guard) CheckMessageQuota(ctx context.Context, org *models.Organization) error {
	record, err := g.usage.GetForPeriod(ctx, org.ID.String(), time.Now())
	if err != nil {
		return fmt.Errorf("failed to check message quota: %w", err)
	}

	if record.MessagesSent >= org.MaxMessagesPerMonth {
		return errs.LimitExceeded("messages", record.MessagesSent, org.MaxMessagesPerMonth)
	}

	return nil
}
