package repositories

import "github.com/jmoiron/sqlx"

// Repositories agrupa todos os repositórios sobre a mesma conexão
type Repositories struct {
	Organizations OrganizationRepository
	Sessions      SessionRepository
	Messages      MessageRepository
	Groups        GroupRepository
	WebhookLogs   WebhookLogRepository
	Usage         UsageRepository
}

func New(db *sqlx.DB) *Repositories {
	return &Repositories{
		Organizations: NewOrganizationRepository(db),
		Sessions:      NewSessionRepository(db),
		Messages:      NewMessageRepository(db),
		Groups:        NewGroupRepository(db),
		WebhookLogs:   NewWebhookLogRepository(db),
		Usage:         NewUsageRepository(db),
	}
}
