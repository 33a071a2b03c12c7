package repositories

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/felipe/zapgateway/internal/db/models"
)

// WebhookLogRepository registra tentativas de entrega de webhook.
// O log é append-only: cada tentativa gera uma linha nova.
type WebhookLogRepository interface {
	Append(ctx context.Context, entry *models.WebhookLog) error
	ListByMessage(ctx context.Context, messageID string) ([]*models.WebhookLog, error)
	ListByOrganization(ctx context.Context, orgID string, limit int) ([]*models.WebhookLog, error)
}

type webhookLogRepository struct {
	db *sqlx.DB
}

func NewWebhookLogRepository(db *sqlx.DB) WebhookLogRepository {
	return &webhookLogRepository{db: db}
}

func (r *webhookLogRepository) Append(ctx context.Context, entry *models.WebhookLog) error {
	query := `
		INSERT INTO webhook_logs (
			organization_id, message_id, url, payload,
			status_code, response_body, retry_count, status, error_message
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := r.db.QueryRowxContext(ctx, query,
		entry.OrganizationID,
		entry.MessageID,
		entry.URL,
		entry.Payload,
		entry.StatusCode,
		entry.ResponseBody,
		entry.RetryCount,
		entry.Status,
		entry.ErrorMessage,
	).Scan(&entry.ID, &entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to append webhook log: %w", err)
	}

	return nil
}

func (r *webhookLogRepository) ListByMessage(ctx context.Context, messageID string) ([]*models.WebhookLog, error) {
	logs := []*models.WebhookLog{}
	query := `SELECT * FROM webhook_logs WHERE message_id = $1 ORDER BY created_at`

	if err := r.db.SelectContext(ctx, &logs, query, messageID); err != nil {
		return nil, fmt.Errorf("failed to list webhook logs: %w", err)
	}

	return logs, nil
}

func (r *webhookLogRepository) ListByOrganization(ctx context.Context, orgID string, limit int) ([]*models.WebhookLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	logs := []*models.WebhookLog{}
	query := `
		SELECT * FROM webhook_logs
		WHERE organization_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	if err := r.db.SelectContext(ctx, &logs, query, orgID, limit); err != nil {
		return nil, fmt.Errorf("failed to list webhook logs: %w", err)
	}

	return logs, nil
}
