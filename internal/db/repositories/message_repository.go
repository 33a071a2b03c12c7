package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/felipe/zapgateway/internal/db/models"
	"github.com/felipe/zapgateway/internal/errs"
	"github.com/felipe/zapgateway/internal/logger"
)

// MessageFilter restringe listagens de mensagens
type MessageFilter struct {
	SessionID string
	Direction models.MessageDirection
	Limit     int
	Offset    int
}

// MessageRepository define as operações de persistência de mensagens
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id string) (*models.Message, error)
	List(ctx context.Context, orgID string, filter MessageFilter) ([]*models.Message, error)
	UpdateStatus(ctx context.Context, sessionID, messageID string, status models.MessageStatus) error
	MarkSynced(ctx context.Context, id string, crmMessageID *string) error
	ListPendingCrmSync(ctx context.Context, orgID string, limit int) ([]*models.Message, error)
}

type messageRepository struct {
	db  *sqlx.DB
	log logger.Logger
}

func NewMessageRepository(db *sqlx.DB) MessageRepository {
	return &messageRepository{
		db:  db,
		log: logger.ForComponent("message_repository"),
	}
}

// Create insere a mensagem; reentregas do mesmo (message_id, session_id)
// retornam errs.ErrDuplicate e não criam nova linha
func (r *messageRepository) Create(ctx context.Context, message *models.Message) error {
	query := `
		INSERT INTO messages (
			session_id, organization_id, message_id, direction,
			from_number, to_number, message_type, content, status,
			is_group_message, group_jid, timestamp
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		message.SessionID,
		message.OrganizationID,
		message.MessageID,
		message.Direction,
		message.FromNumber,
		message.ToNumber,
		message.MessageType,
		message.Content,
		message.Status,
		message.IsGroupMessage,
		message.GroupJID,
		message.Timestamp,
	).Scan(&message.ID, &message.CreatedAt, &message.UpdatedAt)

	if isUniqueViolation(err) {
		return fmt.Errorf("message %s/%s: %w", message.SessionID, message.MessageID, errs.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

func (r *messageRepository) GetByID(ctx context.Context, id string) (*models.Message, error) {
	message := &models.Message{}
	query := `SELECT * FROM messages WHERE id = $1`

	err := r.db.GetContext(ctx, message, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("message %s: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}

	return message, nil
}

func (r *messageRepository) List(ctx context.Context, orgID string, filter MessageFilter) ([]*models.Message, error) {
	query := `SELECT * FROM messages WHERE organization_id = $1`
	args := []interface{}{orgID}

	if filter.SessionID != "" {
		args = append(args, filter.SessionID)
		query += fmt.Sprintf(" AND session_id = $%d", len(args))
	}
	if filter.Direction != "" {
		args = append(args, filter.Direction)
		query += fmt.Sprintf(" AND direction = $%d", len(args))
	}

	query += " ORDER BY timestamp DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	messages := []*models.Message{}
	if err := r.db.SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	return messages, nil
}

func (r *messageRepository) UpdateStatus(ctx context.Context, sessionID, messageID string, status models.MessageStatus) error {
	query := `
		UPDATE messages
		SET status = $3, updated_at = NOW()
		WHERE session_id = $1 AND message_id = $2`

	result, err := r.db.ExecContext(ctx, query, sessionID, messageID, status)
	if err != nil {
		return fmt.Errorf("failed to update message status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("message %s/%s: %w", sessionID, messageID, errs.ErrNotFound)
	}

	return nil
}

// MarkSynced marca a mensagem como sincronizada com o CRM após uma
// entrega de webhook confirmada
func (r *messageRepository) MarkSynced(ctx context.Context, id string, crmMessageID *string) error {
	query := `
		UPDATE messages
		SET synced_to_crm = TRUE, crm_message_id = $2, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, crmMessageID)
	if err != nil {
		return fmt.Errorf("failed to mark message synced: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("message %s: %w", id, errs.ErrNotFound)
	}

	return nil
}

// ListPendingCrmSync retorna mensagens inbound ainda não entregues ao
// CRM, mais antigas primeiro, para o job de backfill. Mensagens com
// entrega esgotada (status failed) ficam de fora.
func (r *messageRepository) ListPendingCrmSync(ctx context.Context, orgID string, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		limit = 100
	}

	messages := []*models.Message{}
	query := `
		SELECT * FROM messages
		WHERE organization_id = $1
		  AND direction = 'inbound'
		  AND synced_to_crm = FALSE
		  AND status != 'failed'
		ORDER BY created_at ASC
		LIMIT $2`

	if err := r.db.SelectContext(ctx, &messages, query, orgID, limit); err != nil {
		return nil, fmt.Errorf("failed to list pending sync messages: %w", err)
	}

	return messages, nil
}
