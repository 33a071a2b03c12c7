package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/felipe/zapgateway/internal/db/models"
	"github.com/felipe/zapgateway/internal/errs"
)

// GroupRepository define as operações de persistência de grupos
type GroupRepository interface {
	Upsert(ctx context.Context, group *models.Group) error
	GetByJID(ctx context.Context, sessionID, groupJID string) (*models.Group, error)
	ListBySession(ctx context.Context, sessionID string) ([]*models.Group, error)
	Delete(ctx context.Context, sessionID, groupJID string) error
}

type groupRepository struct {
	db *sqlx.DB
}

func NewGroupRepository(db *sqlx.DB) GroupRepository {
	return &groupRepository{db: db}
}

// Upsert insere ou atualiza o grupo pela chave (session_id, group_jid)
func (r *groupRepository) Upsert(ctx context.Context, group *models.Group) error {
	query := `
		INSERT INTO groups (session_id, group_jid, name, description, participant_count, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, group_jid) DO UPDATE
		SET name = EXCLUDED.name,
		    description = EXCLUDED.description,
		    participant_count = EXCLUDED.participant_count,
		    is_admin = EXCLUDED.is_admin,
		    updated_at = NOW()
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		group.SessionID,
		group.GroupJID,
		group.Name,
		group.Description,
		group.ParticipantCount,
		group.IsAdmin,
	).Scan(&group.ID, &group.CreatedAt, &group.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert group: %w", err)
	}

	return nil
}

func (r *groupRepository) GetByJID(ctx context.Context, sessionID, groupJID string) (*models.Group, error) {
	group := &models.Group{}
	query := `SELECT * FROM groups WHERE session_id = $1 AND group_jid = $2`

	err := r.db.GetContext(ctx, group, query, sessionID, groupJID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", groupJID, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	return group, nil
}

func (r *groupRepository) ListBySession(ctx context.Context, sessionID string) ([]*models.Group, error) {
	groups := []*models.Group{}
	query := `SELECT * FROM groups WHERE session_id = $1 ORDER BY name`

	if err := r.db.SelectContext(ctx, &groups, query, sessionID); err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	return groups, nil
}

func (r *groupRepository) Delete(ctx context.Context, sessionID, groupJID string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM groups WHERE session_id = $1 AND group_jid = $2`,
		sessionID, groupJID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete group: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("group %s: %w", groupJID, errs.ErrNotFound)
	}

	return nil
}
