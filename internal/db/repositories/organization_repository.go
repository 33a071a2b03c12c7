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

// OrganizationRepository define as operações de persistência de organizações
type OrganizationRepository interface {
	Create(ctx context.Context, org *models.Organization) error
	GetByID(ctx context.Context, id string) (*models.Organization, error)
	GetByOwner(ctx context.Context, ownerUserID string) (*models.Organization, error)
	ListWithWebhook(ctx context.Context) ([]*models.Organization, error)
	UpdateWebhookConfig(ctx context.Context, id string, webhookURL, crmAPIKey, crmLocationID *string) error
	UpdateTier(ctx context.Context, id string, tier models.SubscriptionTier, maxAccounts, maxMessages int) error
}

type organizationRepository struct {
	db *sqlx.DB
}

func NewOrganizationRepository(db *sqlx.DB) OrganizationRepository {
	return &organizationRepository{db: db}
}

func (r *organizationRepository) Create(ctx context.Context, org *models.Organization) error {
	query := `
		INSERT INTO organizations (name, owner_user_id, tier, max_accounts, max_messages_per_month)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		org.Name,
		org.OwnerUserID,
		org.Tier,
		org.MaxAccounts,
		org.MaxMessagesPerMonth,
	).Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}

	return nil
}

func (r *organizationRepository) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	org := &models.Organization{}
	query := `SELECT * FROM organizations WHERE id = $1`

	err := r.db.GetContext(ctx, org, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("organization %s: %w", id, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return org, nil
}

func (r *organizationRepository) GetByOwner(ctx context.Context, ownerUserID string) (*models.Organization, error) {
	org := &models.Organization{}
	query := `SELECT * FROM organizations WHERE owner_user_id = $1`

	err := r.db.GetContext(ctx, org, query, ownerUserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("organization for user %s: %w", ownerUserID, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return org, nil
}

// ListWithWebhook retorna as organizações com webhook de CRM
// configurado, para o job de backfill
func (r *organizationRepository) ListWithWebhook(ctx context.Context) ([]*models.Organization, error) {
	orgs := []*models.Organization{}
	query := `SELECT * FROM organizations WHERE webhook_url IS NOT NULL AND webhook_url != ''`

	if err := r.db.SelectContext(ctx, &orgs, query); err != nil {
		return nil, fmt.Errorf("failed to list organizations with webhook: %w", err)
	}

	return orgs, nil
}

func (r *organizationRepository) UpdateWebhookConfig(ctx context.Context, id string, webhookURL, crmAPIKey, crmLocationID *string) error {
	query := `
		UPDATE organizations
		SET webhook_url = $2, crm_api_key = $3, crm_location_id = $4, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, webhookURL, crmAPIKey, crmLocationID)
	if err != nil {
		return fmt.Errorf("failed to update webhook config: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("organization %s: %w", id, errs.ErrNotFound)
	}

	return nil
}

func (r *organizationRepository) UpdateTier(ctx context.Context, id string, tier models.SubscriptionTier, maxAccounts, maxMessages int) error {
	query := `
		UPDATE organizations
		SET tier = $2, max_accounts = $3, max_messages_per_month = $4, updated_at = NOW()
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, tier, maxAccounts, maxMessages)
	if err != nil {
		return fmt.Errorf("failed to update tier: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("organization %s: %w", id, errs.ErrNotFound)
	}

	return nil
}
