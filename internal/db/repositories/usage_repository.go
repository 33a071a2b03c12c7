package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/felipe/zapgateway/internal/db/models"
)

// UsageRepository acumula contadores mensais de uso por organização
type UsageRepository interface {
	IncrementSent(ctx context.Context, orgID string, at time.Time, delta int) error
	IncrementReceived(ctx context.Context, orgID string, at time.Time, delta int) error
	IncrementAPICalls(ctx context.Context, orgID string, at time.Time, delta int) error
	SetActiveSessions(ctx context.Context, orgID string, at time.Time, count int) error
	GetForPeriod(ctx context.Context, orgID string, at time.Time) (*models.UsageRecord, error)
}

type usageRepository struct {
	db *sqlx.DB
}

func NewUsageRepository(db *sqlx.DB) UsageRepository {
	return &usageRepository{db: db}
}

// increment faz o upsert atômico do contador do período corrente. O
// ON CONFLICT garante uma única linha por (organization_id, period_start)
// mesmo sob escrita concorrente.
func (r *usageRepository) increment(ctx context.Context, orgID string, at time.Time, column string, delta int) error {
	query := fmt.Sprintf(`
		INSERT INTO usage_records (organization_id, period_start, %s)
		VALUES ($1, $2, $3)
		ON CONFLICT (organization_id, period_start) DO UPDATE
		SET %s = usage_records.%s + EXCLUDED.%s,
		    updated_at = NOW()`,
		column, column, column, column,
	)

	if _, err := r.db.ExecContext(ctx, query, orgID, models.PeriodStartFor(at), delta); err != nil {
		return fmt.Errorf("failed to increment %s: %w", column, err)
	}

	return nil
}

func (r *usageRepository) IncrementSent(ctx context.Context, orgID string, at time.Time, delta int) error {
	return r.increment(ctx, orgID, at, "messages_sent", delta)
}

func (r *usageRepository) IncrementReceived(ctx context.Context, orgID string, at time.Time, delta int) error {
	return r.increment(ctx, orgID, at, "messages_received", delta)
}

func (r *usageRepository) IncrementAPICalls(ctx context.Context, orgID string, at time.Time, delta int) error {
	return r.increment(ctx, orgID, at, "api_calls", delta)
}

func (r *usageRepository) SetActiveSessions(ctx context.Context, orgID string, at time.Time, count int) error {
	query := `
		INSERT INTO usage_records (organization_id, period_start, active_sessions)
		VALUES ($1, $2, $3)
		ON CONFLICT (organization_id, period_start) DO UPDATE
		SET active_sessions = EXCLUDED.active_sessions,
		    updated_at = NOW()`

	if _, err := r.db.ExecContext(ctx, query, orgID, models.PeriodStartFor(at), count); err != nil {
		return fmt.Errorf("failed to set active sessions: %w", err)
	}

	return nil
}

// GetForPeriod retorna o registro do período; um registro zerado quando
// a organização ainda não tem uso no mês
func (r *usageRepository) GetForPeriod(ctx context.Context, orgID string, at time.Time) (*models.UsageRecord, error) {
	record := &models.UsageRecord{}
	query := `
		SELECT * FROM usage_records
		WHERE organization_id = $1 AND period_start = $2`

	err := r.db.GetContext(ctx, record, query, orgID, models.PeriodStartFor(at))
	if errors.Is(err, sql.ErrNoRows) {
		record.PeriodStart = models.PeriodStartFor(at)
		return record, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get usage record: %w", err)
	}

	return record, nil
}
