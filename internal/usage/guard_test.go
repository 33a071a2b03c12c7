package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felipe/zapgateway/internal/db/models"
	"github.com/felipe/zapgateway/internal/db/repositories"
	"github.com/felipe/zapgateway/internal/errs"
)

// Os fakes embutem a interface e implementam só o que o guard usa

type fakeSessionRepo struct {
	repositories.SessionRepository
	count int
	err   error
}

func (f *fakeSessionRepo) CountByOrganization(ctx context.Context, orgID string) (int, error) {
	return f.count, f.err
}

type fakeUsageRepo struct {
	repositories.UsageRepository
	record *models.UsageRecord
	err    error
}

func (f *fakeUsageRepo) GetForPeriod(ctx context.Context, orgID string, at time.Time) (*models.UsageRecord, error) {
	return f.record, f.err
}

func testOrg(maxAccounts, maxMessages int) *models.Organization {
	return &models.Organization{
		ID:                  uuid.New(),
		Tier:                models.TierStarter,
		MaxAccounts:         maxAccounts,
		MaxMessagesPerMonth: maxMessages,
	}
}

func TestCheckSessionQuotaUnderLimit(t *testing.T) {
	guard := NewGuard(nil, &fakeSessionRepo{count: 2}, nil)

	err := guard.CheckSessionQuota(context.Background(), testOrg(3, 1000))
	assert.NoError(t, err)
}

func TestCheckSessionQuotaAtLimit(t *testing.T) {
	guard := NewGuard(nil, &fakeSessionRepo{count: 3}, nil)

	err := guard.CheckSessionQuota(context.Background(), testOrg(3, 1000))
	require.Error(t, err)

	limitErr, ok := errs.AsLimitExceeded(err)
	require.True(t, ok)
	assert.Equal(t, "accounts", limitErr.Resource)
	assert.Equal(t, 3, limitErr.Current)
	assert.Equal(t, 3, limitErr.Limit)
}

func TestCheckSessionQuotaRepositoryError(t *testing.T) {
	guard := NewGuard(nil, &fakeSessionRepo{err: errors.New("connection refused")}, nil)

	err := guard.CheckSessionQuota(context.Background(), testOrg(3, 1000))
	require.Error(t, err)

	_, ok := errs.AsLimitExceeded(err)
	assert.False(t, ok)
}

func TestCheckMessageQuotaUnderLimit(t *testing.T) {
	guard := NewGuard(nil, nil, &fakeUsageRepo{record: &models.UsageRecord{MessagesSent: 999}})

	err := guard.CheckMessageQuota(context.Background(), testOrg(3, 1000))
	assert.NoError(t, err)
}

func TestCheckMessageQuotaAtLimit(t *testing.T) {
	guard := NewGuard(nil, nil, &fakeUsageRepo{record: &models.UsageRecord{MessagesSent: 1000}})

	err := guard.CheckMessageQuota(context.Background(), testOrg(3, 1000))
	require.Error(t, err)

	limitErr, ok := errs.AsLimitExceeded(err)
	require.True(t, ok)
	assert.Equal(t, "messages", limitErr.Resource)
	assert.Equal(t, 1000, limitErr.Current)
	assert.Equal(t, 1000, limitErr.Limit)
}

func TestCheckMessageQuotaFreshPeriod(t *testing.T) {
	// Período sem registro ainda: contadores zerados liberam o envio
	guard := NewGuard(nil, nil, &fakeUsageRepo{record: &models.UsageRecord{}})

	err := guard.CheckMessageQuota(context.Background(), testOrg(3, 1000))
	assert.NoError(t, err)
}
