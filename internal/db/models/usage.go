package models

import (
	"time"

	"github.com/google/uuid"
)

// UsageRecord acumula contadores mensais por organização.
// period_start é sempre o primeiro dia do mês (UTC).
type UsageRecord struct {
	ID               uuid.UUID `json:"id" db:"id"`
	OrganizationID   uuid.UUID `json:"organization_id" db:"organization_id"`
	PeriodStart      time.Time `json:"period_start" db:"period_start"`
	MessagesSent     int       `json:"messages_sent" db:"messages_sent"`
	MessagesReceived int       `json:"messages_received" db:"messages_received"`
	ActiveSessions   int       `json:"active_sessions" db:"active_sessions"`
	APICalls         int       `json:"api_calls" db:"api_calls"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// PeriodStartFor retorna o início do período mensal para um instante
func PeriodStartFor(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
