package models

import (
	"time"

	"github.com/google/uuid"
)

// WebhookLogStatus representa o resultado de uma tentativa de entrega
type WebhookLogStatus string

const (
	WebhookLogPending  WebhookLogStatus = "pending"
	WebhookLogSuccess  WebhookLogStatus = "success"
	WebhookLogFailed   WebhookLogStatus = "failed"
	WebhookLogRetrying WebhookLogStatus = "retrying"
)

// WebhookLog é o registro de auditoria de cada tentativa de entrega
// ao webhook do CRM. Append-only.
type WebhookLog struct {
	ID             uuid.UUID        `json:"id" db:"id"`
	OrganizationID uuid.UUID        `json:"organization_id" db:"organization_id"`
	MessageID      uuid.UUID        `json:"message_id" db:"message_id"`
	URL            string           `json:"url" db:"url"`
	Payload        JSONB            `json:"payload" db:"payload"`
	StatusCode     *int             `json:"status_code,omitempty" db:"status_code"`
	ResponseBody   *string          `json:"response_body,omitempty" db:"response_body"`
	RetryCount     int              `json:"retry_count" db:"retry_count"`
	Status         WebhookLogStatus `json:"status" db:"status"`
	ErrorMessage   *string          `json:"error_message,omitempty" db:"error_message"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
}
