package dto

import (
	"time"

	"github.com/felipe/zapgateway/internal/db/models"
)

// CreateSessionRequest é o corpo de POST /api/sessions/create
type CreateSessionRequest struct {
	SessionID    string `json:"session_id" validate:"required,max=100"`
	UserID       string `json:"user_id" validate:"omitempty,max=100"`
	SubAccountID string `json:"sub_account_id" validate:"omitempty,max=100"`
}

// CreateSessionResponse confirma a criação da sessão
type CreateSessionResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
}

// SessionSummary é um item de GET /api/sessions
type SessionSummary struct {
	SessionID   string    `json:"sessionId"`
	Status      string    `json:"status"`
	PhoneNumber string    `json:"phoneNumber,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// SessionStatusResponse é o corpo de GET /api/sessions/:id/status
type SessionStatusResponse struct {
	SessionID         string     `json:"session_id"`
	Status            string     `json:"status"`
	Connected         bool       `json:"connected"`
	PhoneNumber       string     `json:"phone_number,omitempty"`
	QueueDepth        int        `json:"queue_depth"`
	ReconnectAttempts int        `json:"reconnect_attempts"`
	LastSeenAt        *time.Time `json:"last_seen_at,omitempty"`
	ErrorMessage      string     `json:"error_message,omitempty"`
}

// NewSessionSummary converte o modelo para a visão da API
func NewSessionSummary(session *models.Session) SessionSummary {
	summary := SessionSummary{
		SessionID: session.SessionID,
		Status:    string(session.Status),
		CreatedAt: session.CreatedAt,
	}
	if session.PhoneNumber != nil {
		summary.PhoneNumber = *session.PhoneNumber
	}
	return summary
}
