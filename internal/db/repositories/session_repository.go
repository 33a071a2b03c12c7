package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/felipe/zapgateway/internal/db/models"
	"github.com/felipe/zapgateway/internal/errs"
	"github.com/felipe/zapgateway/internal/logger"
)

// SessionRepository define as operações de persistência de sessões
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	GetBySessionID(ctx context.Context, sessionID string) (*models.Session, error)
	ListByOrganization(ctx context.Context, orgID string) ([]*models.Session, error)
	CountByOrganization(ctx context.Context, orgID string) (int, error)
	UpdateStatus(ctx context.Context, sessionID string, status models.SessionStatus, errorMessage *string) error
	UpdatePhoneNumber(ctx context.Context, sessionID, phoneNumber string) error
	SaveAuthState(ctx context.Context, sessionID string, state models.Blob) error
	LoadAuthState(ctx context.Context, sessionID string) (models.Blob, error)
	ClearAuthState(ctx context.Context, sessionID string) error
	SaveQRCode(ctx context.Context, sessionID, qrCode string) error
	TouchLastSeen(ctx context.Context, sessionID string) error
	IncrementReconnectAttempts(ctx context.Context, sessionID string) (int, error)
	ResetReconnectAttempts(ctx context.Context, sessionID string) error
	ListRestorable(ctx context.Context) ([]*models.RestorableSession, error)
	Delete(ctx context.Context, sessionID string) error
}

const (
	countSessionsQuery = `SELECT COUNT(*) FROM whatsapp_sessions WHERE organization_id = $1 AND status != 'error'`

	updateStatusQuery = `
		UPDATE whatsapp_sessions
		SET status = $2, error_message = $3, last_seen_at = NOW(), updated_at = NOW()
		WHERE session_id = $1`

	listRestorableQuery = `
		SELECT session_id, organization_id, phone_number, auth_state
		FROM whatsapp_sessions
		WHERE auth_state IS NOT NULL
		  AND status IN ('connected', 'connecting')
		ORDER BY created_at`
)

type sessionRepository struct {
	db  *sqlx.DB
	log logger.Logger
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepository{
		db:  db,
		log: logger.ForComponent("session_repository"),
	}
}

func (r *sessionRepository) Create(ctx context.Context, session *models.Session) error {
	if err := session.Validate(); err != nil {
		return errs.Validation("session_id", err.Error())
	}

	query := `
		INSERT INTO whatsapp_sessions (session_id, organization_id, phone_number, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		session.SessionID,
		session.OrganizationID,
		session.PhoneNumber,
		session.Status,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)

	if isUniqueViolation(err) {
		return fmt.Errorf("session %s: %w", session.SessionID, errs.ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

func (r *sessionRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.Session, error) {
	session := &models.Session{}
	query := `SELECT * FROM whatsapp_sessions WHERE session_id = $1`

	err := r.db.GetContext(ctx, session, query, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", sessionID, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

func (r *sessionRepository) ListByOrganization(ctx context.Context, orgID string) ([]*models.Session, error) {
	sessions := []*models.Session{}
	query := `SELECT * FROM whatsapp_sessions WHERE organization_id = $1 ORDER BY created_at`

	if err := r.db.SelectContext(ctx, &sessions, query, orgID); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	return sessions, nil
}

// CountByOrganization conta as sessões vivas da organização. Sessões em
// status error não ocupam vaga da cota de contas: a organização pode
// criar uma substituta.
func (r *sessionRepository) CountByOrganization(ctx context.Context, orgID string) (int, error) {
	var count int

	if err := r.db.GetContext(ctx, &count, countSessionsQuery, orgID); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	return count, nil
}

func (r *sessionRepository) UpdateStatus(ctx context.Context, sessionID string, status models.SessionStatus, errorMessage *string) error {
	return r.exec(ctx, updateStatusQuery, sessionID, status, errorMessage)
}

func (r *sessionRepository) UpdatePhoneNumber(ctx context.Context, sessionID, phoneNumber string) error {
	query := `
		UPDATE whatsapp_sessions
		SET phone_number = $2, updated_at = NOW()
		WHERE session_id = $1`

	return r.exec(ctx, query, sessionID, phoneNumber)
}

func (r *sessionRepository) SaveAuthState(ctx context.Context, sessionID string, state models.Blob) error {
	query := `
		UPDATE whatsapp_sessions
		SET auth_state = $2, updated_at = NOW()
		WHERE session_id = $1`

	return r.exec(ctx, query, sessionID, state)
}

func (r *sessionRepository) LoadAuthState(ctx context.Context, sessionID string) (models.Blob, error) {
	var state models.Blob
	query := `SELECT auth_state FROM whatsapp_sessions WHERE session_id = $1`

	err := r.db.GetContext(ctx, &state, query, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", sessionID, errs.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load auth state: %w", err)
	}

	return state, nil
}

func (r *sessionRepository) ClearAuthState(ctx context.Context, sessionID string) error {
	query := `
		UPDATE whatsapp_sessions
		SET auth_state = NULL, last_qr_code = NULL, updated_at = NOW()
		WHERE session_id = $1`

	return r.exec(ctx, query, sessionID)
}

func (r *sessionRepository) SaveQRCode(ctx context.Context, sessionID, qrCode string) error {
	query := `
		UPDATE whatsapp_sessions
		SET last_qr_code = $2, updated_at = NOW()
		WHERE session_id = $1`

	return r.exec(ctx, query, sessionID, qrCode)
}

func (r *sessionRepository) TouchLastSeen(ctx context.Context, sessionID string) error {
	query := `
		UPDATE whatsapp_sessions
		SET last_seen_at = NOW(), updated_at = NOW()
		WHERE session_id = $1`

	return r.exec(ctx, query, sessionID)
}

func (r *sessionRepository) IncrementReconnectAttempts(ctx context.Context, sessionID string) (int, error) {
	var attempts int
	query := `
		UPDATE whatsapp_sessions
		SET reconnect_attempts = reconnect_attempts + 1, updated_at = NOW()
		WHERE session_id = $1
		RETURNING reconnect_attempts`

	err := r.db.GetContext(ctx, &attempts, query, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("session %s: %w", sessionID, errs.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment reconnect attempts: %w", err)
	}

	return attempts, nil
}

func (r *sessionRepository) ResetReconnectAttempts(ctx context.Context, sessionID string) error {
	query := `
		UPDATE whatsapp_sessions
		SET reconnect_attempts = 0, updated_at = NOW()
		WHERE session_id = $1`

	return r.exec(ctx, query, sessionID)
}

// ListRestorable retorna as sessões com credenciais salvas que estavam
// ativas quando o processo caiu. Sessões em error ou desconectadas de
// propósito não voltam sozinhas, mesmo que o blob de credenciais ainda
// exista.
func (r *sessionRepository) ListRestorable(ctx context.Context) ([]*models.RestorableSession, error) {
	sessions := []*models.RestorableSession{}

	if err := r.db.SelectContext(ctx, &sessions, listRestorableQuery); err != nil {
		return nil, fmt.Errorf("failed to list restorable sessions: %w", err)
	}

	return sessions, nil
}

func (r *sessionRepository) Delete(ctx context.Context, sessionID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM whatsapp_sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("session %s: %w", sessionID, errs.ErrNotFound)
	}

	return nil
}

func (r *sessionRepository) exec(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errs.ErrNotFound
	}

	return nil
}

// isUniqueViolation detecta violação de constraint UNIQUE do PostgreSQL
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
