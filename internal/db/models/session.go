package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// SessionStatus representa os possíveis status de uma sessão
type SessionStatus string

const (
	SessionStatusConnecting   SessionStatus = "connecting"
	SessionStatusConnected    SessionStatus = "connected"
	SessionStatusDisconnected SessionStatus = "disconnected"
	SessionStatusError        SessionStatus = "error"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,100}$`)

// ValidSessionID verifica o formato do identificador público de sessão
func ValidSessionID(sessionID string) bool {
	return sessionIDPattern.MatchString(sessionID)
}

// Session representa uma sessão WhatsApp no banco de dados
type Session struct {
	ID                uuid.UUID     `json:"id" db:"id"`
	SessionID         string        `json:"session_id" db:"session_id"`
	OrganizationID    uuid.UUID     `json:"organization_id" db:"organization_id"`
	PhoneNumber       *string       `json:"phone_number,omitempty" db:"phone_number"`
	Status            SessionStatus `json:"status" db:"status"`
	AuthState         Blob          `json:"-" db:"auth_state"`
	LastQRCode        *string       `json:"-" db:"last_qr_code"`
	LastSeenAt        *time.Time    `json:"last_seen_at,omitempty" db:"last_seen_at"`
	ErrorMessage      *string       `json:"error_message,omitempty" db:"error_message"`
	ReconnectAttempts int           `json:"reconnect_attempts" db:"reconnect_attempts"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" db:"updated_at"`
}

// Validate valida os campos obrigatórios da sessão
func (s *Session) Validate() error {
	if !ValidSessionID(s.SessionID) {
		return fmt.Errorf("invalid session_id %q: must match [A-Za-z0-9_-], max 100 chars", s.SessionID)
	}
	if s.OrganizationID == uuid.Nil {
		return fmt.Errorf("organization_id is required")
	}
	return nil
}

// Blob guarda bytes opacos em uma coluna BYTEA sem interpretá-los
type Blob []byte

func (b Blob) Value() (driver.Value, error) {
	if len(b) == 0 {
		return nil, nil
	}
	return []byte(b), nil
}

func (b *Blob) Scan(value interface{}) error {
	if value == nil {
		*b = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		*b = append((*b)[:0], v...)
		return nil
	case string:
		*b = Blob(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Blob", value)
	}
}

// Metadata representa dados adicionais em formato JSON
type Metadata map[string]interface{}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = make(Metadata)
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, m)
	case string:
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into Metadata", value)
	}
}

// RestorableSession é a projeção usada na restauração pós-restart
type RestorableSession struct {
	SessionID      string    `db:"session_id"`
	OrganizationID uuid.UUID `db:"organization_id"`
	PhoneNumber    *string   `db:"phone_number"`
	AuthState      Blob      `db:"auth_state"`
}
