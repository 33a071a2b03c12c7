package models

import (
	"time"

	"github.com/google/uuid"
)

// Group representa um grupo WhatsApp visto por uma sessão.
// (session_id, group_jid) é único.
type Group struct {
	ID               uuid.UUID `json:"id" db:"id"`
	SessionID        string    `json:"session_id" db:"session_id"`
	GroupJID         string    `json:"group_jid" db:"group_jid"`
	Name             string    `json:"name" db:"name"`
	Description      *string   `json:"description,omitempty" db:"description"`
	ParticipantCount int       `json:"participant_count" db:"participant_count"`
	IsAdmin          bool      `json:"is_admin" db:"is_admin"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}
