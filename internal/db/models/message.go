package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MessageDirection indica a origem de uma mensagem
type MessageDirection string

const (
	DirectionInbound  MessageDirection = "inbound"
	DirectionOutbound MessageDirection = "outbound"
)

// MessageStatus representa o ciclo de vida de uma mensagem
type MessageStatus string

const (
	MessageStatusPending   MessageStatus = "pending"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
	MessageStatusFailed    MessageStatus = "failed"
)

// MessageType é o tipo do conteúdo; apenas text é aceito para envio
type MessageType string

const (
	MessageTypeText     MessageType = "text"
	MessageTypeImage    MessageType = "image"
	MessageTypeAudio    MessageType = "audio"
	MessageTypeVideo    MessageType = "video"
	MessageTypeDocument MessageType = "document"
)

// Message representa uma mensagem persistida, inbound ou outbound.
// (message_id, session_id) é único.
type Message struct {
	ID             uuid.UUID        `json:"id" db:"id"`
	SessionID      string           `json:"session_id" db:"session_id"`
	OrganizationID uuid.UUID        `json:"organization_id" db:"organization_id"`
	MessageID      string           `json:"message_id" db:"message_id"`
	Direction      MessageDirection `json:"direction" db:"direction"`
	FromNumber     string           `json:"from_number" db:"from_number"`
	ToNumber       string           `json:"to_number" db:"to_number"`
	MessageType    MessageType      `json:"message_type" db:"message_type"`
	Content        JSONB            `json:"content" db:"content"`
	Status         MessageStatus    `json:"status" db:"status"`
	IsGroupMessage bool             `json:"is_group_message" db:"is_group_message"`
	GroupJID       *string          `json:"group_jid,omitempty" db:"group_jid"`
	SyncedToCrm    bool             `json:"synced_to_crm" db:"synced_to_crm"`
	CrmMessageID   *string          `json:"crm_message_id,omitempty" db:"crm_message_id"`
	Timestamp      time.Time        `json:"timestamp" db:"timestamp"`
	CreatedAt      time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at" db:"updated_at"`
}

// Text extrai o corpo textual do conteúdo estruturado
func (m *Message) Text() string {
	if m.Content == nil {
		return ""
	}
	if text, ok := m.Content["text"].(string); ok {
		return text
	}
	return ""
}

type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return nil
	}

	return json.Unmarshal(b, j)
}
