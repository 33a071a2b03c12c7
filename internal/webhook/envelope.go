package webhook

import (
	"time"

	"github.com/felipe/zapgateway/internal/db/models"
	"github.com/felipe/zapgateway/internal/wa"
)

const envelopeType = "whatsapp_message"

// EnvelopeData é a visão canônica da mensagem dentro do envelope
type EnvelopeData struct {
	ID             string    `json:"id"`
	MessageID      string    `json:"messageId"`
	SessionID      string    `json:"sessionId"`
	OrganizationID string    `json:"organizationId"`
	Direction      string    `json:"direction"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	Message        string    `json:"message"`
	MessageType    string    `json:"messageType"`
	IsGroupMessage bool      `json:"isGroupMessage"`
	GroupJID       string    `json:"groupJid,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Envelope é o corpo enviado ao webhook do CRM. O formato é estável:
// consumidores dependem de type, timestamp e dos campos de data.
type Envelope struct {
	Type      string       `json:"type"`
	Timestamp time.Time    `json:"timestamp"`
	Data      EnvelopeData `json:"data"`
}

// BuildEnvelope monta o envelope canônico de uma mensagem. Números são
// normalizados para E.164; valores que não são números de telefone
// (JIDs de grupo) passam intactos.
func BuildEnvelope(message *models.Message) *Envelope {
	envelope := &Envelope{
		Type:      envelopeType,
		Timestamp: time.Now().UTC(),
		Data: EnvelopeData{
			ID:             message.ID.String(),
			MessageID:      message.MessageID,
			SessionID:      message.SessionID,
			OrganizationID: message.OrganizationID.String(),
			Direction:      string(message.Direction),
			From:           normalizeNumber(message.FromNumber),
			To:             normalizeNumber(message.ToNumber),
			Message:        message.Text(),
			MessageType:    string(message.MessageType),
			IsGroupMessage: message.IsGroupMessage,
			Timestamp:      message.Timestamp.UTC(),
		},
	}

	if message.GroupJID != nil {
		envelope.Data.GroupJID = *message.GroupJID
	}

	return envelope
}

func normalizeNumber(value string) string {
	normalized, err := wa.NormalizeE164(value)
	if err != nil {
		return value
	}
	return normalized
}
