package webhook

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felipe/zapgateway/internal/db/models"
)

func strPtr(s string) *string { return &s }

func TestBuildEnvelopeInbound(t *testing.T) {
	orgID := uuid.New()
	msgID := uuid.New()
	ts := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	message := &models.Message{
		ID:             msgID,
		SessionID:      "loja-centro",
		OrganizationID: orgID,
		MessageID:      "3EB0ABC123",
		Direction:      models.DirectionInbound,
		FromNumber:     "55 (11) 99999-9999",
		ToNumber:       "+5511888888888",
		MessageType:    models.MessageTypeText,
		Content:        models.JSONB{"text": "oi, tudo bem?"},
		Timestamp:      ts,
	}

	envelope := BuildEnvelope(message)

	assert.Equal(t, "whatsapp_message", envelope.Type)
	assert.False(t, envelope.Timestamp.IsZero())
	assert.Equal(t, msgID.String(), envelope.Data.ID)
	assert.Equal(t, "3EB0ABC123", envelope.Data.MessageID)
	assert.Equal(t, "loja-centro", envelope.Data.SessionID)
	assert.Equal(t, orgID.String(), envelope.Data.OrganizationID)
	assert.Equal(t, "inbound", envelope.Data.Direction)
	assert.Equal(t, "+5511999999999", envelope.Data.From)
	assert.Equal(t, "+5511888888888", envelope.Data.To)
	assert.Equal(t, "oi, tudo bem?", envelope.Data.Message)
	assert.Equal(t, "text", envelope.Data.MessageType)
	assert.False(t, envelope.Data.IsGroupMessage)
	assert.Equal(t, ts, envelope.Data.Timestamp)
}

// O JSON é contrato com o CRM: chaves em camelCase e a mensagem dentro
// de data
func TestEnvelopeWireFormat(t *testing.T) {
	message := &models.Message{
		Direction:   models.DirectionInbound,
		MessageID:   "3EB0WIRE",
		FromNumber:  "5511999999999",
		ToNumber:    "5511888888888",
		MessageType: models.MessageTypeText,
		Content:     models.JSONB{"text": "oi"},
	}

	raw, err := json.Marshal(BuildEnvelope(message))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, "whatsapp_message", decoded["type"])
	assert.Contains(t, decoded, "timestamp")

	data, ok := decoded["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "+5511999999999", data["from"])
	assert.Equal(t, "+5511888888888", data["to"])
	assert.Equal(t, "oi", data["message"])
	assert.Equal(t, "3EB0WIRE", data["messageId"])
	assert.Equal(t, "text", data["messageType"])
	assert.Equal(t, false, data["isGroupMessage"])
	assert.NotContains(t, data, "groupJid")
}

func TestBuildEnvelopeGroupJIDPassesThrough(t *testing.T) {
	groupJID := "120363001234567890@g.us"
	message := &models.Message{
		Direction:      models.DirectionInbound,
		FromNumber:     "5511999999999",
		ToNumber:       groupJID,
		IsGroupMessage: true,
		GroupJID:       &groupJID,
	}

	envelope := BuildEnvelope(message)

	// JID de grupo não é número de telefone: fica intacto
	assert.Equal(t, groupJID, envelope.Data.To)
	assert.Equal(t, groupJID, envelope.Data.GroupJID)
	assert.True(t, envelope.Data.IsGroupMessage)
	assert.Equal(t, "+5511999999999", envelope.Data.From)
}

func TestBuildEnvelopeOutboundDirection(t *testing.T) {
	message := &models.Message{
		Direction:  models.DirectionOutbound,
		FromNumber: "+5511999999999",
		ToNumber:   "+5511888888888",
	}

	envelope := BuildEnvelope(message)
	assert.Equal(t, "whatsapp_message", envelope.Type)
	assert.Equal(t, "outbound", envelope.Data.Direction)
}
