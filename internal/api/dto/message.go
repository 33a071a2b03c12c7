package dto

import (
	"time"

	"github.com/felipe/zapgateway/internal/db/models"
)

// SendMessageRequest é o corpo de POST /api/messages/:session_id/send
type SendMessageRequest struct {
	To      string `json:"to" validate:"required"`
	Message string `json:"message" validate:"required,max=65536"`
}

// SendBulkRequest enfileira várias mensagens de uma vez
type SendBulkRequest struct {
	Messages []SendMessageRequest `json:"messages" validate:"required,min=1,max=100,dive"`
}

// SendMessageResponse confirma o enfileiramento
type SendMessageResponse struct {
	Success    bool   `json:"success"`
	MessageID  string `json:"message_id"`
	Status     string `json:"status"`
	QueueDepth int    `json:"queue_depth"`
}

// SendBulkResponse informa quantas mensagens entraram na fila
type SendBulkResponse struct {
	Success  bool     `json:"success"`
	Queued   int      `json:"queued"`
	Rejected int      `json:"rejected"`
	IDs      []string `json:"message_ids"`
}

// MessageView é a visão de uma mensagem em listagens
type MessageView struct {
	ID          string    `json:"id"`
	WaMessageID string    `json:"wa_message_id"`
	Direction   string    `json:"direction"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Type        string    `json:"type"`
	Text        string    `json:"text"`
	Status      string    `json:"status"`
	IsGroup     bool      `json:"is_group"`
	GroupJID    string    `json:"group_jid,omitempty"`
	SyncedToCrm bool      `json:"synced_to_crm"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewMessageView converte o modelo para a visão da API
func NewMessageView(message *models.Message) MessageView {
	view := MessageView{
		ID:          message.ID.String(),
		WaMessageID: message.MessageID,
		Direction:   string(message.Direction),
		From:        message.FromNumber,
		To:          message.ToNumber,
		Type:        string(message.MessageType),
		Text:        message.Text(),
		Status:      string(message.Status),
		IsGroup:     message.IsGroupMessage,
		SyncedToCrm: message.SyncedToCrm,
		Timestamp:   message.Timestamp,
	}
	if message.GroupJID != nil {
		view.GroupJID = *message.GroupJID
	}
	return view
}
