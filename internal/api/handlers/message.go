package handlers

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.mau.fi/whatsmeow/types"

	"github.com/felipe/zapgateway/internal/api/dto"
	"github.com/felipe/zapgateway/internal/api/middleware"
	"github.com/felipe/zapgateway/internal/api/validators"
	"github.com/felipe/zapgateway/internal/db/models"
	"github.com/felipe/zapgateway/internal/db/repositories"
	"github.com/felipe/zapgateway/internal/errs"
	"github.com/felipe/zapgateway/internal/outbox"
	"github.com/felipe/zapgateway/internal/usage"
	"github.com/felipe/zapgateway/internal/wa"
)

// MessageHandler expõe envio e consulta de mensagens
type MessageHandler struct {
	queue    *outbox.Queue
	sender   outbox.Sender
	guard    *usage.Guard
	meter    *usage.Meter
	messages repositories.MessageRepository
	sessions repositories.SessionRepository
}

func NewMessageHandler(
	queue *outbox.Queue,
	sender outbox.Sender,
	guard *usage.Guard,
	meter *usage.Meter,
	messages repositories.MessageRepository,
	sessions repositories.SessionRepository,
) *MessageHandler {
	return &MessageHandler{
		queue:    queue,
		sender:   sender,
		guard:    guard,
		meter:    meter,
		messages: messages,
		sessions: sessions,
	}
}

// Send valida, persiste com status pending e enfileira o envio. A
// resposta confirma o enfileiramento, não a entrega.
func (h *MessageHandler) Send(c *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := validators.ParseAndValidate(c, &req); err != nil {
		return fail(c, err)
	}

	org := middleware.OrganizationFrom(c)
	session, err := h.ownedSession(c)
	if err != nil {
		return fail(c, err)
	}

	if err := h.guard.CheckMessageQuota(c.Context(), org); err != nil {
		return fail(c, err)
	}

	message, err := h.buildOutbound(session, req.To, req.Message)
	if err != nil {
		return fail(c, err)
	}

	if err := h.messages.Create(c.Context(), message); err != nil {
		return fail(c, err)
	}

	if err := h.queue.Enqueue(message); err != nil {
		return fail(c, err)
	}

	h.meter.APICall(c.Context(), org.ID.String())

	return c.JSON(dto.SendMessageResponse{
		Success:    true,
		MessageID:  message.MessageID,
		Status:     string(models.MessageStatusPending),
		QueueDepth: h.queue.Depth(session.SessionID),
	})
}

// SendNow entrega a mensagem na hora, sem passar pela fila nem pelo
// token bucket da sessão. É a rota de emergência: uso frequente expõe
// o número ao bloqueio do WhatsApp, a cota mensal continua valendo.
func (h *MessageHandler) SendNow(c *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := validators.ParseAndValidate(c, &req); err != nil {
		return fail(c, err)
	}

	org := middleware.OrganizationFrom(c)
	session, err := h.ownedSession(c)
	if err != nil {
		return fail(c, err)
	}

	if err := h.guard.CheckMessageQuota(c.Context(), org); err != nil {
		return fail(c, err)
	}

	message, err := h.buildOutbound(session, req.To, req.Message)
	if err != nil {
		return fail(c, err)
	}

	if err := h.messages.Create(c.Context(), message); err != nil {
		return fail(c, err)
	}

	if err := h.sender.Deliver(c.Context(), message); err != nil {
		return fail(c, err)
	}

	h.meter.APICall(c.Context(), org.ID.String())

	return c.JSON(dto.SendMessageResponse{
		Success:   true,
		MessageID: message.MessageID,
		Status:    string(models.MessageStatusSent),
	})
}

// SendBulk enfileira até 100 mensagens preservando a ordem do corpo
func (h *MessageHandler) SendBulk(c *fiber.Ctx) error {
	var req dto.SendBulkRequest
	if err := validators.ParseAndValidate(c, &req); err != nil {
		return fail(c, err)
	}

	org := middleware.OrganizationFrom(c)
	session, err := h.ownedSession(c)
	if err != nil {
		return fail(c, err)
	}

	if err := h.guard.CheckMessageQuota(c.Context(), org); err != nil {
		return fail(c, err)
	}

	ids := make([]string, 0, len(req.Messages))
	queued := 0

	for _, item := range req.Messages {
		message, err := h.buildOutbound(session, item.To, item.Message)
		if err != nil {
			continue
		}
		if err := h.messages.Create(c.Context(), message); err != nil {
			continue
		}
		if err := h.queue.Enqueue(message); err != nil {
			break
		}
		ids = append(ids, message.MessageID)
		queued++
	}

	h.meter.APICall(c.Context(), org.ID.String())

	return c.JSON(dto.SendBulkResponse{
		Success:  queued > 0,
		Queued:   queued,
		Rejected: len(req.Messages) - queued,
		IDs:      ids,
	})
}

// List retorna as mensagens da sessão, mais recentes primeiro
func (h *MessageHandler) List(c *fiber.Ctx) error {
	org := middleware.OrganizationFrom(c)
	session, err := h.ownedSession(c)
	if err != nil {
		return fail(c, err)
	}

	filter := repositories.MessageFilter{
		SessionID: session.SessionID,
		Limit:     c.QueryInt("limit", 50),
		Offset:    c.QueryInt("offset", 0),
	}
	if direction := c.Query("direction"); direction != "" {
		filter.Direction = models.MessageDirection(direction)
	}

	messages, err := h.messages.List(c.Context(), org.ID.String(), filter)
	if err != nil {
		return fail(c, err)
	}

	views := make([]dto.MessageView, 0, len(messages))
	for _, message := range messages {
		views = append(views, dto.NewMessageView(message))
	}

	return c.JSON(views)
}

func (h *MessageHandler) buildOutbound(session *models.Session, to, text string) (*models.Message, error) {
	isGroup := strings.HasSuffix(to, "@"+types.GroupServer)

	toNumber := to
	if !isGroup {
		normalized, err := wa.NormalizeE164(to)
		if err != nil {
			return nil, err
		}
		toNumber = normalized
	}

	from := ""
	if session.PhoneNumber != nil {
		from = *session.PhoneNumber
	}

	message := &models.Message{
		SessionID:      session.SessionID,
		OrganizationID: session.OrganizationID,
		MessageID:      uuid.New().String(),
		Direction:      models.DirectionOutbound,
		FromNumber:     from,
		ToNumber:       toNumber,
		MessageType:    models.MessageTypeText,
		Content:        models.JSONB{"text": text},
		Status:         models.MessageStatusPending,
		IsGroupMessage: isGroup,
		Timestamp:      time.Now().UTC(),
	}

	if isGroup {
		groupJID := to
		message.GroupJID = &groupJID
	}

	return message, nil
}

func (h *MessageHandler) ownedSession(c *fiber.Ctx) (*models.Session, error) {
	sessionID := c.Params("session_id")
	if !models.ValidSessionID(sessionID) {
		return nil, errs.Validation("session_id", "invalid session id")
	}

	session, err := h.sessions.GetBySessionID(c.Context(), sessionID)
	if err != nil {
		return nil, err
	}

	org := middleware.OrganizationFrom(c)
	if session.OrganizationID != org.ID {
		return nil, fmt.Errorf("session %s: %w", sessionID, errs.ErrNotFound)
	}

	return session, nil
}
