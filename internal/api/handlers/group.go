package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

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

// GroupHandler expõe as operações de grupo. Rotas de listagem e
// criação são endereçadas pela sessão; as demais pelo JID do grupo,
// com a sessão no corpo.
type GroupHandler struct {
	supervisor *wa.Supervisor
	queue      *outbox.Queue
	guard      *usage.Guard
	messages   repositories.MessageRepository
	sessions   repositories.SessionRepository
}

func NewGroupHandler(
	supervisor *wa.Supervisor,
	queue *outbox.Queue,
	guard *usage.Guard,
	messages repositories.MessageRepository,
	sessions repositories.SessionRepository,
) *GroupHandler {
	return &GroupHandler{
		supervisor: supervisor,
		queue:      queue,
		guard:      guard,
		messages:   messages,
		sessions:   sessions,
	}
}

// List sincroniza e retorna os grupos da sessão
func (h *GroupHandler) List(c *fiber.Ctx) error {
	session, err := h.ownedSession(c, c.Params("session_id"))
	if err != nil {
		return fail(c, err)
	}

	groups, err := h.supervisor.SyncGroups(c.Context(), session.SessionID)
	if err != nil {
		return fail(c, err)
	}

	views := make([]dto.GroupView, 0, len(groups))
	for _, group := range groups {
		views = append(views, dto.NewGroupView(group))
	}

	return c.JSON(views)
}

// Create cria um grupo com os participantes informados
func (h *GroupHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateGroupRequest
	if err := validators.ParseAndValidate(c, &req); err != nil {
		return fail(c, err)
	}

	session, err := h.ownedSession(c, c.Params("session_id"))
	if err != nil {
		return fail(c, err)
	}

	group, err := h.supervisor.CreateGroup(c.Context(), session.SessionID, req.Name, req.Participants)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"group":   dto.NewGroupView(group),
	})
}

// AddParticipants adiciona números ao grupo
func (h *GroupHandler) AddParticipants(c *fiber.Ctx) error {
	return h.participantChange(c, h.supervisor.AddParticipants)
}

// RemoveParticipant remove números do grupo
func (h *GroupHandler) RemoveParticipant(c *fiber.Ctx) error {
	return h.participantChange(c, h.supervisor.RemoveParticipants)
}

// Promote dá admin aos números informados
func (h *GroupHandler) Promote(c *fiber.Ctx) error {
	return h.participantChange(c, h.supervisor.PromoteParticipants)
}

// Demote revoga admin dos números informados
func (h *GroupHandler) Demote(c *fiber.Ctx) error {
	return h.participantChange(c, h.supervisor.DemoteParticipants)
}

func (h *GroupHandler) participantChange(
	c *fiber.Ctx,
	op func(ctx context.Context, sessionID, groupJID string, participants []string) error,
) error {
	var req dto.ParticipantsRequest
	if err := validators.ParseAndValidate(c, &req); err != nil {
		return fail(c, err)
	}

	session, err := h.ownedSession(c, req.SessionID)
	if err != nil {
		return fail(c, err)
	}

	if err := op(c.Context(), session.SessionID, c.Params("jid"), req.Participants); err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// Leave sai do grupo e apaga o registro local
func (h *GroupHandler) Leave(c *fiber.Ctx) error {
	var req dto.ParticipantsRequest
	if err := c.BodyParser(&req); err != nil || req.SessionID == "" {
		return fail(c, errs.Validation("session_id", "session_id is required"))
	}

	session, err := h.ownedSession(c, req.SessionID)
	if err != nil {
		return fail(c, err)
	}

	if err := h.supervisor.LeaveGroup(c.Context(), session.SessionID, c.Params("jid")); err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// Detail busca os dados atuais do grupo no WhatsApp
func (h *GroupHandler) Detail(c *fiber.Ctx) error {
	session, err := h.ownedSession(c, c.Query("session_id"))
	if err != nil {
		return fail(c, err)
	}

	group, err := h.supervisor.GroupDetail(c.Context(), session.SessionID, c.Params("jid"))
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(dto.NewGroupView(group))
}

// Participants lista os membros atuais do grupo
func (h *GroupHandler) Participants(c *fiber.Ctx) error {
	session, err := h.ownedSession(c, c.Query("session_id"))
	if err != nil {
		return fail(c, err)
	}

	participants, err := h.supervisor.ListParticipants(c.Context(), session.SessionID, c.Params("jid"))
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"participants": participants})
}

// Settings ajusta as opções announce/locked do grupo
func (h *GroupHandler) Settings(c *fiber.Ctx) error {
	var req dto.GroupSettingsRequest
	if err := validators.ParseAndValidate(c, &req); err != nil {
		return fail(c, err)
	}

	session, err := h.ownedSession(c, req.SessionID)
	if err != nil {
		return fail(c, err)
	}

	settings := wa.GroupSettings{Announce: req.Announce, Locked: req.Locked}
	if err := h.supervisor.UpdateGroupSettings(c.Context(), session.SessionID, c.Params("jid"), settings); err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// Broadcast enfileira uma mensagem individual para cada membro do
// grupo, exceto a própria sessão. Os envios passam pela fila normal e
// respeitam o limite de ritmo.
func (h *GroupHandler) Broadcast(c *fiber.Ctx) error {
	var req dto.BroadcastRequest
	if err := validators.ParseAndValidate(c, &req); err != nil {
		return fail(c, err)
	}

	org := middleware.OrganizationFrom(c)
	session, err := h.ownedSession(c, req.SessionID)
	if err != nil {
		return fail(c, err)
	}

	if err := h.guard.CheckMessageQuota(c.Context(), org); err != nil {
		return fail(c, err)
	}

	numbers, err := h.supervisor.MemberNumbers(c.Context(), session.SessionID, c.Params("jid"))
	if err != nil {
		return fail(c, err)
	}

	queued := 0
	skipped := 0
	for _, number := range numbers {
		message := h.outboundTo(session, number, req.Message)
		if err := h.messages.Create(c.Context(), message); err != nil {
			skipped++
			continue
		}
		if err := h.queue.Enqueue(message); err != nil {
			skipped += len(numbers) - queued - skipped
			break
		}
		queued++
	}

	return c.JSON(dto.BroadcastResponse{
		Success: queued > 0,
		Queued:  queued,
		Skipped: skipped,
	})
}

func (h *GroupHandler) outboundTo(session *models.Session, to, text string) *models.Message {
	from := ""
	if session.PhoneNumber != nil {
		from = *session.PhoneNumber
	}

	return &models.Message{
		SessionID:      session.SessionID,
		OrganizationID: session.OrganizationID,
		MessageID:      uuid.New().String(),
		Direction:      models.DirectionOutbound,
		FromNumber:     from,
		ToNumber:       to,
		MessageType:    models.MessageTypeText,
		Content:        models.JSONB{"text": text},
		Status:         models.MessageStatusPending,
		Timestamp:      time.Now().UTC(),
	}
}

func (h *GroupHandler) ownedSession(c *fiber.Ctx, sessionID string) (*models.Session, error) {
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
