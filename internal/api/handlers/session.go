package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/felipe/zapgateway/internal/api/dto"
	"github.com/felipe/zapgateway/internal/api/middleware"
	"github.com/felipe/zapgateway/internal/api/validators"
	"github.com/felipe/zapgateway/internal/db/models"
	"github.com/felipe/zapgateway/internal/db/repositories"
	"github.com/felipe/zapgateway/internal/errs"
	"github.com/felipe/zapgateway/internal/outbox"
	"github.com/felipe/zapgateway/internal/wa"
)

// SessionHandler expõe o ciclo de vida das sessões WhatsApp
type SessionHandler struct {
	supervisor *wa.Supervisor
	queue      *outbox.Queue
	sessions   repositories.SessionRepository
}

func NewSessionHandler(supervisor *wa.Supervisor, queue *outbox.Queue, sessions repositories.SessionRepository) *SessionHandler {
	return &SessionHandler{
		supervisor: supervisor,
		queue:      queue,
		sessions:   sessions,
	}
}

// Create inicia uma nova sessão e o pareamento por QR
func (h *SessionHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	if err := validators.ParseAndValidate(c, &req); err != nil {
		return fail(c, err)
	}

	org := middleware.OrganizationFrom(c)

	if _, err := h.supervisor.CreateSession(c.Context(), org, req.SessionID); err != nil {
		return fail(c, err)
	}

	return c.JSON(dto.CreateSessionResponse{
		Success:   true,
		SessionID: req.SessionID,
	})
}

// List retorna as sessões da organização
func (h *SessionHandler) List(c *fiber.Ctx) error {
	org := middleware.OrganizationFrom(c)

	sessions, err := h.sessions.ListByOrganization(c.Context(), org.ID.String())
	if err != nil {
		return fail(c, err)
	}

	summaries := make([]dto.SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		summaries = append(summaries, dto.NewSessionSummary(session))
	}

	return c.JSON(summaries)
}

// Status retorna o estado atual da sessão, incluindo profundidade da
// fila de envio
func (h *SessionHandler) Status(c *fiber.Ctx) error {
	session, err := h.ownedSession(c)
	if err != nil {
		return fail(c, err)
	}

	resp := dto.SessionStatusResponse{
		SessionID:         session.SessionID,
		Status:            string(session.Status),
		Connected:         h.supervisor.IsConnected(session.SessionID),
		QueueDepth:        h.queue.Depth(session.SessionID),
		ReconnectAttempts: session.ReconnectAttempts,
		LastSeenAt:        session.LastSeenAt,
	}
	if session.PhoneNumber != nil {
		resp.PhoneNumber = *session.PhoneNumber
	}
	if session.ErrorMessage != nil {
		resp.ErrorMessage = *session.ErrorMessage
	}

	return c.JSON(resp)
}

// Connect reconecta uma sessão existente
func (h *SessionHandler) Connect(c *fiber.Ctx) error {
	session, err := h.ownedSession(c)
	if err != nil {
		return fail(c, err)
	}

	if err := h.supervisor.Connect(c.Context(), session.SessionID); err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// Disconnect derruba a conexão mantendo as credenciais
func (h *SessionHandler) Disconnect(c *fiber.Ctx) error {
	session, err := h.ownedSession(c)
	if err != nil {
		return fail(c, err)
	}

	if err := h.supervisor.Disconnect(c.Context(), session.SessionID); err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// Logout desvincula o device e apaga as credenciais
func (h *SessionHandler) Logout(c *fiber.Ctx) error {
	session, err := h.ownedSession(c)
	if err != nil {
		return fail(c, err)
	}

	if err := h.supervisor.Logout(c.Context(), session.SessionID); err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// Delete remove a sessão e todos os dados dela
func (h *SessionHandler) Delete(c *fiber.Ctx) error {
	session, err := h.ownedSession(c)
	if err != nil {
		return fail(c, err)
	}

	if err := h.supervisor.Delete(c.Context(), session.SessionID); err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"success": true})
}

// QRCode retorna o último QR emitido como data URL
func (h *SessionHandler) QRCode(c *fiber.Ctx) error {
	session, err := h.ownedSession(c)
	if err != nil {
		return fail(c, err)
	}

	dataURL, err := h.supervisor.QRDataURL(c.Context(), session.SessionID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{"qr": dataURL})
}

// ownedSession carrega a sessão da rota e garante que pertence à
// organização autenticada. Sessão de outra organização responde 404.
func (h *SessionHandler) ownedSession(c *fiber.Ctx) (*models.Session, error) {
	sessionID := c.Params("id")
	if sessionID == "" {
		sessionID = c.Params("session_id")
	}
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
