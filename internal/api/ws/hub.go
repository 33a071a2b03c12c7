package ws

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/felipe/zapgateway/internal/api/middleware"
	"github.com/felipe/zapgateway/internal/db/models"
	"github.com/felipe/zapgateway/internal/db/repositories"
	"github.com/felipe/zapgateway/internal/events"
	"github.com/felipe/zapgateway/internal/logger"
	"github.com/felipe/zapgateway/internal/wa"
)

// clientCommand é o que o frontend envia pelo socket
type clientCommand struct {
	Event     string `json:"event"`
	SessionID string `json:"sessionId"`
}

// serverFrame é o que o servidor envia para a sala
type serverFrame struct {
	Event     string      `json:"event"`
	SessionID string      `json:"sessionId"`
	Data      interface{} `json:"data"`
}

// Hub faz a ponte entre o barramento de eventos e os sockets do
// frontend. Uma conexão entra em salas por sessão via join_session,
// pode acompanhar várias ao mesmo tempo e sai com leave_session;
// cada sala entrega qr_updated, connection_status e new_message.
type Hub struct {
	bus      *events.Bus
	sessions repositories.SessionRepository
	log      logger.Logger
}

func NewHub(bus *events.Bus, sessions repositories.SessionRepository) *Hub {
	return &Hub{
		bus:      bus,
		sessions: sessions,
		log:      logger.ForComponent("ws_hub"),
	}
}

// Upgrade só aceita requisições de upgrade WebSocket
func (h *Hub) Upgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// Handler é o endpoint WebSocket
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(h.serve)
}

func (h *Hub) serve(conn *websocket.Conn) {
	defer conn.Close()

	org, _ := conn.Locals(middleware.LocalOrganization).(*models.Organization)
	if org == nil {
		_ = conn.WriteJSON(serverFrame{Event: "error", Data: "unauthorized"})
		return
	}

	cmds := make(chan clientCommand, 4)
	done := make(chan struct{})
	go h.readLoop(conn, cmds, done)

	rooms := newRooms(h.bus)
	defer rooms.Close()

	for {
		select {
		case <-done:
			return

		case cmd := <-cmds:
			switch cmd.Event {
			case "join_session":
				if !h.ownsSession(org, cmd.SessionID) {
					_ = conn.WriteJSON(serverFrame{Event: "error", SessionID: cmd.SessionID, Data: "session not found"})
					continue
				}
				rooms.Join(cmd.SessionID)
				_ = conn.WriteJSON(serverFrame{Event: "joined", SessionID: cmd.SessionID})

			case "leave_session":
				rooms.Leave(cmd.SessionID)
				_ = conn.WriteJSON(serverFrame{Event: "left", SessionID: cmd.SessionID})
			}

		case event := <-rooms.Events():
			if err := conn.WriteJSON(translate(event)); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readLoop(conn *websocket.Conn, cmds chan<- clientCommand, done chan<- struct{}) {
	defer close(done)

	for {
		var cmd clientCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}

		if cmd.SessionID == "" {
			continue
		}

		select {
		case cmds <- cmd:
		default:
		}
	}
}

func (h *Hub) ownsSession(org *models.Organization, sessionID string) bool {
	if !models.ValidSessionID(sessionID) {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	session, err := h.sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		return false
	}
	return session.OrganizationID == org.ID
}

// translate converte eventos do barramento para o contrato do frontend
func translate(event events.Event) serverFrame {
	frame := serverFrame{SessionID: event.SessionID}

	switch event.Topic {
	case events.TopicQR:
		frame.Event = "qr_updated"
		if payload, ok := event.Payload.(wa.QRPayload); ok {
			frame.Data = fiber.Map{"qr": payload.DataURL}
		}

	case events.TopicConnectionStatus:
		frame.Event = "connection_status"
		if payload, ok := event.Payload.(wa.StatusPayload); ok {
			data := fiber.Map{"status": payload.Status}
			if payload.PhoneNumber != "" {
				data["phoneNumber"] = payload.PhoneNumber
			}
			frame.Data = data
		}

	case events.TopicMessage:
		frame.Event = "new_message"
		if message, ok := event.Payload.(*models.Message); ok {
			frame.Data = fiber.Map{
				"from":      message.FromNumber,
				"message":   message.Text(),
				"timestamp": message.Timestamp,
			}
		}

	case events.TopicGroupUpdate:
		frame.Event = "group_update"
		frame.Data = event.Payload

	default:
		frame.Event = string(event.Topic)
		frame.Data = event.Payload
	}

	return frame
}
