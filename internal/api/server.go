package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/felipe/zapgateway/internal/api/handlers"
	"github.com/felipe/zapgateway/internal/api/middleware"
	"github.com/felipe/zapgateway/internal/api/ws"
	"github.com/felipe/zapgateway/internal/config"
	"github.com/felipe/zapgateway/internal/db"
	"github.com/felipe/zapgateway/internal/db/repositories"
	"github.com/felipe/zapgateway/internal/events"
	"github.com/felipe/zapgateway/internal/logger"
	"github.com/felipe/zapgateway/internal/outbox"
	"github.com/felipe/zapgateway/internal/usage"
	"github.com/felipe/zapgateway/internal/wa"
)

// Server é o servidor HTTP e WebSocket da API
type Server struct {
	app    *fiber.App
	config *config.Config
	log    logger.Logger

	auth     *middleware.AuthMiddleware
	health   *handlers.HealthHandler
	sessions *handlers.SessionHandler
	messages *handlers.MessageHandler
	groups   *handlers.GroupHandler
	hub      *ws.Hub
}

func NewServer(
	cfg *config.Config,
	database *db.DB,
	repos *repositories.Repositories,
	bus *events.Bus,
	supervisor *wa.Supervisor,
	queue *outbox.Queue,
	guard *usage.Guard,
	meter *usage.Meter,
) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "ZapGateway API",
		ServerHeader: "ZapGateway/1.0",
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			return c.Status(code).JSON(fiber.Map{
				"error":     "INTERNAL_ERROR",
				"message":   err.Error(),
				"code":      code,
				"timestamp": time.Now().Unix(),
			})
		},
	})

	return &Server{
		app:      app,
		config:   cfg,
		log:      logger.ForComponent("api_server"),
		auth:     middleware.NewAuthMiddleware(&cfg.Auth, repos.Organizations),
		health:   handlers.NewHealthHandler(database, supervisor),
		sessions: handlers.NewSessionHandler(supervisor, queue, repos.Sessions),
		messages: handlers.NewMessageHandler(queue, supervisor, guard, meter, repos.Messages, repos.Sessions),
		groups:   handlers.NewGroupHandler(supervisor, queue, guard, repos.Messages, repos.Sessions),
		hub:      ws.NewHub(bus, repos.Sessions),
	}
}

// SetupRoutes configura todas as rotas da API
func (s *Server) SetupRoutes() {
	s.app.Use(recover.New())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: s.config.Server.FrontendURL,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	s.app.Use(middleware.RequestLogger())

	api := s.app.Group("/api")

	api.Get("/health", s.health.Health)

	// Tudo abaixo exige bearer token
	api.Use(s.auth.RequireAuth())

	sessions := api.Group("/sessions")
	sessions.Post("/create", s.sessions.Create)
	sessions.Get("/", s.sessions.List)
	sessions.Get("/:id/status", s.sessions.Status)
	sessions.Get("/:id/qr", s.sessions.QRCode)
	sessions.Post("/:id/connect", s.sessions.Connect)
	sessions.Post("/:id/disconnect", s.sessions.Disconnect)
	sessions.Post("/:id/logout", s.sessions.Logout)
	sessions.Delete("/:id", s.sessions.Delete)

	messages := api.Group("/messages")
	messages.Post("/:session_id/send", s.messages.Send)
	messages.Post("/:session_id/send/now", s.messages.SendNow)
	messages.Post("/:session_id/send/bulk", s.messages.SendBulk)
	messages.Get("/:session_id", s.messages.List)

	groups := api.Group("/groups")
	groups.Get("/:session_id/groups", s.groups.List)
	groups.Post("/:session_id/create", s.groups.Create)
	groups.Get("/:jid/info", s.groups.Detail)
	groups.Get("/:jid/participants", s.groups.Participants)
	groups.Post("/:jid/add-participants", s.groups.AddParticipants)
	groups.Post("/:jid/remove-participant", s.groups.RemoveParticipant)
	groups.Post("/:jid/promote", s.groups.Promote)
	groups.Post("/:jid/demote", s.groups.Demote)
	groups.Post("/:jid/settings", s.groups.Settings)
	groups.Post("/:jid/leave", s.groups.Leave)
	groups.Post("/:jid/broadcast", s.groups.Broadcast)

	api.Use("/ws", s.hub.Upgrade())
	api.Get("/ws", s.hub.Handler())

	s.log.Info().Msg("API routes configured")
}

// Start inicia o servidor HTTP; bloqueia até Shutdown
func (s *Server) Start() error {
	s.SetupRoutes()

	address := s.config.GetServerAddress()
	s.log.Info().Str("address", address).Msg("Starting HTTP server")

	return s.app.Listen(address)
}

// Stop encerra o servidor aceitando as requisições em andamento
func (s *Server) Stop() error {
	s.log.Info().Msg("Stopping HTTP server")
	return s.app.ShutdownWithTimeout(10 * time.Second)
}

// App retorna a instância do Fiber, usada nos testes de handler
func (s *Server) App() *fiber.App {
	return s.app
}
