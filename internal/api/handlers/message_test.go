package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felipe/zapgateway/internal/api/middleware"
	"github.com/felipe/zapgateway/internal/db/models"
	"github.com/felipe/zapgateway/internal/db/repositories"
	"github.com/felipe/zapgateway/internal/errs"
	"github.com/felipe/zapgateway/internal/usage"
)

type fakeDirectSender struct {
	mu        sync.Mutex
	delivered []*models.Message
	err       error
}

func (f *fakeDirectSender) Deliver(ctx context.Context, message *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.delivered = append(f.delivered, message)
	return nil
}

type fakeHandlerSessions struct {
	repositories.SessionRepository
	session *models.Session
}

func (f *fakeHandlerSessions) GetBySessionID(ctx context.Context, sessionID string) (*models.Session, error) {
	if f.session == nil || f.session.SessionID != sessionID {
		return nil, errs.ErrNotFound
	}
	return f.session, nil
}

func (f *fakeHandlerSessions) CountByOrganization(ctx context.Context, orgID string) (int, error) {
	return 0, nil
}

type fakeHandlerMessages struct {
	repositories.MessageRepository

	mu      sync.Mutex
	created []*models.Message
}

func (f *fakeHandlerMessages) Create(ctx context.Context, message *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, message)
	return nil
}

type fakeHandlerUsage struct {
	repositories.UsageRepository
	sent int
}

func (f *fakeHandlerUsage) GetForPeriod(ctx context.Context, orgID string, at time.Time) (*models.UsageRecord, error) {
	return &models.UsageRecord{MessagesSent: f.sent}, nil
}

func (f *fakeHandlerUsage) IncrementAPICalls(ctx context.Context, orgID string, at time.Time, delta int) error {
	return nil
}

func sendNowApp(t *testing.T, sender *fakeDirectSender, usageRepo *fakeHandlerUsage) (*fiber.App, *fakeHandlerMessages) {
	t.Helper()

	phone := "+5511999999999"
	org := &models.Organization{
		ID:                  uuid.New(),
		MaxAccounts:         3,
		MaxMessagesPerMonth: 1000,
	}
	sessions := &fakeHandlerSessions{session: &models.Session{
		SessionID:      "loja-centro",
		OrganizationID: org.ID,
		PhoneNumber:    &phone,
		Status:         models.SessionStatusConnected,
	}}
	messages := &fakeHandlerMessages{}

	guard := usage.NewGuard(nil, sessions, usageRepo)
	meter := usage.NewMeter(usageRepo)

	// O envio imediato não passa pela fila: queue nil prova isso, um
	// toque na fila derrubaria o teste
	handler := NewMessageHandler(nil, sender, guard, meter, messages, sessions)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalOrganization, org)
		return c.Next()
	})
	app.Post("/api/messages/:session_id/send/now", handler.SendNow)

	return app, messages
}

func postSendNow(t *testing.T, app *fiber.App, sessionID, body string) (int, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest("POST", "/api/messages/"+sessionID+"/send/now", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	parsed := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(raw, &parsed))

	return resp.StatusCode, parsed
}

func TestSendNowDeliversWithoutQueue(t *testing.T) {
	sender := &fakeDirectSender{}
	app, messages := sendNowApp(t, sender, &fakeHandlerUsage{})

	status, body := postSendNow(t, app, "loja-centro", `{"to":"5511888888888","message":"pedido saiu"}`)

	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "sent", body["status"])
	assert.NotEmpty(t, body["message_id"])

	require.Len(t, messages.created, 1)
	require.Len(t, sender.delivered, 1)
	assert.Same(t, messages.created[0], sender.delivered[0])
	assert.Equal(t, "+5511888888888", sender.delivered[0].ToNumber)
}

func TestSendNowRespectsMessageQuota(t *testing.T) {
	sender := &fakeDirectSender{}
	app, messages := sendNowApp(t, sender, &fakeHandlerUsage{sent: 1000})

	status, body := postSendNow(t, app, "loja-centro", `{"to":"5511888888888","message":"oi"}`)

	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "Message limit reached", body["error"])
	assert.Empty(t, messages.created)
	assert.Empty(t, sender.delivered)
}

func TestSendNowSessionDisconnected(t *testing.T) {
	sender := &fakeDirectSender{err: errs.Transient(errs.ErrNotConnected)}
	app, _ := sendNowApp(t, sender, &fakeHandlerUsage{})

	status, body := postSendNow(t, app, "loja-centro", `{"to":"5511888888888","message":"oi"}`)

	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, "NOT_CONNECTED", body["error"])
}

func TestSendNowUnknownSession(t *testing.T) {
	sender := &fakeDirectSender{}
	app, _ := sendNowApp(t, sender, &fakeHandlerUsage{})

	status, _ := postSendNow(t, app, "outra-loja", `{"to":"5511888888888","message":"oi"}`)
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Empty(t, sender.delivered)
}
