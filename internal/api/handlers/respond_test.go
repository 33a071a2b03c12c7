package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felipe/zapgateway/internal/errs"
)

func responseFor(t *testing.T, err error) (int, map[string]interface{}) {
	t.Helper()

	app := fiber.New()
	app.Get("/boom", func(c *fiber.Ctx) error {
		return fail(c, err)
	})

	resp, reqErr := app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, reqErr)
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)
	require.NoError(t, readErr)

	body := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(raw, &body))

	return resp.StatusCode, body
}

func TestFailValidationError(t *testing.T) {
	status, body := responseFor(t, errs.Validation("session_id", "invalid format"))

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", body["error"])
	assert.Equal(t, "invalid format", body["message"])
	assert.Equal(t, "session_id", body["field"])
}

func TestFailAccountLimit(t *testing.T) {
	status, body := responseFor(t, errs.LimitExceeded("accounts", 3, 3))

	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "Account limit reached", body["error"])
	assert.Equal(t, float64(3), body["current"])
	assert.Equal(t, float64(3), body["limit"])
}

func TestFailMessageLimit(t *testing.T) {
	status, body := responseFor(t, errs.LimitExceeded("messages", 1000, 1000))

	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "Message limit reached", body["error"])
}

func TestFailQueueFull(t *testing.T) {
	status, body := responseFor(t, errs.LimitExceeded("queue", 1000, 1000))

	assert.Equal(t, fiber.StatusTooManyRequests, status)
	assert.Equal(t, "Send queue full", body["error"])
}

func TestFailSentinels(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"unauthorized", errs.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
		{"not found", fmt.Errorf("session abc: %w", errs.ErrNotFound), fiber.StatusNotFound, "NOT_FOUND"},
		{"duplicate", fmt.Errorf("session abc: %w", errs.ErrDuplicate), fiber.StatusConflict, "ALREADY_EXISTS"},
		{"not connected", errs.ErrNotConnected, fiber.StatusInternalServerError, "NOT_CONNECTED"},
		{"unknown", errors.New("boom"), fiber.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := responseFor(t, tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantError, body["error"])
		})
	}
}
