package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/felipe/zapgateway/internal/logger"
)

// RequestLogger registra cada requisição com latência e status
func RequestLogger() fiber.Handler {
	log := logger.ForComponent("http")

	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		event := log.Info()
		if err != nil || c.Response().StatusCode() >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", c.Response().StatusCode()).
			Dur("latency", time.Since(start)).
			Str("ip", c.IP()).
			Msg("Request handled")

		return err
	}
}
