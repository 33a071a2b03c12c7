package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	cache "github.com/patrickmn/go-cache"

	"github.com/felipe/zapgateway/internal/config"
	"github.com/felipe/zapgateway/internal/db/models"
	"github.com/felipe/zapgateway/internal/db/repositories"
	"github.com/felipe/zapgateway/internal/logger"
)

// Chaves usadas em c.Locals pelos handlers
const (
	LocalUserID       = "user_id"
	LocalOrganization = "organization"
)

// AuthMiddleware valida o bearer token JWT e injeta o usuário e a
// organização resolvida no contexto da requisição
type AuthMiddleware struct {
	secret   []byte
	orgs     repositories.OrganizationRepository
	orgCache *cache.Cache
	log      logger.Logger
}

func NewAuthMiddleware(cfg *config.AuthConfig, orgs repositories.OrganizationRepository) *AuthMiddleware {
	ttl := cfg.OrgCacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}

	return &AuthMiddleware{
		secret:   []byte(cfg.JWTSecret),
		orgs:     orgs,
		orgCache: cache.New(ttl, 2*ttl),
		log:      logger.ForComponent("auth_middleware"),
	}
}

// RequireAuth exige um JWT HS256 válido. O sub do token identifica o
// usuário; a organização vem do claim org_id ou, na falta dele, da
// organização cujo owner é o usuário.
func (m *AuthMiddleware) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := m.bearerToken(c)
		if err != nil {
			return unauthorized(c, err.Error())
		}

		claims, err := m.parseToken(token)
		if err != nil {
			return unauthorized(c, "invalid token")
		}

		userID, _ := claims["sub"].(string)
		if userID == "" {
			return unauthorized(c, "token missing subject")
		}

		orgID, _ := claims["org_id"].(string)
		org, err := m.resolveOrganization(c, userID, orgID)
		if err != nil {
			m.log.Warn().Err(err).Str("user_id", userID).Msg("Organization resolution failed")
			return unauthorized(c, "organization not found")
		}

		c.Locals(LocalUserID, userID)
		c.Locals(LocalOrganization, org)
		return c.Next()
	}
}

func (m *AuthMiddleware) bearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", errors.New("missing authorization header")
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", errors.New("malformed authorization header")
	}

	return parts[1], nil
}

func (m *AuthMiddleware) parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid claims")
	}

	return claims, nil
}

func (m *AuthMiddleware) resolveOrganization(c *fiber.Ctx, userID, orgID string) (*models.Organization, error) {
	cacheKey := orgID
	if cacheKey == "" {
		cacheKey = "owner:" + userID
	}

	if cached, ok := m.orgCache.Get(cacheKey); ok {
		return cached.(*models.Organization), nil
	}

	var (
		org *models.Organization
		err error
	)
	if orgID != "" {
		org, err = m.orgs.GetByID(c.Context(), orgID)
	} else {
		org, err = m.orgs.GetByOwner(c.Context(), userID)
	}
	if err != nil {
		return nil, err
	}

	m.orgCache.Set(cacheKey, org, cache.DefaultExpiration)
	return org, nil
}

// OrganizationFrom recupera a organização injetada pelo RequireAuth
func OrganizationFrom(c *fiber.Ctx) *models.Organization {
	org, _ := c.Locals(LocalOrganization).(*models.Organization)
	return org
}

// UserIDFrom recupera o usuário injetado pelo RequireAuth
func UserIDFrom(c *fiber.Ctx) string {
	userID, _ := c.Locals(LocalUserID).(string)
	return userID
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":   "UNAUTHORIZED",
		"message": message,
	})
}
