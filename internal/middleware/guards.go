package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/hrdesk/backend/internal/access"
	"github.com/hrdesk/backend/internal/models"
	"github.com/hrdesk/backend/internal/permissions"
	"github.com/hrdesk/backend/internal/services"
	"github.com/hrdesk/backend/pkg/logger"
	"github.com/hrdesk/backend/pkg/utils"
)

// GuardMiddleware adapts the typed guard decisions to HTTP. Denials are
// always logged with the actual role and the required permission, and
// recorded in the audit trail.
type GuardMiddleware struct {
	Audit *services.AuditService
}

func NewGuardMiddleware(audit *services.AuditService) *GuardMiddleware {
	return &GuardMiddleware{Audit: audit}
}

// RequireCapability gates a handler on the permission registry.
func (g *GuardMiddleware) RequireCapability(capability permissions.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := CurrentIdentity(c)
		decision := access.RequireCapability(identity, capability)
		if decision.Allowed {
			return c.Next()
		}
		return g.denied(c, identity, decision, string(capability))
	}
}

// RequireRoles gates a handler on an explicit role allow-list.
func (g *GuardMiddleware) RequireRoles(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity := CurrentIdentity(c)
		decision := access.RequireAnyRole(identity, roles...)
		if decision.Allowed {
			return c.Next()
		}
		required := make([]string, len(roles))
		for i, r := range roles {
			required[i] = string(r)
		}
		return g.denied(c, identity, decision, "role:"+strings.Join(required, ","))
	}
}

func (g *GuardMiddleware) denied(c *fiber.Ctx, identity access.Identity, decision access.Decision, required string) error {
	if decision.Reason == access.DenyUnauthenticated {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	logger.WarnWithUser(identity.ID.String(), "permission_denied", map[string]interface{}{
		"path":     c.Path(),
		"method":   c.Method(),
		"role":     string(identity.Role),
		"required": required,
	})
	if g.Audit != nil {
		userID := identity.ID
		g.Audit.LogAsync(services.AuditEntry{
			UserID:       &userID,
			Action:       "access.denied",
			ResourceType: "route",
			Details: map[string]interface{}{
				"path":     c.Path(),
				"method":   c.Method(),
				"role":     string(identity.Role),
				"required": required,
			},
			IPAddress: c.IP(),
			RequestID: getRequestID(c),
		})
	}
	return utils.Error(c, fiber.StatusForbidden, "insufficient permissions")
}

func getRequestID(c *fiber.Ctx) string {
	if id, ok := c.Locals("requestID").(string); ok {
		return id
	}
	return ""
}
