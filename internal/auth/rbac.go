package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/hr-assistant/backend/pkg/logger"
)

// ErrForbidden reports a missing capability. It is the only error that
// blocks a request outright; it is raised at the boundary, before the
// pipeline starts.
var ErrForbidden = errors.New("role lacks required capability")

type Role string

const (
	RoleEmployee  Role = "employee"
	RoleManager   Role = "manager"
	RoleHRAdmin   Role = "hr_admin"
	RoleHRManager Role = "hr_manager"
	RoleExecutive Role = "executive"
)

type Capability string

const (
	CapabilityQuerySubmission    Capability = "query-submission"
	CapabilityDocumentManagement Capability = "document-management"
	CapabilityAnalyticsView      Capability = "analytics-view"
)

// capabilities is the role-to-capability table. Every role may submit
// queries; document management and analytics views are restricted.
var capabilities = map[Role]map[Capability]struct{}{
	RoleEmployee: {
		CapabilityQuerySubmission: {},
	},
	RoleManager: {
		CapabilityQuerySubmission: {},
	},
	RoleHRAdmin: {
		CapabilityQuerySubmission:    {},
		CapabilityDocumentManagement: {},
		CapabilityAnalyticsView:      {},
	},
	RoleHRManager: {
		CapabilityQuerySubmission:    {},
		CapabilityDocumentManagement: {},
		CapabilityAnalyticsView:      {},
	},
	RoleExecutive: {
		CapabilityQuerySubmission: {},
		CapabilityAnalyticsView:   {},
	},
}

// ParseRole normalizes a role claim. Unknown values are rejected rather
// than defaulted, so a typo cannot widen access.
func ParseRole(s string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(s)))
	_, ok := capabilities[role]
	return role, ok
}

func (r Role) Has(c Capability) bool {
	caps, ok := capabilities[r]
	if !ok {
		return false
	}
	_, ok = caps[c]
	return ok
}

// RoleHeader carries the caller's role claim.
const RoleHeader = "X-Employee-Role"

// RequireCapability gates a route on the role header. It runs before
// any pipeline code; authorization is a boundary concern, not a stage.
func RequireCapability(capability Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, ok := ParseRole(c.Get(RoleHeader))
		if !ok || !role.Has(capability) {
			logger.Warn("Request rejected by capability gate",
				zap.String("role", c.Get(RoleHeader)),
				zap.String("capability", string(capability)),
				zap.String("path", c.Path()),
			)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Access denied. Required capability: " + string(capability),
			})
		}

		c.Locals("role", role)
		return c.Next()
	}
}
