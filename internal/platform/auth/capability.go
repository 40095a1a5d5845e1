package auth

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Staff roles within a therapy center.
const (
	RoleAdmin        = "admin"
	RoleTherapist    = "therapist"
	RoleReceptionist = "receptionist"
	RoleBilling      = "billing"
)

// Capabilities gate individual operations. Roles map to capability sets;
// admin implicitly holds every capability.
const (
	CapPatientsRead       = "patients:read"
	CapPatientsWrite      = "patients:write"
	CapTherapistsRead     = "therapists:read"
	CapTherapistsWrite    = "therapists:write"
	CapPricingRead        = "pricing:read"
	CapPricingWrite       = "pricing:write"
	CapAvailabilityRead   = "availability:read"
	CapAvailabilityWrite  = "availability:write"
	CapSessionsRead       = "sessions:read"
	CapSessionsWrite      = "sessions:write"
	CapSessionsTransition = "sessions:transition"
	CapBillingRead        = "billing:read"
	CapBillingWrite       = "billing:write"
)

var roleCapabilities = map[string]map[string]bool{
	RoleTherapist: {
		CapPatientsRead:       true,
		CapTherapistsRead:     true,
		CapAvailabilityRead:   true,
		CapAvailabilityWrite:  true,
		CapSessionsRead:       true,
		CapSessionsTransition: true,
	},
	RoleReceptionist: {
		CapPatientsRead:       true,
		CapPatientsWrite:      true,
		CapTherapistsRead:     true,
		CapPricingRead:        true,
		CapAvailabilityRead:   true,
		CapSessionsRead:       true,
		CapSessionsWrite:      true,
		CapSessionsTransition: true,
		CapBillingRead:        true,
	},
	RoleBilling: {
		CapPatientsRead:   true,
		CapTherapistsRead: true,
		CapPricingRead:    true,
		CapPricingWrite:   true,
		CapSessionsRead:   true,
		CapBillingRead:    true,
		CapBillingWrite:   true,
	},
}

// HasCapability reports whether any of the roles grants the capability.
func HasCapability(roles []string, capability string) bool {
	for _, role := range roles {
		if role == RoleAdmin {
			return true
		}
		if caps, ok := roleCapabilities[role]; ok && caps[capability] {
			return true
		}
	}
	return false
}

// RequireCapability returns middleware that rejects the request with 403
// unless the authenticated user's roles grant the capability.
func RequireCapability(capability string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			roles := RolesFromContext(c.Request().Context())
			if !HasCapability(roles, capability) {
				return echo.NewHTTPError(http.StatusForbidden,
					fmt.Sprintf("required capability: %s", capability))
			}
			return next(c)
		}
	}
}
