package access

import (
	"github.com/hrdesk/backend/internal/models"
	"github.com/hrdesk/backend/internal/permissions"
)

// DenyReason says why a guard refused. The transport adapter maps it to a
// status code (401/403) or a login redirect; this package does not know
// about HTTP.
type DenyReason string

const (
	DenyNone            DenyReason = ""
	DenyUnauthenticated DenyReason = "unauthenticated"
	DenyForbidden       DenyReason = "forbidden"
)

// Decision is the typed result of a guard check. Guards are plain
// pre-condition functions composed by the transport layer; ordering and
// short-circuiting are explicit at the call site.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason DenyReason) Decision {
	return Decision{Reason: reason}
}

// RequireCapability denies unauthenticated identities first, then asks the
// permission registry. Unknown roles hold no capabilities.
func RequireCapability(identity Identity, capability permissions.Capability) Decision {
	if !identity.Authenticated {
		return deny(DenyUnauthenticated)
	}
	if !permissions.Check(identity.Role, capability) {
		return deny(DenyForbidden)
	}
	return allow()
}

// RequireAnyRole admits only identities whose role is in the explicit
// allow-list, compared case-insensitively.
func RequireAnyRole(identity Identity, roles ...models.Role) Decision {
	if !identity.Authenticated {
		return deny(DenyUnauthenticated)
	}
	for _, role := range roles {
		if identity.Role.Equal(role) {
			return allow()
		}
	}
	return deny(DenyForbidden)
}
