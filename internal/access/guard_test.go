package access

import (
	"testing"

	"github.com/hrdesk/backend/internal/models"
	"github.com/hrdesk/backend/internal/permissions"
)

func TestRequireCapability(t *testing.T) {
	d := RequireCapability(Identity{}, permissions.CapDocumentsView)
	if d.Allowed || d.Reason != DenyUnauthenticated {
		t.Fatalf("unauthenticated: got %+v", d)
	}

	d = RequireCapability(identity(models.RoleEmployee, nil), permissions.CapDocumentsView)
	if !d.Allowed {
		t.Fatalf("employee documents.view: got %+v", d)
	}

	d = RequireCapability(identity(models.RoleEmployee, nil), permissions.CapUsersManage)
	if d.Allowed || d.Reason != DenyForbidden {
		t.Fatalf("employee users.manage: got %+v", d)
	}

	d = RequireCapability(identity("unknown", nil), permissions.CapDocumentsView)
	if d.Allowed || d.Reason != DenyForbidden {
		t.Fatalf("unknown role: got %+v", d)
	}
}

func TestRequireAnyRole(t *testing.T) {
	admins := []models.Role{models.RoleITManager, models.RoleGeneralDirector}

	d := RequireAnyRole(Identity{}, admins...)
	if d.Allowed || d.Reason != DenyUnauthenticated {
		t.Fatalf("unauthenticated: got %+v", d)
	}

	if d := RequireAnyRole(identity(models.RoleITManager, nil), admins...); !d.Allowed {
		t.Fatalf("it manager: got %+v", d)
	}
	if d := RequireAnyRole(identity("General_Director", nil), admins...); !d.Allowed {
		t.Fatalf("case-insensitive match: got %+v", d)
	}
	if d := RequireAnyRole(identity(models.RoleGeneralManager, nil), admins...); d.Allowed || d.Reason != DenyForbidden {
		t.Fatalf("general manager: got %+v", d)
	}
}
