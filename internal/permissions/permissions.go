package permissions

import "github.com/hrdesk/backend/internal/models"

// Capability is an atomic permission. The registry is the single canonical
// permission model: every guard resolves a role to a capability set here.
type Capability string

const (
	CapDocumentsView     Capability = "documents.view"
	CapDocumentsManage   Capability = "documents.manage"
	CapEmployeesView     Capability = "employees.view"
	CapEmployeesManage   Capability = "employees.manage"
	CapDepartmentsView   Capability = "departments.view"
	CapDepartmentsManage Capability = "departments.manage"
	CapAnalyticsView     Capability = "analytics.view"
	CapReportsView       Capability = "reports.view"
	CapSystemConfig      Capability = "system.config"
	CapUsersManage       Capability = "users.manage"
)

// Set is an immutable capability set. Built once at startup, never mutated.
type Set map[Capability]struct{}

func (s Set) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

func newSet(caps ...Capability) Set {
	s := make(Set, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

// PrivilegedRoles are granted management access to every document
// regardless of its visibility mode. Defined exactly once; reference this,
// never a local copy.
var PrivilegedRoles = []models.Role{
	models.RoleGeneralDirector,
	models.RoleITManager,
}

func IsPrivileged(role models.Role) bool {
	for _, r := range PrivilegedRoles {
		if r.Equal(role) {
			return true
		}
	}
	return false
}

var roleCapabilities = map[models.Role]Set{
	models.RoleGeneralDirector: newSet(
		CapDocumentsView, CapDocumentsManage,
		CapEmployeesView, CapEmployeesManage,
		CapDepartmentsView, CapDepartmentsManage,
		CapAnalyticsView, CapReportsView,
		CapUsersManage,
	),
	models.RoleITManager: newSet(
		CapDocumentsView, CapDocumentsManage,
		CapEmployeesView, CapEmployeesManage,
		CapDepartmentsView, CapDepartmentsManage,
		CapAnalyticsView, CapReportsView,
		CapSystemConfig, CapUsersManage,
	),
	models.RoleGeneralManager: newSet(
		CapDocumentsView, CapDocumentsManage,
		CapEmployeesView, CapEmployeesManage,
		CapDepartmentsView, CapDepartmentsManage,
		CapAnalyticsView, CapReportsView,
	),
	models.RoleHeadOfDepartment: newSet(
		CapDocumentsView, CapDocumentsManage,
		CapEmployeesView, CapEmployeesManage,
		CapDepartmentsView, CapDepartmentsManage,
		CapReportsView,
	),
	models.RoleManager: newSet(
		CapDocumentsView, CapDocumentsManage,
		CapEmployeesView,
		CapDepartmentsView,
		CapReportsView,
	),
	models.RoleEmployee: newSet(
		CapDocumentsView,
	),
}

// CapabilitiesFor resolves a role to its capability set. Unknown or
// misspelled roles get an empty set, never a default-allow.
func CapabilitiesFor(role models.Role) Set {
	if s, ok := roleCapabilities[models.NormalizeRole(string(role))]; ok {
		return s
	}
	return nil
}

// Check reports whether role holds capability. Unknown role denies
// everything.
func Check(role models.Role, capability Capability) bool {
	return CapabilitiesFor(role).Has(capability)
}
