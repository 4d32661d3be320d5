package service

import (
	"errors"

	"github.com/sentrolokal/barangay/internal/repo"
)

var (
	// ErrForbidden signals a missing permission.
	ErrForbidden = errors.New("access denied")
)

// Operation names a guarded action.
type Operation string

const (
	OpReviewRequests  Operation = "requests:review"
	OpManageUsers     Operation = "users:manage"
	OpListBarangays   Operation = "barangays:list"
	OpSubmitRequests  Operation = "requests:submit"
	OpViewRequestFeed Operation = "requests:feed"
)

// permissions is the declared capability table: one row per operation
// instead of ad hoc role comparisons in each handler.
var permissions = map[Operation][]string{
	OpReviewRequests:  {repo.RoleSecretary, repo.RoleChairman, repo.RoleAdmin},
	OpManageUsers:     {repo.RoleSecretary, repo.RoleChairman, repo.RoleAdmin},
	OpListBarangays:   {repo.RoleAdmin},
	OpSubmitRequests:  {repo.RoleUser, repo.RoleSecretary, repo.RoleChairman, repo.RoleAdmin},
	OpViewRequestFeed: {repo.RoleUser, repo.RoleSecretary, repo.RoleChairman, repo.RoleAdmin},
}

// Can reports whether the role may perform the operation.
func Can(role string, op Operation) bool {
	for _, allowed := range permissions[op] {
		if allowed == repo.NormalizeRole(role) {
			return true
		}
	}
	return false
}

// creatableRoles bounds account creation so nobody mints a role above
// their own. Only admins hand out admin.
var creatableRoles = map[string][]string{
	repo.RoleSecretary: {repo.RoleUser},
	repo.RoleChairman:  {repo.RoleUser, repo.RoleSecretary},
	repo.RoleAdmin:     {repo.RoleUser, repo.RoleSecretary, repo.RoleChairman, repo.RoleAdmin},
}

// CanCreateRole reports whether callerRole may create an account with newRole.
func CanCreateRole(callerRole, newRole string) bool {
	for _, allowed := range creatableRoles[repo.NormalizeRole(callerRole)] {
		if allowed == repo.NormalizeRole(newRole) {
			return true
		}
	}
	return false
}
