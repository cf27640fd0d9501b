package auth

import "errors"

// Role represents an authorisation tier for API callers.
type Role string

const (
	// RoleViewer can read devices, stats and the command log.
	RoleViewer Role = "viewer"

	// RoleOperator can also change selection and lock intent and trigger
	// launch or terminate.
	RoleOperator Role = "operator"
)

// ValidRoles is the set of roles a token may carry.
var ValidRoles = []Role{RoleViewer, RoleOperator}

// IsValidRole returns true if r is one of ValidRoles.
func IsValidRole(r Role) bool {
	for _, v := range ValidRoles {
		if v == r {
			return true
		}
	}
	return false
}

// Domain errors.
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrInvalidRole  = errors.New("invalid role")
	ErrEmptySecret  = errors.New("signing secret is empty")
)
