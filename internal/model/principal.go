package model

import "github.com/google/uuid"

type UserRole string

const (
	UserRoleAdmin     UserRole = "ADMIN"
	UserRoleEstimator UserRole = "ESTIMATOR"
	UserRoleViewer    UserRole = "VIEWER"
)

type Principal struct {
	UserID uuid.UUID
	OrgID  uuid.UUID
	Role   UserRole
}

func (p Principal) IsAdmin() bool {
	return p.Role == UserRoleAdmin
}

func (p Principal) IsEstimator() bool {
	return p.Role == UserRoleEstimator
}

func (p Principal) IsViewer() bool {
	return p.Role == UserRoleViewer
}

// CanEdit reports whether the principal may change worksheet data or
// trigger recalculation.
func (p Principal) CanEdit() bool {
	return p.IsAdmin() || p.IsEstimator()
}

func (p Principal) CanRead() bool {
	return p.CanEdit() || p.IsViewer()
}
