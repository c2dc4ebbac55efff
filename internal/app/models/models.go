package models

// RoleType defines the user role type carried in access tokens
type RoleType string

const (
	RoleStudent    RoleType = "STUDENT"
	RoleInstructor RoleType = "INSTRUCTOR"
)

// Viewer identifies the authenticated caller of a read view
type Viewer struct {
	UserID int64
	Role   RoleType
}

// IsStudent reports whether the caller holds the student role
func (v Viewer) IsStudent() bool {
	return v.Role == RoleStudent
}
