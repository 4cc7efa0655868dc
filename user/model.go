// Package user defines the persisted user record and the store contract the
// auth core depends on.
package user

import (
	"time"
)

// Role is the closed authorization role set. Every user has exactly one.
type Role string

const (
	RoleFarmer  Role = "farmer"
	RoleOfficer Role = "officer"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a member of the closed role set.
func (r Role) Valid() bool {
	switch r {
	case RoleFarmer, RoleOfficer, RoleAdmin:
		return true
	}
	return false
}

// Elevated reports whether r is a staff role. Only elevated roles are
// eligible for auto-provisioning on first login.
func (r Role) Elevated() bool {
	return r == RoleOfficer || r == RoleAdmin
}

// User is the identity and authorization unit. The password hash is opaque
// and algorithm self-describing; it is never serialized to clients.
type User struct {
	ID           uint    `gorm:"primaryKey" json:"id"`
	Email        string  `gorm:"uniqueIndex;not null" json:"email"`
	FullName     string  `gorm:"not null" json:"full_name"`
	PasswordHash string  `gorm:"not null" json:"-"`
	Role         Role    `gorm:"type:varchar(16);not null;default:'farmer'" json:"role"`
	Phone        *string `json:"phone"`
	Address      *string `json:"address"`
	// IsActive has no column default: GORM would silently replace an
	// explicit false with the default on insert. Callers set it on create.
	IsActive bool `gorm:"not null" json:"is_active"`
	IsVerified bool `gorm:"not null;default:false" json:"is_verified"`

	// Department and OfficerID are only set for officers. OfficerID is the
	// externally issued employee id, unique when present.
	Department *string `json:"department"`
	OfficerID  *string `gorm:"uniqueIndex" json:"officer_id"`

	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
	LastLogin *time.Time `json:"last_login"`
}

// TableName keeps the table name stable regardless of GORM's pluralization.
func (User) TableName() string { return "users" }
