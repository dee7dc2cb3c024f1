package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole is a capability tier for back-office accounts.
// Roles are coarse tiers; fine-grained permissions are not enforced here.
type UserRole string

const (
	RoleAdmin      UserRole = "admin"
	RoleSuperAdmin UserRole = "super_admin"
	RoleEditor     UserRole = "editor"
)

// ValidRole reports whether the given role is one of the known tiers
func ValidRole(role string) bool {
	switch UserRole(role) {
	case RoleAdmin, RoleSuperAdmin, RoleEditor:
		return true
	}
	return false
}

// User is an administrator/editor account for the back office.
// Password holds a bcrypt hash and is never serialized.
type User struct {
	ID       string   `gorm:"type:varchar(36);primaryKey" json:"id"`
	Username string   `gorm:"type:varchar(100);not null;uniqueIndex" json:"username"`
	Password string   `gorm:"type:varchar(100);not null" json:"-"`
	Name     string   `gorm:"type:varchar(255);not null" json:"name"`
	Role     UserRole `gorm:"type:varchar(20);not null;default:'editor';index" json:"role"`
	IsActive bool     `gorm:"not null;default:true;index" json:"is_active"`

	LastLogin *time.Time `gorm:"index" json:"last_login,omitempty"`
	CreatedAt time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
	CreatedBy string     `gorm:"type:varchar(36)" json:"created_by,omitempty"`
	UpdatedBy string     `gorm:"type:varchar(36)" json:"updated_by,omitempty"`
}

// TableName はテーブル名を明示的に指定
func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
