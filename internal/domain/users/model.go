package users

import (
	"time"

	"saas-starter/internal/domain/plans"
)

const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

type Profile struct {
	ID           string    `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	Email        string    `gorm:"column:email;not null;uniqueIndex" json:"email"`
	FirstName    *string   `gorm:"column:first_name" json:"first_name,omitempty"`
	LastName     *string   `gorm:"column:last_name" json:"last_name,omitempty"`
	FullName     *string   `gorm:"column:full_name" json:"full_name,omitempty"`
	AvatarURL    *string   `gorm:"column:avatar_url" json:"avatar_url,omitempty"`
	Role         string    `gorm:"column:role;not null" json:"role"`
	Plan         plans.Key `gorm:"column:plan;not null" json:"plan"`
	PasswordHash *string   `gorm:"column:password_hash" json:"-"`
	GoogleSub    *string   `gorm:"column:google_sub;uniqueIndex" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DisplayName picks the friendliest name available.
func (p *Profile) DisplayName() string {
	for _, s := range []*string{p.FullName, p.FirstName} {
		if s != nil && *s != "" {
			return *s
		}
	}
	return p.Email
}

// SessionUser is the authenticated caller attached to a request.
type SessionUser struct {
	ID    string
	Email string
	Role  string
}

// SessionKey is the gin context key holding the *SessionUser.
const SessionKey = "session_user"
