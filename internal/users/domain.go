// Package users manages the people of an institution and their roles.
package users

import (
	"time"

	"github.com/firewatch/firewatch/internal/access"
)

// User is an account as seen by user management. The password hash never
// leaves the repository.
type User struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	Role            string     `json:"role"`
	InstitutionID   string     `json:"institutionId,omitempty"`
	EmailVerifiedAt *time.Time `json:"emailVerifiedAt,omitempty"`
	IsActive        bool       `json:"isActive"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Shape scopes a user by identity and institution.
func (u User) Shape() access.Shape {
	return access.Shape{Owner: access.Party{PersonID: u.ID, InstitutionID: u.InstitutionID}}
}

// Row is a user with the caller's affordances.
type Row struct {
	User
	access.Flags
}

// CreateInput carries a new account. InstitutionID is honoured for
// administrators only.
type CreateInput struct {
	Name          string `json:"name" validate:"required,max=120"`
	Email         string `json:"email" validate:"required,email,max=254"`
	Password      string `json:"password" validate:"required,min=8,max=72"`
	Role          string `json:"role" validate:"required"`
	InstitutionID string `json:"institutionId" validate:"omitempty,uuid"`
}

// UpdateInput carries a partial update. The institution is immutable.
type UpdateInput struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=120"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`
}

func (in UpdateInput) administrative() bool {
	return in.Role != nil || in.IsActive != nil
}
