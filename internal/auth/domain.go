package auth

import (
	"time"

	"github.com/firewatch/firewatch/internal/access"
)

// Account is the credential-bearing view of a user.
type Account struct {
	ID              string
	Name            string
	Email           string
	PasswordHash    string
	Role            string
	InstitutionID   string
	EmailVerifiedAt *time.Time
	IsActive        bool
}

// Principal converts the account into a request principal. Accounts that are
// inactive, unverified or carry an unknown role yield nil.
func (a *Account) Principal() *access.Principal {
	if a == nil || !a.IsActive || a.EmailVerifiedAt == nil {
		return nil
	}
	role, ok := access.ParseRole(a.Role)
	if !ok {
		return nil
	}
	return access.NewPrincipal(a.ID, role, a.InstitutionID)
}

// Purpose distinguishes the two kinds of verification code.
type Purpose string

const (
	PurposeRegister Purpose = "REGISTER"
	PurposeLogin    Purpose = "LOGIN"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	return p == PurposeRegister || p == PurposeLogin
}
