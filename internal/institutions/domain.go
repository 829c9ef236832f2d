// Package institutions manages the customer and provider organisations that
// every other resource is scoped to.
package institutions

import (
	"time"

	"github.com/firewatch/firewatch/internal/access"
)

// Institution kinds.
const (
	KindCustomer = "CUSTOMER"
	KindProvider = "PROVIDER"
)

// Institution is one organisation.
type Institution struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Shape scopes an institution by its own id.
func (i Institution) Shape() access.Shape {
	return access.Shape{Owner: access.Party{InstitutionID: i.ID}}
}

// Row is an institution with the caller's affordances.
type Row struct {
	Institution
	access.Flags
}

// CreateInput carries a new institution. Administrators choose the kind;
// everyone else gets the kind of their own side.
type CreateInput struct {
	Name    string `json:"name" validate:"required,max=200"`
	Kind    string `json:"kind" validate:"omitempty,oneof=CUSTOMER PROVIDER"`
	Address string `json:"address" validate:"max=500"`
	Phone   string `json:"phone" validate:"max=32"`
	Email   string `json:"email" validate:"omitempty,email,max=254"`
}

// UpdateInput carries a partial update. The kind is immutable.
type UpdateInput struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=200"`
	Address *string `json:"address" validate:"omitempty,max=500"`
	Phone   *string `json:"phone" validate:"omitempty,max=32"`
	Email   *string `json:"email" validate:"omitempty,email,max=254"`
}

func (in UpdateInput) apply(i *Institution) {
	if in.Name != nil {
		i.Name = *in.Name
	}
	if in.Address != nil {
		i.Address = *in.Address
	}
	if in.Phone != nil {
		i.Phone = *in.Phone
	}
	if in.Email != nil {
		i.Email = *in.Email
	}
}

// kindFor maps a role to the institution kind it may found.
func kindFor(role access.Role) string {
	switch {
	case role.IsCustomer():
		return KindCustomer
	case role.IsProvider():
		return KindProvider
	default:
		return ""
	}
}
