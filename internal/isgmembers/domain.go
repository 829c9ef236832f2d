// Package isgmembers manages the occupational-safety (ISG) staff contracted
// by an institution. Devices may name one of them as responsible.
package isgmembers

import (
	"time"

	"github.com/firewatch/firewatch/internal/access"
)

// Member is one ISG specialist bound to an institution.
type Member struct {
	ID            string    `json:"id"`
	IsgNumber     string    `json:"isgNumber"`
	Name          string    `json:"name"`
	ContractDate  time.Time `json:"contractDate"`
	InstitutionID string    `json:"institutionId"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Shape scopes a member by its institution.
func (m Member) Shape() access.Shape {
	return access.Shape{Owner: access.Party{InstitutionID: m.InstitutionID}}
}

// Row is a member with the caller's affordances.
type Row struct {
	Member
	access.Flags
}

// CreateInput carries a new member. InstitutionID is honoured for
// administrators only.
type CreateInput struct {
	IsgNumber     string    `json:"isgNumber" validate:"required,min=3,max=20"`
	Name          string    `json:"name" validate:"required,min=3,max=100"`
	ContractDate  time.Time `json:"contractDate" validate:"required"`
	InstitutionID string    `json:"institutionId" validate:"omitempty,uuid"`
}

// UpdateInput carries a partial update. The institution is immutable.
type UpdateInput struct {
	IsgNumber    *string    `json:"isgNumber" validate:"omitempty,min=3,max=20"`
	Name         *string    `json:"name" validate:"omitempty,min=3,max=100"`
	ContractDate *time.Time `json:"contractDate"`
}

func (in UpdateInput) apply(m *Member) {
	if in.IsgNumber != nil {
		m.IsgNumber = *in.IsgNumber
	}
	if in.Name != nil {
		m.Name = *in.Name
	}
	if in.ContractDate != nil {
		m.ContractDate = *in.ContractDate
	}
}
