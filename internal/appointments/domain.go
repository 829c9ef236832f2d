// Package appointments schedules service visits from provider institutions
// to customer institutions.
package appointments

import (
	"time"

	"github.com/firewatch/firewatch/internal/access"
)

// Appointment is a scheduled visit.
type Appointment struct {
	ID                     string    `json:"id"`
	Title                  string    `json:"title"`
	Content                string    `json:"content"`
	StartsAt               time.Time `json:"startsAt"`
	EndsAt                 time.Time `json:"endsAt"`
	CreatorID              string    `json:"creatorId,omitempty"`
	CreatorInstitutionID   string    `json:"creatorInstitutionId"`
	RecipientID            string    `json:"recipientId,omitempty"`
	RecipientInstitutionID string    `json:"recipientInstitutionId"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

// Shape returns the ownership facts of the appointment.
func (a Appointment) Shape() access.Shape {
	return access.Shape{
		Owner:        access.Party{PersonID: a.CreatorID, InstitutionID: a.CreatorInstitutionID},
		Counterparty: access.Party{PersonID: a.RecipientID, InstitutionID: a.RecipientInstitutionID},
	}
}

// Row is an appointment with the caller's affordances.
type Row struct {
	Appointment
	access.Flags
}

// CreateInput carries a new appointment.
type CreateInput struct {
	Title                  string    `json:"title" validate:"required,max=200"`
	Content                string    `json:"content" validate:"max=4000"`
	StartsAt               time.Time `json:"startsAt" validate:"required"`
	EndsAt                 time.Time `json:"endsAt" validate:"required,gtefield=StartsAt"`
	CreatorID              string    `json:"creatorId" validate:"omitempty,uuid"`
	CreatorInstitutionID   string    `json:"creatorInstitutionId" validate:"omitempty,uuid"`
	RecipientID            string    `json:"recipientId" validate:"omitempty,uuid"`
	RecipientInstitutionID string    `json:"recipientInstitutionId" validate:"required,uuid"`
}

// UpdateInput carries a partial update.
type UpdateInput struct {
	Title    *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Content  *string    `json:"content" validate:"omitempty,max=4000"`
	StartsAt *time.Time `json:"startsAt"`
	EndsAt   *time.Time `json:"endsAt"`
}

func (in UpdateInput) apply(a *Appointment) {
	if in.Title != nil {
		a.Title = *in.Title
	}
	if in.Content != nil {
		a.Content = *in.Content
	}
	if in.StartsAt != nil {
		a.StartsAt = *in.StartsAt
	}
	if in.EndsAt != nil {
		a.EndsAt = *in.EndsAt
	}
}
