// Package offerrequests lets customer institutions post service needs that
// every provider can read and answer with an offer.
package offerrequests

import (
	"time"

	"github.com/firewatch/firewatch/internal/access"
)

// Request statuses.
const (
	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"
)

// Request is a customer's call for offers.
type Request struct {
	ID                   string     `json:"id"`
	Details              string     `json:"details"`
	Status               string     `json:"status"`
	StartsOn             *time.Time `json:"startsOn,omitempty"`
	EndsOn               *time.Time `json:"endsOn,omitempty"`
	CreatorID            string     `json:"creatorId,omitempty"`
	CreatorInstitutionID string     `json:"creatorInstitutionId"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// Shape returns the ownership facts of the request.
func (r Request) Shape() access.Shape {
	return access.Shape{
		Owner: access.Party{PersonID: r.CreatorID, InstitutionID: r.CreatorInstitutionID},
	}
}

// Row is a request with the caller's affordances.
type Row struct {
	Request
	access.Flags
}

// CreateInput carries a new request.
type CreateInput struct {
	Details              string     `json:"details" validate:"required,max=4000"`
	StartsOn             *time.Time `json:"startsOn"`
	EndsOn               *time.Time `json:"endsOn"`
	CreatorID            string     `json:"creatorId" validate:"omitempty,uuid"`
	CreatorInstitutionID string     `json:"creatorInstitutionId" validate:"omitempty,uuid"`
}

// UpdateInput carries a partial update.
type UpdateInput struct {
	Details  *string    `json:"details" validate:"omitempty,min=1,max=4000"`
	Status   *string    `json:"status" validate:"omitempty,oneof=OPEN CLOSED"`
	StartsOn *time.Time `json:"startsOn"`
	EndsOn   *time.Time `json:"endsOn"`
}

func (in UpdateInput) apply(r *Request) {
	if in.Details != nil {
		r.Details = *in.Details
	}
	if in.Status != nil {
		r.Status = *in.Status
	}
	if in.StartsOn != nil {
		r.StartsOn = in.StartsOn
	}
	if in.EndsOn != nil {
		r.EndsOn = in.EndsOn
	}
}

func (r Request) window() bool {
	return r.StartsOn == nil || r.EndsOn == nil || !r.EndsOn.Before(*r.StartsOn)
}
