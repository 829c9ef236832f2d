// Package offers carries priced service offers from provider institutions to
// customer institutions and the customers' answers to them.
package offers

import (
	"time"

	"github.com/firewatch/firewatch/internal/access"
)

// Offer statuses.
const (
	StatusPending  = "PENDING"
	StatusAccepted = "ACCEPTED"
	StatusRejected = "REJECTED"
)

// Offer is the header of an offer card.
type Offer struct {
	ID                     string    `json:"id"`
	OfferDate              time.Time `json:"offerDate"`
	ValidityDate           time.Time `json:"validityDate"`
	Status                 string    `json:"status"`
	Details                string    `json:"details"`
	PaymentTerm            string    `json:"paymentTerm"`
	CreatorID              string    `json:"creatorId,omitempty"`
	CreatorInstitutionID   string    `json:"creatorInstitutionId"`
	RecipientID            string    `json:"recipientId,omitempty"`
	RecipientInstitutionID string    `json:"recipientInstitutionId"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

// Shape returns the ownership facts of the offer.
func (o Offer) Shape() access.Shape {
	return access.Shape{
		Owner:        access.Party{PersonID: o.CreatorID, InstitutionID: o.CreatorInstitutionID},
		Counterparty: access.Party{PersonID: o.RecipientID, InstitutionID: o.RecipientInstitutionID},
	}
}

// Item is one priced line of an offer.
type Item struct {
	ID          string  `json:"id"`
	OfferID     string  `json:"offerId"`
	ServiceName string  `json:"serviceName"`
	UnitPrice   float64 `json:"unitPrice"`
	Quantity    int     `json:"quantity"`
	Detail      string  `json:"detail,omitempty"`
}

// Row is an offer with the caller's affordances.
type Row struct {
	Offer
	access.Flags
	CanRespond bool `json:"canRespond"`
}

// Detail is a row together with its line items.
type Detail struct {
	Row
	Items []Item  `json:"items"`
	Total float64 `json:"total"`
}

// ItemInput is one requested line.
type ItemInput struct {
	ServiceName string  `json:"serviceName" validate:"required,max=200"`
	UnitPrice   float64 `json:"unitPrice" validate:"gte=0"`
	Quantity    int     `json:"quantity" validate:"required,gt=0"`
	Detail      string  `json:"detail" validate:"max=1000"`
}

// CreateInput carries a new offer with its items.
type CreateInput struct {
	OfferDate              time.Time   `json:"offerDate" validate:"required"`
	ValidityDate           time.Time   `json:"validityDate" validate:"required,gtefield=OfferDate"`
	Details                string      `json:"details" validate:"max=4000"`
	PaymentTerm            string      `json:"paymentTerm" validate:"max=200"`
	CreatorID              string      `json:"creatorId" validate:"omitempty,uuid"`
	CreatorInstitutionID   string      `json:"creatorInstitutionId" validate:"omitempty,uuid"`
	RecipientID            string      `json:"recipientId" validate:"omitempty,uuid"`
	RecipientInstitutionID string      `json:"recipientInstitutionId" validate:"required,uuid"`
	Items                  []ItemInput `json:"items" validate:"required,min=1,max=100,dive"`
}

// UpdateInput carries a partial update of a pending offer.
type UpdateInput struct {
	ValidityDate *time.Time `json:"validityDate"`
	Details      *string    `json:"details" validate:"omitempty,max=4000"`
	PaymentTerm  *string    `json:"paymentTerm" validate:"omitempty,max=200"`
}

func (in UpdateInput) apply(o *Offer) {
	if in.ValidityDate != nil {
		o.ValidityDate = *in.ValidityDate
	}
	if in.Details != nil {
		o.Details = *in.Details
	}
	if in.PaymentTerm != nil {
		o.PaymentTerm = *in.PaymentTerm
	}
}

// RespondInput carries the recipient's answer.
type RespondInput struct {
	Status string `json:"status" validate:"required,oneof=ACCEPTED REJECTED"`
}

func total(items []Item) float64 {
	var sum float64
	for _, it := range items {
		sum += it.UnitPrice * float64(it.Quantity)
	}
	return sum
}
