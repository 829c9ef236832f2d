// Package maintenance records service work done by providers on customer
// devices.
package maintenance

import (
	"time"

	"github.com/firewatch/firewatch/internal/access"
)

// Card is one maintenance record.
type Card struct {
	ID                    string     `json:"id"`
	DeviceID              string     `json:"deviceId"`
	MaintenanceDate       time.Time  `json:"maintenanceDate"`
	NextMaintenanceDate   *time.Time `json:"nextMaintenanceDate,omitempty"`
	Details               string     `json:"details"`
	ProviderID            string     `json:"providerId,omitempty"`
	ProviderInstitutionID string     `json:"providerInstitutionId"`
	CustomerID            string     `json:"customerId,omitempty"`
	CustomerInstitutionID string     `json:"customerInstitutionId"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// Shape returns the ownership facts of the card.
func (c Card) Shape() access.Shape {
	return access.Shape{
		Owner:        access.Party{PersonID: c.ProviderID, InstitutionID: c.ProviderInstitutionID},
		Counterparty: access.Party{PersonID: c.CustomerID, InstitutionID: c.CustomerInstitutionID},
	}
}

// Row is a card with the caller's affordances.
type Row struct {
	Card
	access.Flags
}

// CreateInput carries a new card. The customer side is taken from the device.
type CreateInput struct {
	DeviceID              string     `json:"deviceId" validate:"required,uuid"`
	MaintenanceDate       time.Time  `json:"maintenanceDate" validate:"required"`
	NextMaintenanceDate   *time.Time `json:"nextMaintenanceDate"`
	Details               string     `json:"details" validate:"max=4000"`
	ProviderID            string     `json:"providerId" validate:"omitempty,uuid"`
	ProviderInstitutionID string     `json:"providerInstitutionId" validate:"omitempty,uuid"`
}

// UpdateInput carries a partial update.
type UpdateInput struct {
	MaintenanceDate     *time.Time `json:"maintenanceDate"`
	NextMaintenanceDate *time.Time `json:"nextMaintenanceDate"`
	Details             *string    `json:"details" validate:"omitempty,max=4000"`
}

func (in UpdateInput) apply(c *Card) {
	if in.MaintenanceDate != nil {
		c.MaintenanceDate = *in.MaintenanceDate
	}
	if in.NextMaintenanceDate != nil {
		c.NextMaintenanceDate = in.NextMaintenanceDate
	}
	if in.Details != nil {
		c.Details = *in.Details
	}
}

// DeviceRef is the part of a device a card needs.
type DeviceRef struct {
	ID    string
	Shape access.Shape
}
