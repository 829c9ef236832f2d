// Package devices tracks fire-safety equipment owned by customer institutions
// and serviced by provider institutions.
package devices

import (
	"time"

	"github.com/firewatch/firewatch/internal/access"
)

// Device statuses.
const (
	StatusActive  = "ACTIVE"
	StatusPassive = "PASSIVE"
)

// Device is one piece of tracked equipment.
type Device struct {
	ID                    string     `json:"id"`
	SerialNumber          string     `json:"serialNumber"`
	DeviceType            string     `json:"deviceType"`
	Feature               string     `json:"feature"`
	ProductionDate        *time.Time `json:"productionDate,omitempty"`
	LastControlDate       *time.Time `json:"lastControlDate,omitempty"`
	NextControlDate       *time.Time `json:"nextControlDate,omitempty"`
	ExpirationDate        *time.Time `json:"expirationDate,omitempty"`
	Location              string     `json:"location"`
	Status                string     `json:"status"`
	Details               string     `json:"details"`
	OwnerID               string     `json:"ownerId,omitempty"`
	OwnerInstitutionID    string     `json:"ownerInstitutionId"`
	ProviderID            string     `json:"providerId,omitempty"`
	ProviderInstitutionID string     `json:"providerInstitutionId,omitempty"`
	IsgMemberID           string     `json:"isgMemberId,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// Shape returns the ownership facts of the device.
func (d Device) Shape() access.Shape {
	return access.Shape{
		Owner:        access.Party{PersonID: d.OwnerID, InstitutionID: d.OwnerInstitutionID},
		Counterparty: access.Party{PersonID: d.ProviderID, InstitutionID: d.ProviderInstitutionID},
	}
}

// Row is a device together with the caller's affordances on it.
type Row struct {
	Device
	access.Flags
}

// CreateInput carries a new device. Owner fields are honoured for
// administrators only; everyone else owns what they create.
type CreateInput struct {
	SerialNumber          string     `json:"serialNumber" validate:"required,max=64"`
	DeviceType            string     `json:"deviceType" validate:"required,max=64"`
	Feature               string     `json:"feature" validate:"max=255"`
	ProductionDate        *time.Time `json:"productionDate"`
	LastControlDate       *time.Time `json:"lastControlDate"`
	NextControlDate       *time.Time `json:"nextControlDate"`
	ExpirationDate        *time.Time `json:"expirationDate"`
	Location              string     `json:"location" validate:"max=255"`
	Status                string     `json:"status" validate:"omitempty,oneof=ACTIVE PASSIVE"`
	Details               string     `json:"details" validate:"max=2000"`
	OwnerID               string     `json:"ownerId" validate:"omitempty,uuid"`
	OwnerInstitutionID    string     `json:"ownerInstitutionId" validate:"omitempty,uuid"`
	ProviderID            string     `json:"providerId" validate:"omitempty,uuid"`
	ProviderInstitutionID string     `json:"providerInstitutionId" validate:"omitempty,uuid"`
	IsgMemberID           string     `json:"isgMemberId" validate:"omitempty,uuid"`
}

// UpdateInput carries a partial update. Ownership is immutable; an empty
// isgMemberId unlinks the responsible ISG member.
type UpdateInput struct {
	DeviceType      *string    `json:"deviceType" validate:"omitempty,min=1,max=64"`
	Feature         *string    `json:"feature" validate:"omitempty,max=255"`
	ProductionDate  *time.Time `json:"productionDate"`
	LastControlDate *time.Time `json:"lastControlDate"`
	NextControlDate *time.Time `json:"nextControlDate"`
	ExpirationDate  *time.Time `json:"expirationDate"`
	Location        *string    `json:"location" validate:"omitempty,max=255"`
	Status          *string    `json:"status" validate:"omitempty,oneof=ACTIVE PASSIVE"`
	Details         *string    `json:"details" validate:"omitempty,max=2000"`
	IsgMemberID     *string    `json:"isgMemberId" validate:"omitempty,max=36"`
}

func (in UpdateInput) apply(d *Device) {
	if in.DeviceType != nil {
		d.DeviceType = *in.DeviceType
	}
	if in.Feature != nil {
		d.Feature = *in.Feature
	}
	if in.ProductionDate != nil {
		d.ProductionDate = in.ProductionDate
	}
	if in.LastControlDate != nil {
		d.LastControlDate = in.LastControlDate
	}
	if in.NextControlDate != nil {
		d.NextControlDate = in.NextControlDate
	}
	if in.ExpirationDate != nil {
		d.ExpirationDate = in.ExpirationDate
	}
	if in.Location != nil {
		d.Location = *in.Location
	}
	if in.Status != nil {
		d.Status = *in.Status
	}
	if in.Details != nil {
		d.Details = *in.Details
	}
	if in.IsgMemberID != nil {
		d.IsgMemberID = *in.IsgMemberID
	}
}
