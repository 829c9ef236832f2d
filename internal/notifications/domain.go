// Package notifications delivers short messages to one recipient of either
// side. They are raised by the system or by administrators.
package notifications

import (
	"time"

	"github.com/firewatch/firewatch/internal/access"
)

// Notification kinds.
const (
	KindInfo       = "INFO"
	KindOffer      = "OFFER"
	KindControlDue = "CONTROL_DUE"
)

// Notification is one message addressed to a recipient.
type Notification struct {
	ID                     string    `json:"id"`
	Content                string    `json:"content"`
	Kind                   string    `json:"kind"`
	Link                   string    `json:"link,omitempty"`
	IsRead                 bool      `json:"isRead"`
	DeviceID               string    `json:"deviceId,omitempty"`
	CreatorID              string    `json:"creatorId,omitempty"`
	RecipientID            string    `json:"recipientId,omitempty"`
	RecipientInstitutionID string    `json:"recipientInstitutionId,omitempty"`
	CreatedAt              time.Time `json:"createdAt"`
}

// Shape returns the ownership facts of the notification.
func (n Notification) Shape() access.Shape {
	return access.Shape{
		Owner: access.Party{PersonID: n.RecipientID, InstitutionID: n.RecipientInstitutionID},
	}
}

// Row is a notification with the caller's affordances.
type Row struct {
	Notification
	access.Flags
}

// CreateInput carries an administrator-authored notification.
type CreateInput struct {
	Content                string `json:"content" validate:"required,max=1000"`
	Kind                   string `json:"kind" validate:"omitempty,oneof=INFO OFFER CONTROL_DUE"`
	Link                   string `json:"link" validate:"omitempty,max=500"`
	DeviceID               string `json:"deviceId" validate:"omitempty,uuid"`
	RecipientID            string `json:"recipientId" validate:"omitempty,uuid"`
	RecipientInstitutionID string `json:"recipientInstitutionId" validate:"omitempty,uuid"`
}

// UpdateInput carries a partial update. Recipients may only toggle IsRead.
type UpdateInput struct {
	Content *string `json:"content" validate:"omitempty,min=1,max=1000"`
	Link    *string `json:"link" validate:"omitempty,max=500"`
	IsRead  *bool   `json:"isRead"`
}

func (in UpdateInput) editsContent() bool {
	return in.Content != nil || in.Link != nil
}

func (in UpdateInput) apply(n *Notification) {
	if in.Content != nil {
		n.Content = *in.Content
	}
	if in.Link != nil {
		n.Link = *in.Link
	}
	if in.IsRead != nil {
		n.IsRead = *in.IsRead
	}
}
