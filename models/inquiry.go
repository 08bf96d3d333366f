package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	InquiryNew     = "new"
	InquiryReplied = "replied"
	InquiryClosed  = "closed"
)

// InquiryWindow is how long a user must wait before inquiring about the same listing again.
const InquiryWindow = 24 * time.Hour

type ContactInfo struct {
	Phone         string `bson:"phone,omitempty" json:"phone,omitempty"`
	Email         string `bson:"email,omitempty" json:"email,omitempty"`
	PreferredTime string `bson:"preferredTime,omitempty" json:"preferredTime,omitempty"`
}

type Inquiry struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	PropertyID     primitive.ObjectID `bson:"propertyId" json:"propertyId"`
	InquirerUserID primitive.ObjectID `bson:"inquirerUserId" json:"inquirerUserId"`
	OwnerUserID    primitive.ObjectID `bson:"ownerUserId" json:"ownerUserId"`
	Message        string             `bson:"message" json:"message"`
	ContactInfo    ContactInfo        `bson:"contactInfo" json:"contactInfo"`
	Status         string             `bson:"status" json:"status"`
	Response       string             `bson:"response,omitempty" json:"response,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	RespondedAt    *time.Time         `bson:"respondedAt,omitempty" json:"respondedAt,omitempty"`

	Property *Property    `bson:"property,omitempty" json:"property,omitempty"`
	Inquirer *UserSummary `bson:"inquirer,omitempty" json:"inquirer,omitempty"`
	Owner    *UserSummary `bson:"owner,omitempty" json:"owner,omitempty"`
}
