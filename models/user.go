package models

import (
	"crypto/subtle"
	"time"

	"github.com/Team-Roomin/Roomin/utils"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleOwner = "owner"
	RoleAdmin = "admin"
)

const (
	KYCNone     = "none"
	KYCPending  = "pending"
	KYCApproved = "approved"
	KYCRejected = "rejected"
)

const (
	OTPValidity   = 5 * time.Minute
	TokenValidity = time.Hour
)

type KYCDocuments struct {
	PanCard             string `bson:"panCard,omitempty" json:"panCard,omitempty"`
	PropertyCertificate string `bson:"propertyCertificate,omitempty" json:"propertyCertificate,omitempty"`
}

type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Username       string             `bson:"username" json:"username"`
	Email          string             `bson:"email" json:"email"`
	PhoneNo        string             `bson:"phoneNo" json:"phoneNo"`
	FullName       string             `bson:"fullName" json:"fullName"`
	DOB            string             `bson:"dob" json:"dob"`
	ProfileImage   string             `bson:"profileImage" json:"profileImage"`
	CoverImage     string             `bson:"coverImage" json:"coverImage"`
	Password       string             `bson:"password" json:"-"`
	RefreshToken   string             `bson:"refreshToken,omitempty" json:"-"`
	Role           string             `bson:"role" json:"role"`
	Verified       bool               `bson:"verified" json:"verified"`
	OTP            string             `bson:"otp,omitempty" json:"-"`
	OTPTimestamp   *time.Time         `bson:"otpTimestamp,omitempty" json:"-"`
	Token          string             `bson:"token,omitempty" json:"-"`
	TokenTimestamp *time.Time         `bson:"tokenTimestamp,omitempty" json:"-"`
	GoogleID       string             `bson:"googleId,omitempty" json:"googleId,omitempty"`
	KYCStatus      string             `bson:"kycStatus" json:"kycStatus"`
	KYCDocuments   KYCDocuments       `bson:"kycDocuments" json:"kycDocuments"`
	LastLoginAt    *time.Time         `bson:"lastLoginAt,omitempty" json:"lastLoginAt,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// UserSummary is the owner/reviewer projection embedded in listing responses.
type UserSummary struct {
	ID           primitive.ObjectID `bson:"_id" json:"_id"`
	FullName     string             `bson:"fullName" json:"fullName"`
	ProfileImage string             `bson:"profileImage" json:"profileImage"`
	Verified     bool               `bson:"verified" json:"verified"`
	PhoneNo      string             `bson:"phoneNo,omitempty" json:"phoneNo,omitempty"`
	Email        string             `bson:"email,omitempty" json:"email,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt" json:"memberSince"`
}

// SetPassword stores the bcrypt hash of plain.
func (u *User) SetPassword(plain string) error {
	hash, err := utils.HashPassword(plain)
	if err != nil {
		return err
	}
	u.Password = hash
	return nil
}

func (u *User) IsPasswordCorrect(plain string) bool {
	return utils.CheckPasswordHash(plain, u.Password)
}

func (u *User) GenerateAccessToken(tm *utils.TokenManager) (string, error) {
	return tm.GenerateAccessToken(u.ID.Hex(), u.Email, u.Username, u.Role)
}

func (u *User) GenerateRefreshToken(tm *utils.TokenManager) (string, error) {
	return tm.GenerateRefreshToken(u.ID.Hex())
}

// IsOTPValid reports whether otp matches the stored one and was issued within OTPValidity.
func (u *User) IsOTPValid(otp string, now time.Time) bool {
	if u.OTP == "" || u.OTPTimestamp == nil || otp == "" {
		return false
	}
	if now.Sub(*u.OTPTimestamp) > OTPValidity {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(u.OTP), []byte(otp)) == 1
}

// IsValidToken reports whether token matches the emailed verification token and was
// issued within TokenValidity.
func (u *User) IsValidToken(token string, now time.Time) bool {
	if u.Token == "" || u.TokenTimestamp == nil || token == "" {
		return false
	}
	if now.Sub(*u.TokenTimestamp) > TokenValidity {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(u.Token), []byte(token)) == 1
}

// CanList reports whether the user may publish listings.
func (u *User) CanList() bool { return u.Role == RoleOwner || u.Role == RoleAdmin }
