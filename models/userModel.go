package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"

	ProviderEmail  = "email"
	ProviderGoogle = "google"
)

// User is the identity record. Credentials and one-time token hashes never
// leave the service.
type User struct {
	ID                    string         `gorm:"primaryKey;size:36" json:"id"`
	Email                 string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash          string         `gorm:"size:255" json:"-"`
	EmailVerified         bool           `gorm:"not null" json:"emailVerified"`
	Provider              string         `gorm:"size:20;not null" json:"provider"`
	ProviderMetadata      datatypes.JSON `json:"-"`
	VerificationTokenHash string         `gorm:"size:64;index" json:"-"`
	ResetTokenHash        string         `gorm:"size:64;index" json:"-"`
	ResetTokenExpiresAt   *time.Time     `json:"-"`
	CreatedAt             time.Time      `json:"createdAt"`
	UpdatedAt             time.Time      `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Provider == "" {
		u.Provider = ProviderEmail
	}
	return nil
}

// Profile is the application-level record paired one-to-one with a User.
type Profile struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	FullName  string    `gorm:"size:255" json:"fullName"`
	Role      string    `gorm:"size:20;not null;index" json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (p Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// AdminSeat holds one row per deployment, written by the first-admin
// bootstrap. Its primary key lets only one bootstrap commit.
type AdminSeat struct {
	Slot      string    `gorm:"primaryKey;size:20"`
	UserID    string    `gorm:"size:36;not null"`
	CreatedAt time.Time
}

const AdminSeatSlot = "admin"

type LoginData struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type SignUpData struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"fullName" binding:"required"`
}
