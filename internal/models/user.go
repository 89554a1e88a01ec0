package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Role enum
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
	RoleStaff   Role = "staff"
	RoleUser    Role = "user"
)

// User represents a user in the system
type User struct {
	BaseModel
	Email               string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Password            string     `gorm:"size:255;not null" json:"-"` // Never send password in JSON
	FirstName           string     `gorm:"size:100;index" json:"first_name"`
	LastName            string     `gorm:"size:100" json:"last_name"`
	Role                Role       `gorm:"size:20;default:'user'" json:"role"`
	DateOfBirth         *time.Time `json:"date_of_birth,omitempty"`
	PhoneNumber         string     `gorm:"size:32;index" json:"phone_number,omitempty"`
	Address             string     `json:"address,omitempty"`
	ProfileImage        string     `json:"profile_image,omitempty"`
	AtlasID             string     `gorm:"size:64;index" json:"atlas_id,omitempty"`
	DoctorCalendarColor string     `gorm:"size:20" json:"doctor_calender_color,omitempty"`

	// Relations (not always preloaded)
	Groups        []Group        `gorm:"many2many:user_groups" json:"-"`
	RefreshTokens []RefreshToken `gorm:"foreignKey:UserID" json:"-"`
}

// Group is a named permission group; patients registered at the front desk
// join a configured patient group.
type Group struct {
	BaseModel
	Name string `gorm:"uniqueIndex;size:150;not null" json:"name"`
}

// Actor is the identity a request acts as. It is resolved once per request
// and passed explicitly to every store and workflow call.
type Actor struct {
	UserID string
	Role   Role
}

// UserSanitized represents the user data that is safe to send in API responses.
type UserSanitized struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Role         Role       `json:"role"`
	DateOfBirth  *time.Time `json:"date_of_birth,omitempty"`
	PhoneNumber  string     `json:"phone_number,omitempty"`
	Address      string     `json:"address,omitempty"`
	ProfileImage string     `json:"profile_image,omitempty"`
	AtlasID      string     `json:"atlas_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// FullName joins first and last name the way the clinic displays them.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// SetPassword hashes a password and sets it on the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a password with the user's hashed password
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}

// Sanitize creates a UserSanitized struct from a User model, excluding sensitive data.
func (u *User) Sanitize() UserSanitized {
	return UserSanitized{
		ID:           u.ID,
		Email:        u.Email,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Role:         u.Role,
		DateOfBirth:  u.DateOfBirth,
		PhoneNumber:  u.PhoneNumber,
		Address:      u.Address,
		ProfileImage: u.ProfileImage,
		AtlasID:      u.AtlasID,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}
