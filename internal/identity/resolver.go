// Package identity matches callers to patient records and registers new
// patients for the front desk.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"clinic-app-server/internal/models"
	"clinic-app-server/internal/store"
)

// ErrPatientNotFound means no patient matched the candidate strictly.
var ErrPatientNotFound = errors.New("patient not found")

// PhoneSuffixLen is how many trailing digits of a phone number identify a patient.
const PhoneSuffixLen = 10

// Directory is the subset of the user store the resolver needs.
type Directory interface {
	FindByContact(ctx context.Context, email, phoneSuffix string) (*models.User, error)
	FindExact(ctx context.Context, email, phone, firstName string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	SaveUser(ctx context.Context, user *models.User) error
	AddToGroup(ctx context.Context, user *models.User, groupID string) error
	EmailTaken(ctx context.Context, email string) (bool, error)
}

// Candidate is what an unauthenticated caller claims about themselves.
type Candidate struct {
	FullName string
	Email    string
	Phone    string
}

// Resolver finds patients in a Directory.
type Resolver struct {
	dir            Directory
	patientGroupID string
	atlasPrefix    string
}

func NewResolver(dir Directory, patientGroupID, atlasPrefix string) *Resolver {
	return &Resolver{dir: dir, patientGroupID: patientGroupID, atlasPrefix: atlasPrefix}
}

// PhoneSuffix keeps the last PhoneSuffixLen characters of phone as typed.
// Stored numbers are not normalized, so the suffix keeps any formatting
// and matches a number saved the same way.
func PhoneSuffix(phone string) string {
	r := []rune(strings.TrimSpace(phone))
	if len(r) > PhoneSuffixLen {
		r = r[len(r)-PhoneSuffixLen:]
	}
	return string(r)
}

// MatchPatient looks the candidate up by email and phone suffix, then
// requires the stored full name to equal the supplied one, ignoring case.
// A name mismatch is reported exactly like a missing record.
func (r *Resolver) MatchPatient(ctx context.Context, c Candidate) (*models.User, error) {
	email := strings.TrimSpace(c.Email)
	suffix := PhoneSuffix(c.Phone)
	if email == "" && suffix == "" {
		return nil, ErrPatientNotFound
	}

	user, err := r.dir.FindByContact(ctx, email, suffix)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup patient: %w", err)
	}

	if !strings.EqualFold(user.FullName(), strings.TrimSpace(c.FullName)) {
		return nil, ErrPatientNotFound
	}
	return user, nil
}

// Registration is the patient block of a front-desk appointment.
type Registration struct {
	Email        string `json:"email" binding:"required,email"`
	PhoneNumber  string `json:"phone_number" binding:"required"`
	FirstName    string `json:"first_name" binding:"required"`
	LastName     string `json:"last_name"`
	Address      string `json:"address"`
	Password     string `json:"password"`
	ProfileImage string `json:"-"`
}

// FindOrRegister returns the patient matching email, phone and first name
// exactly, or registers a new one in the patient group. created reports
// which happened. An email already held by someone else comes back as
// models.FieldErrors.
func (r *Resolver) FindOrRegister(ctx context.Context, reg Registration) (user *models.User, created bool, err error) {
	user, err = r.dir.FindExact(ctx, reg.Email, reg.PhoneNumber, reg.FirstName)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, false, fmt.Errorf("lookup patient: %w", err)
	}

	taken, err := r.dir.EmailTaken(ctx, reg.Email)
	if err != nil {
		return nil, false, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, false, models.FieldErrors{"email": {"user with this email already exists."}}
	}

	user = &models.User{
		Email:        reg.Email,
		FirstName:    reg.FirstName,
		LastName:     reg.LastName,
		PhoneNumber:  reg.PhoneNumber,
		Address:      reg.Address,
		ProfileImage: reg.ProfileImage,
		Role:         models.RolePatient,
	}
	password := reg.Password
	if password == "" {
		password = uuid.NewString()
	}
	if err := user.SetPassword(password); err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}

	if err := r.dir.CreateUser(ctx, user); err != nil {
		return nil, false, fmt.Errorf("create patient: %w", err)
	}
	if err := r.dir.AddToGroup(ctx, user, r.patientGroupID); err != nil {
		return nil, false, fmt.Errorf("assign patient group: %w", err)
	}
	user.AtlasID = r.atlasPrefix + user.ID
	if err := r.dir.SaveUser(ctx, user); err != nil {
		return nil, false, fmt.Errorf("stamp atlas id: %w", err)
	}
	return user, true, nil
}
