package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"clinic-app-server/internal/models"
)

// Users reads and registers user records.
type Users struct {
	db *gorm.DB
}

func NewUsers(db *gorm.DB) *Users {
	return &Users{db: db}
}

func (u *Users) first(ctx context.Context, q *gorm.DB) (*models.User, error) {
	var user models.User
	err := q.WithContext(ctx).Order("created_at asc").First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID loads one user.
func (u *Users) FindByID(ctx context.Context, id string) (*models.User, error) {
	return u.first(ctx, u.db.Where("id = ?", id))
}

// FindByIDs loads users keyed by id. Missing ids are absent from the map.
func (u *Users) FindByIDs(ctx context.Context, ids []string) (map[string]models.User, error) {
	out := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := u.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for _, user := range users {
		out[user.ID] = user
	}
	return out, nil
}

// FindByContact matches an exact email and a phone number ending in
// phoneSuffix. Either clause is skipped when empty; the caller guarantees
// at least one is set.
func (u *Users) FindByContact(ctx context.Context, email, phoneSuffix string) (*models.User, error) {
	q := u.db
	if email != "" {
		q = q.Where("email = ?", email)
	}
	if phoneSuffix != "" {
		q = q.Where("phone_number LIKE ?", "%"+escapeLike(phoneSuffix))
	}
	return u.first(ctx, q)
}

// FindExact matches email, phone number and first name exactly.
func (u *Users) FindExact(ctx context.Context, email, phone, firstName string) (*models.User, error) {
	return u.first(ctx, u.db.Where("email = ? AND phone_number = ? AND first_name = ?", email, phone, firstName))
}

// EmailTaken reports whether another account already uses email.
func (u *Users) EmailTaken(ctx context.Context, email string) (bool, error) {
	var n int64
	if err := u.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// CreateUser inserts user.
func (u *Users) CreateUser(ctx context.Context, user *models.User) error {
	return u.db.WithContext(ctx).Create(user).Error
}

// SaveUser writes every column of user.
func (u *Users) SaveUser(ctx context.Context, user *models.User) error {
	return u.db.WithContext(ctx).Omit("Groups", "RefreshTokens").Save(user).Error
}

// AddToGroup puts the user into the group with groupID.
func (u *Users) AddToGroup(ctx context.Context, user *models.User, groupID string) error {
	var group models.Group
	err := u.db.WithContext(ctx).Where("id = ?", groupID).First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("patient group %q: %w", groupID, ErrNotFound)
	}
	if err != nil {
		return err
	}
	return u.db.WithContext(ctx).Model(user).Association("Groups").Append(&group)
}

// ListByRole returns users with role ordered by first name.
func (u *Users) ListByRole(ctx context.Context, role models.Role) ([]models.User, error) {
	users := []models.User{}
	err := u.db.WithContext(ctx).Where("role = ?", role).Order("first_name asc").Find(&users).Error
	return users, err
}
