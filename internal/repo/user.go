package repo

import (
	"context"
	"errors"
	"fmt"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/servicehub/backend/internal/hash"
	"github.com/servicehub/backend/internal/models"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserAlreadyExist = errors.New("user already exist")
	ErrPasswordPolicy   = errors.New("password does not satisfy policy")
	ErrRoleNotFound     = errors.New("role not found")
)

// ValidatePassword enforces the registration password policy: at least
// eight characters with an upper-case letter, a lower-case letter and a
// digit.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrPasswordPolicy
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return ErrPasswordPolicy
	}
	return nil
}

// CreateUser registers a local user. Creation is all-or-nothing: a policy
// violation or taken username/email leaves no partial record behind.
func (r *GormRepo) CreateUser(ctx context.Context, username, email, password string) (*models.User, error) {
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: pwHash,
	}
	if err := r.InsertUser(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) InsertUser(ctx context.Context, u *models.User) error {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("username = ? OR email = ?", u.Username, u.Email).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrUserAlreadyExist
	}
	return r.DB.WithContext(ctx).Create(u).Error
}

func (r *GormRepo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) VerifyPassword(user *models.User, password string) bool {
	if user.PasswordHash == "" {
		return false
	}
	return hash.CheckPassword(user.PasswordHash, password)
}

func (r *GormRepo) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return r.DB.WithContext(ctx).
		Select("Roles", "Claims").
		Delete(&models.User{ID: id}).Error
}

func (r *GormRepo) GetRoles(ctx context.Context, userID uuid.UUID) ([]string, error) {
	var names []string
	err := r.DB.WithContext(ctx).Model(&models.Role{}).
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("roles.name").
		Pluck("roles.name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (r *GormRepo) AddToRole(ctx context.Context, user *models.User, roleName string) error {
	var role models.Role
	if err := r.DB.WithContext(ctx).Where("name = ?", roleName).First(&role).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRoleNotFound
		}
		return err
	}
	return r.DB.WithContext(ctx).Model(user).Association("Roles").Append(&role)
}

func (r *GormRepo) GetClaims(ctx context.Context, userID uuid.UUID) ([]models.UserClaim, error) {
	var claims []models.UserClaim
	if err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Find(&claims).Error; err != nil {
		return nil, err
	}
	return claims, nil
}

func (r *GormRepo) AddClaims(ctx context.Context, userID uuid.UUID, claims []models.UserClaim) error {
	if len(claims) == 0 {
		return nil
	}
	for i := range claims {
		claims[i].UserID = userID
	}
	return r.DB.WithContext(ctx).Create(&claims).Error
}

func (r *GormRepo) RemoveClaims(ctx context.Context, userID uuid.UUID, claims []models.UserClaim) error {
	if len(claims) == 0 {
		return nil
	}
	types := make([]string, len(claims))
	for i, c := range claims {
		types[i] = c.Type
	}
	return r.DB.WithContext(ctx).
		Where("user_id = ? AND type IN ?", userID, types).
		Delete(&models.UserClaim{}).Error
}
