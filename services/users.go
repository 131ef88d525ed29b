package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"battery-erp-backend/models"
	"battery-erp-backend/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const minPasswordLength = 6

var ErrInvalidCredentials = errors.New("invalid credentials")

type CreateUserInput struct {
	Username string      `json:"username" binding:"required"`
	FullName string      `json:"fullName" binding:"required"`
	Role     models.Role `json:"role" binding:"required"`
	Password string      `json:"password" binding:"required"`
}

type UserService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewUserService(db *gorm.DB, logger *zap.Logger) *UserService {
	return &UserService{db: db, logger: logger}
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

// Authenticate checks credentials of an active account and stamps last login.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	err := db.Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !user.Active || !utils.CheckPasswordHash(password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if err := db.Model(&user).Update("last_login", &now).Error; err != nil {
		s.logger.Warn("failed to update last login", zap.String("username", user.Username), zap.Error(err))
	}
	user.LastLogin = &now
	return &user, nil
}

func (s *UserService) List(ctx context.Context, actor models.Actor) ([]models.User, error) {
	if err := Authorize(actor, OpManageUsers); err != nil {
		return nil, err
	}
	var users []models.User
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *UserService) Create(ctx context.Context, actor models.Actor, input CreateUserInput) (*models.User, error) {
	if err := Authorize(actor, OpManageUsers); err != nil {
		return nil, err
	}

	input.Username = strings.TrimSpace(input.Username)
	input.FullName = strings.TrimSpace(input.FullName)
	if input.Username == "" || input.FullName == "" || input.Password == "" {
		return nil, validationError("all fields are required")
	}
	if utils.TooLong(input.Username, models.MaxUsernameLength) || utils.TooLong(input.FullName, models.MaxFullNameLength) {
		return nil, validationError("username must be at most %d characters and full name at most %d",
			models.MaxUsernameLength, models.MaxFullNameLength)
	}
	if !input.Role.Valid() {
		return nil, validationError("unknown role %q", input.Role)
	}
	if len(input.Password) < minPasswordLength {
		return nil, validationError("password must be at least %d characters", minPasswordLength)
	}

	db := s.db.WithContext(ctx)
	var existing int64
	if err := db.Model(&models.User{}).Where("username = ?", input.Username).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existing > 0 {
		return nil, validationError("username %s already exists", input.Username)
	}

	user := models.User{
		Username: input.Username,
		FullName: input.FullName,
		Role:     input.Role,
		Password: input.Password,
		Active:   true,
	}
	if err := db.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, validationError("username %s already exists", input.Username)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user created",
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)),
		zap.String("by", actor.Username))
	return &user, nil
}

// ToggleActive flips the active flag. Admins cannot deactivate themselves.
func (s *UserService) ToggleActive(ctx context.Context, actor models.Actor, id uint) (*models.User, error) {
	if err := Authorize(actor, OpManageUsers); err != nil {
		return nil, err
	}
	if id == actor.ID {
		return nil, validationError("cannot deactivate your own account")
	}

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Active = !user.Active
	if err := s.db.WithContext(ctx).Model(user).Update("active", user.Active).Error; err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.logger.Info("user active flag changed",
		zap.String("username", user.Username),
		zap.Bool("active", user.Active),
		zap.String("by", actor.Username))
	return user, nil
}

// ChangePassword requires the current password and clears a pending reset.
func (s *UserService) ChangePassword(ctx context.Context, actor models.Actor, current, next string) error {
	if actor.ID == 0 || !actor.Active {
		return ErrPermissionDenied
	}
	if len(next) < minPasswordLength {
		return validationError("password must be at least %d characters", minPasswordLength)
	}

	user, err := s.Get(ctx, actor.ID)
	if err != nil {
		return err
	}
	if !utils.CheckPasswordHash(current, user.Password) {
		return validationError("current password is incorrect")
	}

	hashed, err := utils.HashPassword(next)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	err = s.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"password":                hashed,
		"password_reset_required": false,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to change password: %w", err)
	}
	return nil
}

// SeedDefaults creates the stock accounts when they are missing.
func (s *UserService) SeedDefaults(ctx context.Context) error {
	defaults := []models.User{
		{Username: "admin", Password: "admin123", Role: models.RoleAdmin, FullName: "System Administrator", Active: true},
		{Username: "staff", Password: "staff123", Role: models.RoleShopStaff, FullName: "Shop Staff", Active: true},
		{Username: "technician", Password: "tech123", Role: models.RoleTechnician, FullName: "Technician", Active: true},
	}

	db := s.db.WithContext(ctx)
	for i := range defaults {
		u := defaults[i]
		result := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&u)
		if result.Error != nil {
			return fmt.Errorf("failed to seed user %s: %w", u.Username, result.Error)
		}
		if result.RowsAffected > 0 {
			s.logger.Info("seeded default user", zap.String("username", u.Username))
		}
	}
	return nil
}
