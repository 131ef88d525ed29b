package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"battery-erp-backend/models"
	"battery-erp-backend/utils"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type UpdateCustomerInput struct {
	Name            *string `json:"name"`
	Mobile          *string `json:"mobile"`
	MobileSecondary *string `json:"mobileSecondary"`
}

type CustomerService struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewCustomerService(db *gorm.DB, logger *zap.Logger) *CustomerService {
	return &CustomerService{db: db, logger: logger}
}

func (s *CustomerService) List(ctx context.Context, actor models.Actor, query string) ([]models.Customer, error) {
	if err := Authorize(actor, OpManageCustomers); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	if q := strings.TrimSpace(query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		db = db.Where("LOWER(name) LIKE ? OR mobile LIKE ?", like, like)
	}

	var customers []models.Customer
	if err := db.Order("name ASC, id ASC").Find(&customers).Error; err != nil {
		return nil, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, nil
}

// Get returns the customer with every battery they brought in, newest first.
func (s *CustomerService) Get(ctx context.Context, actor models.Actor, id uint) (*models.Customer, error) {
	if err := Authorize(actor, OpManageCustomers); err != nil {
		return nil, err
	}

	var customer models.Customer
	err := s.db.WithContext(ctx).
		Preload("Batteries", func(db *gorm.DB) *gorm.DB { return db.Order("inward_date DESC, id DESC") }).
		First(&customer, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("customer")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}
	return &customer, nil
}

func (s *CustomerService) Update(ctx context.Context, actor models.Actor, id uint, input UpdateCustomerInput) (*models.Customer, error) {
	if err := Authorize(actor, OpManageCustomers); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx)
	var customer models.Customer
	if err := db.First(&customer, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("customer")
		}
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}

	updates := map[string]interface{}{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, validationError("customer name cannot be empty")
		}
		if utils.TooLong(name, models.MaxCustomerNameLength) {
			return nil, validationError("customer name must be at most %d characters", models.MaxCustomerNameLength)
		}
		updates["name"] = name
	}
	if input.Mobile != nil {
		mobile := utils.NormalizePhone(*input.Mobile)
		if !utils.ValidatePhone(mobile) {
			return nil, validationError("invalid mobile number %q", *input.Mobile)
		}
		updates["mobile"] = mobile
	}
	if input.MobileSecondary != nil {
		secondary := utils.NormalizePhone(*input.MobileSecondary)
		switch {
		case secondary == "":
			updates["mobile_secondary"] = nil
		case utils.ValidatePhone(secondary):
			updates["mobile_secondary"] = secondary
		default:
			return nil, validationError("invalid secondary mobile number %q", *input.MobileSecondary)
		}
	}
	if len(updates) == 0 {
		return &customer, nil
	}

	if err := db.Model(&customer).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}
	if err := db.First(&customer, id).Error; err != nil {
		return nil, fmt.Errorf("failed to reload customer: %w", err)
	}
	return &customer, nil
}

// Delete removes a customer who has no batteries on record.
func (s *CustomerService) Delete(ctx context.Context, actor models.Actor, id uint) error {
	if err := Authorize(actor, OpManageCustomers); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customer models.Customer
		if err := tx.First(&customer, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("customer")
			}
			return fmt.Errorf("failed to load customer: %w", err)
		}

		var batteries int64
		if err := tx.Model(&models.Battery{}).Where("customer_id = ?", id).Count(&batteries).Error; err != nil {
			return fmt.Errorf("failed to count batteries: %w", err)
		}
		if batteries > 0 {
			return validationError("customer %s still has %d batteries on record", customer.Name, batteries)
		}

		if err := tx.Delete(&customer).Error; err != nil {
			return fmt.Errorf("failed to delete customer: %w", err)
		}
		s.logger.Info("customer deleted", zap.Uint("customer_id", id), zap.String("by", actor.Username))
		return nil
	})
}
