package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/growsinofficial/kyc-sub000/internal/models/db_models"
	"gorm.io/gorm"
)

type IAccountRepository interface {
	Create(ctx context.Context, account *db_models.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*db_models.Account, error)
	GetByEmail(ctx context.Context, email string) (*db_models.Account, error)
	SetLedgerCustomerID(ctx context.Context, id uuid.UUID, customerID string) error
}

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) IAccountRepository {
	return &AccountRepository{db: db}
}

func (a *AccountRepository) Create(ctx context.Context, account *db_models.Account) error {
	return a.db.WithContext(ctx).Create(account).Error
}

func (a *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*db_models.Account, error) {
	var account db_models.Account
	err := a.db.WithContext(ctx).First(&account, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (a *AccountRepository) GetByEmail(ctx context.Context, email string) (*db_models.Account, error) {
	var account db_models.Account
	err := a.db.WithContext(ctx).First(&account, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (a *AccountRepository) SetLedgerCustomerID(ctx context.Context, id uuid.UUID, customerID string) error {
	return a.db.WithContext(ctx).Model(&db_models.Account{}).
		Where("id = ?", id).
		Update("ledger_customer_id", customerID).Error
}
