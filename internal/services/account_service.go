package services

import (
	"context"
	"fmt"

	"github.com/growsinofficial/kyc-sub000/internal/models/db_models"
	"github.com/growsinofficial/kyc-sub000/internal/models/request_models"
	"github.com/growsinofficial/kyc-sub000/internal/models/response_models"
	"github.com/growsinofficial/kyc-sub000/internal/repositories"
	"github.com/growsinofficial/kyc-sub000/pkg/utils"
)

type IAccountService interface {
	Register(ctx context.Context, req request_models.RegisterRequest) (*response_models.AuthResponse, error)
	Login(ctx context.Context, req request_models.LoginRequest) (*response_models.AuthResponse, error)
}

type accountService struct {
	accountRepo repositories.IAccountRepository
}

func NewAccountService(accountRepo repositories.IAccountRepository) IAccountService {
	return &accountService{accountRepo: accountRepo}
}

func (s *accountService) Register(ctx context.Context, req request_models.RegisterRequest) (*response_models.AuthResponse, error) {
	existing, err := s.accountRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if existing != nil {
		return nil, utils.ErrEmailTaken
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	account := &db_models.Account{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         "user",
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}

	token, err := utils.CreateToken(account.ID, account.Role)
	if err != nil {
		return nil, err
	}
	return &response_models.AuthResponse{Token: token, Name: account.Name, Email: account.Email}, nil
}

func (s *accountService) Login(ctx context.Context, req request_models.LoginRequest) (*response_models.AuthResponse, error) {
	account, err := s.accountRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrDatabaseError, err)
	}
	if account == nil {
		return nil, utils.ErrInvalidCredentials
	}
	if err := utils.ComparePasswords(account.PasswordHash, req.Password); err != nil {
		return nil, utils.ErrInvalidCredentials
	}

	token, err := utils.CreateToken(account.ID, account.Role)
	if err != nil {
		return nil, err
	}
	return &response_models.AuthResponse{Token: token, Name: account.Name, Email: account.Email}, nil
}
