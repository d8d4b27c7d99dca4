package services

import (
	"context"
	"errors"
	"strings"

	"qrtrace-backend/internal/auth"
	"qrtrace-backend/internal/models"
	"qrtrace-backend/internal/repositories"
)

var ErrInvalidCredentials = errors.New("invalid email or password")

type AuthService struct {
	UserRepo   *repositories.UserRepository
	JWTManager *auth.JWTManager
}

func NewAuthService(userRepo *repositories.UserRepository, jwtManager *auth.JWTManager) *AuthService {
	return &AuthService{
		UserRepo:   userRepo,
		JWTManager: jwtManager,
	}
}

func (s *AuthService) Signup(ctx context.Context, req *models.SignupRequest) (*models.User, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return nil, errors.New("valid email is required")
	}
	if len(req.Password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}
	if req.Name == "" {
		return nil, errors.New("name is required")
	}
	if req.Role == "" {
		req.Role = "operator"
	}
	if req.Role != "operator" && req.Role != "admin" {
		return nil, errors.New("role must be operator or admin")
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Role:         req.Role,
	}
	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	user, err := s.UserRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive || !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, ErrInvalidCredentials
	}

	token, err := s.JWTManager.Generate(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	return &models.LoginResponse{Token: token, User: user}, nil
}
