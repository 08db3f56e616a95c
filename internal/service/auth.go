package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mkarlin/storefront-api/internal/auth"
	"github.com/mkarlin/storefront-api/internal/dto"
	"github.com/mkarlin/storefront-api/internal/model"
	"github.com/mkarlin/storefront-api/internal/repository"
)

var (
	ErrInvalidToken = errors.New("invalid identity token")
	ErrUserNotFound = errors.New("user not found")
)

// TokenVerifier is implemented by auth.Client; tests substitute a fake.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	SetRoleClaim(ctx context.Context, uid string, role model.Role) error
}

type AuthService struct {
	userRepo      repository.UserRepository
	verifier      TokenVerifier
	sessionSecret []byte
	sessionExpiry time.Duration
}

func NewAuthService(userRepo repository.UserRepository, verifier TokenVerifier, sessionSecret string, sessionExpiry time.Duration) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		verifier:      verifier,
		sessionSecret: []byte(sessionSecret),
		sessionExpiry: sessionExpiry,
	}
}

// Login exchanges a verified provider token for a local user row and a
// session token. The upsert is idempotent: first login creates the row,
// later ones refresh name, email and role from the claims.
func (s *AuthService) Login(ctx context.Context, idToken string) (*dto.LoginResponse, error) {
	token, err := s.verifier.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user := &model.User{
		UID:   token.UID,
		Name:  token.Name,
		Email: token.Email,
		Role:  token.Role,
	}
	if err := s.userRepo.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	session, err := s.generateToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}
	return &dto.LoginResponse{Token: session, User: toUserResponse(user)}, nil
}

// SetRole assigns a role both as a provider custom claim and on the
// local row, so it takes effect without waiting for the next login.
func (s *AuthService) SetRole(ctx context.Context, uid string, role model.Role) error {
	user, err := s.userRepo.GetByUID(ctx, uid)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	if err := s.verifier.SetRoleClaim(ctx, uid, role); err != nil {
		return fmt.Errorf("set role claim: %w", err)
	}
	if err := s.userRepo.UpdateRole(ctx, uid, role); err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	return nil
}

func (s *AuthService) generateToken(user *model.User) (string, error) {
	claims := jwt.MapClaims{
		"sub":  user.UID,
		"role": string(user.Role),
		"exp":  time.Now().Add(s.sessionExpiry).Unix(),
		"iat":  time.Now().Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.sessionSecret)
}

func toUserResponse(user *model.User) dto.UserResponse {
	return dto.UserResponse{
		UID:             user.UID,
		Name:            user.Name,
		Email:           user.Email,
		PhoneNumber:     user.PhoneNumber,
		ShippingAddress: user.ShippingAddress,
		Role:            string(user.Role),
	}
}
