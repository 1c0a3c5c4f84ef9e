package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/flicky/premium-store/internal/dto"
	"github.com/flicky/premium-store/internal/model"
	"github.com/flicky/premium-store/internal/repository"
)

// AdminPolicy decides which verified emails are granted the admin flag.
type AdminPolicy interface {
	IsAdminEmail(email string) bool
}

type AuthService struct {
	userRepo  repository.UserRepository
	idp       IdentityProvider
	states    StateStore
	admins    AdminPolicy
	jwtSecret []byte
	jwtExpiry time.Duration
	now       func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, idp IdentityProvider, states StateStore, admins AdminPolicy, jwtSecret string, jwtExpiry time.Duration) *AuthService {
	return &AuthService{
		userRepo: userRepo, idp: idp, states: states, admins: admins,
		jwtSecret: []byte(jwtSecret), jwtExpiry: jwtExpiry, now: time.Now,
	}
}

// LoginURL starts the OAuth flow with a fresh single-use state.
func (s *AuthService) LoginURL(ctx context.Context) (string, error) {
	state := uuid.NewString()
	if err := s.states.Put(ctx, state); err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}
	return s.idp.AuthCodeURL(state), nil
}

// Callback completes the OAuth flow and issues a session token.
func (s *AuthService) Callback(ctx context.Context, state, code string) (*dto.AuthResponse, error) {
	ok, err := s.states.Consume(ctx, state)
	if err != nil {
		return nil, fmt.Errorf("consume oauth state: %w", err)
	}
	if !ok {
		return nil, ErrInvalidOAuthState
	}

	identity, err := s.idp.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange oauth code: %w", err)
	}
	email := strings.ToLower(strings.TrimSpace(identity.Email))
	if email == "" {
		return nil, fmt.Errorf("exchange oauth code: identity has no email")
	}

	user := &model.User{
		Email:   email,
		Name:    identity.Name,
		IsAdmin: s.admins.IsAdminEmail(email),
	}
	if err := s.userRepo.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &dto.AuthResponse{Token: token, User: ToUserResponse(user)}, nil
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	resp := ToUserResponse(user)
	return &resp, nil
}

func (s *AuthService) generateToken(user *model.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"admin": user.IsAdmin,
		"exp":   now.Add(s.jwtExpiry).Unix(),
		"iat":   now.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}

func ToUserResponse(user *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID: user.ID, Email: user.Email, Name: user.Name,
		WhatsAppNumber: user.WhatsAppNumber, IsAdmin: user.IsAdmin,
		ReferralCode: user.ReferralCode, LoyaltyPoints: user.LoyaltyPoints,
		CreatedAt: user.CreatedAt,
	}
}
