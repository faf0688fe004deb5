package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fullpos/poscloud/internal/store"
	"github.com/fullpos/poscloud/internal/users"
	"github.com/fullpos/poscloud/model"
	"github.com/fullpos/poscloud/params"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the owner-app session carried by the bearer token.
type Claims struct {
	UserID    uint   `json:"id"`
	CompanyID uint   `json:"companyId"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	Email     string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	TokenType    string    `json:"tokenType"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type RefreshSession struct {
	UserID    uint      `json:"userId"`
	CompanyID uint      `json:"companyId"`
	CreatedAt time.Time `json:"createdAt"`
}

type UserLookup interface {
	Authenticate(ctx context.Context, identifier string, password string) (*model.User, error)
	GetUserByID(ctx context.Context, userID uint) (*model.User, error)
}

type AuthService struct {
	secret       []byte
	accessTTL    time.Duration
	refreshTTL   time.Duration
	users        UserLookup
	refreshStore store.Store[RefreshSession]
	now          func() time.Time
}

func (s *AuthService) issueTokens(user *model.User) (*TokenPair, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	claims := Claims{
		UserID:    user.ID,
		CompanyID: user.CompanyID,
		Username:  user.Username,
		Role:      user.Role,
		Email:     user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}

	refreshToken := uuid.NewString()
	session := RefreshSession{UserID: user.ID, CompanyID: user.CompanyID, CreatedAt: now}
	if err := s.refreshStore.Set(refreshToken, session, s.refreshTTL); err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *AuthService) Login(ctx context.Context, identifier string, password string) (*TokenPair, *model.User, error) {
	user, err := s.users.Authenticate(ctx, identifier, password)
	if err != nil {
		return nil, nil, err
	}
	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	return tokens, user, nil
}

// Refresh rotates a refresh token. The old one is consumed even when the
// account turns out to be disabled.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrRefreshTokenInvalid
	}
	session, err := s.refreshStore.Take(refreshToken)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrRefreshTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByID(ctx, session.UserID)
	if errors.Is(err, users.ErrUserNotFound) {
		return nil, ErrRefreshTokenInvalid
	}
	if err != nil {
		// Put the session back so a lookup outage does not log the user out.
		if ttl := session.CreatedAt.Add(s.refreshTTL).Sub(s.now()); ttl > 0 {
			if restoreErr := s.refreshStore.Set(refreshToken, session, ttl); restoreErr != nil {
				slog.Error("Failed to restore refresh session", "userId", session.UserID, "error", restoreErr)
			}
		}
		return nil, fmt.Errorf("load refresh session user: %w", err)
	}
	if user.Disabled || user.CompanyID != session.CompanyID {
		return nil, ErrRefreshTokenInvalid
	}
	return s.issueTokens(user)
}

func (s *AuthService) Logout(refreshToken string) error {
	return s.refreshStore.Delete(refreshToken)
}

func (s *AuthService) ParseAccessToken(tokenStr string) (*Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, ErrAccessTokenInvalid
	}
	return &claims, nil
}

type Option func(*AuthService)

func WithClock(now func() time.Time) Option {
	return func(s *AuthService) {
		s.now = now
	}
}

func WithTTL(accessTTL, refreshTTL time.Duration) Option {
	return func(s *AuthService) {
		s.accessTTL = accessTTL
		s.refreshTTL = refreshTTL
	}
}

func NewAuthService(secret string, users UserLookup, refreshStore store.Store[RefreshSession], opts ...Option) *AuthService {
	s := &AuthService{
		secret:       []byte(secret),
		accessTTL:    params.AccessTokenExpiration,
		refreshTTL:   params.RefreshTokenExpiration,
		users:        users,
		refreshStore: refreshStore,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
