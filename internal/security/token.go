package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"wastebank-backend/internal/apperr"
	"wastebank-backend/internal/authz"
	"wastebank-backend/internal/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const issuer = "wastebank"

// UserClaims carries the identity snapshot taken at login.
type UserClaims struct {
	Role       domain.Role `json:"role"`
	LocationID *string     `json:"locationId,omitempty"`
	Email      string      `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type TokenManager interface {
	GenerateAccessToken(user *domain.User) (token string, expiresAt time.Time, err error)
	ValidateToken(tokenString string) (*UserClaims, error)
	// Authenticate resolves a bearer credential into a request identity.
	Authenticate(tokenString string) (authz.Caller, error)
}

type tokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) TokenManager {
	return &tokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (m *tokenManager) GenerateAccessToken(user *domain.User) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := UserClaims{
		Role:       user.Role,
		LocationID: user.LocationID,
		Email:      user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (m *tokenManager) ValidateToken(tokenString string) (*UserClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &UserClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(m.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*UserClaims); ok && token.Valid && claims.Subject != "" {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

func (m *tokenManager) Authenticate(tokenString string) (authz.Caller, error) {
	if tokenString == "" {
		return authz.Caller{}, apperr.Authentication("Authentication required")
	}
	claims, err := m.ValidateToken(tokenString)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			return authz.Caller{}, apperr.Authentication("Token expired")
		}
		return authz.Caller{}, apperr.Authentication("Invalid token")
	}
	if err := domain.ValidateRoleLocation(claims.Role, claims.LocationID); err != nil {
		return authz.Caller{}, apperr.Authentication("Invalid token")
	}

	c := authz.Caller{
		UserID:     claims.Subject,
		Role:       claims.Role,
		LocationID: claims.LocationID,
	}
	if claims.ExpiresAt != nil {
		c.ExpiresAt = claims.ExpiresAt.Time
	}
	return c, nil
}
