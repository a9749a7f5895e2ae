package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gym-assistant/internal/auth/config"
	"gym-assistant/internal/auth/domain/repository"
	apperrors "gym-assistant/internal/shared/errors"

	"github.com/golang-jwt/jwt/v5"
)

// Validation failures wrap apperrors.ErrInvalidToken or
// apperrors.ErrTokenExpired, so apperrors.HTTPStatus reports 401.
var (
	ErrTokenInvalid          = fmt.Errorf("token is malformed: %w", apperrors.ErrInvalidToken)
	ErrTokenExpired          = fmt.Errorf("token is expired: %w", apperrors.ErrTokenExpired)
	ErrTokenSignatureInvalid = fmt.Errorf("token signature is invalid: %w", apperrors.ErrInvalidToken)
	ErrTokenPurpose          = fmt.Errorf("token was issued for another purpose: %w", apperrors.ErrInvalidToken)
)

// JWTokenService issues and checks HS256 tokens for sessions and password
// resets.
type JWTokenService struct {
	secretKey []byte
	issuer    string
	ttls      map[string]time.Duration
	now       func() time.Time
}

// NewJWTokenService creates a new JWT token service
func NewJWTokenService(cfg *config.Config) (*JWTokenService, error) {
	if cfg.JWTSecretKey == "" {
		return nil, errors.New("jwt secret key cannot be empty")
	}
	if cfg.JWTIssuer == "" {
		return nil, errors.New("jwt issuer cannot be empty")
	}
	if cfg.SessionTokenTTL <= 0 || cfg.ResetTokenTTL <= 0 {
		return nil, errors.New("jwt token TTL must be positive")
	}

	return &JWTokenService{
		secretKey: []byte(cfg.JWTSecretKey),
		issuer:    cfg.JWTIssuer,
		ttls: map[string]time.Duration{
			repository.PurposeSession:       cfg.SessionTokenTTL,
			repository.PurposePasswordReset: cfg.ResetTokenTTL,
		},
		now: time.Now,
	}, nil
}

// GenerateToken signs a token for userID valid for purpose's TTL.
func (s *JWTokenService) GenerateToken(ctx context.Context, userID, email, purpose string) (string, error) {
	ttl, ok := s.ttls[purpose]
	if !ok {
		return "", ErrTokenPurpose
	}
	now := s.now()
	claims := &repository.Claims{
		UserID:  userID,
		Email:   email,
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// ValidateToken validates a JWT token and returns the claims
func (s *JWTokenService) ValidateToken(ctx context.Context, tokenString, purpose string) (*repository.Claims, error) {
	if tokenString == "" {
		return nil, ErrTokenInvalid
	}

	token, err := jwt.ParseWithClaims(tokenString, &repository.Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenSignatureInvalid
		}
		return s.secretKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithTimeFunc(s.now))

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenSignatureInvalid
		default:
			return nil, ErrTokenInvalid
		}
	}

	claims, ok := token.Claims.(*repository.Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Purpose != purpose {
		return nil, ErrTokenPurpose
	}
	return claims, nil
}

var _ repository.TokenService = (*JWTokenService)(nil)
