package repository

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// Token purposes.
const (
	PurposeSession       = "session"
	PurposePasswordReset = "password_reset"
)

// TokenService defines the interface for token operations
type TokenService interface {
	GenerateToken(ctx context.Context, userID, email, purpose string) (string, error)
	ValidateToken(ctx context.Context, tokenString, purpose string) (*Claims, error)
}

// Claims represents JWT claims
type Claims struct {
	UserID  string `json:"userID"`
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}
