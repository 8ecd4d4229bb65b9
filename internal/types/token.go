package types

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/pageza/foodgram/backend/internal/models"
)

// TokenClaims represents the claims in a JWT token
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID uint        `json:"user_id"`
	Role   models.Role `json:"role"`
}

// LoginRequest is the payload of the token login endpoint
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse carries an issued token
type TokenResponse struct {
	AuthToken string `json:"auth_token"`
}
