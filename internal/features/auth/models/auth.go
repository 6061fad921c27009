package models

import (
	"github.com/golang-jwt/jwt/v5"

	usermodels "token-management-backend/internal/features/user/models"
)

type LoginRequest struct {
	WalletAddress string `json:"walletAddress"`
	Signature     string `json:"signature"`
	Message       string `json:"message"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

// Claims is the session credential payload: the wallet principal plus
// the standard expiry handling.
type Claims struct {
	WalletAddress string          `json:"walletAddress"`
	Role          usermodels.Role `json:"role"`
	jwt.RegisteredClaims
}
