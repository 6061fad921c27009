package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"token-management-backend/internal/chain"
	apperrors "token-management-backend/internal/common/errors"
	"token-management-backend/internal/common/logger"
	authmodels "token-management-backend/internal/features/auth/models"
	usermodels "token-management-backend/internal/features/user/models"
	"token-management-backend/internal/features/user/repository"
)

const issuer = "token-management-backend"

type Service struct {
	users        repository.UserRepository
	verifier     chain.SignatureVerifier
	secret       []byte
	tokenTTL     time.Duration
	adminAddress string
}

func NewService(users repository.UserRepository, verifier chain.SignatureVerifier, secret string, tokenTTL time.Duration, adminAddress string) *Service {
	return &Service{
		users:        users,
		verifier:     verifier,
		secret:       []byte(secret),
		tokenTTL:     tokenTTL,
		adminAddress: adminAddress,
	}
}

// Login verifies the wallet signature, creates the user on first login
// and returns a signed session token.
func (s *Service) Login(ctx context.Context, req *authmodels.LoginRequest) (string, error) {
	valid, err := s.verifier.Verify(req.WalletAddress, req.Message, req.Signature)
	if err != nil {
		// Malformed signature material is an authentication failure,
		// not a server error.
		logger.Warn().Err(err).Str("wallet", req.WalletAddress).Msg("Signature verification rejected")
		return "", apperrors.New(apperrors.ErrCodeUnauthorized, "Invalid signature")
	}
	if !valid {
		return "", apperrors.New(apperrors.ErrCodeUnauthorized, "Invalid signature")
	}

	user, err := s.ensureUser(ctx, req.WalletAddress)
	if err != nil {
		return "", err
	}

	token, err := s.issueToken(user)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to sign session token")
	}
	return token, nil
}

// ensureUser returns the existing record or creates one, assigning the
// admin role iff the address matches the configured admin address. A
// lost SETNX race means another login created the record first; the
// stored record wins.
func (s *Service) ensureUser(ctx context.Context, address string) (*usermodels.User, error) {
	user, err := s.users.GetByAddress(ctx, address)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorage, "failed to load user")
	}

	role := usermodels.RoleUser
	if s.adminAddress != "" && strings.EqualFold(address, s.adminAddress) {
		role = usermodels.RoleAdmin
	}

	user = &usermodels.User{
		WalletAddress: address,
		Role:          role,
		CreatedAt:     time.Now().UTC(),
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorage, "failed to create user")
	}
	if !created {
		return s.users.GetByAddress(ctx, address)
	}

	logger.Info().Str("wallet", address).Str("role", string(role)).Msg("User created")
	return user, nil
}

func (s *Service) issueToken(user *usermodels.User) (string, error) {
	now := time.Now()
	claims := &authmodels.Claims{
		WalletAddress: user.WalletAddress,
		Role:          user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// ParseToken validates a session token against the server secret and
// returns its claims. Expired and malformed tokens are indistinguishable
// to the caller.
func (s *Service) ParseToken(tokenString string) (*authmodels.Claims, error) {
	claims := &authmodels.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.New(apperrors.ErrCodeUnauthorized, "Invalid token")
	}
	return claims, nil
}
