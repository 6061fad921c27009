package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "token-management-backend/internal/common/errors"
	"token-management-backend/internal/common/logger"
	"token-management-backend/internal/features/transaction/models"
	"token-management-backend/internal/features/transaction/repository"
)

type Service struct {
	repo repository.TransactionRepository
}

func NewService(repo repository.TransactionRepository) *Service {
	return &Service{repo: repo}
}

// Record appends a ledger entry for an observed transfer. It reports
// false when the chain event was already recorded.
func (s *Service) Record(ctx context.Context, eventID, from, to, amount string) (bool, error) {
	tx := &models.Transaction{
		ID:        uuid.New().String(),
		EventID:   eventID,
		From:      from,
		To:        to,
		Amount:    amount,
		Timestamp: time.Now().UTC(),
	}

	recorded, err := s.repo.Record(ctx, tx)
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrCodeStorage, "failed to record transfer")
	}
	if !recorded {
		logger.Debug().
			Str("event_id", eventID).
			Msg("Skipping redelivered transfer event")
	}
	return recorded, nil
}

// History returns the transfer history of address. The caller's wallet
// address must match the queried one; anything else is Forbidden.
func (s *Service) History(ctx context.Context, principal, address string) ([]*models.Transaction, error) {
	if !strings.EqualFold(principal, address) {
		return nil, apperrors.New(apperrors.ErrCodeForbidden, "Unauthorized")
	}

	transactions, err := s.repo.History(ctx, address)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeStorage, "failed to load history")
	}
	return transactions, nil
}
