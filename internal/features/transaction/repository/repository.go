package repository

import (
	"context"

	"token-management-backend/internal/features/transaction/models"
)

type TransactionRepository interface {
	// Record appends the entry and indexes it for both participants.
	// When tx.EventID was already recorded it reports false and writes
	// nothing.
	Record(ctx context.Context, tx *models.Transaction) (bool, error)

	// History returns every entry where address is sender or receiver,
	// in per-address insertion order.
	History(ctx context.Context, address string) ([]*models.Transaction, error)
}
