package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"token-management-backend/internal/common/logger"
	"token-management-backend/internal/features/transaction/models"
	"token-management-backend/internal/features/transaction/repository"
)

type transactionRepository struct {
	client *redis.Client
}

func NewTransactionRepository(client *redis.Client) repository.TransactionRepository {
	return &transactionRepository{
		client: client,
	}
}

func txKey(id string) string {
	return fmt.Sprintf("tx:%s", id)
}

func ledgerKey(address string) string {
	return fmt.Sprintf("ledger:%s", strings.ToLower(address))
}

func eventKey(eventID string) string {
	return fmt.Sprintf("txevent:%s", eventID)
}

func (r *transactionRepository) Record(ctx context.Context, tx *models.Transaction) (bool, error) {
	if tx.EventID != "" {
		// Idempotency guard: one ledger entry per chain event,
		// regardless of feed redeliveries.
		fresh, err := r.client.SetNX(ctx, eventKey(tx.EventID), tx.ID, 0).Result()
		if err != nil {
			return false, err
		}
		if !fresh {
			return false, nil
		}
	}

	txJSON, err := json.Marshal(tx)
	if err != nil {
		return false, err
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, txKey(tx.ID), txJSON, 0)
	pipe.RPush(ctx, ledgerKey(tx.From), tx.ID)
	if !strings.EqualFold(tx.From, tx.To) {
		pipe.RPush(ctx, ledgerKey(tx.To), tx.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		// The entry was not written; free the guard so the caller's
		// retry is not mistaken for a redelivery.
		r.releaseGuard(ctx, tx.EventID)
		return false, err
	}

	return true, nil
}

func (r *transactionRepository) releaseGuard(ctx context.Context, eventID string) {
	if eventID == "" {
		return
	}
	if err := r.client.Del(ctx, eventKey(eventID)).Err(); err != nil {
		logger.Warn().
			Err(err).
			Str("event_id", eventID).
			Msg("Failed to release event guard; a retry of this event will be dropped as a duplicate")
	}
}

func (r *transactionRepository) History(ctx context.Context, address string) ([]*models.Transaction, error) {
	ids, err := r.client.LRange(ctx, ledgerKey(address), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*models.Transaction{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = txKey(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	transactions := make([]*models.Transaction, 0, len(values))
	for _, value := range values {
		raw, ok := value.(string)
		if !ok {
			// Index entry without a body; nothing deletes entries,
			// so this only happens on a corrupted store.
			continue
		}

		var tx models.Transaction
		if err := json.Unmarshal([]byte(raw), &tx); err != nil {
			continue
		}
		transactions = append(transactions, &tx)
	}

	return transactions, nil
}
