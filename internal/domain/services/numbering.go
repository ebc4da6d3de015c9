package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ak/pos/internal/domain/repositories"
	"github.com/ak/pos/internal/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const defaultOrderPrefix = "POS"

// OrderNumbers allocates customer-facing order numbers of the form
// PREFIX-YYYYMMDD-NNNN, strictly increasing per (branch, prefix, day). The
// counter upsert is the sole coordination point between concurrent commits.
type OrderNumbers struct {
	counters repositories.CounterRepository
}

func NewOrderNumbers(counters repositories.CounterRepository) *OrderNumbers {
	return &OrderNumbers{counters: counters}
}

// Next allocates the next number. A transaction abort after allocation
// leaves a gap; that is accepted.
func (n *OrderNumbers) Next(ctx context.Context, t repositories.Tenant, branchID primitive.ObjectID, prefix string, at time.Time) (string, error) {
	if prefix == "" {
		prefix = defaultOrderPrefix
	}
	dateKey := DateKey(at)
	seq, err := n.counters.Next(ctx, t, branchID, prefix, dateKey)
	if err != nil {
		return "", errors.Database(err)
	}
	return FormatOrderNumber(prefix, dateKey, seq), nil
}

// DateKey renders the per-day counter key.
func DateKey(at time.Time) string {
	return at.Format("20060102")
}

// FormatOrderNumber zero-pads the sequence to four digits and grows without
// truncation beyond 9999.
func FormatOrderNumber(prefix, dateKey string, seq int64) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, dateKey, seq)
}
