package repositories

import (
	"context"

	"github.com/ak/pos/internal/domain/models"
	"github.com/ak/pos/internal/domain/repositories"
	"github.com/ak/pos/internal/infrastructure/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type counterRepository struct{}

func NewCounterRepository() repositories.CounterRepository {
	return &counterRepository{}
}

// Next upserts the (branch, prefix, dateKey) counter and returns the
// incremented sequence. FindOneAndUpdate keeps the increment atomic under
// concurrent commits.
func (r *counterRepository) Next(ctx context.Context, t repositories.Tenant, branchID primitive.ObjectID, prefix, dateKey string) (int64, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter models.OrderNumberCounter
	err := t.Collection(database.CollectionCounters).FindOneAndUpdate(ctx,
		bson.M{"branch_id": branchID, "prefix": prefix, "date_key": dateKey},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, err
	}
	return counter.Seq, nil
}
