package repositories

import (
	"context"
	"time"

	"github.com/ak/pos/internal/domain/models"
	"github.com/ak/pos/internal/domain/repositories"
	"github.com/ak/pos/internal/infrastructure/database"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type inventoryRepository struct{}

func NewInventoryRepository() repositories.InventoryRepository {
	return &inventoryRepository{}
}

func (r *inventoryRepository) GetItem(ctx context.Context, t repositories.Tenant, id primitive.ObjectID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := t.Collection(database.CollectionInventoryItems).FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *inventoryRepository) GetItems(ctx context.Context, t repositories.Tenant, ids []primitive.ObjectID) ([]*models.InventoryItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := t.Collection(database.CollectionInventoryItems).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var items []*models.InventoryItem
	if err := cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *inventoryRepository) GetBranchStock(ctx context.Context, t repositories.Tenant, branchID primitive.ObjectID, itemIDs []primitive.ObjectID) ([]*models.BranchInventory, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}
	cursor, err := t.Collection(database.CollectionBranchInventory).Find(ctx, bson.M{
		"branch_id": branchID,
		"item_id":   bson.M{"$in": itemIDs},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []*models.BranchInventory
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// ApplyDeltas increments on-hand quantities with one bulk write.
func (r *inventoryRepository) ApplyDeltas(ctx context.Context, t repositories.Tenant, branchID primitive.ObjectID, deltas map[primitive.ObjectID]decimal.Decimal) error {
	if len(deltas) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(deltas))
	now := time.Now()
	for itemID, delta := range deltas {
		d128, err := primitive.ParseDecimal128(delta.String())
		if err != nil {
			return err
		}
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"branch_id": branchID, "item_id": itemID}).
			SetUpdate(bson.M{
				"$inc": bson.M{"on_hand_qty": d128},
				"$set": bson.M{"updated_at": now},
			}))
	}
	_, err := t.Collection(database.CollectionBranchInventory).BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	return err
}

func (r *inventoryRepository) InsertTransactions(ctx context.Context, t repositories.Tenant, txns []*models.InventoryTransaction) error {
	if len(txns) == 0 {
		return nil
	}
	docs := make([]any, len(txns))
	for i, txn := range txns {
		docs[i] = txn
	}
	_, err := t.Collection(database.CollectionInventoryTxns).InsertMany(ctx, docs)
	return err
}

func (r *inventoryRepository) ListBranchStock(ctx context.Context, t repositories.Tenant, branchID primitive.ObjectID, page, limit int) ([]*models.BranchInventory, int64, error) {
	query := bson.M{"branch_id": branchID}

	coll := t.Collection(database.CollectionBranchInventory)
	total, err := coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "item_id", Value: 1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var rows []*models.BranchInventory
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *inventoryRepository) ListTransactions(ctx context.Context, t repositories.Tenant, filter repositories.TxnFilter) ([]*models.InventoryTransaction, int64, error) {
	query := bson.M{"branch_id": filter.BranchID}
	if filter.ItemID != nil {
		query["item_id"] = *filter.ItemID
	}
	if filter.OrderID != nil {
		query["ref.order_id"] = *filter.OrderID
	}
	if filter.Type != "" {
		query["type"] = filter.Type
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	coll := t.Collection(database.CollectionInventoryTxns)
	total, err := coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "ts", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var txns []*models.InventoryTransaction
	if err := cursor.All(ctx, &txns); err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}
