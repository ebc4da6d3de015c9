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

type orderRepository struct{}

func NewOrderRepository() repositories.OrderRepository {
	return &orderRepository{}
}

func (r *orderRepository) Insert(ctx context.Context, t repositories.Tenant, order *models.Order) error {
	result, err := t.Collection(database.CollectionOrders).InsertOne(ctx, order)
	if err != nil {
		return err
	}
	order.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, t repositories.Tenant, id primitive.ObjectID) (*models.Order, error) {
	return r.findOne(ctx, t, bson.M{"_id": id})
}

func (r *orderRepository) GetByNumber(ctx context.Context, t repositories.Tenant, number string) (*models.Order, error) {
	return r.findOne(ctx, t, bson.M{"order_number": number})
}

func (r *orderRepository) GetByClientOpID(ctx context.Context, t repositories.Tenant, clientOpID string) (*models.Order, error) {
	return r.findOne(ctx, t, bson.M{"client_op_id": clientOpID})
}

func (r *orderRepository) findOne(ctx context.Context, t repositories.Tenant, query bson.M) (*models.Order, error) {
	var order models.Order
	err := t.Collection(database.CollectionOrders).FindOne(ctx, query).Decode(&order)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, t repositories.Tenant, id primitive.ObjectID, status models.OrderStatus) error {
	_, err := t.Collection(database.CollectionOrders).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"status":     status,
			"updated_at": time.Now(),
		}})
	return err
}

// SumCashByTillSession aggregates cash taken and cash refunded over the
// session. Void orders never held cash; refunded orders count on both sides.
func (r *orderRepository) SumCashByTillSession(ctx context.Context, t repositories.Tenant, tillSessionID primitive.ObjectID) (decimal.Decimal, decimal.Decimal, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"till_session_id": tillSessionID,
			"payment.method":  models.PaymentMethodCash,
			"status":          bson.M{"$ne": models.OrderStatusVoid},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":  nil,
			"paid": bson.M{"$sum": "$payment.amount_paid"},
			"refunded": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$status", models.OrderStatusRefunded}},
				"$totals.grand_total",
				primitive.NewDecimal128(0, 0),
			}}},
		}}},
	}

	cursor, err := t.Collection(database.CollectionOrders).Aggregate(ctx, pipeline)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	defer cursor.Close(ctx)

	var result struct {
		Paid     decimal.Decimal `bson:"paid"`
		Refunded decimal.Decimal `bson:"refunded"`
	}
	if cursor.Next(ctx) {
		if err := cursor.Decode(&result); err != nil {
			return decimal.Zero, decimal.Zero, err
		}
	}
	if err := cursor.Err(); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return result.Paid, result.Refunded, nil
}

func (r *orderRepository) ListByBranch(ctx context.Context, t repositories.Tenant, filter repositories.OrderFilter) ([]*models.Order, int64, error) {
	query := bson.M{"branch_id": filter.BranchID}
	if filter.TillSessionID != nil {
		query["till_session_id"] = *filter.TillSessionID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}

	coll := t.Collection(database.CollectionOrders)
	total, err := coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var orders []*models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}
