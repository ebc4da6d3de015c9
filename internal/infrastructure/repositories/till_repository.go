package repositories

import (
	"context"
	"time"

	"github.com/ak/pos/internal/domain/models"
	"github.com/ak/pos/internal/domain/repositories"
	"github.com/ak/pos/internal/infrastructure/database"
	"github.com/ak/pos/internal/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type tillSessionRepository struct{}

func NewTillSessionRepository() repositories.TillSessionRepository {
	return &tillSessionRepository{}
}

func (r *tillSessionRepository) Create(ctx context.Context, t repositories.Tenant, session *models.TillSession) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
		session.UpdatedAt = session.CreatedAt
	}
	result, err := t.Collection(database.CollectionTillSessions).InsertOne(ctx, session)
	if err != nil {
		return err
	}
	session.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (r *tillSessionRepository) GetByID(ctx context.Context, t repositories.Tenant, id primitive.ObjectID) (*models.TillSession, error) {
	var session models.TillSession
	err := t.Collection(database.CollectionTillSessions).FindOne(ctx, bson.M{"_id": id}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (r *tillSessionRepository) FindOpen(ctx context.Context, t repositories.Tenant, branchID primitive.ObjectID, terminalID *primitive.ObjectID) (*models.TillSession, error) {
	query := bson.M{
		"branch_id": branchID,
		"status":    models.TillStatusOpen,
	}
	if terminalID != nil {
		query["pos_terminal_id"] = *terminalID
	} else {
		query["pos_terminal_id"] = bson.M{"$exists": false}
	}

	var session models.TillSession
	err := t.Collection(database.CollectionTillSessions).FindOne(ctx, query).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

// Seal transitions the session to closed with a status guard, so two
// concurrent closes cannot both succeed.
func (r *tillSessionRepository) Seal(ctx context.Context, t repositories.Tenant, session *models.TillSession) error {
	result, err := t.Collection(database.CollectionTillSessions).UpdateOne(ctx,
		bson.M{"_id": session.ID, "status": models.TillStatusOpen},
		bson.M{"$set": bson.M{
			"status":                  models.TillStatusClosed,
			"closed_at":               session.ClosedAt,
			"declared_closing_amount": session.DeclaredClosingAmount,
			"system_closing_amount":   session.SystemClosingAmount,
			"variance":                session.Variance,
			"cash_counts":             session.CashCounts,
			"notes":                   session.Notes,
			"updated_at":              session.UpdatedAt,
		}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return errors.TillNotOpen()
	}
	return nil
}

func (r *tillSessionRepository) ListByBranch(ctx context.Context, t repositories.Tenant, branchID primitive.ObjectID, status string, page, limit int) ([]*models.TillSession, int64, error) {
	query := bson.M{"branch_id": branchID}
	if status != "" {
		query["status"] = status
	}

	coll := t.Collection(database.CollectionTillSessions)
	total, err := coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "opened_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var sessions []*models.TillSession
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}
