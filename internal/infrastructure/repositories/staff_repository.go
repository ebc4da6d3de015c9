package repositories

import (
	"context"
	"time"

	"github.com/ak/pos/internal/domain/models"
	"github.com/ak/pos/internal/domain/repositories"
	"github.com/ak/pos/internal/infrastructure/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type staffRepository struct{}

func NewStaffRepository() repositories.StaffRepository {
	return &staffRepository{}
}

func (r *staffRepository) GetByID(ctx context.Context, t repositories.Tenant, id primitive.ObjectID) (*models.Staff, error) {
	var staff models.Staff
	err := t.Collection(database.CollectionStaff).FindOne(ctx, bson.M{"_id": id}).Decode(&staff)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &staff, nil
}

func (r *staffRepository) GetByEmail(ctx context.Context, t repositories.Tenant, email string) (*models.Staff, error) {
	var staff models.Staff
	err := t.Collection(database.CollectionStaff).FindOne(ctx, bson.M{"email": email}).Decode(&staff)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &staff, nil
}

func (r *staffRepository) GetByPinKey(ctx context.Context, t repositories.Tenant, pinKey string) (*models.Staff, error) {
	var staff models.Staff
	err := t.Collection(database.CollectionStaff).FindOne(ctx, bson.M{"pin_key": pinKey}).Decode(&staff)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &staff, nil
}

func (r *staffRepository) SetPin(ctx context.Context, t repositories.Tenant, id primitive.ObjectID, pinKey, pinHash string) error {
	_, err := t.Collection(database.CollectionStaff).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"pin_key":    pinKey,
			"pin_hash":   pinHash,
			"updated_at": time.Now(),
		}})
	return err
}
