package repositories

import (
	"context"

	"github.com/ak/pos/internal/domain/models"
	"github.com/ak/pos/internal/domain/repositories"
	"github.com/ak/pos/internal/infrastructure/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type branchRepository struct{}

func NewBranchRepository() repositories.BranchRepository {
	return &branchRepository{}
}

func (r *branchRepository) GetByID(ctx context.Context, t repositories.Tenant, id primitive.ObjectID) (*models.Branch, error) {
	var branch models.Branch
	err := t.Collection(database.CollectionBranches).FindOne(ctx, bson.M{"_id": id}).Decode(&branch)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &branch, nil
}

func (r *branchRepository) GetByCode(ctx context.Context, t repositories.Tenant, code string) (*models.Branch, error) {
	var branch models.Branch
	err := t.Collection(database.CollectionBranches).FindOne(ctx, bson.M{"code": code}).Decode(&branch)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &branch, nil
}

type terminalRepository struct{}

func NewTerminalRepository() repositories.TerminalRepository {
	return &terminalRepository{}
}

func (r *terminalRepository) GetByID(ctx context.Context, t repositories.Tenant, id primitive.ObjectID) (*models.PosTerminal, error) {
	var term models.PosTerminal
	err := t.Collection(database.CollectionPosTerminals).FindOne(ctx, bson.M{"_id": id}).Decode(&term)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &term, nil
}

func (r *terminalRepository) GetByMachineID(ctx context.Context, t repositories.Tenant, machineID string) (*models.PosTerminal, error) {
	var term models.PosTerminal
	err := t.Collection(database.CollectionPosTerminals).FindOne(ctx, bson.M{"machine_id": machineID}).Decode(&term)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &term, nil
}

func (r *terminalRepository) ListByBranch(ctx context.Context, t repositories.Tenant, branchID primitive.ObjectID) ([]*models.PosTerminal, error) {
	cursor, err := t.Collection(database.CollectionPosTerminals).Find(ctx,
		bson.M{"branch_id": branchID},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var terminals []*models.PosTerminal
	if err := cursor.All(ctx, &terminals); err != nil {
		return nil, err
	}
	return terminals, nil
}
