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

type menuRepository struct{}

func NewMenuRepository() repositories.MenuRepository {
	return &menuRepository{}
}

func (r *menuRepository) GetItem(ctx context.Context, t repositories.Tenant, id primitive.ObjectID) (*models.MenuItem, error) {
	var item models.MenuItem
	err := t.Collection(database.CollectionMenuItems).FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *menuRepository) GetItemBySlug(ctx context.Context, t repositories.Tenant, slug string) (*models.MenuItem, error) {
	var item models.MenuItem
	err := t.Collection(database.CollectionMenuItems).FindOne(ctx, bson.M{"slug": slug}).Decode(&item)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *menuRepository) GetBranchMenu(ctx context.Context, t repositories.Tenant, branchID, menuItemID primitive.ObjectID) (*models.BranchMenu, error) {
	var row models.BranchMenu
	err := t.Collection(database.CollectionBranchMenus).FindOne(ctx, bson.M{
		"branch_id":    branchID,
		"menu_item_id": menuItemID,
	}).Decode(&row)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *menuRepository) GetVariations(ctx context.Context, t repositories.Tenant, ids []primitive.ObjectID) ([]*models.MenuVariation, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := t.Collection(database.CollectionMenuVariations).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var variations []*models.MenuVariation
	if err := cursor.All(ctx, &variations); err != nil {
		return nil, err
	}
	return variations, nil
}

func (r *menuRepository) ListBranchMenu(ctx context.Context, t repositories.Tenant, branchID primitive.ObjectID, page, limit int) ([]*models.BranchMenu, int64, error) {
	query := bson.M{"branch_id": branchID, "visible_on_pos": true}

	coll := t.Collection(database.CollectionBranchMenus)
	total, err := coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "display_order", Value: 1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var rows []*models.BranchMenu
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
