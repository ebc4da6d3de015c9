package repositories

import (
	"context"

	"github.com/ak/pos/internal/domain/models"
	"github.com/ak/pos/internal/domain/repositories"
	"github.com/ak/pos/internal/infrastructure/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type recipeRepository struct{}

func NewRecipeRepository() repositories.RecipeRepository {
	return &recipeRepository{}
}

func (r *recipeRepository) GetByID(ctx context.Context, t repositories.Tenant, id primitive.ObjectID) (*models.Recipe, error) {
	var recipe models.Recipe
	err := t.Collection(database.CollectionRecipes).FindOne(ctx, bson.M{"_id": id}).Decode(&recipe)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &recipe, nil
}

func (r *recipeRepository) GetVariant(ctx context.Context, t repositories.Tenant, id primitive.ObjectID) (*models.RecipeVariant, error) {
	var variant models.RecipeVariant
	err := t.Collection(database.CollectionRecipeVariants).FindOne(ctx, bson.M{"_id": id}).Decode(&variant)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &variant, nil
}

func (r *recipeRepository) GetVariants(ctx context.Context, t repositories.Tenant, ids []primitive.ObjectID) ([]*models.RecipeVariant, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cursor, err := t.Collection(database.CollectionRecipeVariants).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var variants []*models.RecipeVariant
	if err := cursor.All(ctx, &variants); err != nil {
		return nil, err
	}
	return variants, nil
}
