package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Recipe is a composition of inventory items and sub-recipes. The dependency
// graph formed by recipe-typed ingredients must be acyclic.
type Recipe struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Yield       decimal.Decimal    `bson:"yield" json:"yield"` // batch output in base units
	YieldUnit   string             `bson:"yield_unit,omitempty" json:"yield_unit,omitempty"`
	TotalCost   decimal.Decimal    `bson:"total_cost" json:"total_cost"` // derived, per batch
	Ingredients []RecipeIngredient `bson:"ingredients" json:"ingredients"`
	IsDeleted   bool               `bson:"is_deleted" json:"is_deleted"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// RecipeIngredient is one line of a recipe or variant: either a leaf
// inventory item or a reference to a sub-recipe expanded at its own yield.
type RecipeIngredient struct {
	SourceType   IngredientSource   `bson:"source_type" json:"source_type"`
	SourceID     primitive.ObjectID `bson:"source_id" json:"source_id"`
	Quantity     decimal.Decimal    `bson:"quantity" json:"quantity"`
	Unit         string             `bson:"unit" json:"unit"`
	NameSnapshot string             `bson:"name_snapshot" json:"name_snapshot"`
	CostPerUnit  decimal.Decimal    `bson:"cost_per_unit" json:"cost_per_unit"` // snapshot for inventory leaves
}

type IngredientSource string

const (
	IngredientSourceInventory IngredientSource = "inventory"
	IngredientSourceRecipe    IngredientSource = "recipe"
)

// RecipeVariant is a variant of a base recipe: a size scaling and/or an
// additional ingredient list. Resolvable only against its parent recipe.
type RecipeVariant struct {
	ID                 primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RecipeID           primitive.ObjectID `bson:"recipe_id" json:"recipe_id"`
	Name               string             `bson:"name" json:"name"`
	Type               VariantType        `bson:"type" json:"type"`
	SizeMultiplier     decimal.Decimal    `bson:"size_multiplier" json:"size_multiplier"` // >= 0.01, default 1
	BaseCostAdjustment decimal.Decimal    `bson:"base_cost_adjustment" json:"base_cost_adjustment"`
	Ingredients        []RecipeIngredient `bson:"ingredients,omitempty" json:"ingredients,omitempty"`
	CreatedAt          time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `bson:"updated_at" json:"updated_at"`
}

type VariantType string

const (
	VariantTypeSize   VariantType = "size"
	VariantTypeCrust  VariantType = "crust"
	VariantTypeFlavor VariantType = "flavor"
	VariantTypeAddon  VariantType = "addon"
	VariantTypeCombo  VariantType = "combo"
	VariantTypeCustom VariantType = "custom"
)
