package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MenuCategory groups menu items for display.
type MenuCategory struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	DisplayOrder int                `bson:"display_order" json:"display_order"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// MenuItem is the customer-facing sellable. Costing flows through its
// optional recipe; pricing through MenuPricing and per-branch overrides.
type MenuItem struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Name       string              `bson:"name" json:"name"`
	Code       string              `bson:"code,omitempty" json:"code,omitempty"`
	Slug       string              `bson:"slug" json:"slug"` // unique within tenant
	RecipeID   *primitive.ObjectID `bson:"recipe_id,omitempty" json:"recipe_id,omitempty"`
	CategoryID *primitive.ObjectID `bson:"category_id,omitempty" json:"category_id,omitempty"`
	Pricing    MenuPricing         `bson:"pricing" json:"pricing"`
	Active     bool                `bson:"active" json:"active"`
	IsDeleted  bool                `bson:"is_deleted" json:"is_deleted"`
	CreatedAt  time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time           `bson:"updated_at" json:"updated_at"`
}

type MenuPricing struct {
	BasePrice        decimal.Decimal `bson:"base_price" json:"base_price"`
	PriceIncludesTax bool            `bson:"price_includes_tax" json:"price_includes_tax"`
	Currency         string          `bson:"currency" json:"currency"` // ISO code
}

// MenuVariation is a sellable option on a menu item. If RecipeVariantID is
// set, that variant's recipe must equal the parent menu item's recipe.
type MenuVariation struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	MenuItemID      primitive.ObjectID  `bson:"menu_item_id" json:"menu_item_id"`
	RecipeVariantID *primitive.ObjectID `bson:"recipe_variant_id,omitempty" json:"recipe_variant_id,omitempty"`
	Name            string              `bson:"name" json:"name"`
	Type            VariantType         `bson:"type" json:"type"`
	PriceDelta      decimal.Decimal     `bson:"price_delta" json:"price_delta"`
	SizeMultiplier  decimal.Decimal     `bson:"size_multiplier" json:"size_multiplier"` // display
	CalculatedCost  decimal.Decimal     `bson:"calculated_cost" json:"calculated_cost"` // snapshot
	Active          bool                `bson:"active" json:"active"`
	CreatedAt       time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `bson:"updated_at" json:"updated_at"`
}

// BranchMenu is the per-(branch, menuItem) override of selling price,
// availability and POS visibility, with display snapshots.
type BranchMenu struct {
	ID               primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	BranchID         primitive.ObjectID  `bson:"branch_id" json:"branch_id"`
	MenuItemID       primitive.ObjectID  `bson:"menu_item_id" json:"menu_item_id"`
	SellingPrice     *decimal.Decimal    `bson:"selling_price,omitempty" json:"selling_price,omitempty"` // nil falls back to base price
	Available        bool                `bson:"available" json:"available"`
	VisibleOnPOS     bool                `bson:"visible_on_pos" json:"visible_on_pos"`
	DisplayOrder     int                 `bson:"display_order" json:"display_order"`
	CodeSnapshot     string              `bson:"code_snapshot,omitempty" json:"code_snapshot,omitempty"`
	NameSnapshot     string              `bson:"name_snapshot,omitempty" json:"name_snapshot,omitempty"`
	CategorySnapshot *primitive.ObjectID `bson:"category_snapshot,omitempty" json:"category_snapshot,omitempty"`
	CreatedAt        time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time           `bson:"updated_at" json:"updated_at"`
}
