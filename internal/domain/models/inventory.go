package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InventoryItem is a stocked, non-stocked, or service material authored at
// tenant level and provisioned per branch through BranchInventory.
type InventoryItem struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name       string               `bson:"name" json:"name"`
	SKU        string               `bson:"sku" json:"sku"` // unique within tenant
	Type       ItemType             `bson:"type" json:"type"`
	BaseUnit   string               `bson:"base_unit" json:"base_unit"` // free-form: g, ml, pcs
	CategoryID *primitive.ObjectID  `bson:"category_id,omitempty" json:"category_id,omitempty"`
	BranchIDs  []primitive.ObjectID `bson:"branch_ids,omitempty" json:"branch_ids,omitempty"`
	IsDeleted  bool                 `bson:"is_deleted" json:"is_deleted"`
	CreatedAt  time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time            `bson:"updated_at" json:"updated_at"`
}

type ItemType string

const (
	ItemTypeStock    ItemType = "stock"
	ItemTypeNonStock ItemType = "nonstock"
	ItemTypeService  ItemType = "service"
)

// BranchInventory maps (branch, item) to stock levels and branch-local cost
// and price. Mutated only by the inventory ledger.
type BranchInventory struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BranchID     primitive.ObjectID `bson:"branch_id" json:"branch_id"`
	ItemID       primitive.ObjectID `bson:"item_id" json:"item_id"`
	OnHandQty    decimal.Decimal    `bson:"on_hand_qty" json:"on_hand_qty"` // base units
	ReorderPoint decimal.Decimal    `bson:"reorder_point" json:"reorder_point"`
	MinStock     decimal.Decimal    `bson:"min_stock" json:"min_stock"`
	MaxStock     decimal.Decimal    `bson:"max_stock" json:"max_stock"`
	CostPerUnit  decimal.Decimal    `bson:"cost_per_unit" json:"cost_per_unit"`
	SellingPrice decimal.Decimal    `bson:"selling_price" json:"selling_price"`
	Active       bool               `bson:"active" json:"active"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// InventoryTransaction is an append-only ledger entry. Never mutated.
type InventoryTransaction struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BranchID primitive.ObjectID `bson:"branch_id" json:"branch_id"`
	ItemID   primitive.ObjectID `bson:"item_id" json:"item_id"`
	Type     TxnType            `bson:"type" json:"type"`
	Qty      decimal.Decimal    `bson:"qty" json:"qty"` // signed, base units
	UnitCost decimal.Decimal    `bson:"unit_cost" json:"unit_cost"`
	Ref      TxnRef             `bson:"ref,omitempty" json:"ref,omitempty"`
	Actor    string             `bson:"actor,omitempty" json:"actor,omitempty"`
	Ts       time.Time          `bson:"ts" json:"ts"`
}

type TxnType string

const (
	TxnTypeReceipt     TxnType = "receipt"
	TxnTypeUsage       TxnType = "usage"
	TxnTypeWaste       TxnType = "waste"
	TxnTypeAdjust      TxnType = "adjust"
	TxnTypeTransferOut TxnType = "transferOut"
	TxnTypeTransferIn  TxnType = "transferIn"
	TxnTypePrep        TxnType = "prep"
	TxnTypeReserve     TxnType = "reserve"
)

// TxnRef links a ledger entry back to whatever caused it.
type TxnRef struct {
	OrderID    *primitive.ObjectID `bson:"order_id,omitempty" json:"order_id,omitempty"`
	RecipeID   *primitive.ObjectID `bson:"recipe_id,omitempty" json:"recipe_id,omitempty"`
	FromBranch *primitive.ObjectID `bson:"from_branch,omitempty" json:"from_branch,omitempty"`
	ToBranch   *primitive.ObjectID `bson:"to_branch,omitempty" json:"to_branch,omitempty"`
	Note       string              `bson:"note,omitempty" json:"note,omitempty"`
}
