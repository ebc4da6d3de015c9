package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order is immutable after creation. Status changes go through explicit
// transitions and emit compensating ledger entries; nothing else is ever
// rewritten. Line snapshots preserve historical price and cost against later
// menu authoring changes.
type Order struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	OrderNumber   string              `bson:"order_number" json:"order_number"` // unique within tenant
	BranchID      primitive.ObjectID  `bson:"branch_id" json:"branch_id"`
	PosTerminalID *primitive.ObjectID `bson:"pos_terminal_id,omitempty" json:"pos_terminal_id,omitempty"`
	TillSessionID primitive.ObjectID  `bson:"till_session_id" json:"till_session_id"`
	StaffID       primitive.ObjectID  `bson:"staff_id" json:"staff_id"`
	Status        OrderStatus         `bson:"status" json:"status"`
	Items         []OrderLine         `bson:"items" json:"items"`
	Totals        OrderTotals         `bson:"totals" json:"totals"`
	Payment       OrderPayment        `bson:"payment" json:"payment"`
	Pricing       PricingSnapshot     `bson:"pricing_snapshot" json:"pricing_snapshot"`
	Deductions    []StockDeduction    `bson:"stock_deductions,omitempty" json:"-"`
	CustomerName  string              `bson:"customer_name,omitempty" json:"customer_name,omitempty"`
	CustomerPhone string              `bson:"customer_phone,omitempty" json:"customer_phone,omitempty"`
	Notes         string              `bson:"notes,omitempty" json:"notes,omitempty"`
	ClientOpID    string              `bson:"client_op_id,omitempty" json:"client_op_id,omitempty"` // sparse unique
	CreatedAt     time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time           `bson:"updated_at" json:"updated_at"`
}

type OrderStatus string

const (
	OrderStatusPlaced   OrderStatus = "placed"
	OrderStatusPaid     OrderStatus = "paid"
	OrderStatusVoid     OrderStatus = "void"
	OrderStatusRefunded OrderStatus = "refunded"
)

type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodMobile PaymentMethod = "mobile"
	PaymentMethodSplit  PaymentMethod = "split"
)

// OrderLine is embedded in the order. All *Snapshot fields are copied at
// commit time and never re-resolved.
type OrderLine struct {
	MenuItemID         primitive.ObjectID   `bson:"menu_item_id" json:"menu_item_id"`
	RecipeIDSnapshot   *primitive.ObjectID  `bson:"recipe_id_snapshot,omitempty" json:"recipe_id_snapshot,omitempty"`
	SelectedVariations []OrderLineVariation `bson:"selected_variations,omitempty" json:"selected_variations,omitempty"`
	NameSnapshot       string               `bson:"name_snapshot" json:"name_snapshot"`
	CodeSnapshot       string               `bson:"code_snapshot,omitempty" json:"code_snapshot,omitempty"`
	CategoryIDSnapshot *primitive.ObjectID  `bson:"category_id_snapshot,omitempty" json:"category_id_snapshot,omitempty"`
	Quantity           decimal.Decimal      `bson:"quantity" json:"quantity"`
	UnitPrice          decimal.Decimal      `bson:"unit_price" json:"unit_price"`
	LineTotal          decimal.Decimal      `bson:"line_total" json:"line_total"`
	CalculatedCost     decimal.Decimal      `bson:"calculated_cost" json:"calculated_cost"`
	PriceIncludesTax   bool                 `bson:"price_includes_tax" json:"price_includes_tax"`
	Notes              string               `bson:"notes,omitempty" json:"notes,omitempty"`
}

// OrderLineVariation snapshots a selected variation at commit time.
type OrderLineVariation struct {
	MenuVariationID primitive.ObjectID  `bson:"menu_variation_id" json:"menu_variation_id"`
	RecipeVariantID *primitive.ObjectID `bson:"recipe_variant_id,omitempty" json:"recipe_variant_id,omitempty"`
	Name            string              `bson:"name" json:"name"`
	Type            VariantType         `bson:"type" json:"type"`
	PriceDelta      decimal.Decimal     `bson:"price_delta" json:"price_delta"`
	SizeMultiplier  decimal.Decimal     `bson:"size_multiplier" json:"size_multiplier"`
	CalculatedCost  decimal.Decimal     `bson:"calculated_cost" json:"calculated_cost"`
}

// StockDeduction records one merged ledger requirement taken at commit time.
// Void and refund restock from this record, so a later recipe edit cannot
// skew the compensation.
type StockDeduction struct {
	ItemID       primitive.ObjectID `bson:"item_id" json:"item_id"`
	Qty          decimal.Decimal    `bson:"qty" json:"qty"`
	FromRecipeID primitive.ObjectID `bson:"from_recipe_id,omitempty" json:"from_recipe_id,omitempty"`
}

type OrderTotals struct {
	SubTotal   decimal.Decimal `bson:"sub_total" json:"sub_total"`
	TaxTotal   decimal.Decimal `bson:"tax_total" json:"tax_total"`
	Discount   decimal.Decimal `bson:"discount" json:"discount"`
	GrandTotal decimal.Decimal `bson:"grand_total" json:"grand_total"`
}

type OrderPayment struct {
	Method     PaymentMethod   `bson:"method" json:"method"`
	AmountPaid decimal.Decimal `bson:"amount_paid" json:"amount_paid"`
	Change     decimal.Decimal `bson:"change" json:"change"`
	PaidAt     *time.Time      `bson:"paid_at,omitempty" json:"paid_at,omitempty"`
}

// PricingSnapshot freezes the branch pricing context the order was priced
// under.
type PricingSnapshot struct {
	Currency         string          `bson:"currency" json:"currency"`
	PriceIncludesTax bool            `bson:"price_includes_tax" json:"price_includes_tax"`
	TaxMode          TaxMode         `bson:"tax_mode" json:"tax_mode"`
	TaxRate          decimal.Decimal `bson:"tax_rate" json:"tax_rate"`
}

// OrderNumberCounter backs the per-(branch, prefix, day) sequence. Not
// visible outside the core.
type OrderNumberCounter struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	BranchID primitive.ObjectID `bson:"branch_id"`
	Prefix   string             `bson:"prefix"`
	DateKey  string             `bson:"date_key"` // YYYYMMDD
	Seq      int64              `bson:"seq"`
}
