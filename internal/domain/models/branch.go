package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Branch is a physical location owned by the tenant.
type Branch struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Code      string             `bson:"code" json:"code"` // unique within tenant
	Currency  string             `bson:"currency" json:"currency"`
	Tax       TaxConfig          `bson:"tax" json:"tax"`
	POSConfig POSBranchConfig    `bson:"pos_config" json:"pos_config"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

type TaxConfig struct {
	Mode      TaxMode         `bson:"mode" json:"mode"`
	Rate      decimal.Decimal `bson:"rate" json:"rate"` // percent
	VATNumber string          `bson:"vat_number,omitempty" json:"vat_number,omitempty"`
}

type TaxMode string

const (
	TaxModeExclusive TaxMode = "exclusive"
	TaxModeInclusive TaxMode = "inclusive"
)

// POSBranchConfig carries the branch's order prefix, receipt footer and the
// payment-method map with optional tax rate overrides.
type POSBranchConfig struct {
	OrderPrefix    string                         `bson:"order_prefix" json:"order_prefix"`
	ReceiptFooter  string                         `bson:"receipt_footer,omitempty" json:"receipt_footer,omitempty"`
	PaymentMethods map[string]PaymentMethodConfig `bson:"payment_methods,omitempty" json:"payment_methods,omitempty"`
}

type PaymentMethodConfig struct {
	Enabled         bool             `bson:"enabled" json:"enabled"`
	TaxRateOverride *decimal.Decimal `bson:"tax_rate_override,omitempty" json:"tax_rate_override,omitempty"`
}

// PosTerminal is a POS device within a branch.
type PosTerminal struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BranchID  primitive.ObjectID `bson:"branch_id" json:"branch_id"`
	MachineID string             `bson:"machine_id" json:"machine_id"` // unique within tenant
	Name      string             `bson:"name" json:"name"`
	Status    TerminalStatus     `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

type TerminalStatus string

const (
	TerminalStatusActive      TerminalStatus = "active"
	TerminalStatusMaintenance TerminalStatus = "maintenance"
	TerminalStatusRetired     TerminalStatus = "retired"
)
