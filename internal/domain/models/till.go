package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TillSession is a cashier's open cash drawer for a branch/terminal interval.
// At most one open session per (branch, terminal) at any instant.
type TillSession struct {
	ID                    primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	StaffID               primitive.ObjectID  `bson:"staff_id" json:"staff_id"`
	BranchID              primitive.ObjectID  `bson:"branch_id" json:"branch_id"`
	PosTerminalID         *primitive.ObjectID `bson:"pos_terminal_id,omitempty" json:"pos_terminal_id,omitempty"`
	Status                TillStatus          `bson:"status" json:"status"`
	OpenedAt              time.Time           `bson:"opened_at" json:"opened_at"`
	OpeningAmount         decimal.Decimal     `bson:"opening_amount" json:"opening_amount"`
	ClosedAt              *time.Time          `bson:"closed_at,omitempty" json:"closed_at,omitempty"`
	DeclaredClosingAmount *decimal.Decimal    `bson:"declared_closing_amount,omitempty" json:"declared_closing_amount,omitempty"`
	SystemClosingAmount   *decimal.Decimal    `bson:"system_closing_amount,omitempty" json:"system_closing_amount,omitempty"`
	Variance              *decimal.Decimal    `bson:"variance,omitempty" json:"variance,omitempty"` // declared - system
	CashCounts            []CashCount         `bson:"cash_counts,omitempty" json:"cash_counts,omitempty"`
	Notes                 string              `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt             time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt             time.Time           `bson:"updated_at" json:"updated_at"`
}

type TillStatus string

const (
	TillStatusOpen   TillStatus = "open"
	TillStatusClosed TillStatus = "closed"
)

// CashCount is a denomination line declared by the cashier at open or close.
type CashCount struct {
	Denomination decimal.Decimal `bson:"denomination" json:"denomination"`
	Count        int             `bson:"count" json:"count"`
}
