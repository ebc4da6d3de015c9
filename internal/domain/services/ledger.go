package services

import (
	"context"
	"time"

	"github.com/ak/pos/internal/domain/models"
	"github.com/ak/pos/internal/domain/repositories"
	"github.com/ak/pos/internal/pkg/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Requirement is one aggregated stock demand against a branch.
type Requirement struct {
	ItemID       primitive.ObjectID
	Qty          decimal.Decimal // base units, positive
	FromRecipeID primitive.ObjectID
}

// Ledger owns all mutation of branch stock. Every primitive performs one
// bulk read of the affected rows, one bulk write of increments, and one bulk
// insert into the transaction log; the caller decides whether that happens
// inside a datastore transaction.
type Ledger struct {
	inventory repositories.InventoryRepository
}

func NewLedger(inventory repositories.InventoryRepository) *Ledger {
	return &Ledger{inventory: inventory}
}

// Deduct removes stock for the requirements, failing with InsufficientStock
// if any stock-typed item would go negative.
func (l *Ledger) Deduct(ctx context.Context, t repositories.Tenant, branchID primitive.ObjectID, reqs []Requirement, ref models.TxnRef, actor string) error {
	return l.apply(ctx, t, branchID, reqs, decimal.NewFromInt(-1), models.TxnTypeUsage, ref, actor, true)
}

// Reserve is Deduct with a reserve-typed ledger entry. Reservations are not
// exposed on the order path; the primitive exists for held-order flows.
func (l *Ledger) Reserve(ctx context.Context, t repositories.Tenant, branchID primitive.ObjectID, reqs []Requirement, ref models.TxnRef, actor string) error {
	return l.apply(ctx, t, branchID, reqs, decimal.NewFromInt(-1), models.TxnTypeReserve, ref, actor, true)
}

// Release adds stock back, logging an adjust entry.
func (l *Ledger) Release(ctx context.Context, t repositories.Tenant, branchID primitive.ObjectID, reqs []Requirement, ref models.TxnRef, actor string) error {
	if ref.Note == "" {
		ref.Note = "stock release"
	}
	return l.apply(ctx, t, branchID, reqs, one, models.TxnTypeAdjust, ref, actor, false)
}

// Receive books incoming stock (deliveries, prep output).
func (l *Ledger) Receive(ctx context.Context, t repositories.Tenant, branchID primitive.ObjectID, reqs []Requirement, ref models.TxnRef, actor string) error {
	return l.apply(ctx, t, branchID, reqs, one, models.TxnTypeReceipt, ref, actor, false)
}

// Waste books spoilage or loss.
func (l *Ledger) Waste(ctx context.Context, t repositories.Tenant, branchID primitive.ObjectID, reqs []Requirement, ref models.TxnRef, actor string) error {
	return l.apply(ctx, t, branchID, reqs, decimal.NewFromInt(-1), models.TxnTypeWaste, ref, actor, true)
}

func (l *Ledger) apply(ctx context.Context, t repositories.Tenant, branchID primitive.ObjectID, reqs []Requirement, sign decimal.Decimal, txnType models.TxnType, ref models.TxnRef, actor string, requireStock bool) error {
	merged := MergeRequirements(reqs)
	if len(merged) == 0 {
		return nil
	}

	itemIDs := make([]primitive.ObjectID, 0, len(merged))
	for _, r := range merged {
		itemIDs = append(itemIDs, r.ItemID)
	}

	items, err := l.inventory.GetItems(ctx, t, itemIDs)
	if err != nil {
		return errors.Database(err)
	}
	itemsByID := make(map[primitive.ObjectID]*models.InventoryItem, len(items))
	for _, it := range items {
		itemsByID[it.ID] = it
	}

	// Service items carry no stock and no ledger entry.
	tracked := merged[:0]
	for _, r := range merged {
		item, ok := itemsByID[r.ItemID]
		if !ok {
			return errors.NotFound("inventory item").WithDetails(map[string]string{"item_id": r.ItemID.Hex()})
		}
		if item.Type == models.ItemTypeService {
			continue
		}
		tracked = append(tracked, r)
	}
	if len(tracked) == 0 {
		return nil
	}

	trackedIDs := make([]primitive.ObjectID, 0, len(tracked))
	for _, r := range tracked {
		trackedIDs = append(trackedIDs, r.ItemID)
	}

	rows, err := l.inventory.GetBranchStock(ctx, t, branchID, trackedIDs)
	if err != nil {
		return errors.Database(err)
	}
	rowsByItem := make(map[primitive.ObjectID]*models.BranchInventory, len(rows))
	for _, row := range rows {
		rowsByItem[row.ItemID] = row
	}

	var short []errors.ShortItem
	deltas := make(map[primitive.ObjectID]decimal.Decimal, len(tracked))
	txns := make([]*models.InventoryTransaction, 0, len(tracked))
	now := time.Now()

	for _, r := range tracked {
		row, ok := rowsByItem[r.ItemID]
		if !ok {
			return errors.IngredientNotStockedAtBranch(r.ItemID.Hex())
		}
		delta := r.Qty.Mul(sign)
		if requireStock && itemsByID[r.ItemID].Type == models.ItemTypeStock {
			if row.OnHandQty.Add(delta).IsNegative() {
				short = append(short, errors.ShortItem{
					ItemID: r.ItemID.Hex(),
					Needed: r.Qty.String(),
					OnHand: row.OnHandQty.String(),
				})
				continue
			}
		}
		deltas[r.ItemID] = delta

		txnRef := ref
		if !r.FromRecipeID.IsZero() && txnRef.RecipeID == nil {
			recipeID := r.FromRecipeID
			txnRef.RecipeID = &recipeID
		}
		txns = append(txns, &models.InventoryTransaction{
			BranchID: branchID,
			ItemID:   r.ItemID,
			Type:     txnType,
			Qty:      delta,
			UnitCost: row.CostPerUnit,
			Ref:      txnRef,
			Actor:    actor,
			Ts:       now,
		})
	}

	if len(short) > 0 {
		return errors.InsufficientStock(short)
	}

	if err := l.inventory.ApplyDeltas(ctx, t, branchID, deltas); err != nil {
		return errors.Database(err)
	}
	if err := l.inventory.InsertTransactions(ctx, t, txns); err != nil {
		return errors.Database(err)
	}
	return nil
}

// MergeRequirements sums requirements per item, keeping the first recipe
// attribution for each item.
func MergeRequirements(reqs []Requirement) []Requirement {
	index := make(map[primitive.ObjectID]int, len(reqs))
	merged := make([]Requirement, 0, len(reqs))
	for _, r := range reqs {
		if r.Qty.IsZero() {
			continue
		}
		if i, ok := index[r.ItemID]; ok {
			merged[i].Qty = merged[i].Qty.Add(r.Qty)
			continue
		}
		index[r.ItemID] = len(merged)
		merged = append(merged, r)
	}
	return merged
}
