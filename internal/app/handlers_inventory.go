package app

import (
	"context"
	"net/http"

	"github.com/ak/pos/internal/app/middleware"
	"github.com/ak/pos/internal/domain/models"
	"github.com/ak/pos/internal/domain/repositories"
	"github.com/ak/pos/internal/domain/services"
	"github.com/ak/pos/internal/pkg/errors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type stockMovementLine struct {
	ItemID string          `json:"item_id" binding:"required"`
	Qty    decimal.Decimal `json:"qty"`
}

type stockMovementRequest struct {
	BranchID string              `json:"branch_id" binding:"required"`
	Lines    []stockMovementLine `json:"lines" binding:"required,min=1"`
	Note     string              `json:"note,omitempty"`
}

// receiveStock books incoming stock (deliveries, prep output) at a branch.
func (h *Handlers) receiveStock(c *gin.Context) {
	h.moveStock(c, h.ledger.Receive)
}

// wasteStock books spoilage or loss, blocked when it would drive a
// stock-typed item negative.
func (h *Handlers) wasteStock(c *gin.Context) {
	h.moveStock(c, h.ledger.Waste)
}

func (h *Handlers) moveStock(c *gin.Context, move func(ctx context.Context, t repositories.Tenant, branchID primitive.ObjectID, reqs []services.Requirement, ref models.TxnRef, actor string) error) {
	t := middleware.GetTenant(c)
	actor, ok := h.resolveActor(c, t)
	if !ok {
		return
	}

	var req stockMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	branchID, err := primitive.ObjectIDFromHex(req.BranchID)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid branch id")
		return
	}

	if !h.checker.May(actor, services.ActionInventoryManage, services.BranchScope(branchID)) {
		domainError(c, errors.Unauthorized("not permitted to manage inventory"))
		return
	}

	reqs := make([]services.Requirement, 0, len(req.Lines))
	for _, line := range req.Lines {
		itemID, err := primitive.ObjectIDFromHex(line.ItemID)
		if err != nil {
			errorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid item id")
			return
		}
		if !line.Qty.IsPositive() {
			domainError(c, errors.Validation("movement quantity must be positive"))
			return
		}
		reqs = append(reqs, services.Requirement{ItemID: itemID, Qty: line.Qty})
	}

	ref := models.TxnRef{Note: req.Note}
	err = t.WithTransaction(c.Request.Context(), func(txCtx context.Context) error {
		return move(txCtx, t, branchID, reqs, ref, actor.ID.Hex())
	})
	if err != nil {
		domainError(c, err)
		return
	}
	successResponse(c, gin.H{"branch_id": req.BranchID, "lines": len(reqs)})
}
