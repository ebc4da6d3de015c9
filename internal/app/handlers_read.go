package app

import (
	"net/http"

	"github.com/ak/pos/internal/app/middleware"
	"github.com/ak/pos/internal/domain/repositories"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// listBranchMenu returns the POS-visible menu rows for a branch.
func (h *Handlers) listBranchMenu(c *gin.Context) {
	t := middleware.GetTenant(c)
	if _, ok := h.resolveActor(c, t); !ok {
		return
	}

	branchID, err := primitive.ObjectIDFromHex(c.Query("branch_id"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid branch id")
		return
	}
	page, limit := getPagination(c)

	rows, total, err := h.repos.Menu.ListBranchMenu(c.Request.Context(), t, branchID, page, limit)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "DATABASE_ERROR", "failed to list branch menu")
		return
	}
	paginatedResponse(c, rows, page, limit, total)
}

// getMenuItem returns one menu item with its variations.
func (h *Handlers) getMenuItem(c *gin.Context) {
	t := middleware.GetTenant(c)
	if _, ok := h.resolveActor(c, t); !ok {
		return
	}

	itemID, ok := getObjectID(c, "id")
	if !ok {
		return
	}

	item, err := h.repos.Menu.GetItem(c.Request.Context(), t, itemID)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "DATABASE_ERROR", "failed to load menu item")
		return
	}
	if item == nil || item.IsDeleted {
		errorResponse(c, http.StatusNotFound, "NOT_FOUND", "menu item not found")
		return
	}
	successResponse(c, item)
}

// listBranchStock returns branch inventory levels.
func (h *Handlers) listBranchStock(c *gin.Context) {
	t := middleware.GetTenant(c)
	if _, ok := h.resolveActor(c, t); !ok {
		return
	}

	branchID, err := primitive.ObjectIDFromHex(c.Query("branch_id"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid branch id")
		return
	}
	page, limit := getPagination(c)

	rows, total, err := h.repos.Inventory.ListBranchStock(c.Request.Context(), t, branchID, page, limit)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "DATABASE_ERROR", "failed to list branch stock")
		return
	}
	paginatedResponse(c, rows, page, limit, total)
}

// listInventoryTransactions returns the stock ledger, filterable by item,
// order and type.
func (h *Handlers) listInventoryTransactions(c *gin.Context) {
	t := middleware.GetTenant(c)
	if _, ok := h.resolveActor(c, t); !ok {
		return
	}

	branchID, err := primitive.ObjectIDFromHex(c.Query("branch_id"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid branch id")
		return
	}
	itemID, err := parseOptionalObjectID(c.Query("item_id"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid item id")
		return
	}
	orderID, err := parseOptionalObjectID(c.Query("order_id"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid order id")
		return
	}
	page, limit := getPagination(c)

	txns, total, err := h.repos.Inventory.ListTransactions(c.Request.Context(), t, repositories.TxnFilter{
		BranchID: branchID,
		ItemID:   itemID,
		OrderID:  orderID,
		Type:     c.Query("type"),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "DATABASE_ERROR", "failed to list transactions")
		return
	}
	paginatedResponse(c, txns, page, limit, total)
}

// listTerminals returns the POS terminals of a branch.
func (h *Handlers) listTerminals(c *gin.Context) {
	t := middleware.GetTenant(c)
	if _, ok := h.resolveActor(c, t); !ok {
		return
	}

	branchID, err := primitive.ObjectIDFromHex(c.Query("branch_id"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid branch id")
		return
	}

	terminals, err := h.repos.Terminal.ListByBranch(c.Request.Context(), t, branchID)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "DATABASE_ERROR", "failed to list terminals")
		return
	}
	successResponse(c, terminals)
}

// getBranch returns one branch.
func (h *Handlers) getBranch(c *gin.Context) {
	t := middleware.GetTenant(c)
	if _, ok := h.resolveActor(c, t); !ok {
		return
	}

	branchID, ok := getObjectID(c, "id")
	if !ok {
		return
	}

	branch, err := h.repos.Branch.GetByID(c.Request.Context(), t, branchID)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "DATABASE_ERROR", "failed to load branch")
		return
	}
	if branch == nil {
		errorResponse(c, http.StatusNotFound, "NOT_FOUND", "branch not found")
		return
	}
	successResponse(c, branch)
}
