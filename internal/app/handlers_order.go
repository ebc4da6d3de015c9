package app

import (
	"context"
	"net/http"

	"github.com/ak/pos/internal/app/middleware"
	"github.com/ak/pos/internal/domain/models"
	"github.com/ak/pos/internal/domain/repositories"
	"github.com/ak/pos/internal/domain/services"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type commitLineRequest struct {
	MenuItemID   string          `json:"menu_item_id" binding:"required"`
	Quantity     decimal.Decimal `json:"quantity"`
	VariationIDs []string        `json:"variation_ids,omitempty"`
	Notes        string          `json:"notes,omitempty"`
}

type commitOrderRequest struct {
	ClientOpID    string               `json:"client_op_id,omitempty"`
	BranchID      string               `json:"branch_id,omitempty"`
	PosTerminalID string               `json:"pos_terminal_id,omitempty"`
	Lines         []commitLineRequest  `json:"lines" binding:"required"`
	PaymentMethod models.PaymentMethod `json:"payment_method" binding:"required"`
	AmountPaid    decimal.Decimal      `json:"amount_paid"`
	CustomerName  string               `json:"customer_name,omitempty"`
	CustomerPhone string               `json:"customer_phone,omitempty"`
	Notes         string               `json:"notes,omitempty"`
}

type reverseOrderRequest struct {
	Reason string `json:"reason,omitempty"`
}

// commitOrder validates, prices and commits an order.
func (h *Handlers) commitOrder(c *gin.Context) {
	t := middleware.GetTenant(c)
	actor, ok := h.resolveActor(c, t)
	if !ok {
		return
	}
	claims := middleware.GetClaims(c)

	var req commitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	svcReq, err := req.toService(claims)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}

	result, err := h.orders.Commit(c.Request.Context(), t, actor, svcReq)
	if err != nil {
		domainError(c, err)
		return
	}
	if result.Replayed {
		successResponse(c, result)
		return
	}
	createdResponse(c, result)
}

// toService resolves the string ids of the wire format and falls back to the
// token's branch and till session bindings.
func (r *commitOrderRequest) toService(claims *middleware.JWTClaims) (*services.CommitOrderRequest, error) {
	out := &services.CommitOrderRequest{
		ClientOpID:    r.ClientOpID,
		CustomerName:  r.CustomerName,
		CustomerPhone: r.CustomerPhone,
		Notes:         r.Notes,
		Payment: services.CommitPayment{
			Method:     r.PaymentMethod,
			AmountPaid: r.AmountPaid,
		},
	}

	branchHex := r.BranchID
	if branchHex == "" && claims != nil {
		branchHex = claims.BranchID
	}
	if branchHex != "" {
		branchID, err := primitive.ObjectIDFromHex(branchHex)
		if err != nil {
			return nil, err
		}
		out.BranchID = branchID
	}

	terminalID, err := parseOptionalObjectID(r.PosTerminalID)
	if err != nil {
		return nil, err
	}
	out.PosTerminalID = terminalID

	if claims != nil && claims.TillSessionID != "" {
		tillID, err := primitive.ObjectIDFromHex(claims.TillSessionID)
		if err != nil {
			return nil, err
		}
		out.TillSessionID = &tillID
	}

	for _, line := range r.Lines {
		itemID, err := primitive.ObjectIDFromHex(line.MenuItemID)
		if err != nil {
			return nil, err
		}
		variationIDs := make([]primitive.ObjectID, 0, len(line.VariationIDs))
		for _, vid := range line.VariationIDs {
			id, err := primitive.ObjectIDFromHex(vid)
			if err != nil {
				return nil, err
			}
			variationIDs = append(variationIDs, id)
		}
		out.Lines = append(out.Lines, services.CommitLine{
			MenuItemID:   itemID,
			Quantity:     line.Quantity,
			VariationIDs: variationIDs,
			Notes:        line.Notes,
		})
	}

	return out, nil
}

// voidOrder cancels a placed order and restocks its ingredients.
func (h *Handlers) voidOrder(c *gin.Context) {
	h.reverseOrder(c, h.orders.Void)
}

// refundOrder reverses a paid order and restocks its ingredients.
func (h *Handlers) refundOrder(c *gin.Context) {
	h.reverseOrder(c, h.orders.Refund)
}

func (h *Handlers) reverseOrder(c *gin.Context, fn func(ctx context.Context, t repositories.Tenant, actor *models.Staff, orderID primitive.ObjectID, reason string) (*models.Order, error)) {
	t := middleware.GetTenant(c)
	actor, ok := h.resolveActor(c, t)
	if !ok {
		return
	}

	orderID, ok := getObjectID(c, "id")
	if !ok {
		return
	}

	var req reverseOrderRequest
	_ = c.ShouldBindJSON(&req)

	order, err := fn(c.Request.Context(), t, actor, orderID, req.Reason)
	if err != nil {
		domainError(c, err)
		return
	}
	successResponse(c, order)
}

// getOrder returns one order by id.
func (h *Handlers) getOrder(c *gin.Context) {
	t := middleware.GetTenant(c)
	if _, ok := h.resolveActor(c, t); !ok {
		return
	}

	orderID, ok := getObjectID(c, "id")
	if !ok {
		return
	}

	order, err := h.repos.Order.GetByID(c.Request.Context(), t, orderID)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "DATABASE_ERROR", "failed to load order")
		return
	}
	if order == nil {
		errorResponse(c, http.StatusNotFound, "NOT_FOUND", "order not found")
		return
	}
	successResponse(c, order)
}

// listOrders lists orders for a branch, optionally filtered by status and
// till session.
func (h *Handlers) listOrders(c *gin.Context) {
	t := middleware.GetTenant(c)
	if _, ok := h.resolveActor(c, t); !ok {
		return
	}

	branchID, err := primitive.ObjectIDFromHex(c.Query("branch_id"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid branch id")
		return
	}
	tillID, err := parseOptionalObjectID(c.Query("till_session_id"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid till session id")
		return
	}
	page, limit := getPagination(c)

	orders, total, err := h.repos.Order.ListByBranch(c.Request.Context(), t, repositories.OrderFilter{
		BranchID:      branchID,
		TillSessionID: tillID,
		Status:        c.Query("status"),
		Page:          page,
		Limit:         limit,
	})
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "DATABASE_ERROR", "failed to list orders")
		return
	}
	paginatedResponse(c, orders, page, limit, total)
}
