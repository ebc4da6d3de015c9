package app

import (
	"net/http"

	"github.com/ak/pos/internal/app/middleware"
	"github.com/ak/pos/internal/domain/models"
	"github.com/ak/pos/internal/domain/services"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type openTillRequest struct {
	BranchID      string             `json:"branch_id" binding:"required"`
	PosTerminalID string             `json:"pos_terminal_id,omitempty"`
	OpeningAmount decimal.Decimal    `json:"opening_amount"`
	CashCounts    []models.CashCount `json:"cash_counts,omitempty"`
	Notes         string             `json:"notes,omitempty"`
}

type closeTillRequest struct {
	DeclaredClosingAmount decimal.Decimal    `json:"declared_closing_amount"`
	CashCounts            []models.CashCount `json:"cash_counts,omitempty"`
	Notes                 string             `json:"notes,omitempty"`
}

// openTill opens a till session and returns a token bound to it.
func (h *Handlers) openTill(c *gin.Context) {
	t := middleware.GetTenant(c)
	actor, ok := h.resolveActor(c, t)
	if !ok {
		return
	}

	var req openTillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	branchID, err := primitive.ObjectIDFromHex(req.BranchID)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid branch id")
		return
	}
	terminalID, err := parseOptionalObjectID(req.PosTerminalID)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_ID", "invalid terminal id")
		return
	}

	result, err := h.tills.Open(c.Request.Context(), t, actor, &services.OpenTillRequest{
		BranchID:      branchID,
		PosTerminalID: terminalID,
		OpeningAmount: req.OpeningAmount,
		CashCounts:    req.CashCounts,
		Notes:         req.Notes,
	})
	if err != nil {
		domainError(c, err)
		return
	}
	createdResponse(c, result)
}

// closeTill seals a till session and reports the variance.
func (h *Handlers) closeTill(c *gin.Context) {
	t := middleware.GetTenant(c)
	actor, ok := h.resolveActor(c, t)
	if !ok {
		return
	}

	sessionID, ok := getObjectID(c, "id")
	if !ok {
		return
	}

	var req closeTillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	result, err := h.tills.Close(c.Request.Context(), t, actor, &services.CloseTillRequest{
		SessionID:             sessionID,
		DeclaredClosingAmount: req.DeclaredClosingAmount,
		CashCounts:            req.CashCounts,
		Notes:                 req.Notes,
	})
	if err != nil {
		domainError(c, err)
		return
	}
	successResponse(c, result)
}

// getTill returns one till session.
func (h *Handlers) getTill(c *gin.Context) {
	t := middleware.GetTenant(c)
	if _, ok := h.resolveActor(c, t); !ok {
		return
	}

	sessionID, ok := getObjectID(c, "id")
	if !ok {
		return
	}

	session, err := h.repos.Till.GetByID(c.Request.Context(), t, sessionID)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "DATABASE_ERROR", "failed to load till session")
		return
	}
	if session == nil {
		errorResponse(c, http.StatusNotFound, "NOT_FOUND", "till session not found")
		return
	}
	successResponse(c, session)
}

// listTills lists till sessions for a branch.
func (h *Handlers) listTills(c *gin.Context) {
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

	sessions, total, err := h.repos.Till.ListByBranch(c.Request.Context(), t, branchID, c.Query("status"), page, limit)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, "DATABASE_ERROR", "failed to list till sessions")
		return
	}
	paginatedResponse(c, sessions, page, limit, total)
}
