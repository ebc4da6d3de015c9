package app

import (
	"net/http"

	"github.com/ak/pos/internal/app/middleware"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type pinLoginRequest struct {
	Pin string `json:"pin" binding:"required"`
}

type setPinRequest struct {
	Pin string `json:"pin" binding:"required"`
}

// pinLogin authenticates a cashier by PIN and returns a token.
func (h *Handlers) pinLogin(c *gin.Context) {
	t := middleware.GetTenant(c)

	var req pinLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	result, err := h.auth.PinLogin(c.Request.Context(), t, req.Pin)
	if err != nil {
		domainError(c, err)
		return
	}
	successResponse(c, result)
}

// setPin assigns a PIN to a staff member.
func (h *Handlers) setPin(c *gin.Context) {
	t := middleware.GetTenant(c)
	actor, ok := h.resolveActor(c, t)
	if !ok {
		return
	}

	targetID, ok := getObjectID(c, "id")
	if !ok {
		return
	}

	var req setPinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	if err := h.auth.SetPin(c.Request.Context(), t, actor, h.checker, targetID, req.Pin); err != nil {
		domainError(c, err)
		return
	}
	successResponse(c, gin.H{"staff_id": targetID.Hex()})
}

// whoami returns the authenticated staff member.
func (h *Handlers) whoami(c *gin.Context) {
	t := middleware.GetTenant(c)
	actor, ok := h.resolveActor(c, t)
	if !ok {
		return
	}
	successResponse(c, actor)
}

func parseOptionalObjectID(s string) (*primitive.ObjectID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
