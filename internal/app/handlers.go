package app

import (
	"net/http"
	"strconv"
	"time"

	"github.com/ak/pos/internal/app/middleware"
	"github.com/ak/pos/internal/domain/models"
	"github.com/ak/pos/internal/domain/repositories"
	"github.com/ak/pos/internal/domain/services"
	infrarepos "github.com/ak/pos/internal/infrastructure/repositories"
	"github.com/ak/pos/internal/pkg/errors"
	"github.com/ak/pos/internal/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Handlers holds API handler dependencies
type Handlers struct {
	repos   *infrarepos.Provider
	auth    *services.AuthService
	tills   *services.TillService
	orders  *services.OrderService
	ledger  *services.Ledger
	checker services.Checker
	logger  *logger.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(repos *infrarepos.Provider, auth *services.AuthService, tills *services.TillService, orders *services.OrderService, ledger *services.Ledger, checker services.Checker, log *logger.Logger) *Handlers {
	return &Handlers{
		repos:   repos,
		auth:    auth,
		tills:   tills,
		orders:  orders,
		ledger:  ledger,
		checker: checker,
		logger:  log,
	}
}

// APIResponse is the standard API response format
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Meta      *APIMeta    `json:"meta,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type APIMeta struct {
	Page       int   `json:"page,omitempty"`
	PerPage    int   `json:"per_page,omitempty"`
	Total      int64 `json:"total,omitempty"`
	TotalPages int   `json:"total_pages,omitempty"`
}

func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func createdResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func paginatedResponse(c *gin.Context, data interface{}, page, perPage int, total int64) {
	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			Page:       page,
			PerPage:    perPage,
			Total:      total,
			TotalPages: totalPages,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func errorResponse(c *gin.Context, status int, code, message string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// domainError translates a core error into the response envelope, carrying
// the kind token and detail payload through to the client.
func domainError(c *gin.Context, err error) {
	de := errors.AsError(err)
	c.JSON(de.HTTPStatus, APIResponse{
		Success: false,
		Error: &APIError{
			Code:    string(de.Kind),
			Message: de.Message,
			Details: de.Details,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func getObjectID(c *gin.Context, param string) (primitive.ObjectID, bool) {
	idStr := c.Param(param)
	id, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "INVALID_ID", "Invalid ID format")
		return primitive.NilObjectID, false
	}
	return id, true
}

func getPagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

// resolveActor loads the authenticated staff member from the token claims.
func (h *Handlers) resolveActor(c *gin.Context, t repositories.Tenant) (*models.Staff, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		domainError(c, errors.Unauthorized("missing credentials"))
		return nil, false
	}
	staffID, err := primitive.ObjectIDFromHex(claims.StaffID)
	if err != nil {
		domainError(c, errors.Unauthorized("invalid token subject"))
		return nil, false
	}
	staff, err := h.repos.Staff.GetByID(c.Request.Context(), t, staffID)
	if err != nil {
		domainError(c, errors.Database(err))
		return nil, false
	}
	if staff == nil || !staff.IsStaff {
		domainError(c, errors.NotStaff())
		return nil, false
	}
	if staff.Status == models.StaffStatusSuspended {
		domainError(c, errors.AccountSuspended())
		return nil, false
	}
	return staff, true
}
