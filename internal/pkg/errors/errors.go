package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is a stable machine-readable error token. Handlers translate kinds to
// HTTP status codes; nothing below the transport layer looks at the status.
type Kind string

const (
	// Validation
	KindValidation             Kind = "VALIDATION_ERROR"
	KindNegativePrice          Kind = "NEGATIVE_PRICE"
	KindDuplicateSizeVariation Kind = "DUPLICATE_SIZE_VARIATION"
	KindBranchRequired         Kind = "BRANCH_REQUIRED"

	// Authorization
	KindUnauthorized        Kind = "UNAUTHORIZED"
	KindBranchNotAuthorized Kind = "BRANCH_NOT_AUTHORIZED"
	KindAccountSuspended    Kind = "ACCOUNT_SUSPENDED"
	KindNotStaff            Kind = "NOT_STAFF"
	KindInvalidCredentials  Kind = "INVALID_CREDENTIALS"

	// Resource not found
	KindNotFound Kind = "NOT_FOUND"

	// State conflict
	KindTillAlreadyOpen        Kind = "TILL_ALREADY_OPEN"
	KindTillNotOpen            Kind = "TILL_NOT_OPEN"
	KindTillClosed             Kind = "TILL_CLOSED"
	KindTillBelongsToOther     Kind = "TILL_BELONGS_TO_OTHER"
	KindNoOpenTill             Kind = "NO_OPEN_TILL"
	KindMenuItemUnavailable    Kind = "MENU_ITEM_UNAVAILABLE"
	KindTerminalInactive       Kind = "TERMINAL_INACTIVE"
	KindTerminalBranchMismatch Kind = "TERMINAL_BRANCH_MISMATCH"
	KindConflict               Kind = "CONFLICT"

	// Stock conflict
	KindInsufficientStock            Kind = "INSUFFICIENT_STOCK"
	KindIngredientNotStockedAtBranch Kind = "INGREDIENT_NOT_STOCKED_AT_BRANCH"

	// Integrity (authoring-time bugs surfacing at commit)
	KindRecipeCycleDetected             Kind = "RECIPE_CYCLE_DETECTED"
	KindVariantRecipeMismatch           Kind = "VARIANT_RECIPE_MISMATCH"
	KindVariationBelongsToOtherMenuItem Kind = "VARIATION_BELONGS_TO_OTHER_MENU_ITEM"

	// Rate / lock
	KindPinLocked Kind = "PIN_LOCKED"

	// Internal
	KindInternal Kind = "INTERNAL_ERROR"
	KindDatabase Kind = "DATABASE_ERROR"
)

// Error is the domain error carried through the core. Details holds the
// machine-readable payload (short-item lists, cycle paths, retry intervals).
type Error struct {
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
	HTTPStatus int    `json:"-"`
	cause      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a domain error with an explicit HTTP disposition.
func New(kind Kind, message string, httpStatus int) *Error {
	return &Error{Kind: kind, Message: message, HTTPStatus: httpStatus}
}

// WithDetails attaches a machine-readable detail payload.
func (e *Error) WithDetails(details any) *Error {
	e.Details = details
	return e
}

// WithCause attaches the underlying error for logging; the cause is never
// serialized to the client.
func (e *Error) WithCause(err error) *Error {
	e.cause = err
	return e
}

// IsKind reports whether err is a domain error of the given kind.
func IsKind(err error, kind Kind) bool {
	var de *Error
	return errors.As(err, &de) && de.Kind == kind
}

// AsError extracts a domain error, wrapping anything else as internal.
func AsError(err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return Internal("unexpected error").WithCause(err)
}

// Constructors, grouped by taxonomy class.

func Validation(message string) *Error {
	return New(KindValidation, message, http.StatusBadRequest)
}

func NegativePrice(message string) *Error {
	return New(KindNegativePrice, message, http.StatusBadRequest)
}

func DuplicateSizeVariation(message string) *Error {
	return New(KindDuplicateSizeVariation, message, http.StatusBadRequest)
}

func BranchRequired() *Error {
	return New(KindBranchRequired, "no branch could be resolved for this request", http.StatusBadRequest)
}

func Unauthorized(message string) *Error {
	return New(KindUnauthorized, message, http.StatusUnauthorized)
}

func BranchNotAuthorized(branchID string) *Error {
	return New(KindBranchNotAuthorized, "actor is not permitted for this branch", http.StatusForbidden).
		WithDetails(map[string]string{"branch_id": branchID})
}

func AccountSuspended() *Error {
	return New(KindAccountSuspended, "account is suspended", http.StatusForbidden)
}

func NotStaff() *Error {
	return New(KindNotStaff, "account is not staff of this tenant", http.StatusForbidden)
}

func InvalidCredentials() *Error {
	return New(KindInvalidCredentials, "invalid credentials", http.StatusUnauthorized)
}

func NotFound(resource string) *Error {
	return New(KindNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func Conflict(message string) *Error {
	return New(KindConflict, message, http.StatusConflict)
}

func TillAlreadyOpen(message string) *Error {
	return New(KindTillAlreadyOpen, message, http.StatusConflict)
}

func TillNotOpen() *Error {
	return New(KindTillNotOpen, "till session is not open", http.StatusConflict)
}

func TillClosed() *Error {
	return New(KindTillClosed, "till session has been closed", http.StatusConflict)
}

func TillBelongsToOther() *Error {
	return New(KindTillBelongsToOther, "till session belongs to another cashier", http.StatusConflict)
}

func NoOpenTill() *Error {
	return New(KindNoOpenTill, "no open till session for this branch and terminal", http.StatusConflict)
}

func MenuItemUnavailable(name string) *Error {
	return New(KindMenuItemUnavailable, fmt.Sprintf("menu item %q is not available", name), http.StatusConflict)
}

func TerminalInactive() *Error {
	return New(KindTerminalInactive, "terminal is not active", http.StatusConflict)
}

func TerminalBranchMismatch() *Error {
	return New(KindTerminalBranchMismatch, "terminal does not belong to the resolved branch", http.StatusConflict)
}

// ShortItem describes one line of an InsufficientStock detail payload.
type ShortItem struct {
	ItemID string `json:"item_id"`
	Needed string `json:"needed"`
	OnHand string `json:"on_hand"`
}

func InsufficientStock(short []ShortItem) *Error {
	return New(KindInsufficientStock, "insufficient stock for one or more ingredients", http.StatusConflict).
		WithDetails(short)
}

func IngredientNotStockedAtBranch(itemID string) *Error {
	return New(KindIngredientNotStockedAtBranch, "ingredient is not provisioned at this branch", http.StatusConflict).
		WithDetails(map[string]string{"item_id": itemID})
}

func RecipeCycleDetected(path []string) *Error {
	return New(KindRecipeCycleDetected, "recipe dependency cycle detected", http.StatusBadRequest).
		WithDetails(map[string]any{"path": path})
}

func VariantRecipeMismatch(variationID string) *Error {
	return New(KindVariantRecipeMismatch, "variation's recipe variant does not belong to the menu item's recipe", http.StatusBadRequest).
		WithDetails(map[string]string{"variation_id": variationID})
}

func VariationBelongsToOtherMenuItem(variationID string) *Error {
	return New(KindVariationBelongsToOtherMenuItem, "variation does not belong to this menu item", http.StatusBadRequest).
		WithDetails(map[string]string{"variation_id": variationID})
}

func PinLocked(retryAfterSeconds int) *Error {
	return New(KindPinLocked, "PIN locked after too many failed attempts", http.StatusTooManyRequests).
		WithDetails(map[string]int{"retry_after_seconds": retryAfterSeconds})
}

func Internal(message string) *Error {
	return New(KindInternal, message, http.StatusInternalServerError)
}

func Database(err error) *Error {
	return New(KindDatabase, "datastore operation failed", http.StatusInternalServerError).WithCause(err)
}

// ErrorResponse is the standard API error response envelope.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   *Error `json:"error"`
}

// NewErrorResponse wraps a domain error for the transport boundary.
func NewErrorResponse(err *Error) *ErrorResponse {
	return &ErrorResponse{Success: false, Error: err}
}
