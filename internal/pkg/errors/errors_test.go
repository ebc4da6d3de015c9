package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsKind(t *testing.T) {
	err := NotFound("order")
	assert.True(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(err, KindConflict))
	assert.False(t, IsKind(nil, KindNotFound))
	assert.False(t, IsKind(fmt.Errorf("plain"), KindNotFound))
}

func TestIsKindThroughWrapping(t *testing.T) {
	err := fmt.Errorf("commit: %w", TillClosed())
	assert.True(t, IsKind(err, KindTillClosed))
}

func TestAsErrorPassesThroughDomainErrors(t *testing.T) {
	original := InsufficientStock([]ShortItem{{ItemID: "x", Needed: "2", OnHand: "1"}})
	got := AsError(original)
	assert.Same(t, original, got)
}

func TestAsErrorWrapsForeignErrors(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	got := AsError(cause)
	assert.Equal(t, KindInternal, got.Kind)
	assert.Equal(t, http.StatusInternalServerError, got.HTTPStatus)
	assert.ErrorIs(t, got, cause)
}

func TestCauseNotSerialized(t *testing.T) {
	err := Database(fmt.Errorf("no reachable servers"))
	assert.ErrorContains(t, err.Unwrap(), "no reachable servers")
	assert.NotContains(t, err.Error(), "no reachable servers")
}

func TestDetailsPayloads(t *testing.T) {
	err := PinLocked(120)
	details, ok := err.Details.(map[string]int)
	require.True(t, ok)
	assert.Equal(t, 120, details["retry_after_seconds"])
	assert.Equal(t, http.StatusTooManyRequests, err.HTTPStatus)
}
