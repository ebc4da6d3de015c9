package services

import (
	"context"
	"testing"
	"time"

	"github.com/ak/pos/internal/domain/models"
	"github.com/ak/pos/internal/pkg/errors"
	"github.com/ak/pos/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type tillFixture struct {
	tills     *fakeTills
	terminals *fakeTerminals
	orders    *fakeOrders
	staff     *fakeStaff
	issuer    *fakeIssuer
	service   *TillService

	branchID primitive.ObjectID
	cashier  *models.Staff
	manager  *models.Staff
}

func newTillFixture() *tillFixture {
	f := &tillFixture{
		tills:     newFakeTills(),
		terminals: newFakeTerminals(),
		orders:    &fakeOrders{},
		staff:     newFakeStaff(),
		issuer:    &fakeIssuer{},
		branchID:  primitive.NewObjectID(),
	}
	f.cashier = f.staff.add(&models.Staff{
		Name:    "Amira",
		Roles:   []string{"cashier"},
		IsStaff: true,
		Status:  models.StaffStatusActive,
	})
	f.manager = f.staff.add(&models.Staff{
		Name:    "Bashir",
		Roles:   []string{"manager"},
		IsStaff: true,
		Status:  models.StaffStatusActive,
	})
	f.service = NewTillService(f.tills, f.terminals, f.orders, NewRoleChecker(), f.issuer, logger.Global())
	return f
}

func (f *tillFixture) open(t *testing.T, actor *models.Staff) *TillResult {
	t.Helper()
	result, err := f.service.Open(context.Background(), newTenant(), actor, &OpenTillRequest{
		BranchID:      f.branchID,
		OpeningAmount: d("100.00"),
	})
	require.NoError(t, err)
	return result
}

func TestOpenTill(t *testing.T) {
	f := newTillFixture()
	result := f.open(t, f.cashier)

	assert.Equal(t, models.TillStatusOpen, result.Session.Status)
	assert.True(t, result.Session.OpeningAmount.Equal(d("100.00")))
	assert.Equal(t, f.cashier.ID, result.Session.StaffID)

	// The refreshed token is bound to the session.
	assert.Equal(t, result.Session.ID.Hex(), f.issuer.last.TillSessionID)
}

func TestOpenTillConflictOwnSession(t *testing.T) {
	f := newTillFixture()
	f.open(t, f.cashier)

	_, err := f.service.Open(context.Background(), newTenant(), f.cashier, &OpenTillRequest{
		BranchID:      f.branchID,
		OpeningAmount: d("50.00"),
	})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindTillAlreadyOpen))
	assert.Contains(t, errors.AsError(err).Message, "you already have")
}

func TestOpenTillConflictOtherCashier(t *testing.T) {
	f := newTillFixture()
	f.open(t, f.cashier)

	_, err := f.service.Open(context.Background(), newTenant(), f.manager, &OpenTillRequest{
		BranchID:      f.branchID,
		OpeningAmount: d("50.00"),
	})
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindTillAlreadyOpen))
	assert.Contains(t, errors.AsError(err).Message, "another cashier")
}

func TestOpenTillSeparateTerminals(t *testing.T) {
	f := newTillFixture()
	term1 := f.terminals.add(&models.PosTerminal{BranchID: f.branchID, Name: "T1", Status: models.TerminalStatusActive})
	term2 := f.terminals.add(&models.PosTerminal{BranchID: f.branchID, Name: "T2", Status: models.TerminalStatusActive})

	_, err := f.service.Open(context.Background(), newTenant(), f.cashier, &OpenTillRequest{
		BranchID: f.branchID, PosTerminalID: &term1.ID, OpeningAmount: d("100"),
	})
	require.NoError(t, err)

	// A different terminal is a different drawer.
	_, err = f.service.Open(context.Background(), newTenant(), f.manager, &OpenTillRequest{
		BranchID: f.branchID, PosTerminalID: &term2.ID, OpeningAmount: d("100"),
	})
	require.NoError(t, err)
}

func TestOpenTillInactiveTerminal(t *testing.T) {
	f := newTillFixture()
	term := f.terminals.add(&models.PosTerminal{BranchID: f.branchID, Name: "T1", Status: models.TerminalStatusRetired})

	_, err := f.service.Open(context.Background(), newTenant(), f.cashier, &OpenTillRequest{
		BranchID: f.branchID, PosTerminalID: &term.ID, OpeningAmount: d("100"),
	})
	assert.True(t, errors.IsKind(err, errors.KindTerminalInactive))
}

func TestOpenTillTerminalBranchMismatch(t *testing.T) {
	f := newTillFixture()
	term := f.terminals.add(&models.PosTerminal{BranchID: primitive.NewObjectID(), Name: "T1", Status: models.TerminalStatusActive})

	_, err := f.service.Open(context.Background(), newTenant(), f.cashier, &OpenTillRequest{
		BranchID: f.branchID, PosTerminalID: &term.ID, OpeningAmount: d("100"),
	})
	assert.True(t, errors.IsKind(err, errors.KindTerminalBranchMismatch))
}

func TestOpenTillNegativeOpeningAmount(t *testing.T) {
	f := newTillFixture()
	_, err := f.service.Open(context.Background(), newTenant(), f.cashier, &OpenTillRequest{
		BranchID:      f.branchID,
		OpeningAmount: d("-1"),
	})
	assert.True(t, errors.IsKind(err, errors.KindValidation))
}

func TestCloseTillVariance(t *testing.T) {
	f := newTillFixture()
	result := f.open(t, f.cashier)

	// Two cash sales and one cash refund during the session.
	f.orders.orders = append(f.orders.orders,
		&models.Order{
			TillSessionID: result.Session.ID,
			Status:        models.OrderStatusPaid,
			Payment:       models.OrderPayment{Method: models.PaymentMethodCash, AmountPaid: d("150.00")},
			Totals:        models.OrderTotals{GrandTotal: d("150.00")},
		},
		&models.Order{
			TillSessionID: result.Session.ID,
			Status:        models.OrderStatusPaid,
			Payment:       models.OrderPayment{Method: models.PaymentMethodCash, AmountPaid: d("100.50")},
			Totals:        models.OrderTotals{GrandTotal: d("100.50")},
		},
		&models.Order{
			TillSessionID: result.Session.ID,
			Status:        models.OrderStatusRefunded,
			Payment:       models.OrderPayment{Method: models.PaymentMethodCash, AmountPaid: d("20.00")},
			Totals:        models.OrderTotals{GrandTotal: d("20.00")},
		},
	)

	closed, err := f.service.Close(context.Background(), newTenant(), f.cashier, &CloseTillRequest{
		SessionID:             result.Session.ID,
		DeclaredClosingAmount: d("345.00"),
	})
	require.NoError(t, err)

	// system = 100 + (150 + 100.50 + 20) - 20 = 350.50
	require.NotNil(t, closed.Session.SystemClosingAmount)
	assert.True(t, closed.Session.SystemClosingAmount.Equal(d("350.50")), "system %s", closed.Session.SystemClosingAmount)
	require.NotNil(t, closed.Session.Variance)
	assert.True(t, closed.Session.Variance.Equal(d("-5.50")), "variance %s", closed.Session.Variance)
	assert.Equal(t, models.TillStatusClosed, closed.Session.Status)
	require.NotNil(t, closed.Session.ClosedAt)
	assert.WithinDuration(t, time.Now(), *closed.Session.ClosedAt, time.Minute)

	// The refreshed token no longer carries a till session.
	assert.Empty(t, f.issuer.last.TillSessionID)
}

func TestCloseTillAlreadyClosed(t *testing.T) {
	f := newTillFixture()
	result := f.open(t, f.cashier)

	_, err := f.service.Close(context.Background(), newTenant(), f.cashier, &CloseTillRequest{
		SessionID:             result.Session.ID,
		DeclaredClosingAmount: d("100.00"),
	})
	require.NoError(t, err)

	_, err = f.service.Close(context.Background(), newTenant(), f.cashier, &CloseTillRequest{
		SessionID:             result.Session.ID,
		DeclaredClosingAmount: d("100.00"),
	})
	assert.True(t, errors.IsKind(err, errors.KindTillNotOpen))
}

func TestCloseTillOwnership(t *testing.T) {
	f := newTillFixture()
	other := f.staff.add(&models.Staff{
		Name:    "Chen",
		Roles:   []string{"cashier"},
		IsStaff: true,
		Status:  models.StaffStatusActive,
	})
	result := f.open(t, f.cashier)

	t.Run("another cashier cannot close", func(t *testing.T) {
		_, err := f.service.Close(context.Background(), newTenant(), other, &CloseTillRequest{
			SessionID:             result.Session.ID,
			DeclaredClosingAmount: d("100.00"),
		})
		assert.True(t, errors.IsKind(err, errors.KindTillBelongsToOther))
	})

	t.Run("a manager can close on behalf", func(t *testing.T) {
		_, err := f.service.Close(context.Background(), newTenant(), f.manager, &CloseTillRequest{
			SessionID:             result.Session.ID,
			DeclaredClosingAmount: d("100.00"),
		})
		assert.NoError(t, err)
	})
}

func TestCloseTillNotFound(t *testing.T) {
	f := newTillFixture()
	_, err := f.service.Close(context.Background(), newTenant(), f.cashier, &CloseTillRequest{
		SessionID:             primitive.NewObjectID(),
		DeclaredClosingAmount: d("0"),
	})
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
}
