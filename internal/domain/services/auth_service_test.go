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
	"golang.org/x/crypto/bcrypt"
)

type authFixture struct {
	staff    *fakeStaff
	attempts *fakeAttempts
	issuer   *fakeIssuer
	service  *AuthService
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		staff:    newFakeStaff(),
		attempts: newFakeAttempts(),
		issuer:   &fakeIssuer{},
	}
	f.service = NewAuthService(f.staff, f.attempts, f.issuer, "test-pepper", 3, 15*time.Minute, logger.Global())
	return f
}

func (f *authFixture) enroll(t *testing.T, pin string, mutate func(*models.Staff)) *models.Staff {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.MinCost)
	require.NoError(t, err)
	s := &models.Staff{
		Name:    "Amira",
		Roles:   []string{"cashier"},
		IsStaff: true,
		Status:  models.StaffStatusActive,
		PinKey:  f.service.PinKey("acme", pin),
		PinHash: string(hash),
	}
	if mutate != nil {
		mutate(s)
	}
	return f.staff.add(s)
}

func TestPinLogin(t *testing.T) {
	f := newAuthFixture()
	staff := f.enroll(t, "4821", nil)

	result, err := f.service.PinLogin(context.Background(), newTenant(), "4821")
	require.NoError(t, err)
	assert.Equal(t, staff.ID, result.Staff.ID)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, staff.ID.Hex(), f.issuer.last.StaffID)
	assert.Equal(t, []string{"cashier"}, f.issuer.last.Roles)
	assert.Empty(t, f.issuer.last.TillSessionID)
}

func TestPinLoginWrongPin(t *testing.T) {
	f := newAuthFixture()
	f.enroll(t, "4821", nil)

	_, err := f.service.PinLogin(context.Background(), newTenant(), "9999")
	assert.True(t, errors.IsKind(err, errors.KindInvalidCredentials))
}

func TestPinLoginLockout(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	// Two failures stay on invalid credentials; the third locks.
	for i := 0; i < 2; i++ {
		_, err := f.service.PinLogin(ctx, newTenant(), "9999")
		assert.True(t, errors.IsKind(err, errors.KindInvalidCredentials))
	}
	_, err := f.service.PinLogin(ctx, newTenant(), "9999")
	assert.True(t, errors.IsKind(err, errors.KindPinLocked))

	// Subsequent attempts against the same PIN stay locked.
	_, err = f.service.PinLogin(ctx, newTenant(), "9999")
	assert.True(t, errors.IsKind(err, errors.KindPinLocked))

	// A different PIN has its own counter.
	_, err = f.service.PinLogin(ctx, newTenant(), "8888")
	assert.True(t, errors.IsKind(err, errors.KindInvalidCredentials))
}

func TestPinLoginSuccessClearsCounter(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	// Force a failure on the correct lookup key by breaking the stored hash.
	staff := f.enroll(t, "7777", nil)
	goodHash := staff.PinHash
	staff.PinHash = "$2a$04$invalidinvalidinvalidinvalidinvalidinvalidinvalidinva"

	_, err := f.service.PinLogin(ctx, newTenant(), "7777")
	assert.True(t, errors.IsKind(err, errors.KindInvalidCredentials))

	staff.PinHash = goodHash
	_, err = f.service.PinLogin(ctx, newTenant(), "7777")
	require.NoError(t, err)

	// The counter was cleared; three fresh failures are needed to lock again.
	staff.PinHash = "$2a$04$invalidinvalidinvalidinvalidinvalidinvalidinvalidinva"
	for i := 0; i < 2; i++ {
		_, err = f.service.PinLogin(ctx, newTenant(), "7777")
		assert.True(t, errors.IsKind(err, errors.KindInvalidCredentials))
	}
}

func TestPinLoginNotStaff(t *testing.T) {
	f := newAuthFixture()
	f.enroll(t, "4821", func(s *models.Staff) { s.IsStaff = false })

	_, err := f.service.PinLogin(context.Background(), newTenant(), "4821")
	assert.True(t, errors.IsKind(err, errors.KindNotStaff))
}

func TestPinLoginSuspended(t *testing.T) {
	f := newAuthFixture()
	f.enroll(t, "4821", func(s *models.Staff) { s.Status = models.StaffStatusSuspended })

	_, err := f.service.PinLogin(context.Background(), newTenant(), "4821")
	assert.True(t, errors.IsKind(err, errors.KindAccountSuspended))
}

func TestPinLoginValidation(t *testing.T) {
	f := newAuthFixture()
	ctx := context.Background()

	for _, pin := range []string{"", "123", "123456789", "12a4", "12 4"} {
		_, err := f.service.PinLogin(ctx, newTenant(), pin)
		assert.True(t, errors.IsKind(err, errors.KindValidation), "pin %q", pin)
	}
}

func TestPinKeyScopedToTenant(t *testing.T) {
	f := newAuthFixture()
	assert.NotEqual(t, f.service.PinKey("acme", "4821"), f.service.PinKey("globex", "4821"))
	assert.Equal(t, f.service.PinKey("acme", "4821"), f.service.PinKey("acme", "4821"))
}

func TestSetPinSelf(t *testing.T) {
	f := newAuthFixture()
	staff := f.enroll(t, "4821", nil)

	err := f.service.SetPin(context.Background(), newTenant(), staff, NewRoleChecker(), staff.ID, "5959")
	require.NoError(t, err)

	result, err := f.service.PinLogin(context.Background(), newTenant(), "5959")
	require.NoError(t, err)
	assert.Equal(t, staff.ID, result.Staff.ID)

	_, err = f.service.PinLogin(context.Background(), newTenant(), "4821")
	assert.True(t, errors.IsKind(err, errors.KindInvalidCredentials))
}

func TestSetPinForOther(t *testing.T) {
	f := newAuthFixture()
	cashier := f.enroll(t, "4821", nil)
	manager := f.staff.add(&models.Staff{
		Name:    "Bashir",
		Roles:   []string{"manager"},
		IsStaff: true,
		Status:  models.StaffStatusActive,
	})
	otherCashier := f.staff.add(&models.Staff{
		Name:    "Chen",
		Roles:   []string{"cashier"},
		IsStaff: true,
		Status:  models.StaffStatusActive,
	})

	err := f.service.SetPin(context.Background(), newTenant(), otherCashier, NewRoleChecker(), cashier.ID, "5959")
	assert.True(t, errors.IsKind(err, errors.KindUnauthorized))

	err = f.service.SetPin(context.Background(), newTenant(), manager, NewRoleChecker(), cashier.ID, "5959")
	assert.NoError(t, err)
}

func TestSetPinUnknownTarget(t *testing.T) {
	f := newAuthFixture()
	manager := f.staff.add(&models.Staff{
		Name:    "Bashir",
		Roles:   []string{"manager"},
		IsStaff: true,
		Status:  models.StaffStatusActive,
	})

	err := f.service.SetPin(context.Background(), newTenant(), manager, NewRoleChecker(), primitive.NewObjectID(), "5959")
	assert.True(t, errors.IsKind(err, errors.KindNotFound))
}
