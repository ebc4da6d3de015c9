package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"
	"unicode"

	"github.com/ak/pos/internal/domain/models"
	"github.com/ak/pos/internal/domain/repositories"
	"github.com/ak/pos/internal/pkg/errors"
	"github.com/ak/pos/internal/pkg/logger"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AttemptStore tracks failed PIN attempts with expiry. Keys are lockout
// scopes, not staff ids; a wrong PIN resolves to no staff member, so the
// counter is keyed by the PIN fingerprint itself.
type AttemptStore interface {
	// Fails returns the current failure count and the remaining lock window.
	Fails(ctx context.Context, key string) (int, time.Duration, error)
	// RecordFail increments the counter and (re)arms the expiry window.
	RecordFail(ctx context.Context, key string, window time.Duration) (int, error)
	// Clear resets the counter after a successful login.
	Clear(ctx context.Context, key string) error
}

// LoginResult is the successful PIN login payload.
type LoginResult struct {
	Staff *models.Staff `json:"staff"`
	Token string        `json:"token"`
}

// AuthService implements PIN login and PIN management. PINs are resolved via
// a peppered HMAC lookup key and verified against a bcrypt hash; the raw PIN
// never touches storage.
type AuthService struct {
	staff       repositories.StaffRepository
	attempts    AttemptStore
	issuer      TokenIssuer
	pepper      []byte
	maxAttempts int
	lockWindow  time.Duration
	log         *logger.Logger
}

func NewAuthService(staff repositories.StaffRepository, attempts AttemptStore, issuer TokenIssuer, pepper string, maxAttempts int, lockWindow time.Duration, log *logger.Logger) *AuthService {
	return &AuthService{
		staff:       staff,
		attempts:    attempts,
		issuer:      issuer,
		pepper:      []byte(pepper),
		maxAttempts: maxAttempts,
		lockWindow:  lockWindow,
		log:         log.WithComponent("auth"),
	}
}

// PinKey derives the deterministic lookup key for a PIN within a tenant.
func (s *AuthService) PinKey(tenantKey, pin string) string {
	mac := hmac.New(sha256.New, s.pepper)
	mac.Write([]byte(tenantKey + ":" + pin))
	return hex.EncodeToString(mac.Sum(nil))
}

// PinLogin resolves a staff member by PIN. Failed attempts against the same
// PIN fingerprint are counted and locked out after maxAttempts.
func (s *AuthService) PinLogin(ctx context.Context, t repositories.Tenant, pin string) (*LoginResult, error) {
	if err := validatePin(pin); err != nil {
		return nil, err
	}

	pinKey := s.PinKey(t.Key(), pin)
	attemptKey := "pin:" + t.Key() + ":" + pinKey

	fails, remaining, err := s.attempts.Fails(ctx, attemptKey)
	if err != nil {
		return nil, errors.Internal("attempt store unavailable").WithCause(err)
	}
	if fails >= s.maxAttempts {
		return nil, errors.PinLocked(int(remaining.Seconds()))
	}

	staff, err := s.staff.GetByPinKey(ctx, t, pinKey)
	if err != nil {
		return nil, errors.Database(err)
	}
	if staff == nil {
		return nil, s.recordFailure(ctx, attemptKey)
	}
	if bcrypt.CompareHashAndPassword([]byte(staff.PinHash), []byte(pin)) != nil {
		return nil, s.recordFailure(ctx, attemptKey)
	}

	if !staff.IsStaff {
		return nil, errors.NotStaff()
	}
	if staff.Status == models.StaffStatusSuspended {
		return nil, errors.AccountSuspended()
	}

	if err := s.attempts.Clear(ctx, attemptKey); err != nil {
		s.log.Warn("failed to clear attempt counter", zap.Error(err))
	}

	token, err := s.issuer.Issue(TokenClaims{
		TenantKey: t.Key(),
		StaffID:   staff.ID.Hex(),
		Roles:     staff.Roles,
	})
	if err != nil {
		return nil, errors.Internal("failed to issue token").WithCause(err)
	}

	s.log.Info("pin login", zap.String("staff_id", staff.ID.Hex()))
	return &LoginResult{Staff: staff, Token: token}, nil
}

// SetPin assigns a new PIN to the target staff member. Staff may set their
// own; otherwise staff management permission is required.
func (s *AuthService) SetPin(ctx context.Context, t repositories.Tenant, actor *models.Staff, checker Checker, targetID primitive.ObjectID, pin string) error {
	if actor.ID != targetID && !checker.May(actor, ActionStaffManage, TenantScope()) {
		return errors.Unauthorized("not permitted to manage staff PINs")
	}
	if err := validatePin(pin); err != nil {
		return err
	}

	target, err := s.staff.GetByID(ctx, t, targetID)
	if err != nil {
		return errors.Database(err)
	}
	if target == nil {
		return errors.NotFound("staff")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return errors.Internal("failed to hash PIN").WithCause(err)
	}
	if err := s.staff.SetPin(ctx, t, targetID, s.PinKey(t.Key(), pin), string(hash)); err != nil {
		return errors.Database(err)
	}
	return nil
}

func (s *AuthService) recordFailure(ctx context.Context, attemptKey string) error {
	fails, err := s.attempts.RecordFail(ctx, attemptKey, s.lockWindow)
	if err != nil {
		return errors.Internal("attempt store unavailable").WithCause(err)
	}
	if fails >= s.maxAttempts {
		return errors.PinLocked(int(s.lockWindow.Seconds()))
	}
	return errors.InvalidCredentials()
}

func validatePin(pin string) error {
	if len(pin) < 4 || len(pin) > 8 {
		return errors.Validation("PIN must be 4 to 8 digits")
	}
	for _, r := range pin {
		if !unicode.IsDigit(r) {
			return errors.Validation("PIN must contain digits only")
		}
	}
	return nil
}
