package services

import (
	"context"
	"time"

	"github.com/ak/pos/internal/domain/models"
	"github.com/ak/pos/internal/domain/repositories"
	"github.com/ak/pos/internal/pkg/errors"
	"github.com/ak/pos/internal/pkg/logger"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// OpenTillRequest opens a cash drawer session on a branch, optionally bound
// to a terminal.
type OpenTillRequest struct {
	BranchID      primitive.ObjectID
	PosTerminalID *primitive.ObjectID
	OpeningAmount decimal.Decimal
	CashCounts    []models.CashCount
	Notes         string
}

// CloseTillRequest seals a session with the cashier's declared drawer count.
type CloseTillRequest struct {
	SessionID             primitive.ObjectID
	DeclaredClosingAmount decimal.Decimal
	CashCounts            []models.CashCount
	Notes                 string
}

// TillResult pairs the session with a refreshed token: open embeds the
// session id in the token, close clears it.
type TillResult struct {
	Session *models.TillSession `json:"session"`
	Token   string              `json:"token"`
}

// TillService owns the open and close transitions of till sessions.
type TillService struct {
	tills     repositories.TillSessionRepository
	terminals repositories.TerminalRepository
	orders    repositories.OrderRepository
	checker   Checker
	issuer    TokenIssuer
	log       *logger.Logger
}

func NewTillService(tills repositories.TillSessionRepository, terminals repositories.TerminalRepository, orders repositories.OrderRepository, checker Checker, issuer TokenIssuer, log *logger.Logger) *TillService {
	return &TillService{
		tills:     tills,
		terminals: terminals,
		orders:    orders,
		checker:   checker,
		issuer:    issuer,
		log:       log.WithComponent("till"),
	}
}

// Open creates a session after verifying no open session exists for the
// (branch, terminal) pair. The unique index on open sessions backstops the
// check under concurrency.
func (s *TillService) Open(ctx context.Context, t repositories.Tenant, actor *models.Staff, req *OpenTillRequest) (*TillResult, error) {
	if !s.checker.May(actor, ActionTillManage, BranchScope(req.BranchID)) {
		return nil, errors.Unauthorized("not permitted to manage till sessions")
	}
	if !actor.HasBranch(req.BranchID) {
		return nil, errors.BranchNotAuthorized(req.BranchID.Hex())
	}
	if req.OpeningAmount.IsNegative() {
		return nil, errors.Validation("opening amount must not be negative")
	}

	if req.PosTerminalID != nil {
		term, err := s.terminals.GetByID(ctx, t, *req.PosTerminalID)
		if err != nil {
			return nil, errors.Database(err)
		}
		if term == nil {
			return nil, errors.NotFound("terminal")
		}
		if term.Status != models.TerminalStatusActive {
			return nil, errors.TerminalInactive()
		}
		if term.BranchID != req.BranchID {
			return nil, errors.TerminalBranchMismatch()
		}
	}

	existing, err := s.tills.FindOpen(ctx, t, req.BranchID, req.PosTerminalID)
	if err != nil {
		return nil, errors.Database(err)
	}
	if existing != nil {
		msg := "you already have an open till session on this terminal"
		if existing.StaffID != actor.ID {
			msg = "another cashier has an open till session on this terminal"
		}
		return nil, errors.TillAlreadyOpen(msg).
			WithDetails(map[string]string{"session_id": existing.ID.Hex()})
	}

	now := time.Now()
	session := &models.TillSession{
		StaffID:       actor.ID,
		BranchID:      req.BranchID,
		PosTerminalID: req.PosTerminalID,
		Status:        models.TillStatusOpen,
		OpenedAt:      now,
		OpeningAmount: money2(req.OpeningAmount),
		CashCounts:    req.CashCounts,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.tills.Create(ctx, t, session); err != nil {
		return nil, errors.Database(err)
	}

	token, err := s.issuer.Issue(TokenClaims{
		TenantKey:     t.Key(),
		StaffID:       actor.ID.Hex(),
		Roles:         actor.Roles,
		BranchID:      req.BranchID.Hex(),
		TillSessionID: session.ID.Hex(),
	})
	if err != nil {
		return nil, errors.Internal("failed to issue session token").WithCause(err)
	}

	s.log.WithTill(session.ID.Hex()).WithBranch(req.BranchID.Hex()).Info("till session opened",
		zap.String("staff_id", actor.ID.Hex()))

	return &TillResult{Session: session, Token: token}, nil
}

// Close seals the session and computes the cash variance. The expected drawer
// is opening amount plus cash taken on non-void orders minus cash refunded.
func (s *TillService) Close(ctx context.Context, t repositories.Tenant, actor *models.Staff, req *CloseTillRequest) (*TillResult, error) {
	session, err := s.tills.GetByID(ctx, t, req.SessionID)
	if err != nil {
		return nil, errors.Database(err)
	}
	if session == nil {
		return nil, errors.NotFound("till session")
	}
	if session.Status != models.TillStatusOpen {
		return nil, errors.TillNotOpen()
	}
	if session.StaffID != actor.ID && !s.checker.May(actor, ActionStaffManage, BranchScope(session.BranchID)) {
		return nil, errors.TillBelongsToOther()
	}
	if req.DeclaredClosingAmount.IsNegative() {
		return nil, errors.Validation("declared closing amount must not be negative")
	}

	cashPaid, cashRefunded, err := s.orders.SumCashByTillSession(ctx, t, session.ID)
	if err != nil {
		return nil, errors.Database(err)
	}

	system := money2(session.OpeningAmount.Add(cashPaid).Sub(cashRefunded))
	declared := money2(req.DeclaredClosingAmount)
	variance := declared.Sub(system)

	now := time.Now()
	session.Status = models.TillStatusClosed
	session.ClosedAt = &now
	session.DeclaredClosingAmount = &declared
	session.SystemClosingAmount = &system
	session.Variance = &variance
	if len(req.CashCounts) > 0 {
		session.CashCounts = req.CashCounts
	}
	if req.Notes != "" {
		session.Notes = req.Notes
	}
	session.UpdatedAt = now

	if err := s.tills.Seal(ctx, t, session); err != nil {
		if errors.IsKind(err, errors.KindTillNotOpen) {
			return nil, err
		}
		return nil, errors.Database(err)
	}

	token, err := s.issuer.Issue(TokenClaims{
		TenantKey: t.Key(),
		StaffID:   actor.ID.Hex(),
		Roles:     actor.Roles,
		BranchID:  session.BranchID.Hex(),
	})
	if err != nil {
		return nil, errors.Internal("failed to issue session token").WithCause(err)
	}

	s.log.WithTill(session.ID.Hex()).Info("till session closed",
		zap.String("variance", variance.String()))

	return &TillResult{Session: session, Token: token}, nil
}
