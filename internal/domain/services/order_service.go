package services

import (
	"context"
	"time"

	"github.com/ak/pos/internal/domain/models"
	"github.com/ak/pos/internal/domain/repositories"
	"github.com/ak/pos/internal/pkg/errors"
	"github.com/ak/pos/internal/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const numberAllocRetries = 3

// CommitLine is one requested order line.
type CommitLine struct {
	MenuItemID   primitive.ObjectID   `json:"menu_item_id"`
	Quantity     decimal.Decimal      `json:"quantity"`
	VariationIDs []primitive.ObjectID `json:"variation_ids,omitempty"`
	Notes        string               `json:"notes,omitempty"`
}

// CommitPayment is the tendered payment on a commit request.
type CommitPayment struct {
	Method     models.PaymentMethod `json:"method"`
	AmountPaid decimal.Decimal      `json:"amount_paid"`
}

// CommitOrderRequest is the full order-commit input. BranchID and
// TillSessionID are resolved from the caller's token by the transport layer
// when not supplied explicitly.
type CommitOrderRequest struct {
	ClientOpID    string               `json:"client_op_id,omitempty"`
	BranchID      primitive.ObjectID   `json:"branch_id,omitempty"`
	PosTerminalID *primitive.ObjectID  `json:"pos_terminal_id,omitempty"`
	TillSessionID *primitive.ObjectID  `json:"till_session_id,omitempty"`
	Lines         []CommitLine         `json:"lines"`
	Payment       CommitPayment        `json:"payment"`
	CustomerName  string               `json:"customer_name,omitempty"`
	CustomerPhone string               `json:"customer_phone,omitempty"`
	Notes         string               `json:"notes,omitempty"`
}

// CommitResult carries the committed order. Replayed is set when an
// idempotent retry matched a previously committed order.
type CommitResult struct {
	Order    *models.Order `json:"order"`
	Replayed bool          `json:"replayed"`
}

// OrderService implements the order-commit path and the void and refund
// transitions. Commit runs in three phases: preflight resolution and pricing
// outside the datastore transaction, number allocation plus insert plus stock
// deduction inside it, and event emission after it.
type OrderService struct {
	orders    repositories.OrderRepository
	menus     repositories.MenuRepository
	branches  repositories.BranchRepository
	terminals repositories.TerminalRepository
	tills     repositories.TillSessionRepository
	recipes   repositories.RecipeRepository
	pricing   *PricingEngine
	ledger    *Ledger
	numbers   *OrderNumbers
	checker   Checker
	publisher EventPublisher
	log       *logger.Logger
}

func NewOrderService(
	orders repositories.OrderRepository,
	menus repositories.MenuRepository,
	branches repositories.BranchRepository,
	terminals repositories.TerminalRepository,
	tills repositories.TillSessionRepository,
	recipes repositories.RecipeRepository,
	pricing *PricingEngine,
	ledger *Ledger,
	numbers *OrderNumbers,
	checker Checker,
	publisher EventPublisher,
	log *logger.Logger,
) *OrderService {
	return &OrderService{
		orders:    orders,
		menus:     menus,
		branches:  branches,
		terminals: terminals,
		tills:     tills,
		recipes:   recipes,
		pricing:   pricing,
		ledger:    ledger,
		numbers:   numbers,
		checker:   checker,
		publisher: publisher,
		log:       log.WithComponent("orders"),
	}
}

// Commit validates, prices, numbers and persists an order, deducting branch
// stock in the same datastore transaction. A request carrying a previously
// seen client_op_id returns the original order unchanged.
func (s *OrderService) Commit(ctx context.Context, t repositories.Tenant, actor *models.Staff, req *CommitOrderRequest) (*CommitResult, error) {
	if len(req.Lines) == 0 {
		return nil, errors.Validation("order must contain at least one line")
	}
	if req.Payment.AmountPaid.IsNegative() {
		return nil, errors.Validation("amount paid must not be negative")
	}
	switch req.Payment.Method {
	case models.PaymentMethodCash, models.PaymentMethodCard, models.PaymentMethodMobile, models.PaymentMethodSplit:
	default:
		return nil, errors.Validation("unknown payment method")
	}

	if req.ClientOpID != "" {
		existing, err := s.orders.GetByClientOpID(ctx, t, req.ClientOpID)
		if err != nil {
			return nil, errors.Database(err)
		}
		if existing != nil {
			return &CommitResult{Order: existing, Replayed: true}, nil
		}
	}

	branch, till, err := s.resolveContext(ctx, t, actor, req)
	if err != nil {
		return nil, err
	}

	if pm, ok := branch.POSConfig.PaymentMethods[string(req.Payment.Method)]; ok && !pm.Enabled {
		return nil, errors.Validation("payment method is not enabled at this branch")
	}

	order, requirements, err := s.buildOrder(ctx, t, actor, branch, till, req)
	if err != nil {
		return nil, err
	}

	err = t.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.insertNumbered(txCtx, t, branch, order); err != nil {
			return err
		}
		ref := models.TxnRef{OrderID: &order.ID}
		return s.ledger.Deduct(txCtx, t, branch.ID, requirements, ref, actor.ID.Hex())
	})
	if err != nil {
		// A concurrent duplicate of the same client operation loses the
		// unique-index race; surface the winner instead of an error.
		if req.ClientOpID != "" && mongo.IsDuplicateKeyError(err) {
			existing, lookupErr := s.orders.GetByClientOpID(ctx, t, req.ClientOpID)
			if lookupErr == nil && existing != nil {
				return &CommitResult{Order: existing, Replayed: true}, nil
			}
		}
		return nil, errors.AsError(err)
	}

	s.publish(ctx, t, order)

	s.log.WithTenant(t.Key()).WithBranch(branch.ID.Hex()).WithOrder(order.OrderNumber).Info("order committed",
		zap.String("status", string(order.Status)),
		zap.String("grand_total", order.Totals.GrandTotal.String()))

	return &CommitResult{Order: order}, nil
}

// Void cancels a placed order and returns its ingredients to stock.
func (s *OrderService) Void(ctx context.Context, t repositories.Tenant, actor *models.Staff, orderID primitive.ObjectID, reason string) (*models.Order, error) {
	return s.reverse(ctx, t, actor, orderID, models.OrderStatusPlaced, models.OrderStatusVoid, ActionOrdersCreate, reason)
}

// Refund reverses a paid order, restocking ingredients. The cash movement is
// reflected in till reconciliation through the refunded status.
func (s *OrderService) Refund(ctx context.Context, t repositories.Tenant, actor *models.Staff, orderID primitive.ObjectID, reason string) (*models.Order, error) {
	return s.reverse(ctx, t, actor, orderID, models.OrderStatusPaid, models.OrderStatusRefunded, ActionTillManage, reason)
}

func (s *OrderService) reverse(ctx context.Context, t repositories.Tenant, actor *models.Staff, orderID primitive.ObjectID, from, to models.OrderStatus, action string, reason string) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, t, orderID)
	if err != nil {
		return nil, errors.Database(err)
	}
	if order == nil {
		return nil, errors.NotFound("order")
	}
	if !s.checker.May(actor, action, BranchScope(order.BranchID)) {
		return nil, errors.Unauthorized("not permitted for this order")
	}
	if order.Status != from {
		return nil, errors.Conflict("order status does not allow this transition").
			WithDetails(map[string]string{"status": string(order.Status)})
	}

	requirements, err := s.orderRequirements(ctx, t, order)
	if err != nil {
		return nil, err
	}

	err = t.WithTransaction(ctx, func(txCtx context.Context) error {
		ref := models.TxnRef{OrderID: &order.ID, Note: reason}
		if err := s.ledger.Release(txCtx, t, order.BranchID, requirements, ref, actor.ID.Hex()); err != nil {
			return err
		}
		return s.orders.UpdateStatus(txCtx, t, order.ID, to)
	})
	if err != nil {
		return nil, errors.AsError(err)
	}

	order.Status = to
	s.log.WithTenant(t.Key()).WithOrder(order.OrderNumber).Info("order reversed",
		zap.String("to", string(to)))
	return order, nil
}

// resolveContext resolves and checks actor, branch, terminal and till.
func (s *OrderService) resolveContext(ctx context.Context, t repositories.Tenant, actor *models.Staff, req *CommitOrderRequest) (*models.Branch, *models.TillSession, error) {
	if actor == nil || !actor.IsStaff {
		return nil, nil, errors.NotStaff()
	}
	if actor.Status == models.StaffStatusSuspended {
		return nil, nil, errors.AccountSuspended()
	}
	branchID := req.BranchID
	if branchID.IsZero() && len(actor.BranchIDs) == 1 {
		// An actor scoped to exactly one branch does not need to name it.
		branchID = actor.BranchIDs[0]
	}
	if branchID.IsZero() {
		return nil, nil, errors.BranchRequired()
	}

	branch, err := s.branches.GetByID(ctx, t, branchID)
	if err != nil {
		return nil, nil, errors.Database(err)
	}
	if branch == nil {
		return nil, nil, errors.NotFound("branch")
	}
	if !actor.HasBranch(branch.ID) {
		return nil, nil, errors.BranchNotAuthorized(branch.ID.Hex())
	}
	if !s.checker.May(actor, ActionOrdersCreate, BranchScope(branch.ID)) {
		return nil, nil, errors.Unauthorized("not permitted to create orders")
	}

	if req.PosTerminalID != nil {
		term, err := s.terminals.GetByID(ctx, t, *req.PosTerminalID)
		if err != nil {
			return nil, nil, errors.Database(err)
		}
		if term == nil {
			return nil, nil, errors.NotFound("terminal")
		}
		if term.Status != models.TerminalStatusActive {
			return nil, nil, errors.TerminalInactive()
		}
		if term.BranchID != branch.ID {
			return nil, nil, errors.TerminalBranchMismatch()
		}
	}

	var till *models.TillSession
	if req.TillSessionID != nil {
		till, err = s.tills.GetByID(ctx, t, *req.TillSessionID)
		if err != nil {
			return nil, nil, errors.Database(err)
		}
		if till == nil {
			return nil, nil, errors.NotFound("till session")
		}
		if till.Status != models.TillStatusOpen {
			return nil, nil, errors.TillClosed()
		}
	} else {
		till, err = s.tills.FindOpen(ctx, t, branch.ID, req.PosTerminalID)
		if err != nil {
			return nil, nil, errors.Database(err)
		}
		if till == nil {
			return nil, nil, errors.NoOpenTill()
		}
	}
	if till.StaffID != actor.ID {
		return nil, nil, errors.TillBelongsToOther()
	}
	if till.BranchID != branch.ID {
		return nil, nil, errors.Conflict("till session belongs to another branch")
	}

	return branch, till, nil
}

// buildOrder prices every line and assembles the unnumbered order document
// plus the merged stock requirements.
func (s *OrderService) buildOrder(ctx context.Context, t repositories.Tenant, actor *models.Staff, branch *models.Branch, till *models.TillSession, req *CommitOrderRequest) (*models.Order, []Requirement, error) {
	var (
		lines        []models.OrderLine
		requirements []Requirement
		subTotal     = decimal.Zero
	)

	for i, line := range req.Lines {
		if !line.Quantity.IsPositive() {
			return nil, nil, errors.Validation("line quantity must be positive").
				WithDetails(map[string]int{"line": i})
		}

		item, err := s.menus.GetItem(ctx, t, line.MenuItemID)
		if err != nil {
			return nil, nil, errors.Database(err)
		}
		if item == nil || item.IsDeleted {
			return nil, nil, errors.NotFound("menu item").
				WithDetails(map[string]string{"menu_item_id": line.MenuItemID.Hex()})
		}
		if !item.Active {
			return nil, nil, errors.MenuItemUnavailable(item.Name)
		}

		row, err := s.menus.GetBranchMenu(ctx, t, branch.ID, item.ID)
		if err != nil {
			return nil, nil, errors.Database(err)
		}
		if row != nil && !row.Available {
			return nil, nil, errors.MenuItemUnavailable(item.Name)
		}

		selected, err := s.resolveVariations(ctx, t, line.VariationIDs)
		if err != nil {
			return nil, nil, err
		}

		quote, err := s.pricing.Quote(ctx, t, item, row, selected)
		if err != nil {
			return nil, nil, err
		}

		lineTotal := money4(quote.UnitPrice.Mul(line.Quantity))
		subTotal = subTotal.Add(lineTotal)

		for _, leaf := range quote.Requirements {
			requirements = append(requirements, Requirement{
				ItemID:       leaf.ItemID,
				Qty:          leaf.Qty.Mul(line.Quantity),
				FromRecipeID: leaf.FromRecipeID,
			})
		}

		lines = append(lines, models.OrderLine{
			MenuItemID:         item.ID,
			RecipeIDSnapshot:   item.RecipeID,
			SelectedVariations: quote.Variations,
			NameSnapshot:       item.Name,
			CodeSnapshot:       item.Code,
			CategoryIDSnapshot: item.CategoryID,
			Quantity:           line.Quantity,
			UnitPrice:          quote.UnitPrice,
			LineTotal:          lineTotal,
			CalculatedCost:     quote.UnitCost,
			PriceIncludesTax:   quote.PriceIncludesTax,
			Notes:              line.Notes,
		})
	}

	subTotal = money2(subTotal)
	taxRate := branch.Tax.Rate
	if pm, ok := branch.POSConfig.PaymentMethods[string(req.Payment.Method)]; ok && pm.TaxRateOverride != nil {
		taxRate = *pm.TaxRateOverride
	}

	// Inclusive-tax branches price items tax-in; the tax total stays zero and
	// the grand total equals the subtotal.
	taxTotal := decimal.Zero
	if branch.Tax.Mode == models.TaxModeExclusive {
		taxTotal = money2(subTotal.Mul(taxRate).Div(hundred))
	}
	grandTotal := money2(subTotal.Add(taxTotal))

	now := time.Now()
	amountPaid := money2(req.Payment.AmountPaid)

	status := models.OrderStatusPlaced
	change := decimal.Zero
	var paidAt *time.Time
	if amountPaid.GreaterThanOrEqual(grandTotal) {
		status = models.OrderStatusPaid
		paidAt = &now
		change = amountPaid.Sub(grandTotal)
	}

	clientOpID := req.ClientOpID
	if clientOpID == "" {
		clientOpID = uuid.NewString()
	}

	merged := MergeRequirements(requirements)
	deductions := make([]models.StockDeduction, 0, len(merged))
	for _, r := range merged {
		deductions = append(deductions, models.StockDeduction{
			ItemID:       r.ItemID,
			Qty:          r.Qty,
			FromRecipeID: r.FromRecipeID,
		})
	}

	order := &models.Order{
		BranchID:      branch.ID,
		PosTerminalID: req.PosTerminalID,
		TillSessionID: till.ID,
		StaffID:       actor.ID,
		Status:        status,
		Items:         lines,
		Totals: models.OrderTotals{
			SubTotal:   subTotal,
			TaxTotal:   taxTotal,
			Discount:   decimal.Zero,
			GrandTotal: grandTotal,
		},
		Payment: models.OrderPayment{
			Method:     req.Payment.Method,
			AmountPaid: amountPaid,
			Change:     change,
			PaidAt:     paidAt,
		},
		Deductions: deductions,
		Pricing: models.PricingSnapshot{
			Currency:         branch.Currency,
			PriceIncludesTax: branch.Tax.Mode == models.TaxModeInclusive,
			TaxMode:          branch.Tax.Mode,
			TaxRate:          taxRate,
		},
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Notes:         req.Notes,
		ClientOpID:    clientOpID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	return order, requirements, nil
}

func (s *OrderService) resolveVariations(ctx context.Context, t repositories.Tenant, ids []primitive.ObjectID) ([]*models.MenuVariation, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	found, err := s.menus.GetVariations(ctx, t, ids)
	if err != nil {
		return nil, errors.Database(err)
	}
	byID := make(map[primitive.ObjectID]*models.MenuVariation, len(found))
	for _, v := range found {
		byID[v.ID] = v
	}
	selected := make([]*models.MenuVariation, 0, len(ids))
	for _, id := range ids {
		v, ok := byID[id]
		if !ok {
			return nil, errors.NotFound("menu variation").
				WithDetails(map[string]string{"variation_id": id.Hex()})
		}
		if !v.Active {
			return nil, errors.MenuItemUnavailable(v.Name)
		}
		selected = append(selected, v)
	}
	return selected, nil
}

// insertNumbered allocates an order number and inserts. A duplicate order
// number (prefix collision across branches) retries with a fresh allocation;
// gaps left by aborted transactions are accepted.
func (s *OrderService) insertNumbered(ctx context.Context, t repositories.Tenant, branch *models.Branch, order *models.Order) error {
	for attempt := 0; attempt < numberAllocRetries; attempt++ {
		number, err := s.numbers.Next(ctx, t, branch.ID, branch.POSConfig.OrderPrefix, time.Now())
		if err != nil {
			return err
		}
		order.OrderNumber = number

		err = s.orders.Insert(ctx, t, order)
		if err == nil {
			return nil
		}
		if mongo.IsDuplicateKeyError(err) {
			existing, lookupErr := s.orders.GetByNumber(ctx, t, number)
			if lookupErr == nil && existing != nil {
				continue
			}
			return err
		}
		return errors.Database(err)
	}
	return errors.Conflict("could not allocate a unique order number")
}

// orderRequirements returns the stock requirements deducted for a committed
// order. Orders carry their merged deductions since commit time; for records
// that predate the field, the requirements are recomputed from the line
// snapshots against the live recipes.
func (s *OrderService) orderRequirements(ctx context.Context, t repositories.Tenant, order *models.Order) ([]Requirement, error) {
	if len(order.Deductions) > 0 {
		requirements := make([]Requirement, 0, len(order.Deductions))
		for _, d := range order.Deductions {
			requirements = append(requirements, Requirement{
				ItemID:       d.ItemID,
				Qty:          d.Qty,
				FromRecipeID: d.FromRecipeID,
			})
		}
		return requirements, nil
	}

	tr := s.pricing.costs.NewTraversal()
	var requirements []Requirement

	for _, line := range order.Items {
		multiplier := line.Quantity
		for _, v := range line.SelectedVariations {
			if v.Type == models.VariantTypeSize && v.SizeMultiplier.IsPositive() {
				multiplier = line.Quantity.Mul(v.SizeMultiplier)
				break
			}
		}

		if line.RecipeIDSnapshot != nil {
			flat, err := tr.Flatten(ctx, t, *line.RecipeIDSnapshot, multiplier)
			if err != nil {
				return nil, err
			}
			for _, leaf := range flat.Leaves {
				requirements = append(requirements, Requirement{ItemID: leaf.ItemID, Qty: leaf.Qty, FromRecipeID: leaf.FromRecipeID})
			}
		}

		for _, v := range line.SelectedVariations {
			if v.RecipeVariantID == nil {
				continue
			}
			variant, err := s.recipes.GetVariant(ctx, t, *v.RecipeVariantID)
			if err != nil {
				return nil, errors.Database(err)
			}
			if variant == nil {
				continue
			}
			flat, err := tr.FlattenIngredients(ctx, t, variant.RecipeID, variant.Ingredients, multiplier)
			if err != nil {
				return nil, err
			}
			for _, leaf := range flat.Leaves {
				requirements = append(requirements, Requirement{ItemID: leaf.ItemID, Qty: leaf.Qty, FromRecipeID: leaf.FromRecipeID})
			}
		}
	}

	return requirements, nil
}

func (s *OrderService) publish(ctx context.Context, t repositories.Tenant, order *models.Order) {
	evt := &OrderCommittedEvent{
		EventID:     uuid.NewString(),
		TenantKey:   t.Key(),
		OrderID:     order.ID.Hex(),
		OrderNumber: order.OrderNumber,
		BranchID:    order.BranchID.Hex(),
		StaffID:     order.StaffID.Hex(),
		Status:      string(order.Status),
		GrandTotal:  order.Totals.GrandTotal.String(),
		Currency:    order.Pricing.Currency,
		CommittedAt: order.CreatedAt,
	}
	if err := s.publisher.OrderCommitted(ctx, evt); err != nil {
		s.log.WithOrder(order.OrderNumber).Warn("order committed event not delivered", zap.Error(err))
	}
}
