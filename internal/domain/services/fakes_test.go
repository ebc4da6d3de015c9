package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ak/pos/internal/domain/models"
	"github.com/ak/pos/internal/domain/repositories"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

// fakeTenant satisfies repositories.Tenant for in-memory tests. Transactions
// run the callback directly; Collection is never reached by the services.
type fakeTenant struct {
	key string
}

func (t *fakeTenant) Key() string                                { return t.key }
func (t *fakeTenant) Collection(string) *mongo.Collection        { return nil }
func (t *fakeTenant) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTenant() *fakeTenant { return &fakeTenant{key: "acme"} }

type fakeRecipes struct {
	recipes  map[primitive.ObjectID]*models.Recipe
	variants map[primitive.ObjectID]*models.RecipeVariant
	reads    int
}

func newFakeRecipes() *fakeRecipes {
	return &fakeRecipes{
		recipes:  make(map[primitive.ObjectID]*models.Recipe),
		variants: make(map[primitive.ObjectID]*models.RecipeVariant),
	}
}

func (r *fakeRecipes) add(rec *models.Recipe) *models.Recipe {
	if rec.ID.IsZero() {
		rec.ID = primitive.NewObjectID()
	}
	r.recipes[rec.ID] = rec
	return rec
}

func (r *fakeRecipes) addVariant(v *models.RecipeVariant) *models.RecipeVariant {
	if v.ID.IsZero() {
		v.ID = primitive.NewObjectID()
	}
	r.variants[v.ID] = v
	return v
}

func (r *fakeRecipes) GetByID(_ context.Context, _ repositories.Tenant, id primitive.ObjectID) (*models.Recipe, error) {
	r.reads++
	return r.recipes[id], nil
}

func (r *fakeRecipes) GetVariant(_ context.Context, _ repositories.Tenant, id primitive.ObjectID) (*models.RecipeVariant, error) {
	return r.variants[id], nil
}

func (r *fakeRecipes) GetVariants(_ context.Context, _ repositories.Tenant, ids []primitive.ObjectID) ([]*models.RecipeVariant, error) {
	var out []*models.RecipeVariant
	for _, id := range ids {
		if v, ok := r.variants[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

type stockKey struct {
	branch primitive.ObjectID
	item   primitive.ObjectID
}

type fakeInventory struct {
	items map[primitive.ObjectID]*models.InventoryItem
	stock map[stockKey]*models.BranchInventory
	txns  []*models.InventoryTransaction
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{
		items: make(map[primitive.ObjectID]*models.InventoryItem),
		stock: make(map[stockKey]*models.BranchInventory),
	}
}

func (f *fakeInventory) addItem(name string, itemType models.ItemType) *models.InventoryItem {
	item := &models.InventoryItem{
		ID:       primitive.NewObjectID(),
		Name:     name,
		SKU:      name,
		Type:     itemType,
		BaseUnit: "g",
	}
	f.items[item.ID] = item
	return item
}

func (f *fakeInventory) stockAt(branchID primitive.ObjectID, item *models.InventoryItem, onHand, costPerUnit string) {
	f.stock[stockKey{branchID, item.ID}] = &models.BranchInventory{
		ID:          primitive.NewObjectID(),
		BranchID:    branchID,
		ItemID:      item.ID,
		OnHandQty:   d(onHand),
		CostPerUnit: d(costPerUnit),
		Active:      true,
	}
}

func (f *fakeInventory) GetItem(_ context.Context, _ repositories.Tenant, id primitive.ObjectID) (*models.InventoryItem, error) {
	return f.items[id], nil
}

func (f *fakeInventory) GetItems(_ context.Context, _ repositories.Tenant, ids []primitive.ObjectID) ([]*models.InventoryItem, error) {
	var out []*models.InventoryItem
	for _, id := range ids {
		if item, ok := f.items[id]; ok {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeInventory) GetBranchStock(_ context.Context, _ repositories.Tenant, branchID primitive.ObjectID, itemIDs []primitive.ObjectID) ([]*models.BranchInventory, error) {
	var out []*models.BranchInventory
	for _, id := range itemIDs {
		if row, ok := f.stock[stockKey{branchID, id}]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeInventory) ApplyDeltas(_ context.Context, _ repositories.Tenant, branchID primitive.ObjectID, deltas map[primitive.ObjectID]decimal.Decimal) error {
	for itemID, delta := range deltas {
		row, ok := f.stock[stockKey{branchID, itemID}]
		if !ok {
			return fmt.Errorf("no stock row for %s", itemID.Hex())
		}
		row.OnHandQty = row.OnHandQty.Add(delta)
	}
	return nil
}

func (f *fakeInventory) InsertTransactions(_ context.Context, _ repositories.Tenant, txns []*models.InventoryTransaction) error {
	f.txns = append(f.txns, txns...)
	return nil
}

func (f *fakeInventory) ListBranchStock(_ context.Context, _ repositories.Tenant, _ primitive.ObjectID, _, _ int) ([]*models.BranchInventory, int64, error) {
	return nil, 0, nil
}

func (f *fakeInventory) ListTransactions(_ context.Context, _ repositories.Tenant, _ repositories.TxnFilter) ([]*models.InventoryTransaction, int64, error) {
	return f.txns, int64(len(f.txns)), nil
}

type fakeStaff struct {
	byID map[primitive.ObjectID]*models.Staff
}

func newFakeStaff() *fakeStaff {
	return &fakeStaff{byID: make(map[primitive.ObjectID]*models.Staff)}
}

func (f *fakeStaff) add(s *models.Staff) *models.Staff {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	f.byID[s.ID] = s
	return s
}

func (f *fakeStaff) GetByID(_ context.Context, _ repositories.Tenant, id primitive.ObjectID) (*models.Staff, error) {
	return f.byID[id], nil
}

func (f *fakeStaff) GetByEmail(_ context.Context, _ repositories.Tenant, email string) (*models.Staff, error) {
	for _, s := range f.byID {
		if s.Email == email {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeStaff) GetByPinKey(_ context.Context, _ repositories.Tenant, pinKey string) (*models.Staff, error) {
	for _, s := range f.byID {
		if s.PinKey != "" && s.PinKey == pinKey {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeStaff) SetPin(_ context.Context, _ repositories.Tenant, id primitive.ObjectID, pinKey, pinHash string) error {
	s, ok := f.byID[id]
	if !ok {
		return fmt.Errorf("staff %s not found", id.Hex())
	}
	s.PinKey = pinKey
	s.PinHash = pinHash
	return nil
}

type fakeBranches struct {
	byID map[primitive.ObjectID]*models.Branch
}

func newFakeBranches() *fakeBranches {
	return &fakeBranches{byID: make(map[primitive.ObjectID]*models.Branch)}
}

func (f *fakeBranches) add(b *models.Branch) *models.Branch {
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	f.byID[b.ID] = b
	return b
}

func (f *fakeBranches) GetByID(_ context.Context, _ repositories.Tenant, id primitive.ObjectID) (*models.Branch, error) {
	return f.byID[id], nil
}

func (f *fakeBranches) GetByCode(_ context.Context, _ repositories.Tenant, code string) (*models.Branch, error) {
	for _, b := range f.byID {
		if b.Code == code {
			return b, nil
		}
	}
	return nil, nil
}

type fakeTerminals struct {
	byID map[primitive.ObjectID]*models.PosTerminal
}

func newFakeTerminals() *fakeTerminals {
	return &fakeTerminals{byID: make(map[primitive.ObjectID]*models.PosTerminal)}
}

func (f *fakeTerminals) add(t *models.PosTerminal) *models.PosTerminal {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	f.byID[t.ID] = t
	return t
}

func (f *fakeTerminals) GetByID(_ context.Context, _ repositories.Tenant, id primitive.ObjectID) (*models.PosTerminal, error) {
	return f.byID[id], nil
}

func (f *fakeTerminals) GetByMachineID(_ context.Context, _ repositories.Tenant, machineID string) (*models.PosTerminal, error) {
	for _, t := range f.byID {
		if t.MachineID == machineID {
			return t, nil
		}
	}
	return nil, nil
}

func (f *fakeTerminals) ListByBranch(_ context.Context, _ repositories.Tenant, branchID primitive.ObjectID) ([]*models.PosTerminal, error) {
	var out []*models.PosTerminal
	for _, t := range f.byID {
		if t.BranchID == branchID {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeTills struct {
	byID map[primitive.ObjectID]*models.TillSession
}

func newFakeTills() *fakeTills {
	return &fakeTills{byID: make(map[primitive.ObjectID]*models.TillSession)}
}

func (f *fakeTills) Create(_ context.Context, _ repositories.Tenant, session *models.TillSession) error {
	if session.ID.IsZero() {
		session.ID = primitive.NewObjectID()
	}
	f.byID[session.ID] = session
	return nil
}

func (f *fakeTills) GetByID(_ context.Context, _ repositories.Tenant, id primitive.ObjectID) (*models.TillSession, error) {
	return f.byID[id], nil
}

func (f *fakeTills) FindOpen(_ context.Context, _ repositories.Tenant, branchID primitive.ObjectID, terminalID *primitive.ObjectID) (*models.TillSession, error) {
	for _, s := range f.byID {
		if s.BranchID != branchID || s.Status != models.TillStatusOpen {
			continue
		}
		if terminalID == nil && s.PosTerminalID == nil {
			return s, nil
		}
		if terminalID != nil && s.PosTerminalID != nil && *s.PosTerminalID == *terminalID {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeTills) Seal(_ context.Context, _ repositories.Tenant, session *models.TillSession) error {
	stored, ok := f.byID[session.ID]
	if !ok || (stored != session && stored.Status != models.TillStatusOpen) {
		return fmt.Errorf("session not open")
	}
	f.byID[session.ID] = session
	return nil
}

func (f *fakeTills) ListByBranch(_ context.Context, _ repositories.Tenant, branchID primitive.ObjectID, status string, _, _ int) ([]*models.TillSession, int64, error) {
	var out []*models.TillSession
	for _, s := range f.byID {
		if s.BranchID == branchID && (status == "" || string(s.Status) == status) {
			out = append(out, s)
		}
	}
	return out, int64(len(out)), nil
}

type branchMenuKey struct {
	branch primitive.ObjectID
	item   primitive.ObjectID
}

type fakeMenus struct {
	items      map[primitive.ObjectID]*models.MenuItem
	rows       map[branchMenuKey]*models.BranchMenu
	variations map[primitive.ObjectID]*models.MenuVariation
}

func newFakeMenus() *fakeMenus {
	return &fakeMenus{
		items:      make(map[primitive.ObjectID]*models.MenuItem),
		rows:       make(map[branchMenuKey]*models.BranchMenu),
		variations: make(map[primitive.ObjectID]*models.MenuVariation),
	}
}

func (f *fakeMenus) addItem(item *models.MenuItem) *models.MenuItem {
	if item.ID.IsZero() {
		item.ID = primitive.NewObjectID()
	}
	f.items[item.ID] = item
	return item
}

func (f *fakeMenus) addRow(row *models.BranchMenu) *models.BranchMenu {
	if row.ID.IsZero() {
		row.ID = primitive.NewObjectID()
	}
	f.rows[branchMenuKey{row.BranchID, row.MenuItemID}] = row
	return row
}

func (f *fakeMenus) addVariation(v *models.MenuVariation) *models.MenuVariation {
	if v.ID.IsZero() {
		v.ID = primitive.NewObjectID()
	}
	f.variations[v.ID] = v
	return v
}

func (f *fakeMenus) GetItem(_ context.Context, _ repositories.Tenant, id primitive.ObjectID) (*models.MenuItem, error) {
	return f.items[id], nil
}

func (f *fakeMenus) GetItemBySlug(_ context.Context, _ repositories.Tenant, slug string) (*models.MenuItem, error) {
	for _, item := range f.items {
		if item.Slug == slug {
			return item, nil
		}
	}
	return nil, nil
}

func (f *fakeMenus) GetBranchMenu(_ context.Context, _ repositories.Tenant, branchID, menuItemID primitive.ObjectID) (*models.BranchMenu, error) {
	return f.rows[branchMenuKey{branchID, menuItemID}], nil
}

func (f *fakeMenus) GetVariations(_ context.Context, _ repositories.Tenant, ids []primitive.ObjectID) ([]*models.MenuVariation, error) {
	var out []*models.MenuVariation
	for _, id := range ids {
		if v, ok := f.variations[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeMenus) ListBranchMenu(_ context.Context, _ repositories.Tenant, _ primitive.ObjectID, _, _ int) ([]*models.BranchMenu, int64, error) {
	return nil, 0, nil
}

type fakeOrders struct {
	orders []*models.Order
}

func duplicateKeyErr() error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
}

func (f *fakeOrders) Insert(_ context.Context, _ repositories.Tenant, order *models.Order) error {
	for _, existing := range f.orders {
		if existing.OrderNumber == order.OrderNumber {
			return duplicateKeyErr()
		}
		if order.ClientOpID != "" && existing.ClientOpID == order.ClientOpID {
			return duplicateKeyErr()
		}
	}
	order.ID = primitive.NewObjectID()
	stored := *order
	f.orders = append(f.orders, &stored)
	return nil
}

func (f *fakeOrders) GetByID(_ context.Context, _ repositories.Tenant, id primitive.ObjectID) (*models.Order, error) {
	for _, o := range f.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, nil
}

func (f *fakeOrders) GetByNumber(_ context.Context, _ repositories.Tenant, number string) (*models.Order, error) {
	for _, o := range f.orders {
		if o.OrderNumber == number {
			return o, nil
		}
	}
	return nil, nil
}

func (f *fakeOrders) GetByClientOpID(_ context.Context, _ repositories.Tenant, clientOpID string) (*models.Order, error) {
	for _, o := range f.orders {
		if o.ClientOpID == clientOpID {
			return o, nil
		}
	}
	return nil, nil
}

func (f *fakeOrders) UpdateStatus(_ context.Context, _ repositories.Tenant, id primitive.ObjectID, status models.OrderStatus) error {
	for _, o := range f.orders {
		if o.ID == id {
			o.Status = status
			return nil
		}
	}
	return fmt.Errorf("order %s not found", id.Hex())
}

func (f *fakeOrders) SumCashByTillSession(_ context.Context, _ repositories.Tenant, tillSessionID primitive.ObjectID) (decimal.Decimal, decimal.Decimal, error) {
	paid, refunded := decimal.Zero, decimal.Zero
	for _, o := range f.orders {
		if o.TillSessionID != tillSessionID || o.Payment.Method != models.PaymentMethodCash {
			continue
		}
		if o.Status == models.OrderStatusVoid {
			continue
		}
		paid = paid.Add(o.Payment.AmountPaid)
		if o.Status == models.OrderStatusRefunded {
			refunded = refunded.Add(o.Totals.GrandTotal)
		}
	}
	return paid, refunded, nil
}

func (f *fakeOrders) ListByBranch(_ context.Context, _ repositories.Tenant, filter repositories.OrderFilter) ([]*models.Order, int64, error) {
	var out []*models.Order
	for _, o := range f.orders {
		if o.BranchID == filter.BranchID {
			out = append(out, o)
		}
	}
	return out, int64(len(out)), nil
}

type counterKey struct {
	branch  primitive.ObjectID
	prefix  string
	dateKey string
}

// fakeCounters mirrors the atomic findOneAndUpdate upsert, so it is safe for
// concurrent allocation tests.
type fakeCounters struct {
	mu   sync.Mutex
	seqs map[counterKey]int64
}

func newFakeCounters() *fakeCounters {
	return &fakeCounters{seqs: make(map[counterKey]int64)}
}

func (f *fakeCounters) Next(_ context.Context, _ repositories.Tenant, branchID primitive.ObjectID, prefix, dateKey string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := counterKey{branchID, prefix, dateKey}
	f.seqs[k]++
	return f.seqs[k], nil
}

type fakeAttempts struct {
	counts  map[string]int
	expires map[string]time.Time
}

func newFakeAttempts() *fakeAttempts {
	return &fakeAttempts{
		counts:  make(map[string]int),
		expires: make(map[string]time.Time),
	}
}

func (f *fakeAttempts) Fails(_ context.Context, key string) (int, time.Duration, error) {
	exp, ok := f.expires[key]
	if !ok || time.Now().After(exp) {
		return 0, 0, nil
	}
	return f.counts[key], time.Until(exp), nil
}

func (f *fakeAttempts) RecordFail(_ context.Context, key string, window time.Duration) (int, error) {
	f.counts[key]++
	f.expires[key] = time.Now().Add(window)
	return f.counts[key], nil
}

func (f *fakeAttempts) Clear(_ context.Context, key string) error {
	delete(f.counts, key)
	delete(f.expires, key)
	return nil
}

type fakeIssuer struct {
	last TokenClaims
}

func (f *fakeIssuer) Issue(claims TokenClaims) (string, error) {
	f.last = claims
	return "token:" + claims.StaffID + ":" + claims.TillSessionID, nil
}

type capturingPublisher struct {
	events []*OrderCommittedEvent
	err    error
}

func (p *capturingPublisher) OrderCommitted(_ context.Context, evt *OrderCommittedEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, evt)
	return nil
}
