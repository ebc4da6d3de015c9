package repositories

import (
	"context"

	"github.com/ak/pos/internal/domain/models"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Tenant is the per-tenant datastore handle. Repositories are stateless;
// every operation takes the handle explicitly, so no repository ever holds a
// binding to a particular tenant's collections.
type Tenant interface {
	// Key returns the tenant key the handle is bound to.
	Key() string
	// Collection returns a collection in the tenant's database.
	Collection(name string) *mongo.Collection
	// WithTransaction runs fn inside a multi-document transaction with
	// bounded retry on transient errors.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// StaffRepository defines operations for staff data access
type StaffRepository interface {
	GetByID(ctx context.Context, t Tenant, id primitive.ObjectID) (*models.Staff, error)
	GetByEmail(ctx context.Context, t Tenant, email string) (*models.Staff, error)
	GetByPinKey(ctx context.Context, t Tenant, pinKey string) (*models.Staff, error)
	SetPin(ctx context.Context, t Tenant, id primitive.ObjectID, pinKey, pinHash string) error
}

// BranchRepository defines operations for branch data access
type BranchRepository interface {
	GetByID(ctx context.Context, t Tenant, id primitive.ObjectID) (*models.Branch, error)
	GetByCode(ctx context.Context, t Tenant, code string) (*models.Branch, error)
}

// TerminalRepository defines operations for POS terminal data access
type TerminalRepository interface {
	GetByID(ctx context.Context, t Tenant, id primitive.ObjectID) (*models.PosTerminal, error)
	GetByMachineID(ctx context.Context, t Tenant, machineID string) (*models.PosTerminal, error)
	ListByBranch(ctx context.Context, t Tenant, branchID primitive.ObjectID) ([]*models.PosTerminal, error)
}

// TillSessionRepository defines operations for till session data access
type TillSessionRepository interface {
	Create(ctx context.Context, t Tenant, session *models.TillSession) error
	GetByID(ctx context.Context, t Tenant, id primitive.ObjectID) (*models.TillSession, error)
	// FindOpen returns the open session for (branch, terminal), or nil.
	FindOpen(ctx context.Context, t Tenant, branchID primitive.ObjectID, terminalID *primitive.ObjectID) (*models.TillSession, error)
	// Seal transitions the session from open to closed, writing the closing
	// amounts. It fails if the session is no longer open.
	Seal(ctx context.Context, t Tenant, session *models.TillSession) error
	ListByBranch(ctx context.Context, t Tenant, branchID primitive.ObjectID, status string, page, limit int) ([]*models.TillSession, int64, error)
}

// MenuRepository defines operations for menu data access
type MenuRepository interface {
	GetItem(ctx context.Context, t Tenant, id primitive.ObjectID) (*models.MenuItem, error)
	GetItemBySlug(ctx context.Context, t Tenant, slug string) (*models.MenuItem, error)
	GetBranchMenu(ctx context.Context, t Tenant, branchID, menuItemID primitive.ObjectID) (*models.BranchMenu, error)
	GetVariations(ctx context.Context, t Tenant, ids []primitive.ObjectID) ([]*models.MenuVariation, error)
	ListBranchMenu(ctx context.Context, t Tenant, branchID primitive.ObjectID, page, limit int) ([]*models.BranchMenu, int64, error)
}

// RecipeRepository defines operations for recipe graph access
type RecipeRepository interface {
	GetByID(ctx context.Context, t Tenant, id primitive.ObjectID) (*models.Recipe, error)
	GetVariant(ctx context.Context, t Tenant, id primitive.ObjectID) (*models.RecipeVariant, error)
	GetVariants(ctx context.Context, t Tenant, ids []primitive.ObjectID) ([]*models.RecipeVariant, error)
}

// InventoryRepository defines operations for inventory and the stock ledger.
// GetBranchStock / ApplyDeltas / InsertTransactions are the three bulk
// primitives the ledger composes inside the order-commit transaction.
type InventoryRepository interface {
	GetItem(ctx context.Context, t Tenant, id primitive.ObjectID) (*models.InventoryItem, error)
	GetItems(ctx context.Context, t Tenant, ids []primitive.ObjectID) ([]*models.InventoryItem, error)
	GetBranchStock(ctx context.Context, t Tenant, branchID primitive.ObjectID, itemIDs []primitive.ObjectID) ([]*models.BranchInventory, error)
	ApplyDeltas(ctx context.Context, t Tenant, branchID primitive.ObjectID, deltas map[primitive.ObjectID]decimal.Decimal) error
	InsertTransactions(ctx context.Context, t Tenant, txns []*models.InventoryTransaction) error
	ListBranchStock(ctx context.Context, t Tenant, branchID primitive.ObjectID, page, limit int) ([]*models.BranchInventory, int64, error)
	ListTransactions(ctx context.Context, t Tenant, filter TxnFilter) ([]*models.InventoryTransaction, int64, error)
}

type TxnFilter struct {
	BranchID primitive.ObjectID
	ItemID   *primitive.ObjectID
	OrderID  *primitive.ObjectID
	Type     string
	Page     int
	Limit    int
}

// OrderRepository defines operations for order data access
type OrderRepository interface {
	Insert(ctx context.Context, t Tenant, order *models.Order) error
	GetByID(ctx context.Context, t Tenant, id primitive.ObjectID) (*models.Order, error)
	GetByNumber(ctx context.Context, t Tenant, number string) (*models.Order, error)
	GetByClientOpID(ctx context.Context, t Tenant, clientOpID string) (*models.Order, error)
	UpdateStatus(ctx context.Context, t Tenant, id primitive.ObjectID, status models.OrderStatus) error
	// SumCashByTillSession returns the sum of cash-method amountPaid over
	// non-void orders and the sum refunded, both for the given session.
	SumCashByTillSession(ctx context.Context, t Tenant, tillSessionID primitive.ObjectID) (paid, refunded decimal.Decimal, err error)
	ListByBranch(ctx context.Context, t Tenant, filter OrderFilter) ([]*models.Order, int64, error)
}

type OrderFilter struct {
	BranchID      primitive.ObjectID
	TillSessionID *primitive.ObjectID
	Status        string
	Page          int
	Limit         int
}

// CounterRepository backs the order number generator. Next atomically
// increments and returns the sequence for (branch, prefix, dateKey).
type CounterRepository interface {
	Next(ctx context.Context, t Tenant, branchID primitive.ObjectID, prefix, dateKey string) (int64, error)
}
