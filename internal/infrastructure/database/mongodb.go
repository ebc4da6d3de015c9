package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ak/pos/internal/infrastructure/config"
	"github.com/ak/pos/internal/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Manager wraps the MongoDB client. Each tenant lives in its own database,
// named by prefixing the tenant key; Tenant returns a handle bound to one of
// them.
type Manager struct {
	client *mongo.Client
	config config.MongoDBConfig
	logger *logger.Logger

	mu      sync.Mutex
	indexed map[string]bool
}

// NewManager creates a new MongoDB manager
func NewManager(cfg config.MongoDBConfig, log *logger.Logger) *Manager {
	return &Manager{
		config:  cfg,
		logger:  log.WithComponent("mongodb"),
		indexed: make(map[string]bool),
	}
}

// Connect establishes connection to MongoDB
func (m *Manager) Connect(ctx context.Context) error {
	clientOpts := options.Client().
		ApplyURI(m.config.URI).
		SetMaxPoolSize(m.config.MaxPoolSize).
		SetMinPoolSize(m.config.MinPoolSize).
		SetConnectTimeout(m.config.ConnectTimeout).
		SetRegistry(decimalRegistry())

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Verify connection
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	m.client = client
	m.logger.Info("Connected to MongoDB")
	return nil
}

// Close closes the MongoDB connection
func (m *Manager) Close(ctx context.Context) error {
	if m.client != nil {
		return m.client.Disconnect(ctx)
	}
	return nil
}

// Client returns the client instance
func (m *Manager) Client() *mongo.Client {
	return m.client
}

// Health checks if MongoDB is healthy
func (m *Manager) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return m.client.Ping(ctx, readpref.Primary())
}

// Tenant returns a handle bound to the tenant's database. Indexes are
// ensured once per tenant per process.
func (m *Manager) Tenant(ctx context.Context, tenantKey string) (*TenantHandle, error) {
	if tenantKey == "" {
		return nil, fmt.Errorf("tenant key must not be empty")
	}
	h := &TenantHandle{
		key:     tenantKey,
		db:      m.client.Database(m.config.DatabasePrefix + tenantKey),
		manager: m,
	}

	m.mu.Lock()
	ensured := m.indexed[tenantKey]
	if !ensured {
		m.indexed[tenantKey] = true
	}
	m.mu.Unlock()

	if !ensured {
		if err := m.createIndexes(ctx, h.db); err != nil {
			m.logger.Warn("Failed to create some indexes",
				zap.String("tenant", tenantKey),
				zap.Error(err))
		}
	}
	return h, nil
}

// TenantHandle implements repositories.Tenant against one tenant database.
type TenantHandle struct {
	key     string
	db      *mongo.Database
	manager *Manager
}

// Key returns the tenant key the handle is bound to
func (h *TenantHandle) Key() string {
	return h.key
}

// Collection returns a collection in the tenant's database
func (h *TenantHandle) Collection(name string) *mongo.Collection {
	return h.db.Collection(name)
}

// WithTransaction runs fn inside a multi-document transaction, retrying
// transient transaction errors up to the configured bound.
func (h *TenantHandle) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	retries := h.manager.config.TxnRetries
	if retries < 1 {
		retries = 1
	}

	var lastErr error
	for attempt := 0; attempt < retries; attempt++ {
		session, err := h.manager.client.StartSession()
		if err != nil {
			return fmt.Errorf("failed to start session: %w", err)
		}

		_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
			return nil, fn(sc)
		})
		session.EndSession(ctx)

		if err == nil {
			return nil
		}
		lastErr = err

		var cmdErr mongo.CommandError
		if !(mongo.IsTimeout(err) || (isCommandError(err, &cmdErr) && cmdErr.HasErrorLabel("TransientTransactionError"))) {
			return err
		}
		h.manager.logger.Warn("Retrying transaction",
			zap.String("tenant", h.key),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return lastErr
}

func isCommandError(err error, target *mongo.CommandError) bool {
	ce, ok := err.(mongo.CommandError)
	if ok {
		*target = ce
	}
	return ok
}

// Collections
const (
	CollectionStaff           = "staff"
	CollectionBranches        = "branches"
	CollectionPosTerminals    = "pos_terminals"
	CollectionTillSessions    = "till_sessions"
	CollectionMenuCategories  = "menu_categories"
	CollectionMenuItems       = "menu_items"
	CollectionMenuVariations  = "menu_variations"
	CollectionBranchMenus     = "branch_menus"
	CollectionRecipes         = "recipes"
	CollectionRecipeVariants  = "recipe_variants"
	CollectionInventoryItems  = "inventory_items"
	CollectionBranchInventory = "branch_inventories"
	CollectionInventoryTxns   = "inventory_txns"
	CollectionOrders          = "pos_orders"
	CollectionCounters        = "__counters"
)

// createIndexes creates necessary indexes for all collections in one tenant
// database.
func (m *Manager) createIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		CollectionStaff: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "pin_key", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		},
		CollectionBranches: {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		CollectionPosTerminals: {
			{Keys: bson.D{{Key: "machine_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "branch_id", Value: 1}}},
		},
		CollectionTillSessions: {
			// At most one open session per (branch, terminal).
			{
				Keys: bson.D{{Key: "branch_id", Value: 1}, {Key: "pos_terminal_id", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.D{{Key: "status", Value: "open"}}),
			},
			{Keys: bson.D{{Key: "branch_id", Value: 1}, {Key: "status", Value: 1}, {Key: "opened_at", Value: -1}}},
			{Keys: bson.D{{Key: "staff_id", Value: 1}, {Key: "opened_at", Value: -1}}},
		},
		CollectionMenuItems: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "category_id", Value: 1}}},
		},
		CollectionMenuVariations: {
			{Keys: bson.D{{Key: "menu_item_id", Value: 1}}},
		},
		CollectionBranchMenus: {
			{Keys: bson.D{{Key: "branch_id", Value: 1}, {Key: "menu_item_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "branch_id", Value: 1}, {Key: "visible_on_pos", Value: 1}, {Key: "display_order", Value: 1}}},
		},
		CollectionRecipes: {
			{Keys: bson.D{{Key: "name", Value: 1}}},
		},
		CollectionRecipeVariants: {
			{Keys: bson.D{{Key: "recipe_id", Value: 1}}},
		},
		CollectionInventoryItems: {
			{Keys: bson.D{{Key: "sku", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		CollectionBranchInventory: {
			{Keys: bson.D{{Key: "branch_id", Value: 1}, {Key: "item_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		CollectionInventoryTxns: {
			{Keys: bson.D{{Key: "branch_id", Value: 1}, {Key: "item_id", Value: 1}, {Key: "ts", Value: -1}}},
			{Keys: bson.D{{Key: "ref.order_id", Value: 1}}, Options: options.Index().SetSparse(true)},
		},
		CollectionOrders: {
			{Keys: bson.D{{Key: "order_number", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "client_op_id", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
			{Keys: bson.D{{Key: "branch_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "till_session_id", Value: 1}}},
		},
		CollectionCounters: {
			{Keys: bson.D{{Key: "branch_id", Value: 1}, {Key: "prefix", Value: 1}, {Key: "date_key", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for collection, idxModels := range indexes {
		coll := db.Collection(collection)
		for _, idx := range idxModels {
			_, err := coll.Indexes().CreateOne(ctx, idx)
			if err != nil {
				m.logger.Warn("Failed to create index",
					zap.String("collection", collection),
					zap.Error(err))
			}
		}
	}

	return nil
}
