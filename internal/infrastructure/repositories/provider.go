package repositories

import (
	"github.com/ak/pos/internal/domain/repositories"
)

// Provider holds all repository instances
type Provider struct {
	Staff     repositories.StaffRepository
	Branch    repositories.BranchRepository
	Terminal  repositories.TerminalRepository
	Till      repositories.TillSessionRepository
	Menu      repositories.MenuRepository
	Recipe    repositories.RecipeRepository
	Inventory repositories.InventoryRepository
	Order     repositories.OrderRepository
	Counter   repositories.CounterRepository
}

// NewProvider creates a new repository provider
func NewProvider() *Provider {
	return &Provider{
		Staff:     NewStaffRepository(),
		Branch:    NewBranchRepository(),
		Terminal:  NewTerminalRepository(),
		Till:      NewTillSessionRepository(),
		Menu:      NewMenuRepository(),
		Recipe:    NewRecipeRepository(),
		Inventory: NewInventoryRepository(),
		Order:     NewOrderRepository(),
		Counter:   NewCounterRepository(),
	}
}
