package services

import (
	"github.com/ak/pos/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Actions the core asks the permission checker about.
const (
	ActionOrdersCreate    = "pos.orders.create"
	ActionTillManage      = "pos.till.manage"
	ActionInventoryManage = "pos.inventory.manage"
	ActionStaffManage     = "staff.manage"
)

// Scope narrows a permission check to the tenant or to a single branch.
type Scope struct {
	BranchID *primitive.ObjectID
}

func TenantScope() Scope {
	return Scope{}
}

func BranchScope(id primitive.ObjectID) Scope {
	return Scope{BranchID: &id}
}

// Checker is the permission surface the core consumes. It is implemented
// outside the core; RoleChecker is the default wiring.
type Checker interface {
	May(staff *models.Staff, action string, scope Scope) bool
}

// RoleChecker grants actions from a static role table. Branch-scoped checks
// additionally require the staff member to be scoped to that branch.
type RoleChecker struct {
	grants map[string]map[string]bool
}

func NewRoleChecker() *RoleChecker {
	grant := func(actions ...string) map[string]bool {
		m := make(map[string]bool, len(actions))
		for _, a := range actions {
			m[a] = true
		}
		return m
	}
	return &RoleChecker{
		grants: map[string]map[string]bool{
			"cashier": grant(ActionOrdersCreate, ActionTillManage),
			"manager": grant(ActionOrdersCreate, ActionTillManage, ActionInventoryManage, ActionStaffManage),
			"admin":   grant(ActionOrdersCreate, ActionTillManage, ActionInventoryManage, ActionStaffManage),
		},
	}
}

func (c *RoleChecker) May(staff *models.Staff, action string, scope Scope) bool {
	if staff == nil {
		return false
	}
	if scope.BranchID != nil && !staff.HasBranch(*scope.BranchID) {
		return false
	}
	for _, role := range staff.Roles {
		if c.grants[role][action] {
			return true
		}
	}
	return false
}
