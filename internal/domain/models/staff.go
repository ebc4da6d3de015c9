package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Staff is a tenant user who can operate a till. PIN login is resolved by a
// deterministic keyed HMAC over the PIN; the raw PIN is never stored.
type Staff struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name      string               `bson:"name" json:"name"`
	Email     string               `bson:"email" json:"email"`
	Roles     []string             `bson:"roles" json:"roles"`
	BranchIDs []primitive.ObjectID `bson:"branch_ids,omitempty" json:"branch_ids,omitempty"`
	IsStaff   bool                 `bson:"is_staff" json:"is_staff"`
	Status    StaffStatus          `bson:"status" json:"status"`
	PinKey    string               `bson:"pin_key,omitempty" json:"-"`  // HMAC lookup key, sparse unique
	PinHash   string               `bson:"pin_hash,omitempty" json:"-"` // bcrypt
	CreatedAt time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time            `bson:"updated_at" json:"updated_at"`
}

type StaffStatus string

const (
	StaffStatusActive    StaffStatus = "active"
	StaffStatusSuspended StaffStatus = "suspended"
)

// HasBranch reports whether the staff member is scoped to the given branch.
// An empty BranchIDs list means tenant-wide scope.
func (s *Staff) HasBranch(branchID primitive.ObjectID) bool {
	if len(s.BranchIDs) == 0 {
		return true
	}
	for _, id := range s.BranchIDs {
		if id == branchID {
			return true
		}
	}
	return false
}
