package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RelationshipStatus defines the state of the edge between two users.
type RelationshipStatus string

const (
	// StatusPending means a friend request has been sent and the addressee must act on it.
	StatusPending RelationshipStatus = "pending"

	// StatusAccepted means the users are friends.
	StatusAccepted RelationshipStatus = "accepted"

	// StatusDeclined means the addressee declined. The requester may send again,
	// which rewrites this row back to pending.
	StatusDeclined RelationshipStatus = "declined"

	// StatusBlocked means one party blocked the other. Only unblock (which
	// deletes the row) returns the pair to no relationship.
	StatusBlocked RelationshipStatus = "blocked"
)

// Valid reports whether s is one of the known statuses.
func (s RelationshipStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusDeclined, StatusBlocked:
		return true
	}
	return false
}

// Relationship is the single row describing the connection between two users.
// RequesterID/AddresseeID carry the direction; PairLow/PairHigh hold the same
// two ids in canonical order and are covered by a unique index, so at most one
// row exists per unordered pair.
type Relationship struct {
	ID          string             `gorm:"type:varchar(36);primaryKey"`
	RequesterID uint               `gorm:"not null;index"`
	AddresseeID uint               `gorm:"not null;index:idx_relationship_addressee_status"`
	Status      RelationshipStatus `gorm:"type:varchar(20);not null;index:idx_relationship_addressee_status"`
	PairLow     uint               `gorm:"not null;uniqueIndex:idx_relationship_pair"`
	PairHigh    uint               `gorm:"not null;uniqueIndex:idx_relationship_pair"`
	CreatedAt   time.Time          `gorm:"index"`
	UpdatedAt   time.Time

	Requester User `gorm:"foreignKey:RequesterID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Addressee User `gorm:"foreignKey:AddresseeID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// PairKey returns the two ids in canonical (low, high) order.
func PairKey(a, b uint) (uint, uint) {
	if a < b {
		return a, b
	}
	return b, a
}

// BeforeCreate assigns the id and the canonical pair columns.
func (r *Relationship) BeforeCreate(_ *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.PairLow, r.PairHigh = PairKey(r.RequesterID, r.AddresseeID)
	return nil
}

// Involves reports whether userID is one of the two parties.
func (r *Relationship) Involves(userID uint) bool {
	return r.RequesterID == userID || r.AddresseeID == userID
}

// Counterpart returns the party that is not userID.
func (r *Relationship) Counterpart(userID uint) uint {
	if r.RequesterID == userID {
		return r.AddresseeID
	}
	return r.RequesterID
}
