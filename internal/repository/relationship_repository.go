package repository

import (
	"context"
	"errors"
	"time"

	"friendlink/backend/internal/database"
	"friendlink/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicate is returned when an insert hits the unique pair index.
	ErrDuplicate = errors.New("repository: relationship already exists for pair")
)

// ListFilter selects which relationships ListFor returns.
type ListFilter string

const (
	FilterAll      ListFilter = "all"
	FilterReceived ListFilter = "received"
	FilterSent     ListFilter = "sent"
	FilterBlocked  ListFilter = "blocked"
)

// Valid reports whether f is a known filter.
func (f ListFilter) Valid() bool {
	switch f {
	case FilterAll, FilterReceived, FilterSent, FilterBlocked:
		return true
	}
	return false
}

// RelationshipStore persists friend relationship edges.
type RelationshipStore interface {
	// FindPair looks up the row for {a, b} regardless of stored direction.
	FindPair(ctx context.Context, a, b uint) (*models.Relationship, error)
	FindByID(ctx context.Context, id string) (*models.Relationship, error)
	CreatePending(ctx context.Context, requester, addressee uint) (*models.Relationship, error)
	// SetStatus updates the row in place. Zero requester/addressee leave the
	// direction unchanged.
	SetStatus(ctx context.Context, id string, status models.RelationshipStatus, requester, addressee uint) error
	Delete(ctx context.Context, id string) error
	CountPendingFor(ctx context.Context, userID uint) (int64, error)
	ListFor(ctx context.Context, userID uint, filter ListFilter, page, limit int) (Page[models.Relationship], error)
	// Transaction runs fn against a store bound to a single transaction.
	Transaction(ctx context.Context, fn func(tx RelationshipStore) error) error
}

// GormRelationshipStore is the GORM-backed RelationshipStore.
type GormRelationshipStore struct {
	db *gorm.DB
}

// NewRelationshipStore creates a RelationshipStore on top of db.
func NewRelationshipStore(db *gorm.DB) *GormRelationshipStore {
	return &GormRelationshipStore{db: db}
}

func (s *GormRelationshipStore) locked(ctx context.Context) *gorm.DB {
	tx := s.db.WithContext(ctx)
	// SQLite has no row locks; its writers are already serialized.
	if s.db.Dialector.Name() != database.DriverSQLite {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func (s *GormRelationshipStore) FindPair(ctx context.Context, a, b uint) (*models.Relationship, error) {
	low, high := models.PairKey(a, b)
	var rel models.Relationship
	err := s.locked(ctx).Where("pair_low = ? AND pair_high = ?", low, high).First(&rel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

func (s *GormRelationshipStore) FindByID(ctx context.Context, id string) (*models.Relationship, error) {
	var rel models.Relationship
	err := s.locked(ctx).Where("id = ?", id).First(&rel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

func (s *GormRelationshipStore) CreatePending(ctx context.Context, requester, addressee uint) (*models.Relationship, error) {
	rel := &models.Relationship{
		RequesterID: requester,
		AddresseeID: addressee,
		Status:      models.StatusPending,
	}
	err := s.db.WithContext(ctx).Create(rel).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, err
	}
	return rel, nil
}

func (s *GormRelationshipStore) SetStatus(ctx context.Context, id string, status models.RelationshipStatus, requester, addressee uint) error {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if requester != 0 {
		updates["requester_id"] = requester
	}
	if addressee != 0 {
		updates["addressee_id"] = addressee
	}

	result := s.db.WithContext(ctx).Model(&models.Relationship{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormRelationshipStore) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Relationship{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormRelationshipStore) CountPendingFor(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Relationship{}).
		Where("addressee_id = ? AND status = ?", userID, models.StatusPending).
		Count(&count).Error
	return count, err
}

// ListFor returns the user's relationships newest first, with both parties preloaded.
func (s *GormRelationshipStore) ListFor(ctx context.Context, userID uint, filter ListFilter, page, limit int) (Page[models.Relationship], error) {
	where := func(db *gorm.DB) *gorm.DB {
		switch filter {
		case FilterReceived:
			return db.Where("addressee_id = ? AND status = ?", userID, models.StatusPending)
		case FilterSent:
			return db.Where("requester_id = ? AND status = ?", userID, models.StatusPending)
		case FilterBlocked:
			return db.Where("requester_id = ? AND status = ?", userID, models.StatusBlocked)
		default:
			// Blocks placed by the other party stay invisible to the blocked user.
			return db.Where("(requester_id = ? OR addressee_id = ?) AND NOT (addressee_id = ? AND status = ?)",
				userID, userID, userID, models.StatusBlocked)
		}
	}
	order := func(db *gorm.DB) *gorm.DB {
		return db.Preload("Requester").Preload("Addressee").Order("created_at DESC").Order("id DESC")
	}
	return Paginate[models.Relationship](s.db.WithContext(ctx), where, page, limit, order)
}

func (s *GormRelationshipStore) Transaction(ctx context.Context, fn func(tx RelationshipStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormRelationshipStore{db: tx})
	})
}
