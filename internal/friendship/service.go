package friendship

import (
	"context"
	"errors"
	"fmt"
	"time"

	"friendlink/backend/internal/hub"
	"friendlink/backend/internal/models"
	"friendlink/backend/internal/repository"

	"go.uber.org/zap"
)

const (
	DirectionIncoming = "incoming"
	DirectionOutgoing = "outgoing"
)

// RelationshipView is a relationship as seen by one of its parties.
type RelationshipView struct {
	ID          string                    `json:"id"`
	Counterpart hub.FriendSummary         `json:"counterpart"`
	Status      models.RelationshipStatus `json:"status"`
	Direction   string                    `json:"direction"`
	CreatedAt   time.Time                 `json:"created_at"`
}

// Outcome reports the state of the relationship after a successful action.
type Outcome struct {
	RelationshipID string                    `json:"relationship_id"`
	Status         models.RelationshipStatus `json:"status,omitempty"`
	Deleted        bool                      `json:"deleted,omitempty"`
}

// Service runs friend actions: it validates them with Decide inside a store
// transaction and, once committed, recomputes and pushes pending counts.
type Service struct {
	store  repository.RelationshipStore
	users  repository.UserStore
	counts *CountAggregator
	logger *zap.Logger
}

func NewService(store repository.RelationshipStore, users repository.UserStore, counts *CountAggregator, logger *zap.Logger) *Service {
	return &Service{store: store, users: users, counts: counts, logger: logger}
}

// List returns the caller's relationships for filter, newest first.
func (s *Service) List(ctx context.Context, caller uint, filter repository.ListFilter, page, limit int) (repository.Page[RelationshipView], error) {
	if filter == "" {
		filter = repository.FilterAll
	}
	if !filter.Valid() {
		return repository.Page[RelationshipView]{}, reject(KindInvalid, "unknown filter")
	}

	rows, err := s.store.ListFor(ctx, caller, filter, page, limit)
	if err != nil {
		return repository.Page[RelationshipView]{}, fmt.Errorf("list relationships: %w", err)
	}

	views := make([]RelationshipView, 0, len(rows.Data))
	for _, r := range rows.Data {
		counterpart, direction := r.Addressee, DirectionOutgoing
		if r.AddresseeID == caller {
			counterpart, direction = r.Requester, DirectionIncoming
		}
		views = append(views, RelationshipView{
			ID:          r.ID,
			Counterpart: Summarize(counterpart),
			Status:      r.Status,
			Direction:   direction,
			CreatedAt:   r.CreatedAt,
		})
	}
	return repository.Page[RelationshipView]{Data: views, Meta: rows.Meta}, nil
}

// RelationshipWith returns the caller's view of their relationship with
// other, or nil when there is none. A block placed against the caller is
// reported as no relationship.
func (s *Service) RelationshipWith(ctx context.Context, caller, other uint) (*RelationshipView, error) {
	rel, err := s.store.FindPair(ctx, caller, other)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find relationship: %w", err)
	}
	if rel.Status == models.StatusBlocked && rel.AddresseeID == caller {
		return nil, nil
	}
	direction := DirectionOutgoing
	if rel.AddresseeID == caller {
		direction = DirectionIncoming
	}
	return &RelationshipView{
		ID:        rel.ID,
		Status:    rel.Status,
		Direction: direction,
		CreatedAt: rel.CreatedAt,
	}, nil
}

// PendingCount returns the number of requests waiting for the caller.
func (s *Service) PendingCount(ctx context.Context, caller uint) (int64, error) {
	count, err := s.store.CountPendingFor(ctx, caller)
	if err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	return count, nil
}

// SendRequest sends (or, after a decline, re-sends) a friend request from
// caller to target. When two users race to request each other, exactly one
// row is written and the loser gets a Conflict.
func (s *Service) SendRequest(ctx context.Context, caller, target uint) (*Outcome, error) {
	if caller == target {
		return nil, reject(KindInvalid, "cannot send a friend request to yourself")
	}
	if _, err := s.users.FindByID(ctx, target); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, reject(KindNotFound, "user not found")
		}
		return nil, fmt.Errorf("load target user: %w", err)
	}

	var effect Effect
	var outcome *Outcome
	err := s.store.Transaction(ctx, func(tx repository.RelationshipStore) error {
		rel, err := tx.FindPair(ctx, caller, target)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		effect, err = Decide(rel, caller, ActionSend, target)
		if err != nil {
			return err
		}
		outcome, err = apply(ctx, tx, rel, effect)
		return err
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, reject(KindConflict, "a friend request between you already exists")
	}
	if err != nil {
		return nil, wrapInternal("send request", err)
	}

	s.logger.Debug("friend request sent", zap.Uint("from", caller), zap.Uint("to", target),
		zap.String("relationship_id", outcome.RelationshipID))
	s.counts.RecomputeAndNotify(ctx, effect.Affected...)
	return outcome, nil
}

// Respond applies accept, decline, cancel, block or unblock to the
// relationship with the given id.
func (s *Service) Respond(ctx context.Context, caller uint, relationshipID string, action Action) (*Outcome, error) {
	if !action.Valid() || action == ActionSend {
		return nil, reject(KindInvalid, "unknown action")
	}

	var effect Effect
	var outcome *Outcome
	var relID string
	err := s.store.Transaction(ctx, func(tx repository.RelationshipStore) error {
		rel, err := tx.FindByID(ctx, relationshipID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		// Non-parties cannot tell the row exists.
		if !rel.Involves(caller) {
			return ErrNotFound
		}
		relID = rel.ID

		effect, err = Decide(rel, caller, action, rel.Counterpart(caller))
		if err != nil {
			return err
		}
		outcome, err = apply(ctx, tx, rel, effect)
		return err
	})
	if err != nil {
		return nil, wrapInternal(string(action), err)
	}

	s.logger.Debug("friend request updated", zap.Uint("user_id", caller),
		zap.String("action", string(action)), zap.String("relationship_id", relID))
	s.counts.RecomputeAndNotify(ctx, effect.Affected...)
	if action == ActionAccept {
		s.notifyAccepted(ctx, relID, effect.Requester, effect.Addressee)
	}
	return outcome, nil
}

func (s *Service) notifyAccepted(ctx context.Context, relID string, requesterID, addresseeID uint) {
	requester, err := s.users.FindByID(ctx, requesterID)
	if err != nil {
		s.logger.Warn("load requester for accept event", zap.Uint("user_id", requesterID), zap.Error(err))
		return
	}
	addressee, err := s.users.FindByID(ctx, addresseeID)
	if err != nil {
		s.logger.Warn("load addressee for accept event", zap.Uint("user_id", addresseeID), zap.Error(err))
		return
	}
	s.counts.NotifyAccepted(ctx, relID, *requester, *addressee)
}

func apply(ctx context.Context, tx repository.RelationshipStore, rel *models.Relationship, effect Effect) (*Outcome, error) {
	switch effect.Op {
	case OpCreate:
		created, err := tx.CreatePending(ctx, effect.Requester, effect.Addressee)
		if err != nil {
			return nil, err
		}
		return &Outcome{RelationshipID: created.ID, Status: created.Status}, nil
	case OpUpdate:
		if err := tx.SetStatus(ctx, rel.ID, effect.Status, effect.Requester, effect.Addressee); err != nil {
			return nil, err
		}
		return &Outcome{RelationshipID: rel.ID, Status: effect.Status}, nil
	case OpDelete:
		if err := tx.Delete(ctx, rel.ID); err != nil {
			return nil, err
		}
		return &Outcome{RelationshipID: rel.ID, Deleted: true}, nil
	}
	return nil, fmt.Errorf("unknown effect op %d", effect.Op)
}

// wrapInternal passes rejections through untouched and annotates everything else.
func wrapInternal(op string, err error) error {
	if KindOf(err) != 0 {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
