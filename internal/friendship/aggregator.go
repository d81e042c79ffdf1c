package friendship

import (
	"context"

	"friendlink/backend/internal/hub"
	"friendlink/backend/internal/models"
	"friendlink/backend/internal/repository"

	"go.uber.org/zap"
)

// Publisher delivers an event to every live session of a user. Implemented by
// *hub.Hub (single instance) and *hub.RedisRelay (multiple instances).
type Publisher interface {
	Publish(ctx context.Context, userID uint, event hub.Event) error
}

// CountAggregator recomputes pending counts and pushes them to the users' sessions.
type CountAggregator struct {
	store     repository.RelationshipStore
	publisher Publisher
	logger    *zap.Logger
}

func NewCountAggregator(store repository.RelationshipStore, publisher Publisher, logger *zap.Logger) *CountAggregator {
	return &CountAggregator{store: store, publisher: publisher, logger: logger}
}

// RecomputeAndNotify queries the pending count of each user and publishes it.
// Call it only after the mutation has committed. Failures are logged: the
// push is best effort and clients recover by polling.
func (a *CountAggregator) RecomputeAndNotify(ctx context.Context, userIDs ...uint) {
	seen := make(map[uint]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, dup := seen[id]; dup || id == 0 {
			continue
		}
		seen[id] = struct{}{}

		count, err := a.store.CountPendingFor(ctx, id)
		if err != nil {
			a.logger.Error("count pending requests", zap.Uint("user_id", id), zap.Error(err))
			continue
		}
		event := hub.Event{Type: hub.EventPendingCountChanged, Payload: hub.PendingCountPayload{Count: count}}
		if err := a.publisher.Publish(ctx, id, event); err != nil {
			a.logger.Warn("publish pending count", zap.Uint("user_id", id), zap.Error(err))
		}
	}
}

// NotifyAccepted tells both parties that the request was accepted, each with
// the other's summary.
func (a *CountAggregator) NotifyAccepted(ctx context.Context, relationshipID string, requester, addressee models.User) {
	pairs := []struct {
		to     uint
		friend models.User
	}{
		{to: requester.ID, friend: addressee},
		{to: addressee.ID, friend: requester},
	}
	for _, p := range pairs {
		event := hub.Event{
			Type: hub.EventFriendAccepted,
			Payload: hub.FriendAcceptedPayload{
				RelationshipID: relationshipID,
				Friend:         Summarize(p.friend),
			},
		}
		if err := a.publisher.Publish(ctx, p.to, event); err != nil {
			a.logger.Warn("publish friend accepted", zap.Uint("user_id", p.to), zap.Error(err))
		}
	}
}

// Summarize returns the public summary of a user.
func Summarize(u models.User) hub.FriendSummary {
	return hub.FriendSummary{ID: u.ID, Name: u.Nickname, Avatar: u.AvatarURL}
}
