package friendship

import "friendlink/backend/internal/models"

// Action is something a party asks to do to a relationship.
type Action string

const (
	ActionSend    Action = "send"
	ActionAccept  Action = "accept"
	ActionDecline Action = "decline"
	ActionCancel  Action = "cancel"
	ActionBlock   Action = "block"
	ActionUnblock Action = "unblock"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionSend, ActionAccept, ActionDecline, ActionCancel, ActionBlock, ActionUnblock:
		return true
	}
	return false
}

// Op is the store mutation an Effect asks for.
type Op int

const (
	OpCreate Op = iota + 1
	OpUpdate
	OpDelete
)

// Effect describes the mutation Decide allows. For OpCreate and OpUpdate,
// Status/Requester/Addressee give the row's state after the mutation.
// Affected lists the parties whose pending count must be recomputed.
type Effect struct {
	Op        Op
	Status    models.RelationshipStatus
	Requester uint
	Addressee uint
	Affected  []uint
}

// Decide maps the current row (nil when the pair has none), the acting party,
// the requested action and the other party to an Effect or a rejection.
// It performs no I/O.
func Decide(rel *models.Relationship, actor uint, action Action, other uint) (Effect, error) {
	if actor == 0 || other == 0 {
		return Effect{}, reject(KindInvalid, "missing user")
	}
	if actor == other {
		return Effect{}, reject(KindInvalid, "cannot send a friend request to yourself")
	}
	if !action.Valid() {
		return Effect{}, reject(KindInvalid, "unknown action")
	}

	if rel == nil {
		if action != ActionSend {
			return Effect{}, ErrNotFound
		}
		return Effect{
			Op:        OpCreate,
			Status:    models.StatusPending,
			Requester: actor,
			Addressee: other,
			Affected:  []uint{actor, other},
		}, nil
	}

	if !rel.Involves(actor) || !rel.Involves(other) {
		return Effect{}, reject(KindForbidden, "not a party to this relationship")
	}

	switch rel.Status {
	case models.StatusPending:
		return decidePending(rel, actor, action, other)
	case models.StatusAccepted:
		return decideAccepted(rel, actor, action, other)
	case models.StatusDeclined:
		return decideDeclined(rel, actor, action, other)
	case models.StatusBlocked:
		return decideBlocked(rel, action)
	}
	return Effect{}, reject(KindConflict, "relationship is in an unknown state")
}

func decidePending(rel *models.Relationship, actor uint, action Action, other uint) (Effect, error) {
	switch action {
	case ActionSend:
		if actor == rel.RequesterID {
			return Effect{}, reject(KindConflict, "friend request already sent")
		}
		return Effect{}, reject(KindConflict, "this user has already sent you a friend request")
	case ActionAccept:
		if actor != rel.AddresseeID {
			return Effect{}, reject(KindForbidden, "only the recipient can accept a friend request")
		}
		return update(models.StatusAccepted, rel.RequesterID, rel.AddresseeID), nil
	case ActionDecline:
		if actor != rel.AddresseeID {
			return Effect{}, reject(KindForbidden, "only the recipient can decline a friend request")
		}
		return update(models.StatusDeclined, rel.RequesterID, rel.AddresseeID), nil
	case ActionCancel:
		if actor != rel.RequesterID {
			return Effect{}, reject(KindForbidden, "only the sender can cancel a friend request")
		}
		return remove(rel), nil
	case ActionBlock:
		return update(models.StatusBlocked, actor, other), nil
	}
	return Effect{}, reject(KindForbidden, "nothing to unblock")
}

func decideAccepted(rel *models.Relationship, actor uint, action Action, other uint) (Effect, error) {
	switch action {
	case ActionSend:
		return Effect{}, reject(KindConflict, "you are already friends")
	case ActionBlock:
		return update(models.StatusBlocked, actor, other), nil
	}
	return Effect{}, reject(KindForbidden, "not allowed for friends")
}

func decideDeclined(rel *models.Relationship, actor uint, action Action, other uint) (Effect, error) {
	switch action {
	case ActionSend:
		if actor != rel.RequesterID {
			return Effect{}, reject(KindForbidden, "cannot send a friend request to this user")
		}
		return update(models.StatusPending, actor, other), nil
	case ActionBlock:
		return update(models.StatusBlocked, actor, other), nil
	}
	return Effect{}, reject(KindForbidden, "friend request was declined")
}

func decideBlocked(rel *models.Relationship, action Action) (Effect, error) {
	switch action {
	case ActionSend:
		return Effect{}, reject(KindConflict, "cannot send a friend request to this user")
	case ActionBlock:
		return Effect{}, reject(KindForbidden, "already blocked")
	case ActionUnblock:
		return remove(rel), nil
	}
	return Effect{}, reject(KindForbidden, "not allowed while blocked")
}

func update(status models.RelationshipStatus, requester, addressee uint) Effect {
	return Effect{
		Op:        OpUpdate,
		Status:    status,
		Requester: requester,
		Addressee: addressee,
		Affected:  []uint{requester, addressee},
	}
}

func remove(rel *models.Relationship) Effect {
	return Effect{
		Op:        OpDelete,
		Requester: rel.RequesterID,
		Addressee: rel.AddresseeID,
		Affected:  []uint{rel.RequesterID, rel.AddresseeID},
	}
}
