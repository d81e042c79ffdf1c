package friendship

import (
	"testing"

	"friendlink/backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	req  uint = 1 // requester of the stored row
	addr uint = 2 // addressee of the stored row
	out  uint = 3 // not a party
)

func row(status models.RelationshipStatus) *models.Relationship {
	return &models.Relationship{ID: "rel-1", RequesterID: req, AddresseeID: addr, Status: status}
}

func TestDecide_NoRow(t *testing.T) {
	effect, err := Decide(nil, req, ActionSend, addr)
	require.NoError(t, err)
	assert.Equal(t, OpCreate, effect.Op)
	assert.Equal(t, models.StatusPending, effect.Status)
	assert.Equal(t, req, effect.Requester)
	assert.Equal(t, addr, effect.Addressee)
	assert.ElementsMatch(t, []uint{req, addr}, effect.Affected)

	for _, a := range []Action{ActionAccept, ActionDecline, ActionCancel, ActionBlock, ActionUnblock} {
		_, err := Decide(nil, req, a, addr)
		assert.ErrorIs(t, err, ErrNotFound, a)
	}
}

func TestDecide_SelfAndUnknown(t *testing.T) {
	_, err := Decide(nil, req, ActionSend, req)
	assert.Equal(t, KindInvalid, KindOf(err))

	_, err = Decide(row(models.StatusPending), req, Action("poke"), addr)
	assert.Equal(t, KindInvalid, KindOf(err))
}

func TestDecide_TransitionTable(t *testing.T) {
	type want struct {
		kind      Kind // 0 = allowed
		op        Op
		status    models.RelationshipStatus
		requester uint
		addressee uint
	}
	ok := func(op Op, status models.RelationshipStatus, r, a uint) want {
		return want{op: op, status: status, requester: r, addressee: a}
	}
	no := func(k Kind) want { return want{kind: k} }

	tests := []struct {
		name   string
		status models.RelationshipStatus
		actor  uint
		action Action
		want   want
	}{
		// pending
		{"pending send by requester", models.StatusPending, req, ActionSend, no(KindConflict)},
		{"pending send by addressee", models.StatusPending, addr, ActionSend, no(KindConflict)},
		{"pending accept by addressee", models.StatusPending, addr, ActionAccept, ok(OpUpdate, models.StatusAccepted, req, addr)},
		{"pending accept by requester", models.StatusPending, req, ActionAccept, no(KindForbidden)},
		{"pending decline by addressee", models.StatusPending, addr, ActionDecline, ok(OpUpdate, models.StatusDeclined, req, addr)},
		{"pending decline by requester", models.StatusPending, req, ActionDecline, no(KindForbidden)},
		{"pending cancel by requester", models.StatusPending, req, ActionCancel, ok(OpDelete, "", req, addr)},
		{"pending cancel by addressee", models.StatusPending, addr, ActionCancel, no(KindForbidden)},
		{"pending block by requester", models.StatusPending, req, ActionBlock, ok(OpUpdate, models.StatusBlocked, req, addr)},
		{"pending block by addressee", models.StatusPending, addr, ActionBlock, ok(OpUpdate, models.StatusBlocked, addr, req)},
		{"pending unblock", models.StatusPending, req, ActionUnblock, no(KindForbidden)},

		// accepted
		{"accepted send", models.StatusAccepted, req, ActionSend, no(KindConflict)},
		{"accepted accept", models.StatusAccepted, addr, ActionAccept, no(KindForbidden)},
		{"accepted decline", models.StatusAccepted, addr, ActionDecline, no(KindForbidden)},
		{"accepted cancel", models.StatusAccepted, req, ActionCancel, no(KindForbidden)},
		{"accepted block by addressee", models.StatusAccepted, addr, ActionBlock, ok(OpUpdate, models.StatusBlocked, addr, req)},
		{"accepted block by requester", models.StatusAccepted, req, ActionBlock, ok(OpUpdate, models.StatusBlocked, req, addr)},
		{"accepted unblock", models.StatusAccepted, req, ActionUnblock, no(KindForbidden)},

		// declined
		{"declined resend by requester", models.StatusDeclined, req, ActionSend, ok(OpUpdate, models.StatusPending, req, addr)},
		{"declined send by addressee", models.StatusDeclined, addr, ActionSend, no(KindForbidden)},
		{"declined accept", models.StatusDeclined, addr, ActionAccept, no(KindForbidden)},
		{"declined decline", models.StatusDeclined, addr, ActionDecline, no(KindForbidden)},
		{"declined cancel", models.StatusDeclined, req, ActionCancel, no(KindForbidden)},
		{"declined block", models.StatusDeclined, addr, ActionBlock, ok(OpUpdate, models.StatusBlocked, addr, req)},
		{"declined unblock", models.StatusDeclined, req, ActionUnblock, no(KindForbidden)},

		// blocked
		{"blocked send by blocker", models.StatusBlocked, req, ActionSend, no(KindConflict)},
		{"blocked send by blocked", models.StatusBlocked, addr, ActionSend, no(KindConflict)},
		{"blocked accept", models.StatusBlocked, addr, ActionAccept, no(KindForbidden)},
		{"blocked decline", models.StatusBlocked, addr, ActionDecline, no(KindForbidden)},
		{"blocked cancel", models.StatusBlocked, req, ActionCancel, no(KindForbidden)},
		{"blocked block again", models.StatusBlocked, req, ActionBlock, no(KindForbidden)},
		{"blocked unblock by blocker", models.StatusBlocked, req, ActionUnblock, ok(OpDelete, "", req, addr)},
		{"blocked unblock by other party", models.StatusBlocked, addr, ActionUnblock, ok(OpDelete, "", req, addr)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rel := row(tt.status)
			other := rel.Counterpart(tt.actor)

			effect, err := Decide(rel, tt.actor, tt.action, other)
			if tt.want.kind != 0 {
				require.Error(t, err)
				assert.Equal(t, tt.want.kind, KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.op, effect.Op)
			assert.Equal(t, tt.want.status, effect.Status)
			assert.Equal(t, tt.want.requester, effect.Requester)
			assert.Equal(t, tt.want.addressee, effect.Addressee)
			assert.ElementsMatch(t, []uint{req, addr}, effect.Affected)
		})
	}
}

func TestDecide_NonPartyForbidden(t *testing.T) {
	for _, a := range []Action{ActionAccept, ActionCancel, ActionBlock, ActionUnblock} {
		_, err := Decide(row(models.StatusPending), out, a, addr)
		assert.Equal(t, KindForbidden, KindOf(err), a)
	}
}

func TestDecide_PendingConflictMessageDependsOnDirection(t *testing.T) {
	_, errReq := Decide(row(models.StatusPending), req, ActionSend, addr)
	_, errAddr := Decide(row(models.StatusPending), addr, ActionSend, req)
	assert.NotEqual(t, errReq.Error(), errAddr.Error())
}

func TestDecide_BlockedMessageHidesBlocker(t *testing.T) {
	_, byBlocker := Decide(row(models.StatusBlocked), req, ActionSend, addr)
	_, byBlocked := Decide(row(models.StatusBlocked), addr, ActionSend, req)
	assert.Equal(t, byBlocker.Error(), byBlocked.Error())
}

func TestErrorIs_MatchesKind(t *testing.T) {
	err := reject(KindConflict, "you are already friends")
	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrForbidden)
	assert.Equal(t, Kind(0), KindOf(assert.AnError))
}
