package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"friendlink/backend/internal/models"
	"friendlink/backend/internal/repository"
	"friendlink/backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindPair_EitherDirection(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := repository.NewRelationshipStore(db)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")

	created, err := store.CreatePending(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	forward, err := store.FindPair(ctx, a.ID, b.ID)
	require.NoError(t, err)
	backward, err := store.FindPair(ctx, b.ID, a.ID)
	require.NoError(t, err)

	assert.Equal(t, created.ID, forward.ID)
	assert.Equal(t, created.ID, backward.ID)
	assert.Equal(t, b.ID, forward.RequesterID)
	assert.Equal(t, a.ID, forward.AddresseeID)
}

func TestFindPair_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := repository.NewRelationshipStore(db)

	_, err := store.FindPair(context.Background(), 1, 2)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreatePending_DuplicatePairRejected(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := repository.NewRelationshipStore(db)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")

	_, err := store.CreatePending(ctx, a.ID, b.ID)
	require.NoError(t, err)

	_, err = store.CreatePending(ctx, b.ID, a.ID)
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	var count int64
	require.NoError(t, db.Model(&models.Relationship{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestSetStatus_RewritesDirection(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := repository.NewRelationshipStore(db)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")

	rel, err := store.CreatePending(ctx, a.ID, b.ID)
	require.NoError(t, err)

	require.NoError(t, store.SetStatus(ctx, rel.ID, models.StatusBlocked, b.ID, a.ID))

	got, err := store.FindByID(ctx, rel.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusBlocked, got.Status)
	assert.Equal(t, b.ID, got.RequesterID)
	assert.Equal(t, a.ID, got.AddresseeID)
	assert.False(t, got.UpdatedAt.Before(rel.UpdatedAt))

	// Zero ids keep the direction.
	require.NoError(t, store.SetStatus(ctx, rel.ID, models.StatusAccepted, 0, 0))
	got, err = store.FindByID(ctx, rel.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.RequesterID)
}

func TestSetStatusAndDelete_MissingRow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := repository.NewRelationshipStore(db)
	ctx := context.Background()

	assert.ErrorIs(t, store.SetStatus(ctx, "missing", models.StatusAccepted, 0, 0), repository.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "missing"), repository.ErrNotFound)
}

func TestCountPendingFor(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := repository.NewRelationshipStore(db)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")
	c := testutil.CreateUser(t, db, "carol")
	d := testutil.CreateUser(t, db, "dave")

	_, err := store.CreatePending(ctx, b.ID, a.ID)
	require.NoError(t, err)
	rel, err := store.CreatePending(ctx, c.ID, a.ID)
	require.NoError(t, err)
	_, err = store.CreatePending(ctx, a.ID, d.ID)
	require.NoError(t, err)

	count, err := store.CountPendingFor(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	require.NoError(t, store.SetStatus(ctx, rel.ID, models.StatusAccepted, 0, 0))
	count, err = store.CountPendingFor(ctx, a.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	count, err = store.CountPendingFor(ctx, d.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestListFor_FiltersAndOrdering(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := repository.NewRelationshipStore(db)
	ctx := context.Background()
	me := testutil.CreateUser(t, db, "me")
	in := testutil.CreateUser(t, db, "incoming")
	out := testutil.CreateUser(t, db, "outgoing")
	friend := testutil.CreateUser(t, db, "friend")
	blockedByMe := testutil.CreateUser(t, db, "blockedbyme")
	blocker := testutil.CreateUser(t, db, "blocker")

	base := time.Now().Add(-time.Hour)
	mk := func(req, addr uint, status models.RelationshipStatus, age int) *models.Relationship {
		rel, err := store.CreatePending(ctx, req, addr)
		require.NoError(t, err)
		require.NoError(t, db.Model(&models.Relationship{}).Where("id = ?", rel.ID).
			Updates(map[string]interface{}{"status": status, "created_at": base.Add(time.Duration(age) * time.Minute)}).Error)
		return rel
	}
	relIn := mk(in.ID, me.ID, models.StatusPending, 1)
	relOut := mk(me.ID, out.ID, models.StatusPending, 2)
	relFriend := mk(friend.ID, me.ID, models.StatusAccepted, 3)
	relBlocked := mk(me.ID, blockedByMe.ID, models.StatusBlocked, 4)
	mk(blocker.ID, me.ID, models.StatusBlocked, 5)

	ids := func(p repository.Page[models.Relationship]) []string {
		out := make([]string, 0, len(p.Data))
		for _, r := range p.Data {
			out = append(out, r.ID)
		}
		return out
	}

	all, err := store.ListFor(ctx, me.ID, repository.FilterAll, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{relBlocked.ID, relFriend.ID, relOut.ID, relIn.ID}, ids(all))
	assert.EqualValues(t, 4, all.Meta.TotalItems)
	assert.Equal(t, "friend", all.Data[1].Requester.Nickname)

	received, err := store.ListFor(ctx, me.ID, repository.FilterReceived, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{relIn.ID}, ids(received))

	sent, err := store.ListFor(ctx, me.ID, repository.FilterSent, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{relOut.ID}, ids(sent))

	blocked, err := store.ListFor(ctx, me.ID, repository.FilterBlocked, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{relBlocked.ID}, ids(blocked))
	assert.Equal(t, "blockedbyme", blocked.Data[0].Addressee.Nickname)

	paged, err := store.ListFor(ctx, me.ID, repository.FilterAll, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{relIn.ID}, ids(paged))
	assert.Equal(t, 2, paged.Meta.TotalPages)
}

func TestTransaction_RollsBackOnError(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := repository.NewRelationshipStore(db)
	ctx := context.Background()
	a := testutil.CreateUser(t, db, "alice")
	b := testutil.CreateUser(t, db, "bob")

	boom := errors.New("boom")
	err := store.Transaction(ctx, func(tx repository.RelationshipStore) error {
		if _, err := tx.CreatePending(ctx, a.ID, b.ID); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.FindPair(ctx, a.ID, b.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
