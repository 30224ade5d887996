package db

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "github.com/techagentng/findmenow/errors"
	"github.com/techagentng/findmenow/models"
)

// unknownID is well formed for every backend and never assigned.
const unknownID = "00000000-0000-0000-0000-000000000000"

// runStoreContract checks the RecordStore behaviour every backend shares. newStore returns
// an empty store.
func runStoreContract(t *testing.T, newStore func(t *testing.T) RecordStore) {
	base := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)

	create := func(t *testing.T, store RecordStore, r *models.Report, offset time.Duration) *models.Report {
		t.Helper()
		r.CreatedAt = base.Add(offset)
		require.NoError(t, store.CreateReport(context.Background(), r))
		require.NotEmpty(t, r.ID)
		require.False(t, r.CreatedAt.IsZero())
		return r
	}

	t.Run("CreateAndGet", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		r := newReport("Ada Obi", "u1", models.StatusPending)
		r.ContactPhone = "+2348000000"
		r.Features = "scar on left hand"
		create(t, store, r, 0)

		got, err := store.GetReport(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, r.ID, got.ID)
		assert.Equal(t, r.FullName, got.FullName)
		assert.Equal(t, r.LastSeenLocation, got.LastSeenLocation)
		assert.Equal(t, r.MissingDate, got.MissingDate)
		assert.Equal(t, r.ContactPhone, got.ContactPhone)
		assert.Equal(t, r.Features, got.Features)
		assert.Equal(t, r.PhotoURL, got.PhotoURL)
		assert.Equal(t, models.StatusPending, got.ModerationStatus)
		assert.Equal(t, models.DispositionMissing, got.Disposition)
		assert.Equal(t, "u1", got.ReporterID)
		assert.Equal(t, []string{}, got.Likes)
		assert.False(t, got.PoliceNotified)
		assert.True(t, r.CreatedAt.Equal(got.CreatedAt))

		_, err = store.GetReport(ctx, unknownID)
		assert.True(t, errs.IsNotFound(err))
	})

	t.Run("QueryVisibilityInInsertionOrder", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)

		a := create(t, store, newReport("a", "u1", models.StatusApproved), 0)
		b := create(t, store, newReport("b", "u2", models.StatusPending), time.Second)
		c := create(t, store, newReport("c", "u1", models.StatusPending), 2*time.Second)
		d := create(t, store, newReport("d", "u2", models.StatusApproved), 3*time.Second)

		ids := func(reports []models.Report) []string {
			out := make([]string, 0, len(reports))
			for _, r := range reports {
				out = append(out, r.ID)
			}
			return out
		}

		approved, err := store.QueryReports(ctx, models.ApprovedOnly())
		require.NoError(t, err)
		assert.Equal(t, []string{a.ID, d.ID}, ids(approved))

		pending, err := store.QueryReports(ctx, models.PendingOnly())
		require.NoError(t, err)
		assert.Equal(t, []string{b.ID, c.ID}, ids(pending))

		owned, err := store.QueryReports(ctx, models.OwnedBy("u1"))
		require.NoError(t, err)
		assert.Equal(t, []string{a.ID, c.ID}, ids(owned))

		none, err := store.QueryReports(ctx, models.OwnedBy("nobody"))
		require.NoError(t, err)
		assert.NotNil(t, none)
		assert.Empty(t, none)
	})

	t.Run("UpdateReport", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		r := create(t, store, newReport("Ada", "u1", models.StatusPending), 0)

		approved := models.StatusApproved
		found := models.DispositionFound
		notified := true
		station := models.PoliceStation{Name: "Yaba", Phone: "199", Address: "1 Herbert Macaulay Way"}
		caseRef := "CR-1"
		require.NoError(t, store.UpdateReport(ctx, r.ID, models.ReportUpdate{ModerationStatus: &approved}))
		require.NoError(t, store.UpdateReport(ctx, r.ID, models.ReportUpdate{
			Disposition:     &found,
			PoliceNotified:  &notified,
			PoliceStation:   &station,
			CaseReferenceID: &caseRef,
		}))

		got, err := store.GetReport(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, got.ModerationStatus)
		assert.Equal(t, models.DispositionFound, got.Disposition)
		assert.True(t, got.PoliceNotified)
		assert.Equal(t, station, got.PoliceStation)
		assert.Equal(t, "CR-1", got.CaseReferenceID)
		assert.Equal(t, "Ada", got.FullName)

		err = store.UpdateReport(ctx, unknownID, models.ReportUpdate{ModerationStatus: &approved})
		assert.True(t, errs.IsNotFound(err))
	})

	t.Run("ToggleLike", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		r := create(t, store, newReport("Ada", "u1", models.StatusApproved), 0)

		res, err := store.ToggleLike(ctx, r.ID, "clientA")
		require.NoError(t, err)
		assert.Equal(t, models.LikeResult{Liked: true, Count: 1}, res)

		res, err = store.ToggleLike(ctx, r.ID, "clientB")
		require.NoError(t, err)
		assert.Equal(t, models.LikeResult{Liked: true, Count: 2}, res)

		res, err = store.ToggleLike(ctx, r.ID, "clientA")
		require.NoError(t, err)
		assert.Equal(t, models.LikeResult{Liked: false, Count: 1}, res)

		got, err := store.GetReport(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"clientB"}, got.Likes)

		_, err = store.ToggleLike(ctx, unknownID, "clientA")
		assert.True(t, errs.IsNotFound(err))
	})

	t.Run("ConcurrentLikesFromDistinctClients", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		r := create(t, store, newReport("Ada", "u1", models.StatusApproved), 0)

		clients := []string{"a", "b", "c", "d", "e", "f"}
		var wg sync.WaitGroup
		for _, id := range clients {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, err := store.ToggleLike(ctx, r.ID, id)
				assert.NoError(t, err)
			}(id)
		}
		wg.Wait()

		got, err := store.GetReport(ctx, r.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, clients, got.Likes)
	})

	t.Run("Comments", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		r := create(t, store, newReport("Ada", "u1", models.StatusApproved), 0)
		other := create(t, store, newReport("Bola", "u2", models.StatusApproved), time.Second)

		for i, msg := range []string{"first", "second"} {
			c := &models.Comment{PersonID: r.ID, AuthorName: "Tolu", Message: msg, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
			require.NoError(t, store.CreateComment(ctx, c))
			require.NotEmpty(t, c.ID)
		}
		require.NoError(t, store.CreateComment(ctx, &models.Comment{PersonID: other.ID, AuthorName: "Ngozi", Message: "elsewhere", CreatedAt: base}))

		comments, err := store.QueryComments(ctx, r.ID)
		require.NoError(t, err)
		require.Len(t, comments, 2)
		assert.Equal(t, "first", comments[0].Message)
		assert.Equal(t, "second", comments[1].Message)
		assert.Equal(t, r.ID, comments[0].PersonID)
		assert.Equal(t, "Tolu", comments[0].AuthorName)

		empty, err := store.QueryComments(ctx, unknownID)
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})

	t.Run("ReportExists", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		r := create(t, store, newReport("Ada", "u1", models.StatusApproved), 0)

		ok, err := store.ReportExists(ctx, r.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.ReportExists(ctx, unknownID)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
