package db

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/pkg/errors"
	errs "github.com/techagentng/findmenow/errors"
	"github.com/techagentng/findmenow/models"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ReportsCollection  = "missingPersons"
	CommentsCollection = "comments"
)

type firestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore returns a moderated RecordStore over a Firestore client.
func NewFirestoreStore(client *firestore.Client) RecordStore {
	return &firestoreStore{client: client}
}

func (f *firestoreStore) reports() *firestore.CollectionRef {
	return f.client.Collection(ReportsCollection)
}

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func (f *firestoreStore) CreateReport(ctx context.Context, r *models.Report) error {
	if r.Likes == nil {
		r.Likes = []string{}
	}
	// zero so the serverTimestamp tag applies
	r.CreatedAt = time.Time{}
	ref, wr, err := f.reports().Add(ctx, r)
	if err != nil {
		return errors.Wrap(err, "add report")
	}
	r.ID = ref.ID
	r.CreatedAt = wr.UpdateTime
	return nil
}

func (f *firestoreStore) QueryReports(ctx context.Context, filter models.ReportFilter) ([]models.Report, error) {
	q := f.reports().Query
	switch filter.Visibility {
	case models.VisibilityApproved:
		q = q.Where("moderationStatus", "==", string(models.StatusApproved))
	case models.VisibilityPending:
		q = q.Where("moderationStatus", "==", string(models.StatusPending))
	case models.VisibilityOwned:
		q = q.Where("reporterId", "==", filter.ReporterID)
	}
	q = q.OrderBy("createdAt", firestore.Asc).OrderBy(firestore.DocumentID, firestore.Asc)

	iter := q.Documents(ctx)
	defer iter.Stop()

	out := make([]models.Report, 0)
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "query reports")
		}
		r, err := decodeReport(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, nil
}

func decodeReport(snap *firestore.DocumentSnapshot) (*models.Report, error) {
	var r models.Report
	if err := snap.DataTo(&r); err != nil {
		return nil, errors.Wrapf(err, "decode report %s", snap.Ref.ID)
	}
	r.ID = snap.Ref.ID
	if r.Likes == nil {
		r.Likes = []string{}
	}
	return &r, nil
}

func (f *firestoreStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	snap, err := f.reports().Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, errs.NotFound("report", id)
		}
		return nil, errors.Wrapf(err, "get report %s", id)
	}
	return decodeReport(snap)
}

func (f *firestoreStore) ReportExists(ctx context.Context, id string) (bool, error) {
	_, err := f.reports().Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "get report %s", id)
	}
	return true, nil
}

func (f *firestoreStore) UpdateReport(ctx context.Context, id string, update models.ReportUpdate) error {
	var updates []firestore.Update
	if update.ModerationStatus != nil {
		updates = append(updates, firestore.Update{Path: "moderationStatus", Value: string(*update.ModerationStatus)})
	}
	if update.Disposition != nil {
		updates = append(updates, firestore.Update{Path: "disposition", Value: string(*update.Disposition)})
	}
	if update.PoliceNotified != nil {
		updates = append(updates, firestore.Update{Path: "policeNotified", Value: *update.PoliceNotified})
	}
	if update.PoliceStation != nil {
		updates = append(updates, firestore.Update{Path: "policeStation", Value: *update.PoliceStation})
	}
	if update.CaseReferenceID != nil {
		updates = append(updates, firestore.Update{Path: "caseReferenceId", Value: *update.CaseReferenceID})
	}
	if len(updates) == 0 {
		return nil
	}

	if _, err := f.reports().Doc(id).Update(ctx, updates); err != nil {
		if isNotFound(err) {
			return errs.NotFound("report", id)
		}
		return errors.Wrapf(err, "update report %s", id)
	}
	return nil
}

// likeAttempts bounds retries when toggles on one report contend.
const likeAttempts = 10

func (f *firestoreStore) ToggleLike(ctx context.Context, id, clientID string) (models.LikeResult, error) {
	doc := f.reports().Doc(id)
	var result models.LikeResult

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(doc)
		if err != nil {
			return err
		}
		r, err := decodeReport(snap)
		if err != nil {
			return err
		}

		if r.LikedBy(clientID) {
			result = models.LikeResult{Liked: false, Count: r.LikeCount() - 1}
			return tx.Update(doc, []firestore.Update{{Path: "likes", Value: firestore.ArrayRemove(clientID)}})
		}
		result = models.LikeResult{Liked: true, Count: r.LikeCount() + 1}
		return tx.Update(doc, []firestore.Update{{Path: "likes", Value: firestore.ArrayUnion(clientID)}})
	}, firestore.MaxAttempts(likeAttempts))
	if err != nil {
		if isNotFound(err) {
			return models.LikeResult{}, errs.NotFound("report", id)
		}
		return models.LikeResult{}, errors.Wrapf(err, "toggle like on %s", id)
	}
	return result, nil
}

func (f *firestoreStore) CreateComment(ctx context.Context, c *models.Comment) error {
	c.CreatedAt = time.Time{}
	ref, wr, err := f.client.Collection(CommentsCollection).Add(ctx, c)
	if err != nil {
		return errors.Wrap(err, "add comment")
	}
	c.ID = ref.ID
	c.CreatedAt = wr.UpdateTime
	return nil
}

func (f *firestoreStore) QueryComments(ctx context.Context, personID string) ([]models.Comment, error) {
	docs, err := f.client.Collection(CommentsCollection).
		Where("personId", "==", personID).
		OrderBy("createdAt", firestore.Asc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Wrapf(err, "query comments for %s", personID)
	}

	out := make([]models.Comment, 0, len(docs))
	for _, snap := range docs {
		var c models.Comment
		if err := snap.DataTo(&c); err != nil {
			return nil, errors.Wrapf(err, "decode comment %s", snap.Ref.ID)
		}
		c.ID = snap.Ref.ID
		out = append(out, c)
	}
	return out, nil
}

func (f *firestoreStore) Moderated() bool { return true }

func (f *firestoreStore) Close() error {
	return f.client.Close()
}
