package db

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	errs "github.com/techagentng/findmenow/errors"
	"github.com/techagentng/findmenow/localstore"
	"github.com/techagentng/findmenow/models"
)

const (
	ReportsKey  = "fm_missing_persons"
	CommentsKey = "fm_comments"
)

// localStore keeps every report and comment as a JSON array under a single key each.
// It serves one user and has no moderation gate.
type localStore struct {
	storage localstore.Storage
	now     func() time.Time
	mu      sync.Mutex
}

// NewLocalStore returns an unmoderated RecordStore over storage.
func NewLocalStore(storage localstore.Storage) RecordStore {
	return &localStore{storage: storage, now: time.Now}
}

func (l *localStore) load(ctx context.Context, key string, dst interface{}) error {
	raw, ok, err := l.storage.Get(ctx, key)
	if err != nil {
		return errors.Wrapf(err, "read %s", key)
	}
	if !ok || raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return errors.Wrapf(err, "decode %s", key)
	}
	return nil
}

func (l *localStore) save(ctx context.Context, key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	if err := l.storage.Set(ctx, key, string(b)); err != nil {
		return errors.Wrapf(err, "write %s", key)
	}
	return nil
}

func (l *localStore) reports(ctx context.Context) ([]models.Report, error) {
	var reports []models.Report
	if err := l.load(ctx, ReportsKey, &reports); err != nil {
		return nil, err
	}
	for i := range reports {
		if reports[i].Likes == nil {
			reports[i].Likes = []string{}
		}
	}
	return reports, nil
}

func (l *localStore) CreateReport(ctx context.Context, r *models.Report) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	reports, err := l.reports(ctx)
	if err != nil {
		return err
	}
	r.ID = uuid.NewString()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = l.now().UTC()
	}
	if r.Likes == nil {
		r.Likes = []string{}
	}
	return l.save(ctx, ReportsKey, append(reports, *r))
}

func (l *localStore) QueryReports(ctx context.Context, filter models.ReportFilter) ([]models.Report, error) {
	l.mu.Lock()
	reports, err := l.reports(ctx)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([]models.Report, 0, len(reports))
	for i := range reports {
		if matchesVisibility(&reports[i], filter) {
			out = append(out, reports[i])
		}
	}
	return out, nil
}

func (l *localStore) GetReport(ctx context.Context, id string) (*models.Report, error) {
	l.mu.Lock()
	reports, err := l.reports(ctx)
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}
	for i := range reports {
		if reports[i].ID == id {
			return &reports[i], nil
		}
	}
	return nil, errs.NotFound("report", id)
}

func (l *localStore) ReportExists(ctx context.Context, id string) (bool, error) {
	_, err := l.GetReport(ctx, id)
	if err != nil {
		if errs.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// mutate runs fn on the report with id and writes the collection back.
func (l *localStore) mutate(ctx context.Context, id string, fn func(r *models.Report)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	reports, err := l.reports(ctx)
	if err != nil {
		return err
	}
	for i := range reports {
		if reports[i].ID == id {
			fn(&reports[i])
			return l.save(ctx, ReportsKey, reports)
		}
	}
	return errs.NotFound("report", id)
}

func (l *localStore) UpdateReport(ctx context.Context, id string, update models.ReportUpdate) error {
	return l.mutate(ctx, id, func(r *models.Report) {
		applyUpdate(r, update)
	})
}

func (l *localStore) ToggleLike(ctx context.Context, id, clientID string) (models.LikeResult, error) {
	var result models.LikeResult
	err := l.mutate(ctx, id, func(r *models.Report) {
		r.Likes, result.Liked = toggle(r.Likes, clientID)
		result.Count = len(r.Likes)
	})
	return result, err
}

func (l *localStore) CreateComment(ctx context.Context, c *models.Comment) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var comments []models.Comment
	if err := l.load(ctx, CommentsKey, &comments); err != nil {
		return err
	}
	c.ID = uuid.NewString()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = l.now().UTC()
	}
	return l.save(ctx, CommentsKey, append(comments, *c))
}

func (l *localStore) QueryComments(ctx context.Context, personID string) ([]models.Comment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var comments []models.Comment
	if err := l.load(ctx, CommentsKey, &comments); err != nil {
		return nil, err
	}
	out := make([]models.Comment, 0)
	for _, c := range comments {
		if c.PersonID == personID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (l *localStore) Moderated() bool { return false }

func (l *localStore) Close() error {
	if c, ok := l.storage.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
