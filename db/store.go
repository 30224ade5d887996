package db

import (
	"context"

	"github.com/techagentng/findmenow/models"
)

// RecordStore persists reports and comments for one backend.
//
// Reports come back from QueryReports in insertion order; callers order them for display.
// Implementations must be safe for concurrent use.
type RecordStore interface {
	// CreateReport stores r, assigning ID (and CreatedAt when the backend owns the clock).
	CreateReport(ctx context.Context, r *models.Report) error
	QueryReports(ctx context.Context, filter models.ReportFilter) ([]models.Report, error)
	// UpdateReport applies the non-nil fields of update. Returns a not-found error if id is unknown.
	UpdateReport(ctx context.Context, id string, update models.ReportUpdate) error
	GetReport(ctx context.Context, id string) (*models.Report, error)
	ReportExists(ctx context.Context, id string) (bool, error)
	// ToggleLike adds or removes clientID from the report's likes atomically.
	ToggleLike(ctx context.Context, id, clientID string) (models.LikeResult, error)

	CreateComment(ctx context.Context, c *models.Comment) error
	QueryComments(ctx context.Context, personID string) ([]models.Comment, error)

	// Moderated reports whether new reports wait for an administrator before publication.
	Moderated() bool
	Close() error
}

// matchesVisibility is shared by stores that filter in process.
func matchesVisibility(r *models.Report, filter models.ReportFilter) bool {
	switch filter.Visibility {
	case models.VisibilityApproved:
		return r.ModerationStatus == models.StatusApproved
	case models.VisibilityPending:
		return r.ModerationStatus == models.StatusPending
	case models.VisibilityOwned:
		return r.ReporterID == filter.ReporterID
	default:
		return true
	}
}

func applyUpdate(r *models.Report, update models.ReportUpdate) {
	if update.ModerationStatus != nil {
		r.ModerationStatus = *update.ModerationStatus
	}
	if update.Disposition != nil {
		r.Disposition = *update.Disposition
	}
	if update.PoliceNotified != nil {
		r.PoliceNotified = *update.PoliceNotified
	}
	if update.PoliceStation != nil {
		r.PoliceStation = *update.PoliceStation
	}
	if update.CaseReferenceID != nil {
		r.CaseReferenceID = *update.CaseReferenceID
	}
}

func toggle(likes []string, clientID string) ([]string, bool) {
	for i, id := range likes {
		if id == clientID {
			return append(likes[:i:i], likes[i+1:]...), false
		}
	}
	return append(likes, clientID), true
}
