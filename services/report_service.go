package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/techagentng/findmenow/config"
	"github.com/techagentng/findmenow/db"
	errs "github.com/techagentng/findmenow/errors"
	"github.com/techagentng/findmenow/logger"
	"github.com/techagentng/findmenow/metrics"
	"github.com/techagentng/findmenow/models"
)

// ReportService is the report lifecycle: submission, listing, moderation, police notification,
// disposition, likes and comments. It behaves the same over every RecordStore.
type ReportService interface {
	SubmitReport(ctx context.Context, input models.ReportInput, photo []byte, reporterID string) (string, error)
	ListReports(ctx context.Context, filter models.ReportFilter) ([]models.Report, error)
	GetReport(ctx context.Context, id string) (*models.Report, error)
	SetModerationStatus(ctx context.Context, id string, status models.ModerationStatus) error
	RecordPoliceNotification(ctx context.Context, id string, station models.PoliceStation, caseReferenceID string) error
	SetDisposition(ctx context.Context, id string, disposition models.Disposition) error
	ToggleLike(ctx context.Context, id, clientID string) (models.LikeResult, error)
	AddComment(ctx context.Context, personID, authorName, message string) (string, error)
	ListComments(ctx context.Context, personID string) ([]models.Comment, error)
	ShareText(ctx context.Context, id string) (string, error)
	Moderated() bool
}

type reportService struct {
	Config    *config.Config
	store     db.RecordStore
	blobs     db.BlobStore
	notifier  Notifier
	validator *Validator
	log       *logrus.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

type ReportOption func(*reportService)

func WithLogger(log *logrus.Logger) ReportOption {
	return func(s *reportService) { s.log = log }
}

func WithMetrics(m *metrics.Metrics) ReportOption {
	return func(s *reportService) { s.metrics = m }
}

// WithClock replaces the clock used for creation times and the missing-date check.
func WithClock(now func() time.Time) ReportOption {
	return func(s *reportService) { s.now = now }
}

// NewReportService instantiates a ReportService over the configured store.
func NewReportService(store db.RecordStore, blobs db.BlobStore, notifier Notifier, conf *config.Config, opts ...ReportOption) ReportService {
	s := &reportService{
		Config:   conf,
		store:    store,
		blobs:    blobs,
		notifier: notifier,
		log:      logger.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = noopNotifier{}
	}
	s.validator = NewValidator(func() time.Time { return s.now() })
	return s
}

func (s *reportService) Moderated() bool {
	return s.store.Moderated()
}

// persistenceErr keeps typed errors from the store and wraps the rest.
func persistenceErr(err error) error {
	var e *errs.Error
	if stderrors.As(err, &e) {
		return e
	}
	return errs.Persistence(err)
}

func (s *reportService) SubmitReport(ctx context.Context, input models.ReportInput, photo []byte, reporterID string) (string, error) {
	fields := map[string]string{}
	if err := s.validator.Struct(&input); err != nil {
		e, ok := err.(*errs.Error)
		if !ok {
			return "", err
		}
		for k, v := range e.Fields {
			fields[k] = v
		}
	}
	contentType, problem := checkPhoto(photo, s.Config.MaxPhotoBytes)
	if problem != "" {
		fields["photo"] = problem
	}
	if len(fields) > 0 {
		s.metrics.ReportSubmitted("invalid")
		return "", errs.Validation(fields)
	}

	log := s.log.WithField("backend", s.Config.Backend)

	photoURL, err := s.blobs.Upload(ctx, photo, contentType)
	if err != nil {
		log.WithError(err).Error("photo upload failed")
		s.metrics.ReportSubmitted("storage_error")
		return "", errs.Storage(err)
	}

	if strings.TrimSpace(reporterID) == "" {
		reporterID = models.AnonymousReporter
	}
	status := models.StatusApproved
	if s.store.Moderated() {
		status = models.StatusPending
	}

	r := &models.Report{
		FullName:         input.FullName,
		LastSeenLocation: input.LastSeenLocation,
		Description:      input.Description,
		MissingDate:      input.MissingDate,
		ContactPhone:     input.ContactPhone,
		Features:         input.Features,
		PhotoURL:         photoURL,
		CreatedAt:        s.now().UTC(),
		ModerationStatus: status,
		Disposition:      models.DispositionMissing,
		ReporterID:       reporterID,
		Likes:            []string{},
	}
	if err := s.store.CreateReport(ctx, r); err != nil {
		// the uploaded photo stays in the blob store unreferenced
		log.WithError(err).WithField("photo_url", photoURL).Error("saving report failed")
		s.metrics.ReportSubmitted("persistence_error")
		return "", errs.Persistence(err)
	}
	log.WithField("report_id", r.ID).Info("report submitted")
	s.metrics.ReportSubmitted("ok")

	if r.ModerationStatus == models.StatusPending {
		if err := s.notifier.ReportPending(ctx, r); err != nil {
			log.WithError(err).WithField("report_id", r.ID).Warn("moderator notification failed")
			s.metrics.NotificationFailed()
		}
	}
	return r.ID, nil
}

func (s *reportService) ListReports(ctx context.Context, filter models.ReportFilter) ([]models.Report, error) {
	if filter.Visibility == models.VisibilityOwned && filter.ReporterID == "" {
		return nil, errs.InvalidField("reporter_id", "reporter_id is required for owned reports")
	}
	reports, err := s.store.QueryReports(ctx, filter)
	if err != nil {
		return nil, persistenceErr(err)
	}

	out := make([]models.Report, 0, len(reports))
	for i := range reports {
		if matchesQuery(&reports[i], filter.Query) {
			out = append(out, reports[i])
		}
	}
	// stores return insertion order, so a stable sort keeps ties in that order
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// matchesQuery is a case-insensitive substring match over the searchable text fields.
func matchesQuery(r *models.Report, query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	for _, field := range []string{r.FullName, r.LastSeenLocation, r.Description, r.Features} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func (s *reportService) GetReport(ctx context.Context, id string) (*models.Report, error) {
	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, persistenceErr(err)
	}
	return r, nil
}

func (s *reportService) SetModerationStatus(ctx context.Context, id string, status models.ModerationStatus) error {
	if status != models.StatusApproved && status != models.StatusRejected {
		return errs.InvalidField("status", "status must be approved or rejected")
	}
	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return persistenceErr(err)
	}
	if r.ModerationStatus == status {
		return nil
	}
	if r.ModerationStatus != models.StatusPending {
		return errs.InvalidField("status", fmt.Sprintf("report is already %s", r.ModerationStatus))
	}

	if err := s.store.UpdateReport(ctx, id, models.ReportUpdate{ModerationStatus: &status}); err != nil {
		return persistenceErr(err)
	}
	s.log.WithFields(logrus.Fields{"report_id": id, "status": status}).Info("moderation status set")
	s.metrics.Moderated(string(status))
	return nil
}

func (s *reportService) RecordPoliceNotification(ctx context.Context, id string, station models.PoliceStation, caseReferenceID string) error {
	station.Name = strings.TrimSpace(station.Name)
	station.Phone = strings.TrimSpace(station.Phone)
	station.Address = strings.TrimSpace(station.Address)
	caseReferenceID = strings.TrimSpace(caseReferenceID)

	fields := map[string]string{}
	if station.Name == "" {
		fields["name"] = "name is a required field"
	}
	if station.Phone == "" {
		fields["phone"] = "phone is a required field"
	}
	if len(fields) > 0 {
		return errs.Validation(fields)
	}

	notified := true
	update := models.ReportUpdate{
		PoliceNotified:  &notified,
		PoliceStation:   &station,
		CaseReferenceID: &caseReferenceID,
	}
	if err := s.store.UpdateReport(ctx, id, update); err != nil {
		return persistenceErr(err)
	}
	s.log.WithField("report_id", id).Info("police notification recorded")
	return nil
}

func (s *reportService) SetDisposition(ctx context.Context, id string, disposition models.Disposition) error {
	if disposition != models.DispositionMissing && disposition != models.DispositionFound {
		return errs.InvalidField("disposition", "disposition must be missing or found")
	}
	if err := s.store.UpdateReport(ctx, id, models.ReportUpdate{Disposition: &disposition}); err != nil {
		return persistenceErr(err)
	}
	s.log.WithFields(logrus.Fields{"report_id": id, "disposition": disposition}).Info("disposition set")
	return nil
}

func (s *reportService) ToggleLike(ctx context.Context, id, clientID string) (models.LikeResult, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return models.LikeResult{}, errs.InvalidField("client_id", "client_id is required")
	}
	res, err := s.store.ToggleLike(ctx, id, clientID)
	if err != nil {
		return models.LikeResult{}, persistenceErr(err)
	}
	s.metrics.LikeToggled(res.Liked)
	return res, nil
}

func (s *reportService) AddComment(ctx context.Context, personID, authorName, message string) (string, error) {
	input := models.CommentInput{AuthorName: authorName, Message: message}
	if err := s.validator.Struct(&input); err != nil {
		return "", err
	}

	exists, err := s.store.ReportExists(ctx, personID)
	if err != nil {
		return "", persistenceErr(err)
	}
	if !exists {
		return "", errs.NotFound("report", personID)
	}

	c := &models.Comment{
		PersonID:   personID,
		AuthorName: input.AuthorName,
		Message:    input.Message,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.CreateComment(ctx, c); err != nil {
		return "", persistenceErr(err)
	}
	s.metrics.CommentAdded()
	return c.ID, nil
}

func (s *reportService) ListComments(ctx context.Context, personID string) ([]models.Comment, error) {
	comments, err := s.store.QueryComments(ctx, personID)
	if err != nil {
		return nil, persistenceErr(err)
	}
	out := make([]models.Comment, len(comments))
	copy(out, comments)
	// newest first; ties keep reverse insertion order
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *reportService) ShareText(ctx context.Context, id string) (string, error) {
	r, err := s.GetReport(ctx, id)
	if err != nil {
		return "", err
	}
	return shareText(r), nil
}

func shareText(r *models.Report) string {
	return fmt.Sprintf("Missing: %s\nLast seen: %s\nDate: %s", r.FullName, r.LastSeenLocation, r.MissingDate)
}
