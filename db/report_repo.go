package db

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	errs "github.com/techagentng/findmenow/errors"
	"github.com/techagentng/findmenow/models"
	"gorm.io/gorm"
)

// reportRow is the relational shape of a report. Seq fixes insertion order.
type reportRow struct {
	Seq              uint   `gorm:"primaryKey;autoIncrement"`
	ID               string `gorm:"size:36;uniqueIndex;not null"`
	FullName         string `gorm:"not null"`
	LastSeenLocation string `gorm:"not null"`
	Description      string `gorm:"not null"`
	MissingDate      string `gorm:"size:10;not null"`
	ContactPhone     string
	Features         string
	PhotoURL         string                  `gorm:"not null"`
	CreatedAt        time.Time               `gorm:"index"`
	ModerationStatus models.ModerationStatus `gorm:"size:16;index"`
	Disposition      models.Disposition      `gorm:"size:16"`
	ReporterID       string                  `gorm:"index"`
	PoliceNotified   bool
	PoliceStation    models.PoliceStation `gorm:"embedded;embeddedPrefix:police_station_"`
	CaseReferenceID  string
}

func (reportRow) TableName() string { return "missing_persons" }

func (r *reportRow) toModel(likes []string) models.Report {
	if likes == nil {
		likes = []string{}
	}
	return models.Report{
		ID:               r.ID,
		FullName:         r.FullName,
		LastSeenLocation: r.LastSeenLocation,
		Description:      r.Description,
		MissingDate:      r.MissingDate,
		ContactPhone:     r.ContactPhone,
		Features:         r.Features,
		PhotoURL:         r.PhotoURL,
		CreatedAt:        r.CreatedAt.UTC(),
		ModerationStatus: r.ModerationStatus,
		Disposition:      r.Disposition,
		ReporterID:       r.ReporterID,
		Likes:            likes,
		PoliceNotified:   r.PoliceNotified,
		PoliceStation:    r.PoliceStation,
		CaseReferenceID:  r.CaseReferenceID,
	}
}

type commentRow struct {
	Seq        uint   `gorm:"primaryKey;autoIncrement"`
	ID         string `gorm:"size:36;uniqueIndex;not null"`
	PersonID   string `gorm:"size:36;index;not null"`
	AuthorName string `gorm:"not null"`
	Message    string `gorm:"not null"`
	CreatedAt  time.Time
}

func (commentRow) TableName() string { return "comments" }

type reportRepo struct {
	DB *gorm.DB
}

// NewReportRepo returns a moderated RecordStore backed by Postgres.
func NewReportRepo(db *GormDB) RecordStore {
	return &reportRepo{db.DB}
}

func (repo *reportRepo) CreateReport(ctx context.Context, r *models.Report) error {
	r.ID = uuid.NewString()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	// postgres keeps microseconds
	r.CreatedAt = r.CreatedAt.UTC().Truncate(time.Microsecond)

	row := reportRow{
		ID:               r.ID,
		FullName:         r.FullName,
		LastSeenLocation: r.LastSeenLocation,
		Description:      r.Description,
		MissingDate:      r.MissingDate,
		ContactPhone:     r.ContactPhone,
		Features:         r.Features,
		PhotoURL:         r.PhotoURL,
		CreatedAt:        r.CreatedAt,
		ModerationStatus: r.ModerationStatus,
		Disposition:      r.Disposition,
		ReporterID:       r.ReporterID,
		PoliceNotified:   r.PoliceNotified,
		PoliceStation:    r.PoliceStation,
		CaseReferenceID:  r.CaseReferenceID,
	}
	if err := repo.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return errors.Wrap(err, "insert report")
	}
	if r.Likes == nil {
		r.Likes = []string{}
	}
	return nil
}

var likePattern = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (repo *reportRepo) QueryReports(ctx context.Context, filter models.ReportFilter) ([]models.Report, error) {
	q := repo.DB.WithContext(ctx).Model(&reportRow{})
	switch filter.Visibility {
	case models.VisibilityApproved:
		q = q.Where("moderation_status = ?", models.StatusApproved)
	case models.VisibilityPending:
		q = q.Where("moderation_status = ?", models.StatusPending)
	case models.VisibilityOwned:
		q = q.Where("reporter_id = ?", filter.ReporterID)
	}
	if term := strings.TrimSpace(filter.Query); term != "" {
		p := "%" + likePattern.Replace(term) + "%"
		q = q.Where("full_name ILIKE ? OR last_seen_location ILIKE ? OR description ILIKE ? OR features ILIKE ?", p, p, p, p)
	}

	var rows []reportRow
	if err := q.Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "query reports")
	}

	ids := make([]string, len(rows))
	for i := range rows {
		ids[i] = rows[i].ID
	}
	likes, err := repo.likesFor(ctx, repo.DB, ids...)
	if err != nil {
		return nil, err
	}

	out := make([]models.Report, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toModel(likes[rows[i].ID]))
	}
	return out, nil
}

func (repo *reportRepo) findRow(ctx context.Context, tx *gorm.DB, id string) (*reportRow, error) {
	var row reportRow
	if err := tx.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("report", id)
		}
		return nil, errors.Wrapf(err, "get report %s", id)
	}
	return &row, nil
}

func (repo *reportRepo) GetReport(ctx context.Context, id string) (*models.Report, error) {
	row, err := repo.findRow(ctx, repo.DB, id)
	if err != nil {
		return nil, err
	}
	likes, err := repo.likesFor(ctx, repo.DB, id)
	if err != nil {
		return nil, err
	}
	r := row.toModel(likes[id])
	return &r, nil
}

func (repo *reportRepo) ReportExists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := repo.DB.WithContext(ctx).Model(&reportRow{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, errors.Wrapf(err, "count report %s", id)
	}
	return count > 0, nil
}

func (repo *reportRepo) UpdateReport(ctx context.Context, id string, update models.ReportUpdate) error {
	fields := map[string]interface{}{}
	if update.ModerationStatus != nil {
		fields["moderation_status"] = *update.ModerationStatus
	}
	if update.Disposition != nil {
		fields["disposition"] = *update.Disposition
	}
	if update.PoliceNotified != nil {
		fields["police_notified"] = *update.PoliceNotified
	}
	if update.PoliceStation != nil {
		fields["police_station_name"] = update.PoliceStation.Name
		fields["police_station_phone"] = update.PoliceStation.Phone
		fields["police_station_address"] = update.PoliceStation.Address
	}
	if update.CaseReferenceID != nil {
		fields["case_reference_id"] = *update.CaseReferenceID
	}
	if len(fields) == 0 {
		_, err := repo.findRow(ctx, repo.DB, id)
		return err
	}

	result := repo.DB.WithContext(ctx).Model(&reportRow{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return errors.Wrapf(result.Error, "update report %s", id)
	}
	if result.RowsAffected == 0 {
		return errs.NotFound("report", id)
	}
	return nil
}

func (repo *reportRepo) CreateComment(ctx context.Context, c *models.Comment) error {
	c.ID = uuid.NewString()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.CreatedAt = c.CreatedAt.UTC().Truncate(time.Microsecond)

	row := commentRow{
		ID:         c.ID,
		PersonID:   c.PersonID,
		AuthorName: c.AuthorName,
		Message:    c.Message,
		CreatedAt:  c.CreatedAt,
	}
	if err := repo.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return errors.Wrap(err, "insert comment")
	}
	return nil
}

func (repo *reportRepo) QueryComments(ctx context.Context, personID string) ([]models.Comment, error) {
	var rows []commentRow
	if err := repo.DB.WithContext(ctx).Where("person_id = ?", personID).Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrapf(err, "query comments for %s", personID)
	}
	out := make([]models.Comment, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.Comment{
			ID:         row.ID,
			PersonID:   row.PersonID,
			AuthorName: row.AuthorName,
			Message:    row.Message,
			CreatedAt:  row.CreatedAt.UTC(),
		})
	}
	return out, nil
}

func (repo *reportRepo) Moderated() bool { return true }

func (repo *reportRepo) Close() error {
	sqlDB, err := repo.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
