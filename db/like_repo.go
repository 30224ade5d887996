package db

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/techagentng/findmenow/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// likeRow records one client's like on one report.
type likeRow struct {
	ReportID  string `gorm:"primaryKey;size:36"`
	ClientID  string `gorm:"primaryKey"`
	CreatedAt time.Time
}

func (likeRow) TableName() string { return "likes" }

// likesFor loads the likes of the given reports, keyed by report id.
func (repo *reportRepo) likesFor(ctx context.Context, tx *gorm.DB, reportIDs ...string) (map[string][]string, error) {
	out := make(map[string][]string, len(reportIDs))
	if len(reportIDs) == 0 {
		return out, nil
	}

	var rows []likeRow
	if err := tx.WithContext(ctx).Where("report_id IN ?", reportIDs).Order("created_at ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "load likes")
	}
	for _, row := range rows {
		out[row.ReportID] = append(out[row.ReportID], row.ClientID)
	}
	return out, nil
}

// ToggleLike locks the report row so concurrent toggles on one report apply in sequence.
func (repo *reportRepo) ToggleLike(ctx context.Context, id, clientID string) (models.LikeResult, error) {
	var result models.LikeResult

	err := repo.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.findRow(ctx, tx.Clauses(clause.Locking{Strength: "UPDATE"}), id); err != nil {
			return err
		}

		existing := tx.Where("report_id = ? AND client_id = ?", id, clientID).Delete(&likeRow{})
		if existing.Error != nil {
			return errors.Wrap(existing.Error, "remove like")
		}
		if existing.RowsAffected == 0 {
			if err := tx.Create(&likeRow{ReportID: id, ClientID: clientID}).Error; err != nil {
				return errors.Wrap(err, "record like")
			}
			result.Liked = true
		}

		var count int64
		if err := tx.Model(&likeRow{}).Where("report_id = ?", id).Count(&count).Error; err != nil {
			return errors.Wrap(err, "count likes")
		}
		result.Count = int(count)
		return nil
	})
	if err != nil {
		return models.LikeResult{}, err
	}
	return result, nil
}
