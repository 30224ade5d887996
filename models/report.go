package models

import (
	"time"
)

// ModerationStatus gates public visibility of a report.
type ModerationStatus string

const (
	StatusPending  ModerationStatus = "pending"
	StatusApproved ModerationStatus = "approved"
	StatusRejected ModerationStatus = "rejected"
)

// Disposition is the outcome of a case.
type Disposition string

const (
	DispositionMissing Disposition = "missing"
	DispositionFound   Disposition = "found"
)

// AnonymousReporter marks reports submitted without a signed-in identity.
const AnonymousReporter = "anonymous"

// DateLayout is the layout of Report.MissingDate.
const DateLayout = "2006-01-02"

type PoliceStation struct {
	Name    string `json:"name" firestore:"name"`
	Phone   string `json:"phone" firestore:"phone"`
	Address string `json:"address" firestore:"address"`
}

// Report is a single missing-person case.
type Report struct {
	ID               string           `json:"id" firestore:"-"`
	FullName         string           `json:"full_name" firestore:"fullName"`
	LastSeenLocation string           `json:"last_seen_location" firestore:"lastSeenLocation"`
	Description      string           `json:"description" firestore:"description"`
	MissingDate      string           `json:"missing_date" firestore:"missingDate"`
	ContactPhone     string           `json:"contact_phone,omitempty" firestore:"contactPhone"`
	Features         string           `json:"features,omitempty" firestore:"features"`
	PhotoURL         string           `json:"photo_url" firestore:"photoURL"`
	CreatedAt        time.Time        `json:"created_at" firestore:"createdAt,serverTimestamp"`
	ModerationStatus ModerationStatus `json:"moderation_status" firestore:"moderationStatus"`
	Disposition      Disposition      `json:"disposition" firestore:"disposition"`
	ReporterID       string           `json:"reporter_id" firestore:"reporterId"`
	Likes            []string         `json:"likes" firestore:"likes"`
	PoliceNotified   bool             `json:"police_notified" firestore:"policeNotified"`
	PoliceStation    PoliceStation    `json:"police_station" firestore:"policeStation"`
	CaseReferenceID  string           `json:"case_reference_id,omitempty" firestore:"caseReferenceId"`
}

// LikeCount is the size of the likes set.
func (r *Report) LikeCount() int {
	return len(r.Likes)
}

// LikedBy reports whether clientID is in the likes set.
func (r *Report) LikedBy(clientID string) bool {
	for _, id := range r.Likes {
		if id == clientID {
			return true
		}
	}
	return false
}

// Published reports whether the report may appear in the public list.
func (r *Report) Published() bool {
	return r.ModerationStatus == StatusApproved
}

// ReportView is a Report as served over HTTP. The likes set stays private: callers see its
// size and whether their own client id is in it.
type ReportView struct {
	ID               string           `json:"id"`
	FullName         string           `json:"full_name"`
	LastSeenLocation string           `json:"last_seen_location"`
	Description      string           `json:"description"`
	MissingDate      string           `json:"missing_date"`
	ContactPhone     string           `json:"contact_phone,omitempty"`
	Features         string           `json:"features,omitempty"`
	PhotoURL         string           `json:"photo_url"`
	CreatedAt        time.Time        `json:"created_at"`
	ModerationStatus ModerationStatus `json:"moderation_status"`
	Disposition      Disposition      `json:"disposition"`
	ReporterID       string           `json:"reporter_id"`
	LikeCount        int              `json:"like_count"`
	LikedByMe        bool             `json:"liked_by_me"`
	PoliceNotified   bool             `json:"police_notified"`
	PoliceStation    PoliceStation    `json:"police_station"`
	CaseReferenceID  string           `json:"case_reference_id,omitempty"`
}

// View returns the HTTP view of r for the given client.
func (r *Report) View(clientID string) ReportView {
	return ReportView{
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
		LikeCount:        r.LikeCount(),
		LikedByMe:        clientID != "" && r.LikedBy(clientID),
		PoliceNotified:   r.PoliceNotified,
		PoliceStation:    r.PoliceStation,
		CaseReferenceID:  r.CaseReferenceID,
	}
}

func Views(reports []Report, clientID string) []ReportView {
	out := make([]ReportView, 0, len(reports))
	for i := range reports {
		out = append(out, reports[i].View(clientID))
	}
	return out
}

// ReportInput is the user-supplied part of a new report.
type ReportInput struct {
	FullName         string `json:"full_name" form:"full_name" conform:"trim" validate:"required"`
	LastSeenLocation string `json:"last_seen_location" form:"last_seen_location" conform:"trim" validate:"required"`
	Description      string `json:"description" form:"description" conform:"trim" validate:"required"`
	MissingDate      string `json:"missing_date" form:"missing_date" conform:"trim" validate:"required,missingdate"`
	ContactPhone     string `json:"contact_phone" form:"contact_phone" conform:"trim"`
	Features         string `json:"features" form:"features" conform:"trim"`
}

// ReportUpdate carries the mutable fields of a report. Nil fields are left unchanged.
type ReportUpdate struct {
	ModerationStatus *ModerationStatus
	Disposition      *Disposition
	PoliceNotified   *bool
	PoliceStation    *PoliceStation
	CaseReferenceID  *string
}

// Visibility selects which reports a listing returns.
type Visibility string

const (
	VisibilityApproved Visibility = "approved"
	VisibilityPending  Visibility = "pending"
	VisibilityOwned    Visibility = "owned"
)

// ReportFilter selects reports for ListReports.
type ReportFilter struct {
	Visibility Visibility
	ReporterID string
	Query      string
	Limit      int
}

func ApprovedOnly() ReportFilter { return ReportFilter{Visibility: VisibilityApproved} }

func PendingOnly() ReportFilter { return ReportFilter{Visibility: VisibilityPending} }

func OwnedBy(reporterID string) ReportFilter {
	return ReportFilter{Visibility: VisibilityOwned, ReporterID: reporterID}
}

// LikeResult is the state of a report's likes after a toggle.
type LikeResult struct {
	Liked bool `json:"liked"`
	Count int  `json:"count"`
}
