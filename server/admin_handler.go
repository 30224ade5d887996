package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	errs "github.com/techagentng/findmenow/errors"
	"github.com/techagentng/findmenow/models"
	"github.com/techagentng/findmenow/server/response"
)

func (s *Server) handlePendingReports() gin.HandlerFunc {
	return func(c *gin.Context) {
		reports, err := s.ReportService.ListReports(c.Request.Context(), models.PendingOnly())
		if err != nil {
			s.respondError(c, err)
			return
		}
		response.JSON(c, "pending reports retrieved successfully", http.StatusOK, models.Views(reports, clientID(c)), nil)
	}
}

func (s *Server) handleSetModeration() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.ModerationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, errs.InvalidField("status", "status is a required field"))
			return
		}

		id := c.Param("id")
		if err := s.ReportService.SetModerationStatus(c.Request.Context(), id, req.Status); err != nil {
			s.respondError(c, err)
			return
		}
		s.Log.WithField("report_id", id).WithField("moderator", currentIdentity(c).ID).Info("report moderated")
		response.JSON(c, "moderation status updated", http.StatusOK, gin.H{"id": id, "moderation_status": req.Status}, nil)
	}
}

func (s *Server) handleRecordPoliceNotification() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.PoliceNotificationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, errs.New("unable to parse request body", http.StatusBadRequest))
			return
		}

		id := c.Param("id")
		station := models.PoliceStation{Name: req.Name, Phone: req.Phone, Address: req.Address}
		if err := s.ReportService.RecordPoliceNotification(c.Request.Context(), id, station, req.CaseReferenceID); err != nil {
			s.respondError(c, err)
			return
		}
		response.JSON(c, "police notification recorded", http.StatusOK, gin.H{"id": id, "police_notified": true}, nil)
	}
}

func (s *Server) handleSetDisposition() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.DispositionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, errs.InvalidField("disposition", "disposition is a required field"))
			return
		}

		id := c.Param("id")
		if err := s.ReportService.SetDisposition(c.Request.Context(), id, req.Disposition); err != nil {
			s.respondError(c, err)
			return
		}
		response.JSON(c, "disposition updated", http.StatusOK, gin.H{"id": id, "disposition": req.Disposition}, nil)
	}
}
