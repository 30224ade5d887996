package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	errs "github.com/techagentng/findmenow/errors"
	"github.com/techagentng/findmenow/models"
	"github.com/techagentng/findmenow/server/response"
)

const (
	maxListLimit = 200
	// room for the text fields and multipart framing around the photo
	maxFormOverhead = 64 << 10
)

var errBodyTooLarge = errs.New("request body too large", http.StatusRequestEntityTooLarge)

func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}

func (s *Server) handleListReports() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := models.ApprovedOnly()
		filter.Query = c.Query("q")

		if raw := c.Query("limit"); raw != "" {
			limit, err := strconv.Atoi(raw)
			if err != nil || limit < 1 || limit > maxListLimit {
				response.JSON(c, "", http.StatusBadRequest, nil, errs.InvalidField("limit", "limit must be between 1 and 200"))
				return
			}
			filter.Limit = limit
		}

		reports, err := s.ReportService.ListReports(c.Request.Context(), filter)
		if err != nil {
			s.respondError(c, err)
			return
		}
		response.JSON(c, "reports retrieved successfully", http.StatusOK, models.Views(reports, clientID(c)), nil)
	}
}

func (s *Server) handleMyReports() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := currentIdentity(c)
		reports, err := s.ReportService.ListReports(c.Request.Context(), models.OwnedBy(user.ID))
		if err != nil {
			s.respondError(c, err)
			return
		}
		response.JSON(c, "reports retrieved successfully", http.StatusOK, models.Views(reports, clientID(c)), nil)
	}
}

// visibleReport loads a report the caller may see: published, their own, or any for an admin.
// Anything else is reported as not found.
func (s *Server) visibleReport(c *gin.Context) (*models.Report, bool) {
	id := c.Param("id")
	r, err := s.ReportService.GetReport(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return nil, false
	}
	if r.Published() {
		return r, true
	}
	if user := currentIdentity(c); user != nil && (user.Admin || user.ID == r.ReporterID) {
		return r, true
	}
	s.respondError(c, errs.NotFound("report", id))
	return nil, false
}

func (s *Server) handleGetReport() gin.HandlerFunc {
	return func(c *gin.Context) {
		r, ok := s.visibleReport(c)
		if !ok {
			return
		}
		response.JSON(c, "report retrieved successfully", http.StatusOK, r.View(clientID(c)), nil)
	}
}

func (s *Server) handleShareReport() gin.HandlerFunc {
	return func(c *gin.Context) {
		r, ok := s.visibleReport(c)
		if !ok {
			return
		}
		text, err := s.ReportService.ShareText(c.Request.Context(), r.ID)
		if err != nil {
			s.respondError(c, err)
			return
		}
		response.JSON(c, "share text generated", http.StatusOK, gin.H{"text": text}, nil)
	}
}

func (s *Server) handleSubmitReport() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := s.Config.MaxPhotoBytes + maxFormOverhead
		if c.Request.ContentLength > limit {
			response.JSON(c, "", http.StatusRequestEntityTooLarge, nil, errBodyTooLarge)
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

		var input models.ReportInput
		if err := c.ShouldBind(&input); err != nil {
			if isBodyTooLarge(err) {
				response.JSON(c, "", http.StatusRequestEntityTooLarge, nil, errBodyTooLarge)
				return
			}
			response.JSON(c, "", http.StatusBadRequest, nil, errs.New("unable to parse form", http.StatusBadRequest))
			return
		}

		photo, err := readPhoto(c, s.Config.MaxPhotoBytes)
		if err != nil {
			s.respondError(c, err)
			return
		}

		reporterID := ""
		if user := currentIdentity(c); user != nil {
			reporterID = user.ID
		}

		// the upload and write run to completion even if the client goes away
		ctx := context.WithoutCancel(c.Request.Context())
		id, err := s.ReportService.SubmitReport(ctx, input, photo, reporterID)
		if err != nil {
			s.respondError(c, err)
			return
		}

		status := models.StatusApproved
		if s.ReportService.Moderated() {
			status = models.StatusPending
		}
		response.JSON(c, "report submitted successfully", http.StatusCreated, gin.H{"id": id, "moderation_status": status}, nil)
	}
}

// readPhoto returns the uploaded photo, or nil when none was sent. It reads at most
// maxBytes+1 bytes so oversized files are rejected by validation without buffering them whole.
func readPhoto(c *gin.Context, maxBytes int64) ([]byte, error) {
	fileHeader, err := c.FormFile("photo")
	if err != nil {
		if err == http.ErrMissingFile || err == http.ErrNotMultipart {
			return nil, nil
		}
		if isBodyTooLarge(err) {
			return nil, errBodyTooLarge
		}
		return nil, errs.New("unable to read photo", http.StatusBadRequest)
	}
	if fileHeader.Size > maxBytes {
		return nil, errs.InvalidField("photo", "photo must be at most "+strconv.FormatInt(maxBytes>>20, 10)+" MB")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return nil, errs.New("unable to read photo", http.StatusBadRequest)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, errs.New("unable to read photo", http.StatusBadRequest)
	}
	return data, nil
}
