package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	errs "github.com/techagentng/findmenow/errors"
	"github.com/techagentng/findmenow/models"
	"github.com/techagentng/findmenow/server/response"
)

func (s *Server) handleListComments() gin.HandlerFunc {
	return func(c *gin.Context) {
		r, ok := s.visibleReport(c)
		if !ok {
			return
		}
		comments, err := s.ReportService.ListComments(c.Request.Context(), r.ID)
		if err != nil {
			s.respondError(c, err)
			return
		}
		response.JSON(c, "comments retrieved successfully", http.StatusOK, comments, nil)
	}
}

func (s *Server) handleAddComment() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.CommentInput
		if err := c.ShouldBindJSON(&input); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, errs.New("unable to parse request body", http.StatusBadRequest))
			return
		}

		r, ok := s.visibleReport(c)
		if !ok {
			return
		}

		// signed-in users comment under their display name unless they chose another
		if user := currentIdentity(c); user != nil && strings.TrimSpace(input.AuthorName) == "" {
			input.AuthorName = user.DisplayName
		}

		id, err := s.ReportService.AddComment(c.Request.Context(), r.ID, input.AuthorName, input.Message)
		if err != nil {
			s.respondError(c, err)
			return
		}
		response.JSON(c, "comment added successfully", http.StatusCreated, gin.H{"id": id}, nil)
	}
}
