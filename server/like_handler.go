package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/techagentng/findmenow/server/response"
)

func (s *Server) handleToggleLike() gin.HandlerFunc {
	return func(c *gin.Context) {
		r, ok := s.visibleReport(c)
		if !ok {
			return
		}

		result, err := s.ReportService.ToggleLike(c.Request.Context(), r.ID, clientID(c))
		if err != nil {
			s.respondError(c, err)
			return
		}

		message := "report unliked"
		if result.Liked {
			message = "report liked"
		}
		response.JSON(c, message, http.StatusOK, result, nil)
	}
}
