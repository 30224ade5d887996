package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	errs "github.com/techagentng/findmenow/errors"
	"github.com/techagentng/findmenow/models"
	"github.com/techagentng/findmenow/server/response"
)

func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.JSON(c, "", http.StatusBadRequest, nil, errs.New("unable to parse request body", http.StatusBadRequest))
			return
		}

		session, err := s.AuthService.SignIn(c.Request.Context(), models.Credentials{
			IDToken:     req.IDToken,
			DisplayName: req.DisplayName,
			AdminToken:  req.AdminToken,
		})
		if err != nil {
			s.respondError(c, err)
			return
		}
		response.JSON(c, "login successful", http.StatusOK, session, nil)
	}
}

func (s *Server) handleLogout() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.AuthService.SignOut(c.Request.Context(), c.GetString(ctxAccessToken)); err != nil {
			s.respondError(c, err)
			return
		}
		response.JSON(c, "logout successful", http.StatusOK, nil, nil)
	}
}

func (s *Server) handleMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.JSON(c, "user retrieved successfully", http.StatusOK, currentIdentity(c), nil)
	}
}
