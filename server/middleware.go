package server

import (
	"context"
	"net/http"
	"strings"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	errs "github.com/techagentng/findmenow/errors"
	"github.com/techagentng/findmenow/identity"
	"github.com/techagentng/findmenow/localstore"
	"github.com/techagentng/findmenow/models"
	"github.com/techagentng/findmenow/server/response"
)

const (
	clientIDHeader    = "X-Client-ID"
	maxClientIDLength = 128
	clientCookieAge   = 365 * 24 * 60 * 60

	ctxIdentity    = "identity"
	ctxAccessToken = "access_token"
	ctxClientID    = "clientID"
)

// identify resolves the bearer token, if any, to an identity. A bad token is rejected
// even on routes that allow anonymous access.
func (s *Server) identify() gin.HandlerFunc {
	return func(c *gin.Context) {
		accessToken := getTokenFromHeader(c)
		if accessToken == "" {
			c.Next()
			return
		}
		user, err := s.AuthService.Current(c.Request.Context(), accessToken)
		if err != nil {
			respondAndAbort(c, "", http.StatusUnauthorized, nil, errs.FromError(err))
			return
		}
		c.Set(ctxIdentity, user)
		c.Set(ctxAccessToken, accessToken)
		c.Next()
	}
}

// Authorize requires a signed-in identity.
func (s *Server) Authorize() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentIdentity(c) == nil {
			respondAndAbort(c, "", http.StatusUnauthorized, nil, errs.Auth("Unauthorized", nil))
			return
		}
		c.Next()
	}
}

func (s *Server) requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if user := currentIdentity(c); user == nil || !user.Admin {
			respondAndAbort(c, "", http.StatusForbidden, nil, errs.New("Forbidden: administrators only", http.StatusForbidden))
			return
		}
		c.Next()
	}
}

// clientIdentity resolves the anonymous client id from the X-Client-ID header, or from a
// long-lived cookie that is issued on first contact.
func (s *Server) clientIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := strings.TrimSpace(c.GetHeader(clientIDHeader)); id != "" {
			if len(id) > maxClientIDLength {
				respondAndAbort(c, "", http.StatusBadRequest, nil, errs.InvalidField("client_id", "client id is too long"))
				return
			}
			c.Set(ctxClientID, id)
			c.Next()
			return
		}

		id, err := identity.New(cookieStorage{c: c, secure: s.Config.Env == "prod"}).ID(c.Request.Context())
		if err != nil {
			s.Log.WithError(err).Warn("unable to resolve client id")
		} else {
			c.Set(ctxClientID, id)
		}
		c.Next()
	}
}

// cookieStorage keeps client-local values in HTTP cookies.
type cookieStorage struct {
	c      *gin.Context
	secure bool
}

var _ localstore.Storage = cookieStorage{}

func (s cookieStorage) Get(_ context.Context, key string) (string, bool, error) {
	v, err := s.c.Cookie(key)
	if err != nil {
		if err == http.ErrNoCookie {
			return "", false, nil
		}
		return "", false, err
	}
	if v == "" || len(v) > maxClientIDLength {
		return "", false, nil
	}
	return v, true, nil
}

func (s cookieStorage) Set(_ context.Context, key, value string) error {
	s.c.SetSameSite(http.SameSiteLaxMode)
	s.c.SetCookie(key, value, clientCookieAge, "/", "", s.secure, true)
	return nil
}

func currentIdentity(c *gin.Context) *models.Identity {
	v, ok := c.Get(ctxIdentity)
	if !ok {
		return nil
	}
	user, _ := v.(*models.Identity)
	return user
}

func clientID(c *gin.Context) string {
	return c.GetString(ctxClientID)
}

func limitRateByClientIP(store ratelimit.Store) gin.HandlerFunc {
	return ratelimit.RateLimiter(store, &ratelimit.Options{
		ErrorHandler: errs.ErrorHandler,
		KeyFunc:      keyFunc,
	})
}

func keyFunc(c *gin.Context) string {
	return c.ClientIP() + " " + c.FullPath()
}

// respondAndAbort calls response.JSON and aborts the Context
func respondAndAbort(c *gin.Context, message string, status int, data interface{}, e *errs.Error) {
	response.JSON(c, message, status, data, e)
	c.Abort()
}

// respondError maps err to its HTTP status. Server-side failures are logged with their cause.
func (s *Server) respondError(c *gin.Context, err error) {
	e := errs.FromError(err)
	if e.Status >= http.StatusInternalServerError {
		s.Log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}
	response.JSON(c, "", e.Status, nil, e)
}

// getTokenFromHeader returns the token string in the authorization header
func getTokenFromHeader(c *gin.Context) string {
	authHeader := c.Request.Header.Get("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}
