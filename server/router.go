package server

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/techagentng/findmenow/server/response"
)

func (s *Server) setupRouter() *gin.Engine {
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "test" {
		r := gin.New()
		s.defineRoutes(r)
		return r
	}

	r := gin.New()

	// LoggerWithFormatter middleware will write the logs to gin.DefaultWriter
	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
			param.ClientIP,
			param.TimeStamp.Format(time.RFC1123),
			param.Method,
			param.Path,
			param.Request.Proto,
			param.StatusCode,
			param.Latency,
			param.Request.UserAgent(),
			param.ErrorMessage,
		)
	}))
	r.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", clientIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if origins := strings.TrimSpace(s.Config.AccessControlAllowOrigin); origins != "" && origins != "*" {
		corsConfig.AllowOrigins = strings.Split(origins, ",")
	} else {
		corsConfig.AllowOriginFunc = func(string) bool { return true }
	}
	r.Use(cors.New(corsConfig))
	r.MaxMultipartMemory = 32 << 20
	s.defineRoutes(r)

	return r
}

func (s *Server) defineRoutes(router *gin.Engine) {
	router.Use(s.Metrics.Middleware())

	store := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: s.Config.RateLimitPerMinute,
	})
	limitRate := limitRateByClientIP(store)

	router.GET("/healthz", func(c *gin.Context) {
		response.JSON(c, "ok", http.StatusOK, gin.H{"backend": s.Config.Backend, "moderated": s.ReportService.Moderated()}, nil)
	})
	if s.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{})))
	}

	apirouter := router.Group("/api/v1")
	apirouter.Use(s.identify(), s.clientIdentity())

	apirouter.POST("/auth/login", limitRate, s.handleLogin())
	apirouter.GET("/reports", s.handleListReports())
	apirouter.GET("/reports/:id", s.handleGetReport())
	apirouter.GET("/reports/:id/share", s.handleShareReport())
	apirouter.POST("/reports", limitRate, s.handleSubmitReport())
	apirouter.PUT("/reports/:id/like", s.handleToggleLike())
	apirouter.GET("/reports/:id/comments", s.handleListComments())
	apirouter.POST("/reports/:id/comments", limitRate, s.handleAddComment())

	authorized := apirouter.Group("/")
	authorized.Use(s.Authorize())
	authorized.POST("/auth/logout", s.handleLogout())
	authorized.GET("/me", s.handleMe())
	authorized.GET("/reports/mine", s.handleMyReports())

	admin := authorized.Group("/admin")
	admin.Use(s.requireAdmin())
	admin.GET("/reports/pending", s.handlePendingReports())
	admin.PUT("/reports/:id/moderation", s.handleSetModeration())
	admin.PUT("/reports/:id/police", s.handleRecordPoliceNotification())
	admin.PUT("/reports/:id/disposition", s.handleSetDisposition())
}
