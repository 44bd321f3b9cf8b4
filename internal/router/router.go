package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/config"
	"github.com/stemsi/exstem-proctor/internal/handler"
	"github.com/stemsi/exstem-proctor/internal/middleware"
	"github.com/stemsi/exstem-proctor/internal/response"
	"github.com/stemsi/exstem-proctor/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Exam    *handler.ExamHandler
	Session *handler.SessionHandler
	WS      *handler.WSHandler
	Monitor *handler.MonitorHandler
	System  *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	loginLimiter *middleware.RateLimiter,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{
		"Origin", "Content-Type", "Authorization", "X-Request-ID",
		middleware.HeaderDeviceID, middleware.HeaderMonitorKey,
	}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Every response carries request metadata; access lines go through zerolog.
	router.Use(response.RequestIDMiddleware(log))
	router.Use(middleware.Brotli())

	router.GET("/health", handlers.System.Health)

	api := router.Group("/api/v1")

	// ─── 1. Lobby & Login (device-bound, no token yet) ─────────────────
	api.GET("/exams", handlers.Exam.ListOpenExams)

	login := api.Group("/exams/:exam_id")
	login.Use(middleware.RequireDeviceID())
	{
		login.POST("/login", loginLimiter.Middleware(), handlers.Exam.Login)
		login.POST("/acknowledge", handlers.Exam.Acknowledge)
	}

	// Restore only needs the device: the token is lost on reload.
	api.GET("/session/restore", middleware.RequireDeviceID(), handlers.Session.Restore)

	// ─── 2. Running Session (session JWT) ──────────────────────────────
	session := api.Group("/session")
	session.Use(middleware.RequireSessionJWT(authService))
	{
		session.GET("/state", handlers.Session.GetState)
		session.GET("/paper", handlers.Session.GetPaper)
		session.POST("/answer", handlers.Session.SelectAnswer)
		session.POST("/flag", handlers.Session.ToggleFlag)
		session.POST("/navigate", handlers.Session.Navigate)
		session.POST("/finish", handlers.Session.RequestFinish)
		session.POST("/finish/confirm", handlers.Session.ConfirmFinish)
		session.POST("/finish/cancel", handlers.Session.CancelFinish)
		session.POST("/violations/ack", handlers.Session.AcknowledgeViolation)
		session.POST("/signals", handlers.Session.Signal)
	}

	// ─── 3. Proctor Monitor (API key) ──────────────────────────────────
	monitor := api.Group("/monitor")
	monitor.Use(middleware.RequireMonitorKey(cfg.MonitorAPIKey))
	{
		monitor.GET("/exams/:exam_id", handlers.Monitor.MonitorExamSSE)
		monitor.GET("/system", handlers.System.Metrics)
	}

	// ─── 4. WebSocket ──────────────────────────────────────────────────
	wsGroup := router.Group("/ws/v1")
	wsGroup.Use(middleware.RequireSessionJWT(authService))
	{
		wsGroup.GET("/session/stream", handlers.WS.SessionStream)
	}

	return router
}
