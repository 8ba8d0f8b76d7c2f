package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemXGen/internal/interfaces/http/handlers"
	"github.com/turtacn/ChemXGen/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies of the
// route tree. Nil handlers leave their routes unmounted.
type RouterConfig struct {
	// Handlers
	TaskHandler    *handlers.TaskHandler
	RenderHandler  *handlers.RenderHandler
	PredictHandler *handlers.PredictHandler
	AuthHandler    *handlers.AuthHandler
	BillingHandler *handlers.BillingHandler
	ProjectHandler *handlers.ProjectHandler
	HealthHandler  *handlers.HealthHandler

	// Middleware
	Sessions  middleware.SessionResolver
	Limiter   middleware.RateLimiter
	CORS      middleware.CORSConfig
	Logging   middleware.LoggingConfig
	Recorder  middleware.HTTPRecorder
	MetricsUI http.Handler

	Logger logging.Logger
}

// NewRouter builds the gin engine: global middleware, public health and
// metrics endpoints, and the /api/v1 groups.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RequestLogging(cfg.Logger, cfg.Logging))
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.Recorder != nil {
		r.Use(middleware.Metrics(cfg.Recorder))
	}

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.Liveness)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsUI != nil {
		r.GET("/metrics", gin.WrapH(cfg.MetricsUI))
	}

	api := r.Group("/api/v1")
	if cfg.Sessions != nil {
		api.Use(middleware.Authenticate(cfg.Sessions))
	}

	// Routes that call the prediction model are rate limited.
	limited := []gin.HandlerFunc{}
	if cfg.Limiter != nil {
		limited = append(limited, middleware.RateLimit(cfg.Limiter))
	}

	// With sessions configured, changing the task list needs a signed-in user.
	var signedIn []gin.HandlerFunc
	if cfg.Sessions != nil {
		signedIn = append(signedIn, middleware.RequireUser())
	}

	registerTaskRoutes(api, cfg.TaskHandler, signedIn, limited)
	registerRenderRoutes(api, cfg.RenderHandler)
	registerPredictRoutes(api, cfg.PredictHandler, limited)
	registerAuthRoutes(api, cfg.AuthHandler)
	registerBillingRoutes(api, cfg.BillingHandler)
	registerProjectRoutes(api, cfg.ProjectHandler)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, middleware.ErrorBody{Code: "COMMON_005", Message: "route not found"})
	})
	return r
}

func registerTaskRoutes(api *gin.RouterGroup, h *handlers.TaskHandler, signedIn, limited []gin.HandlerFunc) {
	if h == nil {
		return
	}
	tasks := api.Group("/tasks")
	tasks.POST("", chain(append(signedIn, limited...), h.Submit)...)
	tasks.GET("", h.List)
	tasks.GET("/:id", h.Get)
	tasks.DELETE("", chain(signedIn, h.Clear)...)

	api.GET("/events/tasks", h.Watch)
}

func registerRenderRoutes(api *gin.RouterGroup, h *handlers.RenderHandler) {
	if h == nil {
		return
	}
	api.POST("/render/2d", h.Render2D)
	api.POST("/render/3d", h.Render3D)
}

func registerPredictRoutes(api *gin.RouterGroup, h *handlers.PredictHandler, limited []gin.HandlerFunc) {
	if h == nil {
		return
	}
	api.POST("/predict/reaction", chain(limited, h.PredictReaction)...)
	api.POST("/generate/molecule", chain(limited, h.GenerateMolecule)...)
}

func registerAuthRoutes(api *gin.RouterGroup, h *handlers.AuthHandler) {
	if h == nil {
		return
	}
	auth := api.Group("/auth")
	auth.POST("/signin", h.SignIn)
	auth.POST("/signup", h.SignUp)
	auth.POST("/signout", h.SignOut)
	auth.GET("/session", h.Session)
}

func registerBillingRoutes(api *gin.RouterGroup, h *handlers.BillingHandler) {
	if h == nil {
		return
	}
	b := api.Group("/billing", middleware.RequireUser())
	b.POST("/checkout", h.Checkout)
	b.POST("/portal", h.Portal)
}

func registerProjectRoutes(api *gin.RouterGroup, h *handlers.ProjectHandler) {
	if h == nil {
		return
	}
	api.GET("/projects", h.List)
	api.GET("/projects/:id", h.Get)
	api.GET("/users/:id/projects", h.ListByUser)
}

func chain(mw []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(mw)+1)
	return append(append(out, mw...), h)
}
