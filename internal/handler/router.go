package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/facility-admin-api/internal/middleware"
	"github.com/noah-isme/facility-admin-api/internal/models"
	"github.com/noah-isme/facility-admin-api/internal/service"
	"github.com/noah-isme/facility-admin-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/facility-admin-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/facility-admin-api/pkg/middleware/requestid"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// RouterConfig carries the cross-cutting dependencies of the router.
type RouterConfig struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Tokens         tokenValidator
	Audit          auditRecorder
	Metrics        *service.MetricsService
	Logger         *zap.Logger
}

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth        *AuthHandler
	Bookings    *BookingHandler
	Rooms       *RoomHandler
	Technicians *TechnicianHandler
	Categories  *CategoryHandler
	WorkOrders  *WorkOrderHandler
	Dashboard   *DashboardHandler
	Reports     *ReportHandler
	Health      *MetricsHandler
}

// NewRouter installs the global middleware and every route on engine.
func NewRouter(engine *gin.Engine, cfg RouterConfig, h Handlers) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	setupMiddleware(engine, cfg)
	setupRoutes(engine, cfg, h)
}

func setupMiddleware(engine *gin.Engine, cfg RouterConfig) {
	engine.Use(gin.Recovery())
	engine.Use(reqidmiddleware.Middleware())
	engine.Use(logger.GinMiddleware(cfg.Logger))
	engine.Use(corsmiddleware.New(cfg.AllowedOrigins))
	engine.Use(middleware.Metrics(cfg.Metrics, "/metrics", apiPath(cfg.APIPrefix, "/work-orders/stream")))
}

func setupRoutes(engine *gin.Engine, cfg RouterConfig, h Handlers) {
	engine.GET("/health", h.Health.Health)
	engine.GET("/ready", h.Health.Ready)
	engine.GET("/metrics", h.Health.Prometheus)

	if cfg.EnableDocs {
		engine.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := engine.Group(apiPath(cfg.APIPrefix, ""))

	// signed links are the credential
	addRoutes(api, []route{
		{Method: http.MethodGet, Path: "/export/:token", Handler: h.Reports.Download},
	})

	authRequired := []gin.HandlerFunc{middleware.JWT(cfg.Tokens), middleware.AdminOnly()}

	auth := api.Group("/auth")
	{
		addRoutes(auth, []route{
			{Method: http.MethodPost, Path: "/login", Handler: h.Auth.Login},
			{Method: http.MethodPost, Path: "/refresh", Handler: h.Auth.Refresh},
			{Method: http.MethodPost, Path: "/forgot-password", Handler: h.Auth.ForgotPassword},
			{Method: http.MethodPost, Path: "/reset-password", Handler: h.Auth.ResetPassword},
			{Method: http.MethodPost, Path: "/logout", Handler: h.Auth.Logout, Mw: authRequired},
			{Method: http.MethodGet, Path: "/me", Handler: h.Auth.Me, Mw: authRequired},
		})
	}

	protected := api.Group("")
	protected.Use(authRequired...)
	protected.Use(middleware.WithResponseMeta())
	{
		addRoutes(protected, []route{
			{Method: http.MethodGet, Path: "/admins", Handler: h.Auth.ListAdmins},
			{Method: http.MethodGet, Path: "/rooms", Handler: h.Rooms.List},
		})

		addRoutes(protected.Group("/bookings"), []route{
			{Method: http.MethodGet, Path: "", Handler: h.Bookings.List},
			{Method: http.MethodGet, Path: "/schedule", Handler: h.Bookings.Schedule},
			{Method: http.MethodGet, Path: "/types", Handler: h.Bookings.Types},
			{Method: http.MethodPost, Path: "", Handler: h.Bookings.Create},
			{Method: http.MethodPut, Path: "", Handler: h.Bookings.Update},
			{Method: http.MethodDelete, Path: "", Handler: h.Bookings.Delete},
		})

		addRoutes(protected.Group("/technicians"), []route{
			{Method: http.MethodGet, Path: "", Handler: h.Technicians.List},
			{Method: http.MethodPost, Path: "", Handler: h.Technicians.Register},
			{Method: http.MethodGet, Path: "/:id", Handler: h.Technicians.Get},
			{Method: http.MethodPut, Path: "/:id", Handler: h.Technicians.Update},
			{Method: http.MethodDelete, Path: "/:id", Handler: h.Technicians.Delete},
		})

		addRoutes(protected.Group("/categories"), []route{
			{Method: http.MethodGet, Path: "", Handler: h.Categories.List},
			{Method: http.MethodPost, Path: "", Handler: h.Categories.Create},
			{Method: http.MethodPut, Path: "/:id", Handler: h.Categories.Update},
			{Method: http.MethodDelete, Path: "/:id", Handler: h.Categories.Delete},
		})

		addRoutes(protected.Group("/work-orders"), []route{
			{Method: http.MethodGet, Path: "", Handler: h.WorkOrders.List},
			{Method: http.MethodGet, Path: "/statuses", Handler: h.WorkOrders.Statuses},
			{Method: http.MethodGet, Path: "/stream", Handler: h.WorkOrders.Stream},
			{Method: http.MethodPost, Path: "", Handler: h.WorkOrders.Create},
			{Method: http.MethodGet, Path: "/:id", Handler: h.WorkOrders.Get},
			{Method: http.MethodPut, Path: "/:id", Handler: h.WorkOrders.Update},
			{Method: http.MethodPatch, Path: "/:id/status", Handler: h.WorkOrders.UpdateStatus},
			{Method: http.MethodDelete, Path: "/:id", Handler: h.WorkOrders.Delete},
		})

		addRoutes(protected.Group("/dashboard"), []route{
			{Method: http.MethodGet, Path: "", Handler: h.Dashboard.Overview},
			{Method: http.MethodGet, Path: "/stats", Handler: h.Dashboard.Stats},
			{Method: http.MethodGet, Path: "/range", Handler: h.Dashboard.Range},
			{Method: http.MethodGet, Path: "/monthly", Handler: h.Dashboard.Monthly},
		})

		exportAudit := middleware.Audit(cfg.Audit, cfg.Logger, models.AuditActionReportExport, "workorder_report")
		addRoutes(protected.Group("/reports"), []route{
			{Method: http.MethodGet, Path: "", Handler: h.Reports.Completed},
			{Method: http.MethodGet, Path: "/work-orders/export", Handler: h.Reports.Export, Mw: []gin.HandlerFunc{exportAudit}},
			{Method: http.MethodPost, Path: "/exports", Handler: h.Reports.CreateExport},
			{Method: http.MethodGet, Path: "/exports", Handler: h.Reports.ListExports},
			{Method: http.MethodGet, Path: "/exports/:id", Handler: h.Reports.ExportStatus},
		})
	}
}

// addRoutes registers rs on g. Route middleware runs inside gin's chain so
// that c.Next in it reaches the handler.
func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		handlers := make([]gin.HandlerFunc, 0, len(r.Mw)+1)
		handlers = append(handlers, r.Mw...)
		handlers = append(handlers, r.Handler)
		g.Handle(r.Method, r.Path, handlers...)
	}
}

func apiPath(prefix, path string) string {
	prefix = "/" + strings.Trim(prefix, "/")
	if prefix == "/" {
		return path
	}
	return prefix + path
}
