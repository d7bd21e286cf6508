// server/internal/api/routes/routes.go
package routes

import (
	"net/http"

	"mediradar-api-server/config"
	"mediradar-api-server/internal/api/handlers"
	"mediradar-api-server/internal/api/middleware"
	"mediradar-api-server/internal/auth"
	"mediradar-api-server/internal/metrics"
	"mediradar-api-server/internal/ratelimit"
	"mediradar-api-server/internal/service"
	"mediradar-api-server/internal/socket"
	"mediradar-api-server/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NetlifyPrefix mirrors every route for clients still calling the serverless paths.
const NetlifyPrefix = "/.netlify/functions"

// Dependencies are the components the router wires into handlers.
type Dependencies struct {
	Config   config.Config
	Log      *zap.Logger
	Metrics  *metrics.Metrics
	Store    store.Store
	Hub      *socket.Hub
	Resolver auth.Resolver
	APIKey   *auth.APIKey
	Limiter  *ratelimit.Limiter

	Requests      *service.RequestService
	Admin         *service.AdminService
	Portal        *service.PortalService
	Prescriptions *service.PrescriptionService
}

// SetupRouter builds the gin engine with every route mounted at the root and under NetlifyPrefix.
func SetupRouter(d Dependencies) *gin.Engine {
	router := gin.New()
	router.HandleMethodNotAllowed = true
	// Rate limits key on ClientIP, so forwarded headers count only from listed proxies.
	if err := router.SetTrustedProxies(d.Config.Server.TrustedProxies); err != nil {
		d.Log.Warn("Invalid trusted proxies, trusting none", zap.Strings("proxies", d.Config.Server.TrustedProxies), zap.Error(err))
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(d.Log, d.Metrics))
	router.Use(cors.New(corsConfig(d.Config.Server.AllowedOrigins)))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	})
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method_not_allowed"})
	})

	health := &handlers.HealthHandler{Store: d.Store, Log: d.Log}
	router.GET("/healthz", health.Healthz)
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	mount(router.Group("/"), d)
	mount(router.Group(NetlifyPrefix), d)
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	cfg.AllowMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "x-api-key"}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func mount(g *gin.RouterGroup, d Dependencies) {
	requestHandler := &handlers.RequestHandler{Requests: d.Requests, Log: d.Log}
	adminHandler := &handlers.AdminHandler{Admin: d.Admin, Log: d.Log}
	pharmacyHandler := &handlers.PharmacyHandler{Portal: d.Portal, Log: d.Log}
	uploadHandler := &handlers.UploadHandler{Prescriptions: d.Prescriptions, Log: d.Log}
	webSocketHandler := &handlers.WebSocketHandler{Hub: d.Hub, Requests: d.Requests, Resolver: d.Resolver, Log: d.Log}

	limit := func(route string) gin.HandlerFunc {
		return middleware.RateLimit(d.Limiter, route, d.Metrics, d.Log)
	}
	authReady := d.Config.Supabase.Configured() || d.Config.Supabase.JWTSecret != ""
	authenticate := middleware.Authenticate(d.Resolver, authReady, d.Log)

	// Realtime
	g.GET("/ws/request-status", webSocketHandler.RequestStatus)
	g.GET("/ws/pharmacy", webSocketHandler.Pharmacy)

	// Prescription files carry their own size limit
	g.POST("/prescription-upload", limit("prescription-upload"), uploadHandler.UploadPrescription)

	api := g.Group("/", middleware.BodyLimit(d.Config.Server.MaxBodyBytes))
	{
		// Public request lifecycle
		api.POST("/send-request", limit("send-request"), requestHandler.SendRequest)
		api.POST("/reserve", limit("reserve"), requestHandler.Reserve)
		api.POST("/extend-hold", limit("extend-hold"), requestHandler.ExtendHold)
		api.GET("/request-status", requestHandler.RequestStatus)
		api.POST("/pharmacy-reply", limit("pharmacy-reply"), middleware.RequireAPIKey(d.APIKey), requestHandler.PharmacyReply)

		admin := api.Group("/", authenticate, middleware.Authorize(d.Config.Admin.Roles...))
		{
			admin.GET("/admin-pharmacies", adminHandler.ListPharmacies)
			admin.PATCH("/admin-pharmacies", adminHandler.UpdatePharmacyStatus)
			admin.GET("/admin-requests", adminHandler.ListRequests)
			admin.PATCH("/admin-requests", adminHandler.UpdateRequestStatus)
			admin.GET("/admin-summary", adminHandler.Summary)
		}

		pharmacy := api.Group("/pharmacy", authenticate)
		{
			pharmacy.GET("/me", pharmacyHandler.Me)
			pharmacy.GET("/hours", pharmacyHandler.GetHours)
			pharmacy.PUT("/hours", pharmacyHandler.UpdateHours)
			pharmacy.GET("/open-requests", pharmacyHandler.OpenRequests)
			pharmacy.POST("/responses", pharmacyHandler.Respond)
		}
	}
}
