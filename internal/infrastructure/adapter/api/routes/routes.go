package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/amirhossein-jamali/mwallet/internal/domain/port/auth"
	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/api/handler"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/adapter/api/middleware"
)

// Handlers groups the HTTP handlers the router mounts
type Handlers struct {
	User        *handler.UserHandler
	Transaction *handler.TransactionHandler
	Lookup      *handler.LookupHandler
	Health      *handler.HealthHandler
}

// SetupRoutes configures all the routes for the API
func SetupRoutes(router *gin.Engine, h Handlers, sessions auth.SessionProvider) {
	router.GET("/health", h.Health.Health)

	v1 := router.Group("/api/v1")

	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/signup", h.User.Signup)
		authRoutes.POST("/login", h.User.Login)
		authRoutes.POST("/logout", h.User.Logout)
	}

	v1.GET("/banks", h.User.Banks)

	lookupRoutes := v1.Group("/lookup")
	{
		lookupRoutes.GET("/network", h.Lookup.Network)
		lookupRoutes.GET("/account", h.Lookup.Account)
		lookupRoutes.GET("/phone", h.Lookup.Phone)
	}

	meRoutes := v1.Group("/me", middleware.RequireSession(sessions))
	{
		meRoutes.GET("/dashboard", h.User.Dashboard)
		meRoutes.GET("/transactions", h.User.Transactions)
	}

	paymentRoutes := v1.Group("/payments", middleware.RequireSession(sessions))
	{
		paymentRoutes.POST("/transfer", h.Transaction.Transfer)
		paymentRoutes.POST("/airtime", h.Transaction.Airtime)
		paymentRoutes.POST("/bills", h.Transaction.Bill)
		paymentRoutes.GET("/:id", h.Transaction.Get)
		paymentRoutes.POST("/:id/confirm", h.Transaction.Confirm)
		paymentRoutes.POST("/:id/cancel", h.Transaction.Cancel)
	}
}

// SetupMiddlewares configures global middlewares for the API. The access
// log wraps the error handler so it sees the final status.
func SetupMiddlewares(router *gin.Engine, logger coreport.Logger) {
	router.Use(middleware.Logger(logger))
	router.Use(middleware.ErrorHandler(logger))
}

// Handler wraps the router in CORS. Preflight requests are answered before
// they reach gin.
func Handler(router *gin.Engine, allowedOrigins []string) http.Handler {
	return middleware.CORS(allowedOrigins)(router)
}
