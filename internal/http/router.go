package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/geocoder89/speakup/internal/account"
	"github.com/geocoder89/speakup/internal/config"
	"github.com/geocoder89/speakup/internal/http/handlers"
	"github.com/geocoder89/speakup/internal/http/middlewares"
	"github.com/geocoder89/speakup/internal/observability"
)

const (
	jsonBodyLimit      = 1 << 20
	multipartBodyLimit = account.MaxAvatarBytes + 1<<20
)

type Deps struct {
	Config   config.Config
	Logger   *slog.Logger
	Accounts *account.Service

	// optional
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
	Health   *handlers.HealthHandler
}

func NewRouter(deps Deps) *gin.Engine {
	if deps.Config.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Health == nil {
		deps.Health = handlers.NewHealthHandler(nil, nil)
	}

	handlers.RegisterValidators()

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("speakup-api"))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(deps.Logger))
	r.Use(middlewares.SecurityHeaders(deps.Config.Env == "prod"))
	r.Use(middlewares.CORSMiddleware(deps.Config.CORSOrigins))

	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}

	// ops
	r.GET("/healthz", deps.Health.Healthz)
	r.GET("/readyz", deps.Health.Readyz)
	if deps.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	authMW := middlewares.NewAuthMiddleware(deps.Accounts, deps.Logger)
	authHandler := handlers.NewAuthHandler(deps.Accounts, deps.Logger)
	usersHandler := handlers.NewUsersHandler(deps.Accounts, deps.Logger)

	jsonOnly := middlewares.RequireContentType("application/json")

	authGroup := r.Group("/auth")
	{
		small := authGroup.Group("", middlewares.MaxBodyBytes(jsonBodyLimit))

		small.POST("/register", jsonOnly, authHandler.Register)
		small.GET("/confirm-email", authHandler.ConfirmEmail)
		small.POST("/confirm-email", jsonOnly, authHandler.ConfirmEmail)
		small.POST("/login",
			middlewares.RequireContentType("application/x-www-form-urlencoded", "multipart/form-data", "application/json"),
			authHandler.Login,
		)
		small.POST("/forgot-password", jsonOnly, authHandler.ForgotPassword)
		small.POST("/reset-password", jsonOnly, authHandler.ResetPassword)

		small.GET("/me", authMW.RequireAuth(), authHandler.Me)
		small.POST("/change-password", authMW.RequireAuth(), jsonOnly, authHandler.ChangePassword)

		authGroup.PATCH("/update",
			middlewares.MaxBodyBytes(multipartBodyLimit),
			authMW.RequireAuth(),
			middlewares.RequireContentType("multipart/form-data", "application/x-www-form-urlencoded"),
			authHandler.UpdateProfile,
		)
	}

	admin := r.Group("/users",
		middlewares.MaxBodyBytes(jsonBodyLimit),
		authMW.RequireAuth(),
		authMW.RequireAdmin(),
	)
	{
		admin.POST("", jsonOnly, usersHandler.CreateUser)
		admin.GET("", usersHandler.ListUsers)
		admin.PATCH("/:id", jsonOnly, usersHandler.UpdateUser)
		admin.DELETE("/:id", usersHandler.DeleteUser)
	}

	return r
}
