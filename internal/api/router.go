package api

import (
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	accountHttp "github.com/nekogravitycat/guide-booking-backend/internal/account/http"
	"github.com/nekogravitycat/guide-booking-backend/internal/auth"
	bookingHttp "github.com/nekogravitycat/guide-booking-backend/internal/booking/http"
	guideHttp "github.com/nekogravitycat/guide-booking-backend/internal/guide/http"
	photoHttp "github.com/nekogravitycat/guide-booking-backend/internal/photo/http"
	reviewHttp "github.com/nekogravitycat/guide-booking-backend/internal/review/http"
)

// Config carries everything the router mounts.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	Logger       logrus.FieldLogger
	JWTManager   *auth.JWTManager

	AccountHandler *accountHttp.Handler
	GuideHandler   *guideHttp.Handler
	PhotoHandler   *photoHttp.Handler
	BookingHandler *bookingHttp.Handler
	ReviewHandler  *reviewHttp.Handler
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(RequestLogger(cfg.Logger), Recovery(cfg.Logger))

	// Configure CORS (Cross-Origin Resource Sharing).
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{
		"http://localhost:3000",
		"http://localhost:8081", // Swagger
	}
	if origins := splitOrigins(cfg.ProdOrigins); cfg.IsProduction && len(origins) > 0 {
		corsConfig.AllowOrigins = origins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// authMiddleware: Validates if the request contains a valid JWT.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		accountHttp.RegisterRoutes(v1, cfg.AccountHandler, authMiddleware)
		guideHttp.RegisterRoutes(v1, cfg.GuideHandler, authMiddleware)
		photoHttp.RegisterRoutes(v1, cfg.PhotoHandler)
		bookingHttp.RegisterRoutes(v1, cfg.BookingHandler, authMiddleware)
		reviewHttp.RegisterRoutes(v1, cfg.ReviewHandler, authMiddleware)
	}

	return r
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
