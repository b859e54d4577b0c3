package http

import (
	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/guide-booking-backend/internal/auth"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	// === Public Routes ===
	guides := g.Group("/guides")
	{
		guides.GET("/:id/reviews", h.ListForGuide)
		guides.GET("/:id/reviews/summary", h.Summary)
	}

	// === Authenticated Routes ===
	requests := g.Group("/booking-requests", authMiddleware)
	{
		requests.GET("/:id/review", h.GetForRequest)
		requests.POST("/:id/review", auth.RequireRole(auth.RoleAgency), h.Create)
	}
}
