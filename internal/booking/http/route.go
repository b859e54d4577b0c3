package http

import (
	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/guide-booking-backend/internal/auth"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	// === Public calendar and pricing previews ===
	guides := g.Group("/guides")
	{
		guides.GET("/:id/availability", h.Availability)
		guides.GET("/:id/quote", h.Quote)
	}

	// === Authenticated Routes ===
	group := g.Group("/booking-requests")
	group.Use(authMiddleware)
	{
		group.GET("", h.List)
		group.POST("", auth.RequireRole(auth.RoleAgency), h.Submit)
		group.GET("/:id", h.Get)
		group.POST("/:id/respond", auth.RequireRole(auth.RoleGuide), h.Respond)
		group.POST("/:id/cancel", h.Cancel)
		group.POST("/:id/complete", h.Complete)
		group.POST("/:id/messages", h.AppendMessage)
	}
}
