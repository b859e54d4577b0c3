package http

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the public photo download routes. Uploads are
// mounted by the modules that own a photo reference.
func RegisterRoutes(g *gin.RouterGroup, h *Handler) {
	group := g.Group("/photos")
	group.GET("/:id", h.ServeFile)
	group.GET("/:id/thumbnail", h.ServeThumbnail)
}
