package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/amorempixels/amor_server/internal/catalog"
	"github.com/amorempixels/amor_server/internal/pkg/response"
)

type CatalogHandler struct {
	catalog *catalog.Catalog
}

func NewCatalogHandler(cat *catalog.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: cat}
}

// Plans lists the tiers from cheapest to most generous.
// GET /api/v1/plans
func (h *CatalogHandler) Plans(c *gin.Context) {
	response.Success(c, h.catalog.Plans())
}

// GET /api/v1/templates
func (h *CatalogHandler) Templates(c *gin.Context) {
	response.Success(c, h.catalog.Templates())
}
