package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/amorempixels/amor_server/internal/api/middleware"
	"github.com/amorempixels/amor_server/internal/catalog"
	"github.com/amorempixels/amor_server/internal/model/dto"
	"github.com/amorempixels/amor_server/internal/pkg/response"
	"github.com/amorempixels/amor_server/internal/service"
)

// DashboardHandler manages the signed-in user's own cards.
type DashboardHandler struct {
	siteService *service.SiteService
}

func NewDashboardHandler(siteService *service.SiteService) *DashboardHandler {
	return &DashboardHandler{siteService: siteService}
}

func siteID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, "ID inválido")
		return 0, false
	}
	return id, true
}

// GET /api/v1/dashboard/sites?page=&page_size=&status=
func (h *DashboardHandler) List(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req dto.ListSitesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = 20
	}

	items, total, err := h.siteService.List(userID, req.Status, req.Page, req.PageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessPage(c, total, req.Page, req.PageSize, items)
}

// GET /api/v1/dashboard/sites/:id
func (h *DashboardHandler) Get(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	id, ok := siteID(c)
	if !ok {
		return
	}

	info, err := h.siteService.Get(userID, id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, info)
}

// PUT /api/v1/dashboard/sites/:id
func (h *DashboardHandler) Update(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	id, ok := siteID(c)
	if !ok {
		return
	}

	var req dto.UpdateSiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	info, err := h.siteService.Update(c.Request.Context(), userID, id, &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessWithMessage(c, "Página atualizada", info)
}

// DELETE /api/v1/dashboard/sites/:id
func (h *DashboardHandler) Delete(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	id, ok := siteID(c)
	if !ok {
		return
	}

	if err := h.siteService.Delete(c.Request.Context(), userID, id); err != nil {
		writeError(c, err)
		return
	}
	response.SuccessWithMessage(c, "Página removida", nil)
}

// POST /api/v1/dashboard/sites/:id/media/:kind
func (h *DashboardHandler) AddMedia(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	id, ok := siteID(c)
	if !ok {
		return
	}
	kind, err := catalog.ParseKind(c.Param("kind"))
	if err != nil {
		response.ParamError(c, err.Error())
		return
	}

	upload, closeFn, ok := formUpload(c)
	if !ok {
		return
	}
	defer closeFn()

	resp, err := h.siteService.AddMedia(c.Request.Context(), userID, id, kind, upload)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, resp)
}

// DELETE /api/v1/dashboard/sites/:id/media/:kind/:index
func (h *DashboardHandler) RemoveMedia(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	id, ok := siteID(c)
	if !ok {
		return
	}
	kind, err := catalog.ParseKind(c.Param("kind"))
	if err != nil {
		response.ParamError(c, err.Error())
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.ParamError(c, "Índice inválido")
		return
	}

	resp, err := h.siteService.RemoveMedia(c.Request.Context(), userID, id, kind, index)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, resp)
}
