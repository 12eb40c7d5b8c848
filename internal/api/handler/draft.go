package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/amorempixels/amor_server/internal/api/middleware"
	"github.com/amorempixels/amor_server/internal/catalog"
	"github.com/amorempixels/amor_server/internal/model/dto"
	"github.com/amorempixels/amor_server/internal/pkg/response"
	"github.com/amorempixels/amor_server/internal/service"
	"github.com/amorempixels/amor_server/internal/wizard"
)

type DraftHandler struct {
	wizardService *service.WizardService
	catalog       *catalog.Catalog
}

func NewDraftHandler(wizardService *service.WizardService, cat *catalog.Catalog) *DraftHandler {
	return &DraftHandler{
		wizardService: wizardService,
		catalog:       cat,
	}
}

func (h *DraftHandler) respond(c *gin.Context, d *wizard.Draft, err error) {
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, dto.NewDraftResponse(d))
}

// Create starts a wizard at the plan step.
// POST /api/v1/drafts
func (h *DraftHandler) Create(c *gin.Context) {
	d, err := h.wizardService.Create(c.Request.Context(), middleware.GetOptionalUserID(c))
	h.respond(c, d, err)
}

// GET /api/v1/drafts/:id
func (h *DraftHandler) Get(c *gin.Context) {
	d, err := h.wizardService.Get(c.Request.Context(), c.Param("id"))
	h.respond(c, d, err)
}

// Update writes form fields without validating them; each step's rules run
// when leaving it.
// PATCH /api/v1/drafts/:id
func (h *DraftHandler) Update(c *gin.Context) {
	var req dto.UpdateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	d, err := h.wizardService.Update(c.Request.Context(), c.Param("id"), req.Patch())
	h.respond(c, d, err)
}

// DELETE /api/v1/drafts/:id
func (h *DraftHandler) Delete(c *gin.Context) {
	if err := h.wizardService.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	response.SuccessWithMessage(c, "Rascunho removido", nil)
}

// POST /api/v1/drafts/:id/next
func (h *DraftHandler) Next(c *gin.Context) {
	d, err := h.wizardService.Next(c.Request.Context(), c.Param("id"))
	h.respond(c, d, err)
}

// POST /api/v1/drafts/:id/back
func (h *DraftHandler) Back(c *gin.Context) {
	d, err := h.wizardService.Back(c.Request.Context(), c.Param("id"))
	h.respond(c, d, err)
}

// POST /api/v1/drafts/:id/save
func (h *DraftHandler) Save(c *gin.Context) {
	d, err := h.wizardService.Save(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessWithMessage(c, "Rascunho salvo", dto.NewDraftResponse(d))
}

// Stage accepts one multipart "file" into a media slot.
// POST /api/v1/drafts/:id/media/:kind
func (h *DraftHandler) Stage(c *gin.Context) {
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

	d, file, err := h.wizardService.Stage(c.Request.Context(), c.Param("id"), kind, upload)
	if err != nil {
		writeError(c, err)
		return
	}

	plan, err := h.catalog.Plan(d.Plan)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, &dto.StageResponse{
		File:    *file,
		Count:   d.Media.Count(kind),
		Ceiling: plan.Ceiling(kind),
	})
}

// DELETE /api/v1/drafts/:id/media/:kind/:index
func (h *DraftHandler) Unstage(c *gin.Context) {
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

	d, err := h.wizardService.Unstage(c.Request.Context(), c.Param("id"), kind, index)
	h.respond(c, d, err)
}

// Media streams a staged file back for the wizard's preview.
// GET /api/v1/drafts/:id/media/:file_id
func (h *DraftHandler) Media(c *gin.Context) {
	path, file, err := h.wizardService.OpenStaged(c.Request.Context(), c.Param("id"), c.Param("file_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Type", file.ContentType)
	c.Header("Cache-Control", "private, max-age=300")
	c.File(path)
}

// GET /api/v1/drafts/:id/preview
func (h *DraftHandler) Preview(c *gin.Context) {
	p, err := h.wizardService.Preview(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, p)
}

// Submit publishes the draft. Paid plans answer with a checkout URL.
// POST /api/v1/drafts/:id/submit
func (h *DraftHandler) Submit(c *gin.Context) {
	resp, err := h.wizardService.Submit(c.Request.Context(), c.Param("id"), middleware.GetOptionalUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	msg := "Página publicada"
	if resp.CheckoutURL != "" {
		msg = "Finalize o pagamento para publicar"
	}
	response.SuccessWithMessage(c, msg, resp)
}
