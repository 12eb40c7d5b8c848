package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/amorempixels/amor_server/internal/catalog"
	"github.com/amorempixels/amor_server/internal/pkg/response"
	"github.com/amorempixels/amor_server/internal/repository"
	"github.com/amorempixels/amor_server/internal/service"
	"github.com/amorempixels/amor_server/internal/wizard"
)

// writeError maps domain errors onto response codes. Anything unknown is
// attached to the context for the request logger and reported as 5000.
func writeError(c *gin.Context, err error) {
	var verr *wizard.ValidationError
	switch {
	case errors.As(err, &verr):
		response.ValidationError(c, "", verr.Fields)

	case errors.Is(err, wizard.ErrDraftNotFound),
		errors.Is(err, wizard.ErrStagedNotFound),
		errors.Is(err, service.ErrSiteNotFound),
		errors.Is(err, service.ErrOrderNotFound):
		response.NotFoundError(c, err.Error())

	case errors.Is(err, wizard.ErrPlanCeiling),
		errors.Is(err, catalog.ErrTemplateDenied):
		response.PlanLimitError(c, err.Error())

	case errors.Is(err, wizard.ErrContentTypeMismatch),
		errors.Is(err, wizard.ErrFileTooLarge),
		errors.Is(err, wizard.ErrEmptyFile),
		errors.Is(err, wizard.ErrAtFirstStep),
		errors.Is(err, wizard.ErrAtLastStep),
		errors.Is(err, wizard.ErrNotAtSummary),
		errors.Is(err, wizard.ErrInvalidSteps),
		errors.Is(err, catalog.ErrUnknownPlan),
		errors.Is(err, catalog.ErrUnknownTemplate),
		errors.Is(err, catalog.ErrUnknownKind):
		response.ParamError(c, err.Error())

	case errors.Is(err, service.ErrSubmitRunning):
		response.DuplicateError(c, err.Error())
	case errors.Is(err, repository.ErrDraftConflict):
		response.DuplicateError(c, "O rascunho foi alterado em outra aba, tente novamente")

	case errors.Is(err, service.ErrURLTaken):
		response.URLTakenError(c, err.Error())
	case errors.Is(err, service.ErrAccessDenied):
		response.AccessDenied(c, err.Error())
	case errors.Is(err, service.ErrPasswordRequired):
		response.PasswordRequired(c, err.Error())
	case errors.Is(err, service.ErrSiteExpired):
		response.PermissionError(c, err.Error())

	case errors.Is(err, service.ErrUploadFailed),
		errors.Is(err, service.ErrCheckoutFailed):
		response.UpstreamError(c, err.Error())

	default:
		_ = c.Error(err)
		response.ServerError(c, "")
	}
}
