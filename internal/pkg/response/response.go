package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess          = 0
	CodeParamError       = 1000
	CodeAuthFailed       = 1001
	CodePermissionDenied = 1002
	CodeResourceNotFound = 1003
	CodePlanLimit        = 1004
	CodeDuplicateAction  = 1005
	CodeURLTaken         = 1006
	CodeAccessDenied     = 1007
	CodePasswordRequired = 1008
	CodeTooManyRequests  = 1009
	CodeServerError      = 5000
	CodeUpstreamError    = 5001
)

var codeMessages = map[int]string{
	CodeSuccess:          "success",
	CodeParamError:       "Parâmetros inválidos",
	CodeAuthFailed:       "Falha na autenticação",
	CodePermissionDenied: "Permissão negada",
	CodeResourceNotFound: "Recurso não encontrado",
	CodePlanLimit:        "Limite do plano atingido",
	CodeDuplicateAction:  "Operação duplicada",
	CodeURLTaken:         "URL já está em uso",
	CodeAccessDenied:     "Acesso negado",
	CodePasswordRequired: "Esta página é protegida por senha",
	CodeTooManyRequests:  "Muitas tentativas, aguarde um pouco",
	CodeServerError:      "Erro interno do servidor",
	CodeUpstreamError:    "Serviço externo indisponível, tente novamente",
}

// Response is the envelope every JSON endpoint answers with.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

type PageData struct {
	Total    int64       `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Items    interface{} `json:"items"`
}

// FieldErrors is the data payload of a validation failure.
type FieldErrors struct {
	Fields map[string]string `json:"fields"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: message,
		Data:    data,
	})
}

func SuccessPage(c *gin.Context, total int64, page, pageSize int, items interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data: PageData{
			Total:    total,
			Page:     page,
			PageSize: pageSize,
			Items:    items,
		},
	})
}

func Error(c *gin.Context, code int, message string) {
	if message == "" {
		message = codeMessages[code]
	}
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
		Data:    nil,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

// ValidationError reports field-level failures; the wizard shows them inline.
func ValidationError(c *gin.Context, message string, fields map[string]string) {
	if message == "" {
		message = codeMessages[CodeParamError]
	}
	c.JSON(http.StatusOK, Response{
		Code:    CodeParamError,
		Message: message,
		Data:    FieldErrors{Fields: fields},
	})
}

func AuthError(c *gin.Context, message string) {
	Error(c, CodeAuthFailed, message)
}

func PermissionError(c *gin.Context, message string) {
	Error(c, CodePermissionDenied, message)
}

func NotFoundError(c *gin.Context, message string) {
	Error(c, CodeResourceNotFound, message)
}

func PlanLimitError(c *gin.Context, message string) {
	Error(c, CodePlanLimit, message)
}

func DuplicateError(c *gin.Context, message string) {
	Error(c, CodeDuplicateAction, message)
}

func URLTakenError(c *gin.Context, message string) {
	Error(c, CodeURLTaken, message)
}

// AccessDenied is terminal for a published card: unknown URL, expired card
// or wrong password all look the same to the viewer.
func AccessDenied(c *gin.Context, message string) {
	Error(c, CodeAccessDenied, message)
}

func PasswordRequired(c *gin.Context, message string) {
	Error(c, CodePasswordRequired, message)
}

func TooManyRequests(c *gin.Context, message string) {
	Error(c, CodeTooManyRequests, message)
}

func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}

func UpstreamError(c *gin.Context, message string) {
	Error(c, CodeUpstreamError, message)
}
