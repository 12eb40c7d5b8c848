package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, fn func(c *gin.Context)) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	router := gin.New()
	router.GET("/test", fn)

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestSuccess(t *testing.T) {
	w, resp := serve(t, func(c *gin.Context) {
		Success(c, gin.H{"custom_url": "joomaria"})
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, CodeSuccess, resp.Code)
	assert.Equal(t, "success", resp.Message)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "joomaria", data["custom_url"])
}

func TestSuccess_NilData(t *testing.T) {
	_, resp := serve(t, func(c *gin.Context) {
		Success(c, nil)
	})
	assert.Equal(t, CodeSuccess, resp.Code)
	assert.Nil(t, resp.Data)
}

func TestSuccessWithMessage(t *testing.T) {
	_, resp := serve(t, func(c *gin.Context) {
		SuccessWithMessage(c, "Rascunho salvo", gin.H{"saved": true})
	})
	assert.Equal(t, CodeSuccess, resp.Code)
	assert.Equal(t, "Rascunho salvo", resp.Message)
}

func TestSuccessPage(t *testing.T) {
	_, resp := serve(t, func(c *gin.Context) {
		SuccessPage(c, 42, 2, 10, []string{"a", "b", "c"})
	})

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(42), data["total"])
	assert.Equal(t, float64(2), data["page"])
	assert.Equal(t, float64(10), data["page_size"])

	items, ok := data["items"].([]interface{})
	require.True(t, ok)
	assert.Len(t, items, 3)
}

func TestSuccessPage_EmptyItems(t *testing.T) {
	_, resp := serve(t, func(c *gin.Context) {
		SuccessPage(c, 0, 1, 10, []string{})
	})

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	items, ok := data["items"].([]interface{})
	require.True(t, ok)
	assert.Empty(t, items)
}

func TestError_CustomAndDefaultMessage(t *testing.T) {
	_, resp := serve(t, func(c *gin.Context) {
		Error(c, CodeServerError, "falha ao gravar")
	})
	assert.Equal(t, CodeServerError, resp.Code)
	assert.Equal(t, "falha ao gravar", resp.Message)
	assert.Nil(t, resp.Data)

	_, resp = serve(t, func(c *gin.Context) {
		Error(c, CodeServerError, "")
	})
	assert.Equal(t, "Erro interno do servidor", resp.Message)
}

func TestError_UnknownCode(t *testing.T) {
	_, resp := serve(t, func(c *gin.Context) {
		Error(c, 9999, "")
	})
	assert.Equal(t, 9999, resp.Code)
	assert.Empty(t, resp.Message)
}

func TestHelpers(t *testing.T) {
	tests := []struct {
		name        string
		fn          func(c *gin.Context, message string)
		wantCode    int
		wantDefault string
	}{
		{"param", ParamError, CodeParamError, "Parâmetros inválidos"},
		{"auth", AuthError, CodeAuthFailed, "Falha na autenticação"},
		{"permission", PermissionError, CodePermissionDenied, "Permissão negada"},
		{"not found", NotFoundError, CodeResourceNotFound, "Recurso não encontrado"},
		{"plan limit", PlanLimitError, CodePlanLimit, "Limite do plano atingido"},
		{"duplicate", DuplicateError, CodeDuplicateAction, "Operação duplicada"},
		{"url taken", URLTakenError, CodeURLTaken, "URL já está em uso"},
		{"access denied", AccessDenied, CodeAccessDenied, "Acesso negado"},
		{"password required", PasswordRequired, CodePasswordRequired, "Esta página é protegida por senha"},
		{"too many requests", TooManyRequests, CodeTooManyRequests, "Muitas tentativas, aguarde um pouco"},
		{"server", ServerError, CodeServerError, "Erro interno do servidor"},
		{"upstream", UpstreamError, CodeUpstreamError, "Serviço externo indisponível, tente novamente"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp := serve(t, func(c *gin.Context) { tt.fn(c, "") })
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.wantDefault, resp.Message)

			_, resp = serve(t, func(c *gin.Context) { tt.fn(c, "mensagem") })
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, "mensagem", resp.Message)
		})
	}
}

func TestValidationError(t *testing.T) {
	_, resp := serve(t, func(c *gin.Context) {
		ValidationError(c, "", map[string]string{"couple_name": "Informe o nome do casal"})
	})

	assert.Equal(t, CodeParamError, resp.Code)
	assert.Equal(t, "Parâmetros inválidos", resp.Message)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	fields, ok := data["fields"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Informe o nome do casal", fields["couple_name"])
}
