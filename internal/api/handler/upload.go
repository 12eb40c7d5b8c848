package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/amorempixels/amor_server/internal/pkg/response"
	"github.com/amorempixels/amor_server/internal/service"
)

// formUpload opens the multipart "file" field. On failure the response is
// already written and ok is false.
func formUpload(c *gin.Context) (u service.Upload, closeFn func(), ok bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		response.ParamError(c, "Envie um arquivo no campo file")
		return service.Upload{}, nil, false
	}

	f, err := fh.Open()
	if err != nil {
		response.ParamError(c, "Não foi possível ler o arquivo")
		return service.Upload{}, nil, false
	}

	return service.Upload{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		Body:        f,
	}, func() { f.Close() }, true
}
