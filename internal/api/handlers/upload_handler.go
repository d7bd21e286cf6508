// server/internal/api/handlers/upload_handler.go
package handlers

import (
	"io"
	"net/http"

	"mediradar-api-server/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// multipartOverhead leaves room for boundaries and headers around the file part.
const multipartOverhead = 64 << 10

type UploadHandler struct {
	Prescriptions *service.PrescriptionService
	Log           *zap.Logger
}

// UploadPrescription accepts a multipart "file" and attaches it to the request behind ?token=.
func (h *UploadHandler) UploadPrescription(c *gin.Context) {
	limit := int64(service.MaxPrescriptionBytes + multipartOverhead)
	if c.Request.ContentLength > limit {
		abortWithError(c, h.Log, service.ErrPayloadTooLarge)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		if tooLarge(err) {
			abortWithError(c, h.Log, service.ErrPayloadTooLarge)
			return
		}
		abortInvalidPayload(c)
		return
	}
	if fileHeader.Size > service.MaxPrescriptionBytes {
		abortWithError(c, h.Log, service.ErrPayloadTooLarge)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, service.MaxPrescriptionBytes+1))
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}

	url, err := h.Prescriptions.Upload(c.Request.Context(), c.Query("token"), data)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "url": url})
}
