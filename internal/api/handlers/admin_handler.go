// server/internal/api/handlers/admin_handler.go
package handlers

import (
	"net/http"
	"strconv"

	"mediradar-api-server/internal/api/middleware"
	"mediradar-api-server/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AdminHandler serves the moderation console. Routes sit behind Authenticate and Authorize.
type AdminHandler struct {
	Admin *service.AdminService
	Log   *zap.Logger
}

type UpdatePharmacyStatusBody struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

type UpdateRequestStatusBody struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Note   string `json:"note"`
}

func (h *AdminHandler) ListPharmacies(c *gin.Context) {
	items, err := h.Admin.ListPharmacies(c.Request.Context(), c.Query("status"))
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *AdminHandler) UpdatePharmacyStatus(c *gin.Context) {
	var body UpdatePharmacyStatusBody
	if !bindJSON(c, &body) {
		return
	}
	item, err := h.Admin.UpdatePharmacyStatus(c.Request.Context(), middleware.CurrentUser(c), body.ID, body.Status, body.Reason)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

func (h *AdminHandler) ListRequests(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	items, err := h.Admin.ListRequests(c.Request.Context(), service.RequestQuery{
		Status: c.Query("status"),
		City:   c.Query("city"),
		Query:  c.Query("q"),
		Limit:  limit,
	})
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func (h *AdminHandler) UpdateRequestStatus(c *gin.Context) {
	var body UpdateRequestStatusBody
	if !bindJSON(c, &body) {
		return
	}
	item, err := h.Admin.UpdateRequestStatus(c.Request.Context(), middleware.CurrentUser(c), body.ID, body.Status, body.Note)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

func (h *AdminHandler) Summary(c *gin.Context) {
	summary, err := h.Admin.Summary(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
