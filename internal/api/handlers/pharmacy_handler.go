// server/internal/api/handlers/pharmacy_handler.go
package handlers

import (
	"encoding/json"
	"net/http"

	"mediradar-api-server/internal/api/middleware"
	"mediradar-api-server/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PharmacyHandler serves the pharmacy dashboard for the signed-in owner.
type PharmacyHandler struct {
	Portal *service.PortalService
	Log    *zap.Logger
}

type UpdateHoursBody struct {
	Hours json.RawMessage `json:"hours"`
}

type RespondBody struct {
	RequestID   string `json:"request_id"`
	Kind        string `json:"kind"`
	GenericOnly bool   `json:"generic_only"`
}

func (h *PharmacyHandler) Me(c *gin.Context) {
	item, err := h.Portal.Me(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"item": item})
}

func (h *PharmacyHandler) GetHours(c *gin.Context) {
	view, err := h.Portal.Hours(c.Request.Context(), middleware.CurrentUser(c))
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *PharmacyHandler) UpdateHours(c *gin.Context) {
	var body UpdateHoursBody
	if !bindJSON(c, &body) {
		return
	}
	if len(body.Hours) == 0 {
		abortInvalidPayload(c)
		return
	}
	view, err := h.Portal.UpdateHours(c.Request.Context(), middleware.CurrentUser(c), body.Hours)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "hours": view.Hours, "display": view.Display})
}

func (h *PharmacyHandler) OpenRequests(c *gin.Context) {
	items, err := h.Portal.OpenRequests(c.Request.Context(), c.Query("city"))
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *PharmacyHandler) Respond(c *gin.Context) {
	var body RespondBody
	if !bindJSON(c, &body) {
		return
	}
	item, err := h.Portal.Respond(c.Request.Context(), middleware.CurrentUser(c), service.ResponseInput{
		RequestID:   body.RequestID,
		Kind:        body.Kind,
		GenericOnly: body.GenericOnly,
	})
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "item": item})
}
