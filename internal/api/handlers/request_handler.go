// server/internal/api/handlers/request_handler.go
package handlers

import (
	"net/http"

	"mediradar-api-server/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestHandler serves the public request lifecycle routes.
type RequestHandler struct {
	Requests *service.RequestService
	Log      *zap.Logger
}

type SendRequestBody struct {
	Lang         string `json:"lang"`
	City         string `json:"city"`
	MedicineName string `json:"medicine_name"`
	Substance    string `json:"substance"`
	Type         string `json:"type"`
	Quantity     int    `json:"quantity"`
	AllowGeneric bool   `json:"allow_generic"`
	RxNumber     string `json:"rx_number"`
}

type TokenBody struct {
	Token string `json:"token"`
}

type PharmacyReplyBody struct {
	Token        string   `json:"token"`
	PharmacyName string   `json:"pharmacy_name"`
	Phone        string   `json:"phone"`
	Address      string   `json:"address"`
	Lat          *float64 `json:"lat"`
	Lng          *float64 `json:"lng"`
}

// SendRequest creates a pending request and returns its status token.
func (h *RequestHandler) SendRequest(c *gin.Context) {
	var body SendRequestBody
	if !bindJSON(c, &body) {
		return
	}

	r, err := h.Requests.Create(c.Request.Context(), service.CreateRequestInput{
		Lang:         body.Lang,
		City:         body.City,
		MedicineName: body.MedicineName,
		Substance:    body.Substance,
		Type:         body.Type,
		Quantity:     body.Quantity,
		AllowGeneric: body.AllowGeneric,
		RxNumber:     body.RxNumber,
	})
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "request_id": r.ID, "token": r.StatusToken})
}

// bindToken reads {token}; a missing or malformed body yields an empty token.
// An oversized body aborts with payload_too_large and reports false.
func bindToken(c *gin.Context) (string, bool) {
	var body TokenBody
	if err := c.ShouldBindJSON(&body); tooLarge(err) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": service.ErrPayloadTooLarge.Error()})
		return "", false
	}
	return body.Token, true
}

func (h *RequestHandler) Reserve(c *gin.Context) {
	token, ok := bindToken(c)
	if !ok {
		return
	}
	holdUntil, err := h.Requests.Reserve(c.Request.Context(), token)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "hold_until": holdUntil})
}

func (h *RequestHandler) ExtendHold(c *gin.Context) {
	token, ok := bindToken(c)
	if !ok {
		return
	}
	holdUntil, err := h.Requests.ExtendHold(c.Request.Context(), token)
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "hold_until": holdUntil})
}

// PharmacyReply records a pharmacy's availability reply. The API key is checked by middleware.
func (h *RequestHandler) PharmacyReply(c *gin.Context) {
	var body PharmacyReplyBody
	if !bindJSON(c, &body) {
		return
	}
	err := h.Requests.Reply(c.Request.Context(), service.ReplyInput{
		Token:        body.Token,
		PharmacyName: body.PharmacyName,
		Phone:        body.Phone,
		Address:      body.Address,
		Lat:          body.Lat,
		Lng:          body.Lng,
	})
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *RequestHandler) RequestStatus(c *gin.Context) {
	view, err := h.Requests.Status(c.Request.Context(), c.Query("token"))
	if err != nil {
		abortWithError(c, h.Log, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
