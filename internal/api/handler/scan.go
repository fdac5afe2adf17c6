package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ResolveScan handles GET /v/:vehicleId?sig=
func (h *Handler) ResolveScan(c *gin.Context) {
	result, err := h.Relay.ResolveScan(c.Param("vehicleId"), c.Query("sig"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// ListTemplates handles GET /v/:vehicleId/templates?sig=
func (h *Handler) ListTemplates(c *gin.Context) {
	list, err := h.Relay.Templates(c.Param("vehicleId"), c.Query("sig"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": list})
}
