package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"statement_analysis/pkg/core/report"
	"statement_analysis/pkg/models"
)

// handleReport renders the document's insights narrative as sanitised HTML.
// 404 until the insights agent has completed.
func (h *Handler) handleReport(c *gin.Context) {
	documentID := c.Param("document_id")
	ctx := c.Request.Context()

	if _, err := h.Store.Document(ctx, documentID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	res, err := h.Store.AgentResult(ctx, documentID, models.AgentInsights)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	rep, err := report.FromInsights(res)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"document_id": documentID,
		"html":        rep.HTML,
		"abstract":    rep.Abstract,
	})
}
