package api

import (
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"statement_analysis/pkg/core/store"
	"statement_analysis/pkg/models"
)

// handleTransactions returns a filtered page of a document's transactions.
// Query params: limit, offset, transaction_type, category.
func (h *Handler) handleTransactions(c *gin.Context) {
	documentID := c.Param("document_id")
	ctx := c.Request.Context()

	if _, err := h.Store.Document(ctx, documentID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	page := store.TransactionPage{
		Limit:           queryInt(c, "limit", 100),
		Offset:          queryInt(c, "offset", 0),
		TransactionType: c.Query("transaction_type"),
		Category:        c.Query("category"),
	}

	txns, total, err := h.Store.TransactionsPage(ctx, documentID, page)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if txns == nil {
		txns = []models.RawTransaction{}
	}

	c.JSON(http.StatusOK, gin.H{
		"document_id":  documentID,
		"total":        total,
		"limit":        page.Limit,
		"offset":       page.Offset,
		"transactions": txns,
	})
}

// handleDocumentMetrics returns the per-statement metrics blob.
func (h *Handler) handleDocumentMetrics(c *gin.Context) {
	m, err := h.Store.StatementMetricsForDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, m)
}

// handleGroupMetrics serves /metrics/group/{group_id}: the aggregated
// roll-up plus every statement's own metrics.
func (h *Handler) handleGroupMetrics(c *gin.Context) {
	if c.Param("id") != "group" {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	groupID := c.Param("sub")
	ctx := c.Request.Context()

	statements, err := h.Store.StatementMetricsForGroup(ctx, groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(statements) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no metrics for group %s", groupID)})
		return
	}

	agg, err := h.Store.AggregatedMetricsForGroup(ctx, groupID)
	if err != nil {
		agg = nil
	}

	c.JSON(http.StatusOK, gin.H{
		"upload_group_id":    groupID,
		"aggregated_metrics": agg,
		"statements":         statements,
	})
}

func (h *Handler) handleListDocuments(c *gin.Context) {
	docs, err := h.Store.Documents(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}
	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (h *Handler) handleGetDocument(c *gin.Context) {
	doc, err := h.Store.Document(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// handleDeleteDocument removes the row (transactions, metrics and results
// cascade) and best-effort deletes the stored file.
func (h *Handler) handleDeleteDocument(c *gin.Context) {
	ctx := c.Request.Context()
	doc, err := h.Store.Document(ctx, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	if err := h.Store.DeleteDocument(ctx, doc.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if doc.FilePath != "" {
		if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) {
			fmt.Printf("Failed to remove stored file %s: %v\n", doc.FilePath, err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted", "document_id": doc.ID})
}

func (h *Handler) handleListGroups(c *gin.Context) {
	groups, err := h.Store.UploadGroups(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if groups == nil {
		groups = []models.UploadGroup{}
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups})
}

func queryInt(c *gin.Context, key string, def int) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}
