package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"statement_analysis/pkg/models"
)

// handleAnalyzeDocument enqueues the full agent pipeline for one document.
// A document already in flight is rejected with 409; completed or failed
// documents may be re-analyzed.
func (h *Handler) handleAnalyzeDocument(c *gin.Context) {
	documentID := c.Param("id")

	doc, err := h.Store.Document(c.Request.Context(), documentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if doc.Status == models.DocStatusProcessing {
		c.JSON(http.StatusConflict, gin.H{"error": "document is already being processed"})
		return
	}

	go func() {
		if err := h.Runner.ProcessDocument(context.Background(), doc.ID); err != nil {
			fmt.Printf("Analysis failed for document %s: %v\n", doc.ID, err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "document_id": doc.ID})
}

// handleAnalyzeGroup enqueues every document in a group. The group phase
// fires automatically once the last document completes.
func (h *Handler) handleAnalyzeGroup(c *gin.Context) {
	if c.Param("id") != "group" {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	groupID := c.Param("sub")

	docs, err := h.Store.DocumentsForGroup(c.Request.Context(), groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(docs) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no documents in group %s", groupID)})
		return
	}

	queued := 0
	for _, doc := range docs {
		if doc.Status == models.DocStatusProcessing {
			continue
		}
		id := doc.ID
		go func() {
			if err := h.Runner.ProcessDocument(context.Background(), id); err != nil {
				fmt.Printf("Analysis failed for document %s: %v\n", id, err)
			}
		}()
		queued++
	}

	c.JSON(http.StatusAccepted, gin.H{
		"status":          "queued",
		"upload_group_id": groupID,
		"documents":       queued,
	})
}

// handleGroupStatus reports the group state machine: uploaded while nothing
// has started, processing while any document is in flight, group_processing
// while the cross-statement agents run, completed or failed at the end.
func (h *Handler) handleGroupStatus(c *gin.Context) {
	groupID := c.Param("group_id")
	ctx := c.Request.Context()

	docs, err := h.Store.DocumentsForGroup(ctx, groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if len(docs) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no documents in group %s", groupID)})
		return
	}

	groupAgents := map[string]string{}
	for _, at := range models.GroupAgentTypes {
		groupAgents[at] = models.AgentStatusPending
	}
	results, err := h.Store.GroupAgentResults(ctx, groupID)
	if err == nil {
		for _, res := range results {
			groupAgents[res.AgentType] = res.Status
		}
	}

	type docStatus struct {
		ID       string `json:"id"`
		Filename string `json:"filename"`
		Status   string `json:"status"`
	}
	statuses := make([]docStatus, 0, len(docs))
	for _, d := range docs {
		statuses = append(statuses, docStatus{ID: d.ID, Filename: d.OriginalFilename, Status: d.Status})
	}

	c.JSON(http.StatusOK, gin.H{
		"upload_group_id": groupID,
		"overall_status":  overallStatus(docs, groupAgents),
		"documents":       statuses,
		"group_agents":    groupAgents,
	})
}

func overallStatus(docs []models.Document, groupAgents map[string]string) string {
	allFailed, allCompleted := true, true
	anyProcessing, anyUploaded := false, false
	for _, d := range docs {
		if d.Status != models.DocStatusFailed {
			allFailed = false
		}
		if d.Status != models.DocStatusCompleted {
			allCompleted = false
		}
		if d.Status == models.DocStatusUploaded {
			anyUploaded = true
		}
		if d.Status == models.DocStatusProcessing {
			anyProcessing = true
		}
	}

	switch {
	case allFailed:
		return models.DocStatusFailed
	case anyProcessing:
		return models.DocStatusProcessing
	case anyUploaded:
		return models.DocStatusUploaded
	}

	// Documents are done. The group phase only exists for multi-statement
	// uploads whose documents all completed.
	if len(docs) >= 2 && allCompleted {
		for _, status := range groupAgents {
			if status == models.AgentStatusPending || status == models.AgentStatusRunning {
				return "group_processing"
			}
		}
	}
	return models.DocStatusCompleted
}
