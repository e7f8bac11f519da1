package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"statement_analysis/pkg/models"
)

// handleDocumentResults returns the document plus every agent result.
func (h *Handler) handleDocumentResults(c *gin.Context) {
	documentID := c.Param("id")
	ctx := c.Request.Context()

	doc, err := h.Store.Document(ctx, documentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	agents, err := h.Store.AgentResultsForDocument(ctx, documentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if agents == nil {
		agents = []models.AgentResult{}
	}

	c.JSON(http.StatusOK, gin.H{"document": doc, "agents": agents})
}

// handleResultsSub serves two spellings that share a route shape:
// /results/group/{group_id} and /results/{document_id}/{agent_type}.
func (h *Handler) handleResultsSub(c *gin.Context) {
	if c.Param("id") == "group" {
		h.groupResults(c, c.Param("sub"))
		return
	}
	h.agentResult(c, c.Param("id"), c.Param("sub"))
}

func (h *Handler) agentResult(c *gin.Context, documentID, agentType string) {
	if !validAgentType(agentType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown agent type %q", agentType)})
		return
	}

	res, err := h.Store.AgentResult(c.Request.Context(), documentID, agentType)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) groupResults(c *gin.Context, groupID string) {
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

	type docResults struct {
		Document models.Document      `json:"document"`
		Agents   []models.AgentResult `json:"agents"`
	}
	perDoc := make([]docResults, 0, len(docs))
	for _, doc := range docs {
		agents, err := h.Store.AgentResultsForDocument(ctx, doc.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if agents == nil {
			agents = []models.AgentResult{}
		}
		perDoc = append(perDoc, docResults{Document: doc, Agents: agents})
	}

	groupAgents, err := h.Store.GroupAgentResults(ctx, groupID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if groupAgents == nil {
		groupAgents = []models.GroupAgentResult{}
	}

	// Aggregation may not exist yet for a fresh group.
	agg, err := h.Store.AggregatedMetricsForGroup(ctx, groupID)
	if err != nil {
		agg = nil
	}

	c.JSON(http.StatusOK, gin.H{
		"upload_group_id":    groupID,
		"documents":          perDoc,
		"group_agents":       groupAgents,
		"aggregated_metrics": agg,
	})
}

func validAgentType(agentType string) bool {
	for _, at := range models.DocAgentTypes {
		if at == agentType {
			return true
		}
	}
	return false
}
