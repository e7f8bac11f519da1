package api

import (
	"context"

	"github.com/gin-gonic/gin"

	"statement_analysis/pkg/core/config"
	"statement_analysis/pkg/core/store"
	"statement_analysis/pkg/models"
)

// Store is the slice of persistence the HTTP layer reads and writes.
type Store interface {
	CreateUploadGroup(ctx context.Context) (string, error)
	CreateDocument(ctx context.Context, doc *models.Document) error
	Document(ctx context.Context, documentID string) (*models.Document, error)
	Documents(ctx context.Context) ([]models.Document, error)
	DocumentsForGroup(ctx context.Context, groupID string) ([]models.Document, error)
	DeleteDocument(ctx context.Context, documentID string) error
	UploadGroups(ctx context.Context) ([]models.UploadGroup, error)

	TransactionsPage(ctx context.Context, documentID string, page store.TransactionPage) ([]models.RawTransaction, int, error)

	StatementMetricsForDocument(ctx context.Context, documentID string) (*models.StatementMetrics, error)
	StatementMetricsForGroup(ctx context.Context, groupID string) ([]models.StatementMetrics, error)
	AggregatedMetricsForGroup(ctx context.Context, groupID string) (*models.AggregatedMetrics, error)

	AgentResult(ctx context.Context, documentID, agentType string) (*models.AgentResult, error)
	AgentResultsForDocument(ctx context.Context, documentID string) ([]models.AgentResult, error)
	GroupAgentResults(ctx context.Context, groupID string) ([]models.GroupAgentResult, error)
}

// Runner enqueues analysis work. Satisfied by *pipeline.Orchestrator.
type Runner interface {
	ProcessDocument(ctx context.Context, documentID string) error
	ProcessGroup(ctx context.Context, groupID string) error
}

// Handler carries the dependencies shared by every endpoint.
type Handler struct {
	Store  Store
	Runner Runner
	Cfg    *config.Settings
}

// SetupRouter builds the gin engine with CORS, optional bearer auth and
// every route mounted under the API prefix.
//
// gin's router cannot mix a literal path segment with a param at the same
// position, so the group variants of analyze/results/metrics share a param
// route and dispatch on the "group" segment inside the handler.
func SetupRouter(h *Handler) *gin.Engine {
	r := gin.Default()
	r.Use(corsMiddleware(h.Cfg.AllowedOrigins))

	api := r.Group(h.Cfg.APIPrefix)
	api.Use(authMiddleware(h.Cfg.APIAuthToken))
	{
		api.POST("/upload", h.handleUpload)

		api.POST("/analyze/:id", h.handleAnalyzeDocument)
		api.POST("/analyze/:id/:sub", h.handleAnalyzeGroup)

		api.GET("/status/group/:group_id", h.handleGroupStatus)

		api.GET("/results/:id", h.handleDocumentResults)
		api.GET("/results/:id/:sub", h.handleResultsSub)

		api.GET("/transactions/:document_id", h.handleTransactions)

		api.GET("/metrics/:id", h.handleDocumentMetrics)
		api.GET("/metrics/:id/:sub", h.handleGroupMetrics)

		api.GET("/report/:document_id", h.handleReport)

		api.GET("/documents", h.handleListDocuments)
		api.GET("/documents/:id", h.handleGetDocument)
		api.DELETE("/documents/:id", h.handleDeleteDocument)
		api.GET("/groups", h.handleListGroups)

		api.GET("/health", h.handleHealth)
	}

	return r
}

func (h *Handler) handleHealth(c *gin.Context) {
	c.JSON(200, gin.H{"status": "ok", "service": h.Cfg.ProjectName})
}
