package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement_analysis/pkg/core/config"
	"statement_analysis/pkg/core/pipeline"
	"statement_analysis/pkg/core/store"
	"statement_analysis/pkg/models"
)

// The production wiring must satisfy both handler dependencies.
var (
	_ Store  = (*store.Store)(nil)
	_ Runner = (*pipeline.Orchestrator)(nil)
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type memStore struct {
	mu           sync.Mutex
	docs         map[string]*models.Document
	docOrder     []string
	groups       []models.UploadGroup
	txns         map[string][]models.RawTransaction
	metrics      map[string]*models.StatementMetrics
	aggregated   map[string]*models.AggregatedMetrics
	results      map[string]*models.AgentResult // documentID|agentType
	groupResults map[string][]models.GroupAgentResult
	lastPage     store.TransactionPage
}

func newMemStore() *memStore {
	return &memStore{
		docs:         map[string]*models.Document{},
		txns:         map[string][]models.RawTransaction{},
		metrics:      map[string]*models.StatementMetrics{},
		aggregated:   map[string]*models.AggregatedMetrics{},
		results:      map[string]*models.AgentResult{},
		groupResults: map[string][]models.GroupAgentResult{},
	}
}

func (s *memStore) CreateUploadGroup(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := models.NewID()
	s.groups = append(s.groups, models.UploadGroup{ID: id, CreatedAt: time.Now()})
	return id, nil
}

func (s *memStore) CreateDocument(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *doc
	s.docs[doc.ID] = &cp
	s.docOrder = append(s.docOrder, doc.ID)
	return nil
}

func (s *memStore) Document(ctx context.Context, documentID string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[documentID]
	if !ok {
		return nil, fmt.Errorf("document %s not found", documentID)
	}
	cp := *doc
	return &cp, nil
}

func (s *memStore) Documents(ctx context.Context) ([]models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Document
	for _, id := range s.docOrder {
		out = append(out, *s.docs[id])
	}
	return out, nil
}

func (s *memStore) DocumentsForGroup(ctx context.Context, groupID string) ([]models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Document
	for _, id := range s.docOrder {
		if s.docs[id].UploadGroupID == groupID {
			out = append(out, *s.docs[id])
		}
	}
	return out, nil
}

func (s *memStore) DeleteDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, documentID)
	return nil
}

func (s *memStore) UploadGroups(ctx context.Context) ([]models.UploadGroup, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.UploadGroup(nil), s.groups...), nil
}

func (s *memStore) TransactionsPage(ctx context.Context, documentID string, page store.TransactionPage) ([]models.RawTransaction, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPage = page
	all := s.txns[documentID]
	var filtered []models.RawTransaction
	for _, t := range all {
		if page.TransactionType != "" && t.Type != page.TransactionType {
			continue
		}
		if page.Category != "" && t.Category != page.Category {
			continue
		}
		filtered = append(filtered, t)
	}
	total := len(filtered)
	if page.Offset < len(filtered) {
		filtered = filtered[page.Offset:]
	} else {
		filtered = nil
	}
	if page.Limit > 0 && len(filtered) > page.Limit {
		filtered = filtered[:page.Limit]
	}
	return filtered, total, nil
}

func (s *memStore) StatementMetricsForDocument(ctx context.Context, documentID string) (*models.StatementMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.metrics[documentID]
	if !ok {
		return nil, fmt.Errorf("no metrics for document %s", documentID)
	}
	return m, nil
}

func (s *memStore) StatementMetricsForGroup(ctx context.Context, groupID string) ([]models.StatementMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.StatementMetrics
	for _, id := range s.docOrder {
		if m, ok := s.metrics[id]; ok && m.UploadGroupID == groupID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (s *memStore) AggregatedMetricsForGroup(ctx context.Context, groupID string) (*models.AggregatedMetrics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agg, ok := s.aggregated[groupID]
	if !ok {
		return nil, fmt.Errorf("no aggregated metrics for group %s", groupID)
	}
	return agg, nil
}

func (s *memStore) AgentResult(ctx context.Context, documentID, agentType string) (*models.AgentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.results[documentID+"|"+agentType]
	if !ok {
		return nil, fmt.Errorf("no %s result for document %s", agentType, documentID)
	}
	return res, nil
}

func (s *memStore) AgentResultsForDocument(ctx context.Context, documentID string) ([]models.AgentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AgentResult
	for _, at := range models.DocAgentTypes {
		if res, ok := s.results[documentID+"|"+at]; ok {
			out = append(out, *res)
		}
	}
	return out, nil
}

func (s *memStore) GroupAgentResults(ctx context.Context, groupID string) ([]models.GroupAgentResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.GroupAgentResult(nil), s.groupResults[groupID]...), nil
}

type stubRunner struct {
	mu        sync.Mutex
	documents []string
	groups    []string
	done      chan string
}

func newStubRunner() *stubRunner {
	return &stubRunner{done: make(chan string, 16)}
}

func (r *stubRunner) ProcessDocument(ctx context.Context, documentID string) error {
	r.mu.Lock()
	r.documents = append(r.documents, documentID)
	r.mu.Unlock()
	r.done <- documentID
	return nil
}

func (r *stubRunner) ProcessGroup(ctx context.Context, groupID string) error {
	r.mu.Lock()
	r.groups = append(r.groups, groupID)
	r.mu.Unlock()
	r.done <- groupID
	return nil
}

func (r *stubRunner) waitFor(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-r.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for run %d of %d", i+1, n)
		}
	}
}

func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	return &config.Settings{
		ProjectName:   "statement_analysis",
		APIPrefix:     "/api",
		UploadDir:     t.TempDir(),
		MaxFileSizeMB: 1,
	}
}

func newTestAPI(t *testing.T) (*memStore, *stubRunner, *gin.Engine) {
	t.Helper()
	st := newMemStore()
	runner := newStubRunner()
	router := SetupRouter(&Handler{Store: st, Runner: runner, Cfg: testSettings(t)})
	return st, runner, router
}

func seedDocument(st *memStore, id, groupID, status string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.docs[id] = &models.Document{
		ID: id, OriginalFilename: id + ".pdf", Status: status, UploadGroupID: groupID,
	}
	st.docOrder = append(st.docOrder, id)
}

func multipartBody(t *testing.T, field string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for name, content := range files {
		part, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func doRequest(router *gin.Engine, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestUploadCreatesGroupAndDocuments(t *testing.T) {
	st, _, router := newTestAPI(t)

	body, ct := multipartBody(t, "files", map[string][]byte{
		"jan.pdf": []byte("%PDF-1.4 jan"),
		"feb.pdf": []byte("%PDF-1.4 feb"),
	})
	rec := doRequest(router, http.MethodPost, "/api/upload", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		UploadGroupID string            `json:"upload_group_id"`
		Documents     []models.Document `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.UploadGroupID)
	require.Len(t, resp.Documents, 2)

	for _, doc := range resp.Documents {
		assert.Equal(t, resp.UploadGroupID, doc.UploadGroupID)
		assert.Equal(t, models.DocStatusUploaded, doc.Status)
		assert.FileExists(t, doc.FilePath)
		assert.Equal(t, doc.ID+".pdf", filepath.Base(doc.FilePath))
	}

	stored, err := st.Documents(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestUploadRejectsNonPDF(t *testing.T) {
	_, _, router := newTestAPI(t)

	body, ct := multipartBody(t, "files", map[string][]byte{"notes.txt": []byte("hello")})
	rec := doRequest(router, http.MethodPost, "/api/upload", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "only PDF files")
}

func TestUploadRejectsOversizeFile(t *testing.T) {
	_, _, router := newTestAPI(t)

	big := bytes.Repeat([]byte("x"), (1<<20)+1)
	body, ct := multipartBody(t, "files", map[string][]byte{"big.pdf": big})
	rec := doRequest(router, http.MethodPost, "/api/upload", body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUploadRequiresFiles(t *testing.T) {
	_, _, router := newTestAPI(t)

	body, ct := multipartBody(t, "unrelated_field", map[string][]byte{"a.pdf": []byte("x")})
	rec := doRequest(router, http.MethodPost, "/api/upload", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no files provided")
}

func TestAnalyzeQueuesDocument(t *testing.T) {
	st, runner, router := newTestAPI(t)
	seedDocument(st, "doc-1", "g-1", models.DocStatusUploaded)

	rec := doRequest(router, http.MethodPost, "/api/analyze/doc-1", nil, "")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	runner.waitFor(t, 1)
	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Equal(t, []string{"doc-1"}, runner.documents)
}

func TestAnalyzeConflictsWhileProcessing(t *testing.T) {
	st, runner, router := newTestAPI(t)
	seedDocument(st, "doc-1", "g-1", models.DocStatusProcessing)

	rec := doRequest(router, http.MethodPost, "/api/analyze/doc-1", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.Empty(t, runner.documents)
}

func TestAnalyzeUnknownDocument(t *testing.T) {
	_, _, router := newTestAPI(t)
	rec := doRequest(router, http.MethodPost, "/api/analyze/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnalyzeGroupQueuesIdleDocumentsOnly(t *testing.T) {
	st, runner, router := newTestAPI(t)
	seedDocument(st, "doc-1", "g-1", models.DocStatusUploaded)
	seedDocument(st, "doc-2", "g-1", models.DocStatusProcessing)
	seedDocument(st, "doc-3", "g-1", models.DocStatusFailed)

	rec := doRequest(router, http.MethodPost, "/api/analyze/group/g-1", nil, "")
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		Documents int `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Documents)

	runner.waitFor(t, 2)
	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.ElementsMatch(t, []string{"doc-1", "doc-3"}, runner.documents)
}

func TestOverallStatus(t *testing.T) {
	doc := func(status string) models.Document { return models.Document{Status: status} }
	agents := func(status string) map[string]string {
		out := map[string]string{}
		for _, at := range models.GroupAgentTypes {
			out[at] = status
		}
		return out
	}

	tests := []struct {
		name   string
		docs   []models.Document
		agents map[string]string
		want   string
	}{
		{
			name: "fresh group", want: "uploaded",
			docs:   []models.Document{doc(models.DocStatusUploaded), doc(models.DocStatusUploaded)},
			agents: agents(models.AgentStatusPending),
		},
		{
			name: "one in flight", want: "processing",
			docs:   []models.Document{doc(models.DocStatusCompleted), doc(models.DocStatusProcessing)},
			agents: agents(models.AgentStatusPending),
		},
		{
			name: "docs done but group agents pending", want: "group_processing",
			docs:   []models.Document{doc(models.DocStatusCompleted), doc(models.DocStatusCompleted)},
			agents: agents(models.AgentStatusPending),
		},
		{
			name: "group agent running", want: "group_processing",
			docs: []models.Document{doc(models.DocStatusCompleted), doc(models.DocStatusCompleted)},
			agents: map[string]string{
				models.AgentTampering: models.AgentStatusCompleted,
				models.AgentFraud:     models.AgentStatusRunning,
				models.AgentInsights:  models.AgentStatusPending,
			},
		},
		{
			name: "everything done", want: "completed",
			docs:   []models.Document{doc(models.DocStatusCompleted), doc(models.DocStatusCompleted)},
			agents: agents(models.AgentStatusCompleted),
		},
		{
			name: "single document skips group phase", want: "completed",
			docs:   []models.Document{doc(models.DocStatusCompleted)},
			agents: agents(models.AgentStatusPending),
		},
		{
			name: "every document failed", want: "failed",
			docs:   []models.Document{doc(models.DocStatusFailed), doc(models.DocStatusFailed)},
			agents: agents(models.AgentStatusPending),
		},
		{
			name: "partial failure without group phase", want: "completed",
			docs:   []models.Document{doc(models.DocStatusCompleted), doc(models.DocStatusFailed)},
			agents: agents(models.AgentStatusPending),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, overallStatus(tc.docs, tc.agents))
		})
	}
}

func TestGroupStatusEndpoint(t *testing.T) {
	st, _, router := newTestAPI(t)
	seedDocument(st, "doc-1", "g-1", models.DocStatusCompleted)
	seedDocument(st, "doc-2", "g-1", models.DocStatusCompleted)
	st.groupResults["g-1"] = []models.GroupAgentResult{
		{AgentType: models.AgentTampering, Status: models.AgentStatusCompleted},
		{AgentType: models.AgentFraud, Status: models.AgentStatusRunning},
	}

	rec := doRequest(router, http.MethodGet, "/api/status/group/g-1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		OverallStatus string            `json:"overall_status"`
		GroupAgents   map[string]string `json:"group_agents"`
		Documents     []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"documents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "group_processing", resp.OverallStatus)
	assert.Len(t, resp.Documents, 2)
	assert.Equal(t, models.AgentStatusRunning, resp.GroupAgents[models.AgentFraud])
	assert.Equal(t, models.AgentStatusPending, resp.GroupAgents[models.AgentInsights])
}

func TestResultsDispatch(t *testing.T) {
	st, _, router := newTestAPI(t)
	seedDocument(st, "doc-1", "g-1", models.DocStatusCompleted)
	st.results["doc-1|fraud"] = &models.AgentResult{
		DocumentID: "doc-1", AgentType: models.AgentFraud,
		Status: models.AgentStatusCompleted, RiskLevel: models.RiskLow,
	}
	st.groupResults["g-1"] = []models.GroupAgentResult{
		{AgentType: models.AgentInsights, Status: models.AgentStatusCompleted},
	}
	st.aggregated["g-1"] = &models.AggregatedMetrics{UploadGroupID: "g-1", TotalStatements: 1}

	t.Run("single agent result", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/api/results/doc-1/fraud", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var res models.AgentResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.Equal(t, models.AgentFraud, res.AgentType)
	})

	t.Run("unknown agent type", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/api/results/doc-1/astrology", nil, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing result", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/api/results/doc-1/layout", nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("document results", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/api/results/doc-1", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Document models.Document      `json:"document"`
			Agents   []models.AgentResult `json:"agents"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "doc-1", resp.Document.ID)
		assert.Len(t, resp.Agents, 1)
	})

	t.Run("group results", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/api/results/group/g-1", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp struct {
			Documents         []json.RawMessage         `json:"documents"`
			GroupAgents       []models.GroupAgentResult `json:"group_agents"`
			AggregatedMetrics *models.AggregatedMetrics `json:"aggregated_metrics"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Len(t, resp.Documents, 1)
		require.Len(t, resp.GroupAgents, 1)
		require.NotNil(t, resp.AggregatedMetrics)
		assert.Equal(t, 1, resp.AggregatedMetrics.TotalStatements)
	})
}

func TestTransactionsFilteringAndPaging(t *testing.T) {
	st, _, router := newTestAPI(t)
	seedDocument(st, "doc-1", "g-1", models.DocStatusCompleted)
	for i := 0; i < 5; i++ {
		st.txns["doc-1"] = append(st.txns["doc-1"], models.RawTransaction{
			DocumentID: "doc-1", Type: models.TxnCredit, Category: "sales", Amount: float64(100 + i),
		})
	}
	st.txns["doc-1"] = append(st.txns["doc-1"], models.RawTransaction{
		DocumentID: "doc-1", Type: models.TxnDebit, Category: "rent", Amount: 900,
	})

	rec := doRequest(router, http.MethodGet, "/api/transactions/doc-1?limit=2&offset=1&transaction_type=credit", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Total        int                     `json:"total"`
		Limit        int                     `json:"limit"`
		Offset       int                     `json:"offset"`
		Transactions []models.RawTransaction `json:"transactions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.Total)
	assert.Equal(t, 2, resp.Limit)
	assert.Equal(t, 1, resp.Offset)
	require.Len(t, resp.Transactions, 2)
	assert.Equal(t, 101.0, resp.Transactions[0].Amount)

	assert.Equal(t, "credit", st.lastPage.TransactionType)
}

func TestGroupMetrics(t *testing.T) {
	st, _, router := newTestAPI(t)
	seedDocument(st, "doc-1", "g-1", models.DocStatusCompleted)
	st.metrics["doc-1"] = &models.StatementMetrics{DocumentID: "doc-1", UploadGroupID: "g-1"}
	st.aggregated["g-1"] = &models.AggregatedMetrics{UploadGroupID: "g-1", TotalStatements: 1}

	rec := doRequest(router, http.MethodGet, "/api/metrics/group/g-1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		AggregatedMetrics *models.AggregatedMetrics `json:"aggregated_metrics"`
		Statements        []models.StatementMetrics `json:"statements"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.AggregatedMetrics)
	assert.Len(t, resp.Statements, 1)

	rec = doRequest(router, http.MethodGet, "/api/metrics/group/empty", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReportEndpoint(t *testing.T) {
	st, _, router := newTestAPI(t)
	seedDocument(st, "doc-1", "g-1", models.DocStatusCompleted)

	t.Run("missing insights", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/api/report/doc-1", nil, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	st.results["doc-1|insights"] = &models.AgentResult{
		DocumentID: "doc-1", AgentType: models.AgentInsights,
		Status: models.AgentStatusCompleted, RiskLevel: models.RiskLow,
		Results: map[string]interface{}{
			"narrative": map[string]interface{}{
				"executive_summary": "Stable month with positive net flow.",
			},
		},
	}

	t.Run("rendered report", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/api/report/doc-1", nil, "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			HTML     string `json:"html"`
			Abstract string `json:"abstract"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.HTML, "<h2>Executive Summary</h2>")
		assert.Contains(t, resp.Abstract, "Stable month")
	})
}

func TestDeleteDocumentRemovesStoredFile(t *testing.T) {
	st, _, router := newTestAPI(t)

	path := filepath.Join(t.TempDir(), "doc-1.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	st.docs["doc-1"] = &models.Document{ID: "doc-1", FilePath: path}
	st.docOrder = append(st.docOrder, "doc-1")

	rec := doRequest(router, http.MethodDelete, "/api/documents/doc-1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.NoFileExists(t, path)
	_, err := st.Document(context.Background(), "doc-1")
	assert.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	st := newMemStore()
	cfg := &config.Settings{APIPrefix: "/api", APIAuthToken: "secret-token", MaxFileSizeMB: 1, UploadDir: t.TempDir()}
	router := SetupRouter(&Handler{Store: st, Runner: newStubRunner(), Cfg: cfg})

	t.Run("missing header", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/api/documents", nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
		req.Header.Set("Authorization", "Bearer secret-token")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/documents", nil)
		req.Header.Set("Authorization", "Token secret-token")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
