package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement_analysis/pkg/models"
)

func completedInsights() *models.AgentResult {
	return &models.AgentResult{
		AgentType: models.AgentInsights,
		Status:    models.AgentStatusCompleted,
		RiskLevel: models.RiskLow,
		Results: map[string]interface{}{
			"narrative": map[string]interface{}{
				"executive_summary": "Healthy cash position with steady revenue.",
				"key_strengths":     "Consistent salary inflows.",
				"key_concerns":      "Rising rent share of spend.",
				"recommendations":   []interface{}{"Negotiate rent terms", "Maintain reserve buffer"},
			},
			"business_health": map[string]interface{}{
				"assessment": "Strong - healthy cash flows with positive trajectory",
			},
		},
	}
}

func TestFromInsightsRendersSections(t *testing.T) {
	rep, err := FromInsights(completedInsights())
	require.NoError(t, err)

	assert.Contains(t, rep.HTML, "<h1>Financial Insights Report</h1>")
	assert.Contains(t, rep.HTML, "<h2>Executive Summary</h2>")
	assert.Contains(t, rep.HTML, "<li>Negotiate rent terms</li>")
	assert.Contains(t, rep.HTML, "<strong>low</strong>")
	assert.Contains(t, rep.Abstract, "Healthy cash position")
}

func TestFromInsightsIncludesTrendSectionWhenPresent(t *testing.T) {
	res := completedInsights()
	narrative := res.Results["narrative"].(map[string]interface{})
	narrative["trend_analysis"] = "Balances climbed month over month."

	rep, err := FromInsights(res)
	require.NoError(t, err)
	assert.Contains(t, rep.HTML, "<h2>Trend Analysis</h2>")
}

func TestFromInsightsRejectsIncompleteResult(t *testing.T) {
	res := completedInsights()
	res.Status = models.AgentStatusFailed
	_, err := FromInsights(res)
	assert.Error(t, err)

	_, err = FromInsights(&models.AgentResult{Status: models.AgentStatusCompleted, Results: map[string]interface{}{}})
	assert.Error(t, err)
}

func TestRenderStripsActiveContent(t *testing.T) {
	rep, err := Render("# Title\n\nBody text.\n\n<script>alert(1)</script>\n\n<iframe src=\"x\"></iframe>")
	require.NoError(t, err)

	assert.NotContains(t, rep.HTML, "<script>")
	assert.NotContains(t, rep.HTML, "<iframe")
	assert.Contains(t, rep.HTML, "Body text.")
}

func TestRenderUnwrapsFencedNarrative(t *testing.T) {
	rep, err := Render("```markdown\n# Wrapped\n\nInner text.\n```")
	require.NoError(t, err)
	assert.Contains(t, rep.HTML, "<h1>Wrapped</h1>")
}

func TestAbstractCapsOnWordBoundary(t *testing.T) {
	long := strings.Repeat("transaction volume remained stable ", 20)
	rep, err := Render(long)
	require.NoError(t, err)

	assert.LessOrEqual(t, len(rep.Abstract), abstractLimit+3)
	assert.True(t, strings.HasSuffix(rep.Abstract, "..."))
	assert.NotContains(t, rep.Abstract, "  ")
}
