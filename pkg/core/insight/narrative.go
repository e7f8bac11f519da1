package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"statement_analysis/pkg/core/agent"
	"statement_analysis/pkg/core/utils"
)

// Narrative is the model-generated analyst commentary. TrendAnalysis is
// only requested in group mode.
type Narrative struct {
	ExecutiveSummary   string   `json:"executive_summary"`
	SpendingAnalysis   string   `json:"spending_analysis"`
	IncomeAnalysis     string   `json:"income_analysis"`
	CashFlowAssessment string   `json:"cash_flow_assessment"`
	RiskObservations   string   `json:"risk_observations"`
	TrendAnalysis      string   `json:"trend_analysis,omitempty"`
	Recommendations    []string `json:"recommendations"`
}

func fallbackNarrative() *Narrative {
	return &Narrative{
		ExecutiveSummary: "Narrative generation failed - see structured data for insights.",
		Recommendations:  []string{},
	}
}

// narrativeInput carries the summarised sections the prompt embeds.
type narrativeInput struct {
	AccountHolder     string
	Bank              string
	Period            string
	OpeningBalance    float64
	ClosingBalance    float64
	TotalTransactions int
	Categories        map[string]interface{}
	CashFlow          map[string]interface{}
	Counterparties    map[string]interface{}
	Unusual           map[string]interface{}
	Health            map[string]interface{}
	MonthlyTrends     []map[string]interface{} // group mode only
	GroupMode         bool
}

// generateNarrative asks the text model for analyst commentary over the
// computed sections. Any failure degrades to the fixed fallback.
func generateNarrative(ctx context.Context, mgr *agent.Manager, in narrativeInput) *Narrative {
	prompt := buildNarrativePrompt(in)

	raw, err := mgr.ExecutePrompt(ctx, "insights", prompt,
		"You are a senior financial analyst. Return ONLY valid JSON.",
		map[string]interface{}{
			"temperature": 0.3,
			"max_tokens":  2000,
		})
	if err != nil {
		fmt.Printf("  narrative generation failed: %v\n", err)
		return fallbackNarrative()
	}

	var narrative Narrative
	if err := utils.SmartParse(raw, &narrative); err != nil {
		fmt.Printf("  narrative parse failed: %v\n", err)
		return fallbackNarrative()
	}
	if narrative.Recommendations == nil {
		narrative.Recommendations = []string{}
	}
	return &narrative
}

func buildNarrativePrompt(in narrativeInput) string {
	var sb strings.Builder

	sb.WriteString("You are a senior financial analyst reviewing a business bank statement.\n")
	sb.WriteString("Generate a concise but insightful narrative analysis based on the data below.\n\n")
	fmt.Fprintf(&sb, "**Account**: %s at %s\n", in.AccountHolder, in.Bank)
	fmt.Fprintf(&sb, "**Period**: %s\n", in.Period)
	fmt.Fprintf(&sb, "**Opening Balance**: %.2f\n", in.OpeningBalance)
	fmt.Fprintf(&sb, "**Closing Balance**: %.2f\n", in.ClosingBalance)
	fmt.Fprintf(&sb, "**Total Transactions**: %d\n\n", in.TotalTransactions)

	fmt.Fprintf(&sb, "**Category Breakdown (Top Debits)**:\n%s\n\n",
		jsonSection(firstN(in.Categories, "debit_categories", 5)))
	fmt.Fprintf(&sb, "**Top Vendors**:\n%s\n\n",
		jsonSection(firstN(in.Counterparties, "top_vendors", 8)))
	fmt.Fprintf(&sb, "**Top Customers/Senders**:\n%s\n\n",
		jsonSection(firstN(in.Counterparties, "top_customers", 5)))

	sb.WriteString("**Cash Flow**:\n")
	fmt.Fprintf(&sb, "- Total Inflow: %v\n", in.CashFlow["total_inflow"])
	fmt.Fprintf(&sb, "- Total Outflow: %v\n", in.CashFlow["total_outflow"])
	fmt.Fprintf(&sb, "- Net Flow: %v\n", in.CashFlow["net_flow"])
	fmt.Fprintf(&sb, "- Peak Inflow Day: %v\n", in.CashFlow["peak_inflow_day"])
	fmt.Fprintf(&sb, "- Peak Outflow Day: %v\n\n", in.CashFlow["peak_outflow_day"])

	fmt.Fprintf(&sb, "**Business Health Score**: %v/100 - %v\n", in.Health["score"], in.Health["assessment"])
	fmt.Fprintf(&sb, "**Key Indicators**: %s\n\n", jsonSection(in.Health["indicators"]))

	fmt.Fprintf(&sb, "**Unusual Transactions**: %v flags detected\n\n", in.Unusual["total_flags"])

	if in.GroupMode && len(in.MonthlyTrends) > 0 {
		fmt.Fprintf(&sb, "**Monthly Trends (across statements)**:\n%s\n\n", jsonSection(in.MonthlyTrends))
	}

	sb.WriteString("Return a JSON object with these keys:\n{\n")
	sb.WriteString(`  "executive_summary": "2-3 sentence high-level summary",` + "\n")
	sb.WriteString(`  "spending_analysis": "3-4 sentences on spending patterns and major expense categories",` + "\n")
	sb.WriteString(`  "income_analysis": "2-3 sentences on income sources and patterns",` + "\n")
	sb.WriteString(`  "cash_flow_assessment": "2-3 sentences on cash flow health, burn rate, and trajectory",` + "\n")
	sb.WriteString(`  "risk_observations": "2-3 sentences on any concerning patterns or red flags",` + "\n")
	if in.GroupMode {
		sb.WriteString(`  "trend_analysis": "2-3 sentences on month-over-month trends across the statements",` + "\n")
	}
	sb.WriteString(`  "recommendations": ["recommendation 1", "recommendation 2", "recommendation 3"]` + "\n}\n")

	return sb.String()
}

// firstN slices a []map section stored under key down to n entries.
func firstN(section map[string]interface{}, key string, n int) interface{} {
	items, ok := section[key].([]map[string]interface{})
	if !ok {
		return section[key]
	}
	if len(items) > n {
		items = items[:n]
	}
	return items
}

func jsonSection(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}
