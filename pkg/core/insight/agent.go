package insight

import (
	"context"
	"fmt"
	"sort"

	"statement_analysis/pkg/core/agent"
	"statement_analysis/pkg/models"
)

// Store is the slice of persistence the insights computations need.
type Store interface {
	TransactionsForDocument(ctx context.Context, documentID string) ([]models.RawTransaction, error)
	StatementMetricsForDocument(ctx context.Context, documentID string) (*models.StatementMetrics, error)
	TransactionsForGroup(ctx context.Context, groupID string) ([]models.RawTransaction, error)
	StatementMetricsForGroup(ctx context.Context, groupID string) ([]models.StatementMetrics, error)
}

// Agent produces the business-intelligence view of an extracted statement:
// category and cash-flow breakdowns, counterparty rankings, health scoring
// and a model-written narrative.
type Agent struct {
	Manager *agent.Manager
	Store   Store
}

// Run builds all insight sections for one document.
func (a *Agent) Run(ctx context.Context, doc *models.Document) (*models.AgentOutcome, error) {
	fmt.Printf("Insights agent starting for document %s\n", doc.ID)

	txns, err := a.Store.TransactionsForDocument(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	if len(txns) == 0 {
		return noDataOutcome(), nil
	}

	metrics, err := a.Store.StatementMetricsForDocument(ctx, doc.ID)
	if err != nil {
		metrics = nil
	}

	fmt.Printf("  analyzing %d transactions...\n", len(txns))
	return a.buildOutcome(ctx, txns, metrics, nil, nil), nil
}

// RunGroup pools transactions and metrics across the whole upload group
// and adds the cross-statement sections: monthly trends and the balance
// trajectory.
func (a *Agent) RunGroup(ctx context.Context, groupID string) (*models.AgentOutcome, error) {
	fmt.Printf("Insights agent (group mode) starting for group %s\n", groupID)

	txns, err := a.Store.TransactionsForGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load group transactions: %w", err)
	}
	if len(txns) == 0 {
		return noDataOutcome(), nil
	}

	allMetrics, err := a.Store.StatementMetricsForGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load group metrics: %w", err)
	}

	combined := combineMetrics(allMetrics)
	trends := monthlyTrends(txns)
	trajectory := balanceTrajectory(allMetrics)

	fmt.Printf("  analyzing %d transactions across %d statements...\n", len(txns), len(allMetrics))
	outcome := a.buildOutcome(ctx, txns, combined, trends, trajectory)
	outcome.Results["statement_count"] = len(allMetrics)
	return outcome, nil
}

// buildOutcome runs every section, the narrative last. trends/trajectory
// are nil outside group mode.
func (a *Agent) buildOutcome(ctx context.Context, txns []models.RawTransaction,
	metrics *models.StatementMetrics, trends, trajectory []map[string]interface{}) *models.AgentOutcome {

	categories := categoryAnalysis(txns)
	cashFlow := cashFlowAnalysis(txns)
	counterparties := counterpartyAnalysis(txns)
	unusual := unusualTransactions(txns)
	dayPatterns := dayOfMonthPatterns(txns)
	channels := channelAnalysis(txns)
	health := businessHealth(txns, metrics)

	in := narrativeInput{
		AccountHolder:     "Unknown",
		Bank:              "Unknown",
		Period:            "Unknown",
		TotalTransactions: len(txns),
		Categories:        categories,
		CashFlow:          cashFlow,
		Counterparties:    counterparties,
		Unusual:           unusual,
		Health:            health,
		MonthlyTrends:     trends,
		GroupMode:         trends != nil,
	}
	if metrics != nil {
		in.AccountHolder = metrics.AccountHolder
		in.Bank = metrics.Bank
		in.Period = metrics.StatementPeriod
		in.OpeningBalance = deref(metrics.OpeningBalance)
		in.ClosingBalance = deref(metrics.ClosingBalance)
	}

	fmt.Println("  generating narrative (text model)...")
	narrative := generateNarrative(ctx, a.Manager, in)

	risk := assessRisk(health, unusual)

	results := map[string]interface{}{
		"category_breakdown":    categories,
		"cash_flow":             cashFlow,
		"top_counterparties":    counterparties,
		"unusual_transactions":  unusual,
		"day_of_month_patterns": dayPatterns,
		"channel_analysis":      channels,
		"business_health":       health,
		"narrative":             narrative,
	}
	if trends != nil {
		results["monthly_trends"] = trends
	}
	if trajectory != nil {
		results["balance_trajectory"] = trajectory
	}

	summary := fmt.Sprintf("Period: %s | Transactions: %d | Net cash flow: %.2f | Top category: %v | Risk: %s",
		in.Period, len(txns), asFloat(cashFlow["net_flow"]), categories["top_debit_category"], risk)
	fmt.Printf("  insights complete - risk: %s\n", risk)

	return &models.AgentOutcome{
		Results:   results,
		Summary:   summary,
		RiskLevel: risk,
	}
}

// assessRisk combines the health score with the unusual-transaction flag
// count.
func assessRisk(health, unusual map[string]interface{}) string {
	score, _ := health["score"].(int)
	flags, _ := unusual["total_flags"].(int)

	switch {
	case score >= 70 && flags < 5:
		return models.RiskLow
	case score >= 50 && flags < 15:
		return models.RiskMedium
	case score >= 30:
		return models.RiskHigh
	default:
		return models.RiskCritical
	}
}

// monthlyTrends buckets the pooled transactions per month, ordered by
// calendar month.
func monthlyTrends(txns []models.RawTransaction) []map[string]interface{} {
	type trend struct {
		credits, debits         float64
		creditCount, debitCount int
	}
	byMonth := map[string]*trend{}
	for _, t := range txns {
		month := parseMonth(t.Date)
		if month == "" {
			continue
		}
		tr, ok := byMonth[month]
		if !ok {
			tr = &trend{}
			byMonth[month] = tr
		}
		switch t.Type {
		case models.TxnCredit:
			tr.credits += t.Amount
			tr.creditCount++
		case models.TxnDebit:
			tr.debits += t.Amount
			tr.debitCount++
		}
	}

	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return monthOrder[months[i]] < monthOrder[months[j]] })

	out := make([]map[string]interface{}, 0, len(months))
	for _, m := range months {
		tr := byMonth[m]
		out = append(out, map[string]interface{}{
			"month":        m,
			"credits":      round2(tr.credits),
			"debits":       round2(tr.debits),
			"net":          round2(tr.credits - tr.debits),
			"credit_count": tr.creditCount,
			"debit_count":  tr.debitCount,
		})
	}
	return out
}

// balanceTrajectory emits one row per statement in the order the store
// returned them (chronological).
func balanceTrajectory(allMetrics []models.StatementMetrics) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(allMetrics))
	for _, m := range allMetrics {
		opening := deref(m.OpeningBalance)
		closing := deref(m.ClosingBalance)
		out = append(out, map[string]interface{}{
			"document_id":     m.DocumentID,
			"period":          m.StatementPeriod,
			"opening_balance": round2(opening),
			"closing_balance": round2(closing),
			"net_change":      round2(closing - opening),
		})
	}
	return out
}

// combineMetrics folds per-statement metrics into one synthetic statement
// spanning the group: opening from the first, closing from the last, sums
// and minima across.
func combineMetrics(allMetrics []models.StatementMetrics) *models.StatementMetrics {
	if len(allMetrics) == 0 {
		return nil
	}

	first, last := allMetrics[0], allMetrics[len(allMetrics)-1]
	combined := &models.StatementMetrics{
		AccountHolder:  first.AccountHolder,
		Bank:           first.Bank,
		AccountNumber:  first.AccountNumber,
		Currency:       first.Currency,
		OpeningBalance: first.OpeningBalance,
		ClosingBalance: last.ClosingBalance,
	}

	if first.StatementPeriod == last.StatementPeriod {
		combined.StatementPeriod = first.StatementPeriod
	} else {
		combined.StatementPeriod = fmt.Sprintf("%s - %s", first.StatementPeriod, last.StatementPeriod)
	}

	for _, m := range allMetrics {
		combined.TotalNoOfCreditTransactions += m.TotalNoOfCreditTransactions
		combined.TotalAmountOfCreditTransactions += m.TotalAmountOfCreditTransactions
		combined.TotalNoOfDebitTransactions += m.TotalNoOfDebitTransactions
		combined.TotalAmountOfDebitTransactions += m.TotalAmountOfDebitTransactions
		combined.TotalNoOfCashDeposits += m.TotalNoOfCashDeposits
		combined.TotalAmountOfCashDeposits += m.TotalAmountOfCashDeposits
		combined.TotalNoOfCashWithdrawals += m.TotalNoOfCashWithdrawals
		combined.TotalAmountOfCashWithdrawals += m.TotalAmountOfCashWithdrawals
		combined.TotalFeesCharged += m.TotalFeesCharged
		if m.MinEODBalance != nil {
			if combined.MinEODBalance == nil || *m.MinEODBalance < *combined.MinEODBalance {
				v := *m.MinEODBalance
				combined.MinEODBalance = &v
			}
		}
		if m.MaxEODBalance != nil {
			if combined.MaxEODBalance == nil || *m.MaxEODBalance > *combined.MaxEODBalance {
				v := *m.MaxEODBalance
				combined.MaxEODBalance = &v
			}
		}
	}
	return combined
}

func noDataOutcome() *models.AgentOutcome {
	return &models.AgentOutcome{
		Results: map[string]interface{}{
			"transaction_count": 0,
		},
		Summary:   "No transactions available - no data to analyze.",
		RiskLevel: models.RiskLow,
	}
}

func asFloat(v interface{}) float64 {
	switch f := v.(type) {
	case float64:
		return f
	case int:
		return float64(f)
	}
	return 0
}
