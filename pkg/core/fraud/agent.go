package fraud

import (
	"context"
	"fmt"

	"statement_analysis/pkg/core/agent"
	"statement_analysis/pkg/models"
)

// Store is the slice of persistence the fraud checks need.
type Store interface {
	TransactionsForDocument(ctx context.Context, documentID string) ([]models.RawTransaction, error)
	StatementMetricsForDocument(ctx context.Context, documentID string) (*models.StatementMetrics, error)
	TransactionsForGroup(ctx context.Context, groupID string) ([]models.RawTransaction, error)
}

// Agent runs rule-based fraud checks over extracted transactions, plus one
// model-assisted counterparty review.
type Agent struct {
	Manager *agent.Manager
	Store   Store
}

// Run executes all eight checks against a single document's transactions.
func (a *Agent) Run(ctx context.Context, doc *models.Document) (*models.AgentOutcome, error) {
	fmt.Printf("Fraud agent starting for document %s\n", doc.ID)

	txns, err := a.Store.TransactionsForDocument(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	if len(txns) == 0 {
		return noTransactionsOutcome(), nil
	}

	metrics, err := a.Store.StatementMetricsForDocument(ctx, doc.ID)
	if err != nil {
		// metrics only refine the cash check; fall back to transaction flags
		metrics = nil
	}

	checks := a.runChecks(ctx, txns, metrics)
	risk, score, summary := computeRisk(checks)
	fmt.Printf("  fraud result: %s (score=%d) - %s\n", risk, score, summary)

	return &models.AgentOutcome{
		Results:   checkResults(checks, score),
		Summary:   summary,
		RiskLevel: risk,
	}, nil
}

// RunGroup pools every document's transactions and re-runs the checks over
// the combined set. Patterns spread thin across statements - duplicates
// split between months, structuring below per-statement noise - only show
// at this level.
func (a *Agent) RunGroup(ctx context.Context, groupID string) (*models.AgentOutcome, error) {
	fmt.Printf("Fraud agent (group mode) starting for group %s\n", groupID)

	txns, err := a.Store.TransactionsForGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load group transactions: %w", err)
	}
	if len(txns) < 2 {
		return noTransactionsOutcome(), nil
	}

	checks := a.runChecks(ctx, txns, nil)
	risk, score, summary := computeRisk(checks)
	fmt.Printf("  group fraud result: %s (score=%d)\n", risk, score)

	results := checkResults(checks, score)
	results["transaction_count"] = len(txns)
	return &models.AgentOutcome{
		Results:   results,
		Summary:   summary,
		RiskLevel: risk,
	}, nil
}

// runChecks executes the rule checks in fixed order, the model check last.
func (a *Agent) runChecks(ctx context.Context, txns []models.RawTransaction, metrics *models.StatementMetrics) []models.CheckResult {
	checks := []models.CheckResult{
		checkRoundAmounts(txns),
		checkDuplicates(txns),
		checkRapidSuccession(txns),
		checkLargeOutliers(txns),
		checkBalanceAnomalies(txns),
		checkCashHeavy(txns, metrics),
		checkTimingPatterns(txns),
	}
	fmt.Println("  running counterparty risk check (text model)...")
	return append(checks, checkCounterpartyRisk(ctx, a.Manager, txns))
}

func noTransactionsOutcome() *models.AgentOutcome {
	return &models.AgentOutcome{
		Results: map[string]interface{}{
			"checks":       []models.CheckResult{},
			"total_checks": 0,
		},
		Summary:   "No transactions available for fraud analysis.",
		RiskLevel: models.RiskLow,
	}
}
