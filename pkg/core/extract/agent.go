package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"statement_analysis/pkg/core/agent"
	"statement_analysis/pkg/core/config"
	"statement_analysis/pkg/core/pdf"
	"statement_analysis/pkg/models"
)

// Store is the slice of persistence the extraction agent needs.
type Store interface {
	ReplaceTransactions(ctx context.Context, documentID string, txns []models.RawTransaction) error
	SaveStatementMetrics(ctx context.Context, m *models.StatementMetrics) error
	StatementMetricsForGroup(ctx context.Context, groupID string) ([]models.StatementMetrics, error)
	SaveAggregatedMetrics(ctx context.Context, agg *models.AggregatedMetrics) error
}

// Agent runs the three-tier extraction cascade for one document and
// persists the canonical transactions plus statement metrics.
type Agent struct {
	Manager *agent.Manager
	Store   Store
	Cfg     *config.Settings
}

// Run executes the cascade: table reconstruction, then word-position column
// inference, then model-assisted parsing (with OCR for scanned documents).
// The layout context from the layout agent is advisory; extraction re-checks
// the scanned flag itself when absent.
func (a *Agent) Run(ctx context.Context, doc *models.Document, layoutCtx map[string]interface{}) (*models.AgentOutcome, error) {
	fmt.Printf("Extraction agent running for document %s\n", doc.ID)

	reader, err := pdf.Open(doc.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	defer reader.Close()

	isScanned := reader.IsScanned()
	if v, ok := layoutCtx["is_scanned"].(bool); ok {
		isScanned = v
	}

	var pages []pageInfo
	if isScanned {
		fmt.Println("  scanned PDF detected, running OCR via vision model")
		pages = ocrAllPages(ctx, a.Manager, doc.FilePath, reader.PageCount(), a.Cfg.PDFToImageDPI)
	} else {
		for i, text := range collectPageTexts(reader) {
			pages = append(pages, pageInfo{page: i + 1, text: text})
		}
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no text could be extracted from the PDF")
	}
	pageTexts := make([]string, len(pages))
	for i, p := range pages {
		pageTexts[i] = p.text
	}

	bank := detectBankFromLogo(ctx, a.Manager, doc.FilePath)
	if bank == "" {
		bank = detectBankFromText(pageTexts)
	}
	fmt.Printf("  detected bank: %s\n", bank)

	var tier *TierResult
	method := ""
	pagesProcessed := doc.PageCount

	if !isScanned {
		fmt.Println("  trying table-based extraction...")
		tier = extractFromTables(reader)
		if tier != nil {
			method = "table"
		}
	}
	if tier == nil && !isScanned {
		fmt.Println("  trying word-position extraction...")
		tier = extractFromWords(reader)
		if tier != nil {
			method = "words"
		}
	}

	var txns []Transaction
	var info AccountInfo

	if tier != nil {
		txns = tier.Transactions
		info = llmAccountInfo(ctx, a.Manager, firstPagesText(pageTexts))
		// Structured tiers are more reliable for identity fields; the model
		// fills what they missed.
		tierInfo := tier.AccountInfo
		tierInfo.merge(info)
		info = tierInfo
		txns = injectBalanceMarkers(txns, info)
	} else {
		method = "llm"
		if isScanned {
			method = "ocr+llm"
			fmt.Println("  scanned PDF, using OCR text + model parsing")
		} else {
			fmt.Println("  word-position extraction not available, using model text parsing")
		}

		info = llmAccountInfo(ctx, a.Manager, firstPagesText(pageTexts))

		batches := batchPages(pages, bank, 3, 0)
		fmt.Printf("  processing %d batches...\n", len(batches))
		for i, batch := range batches {
			batchTxns, err := extractTransactionsLLM(ctx, a.Manager, batch.text)
			if err != nil {
				// A failed batch is skipped; the remaining batches still run.
				fmt.Printf("  batch %d/%d failed: %v\n", i+1, len(batches), err)
				continue
			}
			txns = append(txns, batchTxns...)
		}
		pagesProcessed = len(batches)
	}

	if bank != "unknown" && bank != "" && info.Bank != bank {
		info.Bank = bank
	}

	txns = Deduplicate(txns)
	chain := ValidateBalanceChain(txns)
	fmt.Printf("  balance chain: %d/%d valid (%.1f%%)\n", chain.Valid, chain.TotalChecked, chain.ChainAccuracyPct)

	metrics := ComputeMetrics(txns, info)
	metrics.DocumentID = doc.ID
	metrics.UploadGroupID = doc.UploadGroupID

	accuracy := ComputeAccuracy(txns, metrics.OpeningBalance, metrics.ClosingBalance,
		metrics.TotalAmountOfCreditTransactions, metrics.TotalAmountOfDebitTransactions, chain)
	fmt.Printf("  extraction accuracy: %.1f/100 (grade %s)\n", accuracy.OverallScore, accuracy.Grade)

	if err := a.Store.ReplaceTransactions(ctx, doc.ID, toRawTransactions(doc, txns)); err != nil {
		return nil, fmt.Errorf("failed to store transactions: %w", err)
	}
	if err := a.Store.SaveStatementMetrics(ctx, &metrics); err != nil {
		return nil, fmt.Errorf("failed to store metrics: %w", err)
	}
	if doc.UploadGroupID != "" {
		if err := a.updateAggregatedMetrics(ctx, doc.UploadGroupID); err != nil {
			return nil, fmt.Errorf("failed to update aggregated metrics: %w", err)
		}
	}

	summary := buildSummary(info, metrics, len(txns), method, accuracy)
	return &models.AgentOutcome{
		Results: map[string]interface{}{
			"account_info":      info,
			"metrics":           metrics,
			"transaction_count": len(txns),
			"pages_processed":   pagesProcessed,
			"extraction_method": method,
			"accuracy":          accuracy,
		},
		Summary:   summary,
		RiskLevel: models.RiskLow,
	}, nil
}

// injectBalanceMarkers adds opening/closing marker rows from the account
// info table when the statement body carried none.
func injectBalanceMarkers(txns []Transaction, info AccountInfo) []Transaction {
	hasOpening, hasClosing := false, false
	for _, t := range txns {
		switch t.Type {
		case models.TxnOpeningBalance:
			hasOpening = true
		case models.TxnClosingBalance:
			hasClosing = true
		}
	}
	if info.OpeningBalance != nil && !hasOpening {
		marker := Transaction{
			TransactionDate: NormalizeDate(info.OpeningDate),
			ValueDate:       NormalizeDate(info.OpeningDate),
			Description:     "OPENING BALANCE",
			Balance:         info.OpeningBalance,
			Type:            models.TxnOpeningBalance,
		}
		txns = append([]Transaction{marker}, txns...)
	}
	if info.ClosingBalance != nil && !hasClosing {
		txns = append(txns, Transaction{
			TransactionDate: NormalizeDate(info.ClosingDate),
			ValueDate:       NormalizeDate(info.ClosingDate),
			Description:     "CLOSING BALANCE",
			Balance:         info.ClosingBalance,
			Type:            models.TxnClosingBalance,
		})
	}
	return txns
}

// toRawTransactions converts canonical transactions into persistence rows.
// Opening/closing markers are sectioning artifacts and are not persisted.
func toRawTransactions(doc *models.Document, txns []Transaction) []models.RawTransaction {
	out := make([]models.RawTransaction, 0, len(txns))
	for _, t := range txns {
		if t.Type != models.TxnCredit && t.Type != models.TxnDebit {
			continue
		}
		raw, _ := json.Marshal(t)
		out = append(out, models.RawTransaction{
			ID:            models.NewID(),
			DocumentID:    doc.ID,
			UploadGroupID: doc.UploadGroupID,
			Date:          t.Date(),
			Description:   t.Description,
			Type:          t.Type,
			Amount:        t.Amount(),
			Balance:       t.Balance,
			Reference:     t.Reference,
			Category:      Categorize(t.Description),
			Counterparty:  t.Counterparty,
			Channel:       t.Channel,
			IsCash:        IsCashTransaction(t.Description),
			IsCheque:      IsChequeTransaction(t.Description),
			Currency:      orDefault(t.Currency, "SGD"),
			PageNumber:    t.Page,
			RawText:       string(raw),
		})
	}
	return out
}

func (a *Agent) updateAggregatedMetrics(ctx context.Context, groupID string) error {
	all, err := a.Store.StatementMetricsForGroup(ctx, groupID)
	if err != nil {
		return err
	}
	agg := BuildAggregatedMetrics(groupID, all)
	if agg == nil {
		return nil
	}
	return a.Store.SaveAggregatedMetrics(ctx, agg)
}

func firstPagesText(pageTexts []string) string {
	limit := len(pageTexts)
	if limit > 2 {
		limit = 2
	}
	return strings.Join(pageTexts[:limit], "\n\n")
}

func buildSummary(info AccountInfo, m models.StatementMetrics, txnCount int, method string, accuracy AccuracyReport) string {
	parts := []string{
		"Bank: " + orDefault(info.Bank, "Unknown"),
		"Account: " + orDefault(info.AccountNumber, "Unknown"),
		"Holder: " + orDefault(info.AccountHolder, "Unknown"),
		"Period: " + orDefault(info.StatementPeriod, "Unknown"),
		fmt.Sprintf("Transactions: %d", txnCount),
		"Opening: " + fmtBalance(m.OpeningBalance),
		"Closing: " + fmtBalance(m.ClosingBalance),
		fmt.Sprintf("Total Credits: %.2f", m.TotalAmountOfCreditTransactions),
		fmt.Sprintf("Total Debits: %.2f", m.TotalAmountOfDebitTransactions),
		"Method: " + method,
		fmt.Sprintf("Accuracy: %.1f/100 (%s)", accuracy.OverallScore, accuracy.Grade),
	}
	if len(m.CurrencyBreakdown) > 0 {
		var ccys []string
		for ccy := range m.CurrencyBreakdown {
			ccys = append(ccys, ccy)
		}
		parts = append(parts, "Currencies: "+strings.Join(ccys, ", "))
	}
	return strings.Join(parts, " | ")
}

func fmtBalance(b *float64) string {
	if b == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", *b)
}
