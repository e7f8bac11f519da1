package extract

import (
	"math"
	"sort"

	"statement_analysis/pkg/models"
)

// ComputeMetrics derives the per-statement aggregates from canonical
// transactions plus the extracted account info. Opening/closing balances
// default to the first/last known balance when no explicit marker exists.
func ComputeMetrics(txns []Transaction, info AccountInfo) models.StatementMetrics {
	var credits, debits []Transaction
	var creditAmounts, debitAmounts, balances []float64
	var opening, closing *float64

	for i := range txns {
		t := txns[i]
		switch t.Type {
		case models.TxnCredit:
			credits = append(credits, t)
			if t.Deposit != nil {
				creditAmounts = append(creditAmounts, *t.Deposit)
			}
		case models.TxnDebit:
			debits = append(debits, t)
			if t.Withdrawal != nil {
				debitAmounts = append(debitAmounts, *t.Withdrawal)
			}
		case models.TxnOpeningBalance:
			opening = t.Balance
		case models.TxnClosingBalance:
			closing = t.Balance
		}
		if t.Balance != nil {
			balances = append(balances, *t.Balance)
		}
	}

	if opening == nil && len(balances) > 0 {
		opening = floatPtr(balances[0])
	}
	if closing == nil && len(balances) > 0 {
		closing = floatPtr(balances[len(balances)-1])
	}

	var cashDepN, cashWdN, chequeWdN int
	var cashDepSum, cashWdSum, chequeWdSum, feesSum float64
	for _, t := range credits {
		if IsCashTransaction(t.Description) {
			cashDepN++
			if t.Deposit != nil {
				cashDepSum += *t.Deposit
			}
		}
	}
	for _, t := range debits {
		if IsCashTransaction(t.Description) {
			cashWdN++
			if t.Withdrawal != nil {
				cashWdSum += *t.Withdrawal
			}
		}
		if IsChequeTransaction(t.Description) {
			chequeWdN++
			if t.Withdrawal != nil {
				chequeWdSum += *t.Withdrawal
			}
		}
		if Categorize(t.Description) == "fees_charges" {
			if t.Withdrawal != nil {
				feesSum += *t.Withdrawal
			}
		}
	}

	m := models.StatementMetrics{
		AccountHolder:     info.AccountHolder,
		Bank:              info.Bank,
		AccountNumber:     info.AccountNumber,
		StatementPeriod:   info.StatementPeriod,
		MonthsOfStatement: info.StatementPeriod,

		OpeningBalance: opening,
		ClosingBalance: closing,
		MaxEODBalance:  maxPtr(balances),
		MinEODBalance:  minPtr(balances),
		AvgEODBalance:  meanPtr(balances),

		TotalNoOfCreditTransactions:     len(credits),
		TotalAmountOfCreditTransactions: round2(sum(creditAmounts)),
		TotalNoOfDebitTransactions:      len(debits),
		TotalAmountOfDebitTransactions:  round2(sum(debitAmounts)),
		AverageDeposit:                  round2(mean(creditAmounts)),
		AverageWithdrawal:               round2(mean(debitAmounts)),
		MaxDebitTransaction:             maxOrZero(debitAmounts),
		MinDebitTransaction:             minOrZero(debitAmounts),
		MaxCreditTransaction:            maxOrZero(creditAmounts),
		MinCreditTransaction:            minOrZero(creditAmounts),

		TotalNoOfCashDeposits:          cashDepN,
		TotalAmountOfCashDeposits:      round2(cashDepSum),
		TotalNoOfCashWithdrawals:       cashWdN,
		TotalAmountOfCashWithdrawals:   round2(cashWdSum),
		TotalNoOfChequeWithdrawals:     chequeWdN,
		TotalAmountOfChequeWithdrawals: round2(chequeWdSum),
		TotalFeesCharged:               round2(feesSum),
	}

	currencies := currencySet(txns)
	m.Currency = primaryCurrency(txns, currencies)
	if len(currencies) > 1 {
		m.CurrencyBreakdown = currencyBreakdown(txns, currencies)
	}
	return m
}

func currencySet(txns []Transaction) []string {
	seen := map[string]bool{}
	for _, t := range txns {
		seen[currencyOf(t)] = true
	}
	out := make([]string, 0, len(seen))
	for ccy := range seen {
		out = append(out, ccy)
	}
	sort.Strings(out)
	return out
}

func currencyOf(t Transaction) string {
	if t.Currency != "" {
		return t.Currency
	}
	return "SGD"
}

// primaryCurrency is the one with the most credit/debit transactions.
func primaryCurrency(txns []Transaction, currencies []string) string {
	if len(currencies) == 0 {
		return "SGD"
	}
	best := currencies[0]
	bestCount := -1
	for _, ccy := range currencies {
		count := 0
		for _, t := range txns {
			if currencyOf(t) == ccy && (t.Type == models.TxnCredit || t.Type == models.TxnDebit) {
				count++
			}
		}
		if count > bestCount {
			best = ccy
			bestCount = count
		}
	}
	return best
}

func currencyBreakdown(txns []Transaction, currencies []string) map[string]models.CurrencyMetrics {
	out := map[string]models.CurrencyMetrics{}
	for _, ccy := range currencies {
		var creditN, debitN, txnCount int
		var creditSum, debitSum float64
		var balances []float64
		var opening, closing *float64
		for _, t := range txns {
			if currencyOf(t) != ccy {
				continue
			}
			switch t.Type {
			case models.TxnCredit:
				creditN++
				txnCount++
				if t.Deposit != nil {
					creditSum += *t.Deposit
				}
			case models.TxnDebit:
				debitN++
				txnCount++
				if t.Withdrawal != nil {
					debitSum += *t.Withdrawal
				}
			case models.TxnOpeningBalance:
				opening = t.Balance
			case models.TxnClosingBalance:
				closing = t.Balance
			}
			if t.Balance != nil {
				balances = append(balances, *t.Balance)
			}
		}
		if opening == nil && len(balances) > 0 {
			opening = floatPtr(balances[0])
		}
		if closing == nil && len(balances) > 0 {
			closing = floatPtr(balances[len(balances)-1])
		}
		out[ccy] = models.CurrencyMetrics{
			Currency:          ccy,
			OpeningBalance:    opening,
			ClosingBalance:    closing,
			TotalCredits:      creditN,
			TotalCreditAmount: round2(creditSum),
			TotalDebits:       debitN,
			TotalDebitAmount:  round2(debitSum),
			MaxBalance:        maxPtr(balances),
			MinBalance:        minPtr(balances),
			AvgBalance:        meanPtr(balances),
			TransactionCount:  txnCount,
		}
	}
	return out
}

// BuildAggregatedMetrics rolls statement metrics for one group up into the
// cross-statement aggregate, including the monthly chart arrays keyed by
// statement period.
func BuildAggregatedMetrics(groupID string, all []models.StatementMetrics) *models.AggregatedMetrics {
	if len(all) == 0 {
		return nil
	}

	agg := &models.AggregatedMetrics{
		UploadGroupID:   groupID,
		AccountHolder:   all[0].AccountHolder,
		Bank:            all[0].Bank,
		AccountNumber:   all[0].AccountNumber,
		Currency:        orDefault(all[0].Currency, "SGD"),
		TotalStatements: len(all),
		PeriodCovered:   all[0].StatementPeriod,
	}
	if len(all) > 1 {
		agg.PeriodCovered = all[0].StatementPeriod + " - " + all[len(all)-1].StatementPeriod
	}

	var maxEOD, minEOD, avgEOD, avgOpen, avgClose []float64
	var avgDeposits, avgWithdrawals []float64
	for _, m := range all {
		if m.MaxEODBalance != nil {
			maxEOD = append(maxEOD, *m.MaxEODBalance)
		}
		if m.MinEODBalance != nil {
			minEOD = append(minEOD, *m.MinEODBalance)
		}
		if m.AvgEODBalance != nil {
			avgEOD = append(avgEOD, *m.AvgEODBalance)
		}
		if m.OpeningBalance != nil {
			avgOpen = append(avgOpen, *m.OpeningBalance)
		}
		if m.ClosingBalance != nil {
			avgClose = append(avgClose, *m.ClosingBalance)
		}
		avgDeposits = append(avgDeposits, m.AverageDeposit)
		avgWithdrawals = append(avgWithdrawals, m.AverageWithdrawal)

		agg.TotalCreditTransactions += m.TotalNoOfCreditTransactions
		agg.TotalCreditAmount += m.TotalAmountOfCreditTransactions
		agg.TotalDebitTransactions += m.TotalNoOfDebitTransactions
		agg.TotalDebitAmount += m.TotalAmountOfDebitTransactions
		agg.OverallMaxDebit = math.Max(agg.OverallMaxDebit, m.MaxDebitTransaction)
		agg.OverallMaxCredit = math.Max(agg.OverallMaxCredit, m.MaxCreditTransaction)

		agg.TotalCashDeposits += m.TotalNoOfCashDeposits
		agg.TotalCashDepositAmount += m.TotalAmountOfCashDeposits
		agg.TotalCashWithdrawals += m.TotalNoOfCashWithdrawals
		agg.TotalCashWithdrawalAmount += m.TotalAmountOfCashWithdrawals
		agg.TotalChequeWithdrawals += m.TotalNoOfChequeWithdrawals
		agg.TotalChequeWithdrawalAmount += m.TotalAmountOfChequeWithdrawals
		agg.TotalFees += m.TotalFeesCharged
	}

	agg.OverallMaxEODBalance = maxPtr(maxEOD)
	agg.OverallMinEODBalance = minPtr(minEOD)
	agg.OverallAvgEODBalance = meanPtr(avgEOD)
	agg.AvgOpeningBalance = meanPtr(avgOpen)
	agg.AvgClosingBalance = meanPtr(avgClose)
	agg.OverallAvgDeposit = round2(mean(avgDeposits))
	agg.OverallAvgWithdrawal = round2(mean(avgWithdrawals))
	agg.TotalCreditAmount = round2(agg.TotalCreditAmount)
	agg.TotalDebitAmount = round2(agg.TotalDebitAmount)
	agg.TotalCashDepositAmount = round2(agg.TotalCashDepositAmount)
	agg.TotalCashWithdrawalAmount = round2(agg.TotalCashWithdrawalAmount)
	agg.TotalChequeWithdrawalAmount = round2(agg.TotalChequeWithdrawalAmount)
	agg.TotalFees = round2(agg.TotalFees)

	agg.MonthlyCreditTotals = make([]models.MonthlyAmount, 0, len(all))
	agg.MonthlyDebitTotals = make([]models.MonthlyAmount, 0, len(all))
	agg.MonthlyBalances = make([]models.MonthlyBalance, 0, len(all))
	for _, m := range all {
		label := orDefault(m.StatementPeriod, m.DocumentID)
		agg.MonthlyCreditTotals = append(agg.MonthlyCreditTotals, models.MonthlyAmount{
			Month: label, Amount: m.TotalAmountOfCreditTransactions,
		})
		agg.MonthlyDebitTotals = append(agg.MonthlyDebitTotals, models.MonthlyAmount{
			Month: label, Amount: m.TotalAmountOfDebitTransactions,
		})
		mb := models.MonthlyBalance{Month: label}
		if m.OpeningBalance != nil {
			mb.Opening = *m.OpeningBalance
		}
		if m.ClosingBalance != nil {
			mb.Closing = *m.ClosingBalance
		}
		agg.MonthlyBalances = append(agg.MonthlyBalances, mb)
	}

	return agg
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func sum(vals []float64) float64 {
	total := 0.0
	for _, v := range vals {
		total += v
	}
	return total
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return sum(vals) / float64(len(vals))
}

func meanPtr(vals []float64) *float64 {
	if len(vals) == 0 {
		return nil
	}
	return floatPtr(round2(mean(vals)))
}

func maxPtr(vals []float64) *float64 {
	if len(vals) == 0 {
		return nil
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return &m
}

func minPtr(vals []float64) *float64 {
	if len(vals) == 0 {
		return nil
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return &m
}

func maxOrZero(vals []float64) float64 {
	if p := maxPtr(vals); p != nil {
		return *p
	}
	return 0
}

func minOrZero(vals []float64) float64 {
	if p := minPtr(vals); p != nil {
		return *p
	}
	return 0
}
