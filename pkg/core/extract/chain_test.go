package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func debitTxn(date string, amount, balance float64) Transaction {
	return Transaction{
		TransactionDate: date,
		ValueDate:       date,
		Description:     "FAST PAYMENT",
		Withdrawal:      floatPtr(amount),
		Balance:         floatPtr(balance),
		Type:            "debit",
	}
}

func creditTxn(date string, amount, balance float64) Transaction {
	return Transaction{
		TransactionDate: date,
		ValueDate:       date,
		Description:     "PAYNOW COLLECTION",
		Deposit:         floatPtr(amount),
		Balance:         floatPtr(balance),
		Type:            "credit",
	}
}

// chainedTxns builds n alternating transactions with a perfect balance
// chain starting from the given opening balance.
func chainedTxns(n int, opening float64) []Transaction {
	txns := make([]Transaction, 0, n)
	balance := opening
	for i := 0; i < n; i++ {
		amount := float64(100 + i*10)
		if i%2 == 0 {
			balance -= amount
			txns = append(txns, debitTxn("01 DEC", amount, balance))
		} else {
			balance += amount
			txns = append(txns, creditTxn("02 DEC", amount, balance))
		}
	}
	return txns
}

func TestValidateBalanceChainPerfect(t *testing.T) {
	txns := chainedTxns(10, 50000)
	report := ValidateBalanceChain(txns)
	assert.Equal(t, 9, report.TotalChecked)
	assert.Equal(t, 9, report.Valid)
	assert.Equal(t, 0, report.Invalid)
	assert.Equal(t, 100.0, report.ChainAccuracyPct)
	assert.Empty(t, report.Breaks)
	assert.Equal(t, 1, report.Sections)
}

func TestValidateBalanceChainRecordsBreaks(t *testing.T) {
	txns := chainedTxns(5, 10000)
	// Corrupt one balance mid-chain: breaks the transition into it and out
	// of it.
	txns[2].Balance = floatPtr(*txns[2].Balance + 500)
	report := ValidateBalanceChain(txns)
	assert.Equal(t, 4, report.TotalChecked)
	assert.Equal(t, 2, report.Invalid)
	assert.Len(t, report.Breaks, 2)
	assert.InDelta(t, 500, report.Breaks[0].Difference, 0.01)
}

func TestValidateBalanceChainMultiSection(t *testing.T) {
	// SGD section 0 and USD section 1 validate independently: the balance
	// jump between sections must not count as a break.
	sgd := chainedTxns(4, 50000)
	usd := chainedTxns(4, 2000)
	for i := range usd {
		usd[i].Currency = "USD"
		usd[i].AccountSection = 1
	}
	all := append(append([]Transaction{}, sgd...), usd...)

	report := ValidateBalanceChain(all)
	assert.Equal(t, 2, report.Sections)
	assert.Equal(t, 6, report.TotalChecked) // 3 transitions per section
	assert.Equal(t, 100.0, report.ChainAccuracyPct)
}

func TestValidateBalanceChainSectionsFromOpeningMarkers(t *testing.T) {
	opening := Transaction{Type: "opening_balance", Description: "BALANCE B/F", Balance: floatPtr(1000)}
	first := chainedTxns(3, 1000)
	secondOpening := Transaction{Type: "opening_balance", Description: "BALANCE B/F", Balance: floatPtr(99999)}
	second := chainedTxns(3, 99999)

	all := append([]Transaction{opening}, first...)
	all = append(all, secondOpening)
	all = append(all, second...)

	report := ValidateBalanceChain(all)
	assert.Equal(t, 2, report.Sections)
	assert.Equal(t, 100.0, report.ChainAccuracyPct)
}

func TestDeduplicateExact(t *testing.T) {
	a := debitTxn("15 NOV", 250.00, 12345.67)
	txns := []Transaction{a, a, creditTxn("16 NOV", 100, 12445.67)}
	out := Deduplicate(txns)
	assert.Len(t, out, 2)
}

func TestDeduplicateFuzzyOverlap(t *testing.T) {
	// Same balance, date, type, and amount but different description: the
	// overlapping-batch case the fuzzy pass exists for.
	a := debitTxn("15 NOV", 250.00, 12345.67)
	b := a
	b.Description = "FAST PAYMENT OTHR"
	txns := []Transaction{a, b}
	out := Deduplicate(txns)
	assert.Len(t, out, 1)
	assert.Equal(t, a.Description, out[0].Description)
}

func TestDeduplicateIdempotent(t *testing.T) {
	txns := chainedTxns(8, 30000)
	txns = append(txns, txns[3])
	once := Deduplicate(txns)
	twice := Deduplicate(once)
	assert.Equal(t, once, twice)
}

func TestDeduplicateKeepsOpeningBalances(t *testing.T) {
	// Opening markers with nil balance amounts must survive both passes.
	opening := Transaction{Type: "opening_balance", Description: "BALANCE B/F", Balance: floatPtr(5000)}
	txns := []Transaction{opening, debitTxn("01 DEC", 100, 4900)}
	assert.Len(t, Deduplicate(txns), 2)
}

func TestQuickChainScoreDetectsReversedOrder(t *testing.T) {
	// Newest-first listing: forward order chains poorly, reversed chains
	// perfectly.
	txns := chainedTxns(20, 80000)
	rev := reversed(txns)

	fwd := quickChainScore(rev)
	back := quickChainScore(reversed(rev))
	assert.Greater(t, back, fwd)
	t.Logf("forward=%d reversed=%d", fwd, back)
}

func TestComputeAccuracyPerfectChain(t *testing.T) {
	txns := chainedTxns(20, 80000)
	chain := ValidateBalanceChain(txns)
	assert.Equal(t, 100.0, chain.ChainAccuracyPct)

	report := ComputeAccuracy(txns, floatPtr(80000), txns[len(txns)-1].Balance, 900, 950, chain)
	assert.Equal(t, "A+", report.Grade)
	assert.GreaterOrEqual(t, report.OverallScore, 95.0)
	assert.Equal(t, 100.0, report.Breakdown["balance_chain"].Value)
	assert.Equal(t, 100.0, report.Breakdown["accounting_equation"].Value)
}

func TestComputeAccuracyMissingBalances(t *testing.T) {
	txns := []Transaction{
		{Type: "debit", Withdrawal: floatPtr(100)},
		{Type: "credit", Deposit: floatPtr(50)},
	}
	chain := ValidateBalanceChain(txns)
	report := ComputeAccuracy(txns, nil, nil, 50, 100, chain)
	assert.Equal(t, 0.0, report.Breakdown["opening_closing_present"].Value)
	assert.Equal(t, 0.0, report.Breakdown["balance_completeness"].Value)
	assert.Equal(t, 100.0, report.Breakdown["completeness"].Value)
}

func TestComputeAccuracyEquationPenalty(t *testing.T) {
	// Broken chain forces the accounting-equation path; a 1% relative
	// error costs 20 points on that signal.
	txns := chainedTxns(5, 10000)
	txns[2].Balance = floatPtr(*txns[2].Balance + 500)
	chain := ValidateBalanceChain(txns)

	opening := 10000.0
	closing := 10100.0
	credits := 300.0
	debits := 100.0 // expected closing 10200, off by 100 (~1%)
	report := ComputeAccuracy(txns, &opening, &closing, credits, debits, chain)
	assert.InDelta(t, 80.2, report.Breakdown["accounting_equation"].Value, 0.5)
}

func TestGradeBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{95, "A+"}, {94.9, "A"}, {90, "A"}, {89.9, "B"}, {80, "B"},
		{79.9, "C"}, {70, "C"}, {69.9, "D"}, {50, "D"}, {49.9, "F"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, gradeFor(tc.score), "score %.1f", tc.score)
	}
}
