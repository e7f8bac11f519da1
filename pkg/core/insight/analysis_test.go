package insight

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement_analysis/pkg/models"
)

func txn(date string, amount float64, txnType, category string) models.RawTransaction {
	return models.RawTransaction{Date: date, Amount: amount, Type: txnType, Category: category}
}

func balanceOf(v float64) *float64 { return &v }

func TestParseDay(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		{"01 DEC", 1},
		{"01-Sep-2025", 1},
		{"15/01/2025", 15},
		{"7 Nov", 7},
		{"BALANCE B/F", 0},
		{"", 0},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, parseDay(tc.date), tc.date)
	}
}

func TestParseMonth(t *testing.T) {
	assert.Equal(t, "SEP", parseMonth("01-Sep-2025"))
	assert.Equal(t, "DEC", parseMonth("01 DEC"))
	assert.Equal(t, "", parseMonth("no month here"))
	assert.Equal(t, "", parseMonth(""))
}

func TestCategoryAnalysis(t *testing.T) {
	txns := []models.RawTransaction{
		txn("01 SEP", 3000, models.TxnDebit, "rent"),
		txn("05 SEP", 500, models.TxnDebit, "utilities"),
		txn("06 SEP", 500, models.TxnDebit, "utilities"),
		txn("10 SEP", 8000, models.TxnCredit, "revenue"),
		txn("12 SEP", 100, models.TxnDebit, ""),
	}

	got := categoryAnalysis(txns)
	assert.Equal(t, 4100.0, got["total_debit_amount"])
	assert.Equal(t, 8000.0, got["total_credit_amount"])
	assert.Equal(t, "Rent & Lease", got["top_debit_category"])
	assert.Equal(t, "Business Revenue", got["top_credit_category"])
	assert.Equal(t, 3, got["debit_category_count"], "rent, utilities and the blank-category fallback")

	debitCats := got["debit_categories"].([]map[string]interface{})
	require.NotEmpty(t, debitCats)
	assert.Equal(t, "rent", debitCats[0]["category"])
	assert.InDelta(t, 73.2, debitCats[0]["percentage"].(float64), 0.01)

	utilities := debitCats[1]
	assert.Equal(t, 2, utilities["count"])
	assert.Equal(t, 1000.0, utilities["total"])

	assert.Equal(t, "Other / Uncategorized", debitCats[2]["label"])
}

func TestCashFlowAnalysis(t *testing.T) {
	txns := []models.RawTransaction{
		txn("01 SEP", 10000, models.TxnCredit, ""),
		txn("01 SEP", 2000, models.TxnDebit, ""),
		txn("16 SEP", 3000, models.TxnDebit, ""),
		txn("30 SEP", 500, models.TxnCredit, ""),
	}

	got := cashFlowAnalysis(txns)
	assert.Equal(t, 10500.0, got["total_inflow"])
	assert.Equal(t, 5000.0, got["total_outflow"])
	assert.Equal(t, 5500.0, got["net_flow"])
	assert.Equal(t, "positive", got["net_flow_direction"])
	assert.Equal(t, 1, got["peak_inflow_day"])
	assert.Equal(t, 16, got["peak_outflow_day"])

	daily := got["daily_flow"].([]map[string]interface{})
	require.Len(t, daily, 3)
	assert.Equal(t, 1, daily[0]["day"])
	assert.Equal(t, 8000.0, daily[0]["net"])

	weekly := got["weekly_breakdown"].([]map[string]interface{})
	require.Len(t, weekly, 4)
	assert.Equal(t, "week_1 (1-7)", weekly[0]["week"])
	assert.Equal(t, 10000.0, weekly[0]["inflow"])
	assert.Equal(t, 3000.0, weekly[2]["outflow"], "day 16 lands in week 3")
	assert.Equal(t, 500.0, weekly[3]["inflow"], "day 30 lands in week 4")
}

func TestCounterpartyAnalysis(t *testing.T) {
	txns := []models.RawTransaction{
		{Date: "01 SEP", Amount: 500, Type: models.TxnDebit, Counterparty: "SP SERVICES"},
		{Date: "08 SEP", Amount: 500, Type: models.TxnDebit, Counterparty: "SP SERVICES"},
		{Date: "15 SEP", Amount: 500, Type: models.TxnDebit, Counterparty: "SP SERVICES"},
		{Date: "02 SEP", Amount: 9000, Type: models.TxnDebit, Counterparty: "LANDLORD PTE LTD"},
		{Date: "05 SEP", Amount: 12000, Type: models.TxnCredit, Counterparty: "CLIENT A"},
		{Date: "20 SEP", Amount: 50, Type: models.TxnCredit, Counterparty: "unknown"},
		{Date: "21 SEP", Amount: 50, Type: models.TxnCredit, Counterparty: ""},
	}

	got := counterpartyAnalysis(txns)
	assert.Equal(t, 2, got["unique_vendor_count"])
	assert.Equal(t, 1, got["unique_customer_count"], "unknown and blank counterparties dropped")

	vendors := got["top_vendors"].([]map[string]interface{})
	require.Len(t, vendors, 2)
	assert.Equal(t, "LANDLORD PTE LTD", vendors[0]["name"], "ranked by total, not count")

	recurring := got["recurring_vendors"].([]map[string]interface{})
	require.Len(t, recurring, 1)
	assert.Equal(t, "SP SERVICES", recurring[0]["name"])
	assert.Equal(t, 3, recurring[0]["count"])
}

func TestUnusualTransactions(t *testing.T) {
	t.Run("large debit flagged at 3x average", func(t *testing.T) {
		txns := []models.RawTransaction{
			txn("01 SEP", 100, models.TxnDebit, ""),
			txn("02 SEP", 100, models.TxnDebit, ""),
			txn("03 SEP", 100, models.TxnDebit, ""),
			txn("04 SEP", 100, models.TxnDebit, ""),
			txn("05 SEP", 2000, models.TxnDebit, ""),
		}
		got := unusualTransactions(txns)
		large := got["large_transactions"].([]map[string]interface{})
		require.Len(t, large, 1)
		assert.Equal(t, "large_debit", large[0]["type"])
		assert.Equal(t, 2000.0, large[0]["amount"])
	})
	t.Run("round thousands collected", func(t *testing.T) {
		txns := []models.RawTransaction{
			txn("01 SEP", 5000, models.TxnDebit, ""),
			txn("02 SEP", 1234.56, models.TxnDebit, ""),
			txn("03 SEP", 999, models.TxnDebit, ""),
		}
		got := unusualTransactions(txns)
		round := got["round_number_transactions"].([]map[string]interface{})
		require.Len(t, round, 1)
		assert.Equal(t, 5000.0, round[0]["amount"])
	})
	t.Run("same day bidirectional movement", func(t *testing.T) {
		txns := []models.RawTransaction{
			txn("10 SEP", 8000, models.TxnCredit, ""),
			txn("10 SEP", 7500, models.TxnDebit, ""),
		}
		got := unusualTransactions(txns)
		flags := got["same_day_large_movements"].([]map[string]interface{})
		require.Len(t, flags, 1)
		assert.Equal(t, "10 SEP", flags[0]["date"])
	})
	t.Run("low balance once per date", func(t *testing.T) {
		txns := []models.RawTransaction{
			{Date: "10 SEP", Amount: 100, Type: models.TxnDebit, Balance: balanceOf(8000)},
			{Date: "10 SEP", Amount: 50, Type: models.TxnDebit, Balance: balanceOf(7950)},
			{Date: "11 SEP", Amount: 10, Type: models.TxnDebit, Balance: balanceOf(7940)},
		}
		got := unusualTransactions(txns)
		events := got["low_balance_events"].([]map[string]interface{})
		assert.Len(t, events, 2)
	})
}

func TestDayOfMonthPatterns(t *testing.T) {
	txns := []models.RawTransaction{
		txn("01 SEP", 100, models.TxnDebit, ""),
		txn("01 SEP", 200, models.TxnDebit, ""),
		txn("01 SEP", 50, models.TxnDebit, ""),
		txn("15 SEP", 5000, models.TxnCredit, ""),
	}

	got := dayOfMonthPatterns(txns)
	assert.Equal(t, 1, got["busiest_day"])
	assert.Equal(t, 15, got["quietest_day"])
	assert.Equal(t, 15, got["highest_value_day"])
	assert.Equal(t, 2, got["active_days"])

	pattern := got["daily_pattern"].([]map[string]interface{})
	require.Len(t, pattern, 2)
	assert.Equal(t, 3, pattern[0]["transaction_count"])
	assert.Equal(t, 350.0, pattern[0]["total_amount"])
}

func TestChannelAnalysis(t *testing.T) {
	txns := []models.RawTransaction{
		{Date: "01 SEP", Amount: 600, Type: models.TxnDebit, Channel: "FAST"},
		{Date: "02 SEP", Amount: 300, Type: models.TxnDebit, Channel: "GIRO"},
		{Date: "03 SEP", Amount: 100, Type: models.TxnDebit},
	}

	got := channelAnalysis(txns)
	assert.Equal(t, "FAST", got["dominant_channel"])
	assert.Equal(t, 3, got["total_channels"])

	channels := got["channels"].([]map[string]interface{})
	assert.Equal(t, 60.0, channels[0]["percentage"])
	assert.Equal(t, "Unknown", channels[2]["channel"])
}

func TestBusinessHealth(t *testing.T) {
	t.Run("no metrics", func(t *testing.T) {
		got := businessHealth(nil, nil)
		assert.Equal(t, 0, got["score"])
		assert.Equal(t, "Insufficient data", got["assessment"])
	})

	t.Run("healthy statement scores strong", func(t *testing.T) {
		metrics := &models.StatementMetrics{
			OpeningBalance:                  balanceOf(80000),
			ClosingBalance:                  balanceOf(95000),
			MinEODBalance:                   balanceOf(60000),
			TotalAmountOfCreditTransactions: 50000,
			TotalAmountOfDebitTransactions:  35000,
		}
		var txns []models.RawTransaction
		for day := 1; day <= 9; day++ {
			txns = append(txns, models.RawTransaction{
				Date: fmt.Sprintf("%02d SEP", day), Amount: 100, Type: models.TxnDebit,
			})
		}

		got := businessHealth(txns, metrics)
		// coverage 1.43 (+10+5), closing>=opening (+10), runway 2.71 (+5+5),
		// min balance covers 15 days (+5): 50 -> 90
		assert.Equal(t, 90, got["score"])
		assert.Contains(t, got["assessment"].(string), "Strong")

		indicators := got["indicators"].(map[string]interface{})
		assert.Equal(t, "growing", indicators["balance_trend"])
		assert.InDelta(t, 2.71, indicators["cash_runway_months"].(float64), 0.01)
	})

	t.Run("strained statement scores concern", func(t *testing.T) {
		metrics := &models.StatementMetrics{
			OpeningBalance:                  balanceOf(50000),
			ClosingBalance:                  balanceOf(2000),
			MinEODBalance:                   balanceOf(500),
			TotalAmountOfCreditTransactions: 10000,
			TotalAmountOfDebitTransactions:  58000,
		}
		got := businessHealth([]models.RawTransaction{txn("01 SEP", 100, models.TxnDebit, "")}, metrics)
		// coverage 0.17 (-15), closing < half opening (-10), min bal < 5000
		// (-10), runway 0.034 (-10): 50 -> 5
		assert.Equal(t, 5, got["score"])
		assert.Contains(t, got["assessment"].(string), "Concern")
	})
}

func TestAssessRisk(t *testing.T) {
	mk := func(score, flags int) (map[string]interface{}, map[string]interface{}) {
		return map[string]interface{}{"score": score}, map[string]interface{}{"total_flags": flags}
	}

	tests := []struct {
		name  string
		score int
		flags int
		want  string
	}{
		{"healthy and quiet", 85, 2, models.RiskLow},
		{"healthy but noisy", 85, 8, models.RiskMedium},
		{"middling", 55, 10, models.RiskMedium},
		{"weak", 40, 20, models.RiskHigh},
		{"failing", 10, 30, models.RiskCritical},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			health, unusual := mk(tc.score, tc.flags)
			assert.Equal(t, tc.want, assessRisk(health, unusual))
		})
	}
}

func TestMonthlyTrends(t *testing.T) {
	txns := []models.RawTransaction{
		txn("05 NOV", 10000, models.TxnCredit, ""),
		txn("12 NOV", 4000, models.TxnDebit, ""),
		txn("03 DEC", 12000, models.TxnCredit, ""),
		txn("20 DEC", 5000, models.TxnDebit, ""),
		txn("21 DEC", 1000, models.TxnDebit, ""),
	}

	trends := monthlyTrends(txns)
	require.Len(t, trends, 2)
	assert.Equal(t, "NOV", trends[0]["month"], "calendar ordering")
	assert.Equal(t, 6000.0, trends[0]["net"])
	assert.Equal(t, "DEC", trends[1]["month"])
	assert.Equal(t, 2, trends[1]["debit_count"])
	assert.Equal(t, 6000.0, trends[1]["net"])
}

func TestBalanceTrajectory(t *testing.T) {
	metrics := []models.StatementMetrics{
		{DocumentID: "doc-1", StatementPeriod: "01 Nov 2025 to 30 Nov 2025",
			OpeningBalance: balanceOf(80000), ClosingBalance: balanceOf(90000)},
		{DocumentID: "doc-2", StatementPeriod: "01 Dec 2025 to 31 Dec 2025",
			OpeningBalance: balanceOf(90000), ClosingBalance: balanceOf(84000)},
	}

	rows := balanceTrajectory(metrics)
	require.Len(t, rows, 2)
	assert.Equal(t, "doc-1", rows[0]["document_id"])
	assert.Equal(t, 10000.0, rows[0]["net_change"])
	assert.Equal(t, -6000.0, rows[1]["net_change"])
}

func TestCombineMetrics(t *testing.T) {
	assert.Nil(t, combineMetrics(nil))

	metrics := []models.StatementMetrics{
		{
			AccountHolder: "HOH JIA PTE. LTD.", Bank: "DBS",
			StatementPeriod: "01 Nov 2025 to 30 Nov 2025",
			OpeningBalance:  balanceOf(80000), ClosingBalance: balanceOf(90000),
			MinEODBalance:                   balanceOf(75000),
			TotalAmountOfCreditTransactions: 40000,
			TotalAmountOfDebitTransactions:  30000,
			TotalFeesCharged:                45,
		},
		{
			StatementPeriod: "01 Dec 2025 to 31 Dec 2025",
			OpeningBalance:  balanceOf(90000), ClosingBalance: balanceOf(84000),
			MinEODBalance:                   balanceOf(70000),
			TotalAmountOfCreditTransactions: 35000,
			TotalAmountOfDebitTransactions:  41000,
			TotalFeesCharged:                45,
		},
	}

	got := combineMetrics(metrics)
	require.NotNil(t, got)
	assert.Equal(t, "HOH JIA PTE. LTD.", got.AccountHolder)
	assert.Equal(t, 80000.0, *got.OpeningBalance)
	assert.Equal(t, 84000.0, *got.ClosingBalance)
	assert.Equal(t, 70000.0, *got.MinEODBalance)
	assert.Equal(t, 75000.0, got.TotalAmountOfCreditTransactions)
	assert.Equal(t, 71000.0, got.TotalAmountOfDebitTransactions)
	assert.Equal(t, 90.0, got.TotalFeesCharged)
	assert.Contains(t, got.StatementPeriod, " - ")
}

func TestBuildNarrativePromptGroupMode(t *testing.T) {
	in := narrativeInput{
		AccountHolder:  "HOH JIA PTE. LTD.",
		Bank:           "DBS",
		Period:         "Nov 2025 - Dec 2025",
		Categories:     map[string]interface{}{"debit_categories": []map[string]interface{}{}},
		CashFlow:       map[string]interface{}{"total_inflow": 75000.0},
		Counterparties: map[string]interface{}{},
		Unusual:        map[string]interface{}{"total_flags": 3},
		Health:         map[string]interface{}{"score": 72, "assessment": "Moderate"},
		MonthlyTrends:  []map[string]interface{}{{"month": "NOV"}},
		GroupMode:      true,
	}

	prompt := buildNarrativePrompt(in)
	assert.Contains(t, prompt, "HOH JIA PTE. LTD.")
	assert.Contains(t, prompt, "trend_analysis")
	assert.Contains(t, prompt, "Monthly Trends")

	in.GroupMode = false
	in.MonthlyTrends = nil
	prompt = buildNarrativePrompt(in)
	assert.NotContains(t, prompt, "trend_analysis")
}

func TestNoDataOutcome(t *testing.T) {
	out := noDataOutcome()
	assert.Equal(t, models.RiskLow, out.RiskLevel)
	assert.Contains(t, out.Summary, "no data")
}
