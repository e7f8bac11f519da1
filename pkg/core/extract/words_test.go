package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement_analysis/pkg/core/pdf"
)

const testPageWidth = 595.0

func headerWord(text string, x0, x1 float64) pdf.Word {
	return pdf.Word{X0: x0, X1: x1, Top: 150, Bottom: 160, Text: text}
}

func dataWord(text string, x0, x1, y float64) pdf.Word {
	return pdf.Word{X0: x0, X1: x1, Top: y, Bottom: y + 10, Text: text}
}

func statementHeader() []pdf.Word {
	return []pdf.Word{
		headerWord("Date", 70, 95),
		headerWord("Description", 130, 185),
		headerWord("Withdrawal", 280, 330),
		headerWord("Deposit", 360, 400),
		headerWord("Balance", 430, 470),
	}
}

func TestDiscoverColumnLayout(t *testing.T) {
	layout := discoverColumnLayout(statementHeader(), testPageWidth)
	require.NotNil(t, layout)

	assert.Len(t, layout.columns, 5)
	assert.Contains(t, layout.bounds, "transaction_date")
	assert.Contains(t, layout.bounds, "balance")

	// Outermost columns extend to the page edges.
	assert.Equal(t, 0.0, layout.bounds["transaction_date"].left)
	assert.Equal(t, testPageWidth, layout.bounds["balance"].right)

	// Adjacent bounds meet at the midpoint between header centres.
	assert.InDelta(t, 342.5, layout.bounds["withdrawal"].right, 0.01)
	assert.InDelta(t, 342.5, layout.bounds["deposit"].left, 0.01)
}

func TestDiscoverColumnLayoutRejectsBodyText(t *testing.T) {
	words := []pdf.Word{
		headerWord("Deposit", 70, 110),
		headerWord("Insurance", 115, 160),
		headerWord("Scheme", 165, 200),
	}
	assert.Nil(t, discoverColumnLayout(words, testPageWidth),
		"prose mentioning one column name is not a header")
}

func TestDiscoverColumnLayoutMergesMultiLineHeader(t *testing.T) {
	words := []pdf.Word{
		headerWord("Date", 70, 95),
		headerWord("Description", 130, 185),
		headerWord("Withdrawal", 280, 330),
		headerWord("Deposit", 360, 400),
		{X0: 430, X1: 465, Top: 150, Bottom: 160, Text: "Running"},
		{X0: 430, X1: 470, Top: 162, Bottom: 170, Text: "Balance"},
	}
	layout := discoverColumnLayout(words, testPageWidth)
	require.NotNil(t, layout)
	assert.Contains(t, layout.columns, "balance")
	assert.Greater(t, layout.headerYMax, layout.headerY,
		"merged header spans two bands")
}

func TestAssignWordsToColumns(t *testing.T) {
	layout := discoverColumnLayout(statementHeader(), testPageWidth)
	require.NotNil(t, layout)

	row := []pdf.Word{
		dataWord("01", 70, 80, 200),
		dataWord("DEC", 83, 100, 200),
		dataWord("FAST", 130, 152, 200),
		dataWord("PAYMENT", 155, 185, 200),
		dataWord("OTHR", 188, 205, 200),
		dataWord("GELMAX", 208, 228, 200),
		dataWord("1,943.69", 290, 325, 200),
		dataWord("127,543.16", 430, 480, 200),
	}

	cols := assignWordsToColumns(row, layout.bounds)
	assert.Equal(t, "01 DEC", cols["transaction_date"])
	assert.Equal(t, "FAST PAYMENT OTHR GELMAX", cols["description"])
	assert.Equal(t, "1,943.69", cols["withdrawal"])
	assert.Equal(t, "", cols["deposit"])
	assert.Equal(t, "127,543.16", cols["balance"])
}

func TestAssignWordsToColumnsDropsMarginNotes(t *testing.T) {
	bounds := map[string]colBounds{
		"transaction_date": {left: 0, right: 120},
		"balance":          {left: 120, right: 300},
	}
	row := []pdf.Word{
		dataWord("01", 70, 80, 200),
		dataWord("watermark", 400, 480, 200),
	}
	cols := assignWordsToColumns(row, bounds)
	assert.Equal(t, "01", cols["transaction_date"])
	assert.NotContains(t, cols, "balance")
}

func TestFinalizeRawRowsDebit(t *testing.T) {
	raws := []rawRow{{
		txnDate:     "01 DEC",
		description: "FAST PAYMENT OTHR GELMAX",
		withdrawal:  "1,943.69",
		balance:     "127,543.16",
		currency:    "SGD",
		page:        2,
	}}

	txns := finalizeRawRows(raws)
	require.Len(t, txns, 1)
	txn := txns[0]
	assert.Equal(t, "debit", txn.Type)
	assert.Equal(t, "01 DEC", txn.TransactionDate)
	assert.Equal(t, "01 DEC", txn.ValueDate, "value date falls back to transaction date")
	assert.InDelta(t, 1943.69, txn.Amount(), 0.001)
	assert.InDelta(t, 127543.16, *txn.Balance, 0.001)
	assert.Equal(t, "FAST", txn.Channel)
	assert.Equal(t, "GELMAX", txn.Counterparty)
	assert.Equal(t, "SGD", txn.Currency)
	assert.Equal(t, 2, txn.Page)
}

func TestFinalizeRawRowsBalanceMarkers(t *testing.T) {
	raws := []rawRow{
		{txnDate: "01 DEC", description: "BALANCE B/F", balance: "50,000.00"},
		{txnDate: "31 DEC", description: "BALANCE C/F", withdrawal: "12,000.00", deposit: "8,000.00", balance: "46,000.00"},
	}
	txns := finalizeRawRows(raws)
	require.Len(t, txns, 2)
	assert.Equal(t, "opening_balance", txns[0].Type)
	assert.Equal(t, "closing_balance", txns[1].Type)
	assert.Nil(t, txns[1].Withdrawal, "C/F rows carry summary totals, not amounts")
	assert.Nil(t, txns[1].Deposit)
	assert.InDelta(t, 46000.00, *txns[1].Balance, 0.001)
}

func TestFinalizeRawRowsSkipsAmountlessRows(t *testing.T) {
	raws := []rawRow{{txnDate: "01 DEC", description: "SOME NOTE"}}
	assert.Empty(t, finalizeRawRows(raws))
}

func TestFinalizeRawRowsCarriesSection(t *testing.T) {
	raws := []rawRow{
		{txnDate: "01 DEC", description: "FAST PAYMENT", withdrawal: "100.00", balance: "900.00", currency: "SGD", section: 0},
		{txnDate: "02 DEC", description: "REMITTANCE IN", deposit: "50.00", balance: "1,050.00", currency: "USD", section: 1},
	}
	txns := finalizeRawRows(raws)
	require.Len(t, txns, 2)
	assert.Equal(t, 0, txns[0].AccountSection)
	assert.Equal(t, "USD", txns[1].Currency)
	assert.Equal(t, 1, txns[1].AccountSection)
}

func TestExtractColumnAmount(t *testing.T) {
	assert.InDelta(t, 1943.69, *extractColumnAmount("1,943.69", false), 0.001)
	assert.Nil(t, extractColumnAmount("-", false))
	assert.Nil(t, extractColumnAmount("", false))

	// HSBC overdrawn balances carry a DR suffix.
	assert.InDelta(t, -500.25, *extractColumnAmount("500.25 DR", true), 0.001)
	assert.InDelta(t, 500.25, *extractColumnAmount("500.25 DR", false), 0.001)
}

func TestIsTransactionPage(t *testing.T) {
	assert.False(t, isTransactionPage("TRANSACTION CODE DESCRIPTION\nFAST Fast payment", nil, testPageWidth))
	assert.True(t, isTransactionPage("BALANCE B/F 84,650.03", nil, testPageWidth))
	assert.True(t, isTransactionPage("01 DEC FAST PAYMENT 1,943.69", nil, testPageWidth))
	assert.False(t, isTransactionPage("Deposit Insurance Scheme notice", nil, testPageWidth))
}
