package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement_analysis/pkg/core/pdf"
)

func TestDetectBank(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		wantBank   string
		confidence float64
	}{
		{
			name:       "dbs keyword plus pattern",
			text:       "DBS Bank Ltd\nAccount Details\nMULTIPLIER ACCOUNT",
			wantBank:   "DBS",
			confidence: 0.7, // keyword 3 + product 2 + header pattern 2
		},
		{
			name:       "ocbc keyword overlap scores ocbc highest",
			text:       "OCBC BANK\nOversea-Chinese Banking Corporation\n360 ACCOUNT",
			wantBank:   "OCBC",
			confidence: 1.0, // 3+3+3 keywords, product, pattern: clamped
		},
		{
			name:       "hsbc",
			text:       "HSBC Everyday Global Account statement",
			wantBank:   "HSBC",
			confidence: 0.7,
		},
		{
			name:       "unknown",
			text:       "Some generic financial document",
			wantBank:   "Unknown",
			confidence: 0,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bank, conf := detectBank([]string{tc.text})
			assert.Equal(t, tc.wantBank, bank)
			assert.InDelta(t, tc.confidence, conf, 0.001)
		})
	}
}

func TestMapColumns(t *testing.T) {
	headers := []string{"Date", "Value Date", "Transaction Details", "Debit", "Credit", "Balance (SGD)"}
	mapping := mapColumns(headers)
	assert.Equal(t, 0, mapping["date"])
	assert.Equal(t, 2, mapping["description"])
	assert.Equal(t, 3, mapping["debit"])
	assert.Equal(t, 4, mapping["credit"])
	assert.Equal(t, 5, mapping["balance"], "currency suffix is stripped before matching")
}

func TestMapColumnsIgnoresUnknownHeaders(t *testing.T) {
	mapping := mapColumns([]string{"Foo", "Bar", ""})
	assert.Empty(t, mapping)
}

func TestDetectFormats(t *testing.T) {
	t.Run("dbs dash dates", func(t *testing.T) {
		date, amount := detectFormats([]string{"01-Sep-2025 FAST PAYMENT 1,943.69"})
		assert.Equal(t, "DD-MMM-YYYY", date)
		assert.Equal(t, "decimal_comma", amount)
	})
	t.Run("hsbc compact dates", func(t *testing.T) {
		date, _ := detectFormats([]string{"30SEP2025 Balance brought forward"})
		assert.Equal(t, "DDMMMYYYY", date)
	})
	t.Run("european amounts", func(t *testing.T) {
		_, amount := detectFormats([]string{"Saldo 1.234,56 und 9.876,54"})
		assert.Equal(t, "european", amount)
	})
	t.Run("defaults", func(t *testing.T) {
		date, amount := detectFormats([]string{"no recognisable tokens"})
		assert.Equal(t, "DD MMM", date)
		assert.Equal(t, "decimal_comma", amount)
	})
}

func TestDetectSpecialMarkers(t *testing.T) {
	markers := detectSpecialMarkers([]string{
		"01 SEP BALANCE B/F 84,650.03",
		"30 SEP BALANCE C/F 157,657.34",
	})
	assert.Equal(t, "BALANCE B/F", markers["opening_balance"])
	assert.Equal(t, "BALANCE C/F", markers["closing_balance"])

	assert.Empty(t, detectSpecialMarkers([]string{"no markers here"}))
}

func TestDetectMultiLine(t *testing.T) {
	multiLine := pdf.Table{
		{"Date", "Details", "Debit", "Credit", "Balance"},
		{"01-Sep-2025", "FAST PAYMENT", "394.71", "", "84,255.32"},
		{"", "EBGPP50901371025", "", "", ""},
		{"", "SUPPLIER PAYMENT", "", "", ""},
		{"02-Sep-2025", "GIRO COLLECTION", "", "1,200.00", "85,455.32"},
		{"", "SP SERVICES", "", "", ""},
	}
	assert.True(t, detectMultiLine([]pdf.Table{multiLine}))

	singleLine := pdf.Table{
		{"Date", "Details", "Debit", "Credit", "Balance"},
		{"01-Sep-2025", "FAST PAYMENT", "394.71", "", "84,255.32"},
		{"02-Sep-2025", "GIRO COLLECTION", "", "1,200.00", "85,455.32"},
		{"03-Sep-2025", "NETS PAYMENT", "52.00", "", "85,403.32"},
		{"04-Sep-2025", "PAYNOW TRANSFER", "", "300.00", "85,703.32"},
	}
	assert.False(t, detectMultiLine([]pdf.Table{singleLine}))
}

func TestAnalyzeTablesPicksFirstMappedTable(t *testing.T) {
	layout := &Context{ColumnMapping: map[string]int{}}
	noise := pdf.Table{{"Notice", "Text"}, {"foo", "bar"}}
	txnTable := pdf.Table{
		{"Date", "Details", "Debit", "Credit", "Balance"},
		{"01-Sep-2025", "FAST PAYMENT", "394.71", "", "84,255.32"},
		{"02-Sep-2025", "GIRO COLLECTION", "", "1,200.00", "85,455.32"},
	}

	analyzeTables(layout, []pdf.Table{noise, txnTable}, []int{0, 1})
	assert.True(t, layout.HasTables)
	require.NotNil(t, layout.TableStructure)
	assert.Equal(t, 1, layout.TableStructure.Page)
	assert.Equal(t, 5, layout.TableStructure.Columns)
	assert.Len(t, layout.TableStructure.Samples, 2)
	assert.Equal(t, 1, layout.ColumnMapping["description"])
}

func TestSummary(t *testing.T) {
	layout := &Context{
		BankDetected:  "DBS",
		Confidence:    0.7,
		PageCount:     5,
		HasTables:     true,
		ColumnMapping: map[string]int{"date": 0, "balance": 4},
		DateFormat:    "DD-MMM-YYYY",
	}
	s := layout.summary()
	assert.Contains(t, s, "Detected bank: DBS (confidence: 70%)")
	assert.Contains(t, s, "5 page(s)")
	assert.Contains(t, s, "2 identified columns")
}
