package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePageText = `DBS Bank Ltd
Account No. 0725385342
Date Description Debit Credit Running Balance
01-Sep-2025 BALANCE B/F 84,650.03
01-Sep-2025 FAST PAYMENT GELMAX 394.71 84,255.32
02-Sep-2025 PAYNOW COLLECTION 1,200.00 85,455.32`

func TestIsSkipPage(t *testing.T) {
	t.Run("near blank", func(t *testing.T) {
		assert.True(t, isSkipPage("  \n  DBS  \n"))
	})
	t.Run("transaction page always kept", func(t *testing.T) {
		assert.False(t, isSkipPage(samplePageText))
	})
	t.Run("legend page dominated by code table", func(t *testing.T) {
		legend := "TRANSACTION CODE DESCRIPTION\n" +
			strings.Repeat("FAST Fast And Secure Transfers\nIBG Interbank GIRO\n", 5)
		assert.True(t, isSkipPage(legend))
	})
	t.Run("legend mention at page end is not enough", func(t *testing.T) {
		page := strings.Repeat("Ordinary narrative text about the account. ", 10) +
			"TRANSACTION CODE DESCRIPTION"
		assert.False(t, isSkipPage(page))
	})
}

func TestHasTransactions(t *testing.T) {
	assert.True(t, hasTransactions(samplePageText))
	assert.False(t, hasTransactions("Deposit Insurance Scheme notice for balances up to 100,000.00"),
		"amounts without a balance header and dates do not qualify")
	assert.False(t, hasTransactions("Running Balance column legend with no rows"))
}

func TestBatchPagesFiltersAndGroups(t *testing.T) {
	pages := []pageInfo{
		{page: 1, text: samplePageText},
		{page: 2, text: "short"},
		{page: 3, text: samplePageText},
		{page: 4, text: samplePageText},
		{page: 5, text: samplePageText},
	}
	batches := batchPages(pages, "DBS", 3, 0)
	require.Len(t, batches, 2)
	assert.Equal(t, []int{1, 3, 4}, batches[0].pages)
	assert.Equal(t, []int{5}, batches[1].pages)
	assert.Contains(t, batches[0].text, "--- Page 1 ---")
	assert.NotContains(t, batches[0].text, "--- Page 2 ---")
}

func TestBatchPagesAdaptiveSizing(t *testing.T) {
	// Dense pages (>1500 chars avg) force batches of two.
	dense := samplePageText + "\n" + strings.Repeat("03-Sep-2025 GIRO COLLECTION SP SERVICES 120.50 85,334.82\n", 30)
	require.Greater(t, len(dense), 1500)

	pages := []pageInfo{
		{page: 1, text: dense},
		{page: 2, text: dense},
		{page: 3, text: dense},
		{page: 4, text: dense},
	}
	batches := batchPages(pages, "DBS", 3, 0)
	require.Len(t, batches, 2)
	assert.Equal(t, []int{1, 2}, batches[0].pages)
	assert.Equal(t, []int{3, 4}, batches[1].pages)
}

func TestBatchPagesOverlap(t *testing.T) {
	pages := []pageInfo{
		{page: 1, text: samplePageText},
		{page: 2, text: samplePageText},
		{page: 3, text: samplePageText},
	}
	batches := batchPages(pages, "DBS", 2, 1)
	require.Len(t, batches, 2)
	assert.Equal(t, []int{1, 2}, batches[0].pages)
	assert.Equal(t, []int{2, 3}, batches[1].pages)
}

func TestBatchPagesNoTransactionPages(t *testing.T) {
	assert.Nil(t, batchPages([]pageInfo{{page: 1, text: "short"}}, "DBS", 3, 0))
}

func TestFallbackAccountInfo(t *testing.T) {
	text := `DBS Bank Ltd
Account No. 0725385342
Statement Period: 01 Sep 2025 TO 30 Sep 2025`
	info := fallbackAccountInfo(text)
	assert.Equal(t, "DBS", info.Bank)
	assert.Equal(t, "0725385342", info.AccountNumber)
	assert.Equal(t, "01 Sep 2025 to 30 Sep 2025", info.StatementPeriod)
	assert.Equal(t, "SGD", info.Currency)
}
