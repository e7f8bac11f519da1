package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"statement_analysis/pkg/core/agent"
	"statement_analysis/pkg/core/pdf"
	"statement_analysis/pkg/core/utils"
)

// Tier 3: model-assisted parsing, the last resort for unstructured or
// scanned statements.

var skipPatterns = []string{
	// OCBC
	"TRANSACTION CODE DESCRIPTION",
	"CHECK YOUR STATEMENT",
	"UPDATING YOUR PERSONAL PARTICULARS",
	// DBS
	"IMPORTANT NOTES",
	"Important Information",
	"Transaction codes",
	// UOB
	"TRANSACTION CODES USED",
	"Deposit Insurance Scheme Singapore",
	// Standard Chartered
	"Terms and Conditions",
	"This page is intentionally left blank",
}

const accountInfoPrompt = `You are an expert bank statement parser for Singapore banks.
You must handle statements from any Singapore bank: OCBC, DBS, POSB, UOB, Standard Chartered,
HSBC, Citibank, Maybank, CIMB, GXS Bank, Trust Bank, MariBank, Revolut, Wise, Aspire, Airwallex.

Extract the following from this bank statement's first page(s).

Return ONLY valid JSON (no markdown fences):
{
  "account_holder": "company or person name",
  "bank": "full bank name",
  "account_number": "account number",
  "currency": "SGD or other",
  "statement_period": "DD MMM YYYY to DD MMM YYYY",
  "account_type": "type of account (e.g. Business, Savings, Current)"
}

If a field is not found, use null.

Bank statement text:
`

const transactionPrompt = `You are an expert bank statement transaction parser for Singapore banks.
Parse ALL transactions from the following bank statement page(s).

CRITICAL RULES:
- Each transaction has: transaction_date, value_date, description, withdrawal (if debit), deposit (if credit), balance
- Normalise ALL dates to "DD MMM" format (e.g. "30 NOV", "01 DEC"):
  - "01 DEC" -> "01 DEC" (already correct)
  - "01-Sep-2025" -> "01 SEP" (DBS format)
  - "01/12/2025" -> "01 DEC"
- Amounts: return as plain numbers (no commas). E.g. 1943.69 not "1,943.69"
- Multi-line descriptions: concatenate into ONE description string separated by spaces.
  Many banks (especially DBS) have multi-line transaction details - combine ALL lines for one transaction.
- For DBS statements: the columns are "Date | Value Date | Transaction Details | Debit | Credit | Running Balance".
  Each transaction starts with a date row, followed by description continuation lines.
- "BALANCE B/F" or "BALANCE BROUGHT FORWARD" -> transaction_type = "opening_balance"
- "BALANCE C/F" or "BALANCE CARRIED FORWARD" -> transaction_type = "closing_balance"
- Withdrawals / Debits -> transaction_type = "debit"
- Deposits / Credits -> transaction_type = "credit"
- If the statement has a summary section like "Total Debit Count : 21 Total Debit Amount : 32,785.05", do NOT create transactions from the summary - only from individual transaction lines.
- channel: FAST, GIRO, ATM, DEBIT PURCHASE, PAYMENT/TRANSFER, CHEQUE, IBG, NETS, PayNow, INTERBANK GIRO, etc.
- counterparty: who the transaction is with (extracted from description). Look for company/person names.
- Do NOT skip any transactions. Extract EVERY single one.
- Do NOT invent transactions that aren't in the text.
- If a page has "BALANCE B/F" that was already in the previous batch, still include it (dedup happens later).

Return ONLY a valid JSON array (no markdown fences):
[
  {
    "transaction_date": "30 NOV",
    "value_date": "01 DEC",
    "description": "FAST PAYMENT OTHR GELMAX SG3P251128972769",
    "withdrawal": 1943.69,
    "deposit": null,
    "balance": 127543.16,
    "transaction_type": "debit",
    "channel": "FAST",
    "counterparty": "GELMAX",
    "reference": "SG3P251128972769"
  }
]

Bank statement page text:
`

const ocrPrompt = `Read this scanned bank statement page and transcribe ALL text in reading order.
Preserve the layout: keep each row on its own line and separate columns with " | ".
Include every transaction row, amounts, dates, and balances exactly as printed.
Return ONLY the transcribed text, no commentary.`

// pageInfo is one page's extracted or OCR'd text.
type pageInfo struct {
	page int
	text string
}

type pageBatch struct {
	text  string
	pages []int
}

var (
	monetaryRe = regexp.MustCompile(`\d{1,3}(?:,\d{3})*\.\d{2}`)
	monthDayRe = regexp.MustCompile(`(?i)\d{1,2}\s+(JAN|FEB|MAR|APR|MAY|JUN|JUL|AUG|SEP|OCT|NOV|DEC)`)
	dashDateRe = regexp.MustCompile(`\d{1,2}[\-/][A-Za-z]{3}[\-/]?\d{0,4}`)
	slashDate  = regexp.MustCompile(`\d{1,2}/\d{1,2}(/\d{2,4})?`)
	isoDateRe  = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	balanceRe  = regexp.MustCompile(`(?i)balance|bal\.?|running\s*balance`)
)

// isSkipPage drops legend, T&C, and near-blank pages. A page with monetary
// amounts and dates is always kept.
func isSkipPage(text string) bool {
	stripped := strings.TrimSpace(text)
	if len(stripped) < 80 {
		return true
	}
	if monetaryRe.MatchString(stripped) &&
		(monthDayRe.MatchString(stripped) || dashDateRe.MatchString(stripped)) {
		return false
	}
	lower := strings.ToLower(stripped)
	for _, pattern := range skipPatterns {
		idx := strings.Index(lower, strings.ToLower(pattern))
		// Skip only when the pattern dominates the page.
		if idx >= 0 && len(stripped)-idx > len(stripped)*2/5 {
			return true
		}
	}
	return false
}

// hasTransactions checks for the trio of a balance header, date tokens, and
// monetary amounts.
func hasTransactions(text string) bool {
	if !balanceRe.MatchString(text) {
		return false
	}
	hasDate := monthDayRe.MatchString(text) || dashDateRe.MatchString(text) ||
		slashDate.MatchString(text) || isoDateRe.MatchString(text)
	return hasDate && monetaryRe.MatchString(text)
}

// batchPages filters to transaction-bearing pages and groups them into
// batches sized to the text density: dense DBS-style pages get smaller
// batches so the model does not drop rows.
func batchPages(pages []pageInfo, bank string, batchSize, overlap int) []pageBatch {
	var txnPages []pageInfo
	totalChars := 0
	for _, p := range pages {
		if isSkipPage(p.text) || !hasTransactions(p.text) {
			continue
		}
		cleaned := cleanPageText(p.text, bank)
		txnPages = append(txnPages, pageInfo{page: p.page, text: cleaned})
		totalChars += len(cleaned)
	}
	if len(txnPages) == 0 {
		fmt.Println("  no transaction pages found after filtering")
		return nil
	}

	avgChars := totalChars / len(txnPages)
	if avgChars > 1500 && batchSize > 2 {
		batchSize = 2
		fmt.Printf("  dense text (%d chars/page avg), batch_size=2\n", avgChars)
	} else if avgChars > 1000 && batchSize > 3 {
		batchSize = 3
	}

	var batches []pageBatch
	step := batchSize - overlap
	if step < 1 {
		step = 1
	}
	for i := 0; i < len(txnPages); i += step {
		end := i + batchSize
		if end > len(txnPages) {
			end = len(txnPages)
		}
		var sb strings.Builder
		var nums []int
		for _, p := range txnPages[i:end] {
			fmt.Fprintf(&sb, "--- Page %d ---\n%s\n\n", p.page, p.text)
			nums = append(nums, p.page)
		}
		batches = append(batches, pageBatch{text: strings.TrimSpace(sb.String()), pages: nums})
		if end == len(txnPages) {
			break
		}
	}
	return batches
}

// ocrAllPages transcribes a scanned PDF page by page through the vision
// model. A failed page yields empty text rather than aborting the run.
func ocrAllPages(ctx context.Context, mgr *agent.Manager, path string, pageCount, dpi int) []pageInfo {
	pages := make([]pageInfo, 0, pageCount)
	for i := 0; i < pageCount; i++ {
		b64, err := pdf.RenderPageBase64(path, i, dpi)
		if err != nil {
			fmt.Printf("  OCR: failed to render page %d: %v\n", i+1, err)
			pages = append(pages, pageInfo{page: i + 1})
			continue
		}
		text, err := mgr.ExecuteVisionPrompt(ctx, "extraction", ocrPrompt, b64, map[string]interface{}{
			"temperature": 0.0,
			"max_tokens":  4096,
		})
		if err != nil {
			fmt.Printf("  OCR: page %d failed: %v\n", i+1, err)
			text = ""
		}
		pages = append(pages, pageInfo{page: i + 1, text: text})
	}
	return pages
}

// llmAccountInfo asks the text model for statement identity fields, falling
// back to the regex sweep on failure.
func llmAccountInfo(ctx context.Context, mgr *agent.Manager, firstPagesText string) AccountInfo {
	prompt := accountInfoPrompt + truncate(firstPagesText, 4000)
	response, err := mgr.ExecutePrompt(ctx, "extraction", prompt,
		"You are an expert bank statement parser for Singapore banks. Return only valid JSON.",
		map[string]interface{}{"temperature": 0.0, "max_tokens": 500})
	if err != nil {
		fmt.Printf("  account info extraction failed: %v\n", err)
		return fallbackAccountInfo(firstPagesText)
	}
	var info AccountInfo
	if err := utils.SmartParse(response, &info); err != nil {
		fmt.Printf("  account info parse failed: %v\n", err)
		return fallbackAccountInfo(firstPagesText)
	}
	return info
}

var fallbackPeriodRe = regexp.MustCompile(`(\d{1,2}\s+\w+\s+\d{4})\s+(?:TO|to|-)\s+(\d{1,2}\s+\w+\s+\d{4})`)
var fallbackPeriodLabelRe = regexp.MustCompile(`(?i)Statement\s+Period\s*[:\s]*(.+)`)

// fallbackAccountInfo is the regex path when the model call fails.
func fallbackAccountInfo(text string) AccountInfo {
	info := AccountInfo{Currency: "SGD"}
	info.Bank = detectBankFromText([]string{text})
	if info.Bank == "unknown" {
		info.Bank = ""
	}
	if m := acctNoRe.FindStringSubmatch(text); m != nil {
		info.AccountNumber = acctStripRe.ReplaceAllString(m[1], "")
	} else if m := acctNoAltRe.FindStringSubmatch(text); m != nil {
		info.AccountNumber = acctStripRe.ReplaceAllString(m[1], "")
	}
	if m := fallbackPeriodRe.FindStringSubmatch(text); m != nil {
		info.StatementPeriod = m[1] + " to " + m[2]
	} else if m := fallbackPeriodLabelRe.FindStringSubmatch(text); m != nil {
		info.StatementPeriod = strings.TrimSpace(m[1])
	}
	return info
}

// llmTransaction mirrors the JSON shape the extraction prompt demands.
type llmTransaction struct {
	TransactionDate string   `json:"transaction_date"`
	ValueDate       string   `json:"value_date"`
	Description     string   `json:"description"`
	Withdrawal      *float64 `json:"withdrawal"`
	Deposit         *float64 `json:"deposit"`
	Balance         *float64 `json:"balance"`
	Type            string   `json:"transaction_type"`
	Channel         string   `json:"channel"`
	Counterparty    string   `json:"counterparty"`
	Reference       string   `json:"reference"`
}

// extractTransactionsLLM parses one batch of page text through the text
// model.
func extractTransactionsLLM(ctx context.Context, mgr *agent.Manager, batchText string) ([]Transaction, error) {
	response, err := mgr.ExecutePrompt(ctx, "extraction", transactionPrompt+batchText,
		"You are an expert bank statement transaction parser for Singapore banks. Return only valid JSON arrays. Do not wrap in markdown.",
		map[string]interface{}{"temperature": 0.0, "max_tokens": 16000})
	if err != nil {
		return nil, err
	}

	var parsed []llmTransaction
	if err := utils.SmartParse(response, &parsed); err != nil {
		// Some models wrap the array in {"transactions": [...]}.
		var wrapped struct {
			Transactions []llmTransaction `json:"transactions"`
		}
		if werr := utils.SmartParse(response, &wrapped); werr != nil || wrapped.Transactions == nil {
			return nil, fmt.Errorf("EXTRACTION_PARSE_ERROR: %w", err)
		}
		parsed = wrapped.Transactions
	}

	out := make([]Transaction, 0, len(parsed))
	for _, p := range parsed {
		out = append(out, Transaction{
			TransactionDate: NormalizeDate(p.TransactionDate),
			ValueDate:       NormalizeDate(p.ValueDate),
			Description:     strings.TrimSpace(p.Description),
			Withdrawal:      p.Withdrawal,
			Deposit:         p.Deposit,
			Balance:         p.Balance,
			Type:            p.Type,
			Channel:         p.Channel,
			Counterparty:    strings.TrimSpace(p.Counterparty),
			Reference:       strings.TrimSpace(p.Reference),
		})
	}
	return out, nil
}
