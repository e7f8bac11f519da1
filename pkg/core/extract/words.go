package extract

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"statement_analysis/pkg/core/pdf"
)

// Tier 2: word-position column inference. Columns are visually aligned via
// x-coordinates even when the PDF draws no grid lines, so the column layout
// is discovered from the header row and each word is assigned to the column
// whose bounds contain its x-midpoint.

var colHeaderAliases = map[string][]string{
	"transaction_date": {
		"transaction date", "txn date", "trans date", "date",
		"date & time", "date and time", "transaction", "trans",
	},
	"value_date": {"value date", "posting date", "effective date"},
	"description": {
		"description", "particulars", "details", "narrative",
		"remarks", "transaction details",
	},
	"counterparty": {"counterparty", "payee", "beneficiary", "sender"},
	"cheque":       {"cheque", "chq", "check", "cheque no"},
	"reference":    {"reference", "ref", "ref no", "reference no"},
	"withdrawal": {
		"withdrawal", "withdrawals", "debit", "debits",
		"debit amount", "withdrawal amount", "payments",
	},
	"deposit": {
		"deposit", "deposits", "credit", "credits",
		"credit amount", "deposit amount", "receipts",
	},
	"balance": {
		"balance", "running balance", "closing balance",
		"available balance", "ledger balance",
	},
}

var currencyCodes = map[string]bool{
	"SGD": true, "USD": true, "EUR": true, "GBP": true, "CNY": true,
	"JPY": true, "AUD": true, "HKD": true, "MYR": true, "IDR": true,
	"THB": true, "PHP": true, "INR": true, "KRW": true, "NZD": true,
	"CHF": true, "CAD": true, "TWD": true, "VND": true,
}

var (
	dateTokenRe = regexp.MustCompile(`(?i)\d{1,2}[\s\-/]?(JAN|FEB|MAR|APR|MAY|JUN|JUL|AUG|SEP|OCT|NOV|DEC)`)
	summaryRe   = regexp.MustCompile(`(?i)(Total Withdrawal|Total Deposit|Total Interest|Average Balance|Withholding Tax|Total Debit|Total Credit|Grand Total|Closing Statement|ENDOFSTATEMENT|END\s*OF\s*STATEMENT)`)
	footerRe    = regexp.MustCompile(`(?i)(Deposit\s*Insurance|Singaporedollardeposit|currency\s*deposits.*not\s*insured|structureddeposits|Issued\s*by\s*The\s*Hongkong|S\$100,000\s*in\s*aggregate|aggregate\s*per\s*depositor)`)
	// HSBC page summaries start with WITHDRAWALS/DEPOSITS in the date column
	// and span two bands.
	pageSummaryRe  = regexp.MustCompile(`(?i)^(WITHDRAWALS?|DEPOSITS?)\b`)
	balanceEntryRe = regexp.MustCompile(`(?i)BALANCE\s*[BC]/F|OPENING\s+BALANCE|CLOSING\s+BALANCE|BALANCE\s*BROUGHT|BALANCE\s*CARRIED`)
	openingRe      = regexp.MustCompile(`(?i)BALANCE\s*B/F|BALANCE\s*BROUGHT|OPENING\s+BALANCE`)
	closingRe      = regexp.MustCompile(`(?i)BALANCE\s*C/F|BALANCE\s*CARRIED|CLOSING\s+BALANCE`)
	ccyRemnantRe   = regexp.MustCompile(`^\(?[A-Z]{3}\)?$`)
	columnAmountRe = regexp.MustCompile(`(?i)([\d,]+\.\d{2})\s*(DR)?`)
)

type colSpan struct {
	x0, x1 float64
}

type colBounds struct {
	left, right float64
}

// columnLayout is the discovered header geometry for a page family.
type columnLayout struct {
	headerY    float64
	headerYMax float64
	columns    map[string]colSpan
	bounds     map[string]colBounds
}

const (
	yBand          = 4.0  // words within a 4pt band share a row
	headerMergeMax = 16.0 // multi-line headers merge within 16pt
	dataGap        = 8.0  // data starts 8pt below the header band
)

func bandKey(top float64) float64 {
	return math.Round(top/yBand) * yBand
}

type wordRow struct {
	y     float64
	words []pdf.Word
}

func bandWords(words []pdf.Word) []wordRow {
	groups := map[float64][]pdf.Word{}
	for _, w := range words {
		k := bandKey(w.Top)
		groups[k] = append(groups[k], w)
	}
	rows := make([]wordRow, 0, len(groups))
	for y, ws := range groups {
		sort.Slice(ws, func(i, j int) bool { return ws[i].X0 < ws[j].X0 })
		rows = append(rows, wordRow{y: y, words: ws})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].y < rows[j].y })
	return rows
}

var headerCcySuffixRe = regexp.MustCompile(`\([a-z]{3}\)`)
var headerWordCcyRe = regexp.MustCompile(`\s*\([a-z]{3}\)\s*$`)

// scoreHeaderRow counts how many canonical columns a candidate header row
// names, recording the x-extent of each match.
func scoreHeaderRow(rowWords []pdf.Word) (int, map[string]colSpan) {
	var parts []string
	for _, w := range rowWords {
		parts = append(parts, strings.ToLower(stripNonASCII(w.Text)))
	}
	rowText := strings.Join(parts, " ")
	rowTextNoCcy := strings.TrimSpace(headerCcySuffixRe.ReplaceAllString(rowText, ""))

	matches := map[string]colSpan{}
	score := 0

	for canonical, aliases := range colHeaderAliases {
		for _, alias := range aliases {
			if !strings.Contains(rowText, alias) && !strings.Contains(rowTextNoCcy, alias) {
				continue
			}
			aliasWords := map[string]bool{}
			for _, aw := range strings.Fields(alias) {
				aliasWords[aw] = true
			}
			for _, w := range rowWords {
				wt := strings.ToLower(stripNonASCII(w.Text))
				wtClean := strings.TrimSpace(headerWordCcyRe.ReplaceAllString(wt, ""))
				matched := (wtClean != "" && aliasWords[wtClean]) || aliasWords[wt] ||
					strings.Contains(wtClean, alias) || strings.Contains(wt, alias)
				if !matched {
					for _, ww := range strings.Fields(wtClean) {
						if aliasWords[ww] {
							matched = true
							break
						}
					}
				}
				if matched {
					span, ok := matches[canonical]
					if !ok {
						matches[canonical] = colSpan{x0: w.X0, x1: w.X1}
					} else {
						span.x0 = math.Min(span.x0, w.X0)
						span.x1 = math.Max(span.x1, w.X1)
						matches[canonical] = span
					}
				}
			}
			if _, ok := matches[canonical]; ok {
				score++
			}
			break // first alias hit is enough
		}
	}
	return score, matches
}

// discoverColumnLayout scans y-bands (and 2-3 band merges for multi-line
// headers like "Balance\n(SGD)") for the best header candidate. A candidate
// must name balance plus one of withdrawal/deposit and hit at least two
// columns overall.
func discoverColumnLayout(words []pdf.Word, pageWidth float64) *columnLayout {
	if len(words) == 0 {
		return nil
	}
	rows := bandWords(words)

	bestScore := 0
	var bestY, bestYMax float64
	var bestMatches map[string]colSpan

	consider := func(y, yMax float64, candidate []pdf.Word) {
		score, matches := scoreHeaderRow(candidate)
		_, hasW := matches["withdrawal"]
		_, hasD := matches["deposit"]
		_, hasB := matches["balance"]
		if score > bestScore && (hasW || hasD) && hasB {
			bestScore = score
			bestY = y
			bestYMax = yMax
			bestMatches = matches
		}
	}

	for idx, row := range rows {
		consider(row.y, row.y, row.words)
		for span := 1; span <= 2; span++ {
			if idx+span >= len(rows) {
				break
			}
			nextY := rows[idx+span].y
			if nextY-row.y > headerMergeMax {
				break
			}
			merged := make([]pdf.Word, 0, len(row.words))
			merged = append(merged, row.words...)
			for s := 1; s <= span; s++ {
				merged = append(merged, rows[idx+s].words...)
			}
			sort.Slice(merged, func(i, j int) bool { return merged[i].X0 < merged[j].X0 })
			consider(row.y, nextY, merged)
		}
	}

	if bestMatches == nil || bestScore < 2 {
		return nil
	}

	// Column bounds are midpoints between adjacent header centres; the
	// outermost columns extend to the page edges.
	type namedSpan struct {
		name string
		span colSpan
	}
	sorted := make([]namedSpan, 0, len(bestMatches))
	for name, span := range bestMatches {
		sorted = append(sorted, namedSpan{name, span})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].span.x0 < sorted[j].span.x0 })

	mid := func(s colSpan) float64 { return (s.x0 + s.x1) / 2 }
	bounds := map[string]colBounds{}
	for i, ns := range sorted {
		left := 0.0
		if i > 0 {
			left = (mid(sorted[i-1].span) + mid(ns.span)) / 2
		}
		right := pageWidth
		if i < len(sorted)-1 {
			right = (mid(ns.span) + mid(sorted[i+1].span)) / 2
		}
		bounds[ns.name] = colBounds{left: left, right: right}
	}

	return &columnLayout{
		headerY:    bestY,
		headerYMax: bestYMax,
		columns:    bestMatches,
		bounds:     bounds,
	}
}

// assignWordsToColumns places each word into the column containing its
// x-midpoint. Words right of the last column (watermarks, margin notes) are
// dropped.
func assignWordsToColumns(rowWords []pdf.Word, bounds map[string]colBounds) map[string]string {
	cols := map[string][]string{}
	maxRight := 0.0
	for _, b := range bounds {
		if b.right > maxRight {
			maxRight = b.right
		}
	}
	for _, w := range rowWords {
		xMid := (w.X0 + w.X1) / 2
		if xMid > maxRight {
			continue
		}
		for name, b := range bounds {
			if b.left <= xMid && xMid <= b.right {
				cols[name] = append(cols[name], w.Text)
				break
			}
		}
	}
	out := map[string]string{}
	for name, parts := range cols {
		out[name] = strings.TrimSpace(strings.Join(parts, " "))
	}
	return out
}

// isTransactionPage filters out legend, T&C, and confirmation pages.
func isTransactionPage(text string, words []pdf.Word, pageWidth float64) bool {
	if strings.Contains(text, "TRANSACTION CODE DESCRIPTION") {
		return false
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "confirmation of validity") && len(strings.TrimSpace(text)) < 500 {
		return false
	}
	if strings.Contains(text, "BALANCE B/F") || strings.Contains(text, "BALANCE C/F") {
		return true
	}
	if strings.Contains(text, "Balance Brought Forward") || strings.Contains(text, "Balance Carried Forward") {
		return true
	}
	if dateTokenRe.MatchString(text) {
		return true
	}
	return discoverColumnLayout(words, pageWidth) != nil
}

// rawRow is an in-progress transaction assembled from column-assigned rows.
type rawRow struct {
	txnDate     string
	valueDate   string
	description string
	cptyText    string
	withdrawal  string
	deposit     string
	balance     string
	currency    string
	section     int
	page        int
}

// extractFromWords runs the full word-position tier. Returns nil when no
// header row can be discovered anywhere in the first five pages.
func extractFromWords(doc *pdf.Reader) *TierResult {
	var layout *columnLayout
	for pageIdx := 0; pageIdx < doc.PageCount() && pageIdx < 5; pageIdx++ {
		words, err := doc.PageWords(pageIdx)
		if err != nil {
			continue
		}
		w, _ := doc.PageSize(pageIdx)
		if l := discoverColumnLayout(words, w); l != nil {
			layout = l
			break
		}
	}
	if layout == nil {
		return nil
	}

	if _, ok := layout.bounds["balance"]; !ok {
		return nil
	}
	_, hasW := layout.bounds["withdrawal"]
	_, hasD := layout.bounds["deposit"]
	if !hasW && !hasD {
		return nil
	}

	var names []string
	for name := range layout.columns {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Printf("  discovered columns: %v (header at y=%.0f..%.0f)\n", names, layout.headerY, layout.headerYMax)

	dateCol := pickColumn(layout.bounds, "transaction_date", "value_date")
	descCol := pickColumn(layout.bounds, "description", "counterparty", "cheque")

	pageTexts := collectPageTexts(doc)
	accountInfo := extractAccountInfoFromText(pageTexts)

	currentCurrency := accountInfo.Currency
	section := 0

	var raws []rawRow
	defaultDataYMin := layout.headerYMax + dataGap

	for pageIdx := 0; pageIdx < doc.PageCount(); pageIdx++ {
		words, err := doc.PageWords(pageIdx)
		if err != nil {
			continue
		}
		pageWidth, _ := doc.PageSize(pageIdx)
		text := ""
		if pageIdx < len(pageTexts) {
			text = pageTexts[pageIdx]
		}
		if !isTransactionPage(text, words, pageWidth) {
			continue
		}

		// Header positions can shift between page 1 and the rest, so
		// re-derive the data start per page.
		dataYMin := defaultDataYMin
		if pl := discoverColumnLayout(words, pageWidth); pl != nil {
			dataYMin = pl.headerYMax + dataGap
		}

		// Standalone currency codes above the data area open a new
		// multi-currency section.
		for _, w := range words {
			token := strings.TrimSpace(w.Text)
			if currencyCodes[token] && w.Top < dataYMin && token != currentCurrency {
				currentCurrency = token
				section++
				fmt.Printf("  page %d: new currency section %q (section %d)\n", pageIdx+1, currentCurrency, section)
			}
		}

		rows := bandWords(words)
		var current *rawRow
		pastClosing := false
		inSummary := false

		flush := func() {
			if current != nil {
				raws = append(raws, *current)
				current = nil
			}
		}

		for _, row := range rows {
			if row.y < dataYMin {
				continue
			}

			rowFull := joinWords(row.words)
			if ccyRemnantRe.MatchString(rowFull) && !currencyCodes[rowFull] {
				continue // header remnant like "(SGD)"
			}

			cols := assignWordsToColumns(row.words, layout.bounds)
			dateText := cols[dateCol]
			descText := cols[descCol]
			wText := cols["withdrawal"]
			dText := cols["deposit"]
			bText := cols["balance"]

			cptyText := ""
			if _, ok := layout.bounds["counterparty"]; ok && descCol != "counterparty" {
				cptyText = cols["counterparty"]
			}

			if descText == "" {
				for name, val := range cols {
					switch name {
					case "withdrawal", "deposit", "balance", "transaction_date", "value_date":
						continue
					}
					if strings.TrimSpace(val) != "" {
						descText = strings.TrimSpace(val)
						break
					}
				}
			}

			hasTxnDate := dateText != "" && dateTokenRe.MatchString(strings.TrimSpace(dateText))

			if summaryRe.MatchString(descText) && !hasTxnDate {
				continue
			}
			if summaryRe.MatchString(rowFull) {
				continue
			}
			if footerRe.MatchString(rowFull) {
				continue
			}

			// HSBC two-row page summaries: skip until the next dated row.
			if dateText != "" && pageSummaryRe.MatchString(strings.TrimSpace(dateText)) {
				inSummary = true
				continue
			}
			if inSummary {
				upper := strings.ToUpper(rowFull)
				switch {
				case strings.Contains(upper, "ASAT") || strings.Contains(upper, "BALANCECARRIED"):
					continue
				case strings.Contains(upper, "BALANCEBROUGHT"):
					inSummary = false
				case !hasTxnDate:
					continue
				default:
					inSummary = false
				}
			}

			// Mid-page currency section boundary.
			if currencyCodes[rowFull] {
				flush()
				if rowFull != currentCurrency {
					currentCurrency = rowFull
					section++
					fmt.Printf("  page %d: mid-page currency section %q (section %d)\n", pageIdx+1, currentCurrency, section)
				}
				continue
			}

			isBalanceEntry := balanceEntryRe.MatchString(descText)
			isOpening := openingRe.MatchString(descText)
			isClosing := closingRe.MatchString(descText)
			if isOpening {
				pastClosing = false
			} else if pastClosing && !isBalanceEntry {
				continue // footer zone after the closing balance
			}

			// Aspire uses '-' for an absent amount.
			if strings.TrimSpace(wText) == "-" {
				wText = ""
			}
			if strings.TrimSpace(dText) == "-" {
				dText = ""
			}
			hasAmount := wText != "" || dText != "" || bText != ""
			hasDesc := descText != ""

			switch {
			case hasTxnDate || isBalanceEntry:
				flush()
				if isClosing {
					pastClosing = true
				}
				valueDate := strings.TrimSpace(cols["value_date"])
				if valueDate == "" {
					valueDate = strings.TrimSpace(dateText)
				}
				current = &rawRow{
					txnDate:     strings.TrimSpace(dateText),
					valueDate:   valueDate,
					description: descText,
					cptyText:    cptyText,
					withdrawal:  wText,
					deposit:     dText,
					balance:     bText,
					currency:    currentCurrency,
					section:     section,
					page:        pageIdx + 1,
				}

			case current != nil && hasAmount:
				// HSBC sub-transactions: a second balance-bearing row under
				// the same date is its own transaction.
				if current.balance != "" && bText != "" {
					prev := *current
					raws = append(raws, prev)
					current = &rawRow{
						txnDate:     prev.txnDate,
						valueDate:   prev.valueDate,
						description: descText,
						cptyText:    cptyText,
						withdrawal:  wText,
						deposit:     dText,
						balance:     bText,
						currency:    currentCurrency,
						section:     section,
						page:        pageIdx + 1,
					}
				} else {
					if hasDesc {
						current.description += " " + descText
						if cptyText != "" {
							current.cptyText += " " + cptyText
						}
					}
					if current.withdrawal == "" && wText != "" {
						current.withdrawal = wText
					}
					if current.deposit == "" && dText != "" {
						current.deposit = dText
					}
					if current.balance == "" && bText != "" {
						current.balance = bText
					}
				}

			case current != nil && hasDesc:
				current.description += " " + descText
				if cptyText != "" {
					current.cptyText += " " + cptyText
				}
			}
		}
		flush()
	}

	if len(raws) == 0 {
		return nil
	}

	final := finalizeRawRows(raws)
	if len(final) == 0 {
		return nil
	}

	// Some banks list newest-first; keep whichever order chains better.
	if quickChainScore(reversed(final)) > quickChainScore(final) {
		reverse(final)
		fmt.Println("  detected reverse-chronological order, reversed to forward order")
	}

	fmt.Printf("  word-position extraction: %d transactions\n", len(final))
	return &TierResult{
		Transactions:  final,
		AccountInfo:   accountInfo,
		ColumnHeaders: names,
	}
}

// finalizeRawRows converts assembled rows to canonical transactions,
// parsing column text into amounts with the HSBC DR-suffix convention on
// the balance column.
func finalizeRawRows(raws []rawRow) []Transaction {
	var out []Transaction
	for _, raw := range raws {
		desc := strings.TrimSpace(raw.description)
		descUpper := strings.ToUpper(desc)

		withdrawal := extractColumnAmount(raw.withdrawal, false)
		deposit := extractColumnAmount(raw.deposit, false)
		balance := extractColumnAmount(raw.balance, true)

		var txnType string
		switch {
		case containsAny(descUpper, "BALANCE B/F", "BALANCE BROUGHT", "BALANCEBROUGHT", "OPENING BALANCE"):
			txnType = "opening_balance"
		case containsAny(descUpper, "BALANCE C/F", "BALANCE CARRIED", "BALANCECARRIED", "CLOSING BALANCE"):
			txnType = "closing_balance"
			// C/F rows carry summary totals in the amount columns.
			withdrawal = nil
			deposit = nil
		case withdrawal != nil && deposit == nil:
			txnType = "debit"
		case deposit != nil && withdrawal == nil:
			txnType = "credit"
		case withdrawal != nil && deposit != nil:
			if *withdrawal >= *deposit {
				txnType = "debit"
			} else {
				txnType = "credit"
			}
		default:
			continue
		}

		fullDesc := desc
		if cpty := strings.TrimSpace(raw.cptyText); cpty != "" {
			fullDesc = desc + " | " + cpty
		}

		counterparty := strings.TrimSpace(raw.cptyText)
		if counterparty == "" {
			counterparty = ExtractCounterparty(fullDesc)
		}

		valueDate := raw.valueDate
		if valueDate == "" {
			valueDate = raw.txnDate
		}

		out = append(out, Transaction{
			TransactionDate: NormalizeDate(raw.txnDate),
			ValueDate:       NormalizeDate(valueDate),
			Description:     fullDesc,
			Withdrawal:      withdrawal,
			Deposit:         deposit,
			Balance:         balance,
			Type:            txnType,
			Channel:         DetectChannel(fullDesc),
			Counterparty:    counterparty,
			Currency:        raw.currency,
			AccountSection:  raw.section,
			Page:            raw.page,
		})
	}
	return out
}

// extractColumnAmount pulls the first monetary token from column text.
// Column text may carry trailing watermark characters. allowDR honours the
// HSBC convention where a DR suffix marks a negative balance.
func extractColumnAmount(text string, allowDR bool) *float64 {
	cleaned := strings.TrimSpace(strings.ReplaceAll(text, " ", ""))
	if cleaned == "" || cleaned == "-" {
		return nil
	}
	m := columnAmountRe.FindStringSubmatch(cleaned)
	if m == nil {
		return nil
	}
	val := ParseAmount(m[1])
	if val == nil {
		return nil
	}
	if allowDR && m[2] != "" {
		*val = -*val
	}
	return val
}

// quickChainScore counts valid balance transitions over the first 20
// credit/debit transactions with known balances.
func quickChainScore(txns []Transaction) int {
	var subset []Transaction
	for _, t := range txns {
		if (t.Type == "credit" || t.Type == "debit") && t.Balance != nil {
			subset = append(subset, t)
			if len(subset) == 20 {
				break
			}
		}
	}
	if len(subset) < 2 {
		return 0
	}
	valid := 0
	for i := 1; i < len(subset); i++ {
		prev := *subset[i-1].Balance
		curr := *subset[i].Balance
		amt := subset[i].Amount()
		expected := prev + amt
		if subset[i].Type == "debit" {
			expected = prev - amt
		}
		if math.Abs(round2(expected)-curr) <= chainTolerance {
			valid++
		}
	}
	return valid
}

func pickColumn(bounds map[string]colBounds, preferred ...string) string {
	for _, name := range preferred {
		if _, ok := bounds[name]; ok {
			return name
		}
	}
	return ""
}

func collectPageTexts(doc *pdf.Reader) []string {
	texts := make([]string, doc.PageCount())
	for i := 0; i < doc.PageCount(); i++ {
		t, err := doc.PageText(i)
		if err == nil {
			texts[i] = t
		}
	}
	return texts
}

func joinWords(words []pdf.Word) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		parts = append(parts, strings.TrimSpace(w.Text))
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func reversed(txns []Transaction) []Transaction {
	out := make([]Transaction, len(txns))
	for i, t := range txns {
		out[len(txns)-1-i] = t
	}
	return out
}

func reverse(txns []Transaction) {
	for i, j := 0, len(txns)-1; i < j; i, j = i+1, j-1 {
		txns[i], txns[j] = txns[j], txns[i]
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
