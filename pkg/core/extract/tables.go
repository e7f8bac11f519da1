package extract

import (
	"fmt"
	"regexp"
	"strings"

	"statement_analysis/pkg/core/pdf"
)

// Tier 1: grid-table reconstruction. Works for bordered statements (DBS,
// Standard Chartered) where the PDF carries an aligned cell structure.

var headerAliases = map[string]string{
	"date":                "transaction_date",
	"txn date":            "transaction_date",
	"transaction date":    "transaction_date",
	"date & time":         "transaction_date",
	"date and time":       "transaction_date",
	"value date":          "value_date",
	"val date":            "value_date",
	"transaction details": "description",
	"details":             "description",
	"description":         "description",
	"particulars":         "description",
	"counterparty":        "counterparty",
	"debit":               "debit",
	"withdrawal":          "debit",
	"withdrawals":         "debit",
	"dr":                  "debit",
	"credit":              "credit",
	"deposit":             "credit",
	"deposits":            "credit",
	"cr":                  "credit",
	"running balance":     "balance",
	"balance":             "balance",
	"bal":                 "balance",
	"closing balance":     "balance",
	"cheque":              "cheque",
	"chq":                 "cheque",
	"reference":           "reference",
	"ref":                 "reference",
}

var currencySuffixRe = regexp.MustCompile(`\s*\([A-Za-z]{3}\)\s*$`)

// normalizeHeader maps a raw column header onto a canonical field name, or
// "" when the header is not recognised.
func normalizeHeader(raw string) string {
	cleaned := strings.ToLower(strings.TrimSpace(raw))
	cleaned = stripNonASCII(cleaned)
	cleaned = strings.TrimSpace(strings.ReplaceAll(cleaned, "\n", " "))
	if canonical, ok := headerAliases[cleaned]; ok {
		return canonical
	}
	noCcy := strings.TrimSpace(currencySuffixRe.ReplaceAllString(cleaned, ""))
	if canonical, ok := headerAliases[noCcy]; ok {
		return canonical
	}
	if cleaned == "#" || cleaned == "no" || cleaned == "no." {
		return "sequence"
	}
	return ""
}

var startsWithDigitRe = regexp.MustCompile(`^\d`)

// extractFromTables attempts table-based extraction across all pages.
// Returns nil when the PDF is not table-structured, so the caller falls
// through to word-position inference.
func extractFromTables(doc *pdf.Reader) *TierResult {
	var all []Transaction
	var accountInfoTable pdf.Table
	var columnHeaders []string
	headerOnlyCount := 0

	for pageIdx := 0; pageIdx < doc.PageCount(); pageIdx++ {
		tables, err := doc.PageTables(pageIdx)
		if err != nil || len(tables) == 0 {
			if pageIdx < 2 && len(all) == 0 && len(tables) == 0 {
				fmt.Println("  no tables on first pages, PDF is not table-structured")
				return nil
			}
			continue
		}

		for _, table := range tables {
			if len(table) < 1 || len(table[0]) == 0 {
				continue
			}
			headerRow := table[0]
			mapped := make([]string, len(headerRow))
			for i, h := range headerRow {
				mapped[i] = normalizeHeader(h)
			}

			if pageIdx == 0 && accountInfoTable == nil {
				allCells := strings.ToLower(flattenCells(table))
				if strings.Contains(allCells, "opening balance") || strings.Contains(allCells, "account number") {
					accountInfoTable = table
					continue
				}
			}

			if !contains(mapped, "transaction_date") || !contains(mapped, "balance") {
				continue
			}
			if !contains(mapped, "debit") && !contains(mapped, "credit") {
				continue
			}

			// Header with no data rows: borderless layouts (Aspire) reconstruct
			// only the header band. Two of those and word-position extraction
			// takes over.
			if len(table) < 2 {
				headerOnlyCount++
				if headerOnlyCount >= 2 {
					fmt.Println("  tables have headers but no data rows, deferring to word-position extraction")
					return nil
				}
				continue
			}

			columnHeaders = mapped
			for _, row := range table[1:] {
				if txn := parseTableRow(row, mapped); txn != nil {
					all = append(all, *txn)
				}
			}
		}
	}

	if len(all) == 0 {
		return nil
	}

	result := &TierResult{Transactions: all, ColumnHeaders: columnHeaders}
	if accountInfoTable != nil {
		result.AccountInfo = parseAccountInfoTable(accountInfoTable)
	}
	fmt.Printf("  table extraction: %d transactions\n", len(all))
	return result
}

func parseTableRow(row []string, mapped []string) *Transaction {
	cells := map[string]string{}
	for i, canonical := range mapped {
		if canonical != "" && i < len(row) {
			cells[canonical] = row[i]
		}
	}

	dateVal := strings.TrimSpace(cells["transaction_date"])
	if dateVal == "" || !startsWithDigitRe.MatchString(dateVal) {
		return nil // continuation or summary row
	}

	debit := ParseAmount(cells["debit"])
	credit := ParseAmount(cells["credit"])
	balance := ParseAmount(cells["balance"])
	rawDesc := cells["description"]
	description := strings.TrimSpace(strings.ReplaceAll(rawDesc, "\n", " "))

	var txnType string
	switch {
	case debit != nil && credit == nil:
		txnType = "debit"
	case credit != nil && debit == nil:
		txnType = "credit"
	case debit != nil && credit != nil:
		if *debit >= *credit {
			txnType = "debit"
		} else {
			txnType = "credit"
		}
	default:
		descUpper := strings.ToUpper(description)
		switch {
		case strings.Contains(descUpper, "BALANCE B/F") || strings.Contains(descUpper, "OPENING") ||
			strings.Contains(descUpper, "BALANCE BROUGHT"):
			txnType = "opening_balance"
		case strings.Contains(descUpper, "BALANCE C/F") || strings.Contains(descUpper, "CLOSING") ||
			strings.Contains(descUpper, "BALANCE CARRIED"):
			txnType = "closing_balance"
		default:
			return nil
		}
	}

	valueDate := strings.TrimSpace(cells["value_date"])
	if valueDate == "" {
		valueDate = dateVal
	}

	return &Transaction{
		TransactionDate: NormalizeDate(dateVal),
		ValueDate:       NormalizeDate(valueDate),
		Description:     description,
		Withdrawal:      debit,
		Deposit:         credit,
		Balance:         balance,
		Type:            txnType,
		Channel:         DetectChannel(description),
		Counterparty:    ExtractCounterparty(rawDesc),
		Reference:       strings.TrimSpace(cells["reference"]),
	}
}

var (
	amountWithDateRe = regexp.MustCompile(`([\d,]+\.\d{2})\s*(.*)`)
	acctNumberRe     = regexp.MustCompile(`([\d\-]+)\s*(?:-\s*(\w+))?`)
	acctNameSuffixRe = regexp.MustCompile(`\s*-\s*\d[\d\-]+.*$`)
)

// parseAccountInfoTable reads DBS-style label/value header tables:
//
//	Account Number :  | 0725385342 - SGD | Account Name : | HOH JIA PTE. LTD.
//	Opening Balance : | 84,650.03 01-Sep-2025
//	Ledger Balance :  | 157,657.34 30-Sep-2025
func parseAccountInfoTable(table pdf.Table) AccountInfo {
	var info AccountInfo
	for _, row := range table {
		for i, cell := range row {
			cellLower := strings.ToLower(strings.TrimSpace(cell))
			next := ""
			if i+1 < len(row) {
				next = strings.TrimSpace(row[i+1])
			}
			if next == "" {
				continue
			}

			switch {
			case strings.Contains(cellLower, "account number"):
				if m := acctNumberRe.FindStringSubmatch(next); m != nil {
					info.AccountNumber = strings.TrimSpace(m[1])
					if m[2] != "" {
						info.Currency = strings.TrimSpace(m[2])
					}
				}
			case strings.Contains(cellLower, "account name"):
				info.AccountHolder = strings.TrimSpace(acctNameSuffixRe.ReplaceAllString(next, ""))
			case strings.Contains(cellLower, "product type"):
				info.AccountType = next
			case strings.Contains(cellLower, "opening balance"):
				if m := amountWithDateRe.FindStringSubmatch(next); m != nil {
					info.OpeningBalance = ParseAmount(m[1])
					info.OpeningDate = strings.TrimSpace(m[2])
				}
			case strings.Contains(cellLower, "ledger balance"):
				if m := amountWithDateRe.FindStringSubmatch(next); m != nil {
					info.ClosingBalance = ParseAmount(m[1])
					info.ClosingDate = strings.TrimSpace(m[2])
				}
			case strings.Contains(cellLower, "available balance"):
				if m := amountWithDateRe.FindStringSubmatch(next); m != nil {
					info.AvailableBalance = ParseAmount(m[1])
				}
			}
		}
	}
	if info.OpeningDate != "" && info.ClosingDate != "" {
		info.StatementPeriod = info.OpeningDate + " to " + info.ClosingDate
	}
	return info
}

func flattenCells(table pdf.Table) string {
	var sb strings.Builder
	for _, row := range table {
		for _, cell := range row {
			sb.WriteString(cell)
			sb.WriteString(" ")
		}
	}
	return sb.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
