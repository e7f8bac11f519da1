package extract

import (
	"regexp"
	"strings"
)

var (
	acctNoRe      = regexp.MustCompile(`(?i)Account\s*(?:No\.?|Number)\s*:?\s*(\d[\d\s\-]+\d)`)
	acctNoAltRe   = regexp.MustCompile(`(?i)A/C\s*No\.?\s*[:\s]*(\d[\d\-]+\d)`)
	periodRe      = regexp.MustCompile(`(\d{1,2}[\s\-][A-Za-z]{3}[\s\-]\d{4})\s+(?:TO|to|-)\s+(\d{1,2}[\s\-][A-Za-z]{3}[\s\-]\d{4})`)
	stmtDateRe    = regexp.MustCompile(`(?i)Statement\s*Date\s*:?\s*(\d{1,2}[A-Za-z]{3}\d{4}|\d{1,2}[\s\-][A-Za-z]{3}[\s\-]\d{4})`)
	ccyTokenRe    = regexp.MustCompile(`\b(SGD|USD|MYR|IDR|EUR|GBP|AUD|HKD)\b`)
	acctStripRe   = regexp.MustCompile(`[\s\-]`)
	upperNameRe   = regexp.MustCompile(`^[A-Z\s.&,\-()]+$`)
	holderSkipSet = []string{"ACCOUNT", "OCBC", "DBS", "UOB", "STATEMENT",
		"TRANSACTION", "BALANCE", "BUSINESS", "PAGE", "DATE"}
)

// extractAccountInfoFromText sweeps the first three pages with generic
// patterns: account number, statement period, currency, and the account
// holder (first prominent all-caps line in the address block).
func extractAccountInfoFromText(pageTexts []string) AccountInfo {
	var info AccountInfo

	limit := len(pageTexts)
	if limit > 3 {
		limit = 3
	}
	for _, text := range pageTexts[:limit] {
		lines := strings.Split(text, "\n")

		for _, line := range lines {
			s := strings.TrimSpace(line)

			if info.AccountNumber == "" {
				if m := acctNoRe.FindStringSubmatch(s); m != nil {
					info.AccountNumber = acctStripRe.ReplaceAllString(m[1], "")
				} else if m := acctNoAltRe.FindStringSubmatch(s); m != nil {
					info.AccountNumber = acctStripRe.ReplaceAllString(m[1], "")
				}
			}
			if info.StatementPeriod == "" {
				if m := periodRe.FindStringSubmatch(s); m != nil {
					info.StatementPeriod = m[1] + " to " + m[2]
				}
			}
			if info.ClosingDate == "" {
				if m := stmtDateRe.FindStringSubmatch(s); m != nil {
					info.ClosingDate = m[1]
				}
			}
			if info.Currency == "" {
				if m := ccyTokenRe.FindStringSubmatch(s); m != nil {
					info.Currency = m[1]
				}
			}
		}

		if info.AccountHolder == "" {
			foundMarker := false
			for _, line := range lines {
				s := strings.TrimSpace(line)
				if strings.Contains(strings.ToUpper(s), "STATEMENT OF ACCOUNT") || strings.Contains(s, "Singapore") {
					foundMarker = true
					continue
				}
				if !foundMarker || len(s) <= 5 || s != strings.ToUpper(s) {
					continue
				}
				if containsAny(s, holderSkipSet...) {
					continue
				}
				if upperNameRe.MatchString(s) {
					info.AccountHolder = s
					break
				}
			}
		}
	}

	return info
}
