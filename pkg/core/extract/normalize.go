package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	dateDDMMMYYYYCompact = regexp.MustCompile(`(\d{2})([A-Za-z]{3})(\d{4})`)
	dateDDDashMMM        = regexp.MustCompile(`(\d{1,2})-([A-Za-z]{3})-\d{4}`)
	dateDDSpaceMMM       = regexp.MustCompile(`(\d{1,2})\s+([A-Za-z]{3})(?:\s+\d{4})?`)
	dateDDSlashMM        = regexp.MustCompile(`(\d{1,2})/(\d{1,2})(?:/\d{2,4})?`)
)

var monthNames = []string{"", "JAN", "FEB", "MAR", "APR", "MAY", "JUN",
	"JUL", "AUG", "SEP", "OCT", "NOV", "DEC"}

// ParseAmount parses a monetary string like "6,540.00" into a float.
// Parenthesised values are negative; empty or "-" yields nil.
func ParseAmount(val string) *float64 {
	cleaned := strings.TrimSpace(val)
	if cleaned == "" || cleaned == "-" {
		return nil
	}
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if strings.HasPrefix(cleaned, "(") && strings.HasSuffix(cleaned, ")") {
		cleaned = "-" + cleaned[1:len(cleaned)-1]
	}
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return nil
	}
	return &f
}

// NormalizeDate converts bank-native date strings to "DD MMM":
// "01-Sep-2025" → "01 SEP", "30SEP2025" → "30 SEP", "01/12/2025" → "01 DEC",
// "1 31 Dec 2025" → "31 DEC". Unrecognised input passes through unchanged.
func NormalizeDate(dateStr string) string {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return ""
	}
	if m := dateDDMMMYYYYCompact.FindStringSubmatch(dateStr); m != nil {
		return m[1] + " " + strings.ToUpper(m[2])
	}
	if m := dateDDDashMMM.FindStringSubmatch(dateStr); m != nil {
		return padDay(m[1]) + " " + strings.ToUpper(m[2])
	}
	if m := dateDDSpaceMMM.FindStringSubmatch(dateStr); m != nil {
		return padDay(m[1]) + " " + strings.ToUpper(m[2])
	}
	if m := dateDDSlashMM.FindStringSubmatch(dateStr); m != nil {
		mon, err := strconv.Atoi(m[2])
		if err == nil && mon >= 1 && mon <= 12 {
			return padDay(m[1]) + " " + monthNames[mon]
		}
	}
	return dateStr
}

func padDay(d string) string {
	if len(d) == 1 {
		return "0" + d
	}
	return d
}

// DetectChannel classifies the payment channel from the description.
func DetectChannel(description string) string {
	desc := strings.ToUpper(description)
	switch {
	case strings.Contains(desc, "FAST PAYMENT") || strings.Contains(desc, "FAST"):
		return "FAST"
	case strings.Contains(desc, "INTERBANK GIRO") || strings.Contains(desc, "IBG"):
		return "INTERBANK GIRO"
	case strings.Contains(desc, "GIRO"):
		return "GIRO"
	case strings.Contains(desc, "ADVICE") || strings.Contains(desc, "ADV "):
		return "ADVICE"
	case strings.Contains(desc, "REMITTANCE") || strings.Contains(desc, "RTF "):
		return "REMITTANCE"
	case strings.Contains(desc, "ATM"):
		return "ATM"
	case strings.Contains(desc, "DEBIT PURCHASE") || strings.Contains(desc, "DEBIT PURC"):
		return "DEBIT PURCHASE"
	case strings.Contains(desc, "CHEQUE") || strings.Contains(desc, "CHQ"):
		return "CHEQUE"
	case strings.Contains(desc, "NETS"):
		return "NETS"
	case strings.Contains(desc, "PAYNOW"):
		return "PayNow"
	}
	return "OTHER"
}

var (
	hexRefRe      = regexp.MustCompile(`^[0-9a-fA-F]{16,}$`)
	knownRefRe    = regexp.MustCompile(`^(EBGPP|X1AF|ADV |RTF |SGD |\d{14,})`)
	userRefRe     = regexp.MustCompile(`^\d+\s+U:`)
	sgdAmountRe   = regexp.MustCompile(`(?i)^SGD\s+[\d,.]+$`)
	categoryRowRe = regexp.MustCompile(`(?i)^(OTHER|SALARY PAYMENT|SUPPLIER PAYMENT|CLEARING LOANS)$`)
)

// ExtractCounterparty pulls a counterparty name out of a multi-line
// description. The first line is the channel; reference-looking lines are
// skipped; the first remaining alphabetic line wins. Single-line
// descriptions fall back to stripping the channel prefix.
func ExtractCounterparty(description string) string {
	if description == "" {
		return ""
	}
	normalized := strings.ReplaceAll(description, "\n", " | ")
	lines := strings.Split(normalized, " | ")
	if len(lines) < 2 {
		return singleLineCounterparty(lines[0])
	}
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if hexRefRe.MatchString(line) || knownRefRe.MatchString(line) ||
			userRefRe.MatchString(line) || sgdAmountRe.MatchString(line) ||
			categoryRowRe.MatchString(line) {
			continue
		}
		if len(line) > 2 && containsLetter(line) {
			return line
		}
	}
	return ""
}

var channelPrefixRe = regexp.MustCompile(`(?i)^(FAST PAYMENT|FAST|INTERBANK GIRO|IBG|GIRO|PAYNOW|NETS|ATM|DEBIT PURCHASE|CHEQUE|CHQ|REMITTANCE|ADVICE)\s+(OTHR|SALA|SUPP|ICOL|COLL|OTHER)?\s*`)

// singleLineCounterparty handles OCBC-style one-line descriptions like
// "FAST PAYMENT OTHR GELMAX SG3P251128972769": drop the channel prefix and
// keep the alphabetic tokens before the trailing reference.
func singleLineCounterparty(line string) string {
	rest := channelPrefixRe.ReplaceAllString(strings.TrimSpace(line), "")
	if rest == strings.TrimSpace(line) {
		return "" // no channel prefix, nothing to anchor on
	}
	var name []string
	for _, tok := range strings.Fields(rest) {
		if strings.ContainsAny(tok, "0123456789") {
			break
		}
		name = append(name, tok)
	}
	candidate := strings.Join(name, " ")
	if len(candidate) > 2 && containsLetter(candidate) {
		return candidate
	}
	return ""
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{"salary_payroll", []string{"SALARY", "PAYROLL", "WAGES", "CPF", "CPF CONTRIBUTION"}},
	{"rent", []string{"RENT", "LEASE", "TENANCY", "PROPERTY"}},
	{"utilities", []string{"SP SERVICES", "SINGTEL", "STARHUB", "M1", "UTILITIES", "POWER SUPPLY",
		"TOWN COUNCIL", "PUB ", "WATER", "ELECTRICITY", "SIMBA TELECOM"}},
	{"food_beverage", []string{"FOOD", "RESTAURANT", "CAFE", "COFFEE", "MCDONALD", "DELIVEROO",
		"GRAB FOOD", "FOODPANDA", "KFC", "SUBWAY", "STARBUCKS", "TOAST BOX", "YA KUN", "BAKERY",
		"ESPRESSO", "KOPITIAM", "HAWKER"}},
	{"transport", []string{"TAXI", "GRAB ", "GOJEK", "COMFORTDELGRO", "CDG ENGIE", "CDG EGIE",
		"TRANSIT", "EZ-LINK", "LTA", "PARKING", "SBS TRANSIT", "SMRT"}},
	{"supplier_payment", []string{"CARDUP", "SUPPLIER", "INVOICE", "VENDOR", "PURCHASE ORDER"}},
	{"revenue", []string{"ADYEN", "STRIPE", "PAYNOW", "COLLECTION", "REVENUE", "SALES",
		"PAYMENT RECEIVED", "CUSTOMER PAYMENT"}},
	{"loan", []string{"LOAN", "MORTGAGE", "FINANCING", "EMI", "INSTALMENT"}},
	{"tax_government", []string{"IRAS", "GST", "TAX", "ACRA", "GOVERNMENT", "CUSTOMS"}},
	{"insurance", []string{"INSURANCE", "AIA", "PRUDENTIAL", "GREAT EASTERN", "NTUC INCOME"}},
	{"fees_charges", []string{"BANK CHARGE", "SERVICE CHARGE", "FEE", "INTEREST", "LATE CHARGE",
		"ANNUAL FEE", "COMM ON"}},
	{"transfer", []string{"TRANSFER", "TRF", "IBG", "REMITTANCE", "TELEGRAPHIC"}},
	{"purchase", []string{"DEBIT PURCHASE", "DEBIT PURC", "VISA"}},
}

// Categorize maps a description to one of the fixed spending categories.
func Categorize(description string) string {
	desc := strings.ToUpper(description)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(desc, kw) {
				return entry.category
			}
		}
	}
	return "other"
}

var cashKeywords = []string{"CASH DEPOSIT", "CASH WITHDRAWAL", "ATM WITHDRAWAL",
	"ATM DEPOSIT", "CDM", "CASH DEP", "ATM"}

var chequeKeywords = []string{"CHEQUE", "CHQ", "CHEQUE DEPOSIT", "CHEQUE WITHDRAWAL"}

// IsCashTransaction reports cash or ATM movement.
func IsCashTransaction(description string) bool {
	desc := strings.ToUpper(description)
	for _, kw := range cashKeywords {
		if strings.Contains(desc, kw) {
			return true
		}
	}
	return false
}

// IsChequeTransaction reports cheque movement.
func IsChequeTransaction(description string) bool {
	desc := strings.ToUpper(description)
	for _, kw := range chequeKeywords {
		if strings.Contains(desc, kw) {
			return true
		}
	}
	return false
}

var nonASCIIRe = regexp.MustCompile(`[^\x00-\x7f]`)

// stripNonASCII removes non-ASCII characters (Chinese text in bilingual
// headers).
func stripNonASCII(s string) string {
	return strings.TrimSpace(nonASCIIRe.ReplaceAllString(s, ""))
}
