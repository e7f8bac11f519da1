package extract

// Transaction is the canonical form every tier converges on before
// de-duplication and persistence.
type Transaction struct {
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
	Currency        string   `json:"currency"`
	AccountSection  int      `json:"account_section"`
	Page            int      `json:"page_number"`
}

// Amount returns whichever side of the ledger this transaction moved.
func (t *Transaction) Amount() float64 {
	if t.Withdrawal != nil {
		return *t.Withdrawal
	}
	if t.Deposit != nil {
		return *t.Deposit
	}
	return 0
}

// Date prefers the value date, matching how transactions are persisted.
func (t *Transaction) Date() string {
	if t.ValueDate != "" {
		return t.ValueDate
	}
	return t.TransactionDate
}

// AccountInfo holds statement-level identity fields assembled from the
// account-info table, regex sweep, and model fallback.
type AccountInfo struct {
	AccountHolder    string   `json:"account_holder"`
	Bank             string   `json:"bank"`
	AccountNumber    string   `json:"account_number"`
	Currency         string   `json:"currency"`
	StatementPeriod  string   `json:"statement_period"`
	AccountType      string   `json:"account_type"`
	OpeningBalance   *float64 `json:"opening_balance,omitempty"`
	ClosingBalance   *float64 `json:"closing_balance,omitempty"`
	AvailableBalance *float64 `json:"available_balance,omitempty"`
	OpeningDate      string   `json:"opening_date,omitempty"`
	ClosingDate      string   `json:"closing_date,omitempty"`
}

// merge fills empty fields of a from b. a's values win.
func (a *AccountInfo) merge(b AccountInfo) {
	if a.AccountHolder == "" {
		a.AccountHolder = b.AccountHolder
	}
	if a.Bank == "" {
		a.Bank = b.Bank
	}
	if a.AccountNumber == "" {
		a.AccountNumber = b.AccountNumber
	}
	if a.Currency == "" {
		a.Currency = b.Currency
	}
	if a.StatementPeriod == "" {
		a.StatementPeriod = b.StatementPeriod
	}
	if a.AccountType == "" {
		a.AccountType = b.AccountType
	}
	if a.OpeningBalance == nil {
		a.OpeningBalance = b.OpeningBalance
	}
	if a.ClosingBalance == nil {
		a.ClosingBalance = b.ClosingBalance
	}
	if a.OpeningDate == "" {
		a.OpeningDate = b.OpeningDate
	}
	if a.ClosingDate == "" {
		a.ClosingDate = b.ClosingDate
	}
}

// TierResult is what each extraction tier hands back: canonical transactions
// plus whatever account info the tier could recover on the way.
type TierResult struct {
	Transactions  []Transaction
	AccountInfo   AccountInfo
	ColumnHeaders []string
}

func floatPtr(f float64) *float64 { return &f }
