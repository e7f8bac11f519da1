package models

import (
	"time"

	"github.com/google/uuid"
)

// Document lifecycle states.
const (
	DocStatusUploaded   = "uploaded"
	DocStatusProcessing = "processing"
	DocStatusCompleted  = "completed"
	DocStatusFailed     = "failed"
)

// Agent types. Layout through Insights run per document; Tampering, Fraud and
// Insights additionally run at group level.
const (
	AgentLayout     = "layout"
	AgentExtraction = "extraction"
	AgentTampering  = "tampering"
	AgentFraud      = "fraud"
	AgentInsights   = "insights"
)

// Agent execution states.
const (
	AgentStatusPending   = "pending"
	AgentStatusRunning   = "running"
	AgentStatusCompleted = "completed"
	AgentStatusFailed    = "failed"
)

// Risk levels produced by agent roll-ups.
const (
	RiskLow      = "low"
	RiskMedium   = "medium"
	RiskHigh     = "high"
	RiskCritical = "critical"
)

// Transaction directions. Opening/closing rows are markers used for balance
// chain sectioning and are never persisted as raw transactions.
const (
	TxnCredit         = "credit"
	TxnDebit          = "debit"
	TxnOpeningBalance = "opening_balance"
	TxnClosingBalance = "closing_balance"
)

// DocAgentTypes is the execution order for a single document.
var DocAgentTypes = []string{AgentLayout, AgentExtraction, AgentTampering, AgentFraud, AgentInsights}

// GroupAgentTypes is the execution order for the group phase.
var GroupAgentTypes = []string{AgentTampering, AgentFraud, AgentInsights}

// NewID returns a fresh uuid string for entity primary keys.
func NewID() string {
	return uuid.NewString()
}

// UploadGroup bundles the documents uploaded together in one request.
type UploadGroup struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// Document is an uploaded PDF bank statement.
type Document struct {
	ID               string    `json:"id"`
	Filename         string    `json:"filename"`
	OriginalFilename string    `json:"original_filename"`
	FilePath         string    `json:"file_path"`
	FileSize         int64     `json:"file_size"`
	PageCount        int       `json:"page_count"`
	Status           string    `json:"status"`
	UploadGroupID    string    `json:"upload_group_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// RawTransaction is one canonical transaction extracted from a statement.
type RawTransaction struct {
	ID            string   `json:"id"`
	DocumentID    string   `json:"document_id"`
	UploadGroupID string   `json:"upload_group_id"`
	Date          string   `json:"date"` // normalised "DD MMM"
	Description   string   `json:"description"`
	Type          string   `json:"transaction_type"` // credit / debit
	Amount        float64  `json:"amount"`
	Balance       *float64 `json:"balance"` // running balance after the transaction, when printed
	Reference     string   `json:"reference"`
	Category      string   `json:"category"`
	Counterparty  string   `json:"counterparty"`
	Channel       string   `json:"channel"`
	IsCash        bool     `json:"is_cash"`
	IsCheque      bool     `json:"is_cheque"`
	Currency      string   `json:"currency"`
	PageNumber    int      `json:"page_number"`
	RawText       string   `json:"raw_text"`
}

// StatementMetrics holds the per-statement aggregates derived from one
// document's transactions plus the extracted account info.
type StatementMetrics struct {
	DocumentID        string `json:"document_id"`
	UploadGroupID     string `json:"upload_group_id"`
	AccountHolder     string `json:"account_holder"`
	Bank              string `json:"bank"`
	AccountNumber     string `json:"account_number"`
	Currency          string `json:"currency"`
	StatementPeriod   string `json:"statement_period"`
	MonthsOfStatement string `json:"months_of_statement"`

	OpeningBalance *float64 `json:"opening_balance"`
	ClosingBalance *float64 `json:"closing_balance"`
	MaxEODBalance  *float64 `json:"max_eod_balance"`
	MinEODBalance  *float64 `json:"min_eod_balance"`
	AvgEODBalance  *float64 `json:"avg_eod_balance"`

	TotalNoOfCreditTransactions     int     `json:"total_no_of_credit_transactions"`
	TotalAmountOfCreditTransactions float64 `json:"total_amount_of_credit_transactions"`
	TotalNoOfDebitTransactions      int     `json:"total_no_of_debit_transactions"`
	TotalAmountOfDebitTransactions  float64 `json:"total_amount_of_debit_transactions"`
	AverageDeposit                  float64 `json:"average_deposit"`
	AverageWithdrawal               float64 `json:"average_withdrawal"`
	MaxDebitTransaction             float64 `json:"max_debit_transaction"`
	MinDebitTransaction             float64 `json:"min_debit_transaction"`
	MaxCreditTransaction            float64 `json:"max_credit_transaction"`
	MinCreditTransaction            float64 `json:"min_credit_transaction"`

	TotalNoOfCashDeposits          int     `json:"total_no_of_cash_deposits"`
	TotalAmountOfCashDeposits      float64 `json:"total_amount_of_cash_deposits"`
	TotalNoOfCashWithdrawals       int     `json:"total_no_of_cash_withdrawals"`
	TotalAmountOfCashWithdrawals   float64 `json:"total_amount_of_cash_withdrawals"`
	TotalNoOfChequeWithdrawals     int     `json:"total_no_of_cheque_withdrawals"`
	TotalAmountOfChequeWithdrawals float64 `json:"total_amount_of_cheque_withdrawals"`

	TotalFeesCharged float64 `json:"total_fees_charged"`

	// Attached only when more than one currency was observed.
	CurrencyBreakdown map[string]CurrencyMetrics `json:"currency_breakdown,omitempty"`
}

// CurrencyMetrics is the per-currency slice of a multi-currency statement.
type CurrencyMetrics struct {
	Currency          string   `json:"currency"`
	OpeningBalance    *float64 `json:"opening_balance"`
	ClosingBalance    *float64 `json:"closing_balance"`
	TotalCredits      int      `json:"total_credits"`
	TotalCreditAmount float64  `json:"total_credit_amount"`
	TotalDebits       int      `json:"total_debits"`
	TotalDebitAmount  float64  `json:"total_debit_amount"`
	MaxBalance        *float64 `json:"max_balance"`
	MinBalance        *float64 `json:"min_balance"`
	AvgBalance        *float64 `json:"avg_balance"`
	TransactionCount  int      `json:"transaction_count"`
}

// MonthlyAmount is a month bucket used for charting trends.
type MonthlyAmount struct {
	Month  string  `json:"month"`
	Amount float64 `json:"amount"`
}

// MonthlyBalance pairs a month with its opening and closing balances.
type MonthlyBalance struct {
	Month   string  `json:"month"`
	Opening float64 `json:"opening"`
	Closing float64 `json:"closing"`
}

// AggregatedMetrics is the cross-statement roll-up for an upload group.
type AggregatedMetrics struct {
	UploadGroupID   string `json:"upload_group_id"`
	AccountHolder   string `json:"account_holder"`
	Bank            string `json:"bank"`
	AccountNumber   string `json:"account_number"`
	Currency        string `json:"currency"`
	TotalStatements int    `json:"total_statements"`
	PeriodCovered   string `json:"period_covered"`

	OverallMaxEODBalance *float64 `json:"overall_max_eod_balance"`
	OverallMinEODBalance *float64 `json:"overall_min_eod_balance"`
	OverallAvgEODBalance *float64 `json:"overall_avg_eod_balance"`
	AvgOpeningBalance    *float64 `json:"avg_opening_balance"`
	AvgClosingBalance    *float64 `json:"avg_closing_balance"`

	TotalCreditTransactions int     `json:"total_credit_transactions"`
	TotalCreditAmount       float64 `json:"total_credit_amount"`
	TotalDebitTransactions  int     `json:"total_debit_transactions"`
	TotalDebitAmount        float64 `json:"total_debit_amount"`
	OverallAvgDeposit       float64 `json:"overall_avg_deposit"`
	OverallAvgWithdrawal    float64 `json:"overall_avg_withdrawal"`
	OverallMaxDebit         float64 `json:"overall_max_debit"`
	OverallMaxCredit        float64 `json:"overall_max_credit"`

	TotalCashDeposits           int     `json:"total_cash_deposits"`
	TotalCashDepositAmount      float64 `json:"total_cash_deposit_amount"`
	TotalCashWithdrawals        int     `json:"total_cash_withdrawals"`
	TotalCashWithdrawalAmount   float64 `json:"total_cash_withdrawal_amount"`
	TotalChequeWithdrawals      int     `json:"total_cheque_withdrawals"`
	TotalChequeWithdrawalAmount float64 `json:"total_cheque_withdrawal_amount"`
	TotalFees                   float64 `json:"total_fees"`

	MonthlyCreditTotals []MonthlyAmount  `json:"monthly_credit_totals"`
	MonthlyDebitTotals  []MonthlyAmount  `json:"monthly_debit_totals"`
	MonthlyBalances     []MonthlyBalance `json:"monthly_balances"`
}

// AgentOutcome is the uniform result every agent produces.
type AgentOutcome struct {
	Results   map[string]interface{} `json:"results"`
	Summary   string                 `json:"summary"`
	RiskLevel string                 `json:"risk_level"`
}

// AgentResult records one agent run against one document.
type AgentResult struct {
	ID            string                 `json:"id"`
	DocumentID    string                 `json:"document_id"`
	UploadGroupID string                 `json:"upload_group_id"`
	AgentType     string                 `json:"agent_type"`
	Status        string                 `json:"status"`
	Results       map[string]interface{} `json:"results"`
	Summary       string                 `json:"summary"`
	RiskLevel     string                 `json:"risk_level"`
	StartedAt     *time.Time             `json:"started_at"`
	CompletedAt   *time.Time             `json:"completed_at"`
	ErrorMessage  string                 `json:"error_message"`
	CreatedAt     time.Time              `json:"created_at"`
}

// GroupAgentResult records one group-level agent run.
type GroupAgentResult struct {
	ID            string                 `json:"id"`
	UploadGroupID string                 `json:"upload_group_id"`
	AgentType     string                 `json:"agent_type"`
	Status        string                 `json:"status"`
	Results       map[string]interface{} `json:"results"`
	Summary       string                 `json:"summary"`
	RiskLevel     string                 `json:"risk_level"`
	StartedAt     *time.Time             `json:"started_at"`
	CompletedAt   *time.Time             `json:"completed_at"`
	ErrorMessage  string                 `json:"error_message"`
	CreatedAt     time.Time              `json:"created_at"`
}

// CheckResult is the shape shared by every tampering and fraud check.
type CheckResult struct {
	Check        string        `json:"check"`
	Status       string        `json:"status"` // pass / fail / warning
	Details      string        `json:"details"`
	FlaggedItems []interface{} `json:"flagged_items,omitempty"`
}

const (
	CheckPass    = "pass"
	CheckFail    = "fail"
	CheckWarning = "warning"
)
