package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"statement_analysis/pkg/models"
)

// TransactionRepo handles the canonical extracted transactions.
type TransactionRepo struct{}

func NewTransactionRepo() *TransactionRepo {
	return &TransactionRepo{}
}

// ReplaceTransactions swaps the document's transaction set atomically.
// Extraction re-runs overwrite rather than append, so results stay
// idempotent.
func (r *TransactionRepo) ReplaceTransactions(ctx context.Context, documentID string, txns []models.RawTransaction) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM raw_transactions WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("failed to clear previous transactions: %w", err)
	}

	batch := &pgx.Batch{}
	for i, t := range txns {
		if t.ID == "" {
			t.ID = models.NewID()
		}
		batch.Queue(`
			INSERT INTO raw_transactions (id, document_id, upload_group_id, date, description,
				transaction_type, amount, balance, reference, category, counterparty, channel,
				is_cash, is_cheque, currency, page_number, raw_text, seq)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
			t.ID, documentID, t.UploadGroupID, t.Date, t.Description,
			t.Type, t.Amount, t.Balance, t.Reference, t.Category, t.Counterparty, t.Channel,
			t.IsCash, t.IsCheque, t.Currency, t.PageNumber, t.RawText, i)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert transactions: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transactions: %w", err)
	}
	return nil
}

const transactionColumns = `id, document_id, COALESCE(upload_group_id, ''), date, description,
	transaction_type, amount, balance, reference, category, counterparty, channel,
	is_cash, is_cheque, currency, page_number, raw_text`

func collectTransactions(rows pgx.Rows) ([]models.RawTransaction, error) {
	var txns []models.RawTransaction
	for rows.Next() {
		var t models.RawTransaction
		err := rows.Scan(&t.ID, &t.DocumentID, &t.UploadGroupID, &t.Date, &t.Description,
			&t.Type, &t.Amount, &t.Balance, &t.Reference, &t.Category, &t.Counterparty,
			&t.Channel, &t.IsCash, &t.IsCheque, &t.Currency, &t.PageNumber, &t.RawText)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// TransactionsForDocument returns the document's transactions in statement
// order.
func (r *TransactionRepo) TransactionsForDocument(ctx context.Context, documentID string) ([]models.RawTransaction, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	rows, err := pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM raw_transactions WHERE document_id = $1 ORDER BY seq`,
		documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// TransactionsForGroup pools every group document's transactions, grouped
// by document in upload order.
func (r *TransactionRepo) TransactionsForGroup(ctx context.Context, groupID string) ([]models.RawTransaction, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	rows, err := pool.Query(ctx, `
		SELECT `+transactionColumns+`
		FROM raw_transactions t
		WHERE t.upload_group_id = $1
		ORDER BY (SELECT d.created_at FROM documents d WHERE d.id = t.document_id), t.seq`,
		groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load group transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// TransactionPage is the filter for the paginated transactions endpoint.
type TransactionPage struct {
	Limit           int
	Offset          int
	TransactionType string
	Category        string
}

// TransactionsPage returns one page of a document's transactions plus the
// total count under the same filter.
func (r *TransactionRepo) TransactionsPage(ctx context.Context, documentID string, page TransactionPage) ([]models.RawTransaction, int, error) {
	pool := GetPool()
	if pool == nil {
		return nil, 0, fmt.Errorf("database pool not initialized")
	}

	where := `WHERE document_id = $1`
	args := []interface{}{documentID}
	if page.TransactionType != "" {
		args = append(args, page.TransactionType)
		where += fmt.Sprintf(` AND transaction_type = $%d`, len(args))
	}
	if page.Category != "" {
		args = append(args, page.Category)
		where += fmt.Sprintf(` AND category = $%d`, len(args))
	}

	var total int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM raw_transactions `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	if page.Limit <= 0 {
		page.Limit = 100
	}
	args = append(args, page.Limit, page.Offset)
	query := fmt.Sprintf(`SELECT `+transactionColumns+` FROM raw_transactions %s ORDER BY seq LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args))

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load transactions: %w", err)
	}
	defer rows.Close()

	txns, err := collectTransactions(rows)
	return txns, total, err
}
