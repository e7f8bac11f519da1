package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"statement_analysis/pkg/models"
)

// DocumentRepo handles upload groups and documents.
type DocumentRepo struct{}

func NewDocumentRepo() *DocumentRepo {
	return &DocumentRepo{}
}

// CreateUploadGroup inserts a new group and returns its id.
func (r *DocumentRepo) CreateUploadGroup(ctx context.Context) (string, error) {
	pool := GetPool()
	if pool == nil {
		return "", fmt.Errorf("database pool not initialized")
	}

	id := models.NewID()
	_, err := pool.Exec(ctx, `INSERT INTO upload_groups (id) VALUES ($1)`, id)
	if err != nil {
		return "", fmt.Errorf("failed to create upload group: %w", err)
	}
	return id, nil
}

// CreateDocument persists a freshly uploaded document.
func (r *DocumentRepo) CreateDocument(ctx context.Context, doc *models.Document) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	if doc.Status == "" {
		doc.Status = models.DocStatusUploaded
	}

	_, err := pool.Exec(ctx, `
		INSERT INTO documents (id, filename, original_filename, file_path, file_size,
			page_count, status, upload_group_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		doc.ID, doc.Filename, doc.OriginalFilename, doc.FilePath, doc.FileSize,
		doc.PageCount, doc.Status, doc.UploadGroupID, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

const documentColumns = `id, filename, original_filename, file_path, file_size,
	page_count, status, COALESCE(upload_group_id, ''), created_at, updated_at`

func scanDocument(row pgx.Row) (*models.Document, error) {
	var doc models.Document
	err := row.Scan(&doc.ID, &doc.Filename, &doc.OriginalFilename, &doc.FilePath,
		&doc.FileSize, &doc.PageCount, &doc.Status, &doc.UploadGroupID,
		&doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Document fetches one document by id.
func (r *DocumentRepo) Document(ctx context.Context, documentID string) (*models.Document, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	doc, err := scanDocument(pool.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = $1`, documentID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("document %s not found", documentID)
		}
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return doc, nil
}

// Documents lists every document, newest first.
func (r *DocumentRepo) Documents(ctx context.Context) ([]models.Document, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	rows, err := pool.Query(ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()
	return collectDocuments(rows)
}

// DocumentsForGroup lists the group's documents in upload order.
func (r *DocumentRepo) DocumentsForGroup(ctx context.Context, groupID string) ([]models.Document, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	rows, err := pool.Query(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE upload_group_id = $1 ORDER BY created_at`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list group documents: %w", err)
	}
	defer rows.Close()
	return collectDocuments(rows)
}

func collectDocuments(rows pgx.Rows) ([]models.Document, error) {
	var docs []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// SetDocumentStatus updates the lifecycle state.
func (r *DocumentRepo) SetDocumentStatus(ctx context.Context, documentID, status string) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	tag, err := pool.Exec(ctx,
		`UPDATE documents SET status = $2, updated_at = now() WHERE id = $1`,
		documentID, status)
	if err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s not found", documentID)
	}
	return nil
}

// DeleteDocument removes the document; transactions, metrics and agent
// results go with it via the schema's cascades.
func (r *DocumentRepo) DeleteDocument(ctx context.Context, documentID string) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	tag, err := pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s not found", documentID)
	}
	return nil
}

// UploadGroups lists every group, newest first.
func (r *DocumentRepo) UploadGroups(ctx context.Context) ([]models.UploadGroup, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	rows, err := pool.Query(ctx,
		`SELECT id, created_at FROM upload_groups ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list upload groups: %w", err)
	}
	defer rows.Close()

	var groups []models.UploadGroup
	for rows.Next() {
		var g models.UploadGroup
		if err := rows.Scan(&g.ID, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan upload group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}
