package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"statement_analysis/pkg/models"
)

// MetricsRepo stores per-statement and group-aggregated metrics. Both are
// wide, evolving shapes, so they live in JSONB blobs keyed by owner id.
type MetricsRepo struct{}

func NewMetricsRepo() *MetricsRepo {
	return &MetricsRepo{}
}

// SaveStatementMetrics upserts the document's metrics blob.
func (r *MetricsRepo) SaveStatementMetrics(ctx context.Context, m *models.StatementMetrics) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	blob, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal statement metrics: %w", err)
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO statement_metrics (document_id, upload_group_id, metrics, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (document_id)
		DO UPDATE SET metrics = EXCLUDED.metrics, upload_group_id = EXCLUDED.upload_group_id, updated_at = now()`,
		m.DocumentID, m.UploadGroupID, blob)
	if err != nil {
		return fmt.Errorf("failed to save statement metrics: %w", err)
	}
	return nil
}

// StatementMetricsForDocument loads one document's metrics.
func (r *MetricsRepo) StatementMetricsForDocument(ctx context.Context, documentID string) (*models.StatementMetrics, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	var blob []byte
	err := pool.QueryRow(ctx,
		`SELECT metrics FROM statement_metrics WHERE document_id = $1`, documentID).Scan(&blob)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("no metrics for document %s", documentID)
		}
		return nil, fmt.Errorf("failed to load statement metrics: %w", err)
	}

	var m models.StatementMetrics
	if err := json.Unmarshal(blob, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal statement metrics: %w", err)
	}
	return &m, nil
}

// StatementMetricsForGroup returns every statement's metrics in document
// upload order, which follows statement chronology for multi-month
// uploads.
func (r *MetricsRepo) StatementMetricsForGroup(ctx context.Context, groupID string) ([]models.StatementMetrics, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	rows, err := pool.Query(ctx, `
		SELECT sm.metrics
		FROM statement_metrics sm
		JOIN documents d ON d.id = sm.document_id
		WHERE sm.upload_group_id = $1
		ORDER BY d.created_at`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to load group metrics: %w", err)
	}
	defer rows.Close()

	var out []models.StatementMetrics
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("failed to scan metrics row: %w", err)
		}
		var m models.StatementMetrics
		if err := json.Unmarshal(blob, &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metrics row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// SaveAggregatedMetrics upserts the group roll-up.
func (r *MetricsRepo) SaveAggregatedMetrics(ctx context.Context, agg *models.AggregatedMetrics) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	blob, err := json.Marshal(agg)
	if err != nil {
		return fmt.Errorf("failed to marshal aggregated metrics: %w", err)
	}

	_, err = pool.Exec(ctx, `
		INSERT INTO aggregated_metrics (upload_group_id, metrics, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (upload_group_id)
		DO UPDATE SET metrics = EXCLUDED.metrics, updated_at = now()`,
		agg.UploadGroupID, blob)
	if err != nil {
		return fmt.Errorf("failed to save aggregated metrics: %w", err)
	}
	return nil
}

// AggregatedMetricsForGroup loads the group roll-up.
func (r *MetricsRepo) AggregatedMetricsForGroup(ctx context.Context, groupID string) (*models.AggregatedMetrics, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	var blob []byte
	err := pool.QueryRow(ctx,
		`SELECT metrics FROM aggregated_metrics WHERE upload_group_id = $1`, groupID).Scan(&blob)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("no aggregated metrics for group %s", groupID)
		}
		return nil, fmt.Errorf("failed to load aggregated metrics: %w", err)
	}

	var agg models.AggregatedMetrics
	if err := json.Unmarshal(blob, &agg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal aggregated metrics: %w", err)
	}
	return &agg, nil
}
