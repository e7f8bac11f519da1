package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"statement_analysis/pkg/models"
)

// ResultRepo handles per-document and group agent results, including the
// at-most-once status gates the orchestrator relies on.
type ResultRepo struct{}

func NewResultRepo() *ResultRepo {
	return &ResultRepo{}
}

// StartAgentRun claims the (document, agent) run. A fresh row is created
// as running; a pending or failed row is re-claimed in place. Returns
// false without error when the run is already completed or held by
// another task.
func (r *ResultRepo) StartAgentRun(ctx context.Context, documentID, groupID, agentType string) (bool, error) {
	pool := GetPool()
	if pool == nil {
		return false, fmt.Errorf("database pool not initialized")
	}

	var id string
	err := pool.QueryRow(ctx, `
		INSERT INTO agent_results (id, document_id, upload_group_id, agent_type, status, started_at)
		VALUES ($1, $2, $3, $4, 'running', now())
		ON CONFLICT (document_id, agent_type) DO UPDATE
		SET status = 'running', started_at = now(), error_message = ''
		WHERE agent_results.status IN ('pending', 'failed')
		RETURNING id`,
		models.NewID(), documentID, groupID, agentType).Scan(&id)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to claim agent run: %w", err)
	}
	return true, nil
}

// CompleteAgentRun records a successful run.
func (r *ResultRepo) CompleteAgentRun(ctx context.Context, documentID, agentType string, outcome *models.AgentOutcome) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	blob, err := json.Marshal(outcome.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal agent results: %w", err)
	}

	_, err = pool.Exec(ctx, `
		UPDATE agent_results
		SET status = 'completed', results = $3, summary = $4, risk_level = $5,
			completed_at = now(), error_message = ''
		WHERE document_id = $1 AND agent_type = $2`,
		documentID, agentType, blob, outcome.Summary, outcome.RiskLevel)
	if err != nil {
		return fmt.Errorf("failed to complete agent run: %w", err)
	}
	return nil
}

// FailAgentRun records a failed run; the next pass may re-claim it.
func (r *ResultRepo) FailAgentRun(ctx context.Context, documentID, agentType, errMsg string) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	_, err := pool.Exec(ctx, `
		UPDATE agent_results
		SET status = 'failed', error_message = $3, completed_at = now()
		WHERE document_id = $1 AND agent_type = $2`,
		documentID, agentType, errMsg)
	if err != nil {
		return fmt.Errorf("failed to record agent failure: %w", err)
	}
	return nil
}

const agentResultColumns = `id, document_id, COALESCE(upload_group_id, ''), agent_type, status,
	results, summary, risk_level, started_at, completed_at, error_message, created_at`

func scanAgentResult(row pgx.Row) (*models.AgentResult, error) {
	var r models.AgentResult
	var blob []byte
	err := row.Scan(&r.ID, &r.DocumentID, &r.UploadGroupID, &r.AgentType, &r.Status,
		&blob, &r.Summary, &r.RiskLevel, &r.StartedAt, &r.CompletedAt, &r.ErrorMessage, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	if len(blob) > 0 {
		if err := json.Unmarshal(blob, &r.Results); err != nil {
			return nil, fmt.Errorf("failed to unmarshal agent results: %w", err)
		}
	}
	return &r, nil
}

// AgentResult fetches one (document, agent) result.
func (r *ResultRepo) AgentResult(ctx context.Context, documentID, agentType string) (*models.AgentResult, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	res, err := scanAgentResult(pool.QueryRow(ctx,
		`SELECT `+agentResultColumns+` FROM agent_results WHERE document_id = $1 AND agent_type = $2`,
		documentID, agentType))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("no %s result for document %s", agentType, documentID)
		}
		return nil, fmt.Errorf("failed to load agent result: %w", err)
	}
	return res, nil
}

// AgentResultsForDocument lists every agent's result for one document.
func (r *ResultRepo) AgentResultsForDocument(ctx context.Context, documentID string) ([]models.AgentResult, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	rows, err := pool.Query(ctx,
		`SELECT `+agentResultColumns+` FROM agent_results WHERE document_id = $1 ORDER BY created_at`,
		documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list agent results: %w", err)
	}
	defer rows.Close()
	return collectAgentResults(rows)
}

// AgentResultsForGroupByType lists one agent's results across every
// document in a group.
func (r *ResultRepo) AgentResultsForGroupByType(ctx context.Context, groupID, agentType string) ([]models.AgentResult, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	rows, err := pool.Query(ctx,
		`SELECT `+agentResultColumns+` FROM agent_results WHERE upload_group_id = $1 AND agent_type = $2 ORDER BY created_at`,
		groupID, agentType)
	if err != nil {
		return nil, fmt.Errorf("failed to list group agent results: %w", err)
	}
	defer rows.Close()
	return collectAgentResults(rows)
}

func collectAgentResults(rows pgx.Rows) ([]models.AgentResult, error) {
	var out []models.AgentResult
	for rows.Next() {
		res, err := scanAgentResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan agent result: %w", err)
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

// StartGroupAgentRun claims the (group, agent) run with the same gate
// semantics as StartAgentRun.
func (r *ResultRepo) StartGroupAgentRun(ctx context.Context, groupID, agentType string) (bool, error) {
	pool := GetPool()
	if pool == nil {
		return false, fmt.Errorf("database pool not initialized")
	}

	var id string
	err := pool.QueryRow(ctx, `
		INSERT INTO group_agent_results (id, upload_group_id, agent_type, status, started_at)
		VALUES ($1, $2, $3, 'running', now())
		ON CONFLICT (upload_group_id, agent_type) DO UPDATE
		SET status = 'running', started_at = now(), error_message = ''
		WHERE group_agent_results.status IN ('pending', 'failed')
		RETURNING id`,
		models.NewID(), groupID, agentType).Scan(&id)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to claim group agent run: %w", err)
	}
	return true, nil
}

// CompleteGroupAgentRun records a successful group run.
func (r *ResultRepo) CompleteGroupAgentRun(ctx context.Context, groupID, agentType string, outcome *models.AgentOutcome) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	blob, err := json.Marshal(outcome.Results)
	if err != nil {
		return fmt.Errorf("failed to marshal group agent results: %w", err)
	}

	_, err = pool.Exec(ctx, `
		UPDATE group_agent_results
		SET status = 'completed', results = $3, summary = $4, risk_level = $5,
			completed_at = now(), error_message = ''
		WHERE upload_group_id = $1 AND agent_type = $2`,
		groupID, agentType, blob, outcome.Summary, outcome.RiskLevel)
	if err != nil {
		return fmt.Errorf("failed to complete group agent run: %w", err)
	}
	return nil
}

// FailGroupAgentRun records a failed group run.
func (r *ResultRepo) FailGroupAgentRun(ctx context.Context, groupID, agentType, errMsg string) error {
	pool := GetPool()
	if pool == nil {
		return fmt.Errorf("database pool not initialized")
	}

	_, err := pool.Exec(ctx, `
		UPDATE group_agent_results
		SET status = 'failed', error_message = $3, completed_at = now()
		WHERE upload_group_id = $1 AND agent_type = $2`,
		groupID, agentType, errMsg)
	if err != nil {
		return fmt.Errorf("failed to record group agent failure: %w", err)
	}
	return nil
}

// GroupAgentResults lists the group-level results.
func (r *ResultRepo) GroupAgentResults(ctx context.Context, groupID string) ([]models.GroupAgentResult, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	rows, err := pool.Query(ctx, `
		SELECT id, upload_group_id, agent_type, status, results, summary, risk_level,
			started_at, completed_at, error_message, created_at
		FROM group_agent_results WHERE upload_group_id = $1 ORDER BY created_at`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list group agent results: %w", err)
	}
	defer rows.Close()

	var out []models.GroupAgentResult
	for rows.Next() {
		var res models.GroupAgentResult
		var blob []byte
		err := rows.Scan(&res.ID, &res.UploadGroupID, &res.AgentType, &res.Status,
			&blob, &res.Summary, &res.RiskLevel, &res.StartedAt, &res.CompletedAt,
			&res.ErrorMessage, &res.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group agent result: %w", err)
		}
		if len(blob) > 0 {
			if err := json.Unmarshal(blob, &res.Results); err != nil {
				return nil, fmt.Errorf("failed to unmarshal group agent results: %w", err)
			}
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
