package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/varscope/internal/ir"
	"github.com/roach88/varscope/internal/query"
)

// TraceSummary is one row of ListTraces.
type TraceSummary struct {
	ID         string        `json:"id"`
	Template   string        `json:"template"`
	FinalValue string        `json:"final_value"`
	Success    bool          `json:"success"`
	ProfileID  string        `json:"profile_id,omitempty"`
	RuleID     string        `json:"rule_id,omitempty"`
	ErrorCount int           `json:"error_count"`
	StepCount  int           `json:"step_count"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration_ns"`
}

// TraceFilter narrows ListTraces. Limit <= 0 means 50.
type TraceFilter struct {
	ProfileID  string
	RuleID     string
	FailedOnly bool
	Limit      int
}

// SaveTrace stores a sealed trace. Saving the same id twice is a no-op.
func (s *Store) SaveTrace(ctx context.Context, tr *ir.ResolutionTrace) error {
	if tr == nil || tr.ID == "" {
		return errors.New("save trace: trace id is required")
	}
	body, err := marshalTrace(tr)
	if err != nil {
		return fmt.Errorf("save trace: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO traces
		(id, template, final_value, success, profile_id, rule_id, fingerprint, error_count, step_count, started_at, duration_ns, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		tr.ID,
		tr.OriginalTemplate,
		tr.FinalValue,
		boolInt(tr.Success),
		tr.Context.ProfileID,
		tr.Context.RuleID,
		tr.Context.Fingerprint,
		len(tr.Errors),
		len(tr.Steps),
		formatTime(tr.StartTime),
		int64(tr.Duration()),
		body,
	)
	if err != nil {
		return fmt.Errorf("save trace: %w", err)
	}
	return nil
}

// GetTrace returns the full trace stored under id.
func (s *Store) GetTrace(ctx context.Context, id string) (*ir.ResolutionTrace, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM traces WHERE id = ?`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("trace %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get trace: %w", err)
	}
	return unmarshalTrace(body)
}

// ListTraces returns trace summaries, newest first.
func (s *Store) ListTraces(ctx context.Context, f TraceFilter) ([]TraceSummary, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	var filter query.And
	if f.ProfileID != "" {
		filter.Predicates = append(filter.Predicates, query.Eq{Field: "profile_id", Value: f.ProfileID})
	}
	if f.RuleID != "" {
		filter.Predicates = append(filter.Predicates, query.Eq{Field: "rule_id", Value: f.RuleID})
	}
	if f.FailedOnly {
		filter.Predicates = append(filter.Predicates, query.Eq{Field: "success", Value: false})
	}
	stmt, args, err := query.Compile(query.Select{
		From: "traces",
		Columns: []string{
			"id", "template", "final_value", "success", "profile_id", "rule_id",
			"error_count", "step_count", "started_at", "duration_ns",
		},
		Filter:  filter,
		OrderBy: []query.Order{{Field: "started_at", Desc: true}, {Field: "id"}},
		Limit:   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("query traces: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query traces: %w", err)
	}
	defer rows.Close()

	out := []TraceSummary{}
	for rows.Next() {
		var (
			ts        TraceSummary
			success   int
			startedAt string
			duration  int64
		)
		if err := rows.Scan(&ts.ID, &ts.Template, &ts.FinalValue, &success, &ts.ProfileID, &ts.RuleID,
			&ts.ErrorCount, &ts.StepCount, &startedAt, &duration); err != nil {
			return nil, fmt.Errorf("scan trace: %w", err)
		}
		ts.Success = success == 1
		ts.Duration = time.Duration(duration)
		if ts.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		out = append(out, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate traces: %w", err)
	}
	return out, nil
}

// PruneTraces deletes traces started before cutoff and returns how many
// were removed.
func (s *Store) PruneTraces(ctx context.Context, cutoff time.Time) (int64, error) {
	where, args, err := query.Where(query.Before{Field: "started_at", Value: formatTime(cutoff)})
	if err != nil {
		return 0, fmt.Errorf("prune traces: %w", err)
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM traces WHERE "+where, args...)
	if err != nil {
		return 0, fmt.Errorf("prune traces: %w", err)
	}
	return res.RowsAffected()
}
