package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across dossiers, decisions, and tasks
// using plainto_tsquery and ts_rank, with ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}
	argN := 2

	var subQueries []string

	// Dossier sub-query
	if q.FilterType == "" || q.FilterType == ResultDossier {
		where := "d.fts @@ " + tsQuery
		if q.FilterStatus != "" {
			where += fmt.Sprintf(" AND d.status::text = $%d", argN)
			args = append(args, q.FilterStatus)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'dossier'::text AS type, d.id::text, d.title,
				ts_headline('english', coalesce(d.summary, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				d.id::text AS dossier_id, d.status::text,
				ts_rank(d.fts, %s) AS rank
			FROM rvm_dossier d
			WHERE %s`, tsQuery, tsQuery, where))
	}

	// Decision sub-query
	if q.FilterType == "" || q.FilterType == ResultDecision {
		where := "dec.fts @@ " + tsQuery
		if q.FilterStatus != "" {
			where += fmt.Sprintf(" AND dec.decision_status::text = $%d", argN)
			args = append(args, q.FilterStatus)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'decision'::text AS type, dec.id::text, dec.decision_text AS title,
				ts_headline('english', coalesce(dec.decision_text, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				ai.dossier_id::text, dec.decision_status::text,
				ts_rank(dec.fts, %s) AS rank
			FROM rvm_decision dec
			JOIN rvm_agenda_item ai ON ai.id = dec.agenda_item_id
			WHERE %s`, tsQuery, tsQuery, where))
	}

	// Task sub-query
	if q.FilterType == "" || q.FilterType == ResultTask {
		where := "t.fts @@ " + tsQuery
		if q.FilterStatus != "" {
			where += fmt.Sprintf(" AND t.status::text = $%d", argN)
			args = append(args, q.FilterStatus)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'task'::text AS type, t.id::text, t.title,
				ts_headline('english', coalesce(t.description, ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				t.dossier_id::text, t.status::text,
				ts_rank(t.fts, %s) AS rank
			FROM rvm_task t
			WHERE %s`, tsQuery, tsQuery, where))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	// Count query
	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	// Data query
	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, dossier_id, status
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.DossierID, &r.Status); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]DossierRecord, []DecisionRecord, []TaskRecord, error) {
	dossierRows, err := p.db.QueryContext(ctx, `
		SELECT id::text, dossier_number, title, coalesce(summary, ''), sender_ministry, status::text
		FROM rvm_dossier
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load dossiers: %w", err)
	}
	defer dossierRows.Close()

	dossiers := make([]DossierRecord, 0)
	for dossierRows.Next() {
		var d DossierRecord
		if err := dossierRows.Scan(&d.ID, &d.DossierNumber, &d.Title, &d.Summary, &d.SenderMinistry, &d.Status); err != nil {
			return nil, nil, nil, fmt.Errorf("scan dossier: %w", err)
		}
		dossiers = append(dossiers, d)
	}
	if err := dossierRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate dossiers: %w", err)
	}

	decisionRows, err := p.db.QueryContext(ctx, `
		SELECT dec.id::text, dec.decision_text, dec.decision_status::text, ai.dossier_id::text
		FROM rvm_decision dec
		JOIN rvm_agenda_item ai ON ai.id = dec.agenda_item_id
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load decisions: %w", err)
	}
	defer decisionRows.Close()

	decisions := make([]DecisionRecord, 0)
	for decisionRows.Next() {
		var d DecisionRecord
		if err := decisionRows.Scan(&d.ID, &d.Text, &d.Status, &d.DossierID); err != nil {
			return nil, nil, nil, fmt.Errorf("scan decision: %w", err)
		}
		decisions = append(decisions, d)
	}
	if err := decisionRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate decisions: %w", err)
	}

	taskRows, err := p.db.QueryContext(ctx, `
		SELECT id::text, title, coalesce(description, ''), status::text, dossier_id::text
		FROM rvm_task
	`)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load tasks: %w", err)
	}
	defer taskRows.Close()

	tasks := make([]TaskRecord, 0)
	for taskRows.Next() {
		var t TaskRecord
		if err := taskRows.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.DossierID); err != nil {
			return nil, nil, nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := taskRows.Err(); err != nil {
		return nil, nil, nil, fmt.Errorf("iterate tasks: %w", err)
	}

	return dossiers, decisions, tasks, nil
}
