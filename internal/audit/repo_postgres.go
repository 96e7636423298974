package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"contract-sender/pkg/utils"
)

const schema = `
CREATE TABLE IF NOT EXISTS activity_events (
	id            UUID PRIMARY KEY,
	type          TEXT NOT NULL,
	actor_user_id TEXT NOT NULL,
	actor_email   TEXT NOT NULL DEFAULT '',
	actor_role    TEXT NOT NULL DEFAULT '',
	ip_address    TEXT NOT NULL DEFAULT '',
	lead_id       TEXT NOT NULL DEFAULT '',
	pipeline_id   TEXT NOT NULL DEFAULT '',
	from_stage    TEXT NOT NULL DEFAULT '',
	to_stage      TEXT NOT NULL DEFAULT '',
	sms_id        TEXT NOT NULL DEFAULT '',
	message       TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS activity_events_actor_idx ON activity_events (actor_user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS activity_events_lead_idx ON activity_events (lead_id, created_at DESC);
`

// PostgresRepo stores events in activity_events. INSERT and SELECT only.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo { return &PostgresRepo{db: db} }

// Migrate creates the table and indexes if missing.
func (r *PostgresRepo) Migrate(ctx context.Context) error {
	if err := utils.ExecScript(ctx, r.db, schema); err != nil {
		return fmt.Errorf("audit migrate: %w", err)
	}
	return nil
}

const insertEvent = `
INSERT INTO activity_events
	(id, type, actor_user_id, actor_email, actor_role, ip_address,
	 lead_id, pipeline_id, from_stage, to_stage, sms_id, message, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx, insertEvent,
		e.ID, string(e.Type), e.ActorUserID, e.ActorEmail, e.ActorRole, e.IPAddress,
		e.LeadID, e.PipelineID, e.FromStage, e.ToStage, e.SMSID, e.Message, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("audit append: %w", err)
	}
	return nil
}

func (r *PostgresRepo) List(ctx context.Context, f Filter) ([]Event, error) {
	q, args := listQuery(f)
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("audit list: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var typ string
		if err := rows.Scan(&e.ID, &typ, &e.ActorUserID, &e.ActorEmail, &e.ActorRole, &e.IPAddress,
			&e.LeadID, &e.PipelineID, &e.FromStage, &e.ToStage, &e.SMSID, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("audit scan: %w", err)
		}
		e.Type = EventType(typ)
		out = append(out, e)
	}
	return out, rows.Err()
}

func listQuery(f Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(col string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if f.ActorUserID != "" {
		add("actor_user_id", f.ActorUserID)
	}
	if f.LeadID != "" {
		add("lead_id", f.LeadID)
	}
	if f.Type != "" {
		add("type", string(f.Type))
	}

	var b strings.Builder
	b.WriteString(`SELECT id, type, actor_user_id, actor_email, actor_role, ip_address,
	lead_id, pipeline_id, from_stage, to_stage, sms_id, message, created_at
FROM activity_events`)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	args = append(args, clampLimit(f.Limit))
	fmt.Fprintf(&b, " ORDER BY created_at DESC LIMIT $%d", len(args))
	return b.String(), args
}

func clampLimit(n int) int {
	switch {
	case n <= 0:
		return 100
	case n > 1000:
		return 1000
	}
	return n
}
