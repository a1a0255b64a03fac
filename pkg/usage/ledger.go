// Package usage persists priced model requests in the local store and
// aggregates them per day and per model.
package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/jingkaihe/mcplab/pkg/cost"
	"github.com/jingkaihe/mcplab/pkg/db"
	"github.com/jingkaihe/mcplab/pkg/db/migrations"
	llmtypes "github.com/jingkaihe/mcplab/pkg/types/llm"
)

// Record is one row of the ledger.
type Record struct {
	ID               string    `db:"id" json:"id"`
	SessionID        string    `db:"session_id" json:"session_id"`
	Model            string    `db:"model" json:"model"`
	PricedAs         string    `db:"priced_as" json:"priced_as"`
	PromptTokens     int       `db:"prompt_tokens" json:"prompt_tokens"`
	CompletionTokens int       `db:"completion_tokens" json:"completion_tokens"`
	TotalTokens      int       `db:"total_tokens" json:"total_tokens"`
	InputCost        float64   `db:"input_cost" json:"input_cost"`
	OutputCost       float64   `db:"output_cost" json:"output_cost"`
	TotalCost        float64   `db:"total_cost" json:"total_cost"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// Ledger appends priced requests to the usage_records table.
type Ledger struct {
	db        *sqlx.DB
	sessionID string
	now       func() time.Time
}

var _ cost.Ledger = (*Ledger)(nil)

// Open opens the ledger at path, or the default store when path is empty.
func Open(ctx context.Context, path, sessionID string) (*Ledger, error) {
	if path == "" {
		var err error
		if path, err = db.DefaultDBPath(); err != nil {
			return nil, err
		}
	}
	conn, err := db.OpenMigrated(ctx, path, migrations.All())
	if err != nil {
		return nil, errors.Wrap(err, "failed to open usage ledger")
	}
	return NewLedger(conn, sessionID), nil
}

// NewLedger wraps an already migrated database.
func NewLedger(conn *sqlx.DB, sessionID string) *Ledger {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &Ledger{db: conn, sessionID: sessionID, now: time.Now}
}

// SessionID tags every appended record.
func (l *Ledger) SessionID() string {
	return l.sessionID
}

// Append stores one priced request.
func (l *Ledger) Append(ctx context.Context, usage llmtypes.UsageRecord, result cost.Result) error {
	record := Record{
		ID:               uuid.NewString(),
		SessionID:        l.sessionID,
		Model:            usage.Model,
		PricedAs:         result.PricedAs,
		PromptTokens:     result.PromptTokens,
		CompletionTokens: result.CompletionTokens,
		TotalTokens:      result.TotalTokens,
		InputCost:        result.InputCost,
		OutputCost:       result.OutputCost,
		TotalCost:        result.TotalCost,
		CreatedAt:        l.now().UTC(),
	}
	_, err := l.db.NamedExecContext(ctx, `
		INSERT INTO usage_records (
			id, session_id, model, priced_as, prompt_tokens, completion_tokens,
			total_tokens, input_cost, output_cost, total_cost, created_at
		) VALUES (
			:id, :session_id, :model, :priced_as, :prompt_tokens, :completion_tokens,
			:total_tokens, :input_cost, :output_cost, :total_cost, :created_at
		)`, record)
	return errors.Wrap(err, "failed to append usage record")
}

// Filter narrows Query. Zero values match everything.
type Filter struct {
	Since     time.Time
	Until     time.Time
	Model     string
	SessionID string
}

// Query returns matching records, oldest first.
func (l *Ledger) Query(ctx context.Context, f Filter) ([]Record, error) {
	query := "SELECT * FROM usage_records WHERE 1 = 1"
	var args []any
	if !f.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, f.Since.UTC())
	}
	if !f.Until.IsZero() {
		query += " AND created_at < ?"
		args = append(args, f.Until.UTC())
	}
	if f.Model != "" {
		query += " AND model = ?"
		args = append(args, f.Model)
	}
	if f.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, f.SessionID)
	}
	query += " ORDER BY created_at, id"

	var records []Record
	if err := l.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to query usage records")
	}
	return records, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
