package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/chative-intent-router/agent/contract"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type PostgresConfig struct {
	DSN         string        `envconfig:"DSN" split_words:"true" required:"true"`
	DialTimeout time.Duration `envconfig:"DIAL_TIMEOUT" split_words:"true" default:"5s"`
	AutoMigrate bool          `envconfig:"AUTO_MIGRATE" split_words:"true" default:"true"`
}

// entryRow is the routing_journal table.
type entryRow struct {
	bun.BaseModel `bun:"table:routing_journal,alias:rj"`

	ID         int64     `bun:"id,pk,autoincrement"`
	RequestID  string    `bun:"request_id,notnull,unique"`
	Request    string    `bun:"request,notnull"`
	Category   string    `bun:"category,notnull"`
	Confidence float64   `bun:"confidence,notnull"`
	Reasoning  string    `bun:"reasoning,notnull,default:''"`
	Source     string    `bun:"source,notnull"`
	Reply      string    `bun:"reply,notnull,default:''"`
	Routed     bool      `bun:"routed,notnull,default:false"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

func toRow(entry contractx.JournalEntry) *entryRow {
	createdAt := entry.CreatedAt.UTC()
	if entry.CreatedAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return &entryRow{
		RequestID:  entry.RequestID,
		Request:    entry.Request,
		Category:   entry.Outcome.Decision.Category.String(),
		Confidence: entry.Outcome.Decision.Confidence,
		Reasoning:  entry.Outcome.Decision.Reasoning,
		Source:     entry.Outcome.Source,
		Reply:      entry.Outcome.Reply,
		Routed:     entry.Outcome.Routed,
		CreatedAt:  createdAt,
	}
}

func (r *entryRow) toEntry() contractx.JournalEntry {
	return contractx.JournalEntry{
		RequestID: r.RequestID,
		Request:   r.Request,
		Outcome: contractx.Outcome{
			Decision: contractx.Decision{
				Category:   contractx.Category(r.Category),
				Confidence: r.Confidence,
				Reasoning:  r.Reasoning,
			},
			Source: r.Source,
			Reply:  r.Reply,
			Routed: r.Routed,
		},
		CreatedAt: r.CreatedAt.UTC(),
	}
}

// PostgresJournal stores entries in Postgres through bun.
type PostgresJournal struct {
	db *bun.DB
}

var _ contractx.Journal = (*PostgresJournal)(nil)

// OpenPostgres connects with pgdriver and optionally creates the table.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*PostgresJournal, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres dsn is required", contractx.ErrValidation)
	}

	opts := []pgdriver.Option{pgdriver.WithDSN(dsn)}
	if cfg.DialTimeout > 0 {
		opts = append(opts, pgdriver.WithDialTimeout(cfg.DialTimeout))
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(opts...))

	j := NewPostgresJournal(bun.NewDB(sqldb, pgdialect.New()))
	if cfg.AutoMigrate {
		if err := j.EnsureSchema(ctx); err != nil {
			_ = j.Close()
			return nil, err
		}
	}
	return j, nil
}

func NewPostgresJournal(db *bun.DB) *PostgresJournal {
	return &PostgresJournal{db: db}
}

func (j *PostgresJournal) EnsureSchema(ctx context.Context) error {
	if _, err := j.db.NewCreateTable().
		Model((*entryRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create routing_journal table: %w", err)
	}
	if _, err := j.db.NewCreateIndex().
		Model((*entryRow)(nil)).
		Index("routing_journal_category_created_idx").
		Column("category", "created_at").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create routing_journal index: %w", err)
	}
	return nil
}

func (j *PostgresJournal) Record(ctx context.Context, entry contractx.JournalEntry) error {
	if strings.TrimSpace(entry.RequestID) == "" {
		return ErrInvalidRequestID
	}

	row := toRow(entry)
	if _, err := j.db.NewInsert().
		Model(row).
		On("CONFLICT (request_id) DO NOTHING").
		Exec(ctx); err != nil {
		return fmt.Errorf("%w: insert journal entry: %v", contractx.ErrJournal, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first. An empty category means all.
func (j *PostgresJournal) Recent(ctx context.Context, category contractx.Category, limit int) ([]contractx.JournalEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []entryRow
	q := j.db.NewSelect().
		Model(&rows).
		OrderExpr("created_at DESC").
		Limit(limit)
	if category != "" {
		q = q.Where("category = ?", category.String())
	}
	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select journal entries: %w", err)
	}

	entries := make([]contractx.JournalEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, rows[i].toEntry())
	}
	return entries, nil
}

func (j *PostgresJournal) Close() error {
	return j.db.Close()
}
