package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Postgres stores every collection in one JSONB table. It is the self-hosted
// alternative to Firestore and keeps the same query semantics.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an open database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Migrate creates the documents table when missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT        NOT NULL,
			id         TEXT        NOT NULL,
			data       JSONB       NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (collection, id)
		);
		CREATE INDEX IF NOT EXISTS idx_documents_data ON documents USING GIN (data jsonb_path_ops);
	`)
	return err
}

func (p *Postgres) Get(ctx context.Context, collection, id string) (Doc, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2`, collection, id,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return nil, fmt.Errorf("postgres get %s/%s: %w", collection, id, err)
	}
	return unmarshalDoc(raw)
}

func (p *Postgres) Create(ctx context.Context, collection, id string, data Doc) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("docstore: encode: %w", err)
	}
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO NOTHING
	`, collection, id, string(raw))
	if err != nil {
		return "", fmt.Errorf("postgres create %s/%s: %w", collection, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", fmt.Errorf("%s/%s: %w", collection, id, ErrAlreadyExists)
	}
	return id, nil
}

func (p *Postgres) Set(ctx context.Context, collection, id string, data Doc) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("docstore: encode: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`, collection, id, string(raw))
	if err != nil {
		return fmt.Errorf("postgres set %s/%s: %w", collection, id, err)
	}
	return nil
}

// Update applies dotted-path writes under a row lock so concurrent writers
// touching different fields do not clobber each other.
func (p *Postgres) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	patch, err := normalizeDoc(fields)
	if err != nil {
		return err
	}
	for path := range patch {
		if !ValidField(path) {
			return fmt.Errorf("%w: %q", ErrInvalidField, path)
		}
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres update %s/%s: %w", collection, id, err)
	}
	defer func() { _ = tx.Rollback() }()

	var raw []byte
	err = tx.QueryRowContext(ctx,
		`SELECT data FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE`, collection, id,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return fmt.Errorf("postgres update %s/%s: %w", collection, id, err)
	}
	d, err := unmarshalDoc(raw)
	if err != nil {
		return err
	}
	for path, v := range patch {
		SetPath(d, path, v)
	}
	out, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("docstore: encode: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET data = $3::jsonb, updated_at = NOW() WHERE collection = $1 AND id = $2`,
		collection, id, string(out),
	); err != nil {
		return fmt.Errorf("postgres update %s/%s: %w", collection, id, err)
	}
	return tx.Commit()
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	if _, err := p.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = $1 AND id = $2`, collection, id,
	); err != nil {
		return fmt.Errorf("postgres delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (p *Postgres) All(ctx context.Context, collection string) ([]Snapshot, error) {
	return p.Query(ctx, collection, Query{})
}

func (p *Postgres) Query(ctx context.Context, collection string, q Query) ([]Snapshot, error) {
	query, args, err := buildSQL(collection, q)
	if err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres query %s: %w", collection, err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		d, err := unmarshalDoc(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, Snapshot{ID: id, Data: d})
	}
	return out, rows.Err()
}

// buildSQL translates a Query. Field paths are validated identifiers, so they
// are safe to inline as text-array literals.
func buildSQL(collection string, q Query) (string, []any, error) {
	if err := validateQuery(q); err != nil {
		return "", nil, err
	}
	args := []any{collection}
	clauses := []string{"collection = $1"}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	for _, f := range q.Filters {
		v := normalizeValue(f.Value)
		switch f.Op {
		case Eq, ArrayContains:
			var leaf any = v
			if f.Op == ArrayContains {
				leaf = []any{v}
			}
			containment := Doc{}
			SetPath(containment, f.Field, leaf)
			raw, err := json.Marshal(containment)
			if err != nil {
				return "", nil, fmt.Errorf("docstore: encode filter: %w", err)
			}
			clauses = append(clauses, "data @> "+next(string(raw))+"::jsonb")
		default:
			path := jsonPath(f.Field)
			if _, numeric := v.(float64); numeric {
				clauses = append(clauses, fmt.Sprintf("(data #>> %s)::numeric %s %s", path, f.Op, next(v)))
			} else {
				clauses = append(clauses, fmt.Sprintf(`(data #>> %s) COLLATE "C" %s %s`, path, f.Op, next(fmt.Sprint(v))))
			}
		}
	}

	var sb strings.Builder
	sb.WriteString("SELECT id, data FROM documents WHERE ")
	sb.WriteString(strings.Join(clauses, " AND "))
	if q.OrderBy != "" {
		sb.WriteString(fmt.Sprintf(` ORDER BY (data #>> %s) COLLATE "C"`, jsonPath(q.OrderBy)))
		if q.Desc {
			sb.WriteString(" DESC")
		}
		sb.WriteString(", id")
	} else {
		sb.WriteString(" ORDER BY id")
	}
	if q.Limit > 0 {
		sb.WriteString(" LIMIT " + next(q.Limit))
	}
	return sb.String(), args, nil
}

func jsonPath(field string) string {
	return "'{" + strings.ReplaceAll(field, ".", ",") + "}'"
}

func unmarshalDoc(raw []byte) (Doc, error) {
	var d Doc
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("docstore: decode: %w", err)
	}
	if d == nil {
		d = Doc{}
	}
	return d, nil
}
