package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied idempotently at open. Documents live in a single JSONB
// table keyed by (collection, id); seq preserves insertion order so reads come
// back in the order documents were written.
const schema = `
CREATE TABLE IF NOT EXISTS documents (
	seq        bigserial,
	collection text  NOT NULL,
	id         text  NOT NULL,
	data       jsonb NOT NULL,
	PRIMARY KEY (collection, id)
);
CREATE INDEX IF NOT EXISTS documents_created_at_idx
	ON documents (collection, (data->>'createdAt'));
CREATE TABLE IF NOT EXISTS sequences (
	name  text   PRIMARY KEY,
	value bigint NOT NULL
);
`

// PostgresStore implements Store over a Postgres JSONB table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres, verifies the connection, and ensures the schema.
func Open(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Collection(name string) Collection {
	return &pgCollection{pool: s.pool, name: name}
}

func (s *PostgresStore) NextSeq(ctx context.Context, name string) (int64, error) {
	const q = `
		INSERT INTO sequences (name, value) VALUES ($1, 1)
		ON CONFLICT (name) DO UPDATE SET value = sequences.value + 1
		RETURNING value`
	var v int64
	if err := s.pool.QueryRow(ctx, q, name).Scan(&v); err != nil {
		return 0, fmt.Errorf("next seq %q: %w", name, err)
	}
	return v, nil
}

func (s *PostgresStore) EnsureSeq(ctx context.Context, name string, min int64) error {
	const q = `
		INSERT INTO sequences (name, value) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET value = GREATEST(sequences.value, $2)`
	if _, err := s.pool.Exec(ctx, q, name, min); err != nil {
		return fmt.Errorf("ensure seq %q: %w", name, err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

// --- Collection ---

type pgCollection struct {
	pool *pgxpool.Pool
	name string
}

func (c *pgCollection) Add(ctx context.Context, data map[string]any) (string, error) {
	id := uuid.NewString()
	payload, err := marshalDoc(data)
	if err != nil {
		return "", err
	}
	const q = `INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)`
	if _, err := c.pool.Exec(ctx, q, c.name, id, payload); err != nil {
		return "", fmt.Errorf("add to %q: %w", c.name, err)
	}
	return id, nil
}

func (c *pgCollection) Get(ctx context.Context, id string) (Document, error) {
	const q = `SELECT data FROM documents WHERE collection = $1 AND id = $2`
	var raw []byte
	if err := c.pool.QueryRow(ctx, q, c.name, id).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("get %q/%s: %w", c.name, id, err)
	}
	return unmarshalDoc(id, raw)
}

func (c *pgCollection) Set(ctx context.Context, id string, data map[string]any, merge bool) error {
	payload, err := marshalDoc(data)
	if err != nil {
		return err
	}
	if merge {
		const q = `UPDATE documents SET data = data || $3 WHERE collection = $1 AND id = $2`
		tag, err := c.pool.Exec(ctx, q, c.name, id, payload)
		if err != nil {
			return fmt.Errorf("set %q/%s: %w", c.name, id, err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	}
	const q = `
		INSERT INTO documents (collection, id, data) VALUES ($1, $2, $3)
		ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data`
	if _, err := c.pool.Exec(ctx, q, c.name, id, payload); err != nil {
		return fmt.Errorf("set %q/%s: %w", c.name, id, err)
	}
	return nil
}

func (c *pgCollection) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE collection = $1 AND id = $2`
	if _, err := c.pool.Exec(ctx, q, c.name, id); err != nil {
		return fmt.Errorf("delete %q/%s: %w", c.name, id, err)
	}
	return nil
}

func (c *pgCollection) GetAll(ctx context.Context) ([]Document, error) {
	return c.query(ctx, nil)
}

func (c *pgCollection) Count(ctx context.Context) (int64, error) {
	const q = `SELECT count(*) FROM documents WHERE collection = $1`
	var n int64
	if err := c.pool.QueryRow(ctx, q, c.name).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %q: %w", c.name, err)
	}
	return n, nil
}

func (c *pgCollection) Where(field, op string, value any) Query {
	return &pgQuery{coll: c, conds: []condition{{field: field, op: op, value: value}}}
}

// --- Query ---

type pgQuery struct {
	coll  *pgCollection
	conds []condition
}

func (q *pgQuery) Where(field, op string, value any) Query {
	next := &pgQuery{coll: q.coll, conds: make([]condition, 0, len(q.conds)+1)}
	next.conds = append(next.conds, q.conds...)
	next.conds = append(next.conds, condition{field: field, op: op, value: value})
	return next
}

func (q *pgQuery) GetAll(ctx context.Context) ([]Document, error) {
	return q.coll.query(ctx, q.conds)
}

// query builds and runs a filtered select. JSONB text values are cast per the
// Go type of the predicate value so range predicates compare chronologically
// and numerically, not lexically.
func (c *pgCollection) query(ctx context.Context, conds []condition) ([]Document, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT id, data FROM documents WHERE collection = $1`)
	args := []any{c.name}

	for _, cond := range conds {
		clause, arg, err := buildCondition(cond, len(args)+1)
		if err != nil {
			return nil, err
		}
		sb.WriteString(" AND ")
		sb.WriteString(clause)
		args = append(args, arg)
	}
	sb.WriteString(" ORDER BY seq")

	rows, err := c.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", c.name, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan %q: %w", c.name, err)
		}
		doc, err := unmarshalDoc(id, raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %q: %w", c.name, err)
	}
	return docs, nil
}

func buildCondition(cond condition, argPos int) (string, any, error) {
	accessor := fmt.Sprintf("data->>'%s'", strings.ReplaceAll(cond.field, "'", "''"))

	switch cond.op {
	case OpEqual, OpGTE, OpLTE:
		op := cond.op
		if op == OpEqual {
			op = "="
		}
		switch v := cond.value.(type) {
		case time.Time:
			return fmt.Sprintf("(%s)::timestamptz %s $%d", accessor, op, argPos), v, nil
		case int, int32, int64, float32, float64:
			return fmt.Sprintf("(%s)::numeric %s $%d", accessor, op, argPos), v, nil
		case bool:
			return fmt.Sprintf("(%s)::boolean %s $%d", accessor, op, argPos), v, nil
		default:
			return fmt.Sprintf("%s %s $%d", accessor, op, argPos), fmt.Sprint(cond.value), nil
		}
	case OpIn:
		values, err := inValues(cond.value)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("%s = ANY($%d)", accessor, argPos), values, nil
	default:
		return "", nil, fmt.Errorf("unsupported operator %q", cond.op)
	}
}

// inValues normalizes an "in" predicate value to a text slice.
func inValues(value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = fmt.Sprint(item)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("'in' requires a slice, got %T", value)
	}
}

func marshalDoc(data map[string]any) ([]byte, error) {
	resolved := resolveTimestamps(data, time.Now().UTC())
	payload, err := json.Marshal(resolved)
	if err != nil {
		return nil, fmt.Errorf("marshal document: %w", err)
	}
	return payload, nil
}

func unmarshalDoc(id string, raw []byte) (Document, error) {
	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Document{}, fmt.Errorf("unmarshal document %s: %w", id, err)
	}
	return Document{ID: id, Data: fields}, nil
}

