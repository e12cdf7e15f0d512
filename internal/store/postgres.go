// internal/store/postgres.go
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres keeps every collection in one JSONB table. Filters compile to a
// WHERE clause over the document body, so a conditional Update is a single
// SQL UPDATE and inherits row-level atomicity from the database.
type Postgres struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id         BIGSERIAL PRIMARY KEY,
	collection TEXT  NOT NULL,
	data       JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS documents_collection_idx ON documents (collection);
`

// NewPostgres connects a pool, pings it, and ensures the documents table.
func NewPostgres(ctx context.Context, connString string) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgx config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ensure documents table: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the underlying pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// whereClause compiles a filter into SQL starting at argument $2
// ($1 is always the collection name).
func whereClause(filter Filter) (string, []any, error) {
	var sb bytes.Buffer
	sb.WriteString("collection = $1")
	args := []any{}
	n := 2
	for _, c := range filter {
		switch c.Op {
		case OpEq:
			raw, err := json.Marshal(c.Value)
			if err != nil {
				return "", nil, err
			}
			fmt.Fprintf(&sb, " AND data->%s = $%d::jsonb", quoteLiteral(c.Field), n)
			args = append(args, string(raw))
		case OpIn:
			raw, err := json.Marshal(c.Value)
			if err != nil {
				return "", nil, err
			}
			fmt.Fprintf(&sb, " AND $%d::jsonb @> data->%s", n, quoteLiteral(c.Field))
			args = append(args, string(raw))
		case OpGt, OpGte, OpLt, OpLte:
			op := map[Op]string{OpGt: ">", OpGte: ">=", OpLt: "<", OpLte: "<="}[c.Op]
			fmt.Fprintf(&sb, " AND (data->>%s)::numeric %s $%d", quoteLiteral(c.Field), op, n)
			args = append(args, c.Value)
		default:
			return "", nil, fmt.Errorf("unknown filter op %d", c.Op)
		}
		n++
	}
	return sb.String(), args, nil
}

// quoteLiteral quotes a field name for use as a jsonb key. Field names come
// from code, never from user input.
func quoteLiteral(field string) string {
	return "'" + field + "'"
}

func (p *Postgres) FindOne(ctx context.Context, collection string, filter Filter, out any) error {
	where, args, err := whereClause(filter)
	if err != nil {
		return err
	}
	q := "SELECT data FROM documents WHERE " + where + " ORDER BY id LIMIT 1"
	var raw []byte
	err = p.pool.QueryRow(ctx, q, append([]any{collection}, args...)...).Scan(&raw)
	if err == pgx.ErrNoRows {
		return ErrNoDocument
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (p *Postgres) Find(ctx context.Context, collection string, filter Filter, out any) error {
	where, args, err := whereClause(filter)
	if err != nil {
		return err
	}
	q := "SELECT data FROM documents WHERE " + where + " ORDER BY id"
	rows, err := p.pool.Query(ctx, q, append([]any{collection}, args...)...)
	if err != nil {
		return err
	}
	defer rows.Close()

	var buf bytes.Buffer
	buf.WriteByte('[')
	n := 0
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return err
		}
		if n > 0 {
			buf.WriteByte(',')
		}
		buf.Write(raw)
		n++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	buf.WriteByte(']')
	return json.Unmarshal(buf.Bytes(), out)
}

func (p *Postgres) Insert(ctx context.Context, collection string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx,
		"INSERT INTO documents (collection, data) VALUES ($1, $2::jsonb)",
		collection, string(raw))
	return err
}

func (p *Postgres) Update(ctx context.Context, collection string, filter Filter, doc any) (bool, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return false, err
	}
	where, args, err := whereClause(filter)
	if err != nil {
		return false, err
	}
	allArgs := append([]any{collection}, args...)
	docArg := len(allArgs) + 1
	q := fmt.Sprintf(
		"UPDATE documents SET data = $%d::jsonb WHERE id = (SELECT id FROM documents WHERE %s ORDER BY id LIMIT 1 FOR UPDATE)",
		docArg, where)
	tag, err := p.pool.Exec(ctx, q, append(allArgs, string(raw))...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (p *Postgres) Upsert(ctx context.Context, collection string, filter Filter, doc any) error {
	// Update-then-insert inside one transaction so two upserts for the same
	// filter cannot both take the insert path.
	return pgx.BeginTxFunc(ctx, p.pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, func(tx pgx.Tx) error {
		raw, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		where, args, err := whereClause(filter)
		if err != nil {
			return err
		}
		allArgs := append([]any{collection}, args...)
		docArg := len(allArgs) + 1
		q := fmt.Sprintf(
			"UPDATE documents SET data = $%d::jsonb WHERE id = (SELECT id FROM documents WHERE %s ORDER BY id LIMIT 1 FOR UPDATE)",
			docArg, where)
		tag, err := tx.Exec(ctx, q, append(allArgs, string(raw))...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() > 0 {
			return nil
		}
		_, err = tx.Exec(ctx,
			"INSERT INTO documents (collection, data) VALUES ($1, $2::jsonb)",
			collection, string(raw))
		return err
	})
}

func (p *Postgres) Delete(ctx context.Context, collection string, filter Filter) (bool, error) {
	where, args, err := whereClause(filter)
	if err != nil {
		return false, err
	}
	q := "DELETE FROM documents WHERE " + where
	tag, err := p.pool.Exec(ctx, q, append([]any{collection}, args...)...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
