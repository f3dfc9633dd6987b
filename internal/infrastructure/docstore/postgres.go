package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

// Postgres stores every collection in one jsonb-backed table.
type Postgres struct {
	db *sqlx.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "docstore: connect")
	}
	p := &Postgres{db: db}
	if err := p.init(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Postgres) init() error {
	_, err := p.db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		doc JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (collection, id)
	);`)
	return errors.Wrap(err, "docstore: init schema")
}

func (p *Postgres) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	var raw []byte
	err := p.db.GetContext(ctx, &raw,
		`SELECT doc FROM documents WHERE collection=$1 AND id=$2`, collection, id)
	if err == sql.ErrNoRows {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, errors.Wrap(err, "docstore: get")
	}
	return raw, nil
}

func (p *Postgres) Set(ctx context.Context, collection, id string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "docstore: encode document")
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, doc) VALUES ($1, $2, $3)
		 ON CONFLICT (collection, id) DO UPDATE SET doc=$3, updated_at=now()`,
		collection, id, raw)
	return errors.Wrap(err, "docstore: set")
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	_, err := p.db.ExecContext(ctx,
		`DELETE FROM documents WHERE collection=$1 AND id=$2`, collection, id)
	return errors.Wrap(err, "docstore: delete")
}

var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func (p *Postgres) Query(ctx context.Context, collection string, q Query) ([]Document, error) {
	clauses := []string{"collection=$1"}
	args := []any{collection}
	for _, f := range q.Filters {
		if !fieldPattern.MatchString(f.Field) {
			return nil, errors.Errorf("docstore: bad filter field %q", f.Field)
		}
		var op string
		switch f.Op {
		case "==":
			op = "="
		case ">=", "<=":
			op = f.Op
		default:
			return nil, errors.Errorf("docstore: bad filter op %q", f.Op)
		}
		args = append(args, asText(f.Value))
		clauses = append(clauses, fmt.Sprintf("doc->>'%s' %s $%d", f.Field, op, len(args)))
	}
	sqlText := `SELECT id, doc FROM documents WHERE ` + strings.Join(clauses, " AND ")
	if q.OrderBy != "" {
		if !fieldPattern.MatchString(q.OrderBy) {
			return nil, errors.Errorf("docstore: bad order field %q", q.OrderBy)
		}
		sqlText += fmt.Sprintf(" ORDER BY doc->>'%s'", q.OrderBy)
		if q.Desc {
			sqlText += " DESC"
		}
	}
	if q.Limit > 0 {
		args = append(args, q.Limit)
		sqlText += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	rows, err := p.db.QueryxContext(ctx, sqlText, args...)
	if err != nil {
		return nil, errors.Wrap(err, "docstore: query")
	}
	defer rows.Close()
	var out []Document
	for rows.Next() {
		var d Document
		var raw []byte
		if err := rows.Scan(&d.ID, &raw); err != nil {
			return nil, errors.Wrap(err, "docstore: scan")
		}
		d.Data = raw
		out = append(out, d)
	}
	return out, errors.Wrap(rows.Err(), "docstore: rows")
}
