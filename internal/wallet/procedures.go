package wallet

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"coffee-backoffice/internal/auth"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Arg is one named procedure parameter (p_limit => $1).
type Arg struct {
	Name  string
	Value any
}

// Row is a loosely typed procedure result row keyed by column name.
// Callers must normalize it before use.
type Row map[string]any

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Procedures calls stored procedures as the caller. Authorization is enforced
// inside the procedures themselves.
type Procedures struct {
	db *sqlx.DB
}

func NewProcedures(db *sqlx.DB) *Procedures {
	return &Procedures{db: db}
}

// Call runs SELECT * FROM name(arg => $n, ...) and returns every row.
// A missing procedure surfaces as the driver's error unchanged.
func (p *Procedures) Call(ctx context.Context, id auth.Identity, name string, args ...Arg) ([]Row, error) {
	query, params, err := buildCall(name, args)
	if err != nil {
		return nil, err
	}

	out := []Row{}
	err = readAs(ctx, p.db, id, func(ctx context.Context, tx *sqlx.Tx) error {
		rows, err := tx.QueryxContext(ctx, query, params...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			m := map[string]any{}
			if err := rows.MapScan(m); err != nil {
				return err
			}
			for k, v := range m {
				// lib/pq-style drivers hand text back as []byte.
				if b, ok := v.([]byte); ok {
					m[k] = string(b)
				}
			}
			out = append(out, Row(m))
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// OwnedCafes resolves the caller's administered cafes through get_owner_cafes().
func (p *Procedures) OwnedCafes(ctx context.Context, id auth.Identity) ([]Cafe, error) {
	rows, err := p.Call(ctx, id, "get_owner_cafes")
	if err != nil {
		return nil, err
	}
	out := make([]Cafe, 0, len(rows))
	for _, r := range rows {
		cid := text(r["id"])
		if cid == "" {
			continue
		}
		c := Cafe{ID: cid}
		if s := text(r["name"]); s != "" {
			c.Name = &s
		}
		if s := text(r["address"]); s != "" {
			c.Address = &s
		}
		out = append(out, c)
	}
	return out, nil
}

func buildCall(name string, args []Arg) (string, []any, error) {
	if !identRe.MatchString(name) {
		return "", nil, fmt.Errorf("%w: procedure name %q", ErrInvalidArgument, name)
	}
	parts := make([]string, 0, len(args))
	params := make([]any, 0, len(args))
	for i, a := range args {
		if !identRe.MatchString(a.Name) {
			return "", nil, fmt.Errorf("%w: parameter name %q", ErrInvalidArgument, a.Name)
		}
		parts = append(parts, fmt.Sprintf("%s => $%d", a.Name, i+1))
		params = append(params, a.Value)
	}
	return fmt.Sprintf("SELECT * FROM %s(%s)", name, strings.Join(parts, ", ")), params, nil
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	case [16]byte:
		return uuid.UUID(t).String()
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
