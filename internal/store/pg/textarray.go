package pg

import (
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"eeytech.com/console/internal/auth"
)

// actionsParam binds actions as []string, which the pgx driver encodes as text[].
func actionsParam(actions []auth.Action) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = string(a)
	}
	return out
}

// actionsColumn decodes a text[] column through pgtype. A NULL column (left
// join without grants) decodes to an empty list; NULL elements are rejected.
type actionsColumn struct {
	raw []string
}

func (c *actionsColumn) scanner(m *pgtype.Map) sql.Scanner {
	return m.SQLScanner(&c.raw)
}

// actions validates every stored element against the closed action set.
func (c *actionsColumn) actions() ([]auth.Action, error) {
	out := make([]auth.Action, 0, len(c.raw))
	for _, s := range c.raw {
		a, err := auth.ParseAction(s)
		if err != nil {
			return nil, fmt.Errorf("pg: stored action %q: %w", s, err)
		}
		out = append(out, a)
	}
	return out, nil
}
