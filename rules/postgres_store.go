package rules

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

const (
	actionUpsert = "upsert"
	actionDelete = "delete"
)

// PostgresDeltaStore implements DeltaStore over the rule_deltas table.
// Stored rules are CEL expression rules; they are compiled on Load.
type PostgresDeltaStore struct {
	db *sql.DB
}

// NewPostgresDeltaStore creates a store backed by db.
func NewPostgresDeltaStore(db *sql.DB) *PostgresDeltaStore {
	return &PostgresDeltaStore{db: db}
}

// PutExpression records an add-or-modify of spec for year.
func (s *PostgresDeltaStore) PutExpression(ctx context.Context, year int, spec ExpressionSpec) error {
	// Reject rules that would fail on Load.
	if _, err := NewExpressionRule(spec); err != nil {
		return err
	}

	fields := spec.AffectedFields
	if fields == nil {
		fields = []string{}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rule_deltas (year, code, action, message, table_name, expression, affected_fields)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (year, code) DO UPDATE
		SET action = EXCLUDED.action,
		    message = EXCLUDED.message,
		    table_name = EXCLUDED.table_name,
		    expression = EXCLUDED.expression,
		    affected_fields = EXCLUDED.affected_fields,
		    updated_at = NOW()
	`, year, spec.Code, actionUpsert, spec.Message, spec.Table, spec.Expression, pq.Array(fields))
	if err != nil {
		return fmt.Errorf("failed to store rule %s for %d: %w", spec.Code, year, err)
	}
	return nil
}

// PutDeletion records that code is removed in year.
func (s *PostgresDeltaStore) PutDeletion(ctx context.Context, year int, code string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rule_deltas (year, code, action)
		VALUES ($1, $2, $3)
		ON CONFLICT (year, code) DO UPDATE
		SET action = EXCLUDED.action,
		    message = '',
		    table_name = '',
		    expression = '',
		    affected_fields = '{}',
		    updated_at = NOW()
	`, year, code, actionDelete)
	if err != nil {
		return fmt.Errorf("failed to store deletion of %s for %d: %w", code, year, err)
	}
	return nil
}

func (s *PostgresDeltaStore) Years(ctx context.Context) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT year FROM rule_deltas ORDER BY year ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list delta years: %w", err)
	}
	defer rows.Close()

	var years []int
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("failed to scan year: %w", err)
		}
		years = append(years, y)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating years: %w", err)
	}
	return years, nil
}

func (s *PostgresDeltaStore) Load(ctx context.Context, year int) (YearDelta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, action, message, table_name, expression, affected_fields
		FROM rule_deltas
		WHERE year = $1
		ORDER BY code ASC
	`, year)
	if err != nil {
		return YearDelta{}, fmt.Errorf("failed to load delta for %d: %w", year, err)
	}
	defer rows.Close()

	delta := YearDelta{Year: year, AddedOrModified: make(map[string]RuleDefinition)}
	found := false
	for rows.Next() {
		found = true
		var (
			action string
			spec   ExpressionSpec
			fields pq.StringArray
		)
		if err := rows.Scan(&spec.Code, &action, &spec.Message, &spec.Table, &spec.Expression, &fields); err != nil {
			return YearDelta{}, fmt.Errorf("failed to scan delta row: %w", err)
		}

		switch action {
		case actionDelete:
			delta.Deleted = append(delta.Deleted, spec.Code)
		case actionUpsert:
			spec.AffectedFields = []string(fields)
			def, err := NewExpressionRule(spec)
			if err != nil {
				return YearDelta{}, fmt.Errorf("year %d: %w", year, err)
			}
			delta.AddedOrModified[def.Code] = def
		default:
			return YearDelta{}, fmt.Errorf("year %d: rule %s has unknown action %q", year, spec.Code, action)
		}
	}
	if err := rows.Err(); err != nil {
		return YearDelta{}, fmt.Errorf("error iterating delta rows: %w", err)
	}
	if !found {
		return YearDelta{}, fmt.Errorf("no delta stored for year %d", year)
	}

	return delta, nil
}
