package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/psantana5/exectime/pkg/timing"
)

// sqlStore holds the queries both backends share. The dialects differ only
// in placeholder syntax and DDL.
type sqlStore struct {
	db          *sql.DB
	placeholder func(n int) string
}

func questionMark(int) string { return "?" }

func dollar(n int) string { return "$" + strconv.Itoa(n) }

func (s *sqlStore) Save(ctx context.Context, r timing.Result) error {
	var errMsg sql.NullString
	if msg := r.ErrorMessage(); msg != "" {
		errMsg = sql.NullString{String: msg, Valid: true}
	}

	p := s.placeholder
	query := fmt.Sprintf(`
		INSERT INTO timing_results
		(id, label, outcome, duration_ns, started_at, completed_at, error, canceled)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s)`,
		p(1), p(2), p(3), p(4), p(5), p(6), p(7), p(8))

	_, err := s.db.ExecContext(ctx, query,
		uuid.NewString(), r.Label, string(r.Outcome), int64(r.Duration),
		r.StartedAt.UTC(), r.CompletedAt.UTC(), errMsg, r.Canceled)
	if err != nil {
		return fmt.Errorf("failed to save result for %s: %w", r.Label, err)
	}
	return nil
}

func (s *sqlStore) List(ctx context.Context, q Query) ([]timing.Result, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return s.placeholder(len(args))
	}

	if q.Label != "" {
		where = append(where, "label = "+arg(q.Label))
	}
	if !q.Since.IsZero() {
		where = append(where, "completed_at >= "+arg(q.Since.UTC()))
	}
	if q.FailuresOnly {
		where = append(where, "outcome = "+arg(string(timing.OutcomeFailure)))
	}

	query := `SELECT label, outcome, duration_ns, started_at, completed_at, error, canceled FROM timing_results`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY completed_at DESC"
	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var results []timing.Result
	for rows.Next() {
		var (
			r          timing.Result
			outcome    string
			durationNS int64
			errMsg     sql.NullString
		)
		if err := rows.Scan(&r.Label, &outcome, &durationNS, &r.StartedAt, &r.CompletedAt, &errMsg, &r.Canceled); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		r.Outcome = timing.Outcome(outcome)
		r.Duration = time.Duration(durationNS)
		if errMsg.Valid {
			r.Err = errors.New(errMsg.String)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *sqlStore) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}
