package database

import (
	"context"
	"strings"

	"github.com/gocql/gocql"

	"github.com/bountyhive/bountyhive-backend/pkg/retry"
)

// Queryx is a wrapper around gocql.Query that provides retry logic via the generic retry package.
type Queryx struct {
	query  *gocql.Query
	conn   *Connection
	isIdem bool
}

// NewQuery wraps a gocql.Query to provide retry functionality.
func (c *Connection) NewQuery(stmt string, values ...interface{}) *Queryx {
	return &Queryx{
		query: c.session.Query(stmt, values...),
		conn:  c,
	}
}

func (q *Queryx) retryConfig() *retry.RetryConfig {
	var cfg retry.RetryConfig
	if q.conn.config.RetryConfig != nil {
		cfg = *q.conn.config.RetryConfig
	} else {
		cfg = *retry.DefaultRetryConfig()
	}
	cfg.ShouldRetry = gocqlShouldRetry
	return &cfg
}

// Exec executes a query with retry logic.
// The query should be marked as Idempotent() for safe retries on CUD operations.
func (q *Queryx) Exec() error {
	operation := func() error {
		return q.query.Exec()
	}
	return retry.RetryFunc(q.query.Context(), operation, q.retryConfig(), q.conn.logger)
}

// Scan executes a query and scans the result, with retry logic.
func (q *Queryx) Scan(dest ...interface{}) error {
	operation := func() error {
		return q.query.Scan(dest...)
	}
	return retry.RetryFunc(q.query.Context(), operation, q.retryConfig(), q.conn.logger)
}

// MapScanCAS executes a lightweight transaction and scans the CAS result,
// with retry logic. When the transaction was not applied, dest holds the
// existing row's columns. The map is cleared before each attempt.
func (q *Queryx) MapScanCAS(dest map[string]interface{}) (bool, error) {
	var applied bool
	operation := func() error {
		for k := range dest {
			delete(dest, k)
		}
		var err error
		applied, err = q.query.MapScanCAS(dest)
		return err
	}
	err := retry.RetryFunc(q.query.Context(), operation, q.retryConfig(), q.conn.logger)
	return applied, err
}

// Iter returns an iterator for the query.
// Retries on iterators are handled internally by gocql's paging mechanism.
func (q *Queryx) Iter() *gocql.Iter {
	return q.query.Iter()
}

// WithContext sets the context for the underlying gocql.Query.
func (q *Queryx) WithContext(ctx context.Context) *Queryx {
	q.query.WithContext(ctx)
	return q
}

// Idempotent marks the query as idempotent.
// This is critical for Exec() to be retried safely.
func (q *Queryx) Idempotent() *Queryx {
	q.query.Idempotent(true)
	q.isIdem = true
	return q
}

// gocqlShouldRetry determines whether a gocql error is worth retrying.
func gocqlShouldRetry(err error, _ int) bool {
	if err == nil {
		return false
	}
	if err == gocql.ErrNotFound {
		return false
	}

	switch err.(type) {
	case *gocql.RequestErrWriteTimeout:
		return true
	case *gocql.RequestErrReadTimeout:
		return true
	case *gocql.RequestErrUnavailable:
		return true
	}

	errMsg := err.Error()
	for _, retryable := range []string{
		"no connections available",
		"connection refused",
		"connection reset by peer",
		"i/o timeout",
	} {
		if strings.Contains(errMsg, retryable) {
			return true
		}
	}
	return false
}
