// Package store holds the Postgres repositories behind the screening engine
// and the Redis-cached open-job catalog.
package store

import (
	"errors"
)

var (
	ErrNotFound    = errors.New("RESOURCE_NOT_FOUND")
	ErrQueryFailed = errors.New("QUERY_EXECUTION_FAILED")
)
