package uow

import (
	"errors"

	"github.com/mrlokans/gallery/internal/database"
)

// DefaultMaxRetries is the number of times a conflicting flush is retried
// before the conflict is returned to the caller.
const DefaultMaxRetries = 10

type Decision int

const (
	// DecisionDone means the flush succeeded.
	DecisionDone Decision = iota
	// DecisionRetry means reload the conflicting baseline and flush again.
	DecisionRetry
	// DecisionFail means return the error to the caller.
	DecisionFail
)

func (d Decision) String() string {
	switch d {
	case DecisionDone:
		return "done"
	case DecisionRetry:
		return "retry"
	default:
		return "fail"
	}
}

// RetryPolicy decides what happens after each flush attempt. It holds no
// state so it can be tested without a store.
type RetryPolicy struct {
	MaxRetries int
}

// Next returns the decision after attempt (1-based) finished with err.
// Only concurrency conflicts are retried, and only while attempt <= MaxRetries.
func (p RetryPolicy) Next(attempt int, err error) Decision {
	if err == nil {
		return DecisionDone
	}
	if !errors.Is(err, database.ErrConcurrencyConflict) {
		return DecisionFail
	}
	if attempt > p.MaxRetries {
		return DecisionFail
	}
	return DecisionRetry
}
