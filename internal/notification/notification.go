package notification

import (
	"context"
	"fmt"

	"trackhub/internal/repository"
)

// Outcome distinguishes a delivered fan-out from one the caller chose to
// swallow. Tests and callers branch on it instead of a discarded error.
type Outcome string

const (
	OutcomeSent    Outcome = "sent"
	OutcomeSkipped Outcome = "skipped"
)

// Result reports what a Notify call actually did.
type Result struct {
	Outcome Outcome
	Sent    int    // subscriber rows written when Outcome is OutcomeSent
	Reason  string // populated when Outcome is OutcomeSkipped
}

// Notifier fans an event out to a title group's subscribers. The write runs
// on the caller's DBTX, so it shares the enclosing workflow's transaction;
// whether a failure aborts that workflow is the caller's decision.
type Notifier interface {
	Notify(ctx context.Context, q repository.DBTX, kind string, titleGroupID int64, title, body string) (Result, error)
}

// PostgresNotifier inserts one notification row per subscriber of the
// subject title group. Delivery transport is out of scope; readers poll the
// notifications table.
type PostgresNotifier struct{}

// NewPostgresNotifier creates a new PostgresNotifier.
func NewPostgresNotifier() *PostgresNotifier {
	return &PostgresNotifier{}
}

var _ Notifier = (*PostgresNotifier)(nil)

// Notify writes the fan-out rows. On failure it returns both the error and a
// skipped Result, so best-effort call sites can log the outcome and move on
// while auditable ones propagate the error.
func (n *PostgresNotifier) Notify(ctx context.Context, q repository.DBTX, kind string, titleGroupID int64, title, body string) (Result, error) {
	const query = `
		INSERT INTO notifications (user_id, kind, title, message)
		SELECT user_id, $2, $3, $4
		FROM title_group_subscriptions
		WHERE title_group_id = $1
	`
	res, err := q.ExecContext(ctx, query, titleGroupID, kind, title, body)
	if err != nil {
		return Result{Outcome: OutcomeSkipped, Reason: err.Error()}, fmt.Errorf("notify %s: %w", kind, err)
	}
	rows, _ := res.RowsAffected()
	return Result{Outcome: OutcomeSent, Sent: int(rows)}, nil
}
