package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresNotifier_Notify(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	n := NewPostgresNotifier()
	ctx := context.Background()

	t.Run("sent", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO notifications").
			WithArgs(int64(9), "torrent_uploaded", "New torrent uploaded", "details").
			WillReturnResult(sqlmock.NewResult(0, 3))

		res, err := n.Notify(ctx, db, "torrent_uploaded", 9, "New torrent uploaded", "details")

		assert.NoError(t, err)
		assert.Equal(t, OutcomeSent, res.Outcome)
		assert.Equal(t, 3, res.Sent)
	})

	t.Run("no subscribers still counts as sent", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO notifications").
			WithArgs(int64(10), "torrent_uploaded", "t", "b").
			WillReturnResult(sqlmock.NewResult(0, 0))

		res, err := n.Notify(ctx, db, "torrent_uploaded", 10, "t", "b")

		assert.NoError(t, err)
		assert.Equal(t, OutcomeSent, res.Outcome)
		assert.Equal(t, 0, res.Sent)
	})

	t.Run("failure yields skipped result and error", func(t *testing.T) {
		mock.ExpectExec("INSERT INTO notifications").
			WithArgs(int64(9), "torrent_deleted", "Torrent deleted", "reason").
			WillReturnError(errors.New("connection reset"))

		res, err := n.Notify(ctx, db, "torrent_deleted", 9, "Torrent deleted", "reason")

		assert.Error(t, err)
		assert.Equal(t, OutcomeSkipped, res.Outcome)
		assert.Contains(t, res.Reason, "connection reset")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
