package repository

import (
	"context"
	"database/sql"

	"trackhub/internal/model"
)

// DBTX is the statement executor a repository method runs against. Both
// *sql.DB and *sql.Tx satisfy it; workflow code passes its transaction so
// every statement of a multi-step workflow shares one atomicity boundary.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SnatchResult is what the single-statement snatch increment reads back:
// the stored canonical info bytes, the record's creation time in epoch
// seconds, and its display title, all consistent with the post-increment row.
type SnatchResult struct {
	InfoDict      []byte
	CreatedAtSecs int64
	ReleaseName   string
}

// TorrentRepository defines data access for torrent records using SQL only.
// No business logic here — strictly persistence operations. Methods return
// raw storage errors (including sql.ErrNoRows); mapping to domain errors is
// the service layer's job.
type TorrentRepository interface {
	// Insert stores a new normalized torrent record and returns it with the
	// database-assigned id, counters, and creation time filled in.
	Insert(ctx context.Context, q DBTX, t *model.Torrent) (*model.Torrent, error)

	// SnatchForDownload atomically increments the record's snatched counter
	// and reads back the fields a personalized download needs, in one
	// statement so concurrent downloads never observe a torn row.
	SnatchForDownload(ctx context.Context, q DBTX, torrentID int64) (*SnatchResult, error)

	// RecordActivity inserts the (torrent, user) first-download row.
	// A duplicate pair is a no-op, not an error.
	RecordActivity(ctx context.Context, q DBTX, torrentID, userID int64) error

	// TitleGroupForEdition resolves the enclosing title group of an edition
	// group. Returns sql.ErrNoRows if the edition group does not exist.
	TitleGroupForEdition(ctx context.Context, q DBTX, editionGroupID int64) (*model.TitleGroupLite, error)

	// Archive copies the full record into deleted_torrents with the removal
	// lineage and returns the archived record's info hash.
	Archive(ctx context.Context, q DBTX, torrentID, deletedByID int64, reason string) ([]byte, error)

	// DeleteByID removes the live record.
	DeleteByID(ctx context.Context, q DBTX, torrentID int64) error

	// InfoHashByID reads a record's stored content identifier.
	InfoHashByID(ctx context.Context, q DBTX, torrentID int64) ([]byte, error)

	// ReconcilePeerCounts recomputes every record's seeders/leechers from
	// the live peers table. Records with no connected peers are set to zero.
	ReconcilePeerCounts(ctx context.Context, q DBTX) error

	// IncrementCompleted bumps the completed counter for one record.
	IncrementCompleted(ctx context.Context, q DBTX, torrentID int64) error
}
