package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"trackhub/internal/model"
	"trackhub/internal/repository"
)

// TorrentPostgres is a PostgreSQL implementation of repository.TorrentRepository.
// It contains parameterized SQL only; every method runs on the DBTX the caller
// provides, so transactional workflows pass their *sql.Tx and batch operations
// pass the pool directly.
type TorrentPostgres struct{}

// NewTorrentPostgres creates a new TorrentPostgres repository.
func NewTorrentPostgres() *TorrentPostgres {
	return &TorrentPostgres{}
}

var _ repository.TorrentRepository = (*TorrentPostgres)(nil)

// Insert stores a normalized torrent record and returns the stored row.
func (r *TorrentPostgres) Insert(ctx context.Context, q repository.DBTX, t *model.Torrent) (*model.Torrent, error) {
	const query = `
		INSERT INTO torrents (
			edition_group_id, created_by_id, release_name, release_group, description,
			file_amount_per_type, uploaded_as_anonymous, file_list, mediainfo, size,
			audio_codec, video_codec, features, subtitle_languages, video_resolution,
			container, languages, info_hash, info_dict
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13::text[], $14::text[], $15, $16, $17::text[], $18, $19
		)
		RETURNING id, seeders, leechers, completed, snatched, created_at
	`

	counts := t.FileAmountPerType
	if counts == nil {
		counts = map[string]int{}
	}
	amountPerType, err := json.Marshal(counts)
	if err != nil {
		return nil, fmt.Errorf("marshal file_amount_per_type: %w", err)
	}
	fileList, err := json.Marshal(t.FileList)
	if err != nil {
		return nil, fmt.Errorf("marshal file_list: %w", err)
	}

	out := *t
	row := q.QueryRowContext(ctx, query,
		t.EditionGroupID,
		t.CreatedByID,
		t.ReleaseName,
		nullString(t.ReleaseGroup),
		nullString(t.Description),
		amountPerType,
		t.UploadedAsAnonymous,
		fileList,
		nullString(t.Mediainfo),
		t.Size,
		nullString(t.AudioCodec),
		nullString(t.VideoCodec),
		textArray(t.Features),
		textArray(t.SubtitleLanguages),
		nullString(t.VideoResolution),
		t.Container,
		textArray(t.Languages),
		t.InfoHash,
		t.InfoDict,
	)
	if err := row.Scan(
		&out.ID,
		&out.Seeders,
		&out.Leechers,
		&out.Completed,
		&out.Snatched,
		&out.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &out, nil
}

// SnatchForDownload increments the snatched counter and reads the download
// fields in a single statement, so the read is consistent with the increment
// even under concurrent downloads of the same record.
func (r *TorrentPostgres) SnatchForDownload(ctx context.Context, q repository.DBTX, torrentID int64) (*repository.SnatchResult, error) {
	const query = `
		UPDATE torrents
		SET snatched = snatched + 1
		WHERE id = $1
		RETURNING info_dict, EXTRACT(EPOCH FROM created_at)::BIGINT, release_name
	`
	var res repository.SnatchResult
	row := q.QueryRowContext(ctx, query, torrentID)
	if err := row.Scan(&res.InfoDict, &res.CreatedAtSecs, &res.ReleaseName); err != nil {
		return nil, err
	}
	return &res, nil
}

// RecordActivity inserts the first-download ledger row for (torrent, user).
// The conflict target makes a repeat download by the same user a no-op, so
// two concurrent first downloads resolve to exactly one row without either
// request failing.
func (r *TorrentPostgres) RecordActivity(ctx context.Context, q repository.DBTX, torrentID, userID int64) error {
	const query = `
		INSERT INTO torrent_activities (torrent_id, user_id, snatched_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (torrent_id, user_id) DO NOTHING
	`
	_, err := q.ExecContext(ctx, query, torrentID, userID)
	return err
}

// TitleGroupForEdition resolves the enclosing title group for notification fan-out.
func (r *TorrentPostgres) TitleGroupForEdition(ctx context.Context, q repository.DBTX, editionGroupID int64) (*model.TitleGroupLite, error) {
	const query = `
		SELECT title_groups.id, title_groups.name
		FROM edition_groups
		JOIN title_groups ON edition_groups.title_group_id = title_groups.id
		WHERE edition_groups.id = $1
	`
	var tg model.TitleGroupLite
	row := q.QueryRowContext(ctx, query, editionGroupID)
	if err := row.Scan(&tg.ID, &tg.Name); err != nil {
		return nil, err
	}
	return &tg, nil
}

// Archive copies the live record into deleted_torrents with its removal
// lineage. deleted_torrents mirrors the torrents column order, so the row is
// carried over wholesale.
func (r *TorrentPostgres) Archive(ctx context.Context, q repository.DBTX, torrentID, deletedByID int64, reason string) ([]byte, error) {
	const query = `
		INSERT INTO deleted_torrents
		SELECT *, NOW(), $1, $2 FROM torrents WHERE id = $3
		RETURNING info_hash
	`
	var infoHash []byte
	row := q.QueryRowContext(ctx, query, deletedByID, reason, torrentID)
	if err := row.Scan(&infoHash); err != nil {
		return nil, err
	}
	return infoHash, nil
}

// DeleteByID removes the live record.
func (r *TorrentPostgres) DeleteByID(ctx context.Context, q repository.DBTX, torrentID int64) error {
	const query = `DELETE FROM torrents WHERE id = $1`
	_, err := q.ExecContext(ctx, query, torrentID)
	return err
}

// InfoHashByID reads the stored content identifier for one record.
func (r *TorrentPostgres) InfoHashByID(ctx context.Context, q repository.DBTX, torrentID int64) ([]byte, error) {
	const query = `SELECT info_hash FROM torrents WHERE id = $1`
	var infoHash []byte
	if err := q.QueryRowContext(ctx, query, torrentID).Scan(&infoHash); err != nil {
		return nil, err
	}
	return infoHash, nil
}

// ReconcilePeerCounts replaces every record's seeders/leechers with counts
// derived from the live peers table. The self-join keeps records with no
// connected peers in scope so they are zeroed rather than left stale. Safe
// to run repeatedly.
func (r *TorrentPostgres) ReconcilePeerCounts(ctx context.Context, q repository.DBTX) error {
	const query = `
		WITH peer_counts AS (
			SELECT
				torrent_id,
				COUNT(*) FILTER (WHERE status = 'seeding')  AS current_seeders,
				COUNT(*) FILTER (WHERE status = 'leeching') AS current_leechers
			FROM peers
			GROUP BY torrent_id
		)
		UPDATE torrents AS t
		SET
			seeders  = COALESCE(pc.current_seeders, 0),
			leechers = COALESCE(pc.current_leechers, 0)
		FROM torrents AS t_all
		LEFT JOIN peer_counts AS pc ON t_all.id = pc.torrent_id
		WHERE t.id = t_all.id
	`
	_, err := q.ExecContext(ctx, query)
	return err
}

// IncrementCompleted bumps the completed counter; called when the tracker
// reports a finished download.
func (r *TorrentPostgres) IncrementCompleted(ctx context.Context, q repository.DBTX, torrentID int64) error {
	const query = `
		UPDATE torrents
		SET completed = completed + 1
		WHERE id = $1
	`
	_, err := q.ExecContext(ctx, query, torrentID)
	return err
}

// nullString maps an empty string to SQL NULL for optional text columns.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// textArray renders a []string as a Postgres array literal for a ::text[]
// cast parameter. Elements are quoted so values containing commas, quotes,
// or braces survive the round trip.
func textArray(vals []string) string {
	if len(vals) == 0 {
		return "{}"
	}
	quoted := make([]string, len(vals))
	for i, v := range vals {
		v = strings.ReplaceAll(v, `\`, `\\`)
		v = strings.ReplaceAll(v, `"`, `\"`)
		quoted[i] = `"` + v + `"`
	}
	return "{" + strings.Join(quoted, ",") + "}"
}
