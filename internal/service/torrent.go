package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"trackhub/internal/config"
	"trackhub/internal/database"
	"trackhub/internal/metainfo"
	"trackhub/internal/model"
	"trackhub/internal/notification"
	"trackhub/internal/repository"
	"trackhub/internal/storage"
)

var (
	ErrTorrentNotFound      = errors.New("torrent not found")
	ErrEditionGroupNotFound = errors.New("edition group not found")
	ErrInvalidUserOrTorrent = errors.New("invalid user id or torrent id")
)

// pgForeignKeyViolation is the Postgres SQLSTATE for a missing referenced row.
const pgForeignKeyViolation = "23503"

// TorrentService defines the torrent lifecycle use cases. Every mutating
// method runs as one database transaction: either all of its steps become
// visible or none do.
type TorrentService interface {
	// Create normalizes an untrusted upload, persists the canonical record,
	// archives the as-submitted bytes, and fans out a best-effort upload
	// notification to the title group's subscribers.
	Create(ctx context.Context, upload *model.TorrentUpload, user *model.User) (*model.Torrent, error)

	// Download increments the snatch counter, records the (torrent, user)
	// activity, and produces the requesting user's personalized file.
	Download(ctx context.Context, torrentID int64, user *model.User) (*model.TorrentDownload, error)

	// Remove archives the record with its removal lineage and deletes it.
	// Unlike Create, a failed removal notification aborts the operation.
	Remove(ctx context.Context, del *model.TorrentToDelete, actingUserID int64) error

	// ReconcilePeers recomputes seeders/leechers for every record from the
	// live peer registry. Triggered externally; safe on any schedule.
	ReconcilePeers(ctx context.Context) error

	// IncrementCompleted bumps a record's completed counter.
	IncrementCompleted(ctx context.Context, torrentID int64) error

	// ArchiveURL returns a time-limited URL for the as-submitted upload.
	ArchiveURL(ctx context.Context, torrentID int64) (string, error)
}

// torrentService is a concrete implementation of TorrentService.
type torrentService struct {
	db       *sql.DB
	repo     repository.TorrentRepository
	notifier notification.Notifier
	store    storage.Storage
	tracker  config.TrackerConfig
}

// NewTorrentService constructs a new TorrentService. The db handle is the
// process-wide pool, owned by the bootstrap and passed in explicitly.
func NewTorrentService(db *sql.DB, repo repository.TorrentRepository, notifier notification.Notifier, store storage.Storage, tracker config.TrackerConfig) TorrentService {
	return &torrentService{db: db, repo: repo, notifier: notifier, store: store, tracker: tracker}
}

// archiveKey is where the as-submitted upload bytes live in object storage.
func archiveKey(infoHash []byte) string {
	return fmt.Sprintf("torrents/%x.torrent", infoHash)
}

func (s *torrentService) Create(ctx context.Context, upload *model.TorrentUpload, user *model.User) (*model.Torrent, error) {
	canonical, err := metainfo.Normalize(upload.File)
	if err != nil {
		return nil, err
	}

	// Archive the original bytes before the transaction; compensated below
	// if the transaction fails.
	key := archiveKey(canonical.InfoHash)
	if _, err := s.store.Put(ctx, key, bytes.NewReader(upload.File), storage.PutObjectOptions{
		Size:        int64(len(upload.File)),
		ContentType: "application/x-bittorrent",
		Metadata:    map[string]string{"original-filename": upload.FileName},
	}); err != nil {
		return nil, fmt.Errorf("archive upload: %w", err)
	}

	t := &model.Torrent{
		EditionGroupID:      upload.EditionGroupID,
		CreatedByID:         user.ID,
		ReleaseName:         upload.ReleaseName,
		ReleaseGroup:        upload.ReleaseGroup,
		Description:         upload.Description,
		FileAmountPerType:   canonical.Manifest.ExtensionCounts,
		UploadedAsAnonymous: upload.UploadedAsAnonymous,
		FileList:            canonical.Manifest,
		Mediainfo:           upload.Mediainfo,
		Size:                canonical.Size,
		AudioCodec:          upload.AudioCodec,
		VideoCodec:          upload.VideoCodec,
		Features:            upload.Features,
		SubtitleLanguages:   upload.SubtitleLanguages,
		VideoResolution:     upload.VideoResolution,
		Container:           upload.Container,
		Languages:           upload.Languages,
		InfoHash:            canonical.InfoHash,
		InfoDict:            canonical.InfoDict,
	}

	var stored *model.Torrent
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var txErr error
		stored, txErr = s.repo.Insert(ctx, tx, t)
		if txErr != nil {
			return fmt.Errorf("create torrent: %w", txErr)
		}

		tg, txErr := s.repo.TitleGroupForEdition(ctx, tx, upload.EditionGroupID)
		if errors.Is(txErr, sql.ErrNoRows) {
			return ErrEditionGroupNotFound
		}
		if txErr != nil {
			return fmt.Errorf("lookup title group: %w", txErr)
		}

		// Best-effort fan-out: failure is surfaced to operators via the
		// log, never to the uploader.
		res, nErr := s.notifier.Notify(ctx, tx, "torrent_uploaded", tg.ID,
			"New torrent uploaded in subscribed title group",
			fmt.Sprintf("New torrent uploaded in title group %q", tg.Name))
		if nErr != nil {
			logEvent("upload_notification_skipped", map[string]any{
				"torrent_id": stored.ID,
				"reason":     res.Reason,
			})
		}
		return nil
	})
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("%w; archive cleanup failed: %v", err, delErr)
		}
		return nil, err
	}
	return stored, nil
}

func (s *torrentService) Download(ctx context.Context, torrentID int64, user *model.User) (*model.TorrentDownload, error) {
	var out *model.TorrentDownload
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		snatch, err := s.repo.SnatchForDownload(ctx, tx, torrentID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTorrentNotFound
		}
		if err != nil {
			return fmt.Errorf("snatch torrent: %w", err)
		}

		// Duplicate (torrent, user) pairs are absorbed by the statement's
		// conflict clause, so any error here is a real failure. Committing
		// the counter increment without its ledger row would leave the two
		// permanently out of step, so the whole workflow aborts instead.
		if err := s.repo.RecordActivity(ctx, tx, torrentID, user.ID); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
				return fmt.Errorf("%w: %v", ErrInvalidUserOrTorrent, err)
			}
			return fmt.Errorf("record activity: %w", err)
		}

		contents, err := metainfo.Personalize(metainfo.PersonalizeRequest{
			TorrentID:   torrentID,
			InfoDict:    snatch.InfoDict,
			CreatedAt:   snatch.CreatedAtSecs,
			TrackerURL:  s.tracker.TrackerURL,
			FrontendURL: s.tracker.FrontendURL,
			TrackerName: s.tracker.Name,
			User:        user,
		})
		if err != nil {
			return err
		}

		out = &model.TorrentDownload{Title: snatch.ReleaseName, Contents: contents}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *torrentService) Remove(ctx context.Context, del *model.TorrentToDelete, actingUserID int64) error {
	var infoHash []byte
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		// Removal is destructive and auditable: a failed notification
		// aborts before anything is archived or deleted.
		if _, err := s.notifier.Notify(ctx, tx, "torrent_deleted", 0, "Torrent deleted", del.DisplayedReason); err != nil {
			return err
		}

		h, err := s.repo.Archive(ctx, tx, del.ID, actingUserID, del.Reason)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTorrentNotFound
		}
		if err != nil {
			return fmt.Errorf("archive torrent: %w", err)
		}
		infoHash = h

		if err := s.repo.DeleteByID(ctx, tx, del.ID); err != nil {
			return fmt.Errorf("delete torrent: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// The canonical row is archived in the database; the original-upload
	// object is cleaned up best-effort.
	if delErr := s.store.Delete(ctx, archiveKey(infoHash)); delErr != nil {
		logEvent("upload_archive_cleanup_failed", map[string]any{
			"torrent_id": del.ID,
			"error":      delErr.Error(),
		})
	}
	return nil
}

func (s *torrentService) ReconcilePeers(ctx context.Context) error {
	if err := s.repo.ReconcilePeerCounts(ctx, s.db); err != nil {
		return fmt.Errorf("reconcile peer counts: %w", err)
	}
	return nil
}

func (s *torrentService) IncrementCompleted(ctx context.Context, torrentID int64) error {
	if err := s.repo.IncrementCompleted(ctx, s.db, torrentID); err != nil {
		return fmt.Errorf("increment completed: %w", err)
	}
	return nil
}

func (s *torrentService) ArchiveURL(ctx context.Context, torrentID int64) (string, error) {
	infoHash, err := s.repo.InfoHashByID(ctx, s.db, torrentID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrTorrentNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lookup info hash: %w", err)
	}
	return s.store.PresignGet(ctx, archiveKey(infoHash), 15*time.Minute)
}

// logEvent writes one structured JSON line, matching the process-wide log shape.
func logEvent(event string, fields map[string]any) {
	entry := map[string]any{
		"ts":        time.Now().UTC().Format(time.RFC3339Nano),
		"level":     "warn",
		"component": "service",
		"event":     event,
	}
	for k, v := range fields {
		entry[k] = v
	}
	if b, err := json.Marshal(entry); err == nil {
		log.SetFlags(0)
		log.Println(string(b))
	}
}
