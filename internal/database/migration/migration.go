package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_title_groups",
		SQL: `CREATE TABLE IF NOT EXISTS title_groups (
  id   BIGSERIAL PRIMARY KEY,
  name TEXT      NOT NULL
);`,
	},
	{
		Name: "create_table_edition_groups",
		SQL: `CREATE TABLE IF NOT EXISTS edition_groups (
  id             BIGSERIAL PRIMARY KEY,
  title_group_id BIGINT    NOT NULL REFERENCES title_groups (id)
);`,
	},
	{
		Name: "create_table_users",
		SQL: `CREATE TABLE IF NOT EXISTS users (
  id            BIGSERIAL PRIMARY KEY,
  username      TEXT      NOT NULL UNIQUE,
  passkey_upper BIGINT    NOT NULL,
  passkey_lower BIGINT    NOT NULL
);`,
	},
	{
		Name: "create_table_torrents",
		SQL: `CREATE TABLE IF NOT EXISTS torrents (
  id                   BIGSERIAL   PRIMARY KEY,
  edition_group_id     BIGINT      NOT NULL REFERENCES edition_groups (id),
  created_by_id        BIGINT      NOT NULL REFERENCES users (id),
  release_name         TEXT        NOT NULL,
  release_group        TEXT,
  description          TEXT,
  file_amount_per_type JSONB       NOT NULL DEFAULT '{}'::jsonb,
  uploaded_as_anonymous BOOLEAN    NOT NULL DEFAULT FALSE,
  file_list            JSONB       NOT NULL DEFAULT '{}'::jsonb,
  mediainfo            TEXT,
  size                 BIGINT      NOT NULL CHECK (size >= 0),
  audio_codec          TEXT,
  video_codec          TEXT,
  features             TEXT[]      NOT NULL DEFAULT '{}',
  subtitle_languages   TEXT[]      NOT NULL DEFAULT '{}',
  video_resolution     TEXT,
  container            TEXT        NOT NULL,
  languages            TEXT[]      NOT NULL DEFAULT '{}',
  seeders              INTEGER     NOT NULL DEFAULT 0,
  leechers             INTEGER     NOT NULL DEFAULT 0,
  completed            INTEGER     NOT NULL DEFAULT 0,
  snatched             INTEGER     NOT NULL DEFAULT 0,
  info_hash            BYTEA       NOT NULL,
  info_dict            BYTEA       NOT NULL,
  created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_torrents_edition_group_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_torrents_edition_group_id ON torrents (edition_group_id);`,
	},
	{
		Name: "create_index_torrents_info_hash",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_torrents_info_hash ON torrents (info_hash);`,
	},
	{
		Name: "create_table_torrent_activities",
		SQL: `CREATE TABLE IF NOT EXISTS torrent_activities (
  torrent_id BIGINT      NOT NULL REFERENCES torrents (id) ON DELETE CASCADE,
  user_id    BIGINT      NOT NULL REFERENCES users (id),
  snatched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (torrent_id, user_id)
);`,
	},
	{
		// Column order must stay identical to torrents so the archival
		// INSERT .. SELECT *, now(), $1, $2 lines up.
		Name: "create_table_deleted_torrents",
		SQL: `CREATE TABLE IF NOT EXISTS deleted_torrents (
  LIKE torrents INCLUDING DEFAULTS
);`,
	},
	{
		Name: "alter_deleted_torrents_lineage",
		SQL: `ALTER TABLE deleted_torrents
  ADD COLUMN IF NOT EXISTS deleted_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
  ADD COLUMN IF NOT EXISTS deleted_by_id BIGINT      NOT NULL,
  ADD COLUMN IF NOT EXISTS reason        TEXT        NOT NULL DEFAULT '';`,
	},
	{
		Name: "create_table_peers",
		SQL: `CREATE TABLE IF NOT EXISTS peers (
  torrent_id BIGINT      NOT NULL,
  user_id    BIGINT      NOT NULL,
  status     TEXT        NOT NULL CHECK (status IN ('seeding', 'leeching')),
  last_seen  TIMESTAMPTZ NOT NULL DEFAULT now(),
  PRIMARY KEY (torrent_id, user_id)
);`,
	},
	{
		Name: "create_table_title_group_subscriptions",
		SQL: `CREATE TABLE IF NOT EXISTS title_group_subscriptions (
  title_group_id BIGINT NOT NULL,
  user_id        BIGINT NOT NULL REFERENCES users (id),
  PRIMARY KEY (title_group_id, user_id)
);`,
	},
	{
		Name: "create_table_notifications",
		SQL: `CREATE TABLE IF NOT EXISTS notifications (
  id         BIGSERIAL   PRIMARY KEY,
  user_id    BIGINT      NOT NULL REFERENCES users (id),
  kind       TEXT        NOT NULL,
  title      TEXT        NOT NULL,
  message    TEXT        NOT NULL,
  read       BOOLEAN     NOT NULL DEFAULT FALSE,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
}

// EnsureMigrated checks if the 'torrents' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, loc *time.Location, dbHost string) error {
	start := time.Now()

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	query := "SELECT to_regclass('public.torrents') IS NOT NULL"
	err := db.QueryRowContext(ctx, query).Scan(&exists)
	if err != nil {
		logJSON(loc, map[string]any{
			"component":     "database",
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		logJSON(loc, map[string]any{
			"component":   "database",
			"event":       "db_migration_skip",
			"status":      "success",
			"msg":         "schema already exists, skipping migration",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_start",
		"status":    "in_progress",
		"db_host":   dbHost,
	})

	for _, step := range steps {
		stepStart := time.Now()
		_, err := db.ExecContext(ctx, step.SQL)
		if err != nil {
			logJSON(loc, map[string]any{
				"component":        "database",
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"db_host":          dbHost,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logJSON(loc, map[string]any{
			"component":        "database",
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	logJSON(loc, map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

func logJSON(loc *time.Location, data map[string]any) {
	data["ts"] = time.Now().In(loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal migration log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
