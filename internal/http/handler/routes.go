package handler

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"trackhub/internal/metainfo"
	"trackhub/internal/model"
	"trackhub/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Handlers stay thin: identity extraction, parameter parsing, and error
// translation live here; all workflow logic is in the service.
func RegisterRoutes(app *fiber.App, db *sql.DB, torrentSvc service.TorrentService) {
	// Serve OpenAPI spec and Swagger UI
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	})

	app.Get("/health", HealthCheck(db))

	app.Get("/healthz", LivenessProbe())

	app.Post("/torrents", UploadTorrent(torrentSvc))
	app.Get("/torrents/:id/download", DownloadTorrent(torrentSvc))
	app.Delete("/torrents/:id", RemoveTorrent(torrentSvc))
	app.Get("/torrents/:id/archive", TorrentArchiveURL(torrentSvc))

	app.Post("/admin/reconcile-peers", ReconcilePeers(torrentSvc))
	app.Post("/tracker/completed/:id", TrackerCompleted(torrentSvc))
}

// HealthCheck verifies DB connectivity.
func HealthCheck(db *sql.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	}
}

// LivenessProbe is a simple liveness probe.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// identityFromHeaders builds the requesting identity from the trusted
// headers set by the auth proxy in front of this service. Authentication
// itself is out of scope here.
func identityFromHeaders(c *fiber.Ctx) (*model.User, bool) {
	id, err := strconv.ParseInt(c.Get("X-User-Id"), 10, 64)
	if err != nil {
		return nil, false
	}
	upper, err := strconv.ParseInt(c.Get("X-Passkey-Upper"), 10, 64)
	if err != nil {
		return nil, false
	}
	lower, err := strconv.ParseInt(c.Get("X-Passkey-Lower"), 10, 64)
	if err != nil {
		return nil, false
	}
	return &model.User{ID: id, PasskeyUpper: upper, PasskeyLower: lower}, true
}

func parseID(c *fiber.Ctx) (int64, bool) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// UploadTorrent handles metainfo upload (multipart/form-data, field name: file).
func UploadTorrent(svc service.TorrentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := identityFromHeaders(c)
		if !ok {
			return writeError(c, fiber.StatusUnauthorized, "IDENTITY_REQUIRED", "identity headers are required")
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "torrent file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		raw := make([]byte, fh.Size)
		if _, err := io.ReadFull(f, raw); err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_READ_ERROR", "cannot read uploaded file")
		}

		editionGroupID, err := strconv.ParseInt(c.FormValue("edition_group_id"), 10, 64)
		if err != nil || editionGroupID <= 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_EDITION_GROUP", "invalid edition group id")
		}
		releaseName := c.FormValue("release_name")
		if releaseName == "" {
			return writeError(c, fiber.StatusBadRequest, "RELEASE_NAME_REQUIRED", "release name is required")
		}
		container := c.FormValue("container")
		if container == "" {
			return writeError(c, fiber.StatusBadRequest, "CONTAINER_REQUIRED", "container is required")
		}

		upload := &model.TorrentUpload{
			File:                raw,
			FileName:            fh.Filename,
			EditionGroupID:      editionGroupID,
			ReleaseName:         releaseName,
			ReleaseGroup:        c.FormValue("release_group"),
			Description:         c.FormValue("description"),
			Mediainfo:           c.FormValue("mediainfo"),
			Container:           container,
			UploadedAsAnonymous: c.FormValue("uploaded_as_anonymous") == "true",
			AudioCodec:          c.FormValue("audio_codec"),
			VideoCodec:          c.FormValue("video_codec"),
			Features:            splitList(c.FormValue("features")),
			SubtitleLanguages:   splitList(c.FormValue("subtitle_languages")),
			VideoResolution:     c.FormValue("video_resolution"),
			Languages:           splitList(c.FormValue("languages")),
		}

		stored, err := svc.Create(c.UserContext(), upload, user)
		if err != nil {
			switch {
			case errors.Is(err, metainfo.ErrInvalidMetainfo):
				return writeError(c, fiber.StatusUnprocessableEntity, "INVALID_TORRENT_FILE", "torrent file is malformed")
			case errors.Is(err, service.ErrEditionGroupNotFound):
				return writeError(c, fiber.StatusBadRequest, "EDITION_GROUP_NOT_FOUND", "edition group does not exist")
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}
		return c.Status(fiber.StatusCreated).JSON(stored)
	}
}

// DownloadTorrent produces the requesting user's personalized torrent file.
func DownloadTorrent(svc service.TorrentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := identityFromHeaders(c)
		if !ok {
			return writeError(c, fiber.StatusUnauthorized, "IDENTITY_REQUIRED", "identity headers are required")
		}
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		dl, err := svc.Download(c.UserContext(), id, user)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrTorrentNotFound):
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "torrent not found")
			case errors.Is(err, service.ErrInvalidUserOrTorrent):
				return writeError(c, fiber.StatusBadRequest, "INVALID_USER_OR_TORRENT", "invalid user id or torrent id")
			default:
				return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
			}
		}

		c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+dl.Title+`.torrent"`)
		c.Set(fiber.HeaderContentType, "application/x-bittorrent")
		return c.Send(dl.Contents)
	}
}

// removeRequest is the DELETE /torrents/:id body.
type removeRequest struct {
	Reason          string `json:"reason"`
	DisplayedReason string `json:"displayed_reason"`
}

// RemoveTorrent archives and deletes a record.
func RemoveTorrent(svc service.TorrentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := identityFromHeaders(c)
		if !ok {
			return writeError(c, fiber.StatusUnauthorized, "IDENTITY_REQUIRED", "identity headers are required")
		}
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		var req removeRequest
		if err := c.BodyParser(&req); err != nil || req.Reason == "" {
			return writeError(c, fiber.StatusBadRequest, "REASON_REQUIRED", "removal reason is required")
		}
		if req.DisplayedReason == "" {
			req.DisplayedReason = req.Reason
		}

		err := svc.Remove(c.UserContext(), &model.TorrentToDelete{
			ID:              id,
			Reason:          req.Reason,
			DisplayedReason: req.DisplayedReason,
		}, user.ID)
		if err != nil {
			if errors.Is(err, service.ErrTorrentNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "torrent not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// TorrentArchiveURL returns a presigned URL for the as-submitted upload bytes.
func TorrentArchiveURL(svc service.TorrentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		url, err := svc.ArchiveURL(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrTorrentNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "torrent not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(fiber.Map{"url": url})
	}
}

// ReconcilePeers triggers the batch seeders/leechers recomputation.
func ReconcilePeers(svc service.TorrentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.ReconcilePeers(c.UserContext()); err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// TrackerCompleted bumps a record's completed counter on a tracker report.
func TrackerCompleted(svc service.TorrentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, ok := parseID(c)
		if !ok {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.IncrementCompleted(c.UserContext(), id); err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// splitList parses a comma-separated form value into trimmed entries.
func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
