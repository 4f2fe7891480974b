package model

import "time"

// Torrent is the persisted record for one uploaded release.
// This is a pure domain model with no database-specific dependencies or tags;
// InfoHash and InfoDict hold the canonical identifier and canonical info dict
// bytes produced at upload time, never recomputed from untrusted input.
type Torrent struct {
	ID                  int64          `json:"id"`
	EditionGroupID      int64          `json:"edition_group_id"`
	CreatedByID         int64          `json:"created_by_id"`
	ReleaseName         string         `json:"release_name"`
	ReleaseGroup        string         `json:"release_group,omitempty"`
	Description         string         `json:"description,omitempty"`
	FileAmountPerType   map[string]int `json:"file_amount_per_type"`
	UploadedAsAnonymous bool           `json:"uploaded_as_anonymous"`
	FileList            FileManifest   `json:"file_list"`
	Mediainfo           string         `json:"mediainfo,omitempty"`
	Size                int64          `json:"size"`
	AudioCodec          string         `json:"audio_codec,omitempty"`
	VideoCodec          string         `json:"video_codec,omitempty"`
	Features            []string       `json:"features"`
	SubtitleLanguages   []string       `json:"subtitle_languages"`
	VideoResolution     string         `json:"video_resolution,omitempty"`
	Container           string         `json:"container"`
	Languages           []string       `json:"languages"`
	Seeders             int            `json:"seeders"`
	Leechers            int            `json:"leechers"`
	Completed           int            `json:"completed"`
	Snatched            int            `json:"snatched"`
	InfoHash            []byte         `json:"-"`
	InfoDict            []byte         `json:"-"`
	CreatedAt           time.Time      `json:"created_at"`
}

// FileManifest describes the content of a torrent for the catalog:
// the parent directory (empty for single-file torrents), the per-file
// name/size list, and the per-extension occurrence counts. Files without
// an extension appear in Entries but not in ExtensionCounts.
type FileManifest struct {
	Parent          string         `json:"parent_folder"`
	Entries         []FileEntry    `json:"files"`
	ExtensionCounts map[string]int `json:"-"`
}

// FileEntry is one file inside a torrent.
type FileEntry struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// TorrentUpload carries the upload form fields plus the raw submitted
// metainfo file. The raw bytes are untrusted and transient: they exist only
// during ingestion and are replaced by the normalized canonical form.
type TorrentUpload struct {
	File                []byte
	FileName            string
	EditionGroupID      int64
	ReleaseName         string
	ReleaseGroup        string
	Description         string
	Mediainfo           string
	Container           string
	UploadedAsAnonymous bool
	AudioCodec          string
	VideoCodec          string
	Features            []string
	SubtitleLanguages   []string
	VideoResolution     string
	Languages           []string
}

// TorrentToDelete identifies a removal request. Reason is archived with the
// record; DisplayedReason is what subscribers see in the removal notification.
type TorrentToDelete struct {
	ID              int64  `json:"id"`
	Reason          string `json:"reason"`
	DisplayedReason string `json:"displayed_reason"`
}

// TorrentDownload is the personalized distributable produced for one user.
type TorrentDownload struct {
	Title    string
	Contents []byte
}

// TitleGroupLite is the single catalog lookup the core needs: the enclosing
// title group's identity and display name, used for notification fan-out.
type TitleGroupLite struct {
	ID   int64
	Name string
}
