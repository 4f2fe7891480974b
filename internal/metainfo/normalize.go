package metainfo

import (
	"crypto/sha1"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/zeebo/bencode"

	"trackhub/internal/model"
)

// ErrInvalidMetainfo is returned for any upload that fails to parse or
// rebuild, and for a stored descriptor that no longer decodes. There is no
// partial success: a request hitting this error is unrecoverable.
var ErrInvalidMetainfo = errors.New("invalid metainfo file")

// Canonical is the normalized form of an uploaded metainfo file.
//
// InfoDict holds the re-serialized info dictionary with the private flag
// forced to 1 and the uploader's piece length preserved verbatim. InfoHash is
// SHA-1 over those canonical bytes, so it is a pure function of the file
// list, sizes, piece length, and the forced flag — whatever identifier the
// uploader's client computed is discarded.
type Canonical struct {
	InfoHash    []byte
	InfoDict    []byte
	PieceLength int64
	Size        int64
	Manifest    model.FileManifest
}

// metaFile is the untrusted container; only the info dictionary matters at
// ingestion, everything else (announce, comment, creator) is replaced at
// distribution time.
type metaFile struct {
	Info bencode.RawMessage `bencode:"info"`
}

// Normalize parses an uploaded metainfo file and rebuilds its info
// dictionary in canonical, privacy-enforced form. Normalizing the output of
// a previous Normalize is a no-op: the canonical bytes and identifier are
// stable.
func Normalize(raw []byte) (*Canonical, error) {
	var m metaFile
	if err := bencode.DecodeBytes(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetainfo, err)
	}
	if len(m.Info) == 0 {
		return nil, fmt.Errorf("%w: missing info dictionary", ErrInvalidMetainfo)
	}
	return NormalizeInfo(m.Info)
}

// NormalizeInfo rebuilds a bare info dictionary the same way Normalize does
// for a full file. It is also used to re-validate stored canonical bytes.
func NormalizeInfo(info []byte) (*Canonical, error) {
	var dict map[string]interface{}
	if err := bencode.DecodeBytes(info, &dict); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetainfo, err)
	}

	pieceLength, ok := dict["piece length"].(int64)
	if !ok || pieceLength <= 0 {
		return nil, fmt.Errorf("%w: missing or invalid piece length", ErrInvalidMetainfo)
	}
	if _, ok := dict["pieces"].(string); !ok {
		return nil, fmt.Errorf("%w: missing piece hashes", ErrInvalidMetainfo)
	}

	manifest, size, err := extractManifest(dict)
	if err != nil {
		return nil, err
	}

	// The uploader's private flag is untrusted; force it before hashing.
	dict["private"] = int64(1)

	canonical, err := bencode.EncodeBytes(dict)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetainfo, err)
	}

	sum := sha1.Sum(canonical)

	return &Canonical{
		InfoHash:    sum[:],
		InfoDict:    canonical,
		PieceLength: pieceLength,
		Size:        size,
		Manifest:    manifest,
	}, nil
}

// extractManifest builds the catalog summary from a decoded info dictionary:
// parent directory (empty for single-file torrents), the per-file name/size
// list, total size, and extension occurrence counts. A file whose base name
// has no '.' is counted in the list and total but not in the extension map.
func extractManifest(dict map[string]interface{}) (model.FileManifest, int64, error) {
	name, ok := dict["name"].(string)
	if !ok || name == "" {
		return model.FileManifest{}, 0, fmt.Errorf("%w: missing name", ErrInvalidMetainfo)
	}

	var (
		parent  string
		entries []model.FileEntry
	)

	switch files := dict["files"].(type) {
	case nil:
		// Single-file mode: name is the file name, no parent directory.
		length, ok := dict["length"].(int64)
		if !ok || length < 0 {
			return model.FileManifest{}, 0, fmt.Errorf("%w: missing file length", ErrInvalidMetainfo)
		}
		entries = []model.FileEntry{{Name: name, Size: length}}
	case []interface{}:
		parent = name
		for _, f := range files {
			fd, ok := f.(map[string]interface{})
			if !ok {
				return model.FileManifest{}, 0, fmt.Errorf("%w: malformed file entry", ErrInvalidMetainfo)
			}
			length, ok := fd["length"].(int64)
			if !ok || length < 0 {
				return model.FileManifest{}, 0, fmt.Errorf("%w: malformed file length", ErrInvalidMetainfo)
			}
			rawPath, ok := fd["path"].([]interface{})
			if !ok || len(rawPath) == 0 {
				return model.FileManifest{}, 0, fmt.Errorf("%w: malformed file path", ErrInvalidMetainfo)
			}
			segments := make([]string, 0, len(rawPath))
			for _, seg := range rawPath {
				s, ok := seg.(string)
				if !ok || s == "" {
					return model.FileManifest{}, 0, fmt.Errorf("%w: malformed file path", ErrInvalidMetainfo)
				}
				segments = append(segments, s)
			}
			entries = append(entries, model.FileEntry{Name: strings.Join(segments, "/"), Size: length})
		}
		if len(entries) == 0 {
			return model.FileManifest{}, 0, fmt.Errorf("%w: empty file list", ErrInvalidMetainfo)
		}
	default:
		return model.FileManifest{}, 0, fmt.Errorf("%w: malformed file list", ErrInvalidMetainfo)
	}

	var size int64
	counts := map[string]int{}
	for _, e := range entries {
		size += e.Size
		base := path.Base(e.Name)
		if i := strings.LastIndex(base, "."); i >= 0 {
			counts[base[i+1:]]++
		}
	}

	return model.FileManifest{
		Parent:          parent,
		Entries:         entries,
		ExtensionCounts: counts,
	}, size, nil
}
