package metainfo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/bencode"
)

func singleFileInfo(name string, length, pieceLength int64) map[string]interface{} {
	return map[string]interface{}{
		"name":         name,
		"length":       length,
		"piece length": pieceLength,
		"pieces":       strings.Repeat("\x01", 20),
	}
}

func multiFileInfo() map[string]interface{} {
	return map[string]interface{}{
		"name":         "Some.Release-GRP",
		"piece length": int64(32768),
		"pieces":       strings.Repeat("\x02", 40),
		"files": []interface{}{
			map[string]interface{}{"length": int64(700), "path": []interface{}{"video.mkv"}},
			map[string]interface{}{"length": int64(200), "path": []interface{}{"subs", "en.srt"}},
			map[string]interface{}{"length": int64(100), "path": []interface{}{"README"}},
		},
	}
}

func encodeUpload(t *testing.T, info map[string]interface{}, extra map[string]interface{}) []byte {
	t.Helper()
	m := map[string]interface{}{"info": info}
	for k, v := range extra {
		m[k] = v
	}
	b, err := bencode.EncodeBytes(m)
	require.NoError(t, err)
	return b
}

func TestNormalize_ForcesPrivateFlag(t *testing.T) {
	variants := map[string]map[string]interface{}{
		"absent":  singleFileInfo("movie.mkv", 1000, 16384),
		"false":   singleFileInfo("movie.mkv", 1000, 16384),
		"true":    singleFileInfo("movie.mkv", 1000, 16384),
		"garbage": singleFileInfo("movie.mkv", 1000, 16384),
	}
	variants["false"]["private"] = int64(0)
	variants["true"]["private"] = int64(1)
	variants["garbage"]["private"] = int64(7)

	var hashes [][]byte
	for name, info := range variants {
		t.Run(name, func(t *testing.T) {
			c, err := Normalize(encodeUpload(t, info, nil))
			require.NoError(t, err)

			var dict map[string]interface{}
			require.NoError(t, bencode.DecodeBytes(c.InfoDict, &dict))
			assert.Equal(t, int64(1), dict["private"])

			hashes = append(hashes, c.InfoHash)
		})
	}

	// The declared flag never influences the identifier: it is forced
	// before hashing, so every variant collapses to the same canonical form.
	for _, h := range hashes[1:] {
		assert.Equal(t, hashes[0], h)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	c1, err := Normalize(encodeUpload(t, multiFileInfo(), map[string]interface{}{
		"announce": "http://untrusted.example/announce",
		"comment":  "rip",
	}))
	require.NoError(t, err)

	c2, err := NormalizeInfo(c1.InfoDict)
	require.NoError(t, err)

	assert.Equal(t, c1.InfoDict, c2.InfoDict)
	assert.Equal(t, c1.InfoHash, c2.InfoHash)
	assert.Equal(t, c1.Manifest, c2.Manifest)
}

func TestNormalize_IdentifierDeterminism(t *testing.T) {
	// Same content, different outer metadata and different declared flags:
	// the derived identifier must match.
	a := encodeUpload(t, singleFileInfo("movie.mkv", 1000, 16384), map[string]interface{}{
		"announce":   "http://tracker-a.example/announce",
		"created by": "client-a",
	})
	infoB := singleFileInfo("movie.mkv", 1000, 16384)
	infoB["private"] = int64(0)
	b := encodeUpload(t, infoB, map[string]interface{}{
		"announce": "http://tracker-b.example/announce",
	})

	ca, err := Normalize(a)
	require.NoError(t, err)
	cb, err := Normalize(b)
	require.NoError(t, err)

	assert.Equal(t, ca.InfoHash, cb.InfoHash)
	assert.Len(t, ca.InfoHash, 20)
}

func TestNormalize_SingleFile(t *testing.T) {
	t.Run("no extension", func(t *testing.T) {
		info := singleFileInfo("movie", 1000, 16384)
		info["private"] = int64(0)

		c, err := Normalize(encodeUpload(t, info, nil))
		require.NoError(t, err)

		assert.Equal(t, int64(1000), c.Size)
		assert.Equal(t, int64(16384), c.PieceLength)
		assert.Equal(t, "", c.Manifest.Parent)
		require.Len(t, c.Manifest.Entries, 1)
		assert.Equal(t, "movie", c.Manifest.Entries[0].Name)
		assert.Equal(t, int64(1000), c.Manifest.Entries[0].Size)
		assert.Empty(t, c.Manifest.ExtensionCounts)
	})

	t.Run("with extension", func(t *testing.T) {
		c, err := Normalize(encodeUpload(t, singleFileInfo("movie.mkv", 1000, 16384), nil))
		require.NoError(t, err)

		assert.Equal(t, map[string]int{"mkv": 1}, c.Manifest.ExtensionCounts)
	})
}

func TestNormalize_MultiFile(t *testing.T) {
	c, err := Normalize(encodeUpload(t, multiFileInfo(), nil))
	require.NoError(t, err)

	assert.Equal(t, "Some.Release-GRP", c.Manifest.Parent)
	assert.Equal(t, int64(1000), c.Size)
	require.Len(t, c.Manifest.Entries, 3)
	assert.Equal(t, "video.mkv", c.Manifest.Entries[0].Name)
	assert.Equal(t, "subs/en.srt", c.Manifest.Entries[1].Name)
	assert.Equal(t, int64(200), c.Manifest.Entries[1].Size)

	// README has no extension: present in the list and the total, absent
	// from the extension counts.
	assert.Equal(t, map[string]int{"mkv": 1, "srt": 1}, c.Manifest.ExtensionCounts)
}

func TestNormalize_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"not bencode", []byte("this is not a torrent")},
		{"empty", nil},
		{"missing info", encodeUpload(t, nil, map[string]interface{}{"announce": "x"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw)
			assert.ErrorIs(t, err, ErrInvalidMetainfo)
		})
	}
}

func TestNormalize_InvalidInfo(t *testing.T) {
	noPieceLength := singleFileInfo("a.mkv", 10, 16384)
	delete(noPieceLength, "piece length")

	noPieces := singleFileInfo("a.mkv", 10, 16384)
	delete(noPieces, "pieces")

	noName := singleFileInfo("a.mkv", 10, 16384)
	delete(noName, "name")

	noLength := singleFileInfo("a.mkv", 10, 16384)
	delete(noLength, "length")

	negLength := singleFileInfo("a.mkv", -5, 16384)

	badFiles := multiFileInfo()
	badFiles["files"] = []interface{}{"not a dict"}

	emptyPath := multiFileInfo()
	emptyPath["files"] = []interface{}{
		map[string]interface{}{"length": int64(1), "path": []interface{}{}},
	}

	for name, info := range map[string]map[string]interface{}{
		"missing piece length": noPieceLength,
		"missing pieces":       noPieces,
		"missing name":         noName,
		"missing length":       noLength,
		"negative length":      negLength,
		"malformed files":      badFiles,
		"empty path":           emptyPath,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Normalize(encodeUpload(t, info, nil))
			assert.ErrorIs(t, err, ErrInvalidMetainfo)
		})
	}
}
