package metainfo

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/bencode"

	"trackhub/internal/model"
)

func TestPasskey(t *testing.T) {
	tests := []struct {
		name         string
		upper, lower int64
		want         string
	}{
		{"zero", 0, 0, "00000000000000000000000000000000"},
		{"leading zeros preserved", 0, 255, "000000000000000000000000000000ff"},
		{"upper occupies high bits", 1, 0, "00000000000000010000000000000000"},
		{"negative halves are raw bit patterns", -1, -1, "ffffffffffffffffffffffffffffffff"},
		{"mixed", 0x0123456789abcdef, 0x1122334455667788, "0123456789abcdef1122334455667788"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Passkey(tt.upper, tt.lower)
			assert.Equal(t, tt.want, got)
			assert.Len(t, got, 32)
		})
	}
}

func canonicalFixture(t *testing.T) *Canonical {
	t.Helper()
	c, err := Normalize(encodeUpload(t, singleFileInfo("movie.mkv", 1000, 16384), nil))
	require.NoError(t, err)
	return c
}

func personalizeRequest(c *Canonical, u *model.User) PersonalizeRequest {
	return PersonalizeRequest{
		TorrentID:   42,
		InfoDict:    c.InfoDict,
		CreatedAt:   1700000000,
		TrackerURL:  "https://tracker.example.org/",
		FrontendURL: "https://hub.example.org/",
		TrackerName: "trackhub",
		User:        u,
	}
}

func TestPersonalize(t *testing.T) {
	c := canonicalFixture(t)
	user := &model.User{ID: 7, PasskeyUpper: 0x0123456789abcdef, PasskeyLower: 0x1122334455667788}

	out, err := Personalize(personalizeRequest(c, user))
	require.NoError(t, err)

	var dict map[string]bencode.RawMessage
	require.NoError(t, bencode.DecodeBytes(out, &dict))

	var announce, comment, createdBy string
	var creationDate int64
	require.NoError(t, bencode.DecodeBytes(dict["announce"], &announce))
	require.NoError(t, bencode.DecodeBytes(dict["comment"], &comment))
	require.NoError(t, bencode.DecodeBytes(dict["created by"], &createdBy))
	require.NoError(t, bencode.DecodeBytes(dict["creation date"], &creationDate))

	assert.Equal(t, "https://tracker.example.org/announce/0123456789abcdef1122334455667788", announce)
	assert.Equal(t, "https://hub.example.org/torrent/42", comment)
	assert.Equal(t, "trackhub", createdBy)
	assert.Equal(t, int64(1700000000), creationDate)

	// The stored canonical info dict is wrapped byte-for-byte unchanged.
	assert.Equal(t, []byte(c.InfoDict), []byte(dict["info"]))
}

func TestPersonalize_Deterministic(t *testing.T) {
	c := canonicalFixture(t)
	user := &model.User{ID: 7, PasskeyUpper: 1, PasskeyLower: 2}

	a, err := Personalize(personalizeRequest(c, user))
	require.NoError(t, err)
	b, err := Personalize(personalizeRequest(c, user))
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestPersonalize_IsolationAcrossUsers(t *testing.T) {
	c := canonicalFixture(t)
	alice := &model.User{ID: 1, PasskeyUpper: 0x1111, PasskeyLower: 0x2222}
	bob := &model.User{ID: 2, PasskeyUpper: 0x3333, PasskeyLower: 0x4444}

	outA, err := Personalize(personalizeRequest(c, alice))
	require.NoError(t, err)
	outB, err := Personalize(personalizeRequest(c, bob))
	require.NoError(t, err)

	assert.NotEqual(t, outA, outB)

	// Swapping only the announce token must make the files byte-identical:
	// nothing else may vary across users.
	tokenA := Passkey(alice.PasskeyUpper, alice.PasskeyLower)
	tokenB := Passkey(bob.PasskeyUpper, bob.PasskeyLower)
	rewritten := bytes.Replace(outA, []byte(tokenA), []byte(tokenB), 1)
	assert.Equal(t, outB, rewritten)
}

func TestPersonalize_CorruptStoredDescriptor(t *testing.T) {
	user := &model.User{ID: 1, PasskeyUpper: 1, PasskeyLower: 2}

	t.Run("not bencode", func(t *testing.T) {
		req := personalizeRequest(&Canonical{InfoDict: []byte("garbage")}, user)
		_, err := Personalize(req)
		assert.ErrorIs(t, err, ErrInvalidMetainfo)
	})

	t.Run("missing piece length", func(t *testing.T) {
		raw, err := bencode.EncodeBytes(map[string]interface{}{"name": "x"})
		require.NoError(t, err)
		_, err = Personalize(personalizeRequest(&Canonical{InfoDict: raw}, user))
		assert.ErrorIs(t, err, ErrInvalidMetainfo)
	})
}
