package metainfo

import (
	"fmt"

	"github.com/zeebo/bencode"

	"trackhub/internal/model"
)

// PersonalizeRequest carries everything needed to derive one user's
// distributable file from a stored canonical descriptor.
type PersonalizeRequest struct {
	TorrentID   int64
	InfoDict    []byte
	CreatedAt   int64 // seconds since epoch, taken from the stored record
	TrackerURL  string
	FrontendURL string
	TrackerName string
	User        *model.User
}

// distributable is the outgoing container. The info dictionary is embedded
// as raw canonical bytes, untouched, so the content identifier derived by
// downloading clients matches the stored one.
type distributable struct {
	Announce     string             `bencode:"announce"`
	Comment      string             `bencode:"comment"`
	CreatedBy    string             `bencode:"created by"`
	CreationDate int64              `bencode:"creation date"`
	Info         bencode.RawMessage `bencode:"info"`
}

// Passkey renders the user's 128-bit secret, stored as two signed 64-bit
// halves with upper occupying the high bits, as fixed-width lowercase hex.
// Leading zeros are preserved: the token is always 32 characters.
func Passkey(upper, lower int64) string {
	return fmt.Sprintf("%016x%016x", uint64(upper), uint64(lower))
}

// Personalize builds a distributable file for one user from stored canonical
// info bytes. For a fixed descriptor and base URLs the output is
// deterministic; two users' outputs differ only in the announce URL token.
func Personalize(req PersonalizeRequest) ([]byte, error) {
	// A stored descriptor that fails to decode is unrecoverable for this
	// request, same as a malformed upload.
	var dict map[string]interface{}
	if err := bencode.DecodeBytes(req.InfoDict, &dict); err != nil {
		return nil, fmt.Errorf("%w: stored descriptor: %v", ErrInvalidMetainfo, err)
	}
	if _, ok := dict["piece length"].(int64); !ok {
		return nil, fmt.Errorf("%w: stored descriptor: missing piece length", ErrInvalidMetainfo)
	}

	token := Passkey(req.User.PasskeyUpper, req.User.PasskeyLower)

	out := distributable{
		Announce:     req.TrackerURL + "announce/" + token,
		Comment:      fmt.Sprintf("%storrent/%d", req.FrontendURL, req.TorrentID),
		CreatedBy:    req.TrackerName,
		CreationDate: req.CreatedAt,
		Info:         bencode.RawMessage(req.InfoDict),
	}

	b, err := bencode.EncodeBytes(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMetainfo, err)
	}
	return b, nil
}
